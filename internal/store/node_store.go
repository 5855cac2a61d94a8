package store

import (
	"encoding/binary"

	"github.com/wegman-software/tilegen-go/internal/arena"
)

// NodeStore maps a node ID to its coordinate. The strategy is chosen
// once at construction: sparse accepts any subset of the ID domain in
// any order, dense trades that flexibility for a flat arena array with
// better density and locality.
type NodeStore interface {
	Insert(id NodeID, c Coord) error
	At(id NodeID) (Coord, error)
	Count(id NodeID) bool
	Size() int
	Reserve(n int) error
	Clear()
}

// SparseNodes is the hash-map strategy.
type SparseNodes struct {
	coords map[NodeID]Coord
}

// NewSparseNodes creates an empty sparse node store.
func NewSparseNodes() *SparseNodes {
	return &SparseNodes{coords: make(map[NodeID]Coord)}
}

func (s *SparseNodes) Insert(id NodeID, c Coord) error {
	s.coords[id] = c
	return nil
}

func (s *SparseNodes) At(id NodeID) (Coord, error) {
	c, ok := s.coords[id]
	if !ok {
		return Coord{}, &NotFoundError{Kind: "node", ID: int64(id)}
	}
	return c, nil
}

func (s *SparseNodes) Count(id NodeID) bool {
	_, ok := s.coords[id]
	return ok
}

func (s *SparseNodes) Size() int { return len(s.coords) }

// Reserve pre-sizes the map to reduce rehashing during load. Only
// effective before the first insert.
func (s *SparseNodes) Reserve(n int) error {
	if len(s.coords) == 0 && n > 0 {
		s.coords = make(map[NodeID]Coord, n)
	}
	return nil
}

func (s *SparseNodes) Clear() {
	s.coords = make(map[NodeID]Coord)
}

// Each dense entry is latp (int32) + lon (int32).
const denseEntrySize = 8

// DenseNodes is the flat-array strategy: the node ID indexes directly
// into an arena block of fixed-size entries. IDs must be reserved
// before insertion; unset in-range IDs read back the zero sentinel.
type DenseNodes struct {
	a      *arena.Arena
	block  arena.Handle
	extent int64
}

// NewDenseNodes creates a dense node store with no extent. Reserve must
// run before any insert.
func NewDenseNodes(a *arena.Arena) *DenseNodes {
	return &DenseNodes{a: a}
}

// Reserve allocates (or reallocates) the flat array for IDs [0, n).
// Wrap in the arena's Perform so the allocation can trigger growth.
func (d *DenseNodes) Reserve(n int) error {
	if int64(n) <= d.extent {
		return nil
	}
	h, b, err := d.a.Alloc(n * denseEntrySize)
	if err != nil {
		return err
	}
	clear(b)
	if d.block != arena.Nil {
		copy(b, d.a.Bytes(d.block))
	}
	d.block = h
	d.extent = int64(n)
	return nil
}

func (d *DenseNodes) Insert(id NodeID, c Coord) error {
	if id < 0 || int64(id) >= d.extent {
		return &RangeError{ID: int64(id), Extent: d.extent}
	}
	b := d.a.Bytes(d.block)
	off := int64(id) * denseEntrySize
	binary.LittleEndian.PutUint32(b[off:], uint32(c.Latp))
	binary.LittleEndian.PutUint32(b[off+4:], uint32(c.Lon))
	return nil
}

// At never reports NotFound for in-range IDs; an unset entry reads the
// zero sentinel.
func (d *DenseNodes) At(id NodeID) (Coord, error) {
	if id < 0 || int64(id) >= d.extent {
		return Coord{}, &RangeError{ID: int64(id), Extent: d.extent}
	}
	b := d.a.Bytes(d.block)
	off := int64(id) * denseEntrySize
	return Coord{
		Latp: int32(binary.LittleEndian.Uint32(b[off:])),
		Lon:  int32(binary.LittleEndian.Uint32(b[off+4:])),
	}, nil
}

func (d *DenseNodes) Count(id NodeID) bool {
	c, err := d.At(id)
	return err == nil && !c.IsZero()
}

// Size reports the reserved extent, not the number of set entries.
func (d *DenseNodes) Size() int { return int(d.extent) }

// Clear resets every entry to the sentinel. The extent survives.
func (d *DenseNodes) Clear() {
	if d.block == arena.Nil {
		return
	}
	clear(d.a.Bytes(d.block))
}
