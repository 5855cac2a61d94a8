package store

import (
	"encoding/binary"

	"github.com/wegman-software/tilegen-go/internal/arena"
)

const idSize = 8

// WayStore maps a way ID to its ordered node-ID sequence. The sequence
// bytes live in the arena; the key map lives on the heap.
type WayStore struct {
	a       *arena.Arena
	handles map[WayID]arena.Handle
}

// NewWayStore creates an empty way store on the given arena.
func NewWayStore(a *arena.Arena) *WayStore {
	return &WayStore{a: a, handles: make(map[WayID]arena.Handle)}
}

// Reserve pre-sizes the key map. Only effective before the first insert.
func (w *WayStore) Reserve(n int) {
	if len(w.handles) == 0 && n > 0 {
		w.handles = make(map[WayID]arena.Handle, n)
	}
}

// Insert copies the node-ID sequence into the arena and returns the
// stored copy's handle. Wrap in the arena's Perform.
func (w *WayStore) Insert(id WayID, nodeIDs []NodeID) (arena.Handle, error) {
	h, b, err := w.a.Alloc(len(nodeIDs) * idSize)
	if err != nil {
		return arena.Nil, err
	}
	for i, n := range nodeIDs {
		binary.LittleEndian.PutUint64(b[i*idSize:], uint64(n))
	}
	w.handles[id] = h
	return h, nil
}

// At returns a view over the stored sequence.
func (w *WayStore) At(id WayID) (WayNodes, error) {
	h, ok := w.handles[id]
	if !ok {
		return WayNodes{}, &NotFoundError{Kind: "way", ID: int64(id)}
	}
	return WayNodes{a: w.a, h: h}, nil
}

func (w *WayStore) Count(id WayID) bool {
	_, ok := w.handles[id]
	return ok
}

func (w *WayStore) Size() int { return len(w.handles) }

// Clear drops the key map. The arena space is reclaimed by the store's
// global clear.
func (w *WayStore) Clear() {
	w.handles = make(map[WayID]arena.Handle)
}

// ForEach visits every stored way until fn returns false.
func (w *WayStore) ForEach(fn func(WayID, WayNodes) bool) {
	for id, h := range w.handles {
		if !fn(id, WayNodes{a: w.a, h: h}) {
			return
		}
	}
}

// WayNodes is a read-only view over a way's node-ID sequence. It
// resolves its handle against the current mapping on every access and
// never holds a raw pointer across arena growth.
type WayNodes struct {
	a *arena.Arena
	h arena.Handle
}

// Handle returns the view's growth-stable handle.
func (v WayNodes) Handle() arena.Handle { return v.h }

func (v WayNodes) Len() int {
	return len(v.a.Bytes(v.h)) / idSize
}

// ID returns the i-th node ID.
func (v WayNodes) ID(i int) NodeID {
	b := v.a.Bytes(v.h)
	return NodeID(binary.LittleEndian.Uint64(b[i*idSize:]))
}

func (v WayNodes) First() NodeID { return v.ID(0) }

func (v WayNodes) Last() NodeID { return v.ID(v.Len() - 1) }

// Closed reports whether the way loops back onto its first node.
func (v WayNodes) Closed() bool {
	n := v.Len()
	return n == 0 || v.ID(0) == v.ID(n-1)
}

// IDs copies the sequence out of the arena.
func (v WayNodes) IDs() []NodeID {
	b := v.a.Bytes(v.h)
	out := make([]NodeID, len(b)/idSize)
	for i := range out {
		out[i] = NodeID(binary.LittleEndian.Uint64(b[i*idSize:]))
	}
	return out
}
