package store

import (
	"encoding/binary"

	"github.com/wegman-software/tilegen-go/internal/arena"
)

// Relation payload layout: outer count (uint32), inner count (uint32),
// outer way IDs, inner way IDs.
const relHeaderSize = 8

// RelationStore maps an area relation's pseudo-ID to its outer and
// inner member-way sequences, stored as one arena block per relation.
type RelationStore struct {
	a       *arena.Arena
	handles map[WayID]arena.Handle
}

// NewRelationStore creates an empty relation store on the given arena.
func NewRelationStore(a *arena.Arena) *RelationStore {
	return &RelationStore{a: a, handles: make(map[WayID]arena.Handle)}
}

// Insert copies both member sequences into the arena as a pair and
// returns the pair's handle. Wrap in the arena's Perform.
func (r *RelationStore) Insert(id WayID, outer, inner []WayID) (arena.Handle, error) {
	h, b, err := r.a.Alloc(relHeaderSize + (len(outer)+len(inner))*idSize)
	if err != nil {
		return arena.Nil, err
	}
	binary.LittleEndian.PutUint32(b, uint32(len(outer)))
	binary.LittleEndian.PutUint32(b[4:], uint32(len(inner)))
	off := relHeaderSize
	for _, id := range outer {
		binary.LittleEndian.PutUint64(b[off:], uint64(id))
		off += idSize
	}
	for _, id := range inner {
		binary.LittleEndian.PutUint64(b[off:], uint64(id))
		off += idSize
	}
	r.handles[id] = h
	return h, nil
}

// At returns a view over the stored pair.
func (r *RelationStore) At(id WayID) (RelationWays, error) {
	h, ok := r.handles[id]
	if !ok {
		return RelationWays{}, &NotFoundError{Kind: "relation", ID: int64(id)}
	}
	return RelationWays{a: r.a, h: h}, nil
}

func (r *RelationStore) Count(id WayID) bool {
	_, ok := r.handles[id]
	return ok
}

func (r *RelationStore) Size() int { return len(r.handles) }

func (r *RelationStore) Clear() {
	r.handles = make(map[WayID]arena.Handle)
}

// ForEach visits every stored relation until fn returns false.
func (r *RelationStore) ForEach(fn func(WayID, RelationWays) bool) {
	for id, h := range r.handles {
		if !fn(id, RelationWays{a: r.a, h: h}) {
			return
		}
	}
}

// RelationWays is a read-only view over a relation's outer and inner
// way-ID sequences.
type RelationWays struct {
	a *arena.Arena
	h arena.Handle
}

// Handle returns the view's growth-stable handle.
func (v RelationWays) Handle() arena.Handle { return v.h }

// Outer returns the outer member sequence.
func (v RelationWays) Outer() WaySeq {
	b := v.a.Bytes(v.h)
	n := int(binary.LittleEndian.Uint32(b))
	return WaySeq{a: v.a, h: v.h, off: relHeaderSize, n: n}
}

// Inner returns the inner member sequence.
func (v RelationWays) Inner() WaySeq {
	b := v.a.Bytes(v.h)
	outer := int(binary.LittleEndian.Uint32(b))
	inner := int(binary.LittleEndian.Uint32(b[4:]))
	return WaySeq{a: v.a, h: v.h, off: relHeaderSize + outer*idSize, n: inner}
}

// WaySeq is a read-only view over one way-ID sequence inside a
// relation's arena block.
type WaySeq struct {
	a   *arena.Arena
	h   arena.Handle
	off int
	n   int
}

func (s WaySeq) Len() int { return s.n }

// ID returns the i-th way ID.
func (s WaySeq) ID(i int) WayID {
	b := s.a.Bytes(s.h)
	return WayID(binary.LittleEndian.Uint64(b[s.off+i*idSize:]))
}

// IDs copies the sequence out of the arena.
func (s WaySeq) IDs() []WayID {
	out := make([]WayID, s.n)
	for i := range out {
		out[i] = s.ID(i)
	}
	return out
}
