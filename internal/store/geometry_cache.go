package store

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb"

	"github.com/wegman-software/tilegen-go/internal/arena"
	"github.com/wegman-software/tilegen-go/internal/wkb"
)

// Provenance selects one of the two independent partitions of the
// geometry cache, so counts and clears of pipeline-derived and
// auxiliary-source geometry stay separate.
type Provenance int

const (
	// SourceOSM holds geometry derived from the loaded OSM data.
	SourceOSM Provenance = iota
	// SourceShape holds geometry derived from auxiliary shape layers.
	SourceShape

	numPartitions
)

func (p Provenance) String() string {
	switch p {
	case SourceOSM:
		return "osm"
	case SourceShape:
		return "shp"
	}
	return fmt.Sprintf("provenance(%d)", int(p))
}

// CacheCounts reports the number of cached geometries in a partition.
type CacheCounts struct {
	Points        int
	LineStrings   int
	MultiPolygons int
}

type partition struct {
	points []arena.Handle
	lines  []arena.Handle
	polys  []arena.Handle
}

// GeometryCache holds append-only sequences of derived geometry,
// WKB-encoded into the arena and addressed by handle. Appends are
// mutex-guarded: the render phase stores from many workers at once.
type GeometryCache struct {
	a     *arena.Arena
	mu    sync.Mutex
	enc   *wkb.Encoder
	parts [numPartitions]partition
}

// NewGeometryCache creates an empty cache on the given arena.
func NewGeometryCache(a *arena.Arena) *GeometryCache {
	return &GeometryCache{a: a, enc: wkb.NewEncoder(1024)}
}

// StorePoint copies the point into the arena and returns its handle.
// Wrap in the arena's Perform.
func (g *GeometryCache) StorePoint(p Provenance, pt orb.Point) (arena.Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	h, err := g.put(g.enc.EncodePoint(pt))
	if err != nil {
		return arena.Nil, err
	}
	g.parts[p].points = append(g.parts[p].points, h)
	return h, nil
}

// StoreLineString copies the linestring into the arena and returns its
// handle. Wrap in the arena's Perform.
func (g *GeometryCache) StoreLineString(p Provenance, ls orb.LineString) (arena.Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	h, err := g.put(g.enc.EncodeLineString(ls))
	if err != nil {
		return arena.Nil, err
	}
	g.parts[p].lines = append(g.parts[p].lines, h)
	return h, nil
}

// StoreMultiPolygon copies the multipolygon into the arena and returns
// its handle. Wrap in the arena's Perform.
func (g *GeometryCache) StoreMultiPolygon(p Provenance, mp orb.MultiPolygon) (arena.Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	h, err := g.put(g.enc.EncodeMultiPolygon(mp))
	if err != nil {
		return arena.Nil, err
	}
	g.parts[p].polys = append(g.parts[p].polys, h)
	return h, nil
}

func (g *GeometryCache) put(encoded []byte) (arena.Handle, error) {
	h, b, err := g.a.Alloc(len(encoded))
	if err != nil {
		return arena.Nil, err
	}
	copy(b, encoded)
	return h, nil
}

// Point retrieves a previously stored point by handle.
func (g *GeometryCache) Point(h arena.Handle) (orb.Point, error) {
	return wkb.DecodePoint(g.a.Bytes(h))
}

// LineString retrieves a previously stored linestring by handle.
func (g *GeometryCache) LineString(h arena.Handle) (orb.LineString, error) {
	return wkb.DecodeLineString(g.a.Bytes(h))
}

// MultiPolygon retrieves a previously stored multipolygon by handle.
func (g *GeometryCache) MultiPolygon(h arena.Handle) (orb.MultiPolygon, error) {
	return wkb.DecodeMultiPolygon(g.a.Bytes(h))
}

// Counts reports the partition's cached geometry counts.
func (g *GeometryCache) Counts(p Provenance) CacheCounts {
	g.mu.Lock()
	defer g.mu.Unlock()
	return CacheCounts{
		Points:        len(g.parts[p].points),
		LineStrings:   len(g.parts[p].lines),
		MultiPolygons: len(g.parts[p].polys),
	}
}

// ClearPartition drops one partition's handle lists.
func (g *GeometryCache) ClearPartition(p Provenance) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.parts[p] = partition{}
}

// Clear drops every partition.
func (g *GeometryCache) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.parts {
		g.parts[i] = partition{}
	}
}
