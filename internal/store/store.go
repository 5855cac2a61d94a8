package store

import (
	"fmt"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/wegman-software/tilegen-go/internal/arena"
	"github.com/wegman-software/tilegen-go/internal/logger"
)

// DefaultCapacity is the initial size of the backing arena when the
// caller gives no hint.
const DefaultCapacity = 1 << 30

// Options configures a Store at construction. The node strategy cannot
// be changed afterwards.
type Options struct {
	// Path of the backing arena file. Created fresh, deleted on Close.
	Path string
	// Capacity is the initial arena size in bytes. Reserve generously:
	// growth during the concurrent render phase is unsupported.
	Capacity int64
	// DenseNodes selects the flat-array node strategy. Requires a
	// contiguous, pre-known node ID domain sized via NodeHint.
	DenseNodes bool
	// NodeHint and WayHint pre-size the node and way stores.
	NodeHint int
	WayHint  int
}

// Store is the process-wide entity store: node, way and relation stores
// plus the derived-geometry cache, all backed by one growable arena.
//
// The intended shape is two phases: a single writer populates the
// entity stores (growth allowed), then many workers read them and write
// the geometry cache concurrently (pre-size so growth never triggers).
type Store struct {
	arena *arena.Arena
	nodes NodeStore
	ways  *WayStore
	rels  *RelationStore
	cache *GeometryCache
	dense bool
}

// Open creates the backing arena and the stores, applying the reserve
// hints before anything else is allocated.
func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("store: arena path is required")
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}

	a, err := arena.Open(opts.Path, opts.Capacity)
	if err != nil {
		return nil, err
	}

	s := &Store{
		arena: a,
		ways:  NewWayStore(a),
		rels:  NewRelationStore(a),
		cache: NewGeometryCache(a),
		dense: opts.DenseNodes,
	}
	if opts.DenseNodes {
		s.nodes = NewDenseNodes(a)
	} else {
		s.nodes = NewSparseNodes()
	}

	if opts.NodeHint > 0 {
		if err := s.ReserveNodes(opts.NodeHint); err != nil {
			a.Close()
			return nil, err
		}
	}
	s.ways.Reserve(opts.WayHint)
	a.SetMark()

	return s, nil
}

// Arena exposes the backing arena for diagnostics and handle retrieval.
func (s *Store) Arena() *arena.Arena { return s.arena }

// Cache exposes the derived-geometry cache.
func (s *Store) Cache() *GeometryCache { return s.cache }

// ReserveNodes pre-sizes the node store. For the dense strategy this
// fixes the valid ID extent.
func (s *Store) ReserveNodes(n int) error {
	err := s.arena.Perform(func() error {
		return s.nodes.Reserve(n)
	})
	if err != nil {
		return err
	}
	s.arena.SetMark()
	return nil
}

// ReserveWays pre-sizes the way store's key map.
func (s *Store) ReserveWays(n int) error {
	s.ways.Reserve(n)
	return nil
}

// InsertNode stores a coordinate under the node ID.
func (s *Store) InsertNode(id NodeID, c Coord) error {
	return s.arena.Perform(func() error {
		return s.nodes.Insert(id, c)
	})
}

// NodeAt returns the coordinate stored under id.
func (s *Store) NodeAt(id NodeID) (Coord, error) {
	return s.nodes.At(id)
}

// NodeCount reports whether id is present (sparse) or set (dense).
func (s *Store) NodeCount(id NodeID) bool { return s.nodes.Count(id) }

// InsertWay copies the node-ID sequence into the arena, growing it as
// needed, and returns the stored copy's handle.
func (s *Store) InsertWay(id WayID, nodeIDs []NodeID) (arena.Handle, error) {
	var h arena.Handle
	err := s.arena.Perform(func() error {
		var err error
		h, err = s.ways.Insert(id, nodeIDs)
		return err
	})
	return h, err
}

// WayAt returns a view over the way's node-ID sequence.
func (s *Store) WayAt(id WayID) (WayNodes, error) { return s.ways.At(id) }

// WayCount reports whether a way is stored under id.
func (s *Store) WayCount(id WayID) bool { return s.ways.Count(id) }

// InsertRelation copies the outer and inner member sequences into the
// arena as a pair and returns the pair's handle.
func (s *Store) InsertRelation(id WayID, outer, inner []WayID) (arena.Handle, error) {
	var h arena.Handle
	err := s.arena.Perform(func() error {
		var err error
		h, err = s.rels.Insert(id, outer, inner)
		return err
	})
	return h, err
}

// RelationAt returns a view over the relation's member pair.
func (s *Store) RelationAt(id WayID) (RelationWays, error) { return s.rels.At(id) }

// RelationCount reports whether a relation is stored under id.
func (s *Store) RelationCount(id WayID) bool { return s.rels.Count(id) }

// Ways exposes the way store for iteration.
func (s *Store) Ways() *WayStore { return s.ways }

// Relations exposes the relation store for iteration.
func (s *Store) Relations() *RelationStore { return s.rels }

// StorePoint caches a derived point under the given provenance.
func (s *Store) StorePoint(p Provenance, pt orb.Point) (arena.Handle, error) {
	var h arena.Handle
	err := s.arena.Perform(func() error {
		var err error
		h, err = s.cache.StorePoint(p, pt)
		return err
	})
	return h, err
}

// StoreLineString caches a derived linestring under the given
// provenance.
func (s *Store) StoreLineString(p Provenance, ls orb.LineString) (arena.Handle, error) {
	var h arena.Handle
	err := s.arena.Perform(func() error {
		var err error
		h, err = s.cache.StoreLineString(p, ls)
		return err
	})
	return h, err
}

// StoreMultiPolygon caches a derived multipolygon under the given
// provenance.
func (s *Store) StoreMultiPolygon(p Provenance, mp orb.MultiPolygon) (arena.Handle, error) {
	var h arena.Handle
	err := s.arena.Perform(func() error {
		var err error
		h, err = s.cache.StoreMultiPolygon(p, mp)
		return err
	})
	return h, err
}

// Stats is a snapshot of the store's cardinalities and arena usage.
type Stats struct {
	Nodes         int
	Ways          int
	Relations     int
	OSM           CacheCounts
	Shape         CacheCounts
	ArenaCapacity int64
	ArenaUsed     int64
}

// Stats returns current counts across every store.
func (s *Store) Stats() Stats {
	return Stats{
		Nodes:         s.nodes.Size(),
		Ways:          s.ways.Size(),
		Relations:     s.rels.Size(),
		OSM:           s.cache.Counts(SourceOSM),
		Shape:         s.cache.Counts(SourceShape),
		ArenaCapacity: s.arena.Size(),
		ArenaUsed:     s.arena.Used(),
	}
}

// ReportSize logs the current counts of entities and cached geometries
// per provenance, plus the arena's allocated capacity.
func (s *Store) ReportSize() {
	st := s.Stats()
	logger.Get().Info("Store contents",
		zap.Int("nodes", st.Nodes),
		zap.Int("ways", st.Ways),
		zap.Int("relations", st.Relations),
		zap.Int("osm_points", st.OSM.Points),
		zap.Int("osm_lines", st.OSM.LineStrings),
		zap.Int("osm_polygons", st.OSM.MultiPolygons),
		zap.Int("shp_points", st.Shape.Points),
		zap.Int("shp_lines", st.Shape.LineStrings),
		zap.Int("shp_polygons", st.Shape.MultiPolygons),
		zap.Int64("arena_capacity", st.ArenaCapacity),
		zap.Int64("arena_used", st.ArenaUsed))
}

// Clear empties every store at once for an independent processing pass.
// The arena rewinds to the post-reserve watermark, so the dense node
// extent survives (entries reset to the sentinel) and already-grown
// capacity is retained.
func (s *Store) Clear() {
	s.ways.Clear()
	s.rels.Clear()
	s.cache.Clear()
	s.arena.Reset()
	s.nodes.Clear()
}

// Close tears the store down and deletes the backing arena file.
func (s *Store) Close() error {
	return s.arena.Close()
}
