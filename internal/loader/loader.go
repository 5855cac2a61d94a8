package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"

	"github.com/wegman-software/tilegen-go/internal/config"
	"github.com/wegman-software/tilegen-go/internal/logger"
	"github.com/wegman-software/tilegen-go/internal/proj"
	"github.com/wegman-software/tilegen-go/internal/store"
	"github.com/wegman-software/tilegen-go/internal/tile"
)

// Stats holds the element counts of a completed load
type Stats struct {
	Nodes     int64
	Ways      int64
	Relations int64
	Duration  time.Duration
}

// Loader reads an OSM PBF extract into the store and bins every
// renderable element into the tile index. The scan is single pass:
// PBF files order nodes before ways before relations, so way and
// relation members are resolvable as soon as they are seen.
type Loader struct {
	cfg   *config.Config
	st    *store.Store
	index *tile.Index

	// Read by the progress goroutine while the scan loop increments
	nodes     atomic.Int64
	ways      atomic.Int64
	relations atomic.Int64
}

// New creates a loader writing into st and idx
func New(cfg *config.Config, st *store.Store, idx *tile.Index) *Loader {
	return &Loader{cfg: cfg, st: st, index: idx}
}

// Run executes the load. Respects ctx cancellation between blocks.
func (l *Loader) Run(ctx context.Context) (*Stats, error) {
	log := logger.Get()
	start := time.Now()

	f, err := os.Open(l.cfg.InputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	scanner := osmpbf.New(ctx, f, runtime.NumCPU())
	defer scanner.Close()

	// Progress ticker
	tickCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
				log.Info("Load progress",
					zap.Int64("nodes", l.nodes.Load()),
					zap.Int64("ways", l.ways.Load()),
					zap.Int64("relations", l.relations.Load()))
			}
		}
	}()

	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			if err := l.loadNode(o); err != nil {
				return nil, err
			}
		case *osm.Way:
			if err := l.loadWay(o); err != nil {
				return nil, err
			}
		case *osm.Relation:
			if err := l.loadRelation(o); err != nil {
				return nil, err
			}
		}
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("pbf scan failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &Stats{
		Nodes:     l.nodes.Load(),
		Ways:      l.ways.Load(),
		Relations: l.relations.Load(),
		Duration:  time.Since(start),
	}
	log.Info("Load complete",
		zap.Int64("nodes", stats.Nodes),
		zap.Int64("ways", stats.Ways),
		zap.Int64("relations", stats.Relations),
		zap.Duration("duration", stats.Duration.Round(time.Second)))
	return stats, nil
}

func (l *Loader) loadNode(n *osm.Node) error {
	if err := l.st.InsertNode(store.NodeID(n.ID), store.MakeCoord(n.Lat, n.Lon)); err != nil {
		return err
	}
	l.nodes.Add(1)

	// Only tagged nodes become point features
	if hasFeatureTags(n.Tags) && l.cfg.BBox.Contains(n.Lat, n.Lon) {
		l.index.AddNode(n.Lat, n.Lon, int64(n.ID))
	}
	return nil
}

func (l *Loader) loadWay(w *osm.Way) error {
	ids := make([]store.NodeID, len(w.Nodes))
	for i, ref := range w.Nodes {
		ids[i] = store.NodeID(ref.ID)
	}
	if _, err := l.st.InsertWay(store.WayID(w.ID), ids); err != nil {
		return err
	}
	l.ways.Add(1)

	if bbox, ok := l.wayBBox(ids); ok && l.inBBox(bbox) {
		l.index.AddWay(bbox, int64(w.ID))
	}
	return nil
}

func (l *Loader) loadRelation(r *osm.Relation) error {
	if !isMultiPolygon(r.Tags) {
		return nil
	}

	var outer, inner []store.WayID
	for _, m := range r.Members {
		if m.Type != osm.TypeWay {
			continue
		}
		// Untyped roles count as outer, matching common mapping practice
		switch m.Role {
		case "inner":
			inner = append(inner, store.WayID(m.Ref))
		default:
			outer = append(outer, store.WayID(m.Ref))
		}
	}
	if len(outer) == 0 && len(inner) == 0 {
		return nil
	}

	if _, err := l.st.InsertRelation(store.WayID(r.ID), outer, inner); err != nil {
		return err
	}
	l.relations.Add(1)

	if bbox, ok := l.relationBBox(outer); ok && l.inBBox(bbox) {
		l.index.AddRelation(bbox, int64(r.ID))
	}
	return nil
}

// wayBBox computes the bounding box of a way from stored node
// coordinates. Returns false when any member node is absent, which
// happens at the cut edge of a clipped extract.
func (l *Loader) wayBBox(ids []store.NodeID) (tile.BBox, bool) {
	var bbox tile.BBox
	first := true
	for _, id := range ids {
		c, err := l.st.NodeAt(id)
		if err != nil {
			return tile.BBox{}, false
		}
		lat, lon := c.Lat(), proj.ToDegrees(c.Lon)
		if first {
			bbox = tile.NewBBoxFromPoint(lat, lon)
			first = false
		} else {
			bbox.ExpandPoint(lat, lon)
		}
	}
	return bbox, !first
}

func (l *Loader) relationBBox(outer []store.WayID) (tile.BBox, bool) {
	var bbox tile.BBox
	any := false
	for _, id := range outer {
		way, err := l.st.WayAt(id)
		if err != nil {
			continue
		}
		wb, ok := l.wayBBox(way.IDs())
		if !ok {
			continue
		}
		if !any {
			bbox = wb
			any = true
		} else {
			bbox.ExpandPoint(wb.MinLat, wb.MinLon)
			bbox.ExpandPoint(wb.MaxLat, wb.MaxLon)
		}
	}
	return bbox, any
}

func (l *Loader) inBBox(b tile.BBox) bool {
	if !l.cfg.BBox.IsSet {
		return true
	}
	f := l.cfg.BBox
	return b.MinLon <= f.MaxLon && b.MaxLon >= f.MinLon &&
		b.MinLat <= f.MaxLat && b.MaxLat >= f.MinLat
}

// isMultiPolygon reports whether a relation carries area semantics
func isMultiPolygon(tags osm.Tags) bool {
	for _, tag := range tags {
		if tag.Key == "type" {
			return tag.Value == "multipolygon" || tag.Value == "boundary"
		}
	}
	return false
}

// hasFeatureTags checks if tags contain more than editing metadata
func hasFeatureTags(tags osm.Tags) bool {
	meta := map[string]bool{
		"created_by": true,
		"source":     true,
		"note":       true,
		"fixme":      true,
		"FIXME":      true,
	}

	for _, tag := range tags {
		if !meta[tag.Key] {
			return true
		}
	}
	return false
}
