package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/tilegen-go/internal/config"
	"github.com/wegman-software/tilegen-go/internal/logger"
	"github.com/wegman-software/tilegen-go/internal/metrics"
	"github.com/wegman-software/tilegen-go/internal/store"
	"github.com/wegman-software/tilegen-go/internal/tile"
)

// Coordinator fans the tile index out over a worker pool, rendering
// each tile's features from the store and handing them to the sink.
//
// The store must be fully loaded and pre-sized before Run: workers
// write the geometry cache concurrently and arena growth is not safe
// under concurrent readers.
type Coordinator struct {
	cfg   *config.Config
	st    *store.Store
	index *tile.Index
	sink  Sink

	tilesDone atomic.Int64
	points    atomic.Int64
	lines     atomic.Int64
	polygons  atomic.Int64
	skipped   atomic.Int64
}

// NewCoordinator creates a render coordinator
func NewCoordinator(cfg *config.Config, st *store.Store, idx *tile.Index, sink Sink) *Coordinator {
	return &Coordinator{cfg: cfg, st: st, index: idx, sink: sink}
}

// Run renders every indexed tile. Returns on the first render error or
// when ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) (*RenderStats, error) {
	log := logger.Get()
	start := time.Now()

	// Background system metrics if configured
	if c.cfg.MetricsInterval > 0 {
		metricsCtx, cancelMetrics := context.WithCancel(ctx)
		defer cancelMetrics()

		collector := metrics.NewCollector(c.cfg.MetricsInterval, logger.Named("metrics"))
		go collector.Start(metricsCtx)
	}

	tiles := c.index.Tiles()
	tracker := NewProgressTracker(int64(len(tiles)))
	log.Info("Rendering tiles",
		zap.Int("tiles", len(tiles)),
		zap.Int("zoom", c.cfg.Zoom),
		zap.Int("workers", c.cfg.Workers))

	progressCtx, cancelProgress := context.WithCancel(ctx)
	defer cancelProgress()
	go c.reportProgress(progressCtx, tracker)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)

	for _, t := range tiles {
		t := t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := c.renderTile(t); err != nil {
				return fmt.Errorf("tile %s: %w", t, err)
			}
			c.tilesDone.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := c.sink.Close(); err != nil {
		return nil, fmt.Errorf("sink close failed: %w", err)
	}

	stats := &RenderStats{
		TilesRendered:    c.tilesDone.Load(),
		Points:           c.points.Load(),
		Lines:            c.lines.Load(),
		Polygons:         c.polygons.Load(),
		SkippedRelations: c.skipped.Load(),
		Duration:         time.Since(start),
	}

	log.Info("Render complete",
		zap.Int64("tiles", stats.TilesRendered),
		zap.Int64("points", stats.Points),
		zap.Int64("lines", stats.Lines),
		zap.Int64("polygons", stats.Polygons),
		zap.Int64("skipped_relations", stats.SkippedRelations),
		zap.Duration("duration", stats.Duration.Round(time.Second)))
	c.st.ReportSize()

	return stats, nil
}

// renderTile derives the geometry for every element binned into t,
// routes it through the geometry cache, and writes the tile.
func (c *Coordinator) renderTile(t tile.Tile) error {
	entry := c.index.Entry(t)
	if entry == nil {
		return nil
	}

	features := make([]Feature, 0, len(entry.Nodes)+len(entry.Ways)+len(entry.Relations))

	for _, id := range entry.Nodes {
		f, err := c.renderNode(store.NodeID(id))
		if err != nil {
			return err
		}
		features = append(features, f)
		c.points.Add(1)
	}

	for _, id := range entry.Ways {
		f, err := c.renderWay(store.WayID(id))
		if err != nil {
			return err
		}
		features = append(features, f)
	}

	for _, id := range entry.Relations {
		f, ok, err := c.renderRelation(store.WayID(id))
		if err != nil {
			return err
		}
		if !ok {
			c.skipped.Add(1)
			continue
		}
		features = append(features, f)
		c.polygons.Add(1)
	}

	return c.sink.WriteTile(t, features)
}

func (c *Coordinator) renderNode(id store.NodeID) (Feature, error) {
	coord, err := c.st.NodeAt(id)
	if err != nil {
		return Feature{}, err
	}
	h, err := c.st.StorePoint(store.SourceOSM, coord.Point())
	if err != nil {
		return Feature{}, err
	}
	pt, err := c.st.Cache().Point(h)
	if err != nil {
		return Feature{}, err
	}
	return Feature{ID: int64(id), Kind: KindPoint, Geometry: pt}, nil
}

func (c *Coordinator) renderWay(id store.WayID) (Feature, error) {
	way, err := c.st.WayAt(id)
	if err != nil {
		return Feature{}, err
	}

	// Closed rings of at least three distinct points become polygons
	if way.Closed() && way.Len() >= 4 {
		poly, err := c.st.WayPolygon(id)
		if err != nil {
			return Feature{}, err
		}
		h, err := c.st.StoreMultiPolygon(store.SourceOSM, orb.MultiPolygon{poly})
		if err != nil {
			return Feature{}, err
		}
		mp, err := c.st.Cache().MultiPolygon(h)
		if err != nil {
			return Feature{}, err
		}
		c.polygons.Add(1)
		return Feature{ID: int64(id), Kind: KindPolygon, Geometry: mp}, nil
	}

	ls, err := c.st.WayLineString(id)
	if err != nil {
		return Feature{}, err
	}
	h, err := c.st.StoreLineString(store.SourceOSM, ls)
	if err != nil {
		return Feature{}, err
	}
	decoded, err := c.st.Cache().LineString(h)
	if err != nil {
		return Feature{}, err
	}
	c.lines.Add(1)
	return Feature{ID: int64(id), Kind: KindLine, Geometry: decoded}, nil
}

// renderRelation assembles a relation's multipolygon. Member ways that
// were dropped from the extract are skipped rather than fatal; node
// lookup failures still abort the run.
func (c *Coordinator) renderRelation(id store.WayID) (Feature, bool, error) {
	rel, err := c.st.RelationAt(id)
	if err != nil {
		var nf *store.NotFoundError
		if errors.As(err, &nf) {
			return Feature{}, false, nil
		}
		return Feature{}, false, err
	}

	mp, err := c.st.RelationMultiPolygon(rel.Outer().IDs(), rel.Inner().IDs(), store.MissingSkip)
	if err != nil {
		return Feature{}, false, err
	}
	if len(mp) == 0 {
		return Feature{}, false, nil
	}

	h, err := c.st.StoreMultiPolygon(store.SourceOSM, mp)
	if err != nil {
		return Feature{}, false, err
	}
	decoded, err := c.st.Cache().MultiPolygon(h)
	if err != nil {
		return Feature{}, false, err
	}
	return Feature{ID: int64(id), Kind: KindPolygon, Geometry: decoded}, true, nil
}

// reportProgress periodically logs render progress
func (c *Coordinator) reportProgress(ctx context.Context, tracker *ProgressTracker) {
	log := logger.Get()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p := tracker.Calculate(c.tilesDone.Load())
			log.Info("Render progress",
				zap.Int64("tiles", p.Done),
				zap.Int64("total", p.Total),
				zap.String("pct", fmt.Sprintf("%.1f%%", p.Percentage)),
				zap.String("rate", FormatThroughput(p.Throughput)),
				zap.String("eta", FormatETA(p.ETA)))
		}
	}
}
