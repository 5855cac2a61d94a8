// Package sink writes rendered tiles to disk as GeoJSON feature
// collections, one file per tile in z/x/y layout.
package sink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"
	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/wegman-software/tilegen-go/internal/logger"
	"github.com/wegman-software/tilegen-go/internal/pipeline"
	"github.com/wegman-software/tilegen-go/internal/tile"
)

// GeoJSON writes one FeatureCollection per tile under the output
// directory. Safe for concurrent WriteTile calls: every tile owns its
// own file and directory creation is idempotent.
type GeoJSON struct {
	dir      string
	compress bool

	tilesWritten atomic.Int64
	bytesWritten atomic.Int64
}

// NewGeoJSON creates the sink and its output directory
func NewGeoJSON(dir string, compress bool) (*GeoJSON, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &GeoJSON{dir: dir, compress: compress}, nil
}

// WriteTile writes the tile's features as z/x/y.geojson, gzipped when
// compression is on. Empty tiles produce no file.
func (s *GeoJSON) WriteTile(t tile.Tile, features []pipeline.Feature) error {
	if len(features) == 0 {
		return nil
	}

	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		gf, err := toFeature(f)
		if err != nil {
			return err
		}
		fc.AddFeature(gf)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal tile %s: %w", t, err)
	}

	tileDir := filepath.Join(s.dir, strconv.Itoa(t.Z), strconv.Itoa(t.X))
	if err := os.MkdirAll(tileDir, 0755); err != nil {
		return err
	}

	name := strconv.Itoa(t.Y) + ".geojson"
	if s.compress {
		name += ".gz"
	}
	path := filepath.Join(tileDir, name)

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	var w io.Writer = f
	var gz *gzip.Writer
	if s.compress {
		gz = gzip.NewWriter(f)
		w = gz
	}

	n, err := w.Write(data)
	if err == nil && gz != nil {
		err = gz.Close()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write tile %s: %w", t, err)
	}

	s.tilesWritten.Add(1)
	s.bytesWritten.Add(int64(n))
	return nil
}

// Close logs the final write totals
func (s *GeoJSON) Close() error {
	logger.Get().Info("Tile output written",
		zap.String("dir", s.dir),
		zap.Int64("tiles", s.tilesWritten.Load()),
		zap.Int64("bytes", s.bytesWritten.Load()),
		zap.Bool("gzip", s.compress))
	return nil
}

// toFeature converts a rendered feature into its GeoJSON form
func toFeature(f pipeline.Feature) (*geojson.Feature, error) {
	var gf *geojson.Feature

	switch g := f.Geometry.(type) {
	case orb.Point:
		gf = geojson.NewPointFeature([]float64{g[0], g[1]})
	case orb.LineString:
		coords := make([][]float64, len(g))
		for i, p := range g {
			coords[i] = []float64{p[0], p[1]}
		}
		gf = geojson.NewLineStringFeature(coords)
	case orb.MultiPolygon:
		polys := make([][][][]float64, len(g))
		for i, poly := range g {
			rings := make([][][]float64, len(poly))
			for j, ring := range poly {
				pts := make([][]float64, len(ring))
				for k, p := range ring {
					pts[k] = []float64{p[0], p[1]}
				}
				rings[j] = pts
			}
			polys[i] = rings
		}
		gf = geojson.NewMultiPolygonFeature(polys...)
	default:
		return nil, fmt.Errorf("unsupported geometry type %T", f.Geometry)
	}

	gf.ID = f.ID
	gf.SetProperty("kind", f.Kind.String())
	return gf, nil
}
