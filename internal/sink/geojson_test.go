package sink

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"

	"github.com/wegman-software/tilegen-go/internal/pipeline"
	"github.com/wegman-software/tilegen-go/internal/tile"
)

func testFeatures() []pipeline.Feature {
	return []pipeline.Feature{
		{ID: 1, Kind: pipeline.KindPoint, Geometry: orb.Point{-0.12, 51.5}},
		{ID: 2, Kind: pipeline.KindLine, Geometry: orb.LineString{{0, 0}, {1, 1}}},
		{ID: 3, Kind: pipeline.KindPolygon, Geometry: orb.MultiPolygon{
			{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}},
		}},
	}
}

func TestWriteTile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewGeoJSON(dir, false)
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}

	tl := tile.Tile{Z: 14, X: 8190, Y: 5447}
	if err := s.WriteTile(tl, testFeatures()); err != nil {
		t.Fatalf("WriteTile failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "14", "8190", "5447.geojson"))
	if err != nil {
		t.Fatalf("failed to read tile file: %v", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(fc.Features) != 3 {
		t.Fatalf("got %d features, want 3", len(fc.Features))
	}

	kinds := map[string]int{}
	for _, f := range fc.Features {
		kind, _ := f.PropertyString("kind")
		kinds[kind]++
	}
	for _, want := range []string{"point", "line", "polygon"} {
		if kinds[want] != 1 {
			t.Errorf("kind %q count = %d, want 1", want, kinds[want])
		}
	}
}

func TestWriteTileGzip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewGeoJSON(dir, true)
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}

	tl := tile.Tile{Z: 10, X: 511, Y: 340}
	if err := s.WriteTile(tl, testFeatures()); err != nil {
		t.Fatalf("WriteTile failed: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "10", "511", "340.geojson.gz"))
	if err != nil {
		t.Fatalf("failed to open tile file: %v", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("not valid gzip: %v", err)
	}
	data, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("decompress failed: %v", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(fc.Features) != 3 {
		t.Errorf("got %d features, want 3", len(fc.Features))
	}
}

func TestEmptyTileWritesNothing(t *testing.T) {
	dir := t.TempDir()
	s, err := NewGeoJSON(dir, false)
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}

	if err := s.WriteTile(tile.Tile{Z: 1, X: 0, Y: 0}, nil); err != nil {
		t.Fatalf("WriteTile failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "1")); !os.IsNotExist(err) {
		t.Error("expected no output for empty tile")
	}
}

func TestUnsupportedGeometry(t *testing.T) {
	dir := t.TempDir()
	s, err := NewGeoJSON(dir, false)
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}

	bad := []pipeline.Feature{
		{ID: 1, Kind: pipeline.KindPolygon, Geometry: orb.Polygon{}},
	}
	if err := s.WriteTile(tile.Tile{Z: 1, X: 0, Y: 0}, bad); err == nil {
		t.Fatal("expected error for unsupported geometry type")
	}
}
