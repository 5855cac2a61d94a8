package loader

import (
	"path/filepath"
	"testing"

	"github.com/paulmach/osm"

	"github.com/wegman-software/tilegen-go/internal/config"
	"github.com/wegman-software/tilegen-go/internal/store"
	"github.com/wegman-software/tilegen-go/internal/tile"
)

func newTestLoader(t *testing.T, cfg *config.Config) (*Loader, *store.Store) {
	t.Helper()
	st, err := store.Open(store.Options{
		Path:     filepath.Join(t.TempDir(), "arena.bin"),
		Capacity: 1 << 20,
	})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(cfg, st, tile.NewIndex(cfg.Zoom)), st
}

func TestIsMultiPolygon(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{"multipolygon", osm.Tags{{Key: "type", Value: "multipolygon"}}, true},
		{"boundary", osm.Tags{{Key: "type", Value: "boundary"}}, true},
		{"route", osm.Tags{{Key: "type", Value: "route"}}, false},
		{"untyped", osm.Tags{{Key: "name", Value: "x"}}, false},
		{"no tags", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isMultiPolygon(tt.tags); got != tt.want {
				t.Errorf("isMultiPolygon() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasFeatureTags(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{"amenity", osm.Tags{{Key: "amenity", Value: "pub"}}, true},
		{"only metadata", osm.Tags{{Key: "created_by", Value: "JOSM"}, {Key: "source", Value: "survey"}}, false},
		{"mixed", osm.Tags{{Key: "source", Value: "survey"}, {Key: "highway", Value: "bus_stop"}}, true},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasFeatureTags(tt.tags); got != tt.want {
				t.Errorf("hasFeatureTags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWayBBox(t *testing.T) {
	cfg := config.DefaultConfig()
	l, st := newTestLoader(t, cfg)

	if err := st.InsertNode(1, store.MakeCoord(10, 20)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := st.InsertNode(2, store.MakeCoord(12, 18)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	bbox, ok := l.wayBBox([]store.NodeID{1, 2})
	if !ok {
		t.Fatal("expected bbox for resolvable way")
	}
	if bbox.MinLat > 10.01 || bbox.MaxLat < 11.99 {
		t.Errorf("lat range [%v, %v] does not cover nodes", bbox.MinLat, bbox.MaxLat)
	}
	if bbox.MinLon > 18.01 || bbox.MaxLon < 19.99 {
		t.Errorf("lon range [%v, %v] does not cover nodes", bbox.MinLon, bbox.MaxLon)
	}

	// A single absent member invalidates the bbox
	if _, ok := l.wayBBox([]store.NodeID{1, 99}); ok {
		t.Error("expected no bbox when a member node is missing")
	}
}

func TestCountersReadableDuringLoad(t *testing.T) {
	cfg := config.DefaultConfig()
	l, _ := newTestLoader(t, cfg)

	// Mirror the progress goroutine: read the counters while the
	// scan path increments them. The race detector flags any
	// non-atomic access here.
	done := make(chan struct{})
	var seen int64
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if n := l.nodes.Load(); n > seen {
				seen = n
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		n := &osm.Node{ID: osm.NodeID(i + 1), Lat: 1, Lon: 2}
		if err := l.loadNode(n); err != nil {
			t.Fatalf("loadNode failed: %v", err)
		}
	}
	<-done

	if got := l.nodes.Load(); got != 1000 {
		t.Errorf("node counter = %d, want 1000", got)
	}
}

func TestInBBoxFilter(t *testing.T) {
	cfg := config.DefaultConfig()
	filter, err := config.ParseBBox("0,0,10,10")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	cfg.BBox = filter
	l, _ := newTestLoader(t, cfg)

	inside := tile.NewBBoxFromPoint(5, 5)
	if !l.inBBox(inside) {
		t.Error("expected bbox inside filter to pass")
	}

	outside := tile.NewBBoxFromPoint(50, 50)
	if l.inBBox(outside) {
		t.Error("expected bbox outside filter to be rejected")
	}

	// Overlap counts as inside
	straddle := tile.NewBBoxFromPoint(9, 9)
	straddle.ExpandPoint(15, 15)
	if !l.inBBox(straddle) {
		t.Error("expected overlapping bbox to pass")
	}
}
