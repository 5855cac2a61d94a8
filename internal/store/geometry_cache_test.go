package store

import (
	"reflect"
	"testing"

	"github.com/paulmach/orb"
)

func TestCacheRoundTrip(t *testing.T) {
	s := newTestStore(t, Options{})

	pt := orb.Point{7.4246, 43.7384}
	ls := orb.LineString{{0, 0}, {1, 1}, {2, 0}}
	mp := orb.MultiPolygon{{
		orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
	}}

	ph, err := s.StorePoint(SourceOSM, pt)
	if err != nil {
		t.Fatalf("StorePoint: %v", err)
	}
	lh, err := s.StoreLineString(SourceOSM, ls)
	if err != nil {
		t.Fatalf("StoreLineString: %v", err)
	}
	mh, err := s.StoreMultiPolygon(SourceShape, mp)
	if err != nil {
		t.Fatalf("StoreMultiPolygon: %v", err)
	}

	if got, err := s.Cache().Point(ph); err != nil || got != pt {
		t.Errorf("Point(h) = %v, %v; want %v", got, err, pt)
	}
	if got, err := s.Cache().LineString(lh); err != nil || !reflect.DeepEqual(got, ls) {
		t.Errorf("LineString(h) = %v, %v; want %v", got, err, ls)
	}
	if got, err := s.Cache().MultiPolygon(mh); err != nil || !reflect.DeepEqual(got, mp) {
		t.Errorf("MultiPolygon(h) = %v, %v; want %v", got, err, mp)
	}
}

func TestCacheProvenancePartitions(t *testing.T) {
	s := newTestStore(t, Options{})

	s.StorePoint(SourceOSM, orb.Point{1, 1})
	s.StorePoint(SourceOSM, orb.Point{2, 2})
	s.StoreLineString(SourceShape, orb.LineString{{0, 0}, {1, 1}})

	osm := s.Cache().Counts(SourceOSM)
	shp := s.Cache().Counts(SourceShape)
	if osm.Points != 2 || osm.LineStrings != 0 {
		t.Errorf("osm counts = %+v", osm)
	}
	if shp.Points != 0 || shp.LineStrings != 1 {
		t.Errorf("shp counts = %+v", shp)
	}

	// Partitions clear independently.
	s.Cache().ClearPartition(SourceOSM)
	if got := s.Cache().Counts(SourceOSM); got.Points != 0 {
		t.Errorf("osm counts after clear = %+v", got)
	}
	if got := s.Cache().Counts(SourceShape); got.LineStrings != 1 {
		t.Errorf("shp counts hit by osm clear = %+v", got)
	}
}

// Handles issued before a growth event must retrieve identical values
// afterwards.
func TestCacheHandlesSurviveGrowth(t *testing.T) {
	s := newTestStore(t, Options{Capacity: 4 << 10})

	pt := orb.Point{-0.1278, 51.5074}
	h, err := s.StorePoint(SourceOSM, pt)
	if err != nil {
		t.Fatal(err)
	}

	ls := make(orb.LineString, 128)
	for i := range ls {
		ls[i] = orb.Point{float64(i), float64(i)}
	}
	startCap := s.Arena().Size()
	for s.Arena().Size() == startCap {
		if _, err := s.StoreLineString(SourceOSM, ls); err != nil {
			t.Fatalf("StoreLineString during fill: %v", err)
		}
	}

	got, err := s.Cache().Point(h)
	if err != nil {
		t.Fatalf("Point after growth: %v", err)
	}
	if got != pt {
		t.Errorf("Point after growth = %v, want %v", got, pt)
	}
}
