package wkb

import (
	"reflect"
	"testing"

	"github.com/paulmach/orb"
)

func TestPointRoundTrip(t *testing.T) {
	e := NewEncoder(64)
	want := orb.Point{-0.1278, 51.5074}

	b := e.EncodePoint(want)
	got, err := DecodePoint(b)
	if err != nil {
		t.Fatalf("DecodePoint: %v", err)
	}
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMultiPolygonWithHoleRoundTrip(t *testing.T) {
	e := NewEncoder(64)
	want := orb.MultiPolygon{
		{
			orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
			orb.Ring{{2, 2}, {2, 4}, {4, 4}, {4, 2}, {2, 2}},
		},
		{
			orb.Ring{{20, 20}, {30, 20}, {25, 30}, {20, 20}},
		},
	}

	b := e.EncodeMultiPolygon(want)
	got, err := DecodeMultiPolygon(b)
	if err != nil {
		t.Fatalf("DecodeMultiPolygon: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDecodeWrongType(t *testing.T) {
	e := NewEncoder(64)
	b := e.EncodeLineString(orb.LineString{{0, 0}, {1, 1}})

	if _, err := DecodePoint(b); err == nil {
		t.Error("DecodePoint accepted linestring bytes")
	}
}

func TestEncoderBufferReuse(t *testing.T) {
	e := NewEncoder(16)
	first := e.EncodeLineString(orb.LineString{{0, 0}, {1, 1}, {2, 2}})
	n := len(first)

	second := e.EncodeLineString(orb.LineString{{5, 5}, {6, 6}, {7, 7}})
	if len(second) != n {
		t.Fatalf("second encode length %d, want %d", len(second), n)
	}
	ls, err := DecodeLineString(second)
	if err != nil {
		t.Fatalf("DecodeLineString: %v", err)
	}
	if ls[0] != (orb.Point{5, 5}) {
		t.Errorf("buffer not reset between encodes: %v", ls)
	}
}
