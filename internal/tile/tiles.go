// Package tile provides slippy-map tile arithmetic and the per-tile
// index of store entities that the render workers drain.
package tile

import (
	"fmt"
	"math"
)

// Tile is a map tile in the standard Web Mercator scheme.
type Tile struct {
	Z int
	X int
	Y int
}

// String returns the tile in z/x/y form.
func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// BBox is a geographic bounding box.
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// NewBBoxFromPoint creates a degenerate bbox around one point.
func NewBBoxFromPoint(lat, lon float64) BBox {
	return BBox{MinLon: lon, MaxLon: lon, MinLat: lat, MaxLat: lat}
}

// ExpandPoint grows the bbox to include a point.
func (b *BBox) ExpandPoint(lat, lon float64) {
	if lon < b.MinLon {
		b.MinLon = lon
	}
	if lon > b.MaxLon {
		b.MaxLon = lon
	}
	if lat < b.MinLat {
		b.MinLat = lat
	}
	if lat > b.MaxLat {
		b.MaxLat = lat
	}
}

// IsValid checks the bbox for sane coordinate ranges.
func (b BBox) IsValid() bool {
	return b.MinLon <= b.MaxLon && b.MinLat <= b.MaxLat &&
		b.MinLon >= -180 && b.MaxLon <= 180 &&
		b.MinLat >= -90 && b.MaxLat <= 90
}

// Web Mercator latitude bounds
const (
	MaxMercatorLat = 85.0511287798
	MinMercatorLat = -85.0511287798
)

// LatLonToTile converts a latitude/longitude to the containing tile at
// the given zoom level.
func LatLonToTile(lat, lon float64, zoom int) Tile {
	if lat > MaxMercatorLat {
		lat = MaxMercatorLat
	}
	if lat < MinMercatorLat {
		lat = MinMercatorLat
	}
	if lon < -180 {
		lon = -180
	}
	if lon > 180 {
		lon = 180
	}

	n := float64(int(1) << zoom)

	x := int((lon + 180.0) / 360.0 * n)
	if x >= int(n) {
		x = int(n) - 1
	}

	latRad := lat * math.Pi / 180.0
	y := int((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n)
	if y >= int(n) {
		y = int(n) - 1
	}
	if y < 0 {
		y = 0
	}

	return Tile{Z: zoom, X: x, Y: y}
}

// Range is a rectangle of tiles at one zoom level.
type Range struct {
	Z          int
	MinX, MaxX int
	MinY, MaxY int
}

// BBoxToRange converts a bounding box to the covering tile range.
// Y grows southward, so the north edge has the smaller Y.
func BBoxToRange(bbox BBox, zoom int) Range {
	topLeft := LatLonToTile(bbox.MaxLat, bbox.MinLon, zoom)
	bottomRight := LatLonToTile(bbox.MinLat, bbox.MaxLon, zoom)

	return Range{
		Z:    zoom,
		MinX: topLeft.X,
		MaxX: bottomRight.X,
		MinY: topLeft.Y,
		MaxY: bottomRight.Y,
	}
}

// Count returns the number of tiles in the range.
func (r Range) Count() int {
	return (r.MaxX - r.MinX + 1) * (r.MaxY - r.MinY + 1)
}

// Tiles enumerates the range.
func (r Range) Tiles() []Tile {
	tiles := make([]Tile, 0, r.Count())
	for x := r.MinX; x <= r.MaxX; x++ {
		for y := r.MinY; y <= r.MaxY; y++ {
			tiles = append(tiles, Tile{Z: r.Z, X: x, Y: y})
		}
	}
	return tiles
}
