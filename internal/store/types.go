// Package store keeps nodes, ways and relations resident for the
// duration of a run, backed by a single growable mapped arena, and
// caches the geometry derived from them during tile rendering.
package store

import (
	"github.com/paulmach/orb"

	"github.com/wegman-software/tilegen-go/internal/proj"
)

// NodeID identifies a point entity.
type NodeID int64

// WayID identifies a path entity. Relations are keyed in the same
// integer domain (a pseudo-ID space kept in a separate map).
type WayID int64

// Coord is a projected-latitude/longitude pair in 1e-7 fixed point.
// The zero Coord doubles as the unset sentinel of the dense node store.
type Coord struct {
	Latp int32
	Lon  int32
}

// MakeCoord projects a WGS84 lat/lon into storage form.
func MakeCoord(lat, lon float64) Coord {
	return Coord{
		Latp: proj.ToFixed(proj.Latp(lat)),
		Lon:  proj.ToFixed(lon),
	}
}

// Point returns the coordinate as an orb point in (lon, latp) degree
// space. All derived geometry lives in this rectangular space.
func (c Coord) Point() orb.Point {
	return orb.Point{proj.ToDegrees(c.Lon), proj.ToDegrees(c.Latp)}
}

// Lat returns the unprojected WGS84 latitude.
func (c Coord) Lat() float64 {
	return proj.LatpToLat(proj.ToDegrees(c.Latp))
}

// IsZero reports whether the coordinate is the unset sentinel.
func (c Coord) IsZero() bool {
	return c.Latp == 0 && c.Lon == 0
}
