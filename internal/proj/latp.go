package proj

import "math"

// Coordinates are stored in fixed-point form with 7 decimal places,
// matching the precision of the OSM data model.
const Fixed = 1e7

// Latitudes beyond this are clamped to keep the projected latitude finite
const maxLat = 85.06

// Latp converts a WGS84 latitude (degrees) to a projected latitude
// (degrees in Mercator-stretched space). Longitude passes through
// unchanged, so a (latp, lon) pair is a rectangular coordinate suitable
// for tile math.
func Latp(lat float64) float64 {
	if lat > maxLat {
		lat = maxLat
	} else if lat < -maxLat {
		lat = -maxLat
	}
	return 180.0 / math.Pi * math.Log(math.Tan(math.Pi/4.0+lat*math.Pi/360.0))
}

// LatpToLat inverts Latp.
func LatpToLat(latp float64) float64 {
	return 360.0 / math.Pi * (math.Atan(math.Exp(latp*math.Pi/180.0)) - math.Pi/4.0)
}

// ToFixed converts degrees to fixed-point storage form.
func ToFixed(deg float64) int32 {
	if deg >= 0 {
		return int32(deg*Fixed + 0.5)
	}
	return int32(deg*Fixed - 0.5)
}

// ToDegrees converts a fixed-point value back to degrees.
func ToDegrees(v int32) float64 {
	return float64(v) / Fixed
}
