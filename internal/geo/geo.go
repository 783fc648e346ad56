// Package geo computes great-circle distance and forward bearing
// between two WGS-84 coordinates. Pure functions, no state.
package geo

import "math"

// earthRadiusMeters is the mean Earth radius. At the sub-kilometer
// scale this controller cares about, the spherical model is accurate
// to well under a meter.
const earthRadiusMeters = 6371000.0

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Distance returns the great-circle distance between a and b in
// meters, using the haversine formula.
func Distance(a, b Coordinate) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Bearing returns the initial bearing from a to b in degrees,
// normalized to [0, 360). 0 is true north, 90 east.
func Bearing(a, b Coordinate) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLon := radians(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	deg := degrees(math.Atan2(y, x))
	return math.Mod(deg+360, 360)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
