package domain

import "math"

// Immutable geographic coordinates (latitude, longitude).
type Coordinates struct {
	Lat float64
	Lon float64
}

const earthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b Coordinates) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// OffsetMeters shifts a coordinate by the given north/east displacement.
// Accurate enough for the sub-kilometer jitter used during spawning.
func (c Coordinates) OffsetMeters(north, east float64) Coordinates {
	dLat := north / earthRadiusMeters * 180 / math.Pi
	dLon := east / (earthRadiusMeters * math.Cos(c.Lat*math.Pi/180)) * 180 / math.Pi
	return Coordinates{Lat: c.Lat + dLat, Lon: c.Lon + dLon}
}
