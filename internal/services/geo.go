package services

import "math"

const earthRadiusMeters = 6371000.0

// Coordinate is a WGS84 point
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DistanceMeters calculates the great-circle distance between two GPS
// coordinates in meters using the haversine formula
func DistanceMeters(a, b Coordinate) float64 {
	lat1Rad := a.Latitude * math.Pi / 180
	lat2Rad := b.Latitude * math.Pi / 180
	deltaLat := (b.Latitude - a.Latitude) * math.Pi / 180
	deltaLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// WithinRadius reports whether point lies inside (or on) the circular
// geofence around center
func WithinRadius(point, center Coordinate, radiusMeters float64) bool {
	return DistanceMeters(point, center) <= radiusMeters
}
