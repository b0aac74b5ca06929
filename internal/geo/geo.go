// Package geo provides coordinates and great-circle distance.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by DistanceMeters
const EarthRadiusMeters = 6_371_000.0

// Coordinate is a WGS84 latitude/longitude pair in degrees
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinate returns a Coordinate after checking both ranges
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	c := Coordinate{Latitude: lat, Longitude: lng}
	if !c.Valid() {
		return Coordinate{}, fmt.Errorf("coordinate out of range: lat=%v lng=%v", lat, lng)
	}
	return c, nil
}

// Valid reports whether latitude is in [-90,90] and longitude in [-180,180]
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// DistanceMeters returns the haversine great-circle distance between a and b
func DistanceMeters(a, b Coordinate) float64 {
	if a == b {
		return 0
	}
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLng := toRadians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	// rounding can push h slightly above 1 for antipodal points
	h = math.Min(1, h)

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
