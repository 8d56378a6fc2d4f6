// Package distance provides the straight-line distance metric used to
// order tour stops. Road-network distances are deliberately out of
// scope; the planner only needs a consistent comparative measure.
package distance

import (
	"math"

	"tour-planner/internal/models"
)

const earthRadiusKm = 6371.0

// Kilometers returns the great-circle distance between two points
// using the haversine formula.
func Kilometers(a, b models.Coordinates) float64 {
	latA := toRadians(a.Lat)
	latB := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
