// Package geo provides the great-circle distance helpers used to decide
// whether a recipient is close enough to an alert.
package geo

import (
	"math"

	"dispatch-service/internal/models"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceKm returns the haversine distance between a and b. NaN inputs
// propagate as NaN.
func DistanceKm(a, b models.Location) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h a hair above 1 for antipodal points
	h = math.Min(h, 1)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// Within reports whether b lies within radiusKm of a, boundary inclusive.
// Any NaN operand yields false.
func Within(a, b models.Location, radiusKm float64) bool {
	d := DistanceKm(a, b)
	if math.IsNaN(d) || math.IsNaN(radiusKm) {
		return false
	}
	return d <= radiusKm
}

// Valid reports whether loc holds finite, in-range coordinates.
func Valid(loc models.Location) bool {
	if math.IsNaN(loc.Latitude) || math.IsNaN(loc.Longitude) ||
		math.IsInf(loc.Latitude, 0) || math.IsInf(loc.Longitude, 0) {
		return false
	}
	return loc.Latitude >= -90 && loc.Latitude <= 90 &&
		loc.Longitude >= -180 && loc.Longitude <= 180
}
