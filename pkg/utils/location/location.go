// Package location holds coordinate math and GeoJSON value types.
package location

import (
	"math"

	"inmuebles_backend/pkg/errs"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points given in
// degrees, using the Haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// RoundKm rounds a distance to two decimals for display.
func RoundKm(km float64) float64 {
	return math.Round(km*100) / 100
}

// ValidateCoordinates checks latitude and longitude ranges.
func ValidateCoordinates(lat, lon float64) *errs.ValidationError {
	v := &errs.ValidationError{}
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		v.Add("latitude", "must be between -90 and 90")
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		v.Add("longitude", "must be between -180 and 180")
	}
	return v
}
