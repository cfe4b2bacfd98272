package utils

import (
	"math"
)

// Point represents a geographical point
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// HaversineMiles calculates the great-circle distance between two points
// in miles.
func HaversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusMiles = 3958.8

	lat1Rad := lat1 * math.Pi / 180
	lng1Rad := lng1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lng2Rad := lng2 * math.Pi / 180

	dlat := lat2Rad - lat1Rad
	dlng := lng2Rad - lng1Rad

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dlng/2)*math.Sin(dlng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}

// EstimateTripMinutes estimates travel time for a trip of the given length.
// Intercity routes here are mostly highway, so the default speed is 60mph.
func EstimateTripMinutes(distanceMiles, averageSpeedMph float64) int {
	if averageSpeedMph <= 0 {
		averageSpeedMph = 60
	}

	minutes := int(distanceMiles / averageSpeedMph * 60)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// IsWithinRadiusMiles checks if a point lies within radiusMiles of a center.
// Used to sanity-check pickup flexibility against the ride's extra-miles
// setting.
func IsWithinRadiusMiles(centerLat, centerLng, pointLat, pointLng, radiusMiles float64) bool {
	return HaversineMiles(centerLat, centerLng, pointLat, pointLng) <= radiusMiles
}
