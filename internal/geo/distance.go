package geo

import (
	"math"

	"fishingCatchesLogger/models"
)

// EarthRadiusKm is Earth's mean radius for the Haversine calculation.
const EarthRadiusKm = 6371.0088

// HaversineKm calculates the great-circle distance between two points
// on Earth in kilometres using the Haversine formula.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// IsWithinRadius checks if two coordinates are within radiusKm of each other.
func IsWithinRadius(lat1, lng1, lat2, lng2, radiusKm float64) bool {
	return HaversineKm(lat1, lng1, lat2, lng2) <= radiusKm
}

// ValidateCoordinates rejects non-finite or out-of-range positions.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return models.Invalid("latitude", "%v is outside [-90, 90]", lat)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return models.Invalid("longitude", "%v is outside [-180, 180]", lng)
	}
	return nil
}
