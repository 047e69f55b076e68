package geo

import (
	"math"

	"github.com/chrisdamba/foodatrack/internal/models"
)

const (
	// EarthRadiusKm is Earth's radius in kilometres for Haversine calculation.
	EarthRadiusKm = 6371.0
	// UrbanSpeedKmh is the assumed constant courier speed inside the city.
	UrbanSpeedKmh = 30.0
)

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// HaversineKm calculates the great-circle distance between two points
// on Earth in kilometres using the Haversine formula.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)
	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*math.Pow(math.Sin(dLng/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Distance is HaversineKm over two locations.
func Distance(from, to models.Location) float64 {
	return HaversineKm(from.Lat, from.Lon, to.Lat, to.Lon)
}

// ETAMinutes converts a distance into whole minutes of travel at UrbanSpeedKmh.
func ETAMinutes(distanceKm float64) int {
	return int(math.Round(distanceKm / UrbanSpeedKmh * 60))
}

// MoveTowards advances from towards to by at most stepKm. When the
// destination is within reach it is returned as is.
func MoveTowards(from, to models.Location, stepKm float64) models.Location {
	distance := Distance(from, to)
	if distance <= stepKm {
		return to
	}
	ratio := stepKm / distance
	return models.Location{
		Lat: from.Lat + (to.Lat-from.Lat)*ratio,
		Lon: from.Lon + (to.Lon-from.Lon)*ratio,
	}
}

// IsWithinKm checks if two coordinates are within radiusKm of each other.
func IsWithinKm(from, to models.Location, radiusKm float64) bool {
	return Distance(from, to) <= radiusKm
}
