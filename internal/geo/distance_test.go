package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chrisdamba/foodatrack/internal/models"
)

func TestHaversineKm_ZeroDistance(t *testing.T) {
	d := HaversineKm(41.0082, 28.9784, 41.0082, 28.9784)
	assert.InDelta(t, 0, d, 1e-9)
}

func TestHaversineKm_OneDegreeLatitude(t *testing.T) {
	d := HaversineKm(41.0, 28.9784, 42.0, 28.9784)
	assert.InEpsilon(t, 111.0, d, 0.01)
}

func TestHaversineKm_Symmetric(t *testing.T) {
	a := HaversineKm(41.0082, 28.9784, 40.9923, 29.0244)
	b := HaversineKm(40.9923, 29.0244, 41.0082, 28.9784)
	assert.InDelta(t, a, b, 1e-9)
}

func TestETAMinutes(t *testing.T) {
	assert.Equal(t, 0, ETAMinutes(0))
	assert.Equal(t, 10, ETAMinutes(5))
	assert.Equal(t, 30, ETAMinutes(15))
	// 1.26 km at 30 km/h is 2.52 minutes
	assert.Equal(t, 3, ETAMinutes(1.26))
}

func TestMoveTowards(t *testing.T) {
	from := models.Location{Lat: 41.0, Lon: 29.0}
	to := models.Location{Lat: 41.1, Lon: 29.0}

	next := MoveTowards(from, to, 1)
	assert.InDelta(t, 1.0, Distance(from, next), 0.01)
	assert.Less(t, Distance(next, to), Distance(from, to))

	assert.Equal(t, to, MoveTowards(from, to, 50))
}

func TestIsWithinKm(t *testing.T) {
	center := models.Location{Lat: 41.0082, Lon: 28.9784}
	assert.True(t, IsWithinKm(center, models.Location{Lat: 41.0092, Lon: 28.9784}, 0.5))
	assert.False(t, IsWithinKm(center, models.Location{Lat: 41.1082, Lon: 28.9784}, 5))
}
