package factories

import (
	"math"
	"math/rand"

	"github.com/jaswdr/faker"

	"github.com/chrisdamba/foodatrack/internal/models"
)

// Source is the randomness shared by the factories. Two sources built from
// the same seed produce the same fixtures.
type Source struct {
	fake faker.Faker
	rng  *rand.Rand
}

func NewSource(seed int64) *Source {
	return &Source{
		fake: faker.NewWithSeed(rand.NewSource(seed)),
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (s *Source) Rand() *rand.Rand {
	return s.rng
}

// locationNear picks a point in the box of radiusKm around the city centre.
func (s *Source) locationNear(cfg models.SimulationConfig) models.Location {
	latRange := cfg.UrbanRadius / 111.0 // approx. km per degree of latitude
	lonRange := latRange / math.Cos(cfg.CityLat*math.Pi/180.0)
	return models.Location{
		Lat: cfg.CityLat + (s.rng.Float64()*2-1)*latRange,
		Lon: cfg.CityLon + (s.rng.Float64()*2-1)*lonRange,
	}
}

func (s *Source) pick(items []string) string {
	return items[s.rng.Intn(len(items))]
}
