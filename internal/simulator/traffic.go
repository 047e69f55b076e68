package simulator

import (
	"math/rand"
	"time"

	"github.com/chrisdamba/foodatrack/internal/models"
)

// trafficByHour builds one condition per UTC hour of the day of start.
func trafficByHour(start time.Time, centre models.Location, rng *rand.Rand) []models.TrafficCondition {
	day := start.UTC().Truncate(24 * time.Hour)
	conditions := make([]models.TrafficCondition, 0, 24)
	for hour := 0; hour < 24; hour++ {
		conditions = append(conditions, models.TrafficCondition{
			Time:     day.Add(time.Duration(hour) * time.Hour),
			Location: centre,
			Density:  trafficDensity(hour, rng),
		})
	}
	return conditions
}

func trafficDensity(hour int, rng *rand.Rand) float64 {
	between := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }
	switch {
	case hour >= 7 && hour <= 9, hour >= 16 && hour <= 18:
		return between(0.7, 1.0)
	case hour >= 22 || hour <= 5:
		return between(0, 0.3)
	default:
		return between(0.3, 0.7)
	}
}

func (s *Simulator) trafficAt(t time.Time) models.TrafficCondition {
	return s.traffic[t.UTC().Hour()]
}
