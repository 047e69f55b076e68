package tracking

import (
	"math"

	"github.com/chrisdamba/foodatrack/internal/geo"
	"github.com/chrisdamba/foodatrack/internal/models"
)

// MinutesPerKm stands in for a routing estimate when converting distance
// into delivery time.
const MinutesPerKm = 2.0

// EstimateDeliveryMinutes returns round((prep + distance*2) * traffic).
// A non-positive traffic factor counts as free-flowing traffic.
func EstimateDeliveryMinutes(prepMinutes, distanceKm, trafficFactor float64) int {
	if trafficFactor <= 0 {
		trafficFactor = 1.0
	}
	return int(math.Round((prepMinutes + distanceKm*MinutesPerKm) * trafficFactor))
}

// EstimateBetween estimates delivery time for a restaurant at from and a
// customer at to.
func EstimateBetween(from, to models.Location, prepMinutes, trafficFactor float64) int {
	return EstimateDeliveryMinutes(prepMinutes, geo.Distance(from, to), trafficFactor)
}

// ActualTimes holds elapsed minutes between milestones. A field is nil when
// either endpoint has not been recorded.
type ActualTimes struct {
	Preparation *int `json:"preparation,omitempty"`
	Delivery    *int `json:"delivery,omitempty"`
	Total       *int `json:"total,omitempty"`
}

// CalculateActualTimes derives confirmed→ready, pickedUp→delivered and
// orderPlaced→delivered durations from the tracking timestamps.
func CalculateActualTimes(t *models.Tracking) ActualTimes {
	return ActualTimes{
		Preparation: elapsed(t, models.MilestoneConfirmed, models.MilestoneReady),
		Delivery:    elapsed(t, models.MilestonePickedUp, models.MilestoneDelivered),
		Total:       elapsed(t, models.MilestoneOrderPlaced, models.MilestoneDelivered),
	}
}

func elapsed(t *models.Tracking, from, to models.Milestone) *int {
	start, ok := t.Timestamp(from)
	if !ok {
		return nil
	}
	end, ok := t.Timestamp(to)
	if !ok {
		return nil
	}
	minutes := int(math.Round(end.Sub(start).Minutes()))
	return &minutes
}
