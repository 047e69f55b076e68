package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/foodatrack/internal/models"
)

func TestEstimateDeliveryMinutes(t *testing.T) {
	assert.Equal(t, 30, EstimateDeliveryMinutes(20, 5, 1.0))
	assert.Equal(t, 45, EstimateDeliveryMinutes(20, 5, 1.5))
	assert.Equal(t, 30, EstimateDeliveryMinutes(20, 5, 0))
	assert.Equal(t, 13, EstimateDeliveryMinutes(10, 1.3, 1.0))
}

func TestEstimateBetween(t *testing.T) {
	from := models.Location{Lat: 41.0, Lon: 29.0}
	to := models.Location{Lat: 41.0, Lon: 29.0}
	assert.Equal(t, 15, EstimateBetween(from, to, 15, 1))
}

func TestCalculateActualTimes_OnlyTotal(t *testing.T) {
	placed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := models.NewTracking(placed)
	tr.SetTimestampOnce(models.MilestoneDelivered, placed.Add(25*time.Minute))

	got := CalculateActualTimes(tr)
	assert.Nil(t, got.Preparation)
	assert.Nil(t, got.Delivery)
	require.NotNil(t, got.Total)
	assert.Equal(t, 25, *got.Total)
}

func TestCalculateActualTimes_All(t *testing.T) {
	placed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := models.NewTracking(placed)
	tr.SetTimestampOnce(models.MilestoneConfirmed, placed.Add(2*time.Minute))
	tr.SetTimestampOnce(models.MilestoneReady, placed.Add(20*time.Minute))
	tr.SetTimestampOnce(models.MilestonePickedUp, placed.Add(24*time.Minute))
	tr.SetTimestampOnce(models.MilestoneDelivered, placed.Add(41*time.Minute+40*time.Second))

	got := CalculateActualTimes(tr)
	require.NotNil(t, got.Preparation)
	assert.Equal(t, 18, *got.Preparation)
	require.NotNil(t, got.Delivery)
	assert.Equal(t, 18, *got.Delivery)
	require.NotNil(t, got.Total)
	assert.Equal(t, 42, *got.Total)
}

func TestCalculateActualTimes_Empty(t *testing.T) {
	assert.Equal(t, ActualTimes{}, CalculateActualTimes(&models.Tracking{}))
	assert.Equal(t, ActualTimes{}, CalculateActualTimes(nil))
}
