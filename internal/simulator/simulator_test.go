package simulator

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/repositories"
	"github.com/chrisdamba/foodatrack/internal/testutil"
	"github.com/chrisdamba/foodatrack/internal/tracking"
)

func testConfig() models.SimulationConfig {
	return models.SimulationConfig{
		Seed:             11,
		Orders:           6,
		Drivers:          2,
		Restaurants:      2,
		CityLat:          41.0082,
		CityLon:          28.9784,
		UrbanRadius:      2,
		PartnerMoveSpeed: 0.5,
		MinPrepTime:      10,
		MaxPrepTime:      20,
	}
}

type harness struct {
	repo repositories.OrderRepository
	sim  *Simulator
}

func newHarness(t *testing.T, cfg models.SimulationConfig, opts ...Option) *harness {
	t.Helper()
	repo := testutil.NewOrderRepository(t)
	clock := NewClock(time.Date(2026, 4, 2, 11, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracker := tracking.NewTracker(repo, nil, logger, tracking.WithClock(clock.Now))
	return &harness{repo: repo, sim: NewSimulator(cfg, tracker, clock, logger, opts...)}
}

func (h *harness) orders(t *testing.T) []*models.Order {
	t.Helper()
	orders, err := h.repo.List(context.Background(), repositories.Query{Ascending: true})
	require.NoError(t, err)
	return orders
}

func TestSimulator_DeliversEveryOrder(t *testing.T) {
	finished := 0
	h := newHarness(t, testConfig(), WithProgress(func() { finished++ }))

	stats, err := h.sim.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Placed)
	assert.Equal(t, 6, stats.Delivered)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, 6, finished)
	assert.Greater(t, stats.LocationUpdates, 0)

	want := []models.OrderStatus{
		models.OrderStatusConfirmed,
		models.OrderStatusPreparing,
		models.OrderStatusReady,
		models.OrderStatusAssigned,
		models.OrderStatusPickedUp,
		models.OrderStatusDelivering,
		models.OrderStatusArrived,
		models.OrderStatusDelivered,
	}
	orders := h.orders(t)
	require.Len(t, orders, 6)
	for _, o := range orders {
		assert.Equal(t, models.OrderStatusDelivered, o.Status)
		var got []models.OrderStatus
		for _, u := range o.Tracking.StatusUpdates {
			got = append(got, u.Status)
		}
		assert.Equal(t, want, got, o.ID)
		assert.GreaterOrEqual(t, len(o.Tracking.LocationHistory), 2)
		require.NotNil(t, o.Tracking.Driver)

		times := tracking.CalculateActualTimes(o.Tracking)
		require.NotNil(t, times.Total)
		assert.Greater(t, *times.Total, 0)
	}
}

func TestSimulator_CancelsEverything(t *testing.T) {
	cfg := testConfig()
	cfg.CancelRate = 1
	h := newHarness(t, cfg)

	stats, err := h.sim.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Cancelled)
	assert.Zero(t, stats.Delivered)
	assert.Zero(t, stats.LocationUpdates)

	for _, o := range h.orders(t) {
		assert.Equal(t, models.OrderStatusCancelled, o.Status)
		require.Len(t, o.Tracking.CustomerInteractions, 1)
		assert.Equal(t, models.InteractionCancelRequest, o.Tracking.CustomerInteractions[0].Type)
		assert.Equal(t, models.DeliveryStatusFailed, o.Tracking.DeliveryStatus)
	}
}

func TestSimulator_StopsOnCancelledContext(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.sim.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClock_NeverGoesBack(t *testing.T) {
	start := time.Date(2026, 4, 2, 11, 0, 0, 0, time.UTC)
	c := NewClock(start)
	c.set(start.Add(time.Minute))
	c.set(start)
	assert.Equal(t, start.Add(time.Minute), c.Now())
}
