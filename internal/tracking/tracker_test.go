package tracking

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/notify"
	"github.com/chrisdamba/foodatrack/internal/testutil"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Emit(e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	tracker *Tracker
	clock   *testutil.Clock
	events  *recorder
	ctx     context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := testutil.NewOrderRepository(t)
	clock := testutil.NewClock(start)
	events := &recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		tracker: NewTracker(repo, events, logger, WithClock(clock.Now), WithPricing(models.PricingConfig{TaxRate: 0.1})),
		clock:   clock,
		events:  events,
		ctx:     context.Background(),
	}
}

func (f *fixture) place(t *testing.T, id string) *models.Order {
	t.Helper()
	o, err := f.tracker.PlaceOrder(f.ctx, NewOrder{
		ID:            id,
		CustomerID:    "c1",
		RestaurantID:  "r1",
		Items:         []models.LineItem{{Name: "İskender", Quantity: 1, UnitPrice: 200}},
		Address:       models.Address{Address1: "Bağdat Cd. 5", Location: &models.Location{Lat: 40.97, Lon: 29.06}},
		Contact:       models.Contact{Name: "Elif", Phone: "+905551112233"},
		PaymentMethod: models.PaymentCard,
	})
	require.NoError(t, err)
	return o
}

func (f *fixture) get(t *testing.T, id string) *models.Order {
	t.Helper()
	o, err := f.tracker.Get(f.ctx, id)
	require.NoError(t, err)
	return o
}

var driverD1 = models.Driver{ID: "D1", Name: "Mehmet", Phone: "+905550000001", VehicleType: models.VehicleMotorcycle}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "")

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, models.OrderStatusPending, o.Status)
	assert.Equal(t, 220.0, o.TotalAmount)
	require.NotNil(t, o.Tracking)
	assert.Equal(t, models.DeliveryStatusNotStarted, o.Tracking.DeliveryStatus)
	assert.Empty(t, o.Tracking.StatusUpdates)
	placed, ok := o.Tracking.Timestamp(models.MilestoneOrderPlaced)
	require.True(t, ok)
	assert.True(t, placed.Equal(start))
	assert.Equal(t, []string{models.EventOrderPlaced}, f.events.types())

	_, err := f.tracker.PlaceOrder(f.ctx, NewOrder{CustomerID: "c1", RestaurantID: "r1", PaymentMethod: models.PaymentCash})
	assert.ErrorIs(t, err, ErrInvalidOrder)
	_, err = f.tracker.PlaceOrder(f.ctx, NewOrder{
		ID: o.ID, CustomerID: "c1", RestaurantID: "r1", PaymentMethod: models.PaymentCash,
		Items: []models.LineItem{{Name: "Çay", Quantity: 1, UnitPrice: 10}},
	})
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestTransition_SetsStatusAndDeliveryStatus(t *testing.T) {
	expected := map[models.OrderStatus]models.DeliveryStatus{
		models.OrderStatusPending:    models.DeliveryStatusNotStarted,
		models.OrderStatusConfirmed:  models.DeliveryStatusNotStarted,
		models.OrderStatusPreparing:  models.DeliveryStatusNotStarted,
		models.OrderStatusReady:      models.DeliveryStatusAssigningDriver,
		models.OrderStatusAssigned:   models.DeliveryStatusDriverAssigned,
		models.OrderStatusPickedUp:   models.DeliveryStatusDriverOnWay,
		models.OrderStatusDelivering: models.DeliveryStatusDriverOnWay,
		models.OrderStatusArrived:    models.DeliveryStatusDriverArrived,
		models.OrderStatusDelivered:  models.DeliveryStatusDelivered,
		models.OrderStatusCancelled:  models.DeliveryStatusFailed,
		models.OrderStatusRefunded:   models.DeliveryStatusFailed,
	}
	for _, status := range models.OrderStatuses {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			f.place(t, "o1")

			ok := f.tracker.UpdateOrderStatus(f.ctx, "o1", status, models.ActorRestaurant, "", nil)
			require.True(t, ok)

			o := f.get(t, "o1")
			assert.Equal(t, status, o.Tracking.Status)
			assert.Equal(t, status, o.Status)
			assert.Equal(t, expected[status], o.Tracking.DeliveryStatus)
			require.Len(t, o.Tracking.StatusUpdates, 1)
			assert.Equal(t, DefaultDescription(status), o.Tracking.StatusUpdates[0].Description)
			assert.Equal(t, models.ActorRestaurant, o.Tracking.StatusUpdates[0].UpdatedBy)
		})
	}
}

func TestTransition_MilestoneFirstWriteWins(t *testing.T) {
	for status, milestone := range milestones {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			f.place(t, "o1")

			require.True(t, f.tracker.UpdateOrderStatus(f.ctx, "o1", status, models.ActorSystem, "", nil))
			first := f.clock.Now()
			f.clock.Advance(7 * time.Minute)
			require.True(t, f.tracker.UpdateOrderStatus(f.ctx, "o1", status, models.ActorSystem, "tekrar", nil))

			o := f.get(t, "o1")
			ts, ok := o.Tracking.Timestamp(milestone)
			require.True(t, ok)
			assert.True(t, ts.Equal(first), "milestone %s overwritten", milestone)
			assert.Len(t, o.Tracking.StatusUpdates, 2)
		})
	}
}

func TestTransition_NoMilestoneForPendingAndRefunded(t *testing.T) {
	f := newFixture(t)
	f.place(t, "o1")
	require.True(t, f.tracker.UpdateOrderStatus(f.ctx, "o1", models.OrderStatusPending, models.ActorSystem, "", nil))
	require.True(t, f.tracker.UpdateOrderStatus(f.ctx, "o1", models.OrderStatusRefunded, models.ActorSystem, "", nil))

	o := f.get(t, "o1")
	assert.Len(t, o.Tracking.Timestamps, 1)
	_, ok := o.Tracking.Timestamp(models.MilestoneOrderPlaced)
	assert.True(t, ok)
}

func TestTransition_StatusUpdatesAreAppendOnly(t *testing.T) {
	f := newFixture(t)
	f.place(t, "o1")
	path := []models.OrderStatus{
		models.OrderStatusConfirmed,
		models.OrderStatusPreparing,
		models.OrderStatusPreparing,
		models.OrderStatusReady,
		models.OrderStatusDelivering,
		models.OrderStatusCancelled,
	}
	var previous []models.StatusUpdate
	for i, status := range path {
		f.clock.Advance(time.Minute)
		require.True(t, f.tracker.UpdateOrderStatus(f.ctx, "o1", status, models.ActorRestaurant, "", map[string]string{"step": string(rune('0' + i))}))

		updates := f.get(t, "o1").Tracking.StatusUpdates
		require.Len(t, updates, len(previous)+1)
		if len(previous) > 0 {
			assert.Equal(t, previous, updates[:len(previous)])
		}
		assert.Equal(t, status, updates[len(updates)-1].Status)
		previous = updates
	}

	// a rejected call leaves the log untouched
	assert.False(t, f.tracker.UpdateOrderStatus(f.ctx, "o1", models.OrderStatusDelivered, models.ActorSystem, "", nil))
	assert.Equal(t, previous, f.get(t, "o1").Tracking.StatusUpdates)
}

func TestTransition_Errors(t *testing.T) {
	f := newFixture(t)
	f.place(t, "o1")

	_, err := f.tracker.Transition(f.ctx, TransitionRequest{OrderID: "missing", Status: models.OrderStatusConfirmed})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.tracker.Transition(f.ctx, TransitionRequest{OrderID: "o1", Status: "SHIPPED"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.tracker.Transition(f.ctx, TransitionRequest{OrderID: "o1", Status: models.OrderStatusConfirmed, UpdatedBy: "admin"})
	assert.ErrorIs(t, err, ErrInvalidActor)

	_, err = f.tracker.Transition(f.ctx, TransitionRequest{OrderID: "o1", Status: models.OrderStatusReady})
	require.NoError(t, err)
	_, err = f.tracker.Transition(f.ctx, TransitionRequest{OrderID: "o1", Status: models.OrderStatusConfirmed})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = f.tracker.Transition(f.ctx, TransitionRequest{OrderID: "o1", Status: models.OrderStatusDelivered})
	require.NoError(t, err)
	_, err = f.tracker.Transition(f.ctx, TransitionRequest{OrderID: "o1", Status: models.OrderStatusCancelled})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	assert.False(t, f.tracker.UpdateOrderStatus(f.ctx, "missing", models.OrderStatusConfirmed, models.ActorSystem, "", nil))
	assert.False(t, f.tracker.UpdateOrderStatus(f.ctx, "o1", "bogus", models.ActorSystem, "", nil))
}

func TestTransition_SynthesizesMissingTracking(t *testing.T) {
	repo := testutil.NewOrderRepository(t)
	clock := testutil.NewClock(start.Add(time.Hour))
	tracker := NewTracker(repo, nil, nil, WithClock(clock.Now))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, testutil.Order("legacy", start)))

	o, err := tracker.Transition(ctx, TransitionRequest{OrderID: "legacy", Status: models.OrderStatusConfirmed, UpdatedBy: models.ActorRestaurant})
	require.NoError(t, err)
	require.NotNil(t, o.Tracking)
	placed, ok := o.Tracking.Timestamp(models.MilestoneOrderPlaced)
	require.True(t, ok)
	assert.True(t, placed.Equal(start))
	assert.Len(t, o.Tracking.StatusUpdates, 1)
}

func TestAssignDriver_WithoutPriorTracking(t *testing.T) {
	repo := testutil.NewOrderRepository(t)
	tracker := NewTracker(repo, nil, nil, WithClock(testutil.NewClock(start).Now))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, testutil.Order("o1", start.Add(-10*time.Minute))))

	require.True(t, tracker.AssignDriver(ctx, "o1", driverD1))

	o, err := tracker.Get(ctx, "o1")
	require.NoError(t, err)
	tr := o.Tracking
	assert.Equal(t, models.DeliveryStatusDriverAssigned, tr.DeliveryStatus)
	assert.Equal(t, models.OrderStatusAssigned, tr.Status)
	require.Len(t, tr.StatusUpdates, 1)
	update := tr.StatusUpdates[0]
	assert.Equal(t, models.OrderStatusAssigned, update.Status)
	assert.Equal(t, models.ActorSystem, update.UpdatedBy)
	assert.Equal(t, "Mehmet teslimatçınız atandı", update.Description)
	assert.Equal(t, map[string]string{"driverId": "D1"}, update.Metadata)
	assert.Len(t, tr.Timestamps, 2)
	_, ok := tr.Timestamp(models.MilestoneOrderPlaced)
	assert.True(t, ok)
	assigned, ok := tr.Timestamp(models.MilestoneDriverAssigned)
	require.True(t, ok)
	assert.True(t, assigned.Equal(start))
	require.NotNil(t, tr.Driver)
	assert.Equal(t, driverD1.ID, tr.Driver.ID)
}

func TestAssignDriver_Validation(t *testing.T) {
	f := newFixture(t)
	f.place(t, "o1")

	_, err := f.tracker.Assign(f.ctx, "o1", models.Driver{ID: "D1"})
	assert.ErrorIs(t, err, ErrInvalidDriver)
	_, err = f.tracker.Assign(f.ctx, "o1", models.Driver{ID: "D1", Name: "Ali", VehicleType: "tram"})
	assert.ErrorIs(t, err, ErrInvalidDriver)
	_, err = f.tracker.Assign(f.ctx, "missing", driverD1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, f.tracker.AssignDriver(f.ctx, "missing", driverD1))
}

func TestAssignDriver_DriverBusy(t *testing.T) {
	f := newFixture(t)
	f.place(t, "o1")
	f.place(t, "o2")

	require.True(t, f.tracker.AssignDriver(f.ctx, "o1", driverD1))
	_, err := f.tracker.Assign(f.ctx, "o2", driverD1)
	assert.ErrorIs(t, err, ErrDriverBusy)
	assert.Empty(t, f.get(t, "o2").Tracking.StatusUpdates)

	require.True(t, f.tracker.UpdateOrderStatus(f.ctx, "o1", models.OrderStatusDelivered, models.ActorDriver, "", nil))
	assert.True(t, f.tracker.AssignDriver(f.ctx, "o2", driverD1))
}

func TestEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.place(t, "O1")

	f.clock.Advance(2 * time.Minute)
	require.True(t, f.tracker.UpdateOrderStatus(f.ctx, "O1", models.OrderStatusConfirmed, models.ActorRestaurant, "", nil))
	f.clock.Advance(3 * time.Minute)
	require.True(t, f.tracker.UpdateOrderStatus(f.ctx, "O1", models.OrderStatusPreparing, models.ActorRestaurant, "", nil))
	f.clock.Advance(10 * time.Minute)
	require.True(t, f.tracker.AssignDriver(f.ctx, "O1", driverD1))
	f.clock.Advance(5 * time.Minute)
	require.True(t, f.tracker.UpdateOrderStatus(f.ctx, "O1", models.OrderStatusPickedUp, models.ActorDriver, "", nil))
	f.clock.Advance(15 * time.Minute)
	require.True(t, f.tracker.UpdateOrderStatus(f.ctx, "O1", models.OrderStatusDelivered, models.ActorDriver, "", nil))

	o := f.get(t, "O1")
	tr := o.Tracking
	require.Len(t, tr.StatusUpdates, 5)
	var statuses []models.OrderStatus
	for _, u := range tr.StatusUpdates {
		statuses = append(statuses, u.Status)
	}
	assert.Equal(t, []models.OrderStatus{
		models.OrderStatusConfirmed,
		models.OrderStatusPreparing,
		models.OrderStatusAssigned,
		models.OrderStatusPickedUp,
		models.OrderStatusDelivered,
	}, statuses)
	for _, m := range []models.Milestone{models.MilestoneConfirmed, models.MilestoneDriverAssigned, models.MilestonePickedUp, models.MilestoneDelivered} {
		_, ok := tr.Timestamp(m)
		assert.True(t, ok, "missing %s", m)
	}
	assert.Equal(t, models.DeliveryStatusDelivered, tr.DeliveryStatus)
	require.NotNil(t, tr.Driver)
	assert.Equal(t, "D1", tr.Driver.ID)

	times := CalculateActualTimes(tr)
	assert.Nil(t, times.Preparation)
	require.NotNil(t, times.Delivery)
	assert.Equal(t, 15, *times.Delivery)
	require.NotNil(t, times.Total)
	assert.Equal(t, 35, *times.Total)

	assert.Equal(t, []string{
		models.EventOrderPlaced,
		models.EventStatusChanged,
		models.EventStatusChanged,
		models.EventDriverAssigned,
		models.EventStatusChanged,
		models.EventStatusChanged,
	}, f.events.types())
}

func TestUpdateDriverLocation(t *testing.T) {
	f := newFixture(t)
	f.place(t, "o1")

	require.True(t, f.tracker.UpdateDriverLocation(f.ctx, "o1", 41.01, 28.97, "", "restoran önü"))
	o := f.get(t, "o1")
	require.Len(t, o.Tracking.LocationHistory, 1)
	assert.Equal(t, models.OrderStatusPending, o.Tracking.LocationHistory[0].Status)
	assert.Nil(t, o.Tracking.Driver)

	require.True(t, f.tracker.AssignDriver(f.ctx, "o1", driverD1))
	f.clock.Advance(time.Minute)
	require.True(t, f.tracker.UpdateDriverLocation(f.ctx, "o1", 41.02, 28.98, models.OrderStatusDelivering, ""))

	o = f.get(t, "o1")
	require.Len(t, o.Tracking.LocationHistory, 2)
	point := o.Tracking.LocationHistory[1]
	assert.Equal(t, 41.02, point.Lat)
	assert.Equal(t, models.OrderStatusDelivering, point.Status)
	require.NotNil(t, o.Tracking.Driver.CurrentLocation)
	assert.Equal(t, 28.98, o.Tracking.Driver.CurrentLocation.Lng)
	assert.True(t, o.Tracking.Driver.CurrentLocation.Timestamp.Equal(f.clock.Now()))
	// location reports never move the status
	assert.Equal(t, models.OrderStatusAssigned, o.Tracking.Status)

	assert.False(t, f.tracker.UpdateDriverLocation(f.ctx, "o1", 95, 0, "", ""))
	assert.False(t, f.tracker.UpdateDriverLocation(f.ctx, "missing", 41, 29, "", ""))
	assert.False(t, f.tracker.UpdateDriverLocation(f.ctx, "o1", 41, 29, "LOST", ""))
}

func TestCustomerInteractions(t *testing.T) {
	f := newFixture(t)
	f.place(t, "o1")

	require.True(t, f.tracker.LogCustomerInteraction(f.ctx, "o1", models.InteractionCallDriver, "kapı kodu 1234"))
	require.True(t, f.tracker.LogCustomerInteraction(f.ctx, "o1", models.InteractionCancelRequest, ""))
	assert.False(t, f.tracker.LogCustomerInteraction(f.ctx, "o1", "complain", ""))

	o := f.get(t, "o1")
	require.Len(t, o.Tracking.CustomerInteractions, 2)
	for _, ci := range o.Tracking.CustomerInteractions {
		assert.Equal(t, models.InteractionPending, ci.Status)
		assert.Nil(t, ci.ResolvedAt)
	}
	// logging a cancel request does not cancel the order
	assert.Equal(t, models.OrderStatusPending, o.Status)

	f.clock.Advance(4 * time.Minute)
	o, err := f.tracker.ResolveInteraction(f.ctx, "o1", 0, "müşteri arandı")
	require.NoError(t, err)
	ci := o.Tracking.CustomerInteractions[0]
	assert.Equal(t, models.InteractionResolved, ci.Status)
	assert.Equal(t, "kapı kodu 1234; müşteri arandı", ci.Notes)
	require.NotNil(t, ci.ResolvedAt)
	assert.True(t, ci.ResolvedAt.Equal(f.clock.Now()))

	_, err = f.tracker.ResolveInteraction(f.ctx, "o1", 0, "")
	assert.ErrorIs(t, err, ErrInvalidInteraction)
	_, err = f.tracker.ResolveInteraction(f.ctx, "o1", 5, "")
	assert.ErrorIs(t, err, ErrInvalidInteraction)
}

func TestConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	f := newFixture(t)
	f.place(t, "o1")
	require.True(t, f.tracker.AssignDriver(f.ctx, "o1", driverD1))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.True(t, f.tracker.UpdateDriverLocation(f.ctx, "o1", 41, 29, "", ""))
		}()
		go func() {
			defer wg.Done()
			assert.True(t, f.tracker.UpdateOrderStatus(f.ctx, "o1", models.OrderStatusAssigned, models.ActorDriver, "", nil))
		}()
	}
	wg.Wait()

	o := f.get(t, "o1")
	assert.Len(t, o.Tracking.LocationHistory, 10)
	assert.Len(t, o.Tracking.StatusUpdates, 11)
}

func TestNoEventOnFailedWrite(t *testing.T) {
	f := newFixture(t)
	f.place(t, "o1")
	require.True(t, f.tracker.UpdateOrderStatus(f.ctx, "o1", models.OrderStatusDelivered, models.ActorSystem, "", nil))
	before := len(f.events.types())

	assert.False(t, f.tracker.UpdateOrderStatus(f.ctx, "o1", models.OrderStatusPending, models.ActorSystem, "", nil))
	assert.Len(t, f.events.types(), before)
}
