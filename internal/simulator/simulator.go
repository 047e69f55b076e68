package simulator

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/chrisdamba/foodatrack/internal/factories"
	"github.com/chrisdamba/foodatrack/internal/geo"
	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/tracking"
)

// arrivalRadiusKm is how close a courier has to be to count as there.
const arrivalRadiusKm = 0.01

// Lifecycle is the part of the tracker the simulator drives.
type Lifecycle interface {
	PlaceOrder(ctx context.Context, in tracking.NewOrder) (*models.Order, error)
	Transition(ctx context.Context, req tracking.TransitionRequest) (*models.Order, error)
	Assign(ctx context.Context, orderID string, driver models.Driver) (*models.Order, error)
	RecordLocation(ctx context.Context, req tracking.LocationRequest) (*models.Order, error)
	RecordInteraction(ctx context.Context, orderID string, kind models.InteractionType, notes string) (*models.Order, error)
}

// Stats summarises a finished run.
type Stats struct {
	Placed          int
	Delivered       int
	Cancelled       int
	Failed          int
	LocationUpdates int
	Interactions    int
	// EstimateErrorMinutes is the mean absolute difference between the
	// estimate made at placement and the measured placement-to-delivery time.
	EstimateErrorMinutes float64
}

type courier struct {
	driver   models.Driver
	location models.Location
	busy     bool
}

// trip is the simulator's view of one order in flight.
type trip struct {
	order       *models.Order
	restaurant  *models.Restaurant
	customer    *models.Customer
	courier     *courier
	prepMinutes float64
	estimate    int
}

type Simulator struct {
	cfg         models.SimulationConfig
	lifecycle   Lifecycle
	clock       *Clock
	logger      *slog.Logger
	rng         *rand.Rand
	queue       *models.EventQueue
	source      *factories.Source
	customers   []*models.Customer
	restaurants []*models.Restaurant
	menus       map[string][]models.MenuItem
	couriers    []*courier
	traffic     []models.TrafficCondition
	orders      *factories.OrderFactory
	progress    func()
	stats       Stats
	errorSum    float64
	estimated   int
}

type Option func(*Simulator)

// WithProgress registers a callback run each time an order leaves the
// simulation, delivered or not.
func WithProgress(fn func()) Option {
	return func(s *Simulator) { s.progress = fn }
}

func NewSimulator(cfg models.SimulationConfig, lifecycle Lifecycle, clock *Clock, logger *slog.Logger, opts ...Option) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PartnerMoveSpeed <= 0 {
		cfg.PartnerMoveSpeed = 0.5
	}
	source := factories.NewSource(cfg.Seed)
	sim := &Simulator{
		cfg:       cfg,
		lifecycle: lifecycle,
		clock:     clock,
		logger:    logger.With("component", "simulator"),
		rng:       source.Rand(),
		queue:     models.NewEventQueue(),
		source:    source,
		menus:     make(map[string][]models.MenuItem),
	}
	for _, opt := range opts {
		opt(sim)
	}
	return sim
}

func (s *Simulator) initializeData() {
	customerFactory := &factories.CustomerFactory{Source: s.source}
	restaurantFactory := &factories.RestaurantFactory{Source: s.source}
	menuItemFactory := &factories.MenuItemFactory{Source: s.source}
	driverFactory := &factories.DriverFactory{Source: s.source}
	s.orders = &factories.OrderFactory{Source: s.source, Customers: customerFactory}

	customerCount := s.cfg.Orders/2 + 1
	for i := 0; i < customerCount; i++ {
		s.customers = append(s.customers, customerFactory.CreateCustomer(s.cfg))
	}

	for i := 0; i < max(s.cfg.Restaurants, 1); i++ {
		restaurant := restaurantFactory.CreateRestaurant(s.cfg)
		itemCount := 5 + s.rng.Intn(10)
		for j := 0; j < itemCount; j++ {
			item := menuItemFactory.CreateMenuItem(restaurant)
			s.menus[restaurant.ID] = append(s.menus[restaurant.ID], item)
			restaurant.MenuItems = append(restaurant.MenuItems, item.ID)
		}
		s.restaurants = append(s.restaurants, restaurant)
	}

	for i := 0; i < max(s.cfg.Drivers, 1); i++ {
		driver, location := driverFactory.CreateDriver(s.cfg)
		s.couriers = append(s.couriers, &courier{driver: driver, location: location})
	}

	centre := models.Location{Lat: s.cfg.CityLat, Lon: s.cfg.CityLon}
	s.traffic = trafficByHour(s.clock.Now(), centre, s.rng)
}

// Run places cfg.Orders orders and walks each of them to a terminal status.
// It returns when every order has finished or ctx is done.
func (s *Simulator) Run(ctx context.Context) (Stats, error) {
	s.initializeData()
	start := s.clock.Now()
	s.logger.Info("simulation starts",
		"at", start.Format(time.RFC3339), "orders", s.cfg.Orders,
		"restaurants", len(s.restaurants), "drivers", len(s.couriers))

	at := start
	for i := 0; i < s.cfg.Orders; i++ {
		at = at.Add(time.Duration(1+s.rng.Intn(3)) * time.Minute)
		s.schedule(models.EventSimPlaceOrder, at, nil)
	}

	var eventsCount int
	for {
		if err := ctx.Err(); err != nil {
			return s.finishStats(), err
		}
		event := s.queue.Dequeue()
		if event == nil {
			break
		}
		s.clock.set(event.Time)
		s.processEvent(ctx, event)
		eventsCount++

		if s.cfg.StepInterval > 0 {
			select {
			case <-ctx.Done():
				return s.finishStats(), ctx.Err()
			case <-time.After(s.cfg.StepInterval):
			}
		}
	}

	stats := s.finishStats()
	s.logger.Info("simulation completed",
		"events", eventsCount, "delivered", stats.Delivered, "cancelled", stats.Cancelled,
		"failed", stats.Failed, "simulated", s.clock.Now().Sub(start).String())
	return stats, nil
}

func (s *Simulator) finishStats() Stats {
	stats := s.stats
	if s.estimated > 0 {
		stats.EstimateErrorMinutes = s.errorSum / float64(s.estimated)
	}
	return stats
}

func (s *Simulator) schedule(eventType string, at time.Time, data interface{}) {
	s.queue.Enqueue(&models.Event{Time: at, Type: eventType, Data: data})
}

func (s *Simulator) processEvent(ctx context.Context, event *models.Event) {
	switch event.Type {
	case models.EventSimPlaceOrder:
		s.handlePlaceOrder(ctx, event.Time)
	case models.EventSimAdvanceOrder:
		s.handleAdvanceOrder(ctx, event.Data.(*trip), event.Time)
	case models.EventSimMoveDriver:
		s.handleMoveDriver(ctx, event.Data.(*trip), event.Time)
	}
}

func (s *Simulator) handlePlaceOrder(ctx context.Context, at time.Time) {
	customer := s.customers[s.rng.Intn(len(s.customers))]
	restaurant := s.restaurants[s.rng.Intn(len(s.restaurants))]

	order, err := s.lifecycle.PlaceOrder(ctx, s.orders.CreateOrder(customer, restaurant, s.menus[restaurant.ID]))
	if err != nil {
		s.logger.Warn("place order failed", "error", err)
		s.stats.Failed++
		s.done()
		return
	}
	s.stats.Placed++

	prep := math.Max(restaurant.AvgPrepTime*(0.8+0.4*s.rng.Float64()), restaurant.MinPrepTime)
	t := &trip{
		order:       order,
		restaurant:  restaurant,
		customer:    customer,
		prepMinutes: prep,
		estimate:    tracking.EstimateBetween(restaurant.Location, customer.Location, prep, s.trafficAt(at).Factor()),
	}
	s.logger.Debug("order placed", "order_id", order.ID, "estimate_minutes", t.estimate)
	s.schedule(models.EventSimAdvanceOrder, at.Add(s.minutes(1, 3)), t)
}

func (s *Simulator) handleAdvanceOrder(ctx context.Context, t *trip, at time.Time) {
	switch t.order.Status {
	case models.OrderStatusPending:
		if s.rng.Float64() < s.cfg.CancelRate {
			s.cancel(ctx, t)
			return
		}
		if s.transition(ctx, t, models.OrderStatusConfirmed, models.ActorRestaurant) {
			s.schedule(models.EventSimAdvanceOrder, at.Add(s.minutes(1, 2)), t)
		}
	case models.OrderStatusConfirmed:
		if s.transition(ctx, t, models.OrderStatusPreparing, models.ActorRestaurant) {
			s.schedule(models.EventSimAdvanceOrder, at.Add(time.Duration(t.prepMinutes*float64(time.Minute))), t)
		}
	case models.OrderStatusPreparing:
		if s.transition(ctx, t, models.OrderStatusReady, models.ActorRestaurant) {
			s.schedule(models.EventSimAdvanceOrder, at, t)
		}
	case models.OrderStatusReady:
		s.assign(ctx, t, at)
	case models.OrderStatusArrived:
		if s.transition(ctx, t, models.OrderStatusDelivered, models.ActorDriver) {
			s.stats.Delivered++
			s.measure(t)
			s.release(t)
		}
	}
}

func (s *Simulator) cancel(ctx context.Context, t *trip) {
	order, err := s.lifecycle.RecordInteraction(ctx, t.order.ID, models.InteractionCancelRequest, "müşteri iptal istedi")
	if err == nil {
		t.order = order
		s.stats.Interactions++
	}
	if s.transition(ctx, t, models.OrderStatusCancelled, models.ActorCustomer) {
		s.stats.Cancelled++
		s.release(t)
	}
}

// assign hands the order to the nearest idle courier, or retries later when
// everyone is out.
func (s *Simulator) assign(ctx context.Context, t *trip, at time.Time) {
	c := s.nearestIdleCourier(t.restaurant.Location)
	if c == nil {
		s.schedule(models.EventSimAdvanceOrder, at.Add(2*time.Minute), t)
		return
	}
	driver := c.driver
	driver.CurrentLocation = &models.GeoFix{Lat: c.location.Lat, Lng: c.location.Lon, Timestamp: at}
	order, err := s.lifecycle.Assign(ctx, t.order.ID, driver)
	if errors.Is(err, tracking.ErrDriverBusy) {
		s.schedule(models.EventSimAdvanceOrder, at.Add(2*time.Minute), t)
		return
	}
	if err != nil {
		s.fail(t, "assign", err)
		return
	}
	t.order = order
	c.busy = true
	t.courier = c
	s.schedule(models.EventSimMoveDriver, at.Add(time.Minute), t)
}

func (s *Simulator) handleMoveDriver(ctx context.Context, t *trip, at time.Time) {
	c := t.courier
	target := t.customer.Location
	if t.order.Status == models.OrderStatusAssigned {
		target = t.restaurant.Location
	}

	step := s.cfg.PartnerMoveSpeed / s.trafficAt(at).Factor()
	c.location = geo.MoveTowards(c.location, target, step)
	order, err := s.lifecycle.RecordLocation(ctx, tracking.LocationRequest{
		OrderID: t.order.ID,
		Lat:     c.location.Lat,
		Lng:     c.location.Lon,
	})
	if err != nil {
		s.fail(t, "record location", err)
		return
	}
	t.order = order
	s.stats.LocationUpdates++

	if !geo.IsWithinKm(c.location, target, arrivalRadiusKm) {
		if t.order.Status == models.OrderStatusDelivering && s.rng.Float64() < 0.05 {
			if order, err := s.lifecycle.RecordInteraction(ctx, t.order.ID, models.InteractionCallDriver, ""); err == nil {
				t.order = order
				s.stats.Interactions++
			}
		}
		s.schedule(models.EventSimMoveDriver, at.Add(time.Minute), t)
		return
	}

	switch t.order.Status {
	case models.OrderStatusAssigned:
		if s.transition(ctx, t, models.OrderStatusPickedUp, models.ActorDriver) &&
			s.transition(ctx, t, models.OrderStatusDelivering, models.ActorDriver) {
			s.schedule(models.EventSimMoveDriver, at.Add(time.Minute), t)
		}
	case models.OrderStatusDelivering:
		if s.transition(ctx, t, models.OrderStatusArrived, models.ActorDriver) {
			s.schedule(models.EventSimAdvanceOrder, at.Add(s.minutes(1, 3)), t)
		}
	}
}

func (s *Simulator) transition(ctx context.Context, t *trip, status models.OrderStatus, actor models.Actor) bool {
	order, err := s.lifecycle.Transition(ctx, tracking.TransitionRequest{
		OrderID:   t.order.ID,
		Status:    status,
		UpdatedBy: actor,
	})
	if err != nil {
		s.fail(t, "transition to "+string(status), err)
		return false
	}
	t.order = order
	return true
}

func (s *Simulator) fail(t *trip, op string, err error) {
	s.logger.Warn("simulated step failed", "order_id", t.order.ID, "op", op, "error", err)
	s.stats.Failed++
	s.release(t)
}

// release frees the courier and reports the order as finished.
func (s *Simulator) release(t *trip) {
	if t.courier != nil {
		t.courier.busy = false
		t.courier = nil
	}
	s.done()
}

func (s *Simulator) done() {
	if s.progress != nil {
		s.progress()
	}
}

func (s *Simulator) measure(t *trip) {
	actual := tracking.CalculateActualTimes(t.order.Tracking).Total
	if actual == nil {
		return
	}
	s.errorSum += math.Abs(float64(*actual - t.estimate))
	s.estimated++
}

func (s *Simulator) nearestIdleCourier(loc models.Location) *courier {
	var nearest *courier
	best := math.Inf(1)
	for _, c := range s.couriers {
		if c.busy {
			continue
		}
		if d := geo.Distance(c.location, loc); d < best {
			best = d
			nearest = c
		}
	}
	return nearest
}

// minutes returns a random whole number of minutes in [lo, hi].
func (s *Simulator) minutes(lo, hi int) time.Duration {
	return time.Duration(lo+s.rng.Intn(hi-lo+1)) * time.Minute
}
