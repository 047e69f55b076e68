package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/lucsky/cuid"

	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/notify"
	"github.com/chrisdamba/foodatrack/internal/pricing"
	"github.com/chrisdamba/foodatrack/internal/repositories"
)

// Tracker owns every write to the tracking record of an order. Each write is
// one read-modify-write inside a store transaction; events are emitted only
// after it commits.
type Tracker struct {
	repo    repositories.OrderRepository
	events  notify.Emitter
	logger  *slog.Logger
	now     func() time.Time
	pricing models.PricingConfig
}

type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithPricing sets the fees PlaceOrder applies.
func WithPricing(cfg models.PricingConfig) Option {
	return func(t *Tracker) { t.pricing = cfg }
}

// NewTracker creates a Tracker. events may be nil when nobody listens.
func NewTracker(repo repositories.OrderRepository, events notify.Emitter, logger *slog.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		repo:   repo,
		events: events,
		logger: logger.With("component", "tracker"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TransitionRequest moves an order to Status on behalf of UpdatedBy.
type TransitionRequest struct {
	OrderID     string
	Status      models.OrderStatus
	UpdatedBy   models.Actor
	Description string
	Metadata    map[string]string
}

// LocationRequest is one courier position report.
type LocationRequest struct {
	OrderID     string
	Lat         float64
	Lng         float64
	Status      models.OrderStatus
	Description string
}

// NewOrder is the input of PlaceOrder. ID is generated when empty.
type NewOrder struct {
	ID            string
	CustomerID    string
	RestaurantID  string
	Items         []models.LineItem
	Address       models.Address
	Contact       models.Contact
	PaymentMethod string
}

// PlaceOrder prices and stores a new PENDING order with its initial
// tracking record.
func (t *Tracker) PlaceOrder(ctx context.Context, in NewOrder) (*models.Order, error) {
	if err := validateNewOrder(in); err != nil {
		return nil, err
	}
	now := t.now()
	id := in.ID
	if id == "" {
		id = cuid.New()
	}
	quote := pricing.Calculate(t.pricing, in.Items)
	order := &models.Order{
		ID:            id,
		CustomerID:    in.CustomerID,
		RestaurantID:  in.RestaurantID,
		Items:         append([]models.LineItem(nil), in.Items...),
		Address:       in.Address,
		Contact:       in.Contact,
		PaymentMethod: in.PaymentMethod,
		TotalAmount:   quote.Total,
		Status:        models.OrderStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		Tracking:      models.NewTracking(now),
	}
	if err := t.repo.Create(ctx, order); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("%w: id %s already exists", ErrInvalidOrder, id)
		}
		return nil, &PersistenceError{Op: "create", OrderID: id, Err: err}
	}
	t.logger.Info("order placed", "order_id", id, "restaurant_id", order.RestaurantID, "total", order.TotalAmount)
	t.emit(models.EventOrderPlaced, order, DefaultDescription(models.OrderStatusPending))
	return order, nil
}

func validateNewOrder(in NewOrder) error {
	if strings.TrimSpace(in.CustomerID) == "" || strings.TrimSpace(in.RestaurantID) == "" {
		return fmt.Errorf("%w: customer and restaurant are required", ErrInvalidOrder)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidOrder)
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 || item.UnitPrice < 0 || item.Name == "" {
			return fmt.Errorf("%w: bad line item %q", ErrInvalidOrder, item.Name)
		}
	}
	switch in.PaymentMethod {
	case models.PaymentCard, models.PaymentCash, models.PaymentWallet:
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidOrder, in.PaymentMethod)
	}
	return nil
}

// Get returns the order or ErrNotFound.
func (t *Tracker) Get(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := t.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, &PersistenceError{Op: "get", OrderID: orderID, Err: err}
	}
	if order == nil {
		return nil, ErrNotFound
	}
	return order, nil
}

// Transition appends a status update and moves the order to req.Status.
func (t *Tracker) Transition(ctx context.Context, req TransitionRequest) (*models.Order, error) {
	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}
	actor, err := actorOrSystem(req.UpdatedBy)
	if err != nil {
		return nil, err
	}
	now := t.now()
	order, err := t.mutate(ctx, "transition", req.OrderID, func(o *models.Order) error {
		ensureTracking(o)
		if !CanTransition(o.Tracking.Status, req.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Tracking.Status, req.Status)
		}
		applyStatus(o, req.Status, actor, req.Description, copyMetadata(req.Metadata), now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	last := order.Tracking.StatusUpdates[len(order.Tracking.StatusUpdates)-1]
	t.logger.Info("order status updated", "order_id", order.ID, "status", req.Status, "updated_by", actor)
	t.emit(models.EventStatusChanged, order, last.Description)
	return order, nil
}

// Assign attaches driver to the order and moves it to ASSIGNED.
func (t *Tracker) Assign(ctx context.Context, orderID string, driver models.Driver) (*models.Order, error) {
	if strings.TrimSpace(driver.ID) == "" || strings.TrimSpace(driver.Name) == "" {
		return nil, fmt.Errorf("%w: id and name are required", ErrInvalidDriver)
	}
	if !driver.VehicleType.Valid() {
		return nil, fmt.Errorf("%w: unknown vehicle type %q", ErrInvalidDriver, driver.VehicleType)
	}
	now := t.now()
	description := driver.Name + " teslimatçınız atandı"
	order, err := t.mutate(ctx, "assign", orderID, func(o *models.Order) error {
		ensureTracking(o)
		if !CanTransition(o.Tracking.Status, models.OrderStatusAssigned) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Tracking.Status, models.OrderStatusAssigned)
		}
		d := driver
		if driver.CurrentLocation != nil {
			loc := *driver.CurrentLocation
			d.CurrentLocation = &loc
		}
		o.Tracking.Driver = &d
		applyStatus(o, models.OrderStatusAssigned, models.ActorSystem, description, map[string]string{"driverId": driver.ID}, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.logger.Info("driver assigned", "order_id", orderID, "driver_id", driver.ID)
	t.emit(models.EventDriverAssigned, order, description)
	return order, nil
}

// RecordLocation appends a breadcrumb and moves the assigned driver. An
// empty status records the order's current status.
func (t *Tracker) RecordLocation(ctx context.Context, req LocationRequest) (*models.Order, error) {
	if math.IsNaN(req.Lat) || math.IsNaN(req.Lng) || req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
		return nil, fmt.Errorf("%w: %f,%f", ErrInvalidLocation, req.Lat, req.Lng)
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}
	now := t.now()
	order, err := t.mutate(ctx, "record location", req.OrderID, func(o *models.Order) error {
		ensureTracking(o)
		status := req.Status
		if status == "" {
			status = o.Tracking.Status
		}
		o.Tracking.LocationHistory = append(o.Tracking.LocationHistory, models.LocationPoint{
			Lat:         req.Lat,
			Lng:         req.Lng,
			Timestamp:   now,
			Status:      status,
			Description: req.Description,
		})
		if o.Tracking.Driver != nil {
			o.Tracking.Driver.CurrentLocation = &models.GeoFix{Lat: req.Lat, Lng: req.Lng, Timestamp: now}
		}
		o.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.logger.Debug("driver location recorded", "order_id", req.OrderID, "lat", req.Lat, "lng", req.Lng)
	t.emit(models.EventLocationUpdated, order, req.Description)
	return order, nil
}

// RecordInteraction logs a pending customer request. Nothing resolves it
// automatically.
func (t *Tracker) RecordInteraction(ctx context.Context, orderID string, kind models.InteractionType, notes string) (*models.Order, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidInteraction, kind)
	}
	now := t.now()
	order, err := t.mutate(ctx, "record interaction", orderID, func(o *models.Order) error {
		ensureTracking(o)
		o.Tracking.CustomerInteractions = append(o.Tracking.CustomerInteractions, models.CustomerInteraction{
			Type:      kind,
			Timestamp: now,
			Status:    models.InteractionPending,
			Notes:     notes,
		})
		o.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.logger.Info("customer interaction logged", "order_id", orderID, "type", kind)
	t.emit(models.EventInteractionLogged, order, notes)
	return order, nil
}

// ResolveInteraction marks the pending interaction at index as resolved by
// an operator. notes, when given, are appended to the existing notes.
func (t *Tracker) ResolveInteraction(ctx context.Context, orderID string, index int, notes string) (*models.Order, error) {
	now := t.now()
	order, err := t.mutate(ctx, "resolve interaction", orderID, func(o *models.Order) error {
		ensureTracking(o)
		if index < 0 || index >= len(o.Tracking.CustomerInteractions) {
			return fmt.Errorf("%w: no interaction at index %d", ErrInvalidInteraction, index)
		}
		ci := &o.Tracking.CustomerInteractions[index]
		if ci.Status == models.InteractionResolved {
			return fmt.Errorf("%w: interaction %d already resolved", ErrInvalidInteraction, index)
		}
		ci.Status = models.InteractionResolved
		resolvedAt := now
		ci.ResolvedAt = &resolvedAt
		if notes != "" {
			if ci.Notes == "" {
				ci.Notes = notes
			} else {
				ci.Notes += "; " + notes
			}
		}
		o.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.logger.Info("customer interaction resolved", "order_id", orderID, "index", index)
	return order, nil
}

// AppendNotification records the outcome of a notification attempt.
func (t *Tracker) AppendNotification(ctx context.Context, orderID string, record models.NotificationRecord) error {
	_, err := t.mutate(ctx, "append notification", orderID, func(o *models.Order) error {
		ensureTracking(o)
		o.Tracking.Notifications = append(o.Tracking.Notifications, record)
		return nil
	})
	return err
}

func (t *Tracker) mutate(ctx context.Context, op, orderID string, fn repositories.MutateFunc) (*models.Order, error) {
	order, err := t.repo.Mutate(ctx, orderID, fn)
	if err == nil {
		return order, nil
	}
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", ErrNotFound, orderID)
	case errors.Is(err, repositories.ErrDriverConflict):
		return nil, ErrDriverBusy
	case isDomainError(err):
		return nil, err
	}
	return nil, &PersistenceError{Op: op, OrderID: orderID, Err: err}
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrInvalidStatus, ErrInvalidActor, ErrIllegalTransition, ErrInvalidDriver,
		ErrDriverBusy, ErrInvalidLocation, ErrInvalidInteraction, ErrInvalidOrder,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (t *Tracker) emit(eventType string, order *models.Order, message string) {
	if t.events == nil {
		return
	}
	t.events.Emit(notify.NewEvent(eventType, order, message, t.now()))
}

func actorOrSystem(a models.Actor) (models.Actor, error) {
	if a == "" {
		return models.ActorSystem, nil
	}
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidActor, a)
	}
	return a, nil
}

// ensureTracking synthesizes the initial record for orders stored without one.
func ensureTracking(o *models.Order) {
	if o.Tracking == nil {
		o.Tracking = models.NewTracking(o.CreatedAt)
	}
}

func applyStatus(o *models.Order, status models.OrderStatus, actor models.Actor, description string, metadata map[string]string, now time.Time) {
	if description == "" {
		description = DefaultDescription(status)
	}
	tr := o.Tracking
	tr.StatusUpdates = append(tr.StatusUpdates, models.StatusUpdate{
		Status:      status,
		Timestamp:   now,
		Description: description,
		UpdatedBy:   actor,
		Metadata:    metadata,
	})
	tr.Status = status
	if m, ok := MilestoneFor(status); ok {
		tr.SetTimestampOnce(m, now)
	}
	tr.DeliveryStatus = DeliveryStatusFor(status)
	o.Status = status
	o.UpdatedAt = now
}

func copyMetadata(md map[string]string) map[string]string {
	if len(md) == 0 {
		return nil
	}
	c := make(map[string]string, len(md))
	for k, v := range md {
		c[k] = v
	}
	return c
}
