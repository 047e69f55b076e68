package notify

import (
	"time"

	"github.com/google/uuid"

	"github.com/chrisdamba/foodatrack/internal/models"
)

// Event is a committed change to an order, handed to the dispatcher after
// the write succeeded.
type Event struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	OrderID    string             `json:"order_id"`
	Status     models.OrderStatus `json:"status"`
	Message    string             `json:"message"`
	UpdatedBy  models.Actor       `json:"updated_by,omitempty"`
	Contact    models.Contact     `json:"-"`
	Order      *models.Order      `json:"order,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
	Metadata   map[string]string  `json:"metadata,omitempty"`
}

// NewEvent builds an event from the committed order. The order is cloned so
// the caller may keep using its copy.
func NewEvent(eventType string, order *models.Order, message string, at time.Time) Event {
	e := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OrderID:    order.ID,
		Status:     order.Status,
		Message:    message,
		Contact:    order.Contact,
		Order:      order.Clone(),
		OccurredAt: at,
	}
	if order.Tracking != nil {
		e.Status = order.Tracking.Status
		if n := len(order.Tracking.StatusUpdates); n > 0 && eventType != models.EventLocationUpdated && eventType != models.EventInteractionLogged {
			last := order.Tracking.StatusUpdates[n-1]
			e.UpdatedBy = last.UpdatedBy
			e.Metadata = last.Metadata
		}
	}
	return e
}

// Notifiable reports whether customers hear about this event over SMS or email.
func (e Event) Notifiable() bool {
	switch e.Type {
	case models.EventOrderPlaced, models.EventStatusChanged, models.EventDriverAssigned:
		return true
	}
	return false
}

// Emitter accepts events for asynchronous delivery. Emit must not block on
// delivery.
type Emitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event Event)

func (f EmitterFunc) Emit(event Event) { f(event) }
