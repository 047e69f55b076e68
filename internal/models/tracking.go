package models

import "time"

// StatusUpdate is one entry of the append-only status log.
type StatusUpdate struct {
	Status      OrderStatus       `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Description string            `json:"description"`
	UpdatedBy   Actor             `json:"updated_by"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NotificationRecord records one outbound notification attempt.
type NotificationRecord struct {
	EventID   string      `json:"event_id"`
	Channel   string      `json:"channel"`
	Recipient string      `json:"recipient,omitempty"`
	Status    OrderStatus `json:"status"`
	Message   string      `json:"message"`
	SentAt    time.Time   `json:"sent_at"`
	Success   bool        `json:"success"`
	Attempts  int         `json:"attempts"`
	Error     string      `json:"error,omitempty"`
}

// CustomerInteraction is an ad-hoc customer request awaiting manual handling.
type CustomerInteraction struct {
	Type       InteractionType `json:"type"`
	Timestamp  time.Time       `json:"timestamp"`
	Status     string          `json:"status"`
	Notes      string          `json:"notes,omitempty"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

// Tracking is embedded 1:1 with an order. Lists only ever grow; each
// milestone timestamp is written once.
type Tracking struct {
	Status               OrderStatus             `json:"status"`
	DeliveryStatus       DeliveryStatus          `json:"delivery_status"`
	Timestamps           map[Milestone]time.Time `json:"timestamps"`
	StatusUpdates        []StatusUpdate          `json:"status_updates"`
	LocationHistory      []LocationPoint         `json:"location_history"`
	Driver               *Driver                 `json:"driver,omitempty"`
	Notifications        []NotificationRecord    `json:"notifications"`
	CustomerInteractions []CustomerInteraction   `json:"customer_interactions"`
}

// NewTracking returns the initial record of a freshly placed order.
func NewTracking(placedAt time.Time) *Tracking {
	return &Tracking{
		Status:         OrderStatusPending,
		DeliveryStatus: DeliveryStatusNotStarted,
		Timestamps:     map[Milestone]time.Time{MilestoneOrderPlaced: placedAt},
	}
}

// Timestamp returns the milestone time and whether it has been recorded.
func (t *Tracking) Timestamp(m Milestone) (time.Time, bool) {
	if t == nil || t.Timestamps == nil {
		return time.Time{}, false
	}
	ts, ok := t.Timestamps[m]
	return ts, ok && !ts.IsZero()
}

// SetTimestampOnce writes the milestone unless it already has a value.
// It reports whether the write happened.
func (t *Tracking) SetTimestampOnce(m Milestone, at time.Time) bool {
	if _, ok := t.Timestamp(m); ok {
		return false
	}
	if t.Timestamps == nil {
		t.Timestamps = make(map[Milestone]time.Time)
	}
	t.Timestamps[m] = at
	return true
}

func (t *Tracking) Clone() *Tracking {
	if t == nil {
		return nil
	}
	c := *t
	c.Timestamps = make(map[Milestone]time.Time, len(t.Timestamps))
	for k, v := range t.Timestamps {
		c.Timestamps[k] = v
	}
	c.StatusUpdates = make([]StatusUpdate, len(t.StatusUpdates))
	for i, u := range t.StatusUpdates {
		c.StatusUpdates[i] = u
		if u.Metadata != nil {
			md := make(map[string]string, len(u.Metadata))
			for k, v := range u.Metadata {
				md[k] = v
			}
			c.StatusUpdates[i].Metadata = md
		}
	}
	c.LocationHistory = append([]LocationPoint(nil), t.LocationHistory...)
	c.Notifications = append([]NotificationRecord(nil), t.Notifications...)
	c.CustomerInteractions = append([]CustomerInteraction(nil), t.CustomerInteractions...)
	if t.Driver != nil {
		d := *t.Driver
		if t.Driver.CurrentLocation != nil {
			loc := *t.Driver.CurrentLocation
			d.CurrentLocation = &loc
		}
		c.Driver = &d
	}
	return &c
}
