package tracking

import (
	"context"

	"github.com/chrisdamba/foodatrack/internal/models"
)

// The operations below report only success or failure. Every error is
// logged here and swallowed; callers treat false as retryable.

// UpdateOrderStatus moves an order to status. See Transition.
func (t *Tracker) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, updatedBy models.Actor, description string, metadata map[string]string) bool {
	_, err := t.Transition(ctx, TransitionRequest{
		OrderID:     orderID,
		Status:      status,
		UpdatedBy:   updatedBy,
		Description: description,
		Metadata:    metadata,
	})
	return t.report(err, "update order status", "order_id", orderID, "status", status)
}

// AssignDriver attaches driver to the order. See Assign.
func (t *Tracker) AssignDriver(ctx context.Context, orderID string, driver models.Driver) bool {
	_, err := t.Assign(ctx, orderID, driver)
	return t.report(err, "assign driver", "order_id", orderID, "driver_id", driver.ID)
}

// UpdateDriverLocation records a courier position. See RecordLocation.
func (t *Tracker) UpdateDriverLocation(ctx context.Context, orderID string, lat, lng float64, status models.OrderStatus, description string) bool {
	_, err := t.RecordLocation(ctx, LocationRequest{
		OrderID:     orderID,
		Lat:         lat,
		Lng:         lng,
		Status:      status,
		Description: description,
	})
	return t.report(err, "update driver location", "order_id", orderID)
}

// LogCustomerInteraction records a pending customer request. See RecordInteraction.
func (t *Tracker) LogCustomerInteraction(ctx context.Context, orderID string, kind models.InteractionType, notes string) bool {
	_, err := t.RecordInteraction(ctx, orderID, kind, notes)
	return t.report(err, "log customer interaction", "order_id", orderID, "type", kind)
}

func (t *Tracker) report(err error, op string, attrs ...any) bool {
	if err == nil {
		return true
	}
	t.logger.Error("failed to "+op, append(attrs, "error", err)...)
	return false
}
