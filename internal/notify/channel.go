package notify

import (
	"context"
	"fmt"

	"github.com/chrisdamba/foodatrack/internal/models"
)

// Channel is one outbound delivery path. Send is called from dispatcher
// workers and may be retried.
type Channel interface {
	Name() string
	// Recipient returns where e would be sent, or "" when this channel has
	// nothing to send for e.
	Recipient(e Event) string
	Send(ctx context.Context, e Event) error
}

// Compose renders the customer-facing subject and body for e.
func Compose(e Event) (subject, body string) {
	ref := e.OrderID
	if len(ref) > 8 {
		ref = ref[len(ref)-8:]
	}
	subject = fmt.Sprintf("Sipariş #%s", ref)
	if e.Message != "" {
		subject += ": " + e.Message
	}
	body = fmt.Sprintf("Sipariş #%s: %s", ref, e.Message)
	if e.Type == models.EventDriverAssigned && e.Order != nil && e.Order.Tracking != nil && e.Order.Tracking.Driver != nil && e.Order.Tracking.Driver.Phone != "" {
		body += fmt.Sprintf(" (%s)", e.Order.Tracking.Driver.Phone)
	}
	return subject, body
}
