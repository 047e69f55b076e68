package tracking

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("order not found")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrInvalidActor       = errors.New("invalid actor")
	ErrIllegalTransition  = errors.New("illegal status transition")
	ErrInvalidDriver      = errors.New("invalid driver")
	ErrDriverBusy         = errors.New("driver is assigned to another active order")
	ErrInvalidLocation    = errors.New("invalid coordinates")
	ErrInvalidInteraction = errors.New("invalid customer interaction")
	ErrInvalidOrder       = errors.New("invalid order")
)

// PersistenceError wraps a failure of the underlying store.
type PersistenceError struct {
	Op      string
	OrderID string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s order %s: %v", e.Op, e.OrderID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
