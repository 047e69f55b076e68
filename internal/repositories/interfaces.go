package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/chrisdamba/foodatrack/internal/models"
)

// ErrNotFound is returned by Mutate when the order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrDuplicate is returned by Create when the id is already taken.
var ErrDuplicate = errors.New("order already exists")

// ErrDriverConflict is returned when a write would leave one driver on two
// orders that are both still in flight.
var ErrDriverConflict = errors.New("driver already holds an active order")

// CallTimeout bounds every individual store call.
const CallTimeout = 3 * time.Second

// MutateFunc edits the order in place inside the store transaction.
// Returning an error rolls the transaction back.
type MutateFunc func(order *models.Order) error

// ChangeHandler receives a freshly decoded order after each committed write.
type ChangeHandler func(order *models.Order)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	// GetByID returns (nil, nil) when the order does not exist.
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// Mutate loads the order under a row lock, applies fn and writes the
	// result back in the same transaction.
	Mutate(ctx context.Context, id string, fn MutateFunc) (*models.Order, error)
	List(ctx context.Context, q Query) ([]*models.Order, error)
	// ForEach streams every order in creation order.
	ForEach(ctx context.Context, fn func(order *models.Order) error) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// Order-by keys accepted by Query.
const (
	OrderByCreatedAt = "created_at"
	OrderByUpdatedAt = "updated_at"
)

// Query filters orders for dashboards. The zero value selects all orders,
// newest first.
type Query struct {
	RestaurantID string
	CustomerID   string
	Statuses     []models.OrderStatus
	CreatedAfter time.Time
	OrderBy      string
	Ascending    bool
	Limit        int
}

// Matches reports whether order satisfies the filters of q. Ordering and
// limit are not considered.
func (q Query) Matches(order *models.Order) bool {
	if order == nil {
		return false
	}
	if q.RestaurantID != "" && order.RestaurantID != q.RestaurantID {
		return false
	}
	if q.CustomerID != "" && order.CustomerID != q.CustomerID {
		return false
	}
	if !q.CreatedAfter.IsZero() && !order.CreatedAt.After(q.CreatedAfter) {
		return false
	}
	if len(q.Statuses) > 0 {
		for _, s := range q.Statuses {
			if order.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

// SortColumn returns the column used for ordering, defaulting to created_at.
func (q Query) SortColumn() string {
	if q.OrderBy == OrderByUpdatedAt {
		return OrderByUpdatedAt
	}
	return OrderByCreatedAt
}
