package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/repositories"
)

// timeLayout is fixed width so that text comparison orders like time.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// OrderRepository stores each order as a JSON document next to the
// columns dashboards filter on.
type OrderRepository struct {
	db       *sql.DB
	onCommit repositories.ChangeHandler
}

// NewOrderRepository creates a new OrderRepository. onCommit may be nil.
func NewOrderRepository(db *sql.DB, onCommit repositories.ChangeHandler) *OrderRepository {
	return &OrderRepository{db: db, onCommit: onCommit}
}

// OnCommit replaces the change handler.
func (r *OrderRepository) OnCommit(fn repositories.ChangeHandler) {
	r.onCommit = fn
}

func (r *OrderRepository) Close() error {
	return r.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func driverID(o *models.Order) sql.NullString {
	if o.Tracking == nil || o.Tracking.Driver == nil || o.Tracking.Driver.ID == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: o.Tracking.Driver.ID, Valid: true}
}

func translate(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		if strings.Contains(se.Error(), "driver_id") {
			return repositories.ErrDriverConflict
		}
		return repositories.ErrDuplicate
	}
	return err
}

// Create inserts a new order. Version starts at 1 when unset.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	if o == nil {
		return errors.New("order is nil")
	}
	if o.Version == 0 {
		o.Version = 1
	}
	doc, err := json.Marshal(o)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, repositories.CallTimeout)
	defer cancel()

	_, err = r.db.ExecContext(ctx, `INSERT INTO orders (id, customer_id, restaurant_id, status, created_at, updated_at, version, driver_id, document) VALUES (?,?,?,?,?,?,?,?,?)`,
		o.ID, o.CustomerID, o.RestaurantID, string(o.Status), formatTime(o.CreatedAt), formatTime(o.UpdatedAt), o.Version, driverID(o), string(doc))
	if err != nil {
		return translate(err)
	}
	r.notify(o)
	return nil
}

// GetByID fetches an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, repositories.CallTimeout)
	defer cancel()
	var doc string
	err := r.db.QueryRowContext(ctx, `SELECT document FROM orders WHERE id = ?`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return decode(doc)
}

// Mutate runs fn against the stored order inside an immediate transaction.
func (r *OrderRepository) Mutate(ctx context.Context, id string, fn repositories.MutateFunc) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, repositories.CallTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var doc string
	err = tx.QueryRowContext(ctx, `SELECT document FROM orders WHERE id = ?`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	order, err := decode(doc)
	if err != nil {
		return nil, err
	}
	if err := fn(order); err != nil {
		return nil, err
	}
	order.Version++
	updated, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ?, version = ?, driver_id = ?, document = ? WHERE id = ?`,
		string(order.Status), formatTime(order.UpdatedAt), order.Version, driverID(order), string(updated), id)
	if err != nil {
		return nil, translate(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	r.notify(order)
	return order, nil
}

// List returns the orders matching q.
func (r *OrderRepository) List(ctx context.Context, q repositories.Query) ([]*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, repositories.CallTimeout)
	defer cancel()

	var where []string
	var args []interface{}
	if q.RestaurantID != "" {
		where = append(where, "restaurant_id = ?")
		args = append(args, q.RestaurantID)
	}
	if q.CustomerID != "" {
		where = append(where, "customer_id = ?")
		args = append(args, q.CustomerID)
	}
	if !q.CreatedAfter.IsZero() {
		where = append(where, "created_at > ?")
		args = append(args, formatTime(q.CreatedAfter))
	}
	if len(q.Statuses) > 0 {
		placeholders := make([]string, len(q.Statuses))
		for i, s := range q.Statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ",")+")")
	}

	query := `SELECT document FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	dir := "DESC"
	if q.Ascending {
		dir = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id %s", q.SortColumn(), dir, dir)
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// ForEach pages through all orders by creation time so fn may itself use
// the store between pages.
func (r *OrderRepository) ForEach(ctx context.Context, fn func(order *models.Order) error) error {
	const pageSize = 200
	lastCreated, lastID := "", ""
	for {
		page, err := r.page(ctx, lastCreated, lastID, pageSize)
		if err != nil {
			return err
		}
		for _, o := range page {
			if err := fn(o); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
		last := page[len(page)-1]
		lastCreated, lastID = formatTime(last.CreatedAt), last.ID
	}
}

func (r *OrderRepository) page(ctx context.Context, afterCreated, afterID string, limit int) ([]*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, repositories.CallTimeout)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT document FROM orders WHERE (created_at, id) > (?, ?) ORDER BY created_at, id LIMIT ?`,
		afterCreated, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// Count returns the number of stored orders.
func (r *OrderRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, repositories.CallTimeout)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n)
	return n, err
}

func (r *OrderRepository) notify(o *models.Order) {
	if r.onCommit != nil {
		r.onCommit(o.Clone())
	}
}

func scanDocuments(rows *sql.Rows) ([]*models.Order, error) {
	var orders []*models.Order
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		o, err := decode(doc)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func decode(doc string) (*models.Order, error) {
	var o models.Order
	if err := json.Unmarshal([]byte(doc), &o); err != nil {
		return nil, fmt.Errorf("decode order document: %w", err)
	}
	return &o, nil
}
