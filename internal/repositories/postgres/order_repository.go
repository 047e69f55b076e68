package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/repositories"
)

// ChangeChannel is the LISTEN/NOTIFY channel carrying ids of changed orders.
const ChangeChannel = "order_changes"

const activeDriverIndex = "orders_active_driver_idx"

//go:embed schema.sql
var schema string

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Connect opens a pool for dsn and makes sure the schema exists.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to apply schema: %w", err)
	}
	return pool, nil
}

func (r *OrderRepository) Close() error {
	r.pool.Close()
	return nil
}

func driverID(o *models.Order) *string {
	if o.Tracking == nil || o.Tracking.Driver == nil || o.Tracking.Driver.ID == "" {
		return nil
	}
	id := o.Tracking.Driver.ID
	return &id
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if pgErr.ConstraintName == activeDriverIndex {
			return repositories.ErrDriverConflict
		}
		return repositories.ErrDuplicate
	}
	return err
}

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

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO orders (
            id, customer_id, restaurant_id, status, created_at, updated_at,
            version, driver_id, document
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err = tx.Exec(ctx, query,
		o.ID,
		o.CustomerID,
		o.RestaurantID,
		string(o.Status),
		o.CreatedAt,
		o.UpdatedAt,
		o.Version,
		driverID(o),
		doc,
	)
	if err != nil {
		return translate(err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, ChangeChannel, o.ID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, repositories.CallTimeout)
	defer cancel()
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT document FROM orders WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return decode(doc)
}

// Mutate locks the row with SELECT ... FOR UPDATE, applies fn and writes the
// document back. Listeners are notified when the transaction commits.
func (r *OrderRepository) Mutate(ctx context.Context, id string, fn repositories.MutateFunc) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, repositories.CallTimeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var doc []byte
	err = tx.QueryRow(ctx, `SELECT document FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

	query := `
        UPDATE orders
        SET status = $2, updated_at = $3, version = $4, driver_id = $5, document = $6
        WHERE id = $1
    `
	_, err = tx.Exec(ctx, query,
		id,
		string(order.Status),
		order.UpdatedAt,
		order.Version,
		driverID(order),
		updated,
	)
	if err != nil {
		return nil, translate(err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, ChangeChannel, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) List(ctx context.Context, q repositories.Query) ([]*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, repositories.CallTimeout)
	defer cancel()

	var where []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q.RestaurantID != "" {
		where = append(where, "restaurant_id = "+arg(q.RestaurantID))
	}
	if q.CustomerID != "" {
		where = append(where, "customer_id = "+arg(q.CustomerID))
	}
	if !q.CreatedAfter.IsZero() {
		where = append(where, "created_at > "+arg(q.CreatedAfter))
	}
	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, s := range q.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, "status = ANY("+arg(statuses)+")")
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
		query += " LIMIT " + arg(q.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// ForEach pages through all orders by creation time.
func (r *OrderRepository) ForEach(ctx context.Context, fn func(order *models.Order) error) error {
	const pageSize = 500
	var lastCreated time.Time
	lastID := ""
	first := true
	for {
		page, err := r.page(ctx, first, lastCreated, lastID, pageSize)
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
		first = false
		last := page[len(page)-1]
		lastCreated, lastID = last.CreatedAt, last.ID
	}
}

func (r *OrderRepository) page(ctx context.Context, first bool, afterCreated time.Time, afterID string, limit int) ([]*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, repositories.CallTimeout)
	defer cancel()
	var (
		rows pgx.Rows
		err  error
	)
	if first {
		rows, err = r.pool.Query(ctx, `SELECT document FROM orders ORDER BY created_at, id LIMIT $1`, limit)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT document FROM orders WHERE (created_at, id) > ($1, $2) ORDER BY created_at, id LIMIT $3`,
			afterCreated, afterID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (r *OrderRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, repositories.CallTimeout)
	defer cancel()
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count)
	return count, err
}

func scanDocuments(rows pgx.Rows) ([]*models.Order, error) {
	var orders []*models.Order
	for rows.Next() {
		var doc []byte
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

func decode(doc []byte) (*models.Order, error) {
	var o models.Order
	if err := json.Unmarshal(doc, &o); err != nil {
		return nil, fmt.Errorf("decode order document: %w", err)
	}
	return &o, nil
}
