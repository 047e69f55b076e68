package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chrisdamba/foodatrack/internal/repositories"
)

// Listener turns NOTIFY messages on ChangeChannel into change callbacks so
// that writes made by other processes reach local observers too.
type Listener struct {
	pool   *pgxpool.Pool
	repo   *OrderRepository
	logger *slog.Logger
}

func NewListener(pool *pgxpool.Pool, logger *slog.Logger) *Listener {
	return &Listener{pool: pool, repo: NewOrderRepository(pool), logger: logger}
}

// Run blocks until ctx is cancelled, reconnecting after connection loss.
func (l *Listener) Run(ctx context.Context, handler repositories.ChangeHandler) error {
	for {
		err := l.listen(ctx, handler)
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warn("order change listener interrupted", "error", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

func (l *Listener) listen(ctx context.Context, handler repositories.ChangeHandler) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		return fmt.Errorf("listen %s: %w", ChangeChannel, err)
	}
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		order, err := l.repo.GetByID(ctx, n.Payload)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			l.logger.Error("failed to load changed order", "order_id", n.Payload, "error", err)
			continue
		}
		if order != nil {
			handler(order)
		}
	}
}
