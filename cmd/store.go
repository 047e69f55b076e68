package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/repositories"
	"github.com/chrisdamba/foodatrack/internal/repositories/postgres"
	"github.com/chrisdamba/foodatrack/internal/repositories/sqlite"
)

// store is an order repository plus the way to follow its commits.
type store struct {
	repo repositories.OrderRepository
	// watch delivers every committed order to handler until ctx is done.
	watch func(ctx context.Context, handler repositories.ChangeHandler)
}

func openStore(ctx context.Context, sc models.StoreConfig, logger *slog.Logger) (*store, error) {
	switch sc.Driver {
	case "postgres":
		pool, err := postgres.Connect(ctx, sc.DSN)
		if err != nil {
			return nil, err
		}
		listener := postgres.NewListener(pool, logger)
		return &store{
			repo: postgres.NewOrderRepository(pool),
			watch: func(ctx context.Context, handler repositories.ChangeHandler) {
				go func() {
					if err := listener.Run(ctx, handler); err != nil && ctx.Err() == nil {
						logger.Error("order change listener stopped", "error", err)
					}
				}()
			},
		}, nil
	case "sqlite":
		db, err := sqlite.Open(sc.DSN)
		if err != nil {
			return nil, err
		}
		repo := sqlite.NewOrderRepository(db, nil)
		return &store{
			repo: repo,
			watch: func(_ context.Context, handler repositories.ChangeHandler) {
				repo.OnCommit(handler)
			},
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", sc.Driver)
}
