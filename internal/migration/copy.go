// Package migration copies orders between stores, repairing records written
// by older producers on the way.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/pricing"
	"github.com/chrisdamba/foodatrack/internal/repositories"
	"github.com/chrisdamba/foodatrack/internal/tracking"
)

// Result counts what happened to each source order.
type Result struct {
	Copied     int
	Duplicates int
	Rejected   int
	Coerced    int
}

type Options struct {
	Pricing models.PricingConfig
	Logger  *slog.Logger
	// Progress is called once per source order.
	Progress func()
}

// Copy streams every order from src into dst. Orders already present in
// dst are left untouched. Orders whose status cannot be recognised are
// rejected and logged; the copy carries on.
func Copy(ctx context.Context, src, dst repositories.OrderRepository, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "migration")

	result := &Result{}
	err := src.ForEach(ctx, func(order *models.Order) error {
		if opts.Progress != nil {
			defer opts.Progress()
		}
		changed, err := Coerce(order, opts.Pricing)
		if err != nil {
			result.Rejected++
			logger.Warn("order rejected", "order_id", order.ID, "error", err)
			return nil
		}
		if err := dst.Create(ctx, order); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				result.Duplicates++
				return nil
			}
			return fmt.Errorf("copy order %s: %w", order.ID, err)
		}
		if changed {
			result.Coerced++
		}
		result.Copied++
		return nil
	})
	if err != nil {
		return result, err
	}
	logger.Info("migration finished",
		"copied", result.Copied, "coerced", result.Coerced,
		"duplicates", result.Duplicates, "rejected", result.Rejected)
	return result, nil
}

// Coerce repairs order in place and reports whether anything changed.
func Coerce(order *models.Order, cfg models.PricingConfig) (bool, error) {
	changed := false
	if order.ID == "" {
		return false, errors.New("order has no id")
	}

	status, ok := models.ParseOrderStatus(string(order.Status))
	if !ok {
		return false, fmt.Errorf("unknown status %q", order.Status)
	}
	if status != order.Status {
		order.Status = status
		changed = true
	}

	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
		changed = true
	}

	if order.TotalAmount == 0 && len(order.Items) > 0 {
		order.TotalAmount = pricing.Calculate(cfg, order.Items).Total
		changed = true
	}

	if order.Tracking == nil {
		order.Tracking = models.NewTracking(order.CreatedAt)
		order.Tracking.Status = order.Status
		order.Tracking.DeliveryStatus = tracking.DeliveryStatusFor(order.Status)
		changed = true
	} else {
		ts, ok := models.ParseOrderStatus(string(order.Tracking.Status))
		if !ok {
			ts = order.Status
		}
		if ts != order.Tracking.Status {
			order.Tracking.Status = ts
			changed = true
		}
		if ds := tracking.DeliveryStatusFor(ts); ds != order.Tracking.DeliveryStatus {
			order.Tracking.DeliveryStatus = ds
			changed = true
		}
	}
	for i, u := range order.Tracking.StatusUpdates {
		if s, ok := models.ParseOrderStatus(string(u.Status)); ok && s != u.Status {
			order.Tracking.StatusUpdates[i].Status = s
			changed = true
		}
	}
	return changed, nil
}
