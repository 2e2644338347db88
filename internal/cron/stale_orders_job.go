package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/branchpay/checkout-backend/internal/orders"
	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/enums"
	pkgerrors "github.com/branchpay/checkout-backend/pkg/errors"
	"github.com/branchpay/checkout-backend/pkg/logger"
)

const (
	defaultStaleOrderAge   = 24 * time.Hour
	defaultStaleOrderLimit = 200

	staleOrderReason = "Payment was not started before the order expired"
)

type staleOrderReader interface {
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error)
}

type StaleOrdersJobParams struct {
	Logger *logger.Logger
	Orders staleOrderReader
	Ledger orders.Service
	MaxAge time.Duration
	Limit  int
	Now    func() time.Time
}

// NewStaleOrdersJob fails pending orders that never got a payment intent,
// typically because intent creation timed out. Such orders can never be
// confirmed, so they are closed once they are older than MaxAge.
func NewStaleOrdersJob(params StaleOrdersJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultStaleOrderAge
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultStaleOrderLimit
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &staleOrdersJob{
		logg:   params.Logger,
		orders: params.Orders,
		ledger: params.Ledger,
		maxAge: maxAge,
		limit:  limit,
		now:    now,
	}, nil
}

type staleOrdersJob struct {
	logg   *logger.Logger
	orders staleOrderReader
	ledger orders.Service
	maxAge time.Duration
	limit  int
	now    func() time.Time
}

func (j *staleOrdersJob) Name() string { return "stale-orders" }

func (j *staleOrdersJob) Run(ctx context.Context) (int, error) {
	cutoff := j.now().UTC().Add(-j.maxAge)
	stale, err := j.orders.ListStalePending(ctx, cutoff, j.limit)
	if err != nil {
		return 0, fmt.Errorf("list stale orders: %w", err)
	}

	reason := staleOrderReason
	var errs error
	expired := 0
	for i := range stale {
		order := &stale[i]
		err := j.ledger.UpdateStatus(ctx, order, enums.OrderStatusFailed, orders.StatusFields{FailureReason: &reason})
		if err != nil {
			// Lost a race with a late intent or a confirm; the order moved on.
			if pkgerrors.As(err).Code() == pkgerrors.CodeStateConflict {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("expire order %d: %w", order.ID, err))
			continue
		}
		expired++
		j.logg.Info(j.logg.WithOrderID(ctx, order.ID), "maintenance.order_expired")
	}
	return expired, errs
}
