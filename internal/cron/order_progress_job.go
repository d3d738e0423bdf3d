package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const defaultProgressBatch = 500

type openOrders interface {
	ListOpen(ctx context.Context, after *pagination.Cursor, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error)
}

// OrderProgressJobParams configure the fulfillment progression job.
type OrderProgressJobParams struct {
	Logger    *logger.Logger
	Orders    openOrders
	BatchSize int
}

// NewOrderProgressJob advances open orders along the fulfillment schedule so
// order history and tracking reflect their age.
func NewOrderProgressJob(params OrderProgressJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultProgressBatch
	}
	return &orderProgressJob{
		logg:   params.Logger,
		orders: params.Orders,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type orderProgressJob struct {
	logg   *logger.Logger
	orders openOrders
	batch  int
	now    func() time.Time
}

func (j *orderProgressJob) Name() string { return "order-progress" }

// Run walks every open order in (created_at, id) pages of j.batch.
func (j *orderProgressJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var (
		errs     error
		after    *pagination.Cursor
		scanned  int
		advanced int
	)
	for {
		page, err := j.orders.ListOpen(ctx, after, j.batch)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("list open orders: %w", err))
			break
		}
		scanned += len(page)
		for _, order := range page {
			ok, err := j.advance(ctx, order, now)
			if err != nil {
				errs = multierr.Append(errs, err)
			} else if ok {
				advanced++
			}
		}
		if len(page) < j.batch {
			break
		}
		last := page[len(page)-1]
		after = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"scanned":  scanned,
		"advanced": advanced,
	}), "cron.orders_advanced")
	return errs
}

func (j *orderProgressJob) advance(ctx context.Context, order models.Order, now time.Time) (bool, error) {
	next := orders.ScheduledStatus(order, now)
	if next == order.Status {
		return false, nil
	}
	changed, err := j.orders.UpdateStatus(ctx, order.ID, order.Status, next)
	if err != nil {
		return false, fmt.Errorf("advance order %s: %w", order.ID, err)
	}
	return changed, nil
}
