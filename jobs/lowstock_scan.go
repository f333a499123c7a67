package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/pharmacore/pharmacore/internal/catalog"
	"github.com/pharmacore/pharmacore/internal/shared"
)

// LowStockScanJob records an activity event listing products at or below
// their reorder level so the morning shift sees what needs ordering.
type LowStockScanJob struct {
	Service  *catalog.Service
	Activity shared.ActivityPort
	Logger   *slog.Logger
}

// NewLowStockScanJob initialises the scan handler.
func NewLowStockScanJob(service *catalog.Service, activity shared.ActivityPort, logger *slog.Logger) *LowStockScanJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &LowStockScanJob{Service: service, Activity: activity, Logger: logger}
}

// Handle executes the scan.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	products, err := j.Service.LowStock(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		j.Logger.Warn("product below reorder level",
			slog.String("product", p.Name),
			slog.String("batch", p.BatchNumber),
			slog.Int64("current_stock", p.CurrentStock),
			slog.Int64("min_stock_level", p.MinStockLevel))
	}
	if j.Activity != nil && len(products) > 0 {
		event := shared.ActivityEvent{
			ActionCode: "low_stock_scan",
			Message:    fmt.Sprintf("%d products at or below reorder level", len(products)),
		}
		if err := j.Activity.Record(ctx, event); err != nil {
			j.Logger.Warn("activity log append failed", slog.Any("error", err))
		}
	}
	return nil
}
