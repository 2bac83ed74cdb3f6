package expiry

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// service is the slice of the order service the sweep needs.
type service interface {
	OverduePendingOrders(ctx context.Context, limit int) ([]int64, error)
	ExpireOrder(ctx context.Context, orderID int64) error
}

// Worker is the recovery side of order expiry. The in-process timer armed
// at creation handles the common case; this sweep resolves orders whose
// timer was lost to a restart, using the deadline persisted on each order.
type Worker struct {
	service      service
	pollInterval time.Duration
	batchSize    int
	stopCh       chan struct{}
}

// NewWorker creates a new expiry sweep worker.
func NewWorker(svc service) *Worker {
	pollIntervalSeconds := viper.GetInt("orders.expiry.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 60
	}

	batchSize := viper.GetInt("orders.expiry.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	return &Worker{
		service:      svc,
		pollInterval: time.Duration(pollIntervalSeconds) * time.Second,
		batchSize:    batchSize,
		stopCh:       make(chan struct{}),
	}
}

// Start begins sweeping for overdue unpaid orders. The first sweep runs
// immediately so a restart resolves already-overdue orders without waiting
// a full poll interval.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Expiry sweep worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Expiry sweep worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Expiry sweep worker stopped")

			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// sweep expires every overdue unpaid order it finds, each independently:
// one order failing must not abort the rest.
func (w *Worker) sweep(ctx context.Context) {
	orderIds, err := w.service.OverduePendingOrders(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to list overdue orders", "error", err)

		return
	}

	if len(orderIds) == 0 {
		return
	}

	slog.Info("Sweeping overdue unpaid orders", "count", len(orderIds))

	for _, orderID := range orderIds {
		if err := w.service.ExpireOrder(ctx, orderID); err != nil {
			slog.Error("Failed to expire overdue order", "order_id", orderID, "error", err)
		}
	}
}
