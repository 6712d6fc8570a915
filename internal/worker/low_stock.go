package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/flicky/luxbag-api/internal/model"
	"github.com/flicky/luxbag-api/internal/notify"
)

const lowStockRunTimeout = time.Minute

type LowStockSource interface {
	LowStock(ctx context.Context) ([]model.LowStockProduct, error)
}

// LowStockReporter periodically emails the admin the products that are
// running out.
type LowStockReporter struct {
	source     LowStockSource
	notifier   notify.Notifier
	adminEmail string
	log        *slog.Logger
	scheduler  gocron.Scheduler
}

func NewLowStockReporter(source LowStockSource, notifier notify.Notifier, adminEmail string, log *slog.Logger) *LowStockReporter {
	return &LowStockReporter{source: source, notifier: notifier, adminEmail: adminEmail, log: log}
}

// Start schedules Run every interval. Overlapping runs are skipped.
func (r *LowStockReporter) Start(ctx context.Context, interval time.Duration) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			runCtx, cancel := context.WithTimeout(ctx, lowStockRunTimeout)
			defer cancel()
			if err := r.Run(runCtx); err != nil {
				r.log.Error("low stock report", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("schedule low stock report: %w", err)
	}
	s.Start()
	r.scheduler = s
	r.log.Info("low stock reporter started", "interval", interval)
	return nil
}

// Run sends one report. Nothing is sent when no product is low.
func (r *LowStockReporter) Run(ctx context.Context) error {
	products, err := r.source.LowStock(ctx)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}
	msg, err := notify.LowStockReport(r.adminEmail, products)
	if err != nil {
		return err
	}
	if err := r.notifier.Send(ctx, msg); err != nil {
		return fmt.Errorf("send low stock report: %w", err)
	}
	r.log.Info("low stock report sent", "products", len(products))
	return nil
}

func (r *LowStockReporter) Stop() error {
	if r.scheduler == nil {
		return nil
	}
	return r.scheduler.Shutdown()
}
