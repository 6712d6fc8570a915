// Package worker consumes order events and runs scheduled reports.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flicky/luxbag-api/internal/events"
	"github.com/flicky/luxbag-api/internal/model"
	"github.com/flicky/luxbag-api/internal/notify"
	"github.com/flicky/luxbag-api/internal/repository"
	"github.com/flicky/luxbag-api/internal/telemetry"
)

const (
	idempotencyPrefix = "order_event:"
	idempotencyTTL    = 24 * time.Hour
)

const (
	outcomeProcessed = "processed"
	outcomeDuplicate = "duplicate"
	outcomeSkipped   = "skipped"
	outcomeMalformed = "malformed"
	outcomeFailed    = "failed"
)

var (
	// errMalformed marks events that can never succeed.
	errMalformed = errors.New("malformed order event")
	// errTransient marks failures worth redelivering.
	errTransient = errors.New("transient order event failure")
)

// OrderWorker emails customers when their orders are placed or change status.
type OrderWorker struct {
	orderRepo   repository.OrderRepository
	userRepo    repository.UserRepository
	redisClient *redis.Client
	notifier    notify.Notifier
	log         *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrderWorker builds a worker. redisClient may be nil, which disables
// duplicate detection.
func NewOrderWorker(
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	redisClient *redis.Client,
	notifier notify.Notifier,
	log *slog.Logger,
) *OrderWorker {
	return &OrderWorker{
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		redisClient: redisClient,
		notifier:    notifier,
		log:         log,
	}
}

// Handle processes one encoded event. Delivering the same event twice within
// the idempotency window sends one email.
func (w *OrderWorker) Handle(ctx context.Context, body []byte) error {
	event, err := events.Decode(body)
	if err != nil {
		telemetry.EventsProcessed.WithLabelValues(outcomeMalformed).Inc()
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	log := w.log.With("event_id", event.ID, "event_type", event.Type, "order_id", event.OrderID)

	key := idempotencyPrefix + event.ID.String()
	if w.redisClient != nil {
		exists, err := w.redisClient.Exists(ctx, key).Result()
		if err != nil {
			telemetry.EventsProcessed.WithLabelValues(outcomeFailed).Inc()
			return fmt.Errorf("%w: check idempotency key: %v", errTransient, err)
		}
		if exists > 0 {
			log.Info("order event already processed, skipping")
			telemetry.EventsProcessed.WithLabelValues(outcomeDuplicate).Inc()
			return nil
		}
	}

	sent, err := w.deliver(ctx, event)
	if err != nil {
		outcome := outcomeFailed
		if errors.Is(err, errMalformed) {
			outcome = outcomeMalformed
		}
		telemetry.EventsProcessed.WithLabelValues(outcome).Inc()
		return err
	}
	if !sent {
		log.Warn("order owner no longer exists, notification skipped")
		telemetry.EventsProcessed.WithLabelValues(outcomeSkipped).Inc()
		return nil
	}

	if w.redisClient != nil {
		if err := w.redisClient.Set(ctx, key, "1", idempotencyTTL).Err(); err != nil {
			log.Error("set idempotency key", "error", err)
		}
	}
	telemetry.EventsProcessed.WithLabelValues(outcomeProcessed).Inc()
	log.Info("order event processed")
	return nil
}

func (w *OrderWorker) deliver(ctx context.Context, event events.OrderEvent) (bool, error) {
	order, err := w.orderRepo.GetByID(ctx, event.OrderID)
	if err != nil {
		return false, fmt.Errorf("%w: get order: %v", errTransient, err)
	}
	if order == nil {
		return false, fmt.Errorf("%w: order %s not found", errMalformed, event.OrderID)
	}
	user, err := w.userRepo.GetByID(ctx, order.UserID)
	if err != nil {
		return false, fmt.Errorf("%w: get user: %v", errTransient, err)
	}
	if user == nil {
		return false, nil
	}

	msg, err := buildMessage(event.Type, user, order)
	if err != nil {
		return false, err
	}
	if err := w.notifier.Send(ctx, msg); err != nil {
		return false, fmt.Errorf("send %s email: %w", event.Type, err)
	}
	return true, nil
}

func buildMessage(t events.Type, user *model.User, order *model.Order) (notify.Message, error) {
	switch t {
	case events.OrderPlaced:
		return notify.OrderPlaced(user, order)
	case events.OrderStatusChanged:
		return notify.OrderStatusChanged(user, order)
	default:
		return notify.Message{}, fmt.Errorf("%w: unknown type %q", errMalformed, t)
	}
}

// run starts loop in the background with a context Stop can cancel.
func (w *OrderWorker) run(ctx context.Context, loop func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		loop(ctx)
	}()
}

// Stop cancels the consumer loop and waits for the in-flight event.
func (w *OrderWorker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}
