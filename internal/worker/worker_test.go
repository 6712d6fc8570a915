package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/luxbag-api/internal/events"
	"github.com/flicky/luxbag-api/internal/model"
	"github.com/flicky/luxbag-api/internal/notify"
	"github.com/flicky/luxbag-api/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *fakeNotifier) messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.sent...)
}

type workerFixture struct {
	repos    repository.Repositories
	notifier *fakeNotifier
	worker   *OrderWorker
	user     *model.User
	order    *model.Order
}

func newWorkerFixture(t *testing.T, redisClient *redis.Client) *workerFixture {
	t.Helper()
	ctx := context.Background()
	repos := repository.NewMemoryRepositories(repository.NewMemoryStore())

	user := &model.User{Name: "Ava", Email: "ava@example.com", Password: "x", Role: model.RoleUser}
	require.NoError(t, repos.Users.Create(ctx, user))

	order := &model.Order{
		OrderNumber: "ORD-1",
		UserID:      user.ID,
		Items: []model.OrderItem{
			{ProductID: uuid.New(), Name: "Kelly", Quantity: 1, Price: decimal.NewFromInt(9000)},
		},
		ShippingAddress: model.Address{Street: "1 Rue", City: "Paris"},
		PaymentMethod:   model.DefaultPaymentMethod,
		ItemsPrice:      decimal.NewFromInt(9000),
		ShippingPrice:   decimal.Zero,
		TaxPrice:        decimal.NewFromInt(1620),
		TotalPrice:      decimal.NewFromInt(10620),
		Status:          model.OrderStatusProcessing,
		PaymentStatus:   model.PaymentStatusPending,
	}
	require.NoError(t, repos.Orders.Create(ctx, order))

	notifier := &fakeNotifier{}
	return &workerFixture{
		repos:    repos,
		notifier: notifier,
		worker:   NewOrderWorker(repos.Orders, repos.Users, redisClient, notifier, discardLogger()),
		user:     user,
		order:    order,
	}
}

func encode(t *testing.T, typ events.Type, order *model.Order) []byte {
	t.Helper()
	body, err := events.NewOrderEvent(typ, order).Marshal()
	require.NoError(t, err)
	return body
}

func TestHandle_OrderPlacedSendsConfirmation(t *testing.T) {
	f := newWorkerFixture(t, nil)

	require.NoError(t, f.worker.Handle(context.Background(), encode(t, events.OrderPlaced, f.order)))

	sent := f.notifier.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "ava@example.com", sent[0].To)
	assert.Contains(t, sent[0].Subject, "ORD-1")
}

func TestHandle_StatusChangedUsesCurrentStatus(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.order.Status = model.OrderStatusShipped
	require.NoError(t, f.repos.Orders.UpdateStatus(context.Background(), f.order))

	require.NoError(t, f.worker.Handle(context.Background(), encode(t, events.OrderStatusChanged, f.order)))

	sent := f.notifier.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Order ORD-1: Shipped", sent[0].Subject)
}

func TestHandle_Malformed(t *testing.T) {
	f := newWorkerFixture(t, nil)

	err := f.worker.Handle(context.Background(), []byte("{not json"))
	assert.ErrorIs(t, err, errMalformed)

	missing := *f.order
	missing.ID = uuid.New()
	err = f.worker.Handle(context.Background(), encode(t, events.OrderPlaced, &missing))
	assert.ErrorIs(t, err, errMalformed)
	assert.Empty(t, f.notifier.messages())
}

func TestHandle_DeletedUserIsSkipped(t *testing.T) {
	f := newWorkerFixture(t, nil)
	require.NoError(t, f.repos.Users.Delete(context.Background(), f.user.ID))

	require.NoError(t, f.worker.Handle(context.Background(), encode(t, events.OrderPlaced, f.order)))
	assert.Empty(t, f.notifier.messages())
}

func TestHandle_SendFailureIsNotTransient(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.notifier.err = notify.ErrUnavailable

	err := f.worker.Handle(context.Background(), encode(t, events.OrderPlaced, f.order))
	require.Error(t, err)
	assert.ErrorIs(t, err, notify.ErrUnavailable)
	assert.NotErrorIs(t, err, errTransient)
}

func TestHandle_RedisDownIsTransient(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	f := newWorkerFixture(t, client)

	err := f.worker.Handle(context.Background(), encode(t, events.OrderPlaced, f.order))
	assert.ErrorIs(t, err, errTransient)
	assert.Empty(t, f.notifier.messages())
}

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		msg := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type fakeWriter struct {
	mu      sync.Mutex
	written []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) messages() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.written...)
}

func TestStartKafka_CommitsEveryMessage(t *testing.T) {
	f := newWorkerFixture(t, nil)
	reader := &fakeReader{pending: []kafka.Message{
		{Topic: "order_events", Offset: 1, Key: []byte("k"), Value: []byte("garbage")},
		{Topic: "order_events", Offset: 2, Value: encode(t, events.OrderPlaced, f.order)},
	}}
	dlq := &fakeWriter{}

	f.worker.StartKafka(context.Background(), reader, dlq)
	require.Eventually(t, func() bool { return reader.commits() == 2 }, time.Second, 10*time.Millisecond)
	f.worker.Stop()

	assert.Len(t, f.notifier.messages(), 1)

	dead := dlq.messages()
	require.Len(t, dead, 1)
	assert.Equal(t, []byte("garbage"), dead[0].Value)
	assert.Equal(t, []byte("k"), dead[0].Key)
	headers := map[string]string{}
	for _, h := range dead[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "order_events/0/1", headers["x-source"])
	assert.Contains(t, headers["x-error"], errMalformed.Error())
}

func TestStartKafka_DeadLettersPermanentFailures(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.notifier.err = notify.ErrUnavailable
	reader := &fakeReader{pending: []kafka.Message{
		{Offset: 7, Value: encode(t, events.OrderPlaced, f.order)},
	}}
	dlq := &fakeWriter{}

	f.worker.StartKafka(context.Background(), reader, dlq)
	require.Eventually(t, func() bool { return reader.commits() == 1 }, time.Second, 10*time.Millisecond)
	f.worker.Stop()

	require.Len(t, dlq.messages(), 1)
}

func TestStartKafka_NilDeadLetterOnlyCommits(t *testing.T) {
	f := newWorkerFixture(t, nil)
	reader := &fakeReader{pending: []kafka.Message{{Offset: 1, Value: []byte("garbage")}}}

	f.worker.StartKafka(context.Background(), reader, nil)
	require.Eventually(t, func() bool { return reader.commits() == 1 }, time.Second, 10*time.Millisecond)
	f.worker.Stop()
}

func TestDeadLetterTopic(t *testing.T) {
	assert.Equal(t, "order_events.dlq", DeadLetterTopic("order_events"))
}

type fakeLowStock struct {
	products []model.LowStockProduct
	err      error
}

func (s fakeLowStock) LowStock(context.Context) ([]model.LowStockProduct, error) {
	return s.products, s.err
}

func TestLowStockReporter_Run(t *testing.T) {
	ctx := context.Background()

	notifier := &fakeNotifier{}
	r := NewLowStockReporter(fakeLowStock{}, notifier, "admin@example.com", discardLogger())
	require.NoError(t, r.Run(ctx))
	assert.Empty(t, notifier.messages())

	r = NewLowStockReporter(fakeLowStock{products: []model.LowStockProduct{
		{ID: uuid.New(), Name: "Kelly", Brand: "Hermes", Stock: 1},
		{ID: uuid.New(), Name: "Jackie", Brand: "Gucci", Stock: 3},
	}}, notifier, "admin@example.com", discardLogger())
	require.NoError(t, r.Run(ctx))
	sent := notifier.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "admin@example.com", sent[0].To)
	assert.Equal(t, "Low stock report: 2 products", sent[0].Subject)
	assert.Contains(t, sent[0].Body, "Kelly")

	r = NewLowStockReporter(fakeLowStock{err: errors.New("db down")}, notifier, "admin@example.com", discardLogger())
	assert.Error(t, r.Run(ctx))
}

func TestLowStockReporter_StartStop(t *testing.T) {
	notifier := &fakeNotifier{}
	r := NewLowStockReporter(fakeLowStock{products: []model.LowStockProduct{{Name: "Kelly", Stock: 1}}},
		notifier, "admin@example.com", discardLogger())

	require.NoError(t, r.Start(context.Background(), 20*time.Millisecond))
	require.Eventually(t, func() bool { return len(notifier.messages()) > 0 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, r.Stop())
}
