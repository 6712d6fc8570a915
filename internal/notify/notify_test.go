package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/flicky/luxbag-api/internal/model"
)

type fakeDialer struct {
	err   error
	calls int
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.calls++
	return d.err
}

func TestSMTPNotifier_Sends(t *testing.T) {
	d := &fakeDialer{}
	n := NewSMTPNotifier(d, "orders@example.com", time.Minute)

	err := n.Send(context.Background(), Message{To: "c@example.com", Subject: "hi", Body: "body"})
	require.NoError(t, err)
	assert.Equal(t, 1, d.calls)
}

func TestSMTPNotifier_BreakerOpensAfterFailures(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	n := NewSMTPNotifier(d, "orders@example.com", time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := n.Send(ctx, Message{To: "c@example.com"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, n.State())

	err := n.Send(ctx, Message{To: "c@example.com"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, d.calls)
}

func TestOrderPlacedMessage(t *testing.T) {
	user := &model.User{Name: "Ava", Email: "ava@example.com"}
	order := &model.Order{
		ID: uuid.New(), OrderNumber: "01J0TESTORDER",
		Items: []model.OrderItem{{Name: "Kelly 28", Quantity: 2, Price: decimal.NewFromInt(2500)}},
		ShippingAddress: model.Address{Street: "1 Rue Cambon", City: "Paris"},
		PaymentMethod:   model.DefaultPaymentMethod,
		ItemsPrice:      decimal.NewFromInt(5000),
		ShippingPrice:   decimal.NewFromInt(100),
		TaxPrice:        decimal.NewFromInt(900),
		TotalPrice:      decimal.NewFromInt(6000),
	}

	msg, err := OrderPlaced(user, order)
	require.NoError(t, err)
	assert.Equal(t, "ava@example.com", msg.To)
	assert.Contains(t, msg.Subject, "01J0TESTORDER")
	assert.Contains(t, msg.Body, "2 x Kelly 28 @ 2500.00")
	assert.Contains(t, msg.Body, "Total:    6000.00")
}

func TestLowStockReportMessage(t *testing.T) {
	msg, err := LowStockReport("admin@example.com", []model.LowStockProduct{
		{Name: "Alma", Brand: "LV", Stock: 0},
		{Name: "Jackie", Brand: "Gucci", Stock: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "Low stock report: 2 products", msg.Subject)
	assert.Contains(t, msg.Body, "Alma (LV): 0 left")
	assert.Contains(t, msg.Body, "Jackie (Gucci): 3 left")
}
