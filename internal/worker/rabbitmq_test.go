package worker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/luxbag-api/internal/events"
)

func TestRabbitMQ_PublishesOnSeparateChannel(t *testing.T) {
	url := os.Getenv("TEST_RABBITMQ_URL")
	if url == "" {
		t.Skip("TEST_RABBITMQ_URL not set")
	}

	rmq, err := DialRabbitMQ(url)
	require.NoError(t, err)
	defer rmq.Close()
	assert.NotSame(t, rmq.Consume, rmq.Publish)

	_, err = rmq.Consume.QueuePurge(events.OrderQueue, false)
	require.NoError(t, err)

	f := newWorkerFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.worker.StartAMQP(ctx, rmq.Consume))
	defer f.worker.Stop()

	publisher := events.NewAMQPPublisher(rmq.Publish, events.OrderQueue)
	for _, typ := range []events.Type{events.OrderPlaced, events.OrderStatusChanged} {
		require.NoError(t, publisher.Publish(ctx, events.NewOrderEvent(typ, f.order)))
	}

	require.Eventually(t, func() bool { return len(f.notifier.messages()) == 2 }, 5*time.Second, 50*time.Millisecond)
}
