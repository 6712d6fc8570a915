package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/flicky/luxbag-api/internal/events"
)

const kafkaMaxAttempts = 3

// MessageReader is the subset of *kafka.Reader the worker needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// DeadLetterTopic names the topic that receives order events the worker gave
// up on.
func DeadLetterTopic(topic string) string { return topic + ".dlq" }

// StartKafka consumes r until ctx is cancelled or Stop is called. Transient
// failures are retried a few times; messages that still fail, or can never
// succeed, are copied to dlq before their offset is committed. A nil dlq only
// logs them.
func (w *OrderWorker) StartKafka(ctx context.Context, r MessageReader, dlq events.MessageWriter) {
	w.run(ctx, func(ctx context.Context) {
		for {
			msg, err := r.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() == nil {
					w.log.Error("fetch order event", "error", err)
				}
				return
			}
			if err := w.processKafkaMessage(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return
				}
				w.deadLetter(ctx, dlq, msg, err)
			}
			if err := r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				w.log.Error("commit order event", "offset", msg.Offset, "error", err)
			}
		}
	})
	w.log.Info("order worker started", "transport", "kafka")
}

// processKafkaMessage returns the last handling error once retries are spent.
func (w *OrderWorker) processKafkaMessage(ctx context.Context, msg kafka.Message) error {
	for attempt := 1; ; attempt++ {
		err := w.Handle(ctx, msg.Value)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errTransient) || attempt == kafkaMaxAttempts {
			w.log.Error("handle order event", "partition", msg.Partition, "offset", msg.Offset, "attempts", attempt, "error", err)
			return err
		}
		select {
		case <-time.After(time.Duration(attempt) * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *OrderWorker) deadLetter(ctx context.Context, dlq events.MessageWriter, msg kafka.Message, cause error) {
	if dlq == nil {
		return
	}
	headers := append([]kafka.Header{}, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "x-error", Value: []byte(cause.Error())},
		kafka.Header{Key: "x-source", Value: []byte(fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset))},
	)
	err := dlq.WriteMessages(ctx, kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers})
	if err != nil {
		w.log.Error("dead-letter order event", "offset", msg.Offset, "error", err)
		return
	}
	w.log.Warn("order event dead-lettered", "partition", msg.Partition, "offset", msg.Offset)
}
