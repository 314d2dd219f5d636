package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const DefaultTopic = "storefront-payments"

// completions are written one at a time from a request
const writeBatchTimeout = 10 * time.Millisecond

type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) PaymentCompleted(_ context.Context, c Completion) error {
	n.log.Info("payment completed",
		zap.String("payment_id", c.Result.PaymentID),
		zap.String("order_id", c.Result.OrderID),
		zap.Time("completed_at", c.CompletedAt))
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes completions keyed by gateway order id so events for
// one order stay ordered.
type KafkaNotifier struct {
	writer messageWriter
}

func NewKafkaNotifier(topic string, brokers ...string) *KafkaNotifier {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           writeBatchTimeout,
		AllowAutoTopicCreation: true,
	}
	return &KafkaNotifier{writer: w}
}

func (n *KafkaNotifier) PaymentCompleted(ctx context.Context, c Completion) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal completion: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(c.Result.OrderID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("payment.completed")},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish completion: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
