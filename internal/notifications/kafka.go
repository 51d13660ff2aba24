package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/clickora/storefront/internal/services"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier writes notifications to a Kafka topic keyed by session id.
type KafkaNotifier struct {
	writer messageWriter
	logger *zap.Logger
}

// NewKafkaWriter builds an asynchronous writer for topic.
func NewKafkaWriter(brokers []string, topic string) (*kafka.Writer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka notifier: brokers are required")
	}
	if topic == "" {
		return nil, errors.New("kafka notifier: topic is required")
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		AllowAutoTopicCreation: true,
	}, nil
}

// NewKafkaNotifier wraps writer.
func NewKafkaNotifier(writer messageWriter, logger *zap.Logger) (*KafkaNotifier, error) {
	if writer == nil {
		return nil, errors.New("kafka notifier: writer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaNotifier{writer: writer, logger: logger}, nil
}

// Publish writes n as a single message.
func (k *KafkaNotifier) Publish(ctx context.Context, n services.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(n.SessionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("storefront.notification")},
			{Key: "severity", Value: []byte(n.Severity)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}

// Notify implements services.Notifier.
func (k *KafkaNotifier) Notify(ctx context.Context, n services.Notification) {
	if err := k.Publish(context.WithoutCancel(ctx), n); err != nil {
		k.logger.Warn("kafka notification failed", zap.String("sessionID", n.SessionID), zap.Error(err))
	}
}

// Close flushes and closes the writer.
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
