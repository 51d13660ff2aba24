package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/clickora/storefront/internal/services"
)

// PubSubNotifier publishes notifications to a Pub/Sub topic for downstream consumers
// (email, push, analytics).
type PubSubNotifier struct {
	topic   *pubsub.Topic
	logger  *zap.Logger
	marshal func(any) ([]byte, error)
}

// NewPubSubNotifier constructs a Pub/Sub backed notifier.
func NewPubSubNotifier(topic *pubsub.Topic, logger *zap.Logger) (*PubSubNotifier, error) {
	if topic == nil {
		return nil, errors.New("pubsub notifier: topic is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PubSubNotifier{topic: topic, logger: logger, marshal: json.Marshal}, nil
}

// Publish sends n and waits for the server id.
func (p *PubSubNotifier) Publish(ctx context.Context, n services.Notification) (string, error) {
	msg, err := p.message(n)
	if err != nil {
		return "", err
	}
	id, err := p.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish notification: %w", err)
	}
	return id, nil
}

// Notify implements services.Notifier. The publish result is awaited in the background.
func (p *PubSubNotifier) Notify(ctx context.Context, n services.Notification) {
	msg, err := p.message(n)
	if err != nil {
		p.logger.Warn("pubsub notification dropped", zap.Error(err))
		return
	}
	ctx = context.WithoutCancel(ctx)
	result := p.topic.Publish(ctx, msg)
	go func() {
		waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if _, err := result.Get(waitCtx); err != nil {
			p.logger.Warn("pubsub notification failed", zap.String("sessionID", n.SessionID), zap.Error(err))
		}
	}()
}

func (p *PubSubNotifier) message(n services.Notification) (*pubsub.Message, error) {
	data, err := p.marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	attrs := make(map[string]string)
	setAttr(attrs, "sessionId", n.SessionID)
	setAttr(attrs, "severity", string(n.Severity))
	setAttr(attrs, "title", n.Title)
	return &pubsub.Message{Data: data, Attributes: attrs}, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
