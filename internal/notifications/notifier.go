// Package notifications delivers shopper notifications to logs, message brokers and the
// response of the request that raised them.
package notifications

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/clickora/storefront/internal/services"
)

// Fanout delivers every notification to each non-nil notifier in order.
func Fanout(notifiers ...services.Notifier) services.Notifier {
	targets := make([]services.Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			targets = append(targets, n)
		}
	}
	if len(targets) == 1 {
		return targets[0]
	}
	return fanout(targets)
}

type fanout []services.Notifier

func (f fanout) Notify(ctx context.Context, n services.Notification) {
	for _, target := range f {
		target.Notify(ctx, n)
	}
}

// LogNotifier writes notifications to a zap logger. Errors are logged at warn level.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier. A nil logger discards output.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notifications")}
}

// Notify implements services.Notifier.
func (l *LogNotifier) Notify(_ context.Context, n services.Notification) {
	fields := []zap.Field{
		zap.String("title", n.Title),
		zap.String("description", n.Description),
		zap.String("severity", string(n.Severity)),
	}
	if n.SessionID != "" {
		fields = append(fields, zap.String("sessionID", n.SessionID))
	}
	if n.Severity == services.SeverityError {
		l.logger.Warn("shopper notification", fields...)
		return
	}
	l.logger.Info("shopper notification", fields...)
}

// Collector gathers the notifications and the navigation target raised while serving a
// single request so the handler can return them with the response.
type Collector struct {
	mu       sync.Mutex
	toasts   []services.Notification
	redirect string
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Notify implements services.Notifier.
func (c *Collector) Notify(_ context.Context, n services.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toasts = append(c.toasts, n)
}

// Navigate implements services.Navigator. The last target wins.
func (c *Collector) Navigate(_ context.Context, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redirect = path
}

// Toasts returns the collected notifications in arrival order.
func (c *Collector) Toasts() []services.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]services.Notification{}, c.toasts...)
}

// Redirect returns the last navigation target, if any.
func (c *Collector) Redirect() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redirect
}
