package services

import (
	"context"
	"errors"
	"time"

	"github.com/clickora/storefront/internal/checkout"
	"github.com/clickora/storefront/internal/domain"
	"github.com/clickora/storefront/internal/pricing"
)

// ErrPersistence indicates the key/value backend rejected a write. The in-memory state has
// already been updated when this is returned.
var ErrPersistence = errors.New("services: persistence unavailable")

// Severity classifies shopper notifications.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notification is a transient shopper-facing message.
type Notification struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	SessionID   string    `json:"session_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notifier delivers notifications. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Navigator receives "go to path" instructions.
type Navigator interface {
	Navigate(ctx context.Context, path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, path string)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(ctx context.Context, path string) { f(ctx, path) }

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Notification) {}

type noopNavigator struct{}

func (noopNavigator) Navigate(context.Context, string) {}

// Order is the payload handed to an OrderProcessor. Card details are reduced to a
// description and never leave the checkout flow.
type Order struct {
	SessionID          string                  `json:"session_id"`
	Items              []domain.CartItem       `json:"items"`
	Shipping           checkout.ShippingInfo   `json:"shipping"`
	PaymentMethod      checkout.PaymentMethod  `json:"payment_method"`
	PaymentDescription string                  `json:"payment_description"`
	Summary            pricing.CheckoutSummary `json:"summary"`
}

// OrderResult is the outcome reported by an OrderProcessor.
type OrderResult struct {
	Succeeded   bool      `json:"succeeded"`
	OrderID     string    `json:"order_id,omitempty"`
	OrderNumber int       `json:"order_number,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// OrderProcessor submits orders. A returned error means the attempt was abandoned (for
// example on context cancellation); a declined order is reported through OrderResult.
type OrderProcessor interface {
	Process(ctx context.Context, order Order) (OrderResult, error)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
