package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/clickora/storefront/internal/checkout"
	"github.com/clickora/storefront/internal/domain"
	"github.com/clickora/storefront/internal/pricing"
)

const instrumentationName = "github.com/clickora/storefront/internal/services"

var (
	errCheckoutCartRequired      = errors.New("checkout flow: cart store is required")
	errCheckoutProcessorRequired = errors.New("checkout flow: order processor is required")

	// ErrCheckoutEmptyCart indicates checkout cannot start because the cart is empty.
	ErrCheckoutEmptyCart = errors.New("checkout flow: cart is empty")
	// ErrCheckoutNotStarted indicates an operation before Begin.
	ErrCheckoutNotStarted = errors.New("checkout flow: not started")
	// ErrCheckoutInvalidTransition indicates the requested step change is not allowed.
	ErrCheckoutInvalidTransition = errors.New("checkout flow: invalid transition")
	// ErrCheckoutValidation indicates the current step's form is incomplete.
	ErrCheckoutValidation = errors.New("checkout flow: validation failed")
	// ErrCheckoutOrderFailed indicates the order processor declined the order.
	ErrCheckoutOrderFailed = errors.New("checkout flow: order failed")
)

// CheckoutStep enumerates the form steps.
type CheckoutStep int

const (
	StepShipping CheckoutStep = 1
	StepPayment  CheckoutStep = 2
	StepReview   CheckoutStep = 3
)

// OrderConfirmation is the terminal success state.
type OrderConfirmation struct {
	OrderID            string                  `json:"order_id"`
	OrderNumber        int                     `json:"order_number"`
	PlacedAt           time.Time               `json:"placed_at"`
	Items              []domain.CartItem       `json:"items"`
	Shipping           checkout.ShippingInfo   `json:"shipping"`
	PaymentDescription string                  `json:"payment_description"`
	Summary            pricing.CheckoutSummary `json:"summary"`
}

// CheckoutState is the checkout snapshot exposed to callers.
type CheckoutState struct {
	Started        bool                   `json:"started"`
	Step           CheckoutStep           `json:"step"`
	Shipping       checkout.ShippingInfo  `json:"shipping"`
	Payment        checkout.PaymentInfo   `json:"payment"`
	ShippingMethod pricing.ShippingMethod `json:"shipping_method"`
	IsProcessing   bool                   `json:"is_processing"`
	Placed         *OrderConfirmation     `json:"placed,omitempty"`
}

// CheckoutFlowDeps wires the collaborators of a CheckoutFlow.
type CheckoutFlowDeps struct {
	Cart      *CartStore
	Auth      *AuthStore
	Processor OrderProcessor
	Validator *checkout.Validator
	Notifier  Notifier
	Navigator Navigator
	Logger    *zap.Logger
	SessionID string
}

// CheckoutFlow is the Shipping → Payment → Review → Placed state machine. Its state lives
// in memory only so card details are never written to the persistence backend.
type CheckoutFlow struct {
	cart      *CartStore
	auth      *AuthStore
	processor OrderProcessor
	validator *checkout.Validator
	notifier  Notifier
	navigator Navigator
	logger    *zap.Logger
	sessionID string
	tracer    trace.Tracer
	orders    metric.Int64Counter

	state CheckoutState
}

// NewCheckoutFlow constructs an idle CheckoutFlow.
func NewCheckoutFlow(deps CheckoutFlowDeps) (*CheckoutFlow, error) {
	if deps.Cart == nil {
		return nil, errCheckoutCartRequired
	}
	if deps.Processor == nil {
		return nil, errCheckoutProcessorRequired
	}
	flow := &CheckoutFlow{
		cart:      deps.Cart,
		auth:      deps.Auth,
		processor: deps.Processor,
		validator: deps.Validator,
		notifier:  deps.Notifier,
		navigator: deps.Navigator,
		logger:    deps.Logger,
		sessionID: deps.SessionID,
		tracer:    otel.Tracer(instrumentationName),
	}
	if flow.validator == nil {
		flow.validator = checkout.NewValidator()
	}
	if flow.notifier == nil {
		flow.notifier = noopNotifier{}
	}
	if flow.navigator == nil {
		flow.navigator = noopNavigator{}
	}
	if flow.logger == nil {
		flow.logger = zap.NewNop()
	}
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"storefront.checkout.orders",
		metric.WithDescription("Order placement attempts by outcome"),
	)
	if err == nil {
		flow.orders = counter
	}
	return flow, nil
}

// State returns a copy of the checkout state.
func (f *CheckoutFlow) State() CheckoutState {
	out := f.state
	if f.state.Placed != nil {
		placed := *f.state.Placed
		placed.Items = append([]domain.CartItem(nil), placed.Items...)
		out.Placed = &placed
	}
	return out
}

// Summary derives checkout totals from the live cart and the selected method.
func (f *CheckoutFlow) Summary() pricing.CheckoutSummary {
	return pricing.SummarizeCheckout(f.cart.state.Items, f.methodOrDefault())
}

func (f *CheckoutFlow) methodOrDefault() pricing.ShippingMethod {
	if f.state.ShippingMethod == "" {
		return pricing.ShippingStandard
	}
	return f.state.ShippingMethod
}

// Begin enters the flow. An empty cart redirects to the cart page. A flow in progress is
// resumed; a fresh or completed flow restarts at Shipping, pre-filled from the signed-in user.
func (f *CheckoutFlow) Begin(ctx context.Context) (CheckoutState, error) {
	if f.cart.IsEmpty() {
		f.navigator.Navigate(ctx, "/cart")
		return f.State(), ErrCheckoutEmptyCart
	}
	if f.state.Started && f.state.Placed == nil {
		return f.State(), nil
	}
	var user *domain.User
	if f.auth != nil {
		user = f.auth.User()
	}
	f.state = CheckoutState{
		Started:        true,
		Step:           StepShipping,
		Shipping:       checkout.NewShippingInfo(user),
		Payment:        checkout.NewPaymentInfo(),
		ShippingMethod: pricing.ShippingStandard,
	}
	return f.State(), nil
}

// UpdateShipping stores the shipping form. Validation happens on Next.
func (f *CheckoutFlow) UpdateShipping(info checkout.ShippingInfo) error {
	if err := f.requireActive(); err != nil {
		return err
	}
	if info.Country == "" {
		info.Country = checkout.DefaultCountry
	}
	f.state.Shipping = info
	return nil
}

// UpdatePayment stores the payment form with input masks applied.
func (f *CheckoutFlow) UpdatePayment(info checkout.PaymentInfo) error {
	if err := f.requireActive(); err != nil {
		return err
	}
	if info.Method == "" {
		info.Method = checkout.PaymentCard
	}
	f.state.Payment = info.Masked()
	return nil
}

// SetShippingMethod selects the shipping tier.
func (f *CheckoutFlow) SetShippingMethod(method pricing.ShippingMethod) error {
	if err := f.requireActive(); err != nil {
		return err
	}
	f.state.ShippingMethod = method
	return nil
}

// Next advances one step when the current step validates. A failed validation notifies the
// shopper and leaves the state unchanged.
func (f *CheckoutFlow) Next(ctx context.Context) (CheckoutState, error) {
	if err := f.requireActive(); err != nil {
		return f.State(), err
	}
	switch f.state.Step {
	case StepShipping:
		if err := f.validator.Shipping(f.state.Shipping); err != nil {
			f.notifyShippingInvalid(ctx)
			return f.State(), fmt.Errorf("%w: %w", ErrCheckoutValidation, err)
		}
		f.state.Step = StepPayment
	case StepPayment:
		if err := f.validator.Payment(f.state.Payment); err != nil {
			f.notifyPaymentInvalid(ctx)
			return f.State(), fmt.Errorf("%w: %w", ErrCheckoutValidation, err)
		}
		f.state.Step = StepReview
	default:
		return f.State(), fmt.Errorf("%w: review is the last step", ErrCheckoutInvalidTransition)
	}
	return f.State(), nil
}

// Back returns to the previous step, keeping entered data. It is a no-op on Shipping.
func (f *CheckoutFlow) Back() (CheckoutState, error) {
	if err := f.requireActive(); err != nil {
		return f.State(), err
	}
	if f.state.Step > StepShipping {
		f.state.Step--
	}
	return f.State(), nil
}

// PlaceOrder submits the order from the Review step. On success the cart is cleared and the
// flow reaches its terminal state; on failure it stays at Review.
func (f *CheckoutFlow) PlaceOrder(ctx context.Context) (OrderConfirmation, error) {
	if err := f.requireActive(); err != nil {
		return OrderConfirmation{}, err
	}
	if f.state.Step != StepReview {
		return OrderConfirmation{}, fmt.Errorf("%w: orders are placed from the review step", ErrCheckoutInvalidTransition)
	}
	if f.state.IsProcessing {
		return OrderConfirmation{}, fmt.Errorf("%w: order already processing", ErrCheckoutInvalidTransition)
	}
	if f.cart.IsEmpty() {
		f.navigator.Navigate(ctx, "/cart")
		return OrderConfirmation{}, ErrCheckoutEmptyCart
	}
	if err := f.validator.Shipping(f.state.Shipping); err != nil {
		f.notifyShippingInvalid(ctx)
		return OrderConfirmation{}, fmt.Errorf("%w: %w", ErrCheckoutValidation, err)
	}
	if err := f.validator.Payment(f.state.Payment); err != nil {
		f.notifyPaymentInvalid(ctx)
		return OrderConfirmation{}, fmt.Errorf("%w: %w", ErrCheckoutValidation, err)
	}

	ctx, span := f.tracer.Start(ctx, "checkout.PlaceOrder")
	defer span.End()

	order := Order{
		SessionID:          f.sessionID,
		Items:              f.cart.Items(),
		Shipping:           f.state.Shipping,
		PaymentMethod:      f.state.Payment.Method,
		PaymentDescription: f.state.Payment.Description(),
		Summary:            f.Summary(),
	}
	span.SetAttributes(
		attribute.Int("order.item_count", order.Summary.ItemCount),
		attribute.String("order.shipping_method", string(order.Summary.ShippingMethod)),
		attribute.String("order.payment_method", string(order.PaymentMethod)),
	)

	f.state.IsProcessing = true
	result, err := f.processor.Process(ctx, order)
	f.state.IsProcessing = false
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order processing abandoned")
		f.record(ctx, "abandoned")
		return OrderConfirmation{}, err
	}
	if !result.Succeeded {
		span.SetStatus(codes.Error, "order declined")
		f.record(ctx, "declined")
		f.notifier.Notify(ctx, Notification{
			Title:       "Order failed",
			Description: "We couldn't process your order. Please try again.",
			Severity:    SeverityError,
		})
		f.logger.Warn("order declined", zap.String("reason", result.Reason))
		return OrderConfirmation{}, fmt.Errorf("%w: %s", ErrCheckoutOrderFailed, result.Reason)
	}

	confirmation := OrderConfirmation{
		OrderID:            result.OrderID,
		OrderNumber:        result.OrderNumber,
		PlacedAt:           result.ProcessedAt,
		Items:              order.Items,
		Shipping:           order.Shipping,
		PaymentDescription: order.PaymentDescription,
		Summary:            order.Summary,
	}
	f.state.Placed = &confirmation
	f.state.Payment = checkout.NewPaymentInfo()
	f.record(ctx, "placed")
	span.SetAttributes(attribute.String("order.id", confirmation.OrderID))

	if err := f.cart.reset(ctx); err != nil {
		f.logger.Warn("cart reset after order failed", zap.String("orderID", confirmation.OrderID), zap.Error(err))
	}
	f.notifier.Notify(ctx, Notification{
		Title:       "Order placed successfully!",
		Description: "Thank you for your purchase. You will receive a confirmation email shortly.",
		Severity:    SeverityInfo,
	})
	f.navigator.Navigate(ctx, "/checkout/success")
	return confirmation, nil
}

// Confirmation returns the last placed order, if any.
func (f *CheckoutFlow) Confirmation() (OrderConfirmation, bool) {
	if f.state.Placed == nil {
		return OrderConfirmation{}, false
	}
	return f.State().Placed.clone(), true
}

func (c OrderConfirmation) clone() OrderConfirmation {
	c.Items = append([]domain.CartItem(nil), c.Items...)
	return c
}

func (f *CheckoutFlow) requireActive() error {
	if !f.state.Started {
		return ErrCheckoutNotStarted
	}
	if f.state.Placed != nil {
		return fmt.Errorf("%w: order already placed", ErrCheckoutInvalidTransition)
	}
	return nil
}

func (f *CheckoutFlow) notifyShippingInvalid(ctx context.Context) {
	f.notifier.Notify(ctx, Notification{
		Title:       "Please fill in all required fields",
		Description: "Make sure all required information is provided before continuing.",
		Severity:    SeverityError,
	})
}

func (f *CheckoutFlow) notifyPaymentInvalid(ctx context.Context) {
	f.notifier.Notify(ctx, Notification{
		Title:       "Please complete payment information",
		Description: "Make sure all payment details are provided.",
		Severity:    SeverityError,
	})
}

func (f *CheckoutFlow) record(ctx context.Context, outcome string) {
	if f.orders == nil {
		return
	}
	f.orders.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
