package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clickora/storefront/internal/checkout"
	"github.com/clickora/storefront/internal/pricing"
	"github.com/clickora/storefront/internal/platform/kvstore"
)

type checkoutFixture struct {
	flow      *CheckoutFlow
	cart      *CartStore
	auth      *AuthStore
	processor *stubProcessor
	notes     *recordingNotifier
	nav       *recordingNavigator
}

func newCheckoutFixture(t *testing.T) checkoutFixture {
	t.Helper()
	kv := kvstore.NewMemoryStore()
	notes := &recordingNotifier{}
	nav := &recordingNavigator{}
	cart, err := NewCartStore(CartStoreDeps{Store: kv, Notifier: notes})
	if err != nil {
		t.Fatalf("NewCartStore: %v", err)
	}
	auth, err := NewAuthStore(AuthStoreDeps{Store: kv, Cart: cart, Notifier: notes, Navigator: nav, Sleep: instantSleep})
	if err != nil {
		t.Fatalf("NewAuthStore: %v", err)
	}
	processor := &stubProcessor{result: OrderResult{
		Succeeded:   true,
		OrderID:     "01HZX",
		OrderNumber: 123456,
		ProcessedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}}
	flow, err := NewCheckoutFlow(CheckoutFlowDeps{
		Cart:      cart,
		Auth:      auth,
		Processor: processor,
		Notifier:  notes,
		Navigator: nav,
		SessionID: "sess-1",
	})
	if err != nil {
		t.Fatalf("NewCheckoutFlow: %v", err)
	}
	return checkoutFixture{flow: flow, cart: cart, auth: auth, processor: processor, notes: notes, nav: nav}
}

func validShipping() checkout.ShippingInfo {
	return checkout.ShippingInfo{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		Address: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701",
	}
}

func validCard() checkout.PaymentInfo {
	return checkout.PaymentInfo{
		Method: checkout.PaymentCard, CardNumber: "4111111111111111",
		ExpiryDate: "1226", CVV: "123", NameOnCard: "Ada Lovelace",
	}
}

func (f checkoutFixture) advanceToReview(t *testing.T, ctx context.Context) {
	t.Helper()
	if err := f.flow.UpdateShipping(validShipping()); err != nil {
		t.Fatalf("UpdateShipping: %v", err)
	}
	if _, err := f.flow.Next(ctx); err != nil {
		t.Fatalf("Next to payment: %v", err)
	}
	if err := f.flow.UpdatePayment(validCard()); err != nil {
		t.Fatalf("UpdatePayment: %v", err)
	}
	if _, err := f.flow.Next(ctx); err != nil {
		t.Fatalf("Next to review: %v", err)
	}
}

func TestCheckoutFlow_BeginWithEmptyCartRedirects(t *testing.T) {
	f := newCheckoutFixture(t)
	_, err := f.flow.Begin(context.Background())
	if !errors.Is(err, ErrCheckoutEmptyCart) {
		t.Fatalf("expected ErrCheckoutEmptyCart, got %v", err)
	}
	if len(f.nav.paths) != 1 || f.nav.paths[0] != "/cart" {
		t.Fatalf("expected redirect to /cart, got %v", f.nav.paths)
	}
	if f.flow.State().Started {
		t.Fatalf("flow must not start on an empty cart")
	}
}

func TestCheckoutFlow_BeginPrefillsFromUser(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	_, _ = f.auth.Login(ctx, Credentials{Email: "demo@clickora.com", Password: "demo123"})
	_ = f.cart.Add(ctx, snapshot(1, "A", "10"))

	state, err := f.flow.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if state.Step != StepShipping || state.Shipping.FirstName != "Demo" || state.Shipping.Country != checkout.DefaultCountry {
		t.Fatalf("unexpected initial state %+v", state)
	}
	if state.Payment.Method != checkout.PaymentCard || state.ShippingMethod != pricing.ShippingStandard {
		t.Fatalf("unexpected defaults %+v", state)
	}
}

func TestCheckoutFlow_NextRejectsIncompleteSteps(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	_ = f.cart.Add(ctx, snapshot(1, "A", "10"))
	_, _ = f.flow.Begin(ctx)

	state, err := f.flow.Next(ctx)
	if !errors.Is(err, ErrCheckoutValidation) || !errors.Is(err, checkout.ErrInvalidShipping) {
		t.Fatalf("expected shipping validation error, got %v", err)
	}
	if state.Step != StepShipping {
		t.Fatalf("failed validation must not advance, got step %d", state.Step)
	}
	if f.notes.last().Title != "Please fill in all required fields" || f.notes.last().Severity != SeverityError {
		t.Fatalf("unexpected notification %+v", f.notes.last())
	}

	_ = f.flow.UpdateShipping(validShipping())
	if _, err := f.flow.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	_ = f.flow.UpdatePayment(checkout.PaymentInfo{Method: checkout.PaymentCard, CardNumber: "4111 1111", ExpiryDate: "12/26", CVV: "123", NameOnCard: "A"})
	state, err = f.flow.Next(ctx)
	if !errors.Is(err, checkout.ErrInvalidPayment) || state.Step != StepPayment {
		t.Fatalf("expected payment validation error at payment step, got %v step=%d", err, state.Step)
	}
	if f.notes.last().Title != "Please complete payment information" {
		t.Fatalf("unexpected notification %+v", f.notes.last())
	}
}

func TestCheckoutFlow_BackKeepsEnteredData(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	_ = f.cart.Add(ctx, snapshot(1, "A", "10"))
	_, _ = f.flow.Begin(ctx)
	f.advanceToReview(t, ctx)

	state, _ := f.flow.Back()
	if state.Step != StepPayment || state.Payment.CardNumber != "4111 1111 1111 1111" {
		t.Fatalf("unexpected state after back %+v", state)
	}
	_, _ = f.flow.Back()
	state, _ = f.flow.Back()
	if state.Step != StepShipping || state.Shipping.City != "Springfield" {
		t.Fatalf("back must stop at shipping and keep data, got %+v", state)
	}
}

func TestCheckoutFlow_PlaceOrderSucceeds(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	_ = f.cart.AddQuantity(ctx, snapshot(1, "A", "25.00"), 2)
	_, _ = f.flow.Begin(ctx)
	f.advanceToReview(t, ctx)
	if err := f.flow.SetShippingMethod(pricing.ShippingExpress); err != nil {
		t.Fatalf("SetShippingMethod: %v", err)
	}

	confirmation, err := f.flow.PlaceOrder(ctx)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if confirmation.OrderNumber != 123456 || confirmation.PaymentDescription != "Credit Card ending in 1111" {
		t.Fatalf("unexpected confirmation %+v", confirmation)
	}
	// 50.00 + 15.99 + 4.00 tax
	if !confirmation.Summary.Total.Equal(decimal.RequireFromString("69.99")) {
		t.Fatalf("unexpected total %s", confirmation.Summary.Total)
	}
	if !f.cart.IsEmpty() {
		t.Fatalf("expected cart cleared after order")
	}
	if f.notes.last().Title != "Order placed successfully!" {
		t.Fatalf("unexpected notification %+v", f.notes.last())
	}
	if got := f.nav.paths[len(f.nav.paths)-1]; got != "/checkout/success" {
		t.Fatalf("unexpected navigation %q", got)
	}
	if len(f.processor.orders) != 1 || f.processor.orders[0].SessionID != "sess-1" {
		t.Fatalf("unexpected processor input %+v", f.processor.orders)
	}
	if _, err := f.flow.PlaceOrder(ctx); !errors.Is(err, ErrCheckoutInvalidTransition) {
		t.Fatalf("expected second placement to be rejected, got %v", err)
	}
	if _, ok := f.flow.Confirmation(); !ok {
		t.Fatalf("expected confirmation to be retained")
	}
}

func TestCheckoutFlow_DeclinedOrderStaysAtReview(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.processor.result = OrderResult{Succeeded: false, Reason: "card declined"}
	_ = f.cart.Add(ctx, snapshot(1, "A", "10"))
	_, _ = f.flow.Begin(ctx)
	f.advanceToReview(t, ctx)

	_, err := f.flow.PlaceOrder(ctx)
	if !errors.Is(err, ErrCheckoutOrderFailed) {
		t.Fatalf("expected ErrCheckoutOrderFailed, got %v", err)
	}
	state := f.flow.State()
	if state.Step != StepReview || state.IsProcessing || state.Placed != nil {
		t.Fatalf("unexpected state after decline %+v", state)
	}
	if f.cart.IsEmpty() {
		t.Fatalf("declined order must keep the cart")
	}
	if f.notes.last().Title != "Order failed" || f.notes.last().Severity != SeverityError {
		t.Fatalf("unexpected notification %+v", f.notes.last())
	}
}

func TestCheckoutFlow_AbandonedOrderReturnsContextError(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.processor.err = context.Canceled
	_ = f.cart.Add(ctx, snapshot(1, "A", "10"))
	_, _ = f.flow.Begin(ctx)
	f.advanceToReview(t, ctx)

	if _, err := f.flow.PlaceOrder(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if f.flow.State().IsProcessing || f.cart.IsEmpty() {
		t.Fatalf("abandoned order must leave the flow at review with the cart intact")
	}
}

func TestCheckoutFlow_SummaryTracksMethod(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	_ = f.cart.Add(ctx, snapshot(1, "A", "100.00"))
	_, _ = f.flow.Begin(ctx)

	_ = f.flow.SetShippingMethod(pricing.ShippingOvernight)
	summary := f.flow.Summary()
	if !summary.Shipping.Equal(decimal.RequireFromString("25.99")) || !summary.Tax.Equal(decimal.RequireFromString("8")) {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !summary.Total.Equal(decimal.RequireFromString("133.99")) {
		t.Fatalf("unexpected total %s", summary.Total)
	}
}

func TestCheckoutFlow_OperationsRequireBegin(t *testing.T) {
	f := newCheckoutFixture(t)
	if err := f.flow.UpdateShipping(validShipping()); !errors.Is(err, ErrCheckoutNotStarted) {
		t.Fatalf("expected ErrCheckoutNotStarted, got %v", err)
	}
	if _, err := f.flow.Next(context.Background()); !errors.Is(err, ErrCheckoutNotStarted) {
		t.Fatalf("expected ErrCheckoutNotStarted, got %v", err)
	}
}
