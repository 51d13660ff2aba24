package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clickora/storefront/internal/checkout"
	"github.com/clickora/storefront/internal/platform/format"
	"github.com/clickora/storefront/internal/platform/httpx"
	"github.com/clickora/storefront/internal/pricing"
	"github.com/clickora/storefront/internal/services"
)

// CheckoutHandlers drives the per-session checkout flow.
type CheckoutHandlers struct {
	sessions SessionDispatcher
}

// NewCheckoutHandlers constructs checkout handlers.
func NewCheckoutHandlers(sessions SessionDispatcher) *CheckoutHandlers {
	return &CheckoutHandlers{sessions: sessions}
}

// Routes wires the /checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getState)
	r.Post("/", h.begin)
	r.Get("/shipping-options", h.shippingOptions)
	r.Put("/shipping", h.updateShipping)
	r.Put("/payment", h.updatePayment)
	r.Put("/method", h.setMethod)
	r.Post("/next", h.next)
	r.Post("/back", h.back)
	r.Post("/orders", h.placeOrder)
	r.Get("/confirmation", h.confirmation)
}

type checkoutPayload struct {
	services.CheckoutState
	Summary pricing.CheckoutSummary `json:"summary"`
	Display totalsDisplay           `json:"display"`
}

type shippingMethodRequest struct {
	Method string `json:"method"`
}

// checkoutView redacts the security code before the state leaves the process.
func checkoutView(flow *services.CheckoutFlow, lang string) checkoutPayload {
	state := flow.State()
	if state.Payment.CVV != "" {
		state.Payment.CVV = "***"
	}
	summary := flow.Summary()
	return checkoutPayload{
		CheckoutState: state,
		Summary:       summary,
		Display: totalsDisplay{
			Subtotal: format.Currency(summary.Subtotal, lang),
			Shipping: format.Currency(summary.Shipping, lang),
			Tax:      format.Currency(summary.Tax, lang),
			Total:    format.Currency(summary.Total, lang),
		},
	}
}

func (h *CheckoutHandlers) getState(w http.ResponseWriter, r *http.Request) {
	dispatch(w, r, h.sessions, http.StatusOK, func(_ context.Context, sess *services.Session) (any, error) {
		return checkoutView(sess.Checkout, displayLanguage(r)), nil
	})
}

func (h *CheckoutHandlers) begin(w http.ResponseWriter, r *http.Request) {
	dispatch(w, r, h.sessions, http.StatusOK, func(ctx context.Context, sess *services.Session) (any, error) {
		if _, err := sess.Checkout.Begin(ctx); err != nil {
			return nil, err
		}
		return checkoutView(sess.Checkout, displayLanguage(r)), nil
	})
}

func (h *CheckoutHandlers) shippingOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", catalogCacheControl)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": pricing.ShippingOptions()})
}

func (h *CheckoutHandlers) updateShipping(w http.ResponseWriter, r *http.Request) {
	var info checkout.ShippingInfo
	if !decodeBody(w, r, &info) {
		return
	}
	dispatch(w, r, h.sessions, http.StatusOK, func(_ context.Context, sess *services.Session) (any, error) {
		if err := sess.Checkout.UpdateShipping(info); err != nil {
			return nil, err
		}
		return checkoutView(sess.Checkout, displayLanguage(r)), nil
	})
}

func (h *CheckoutHandlers) updatePayment(w http.ResponseWriter, r *http.Request) {
	var info checkout.PaymentInfo
	if !decodeBody(w, r, &info) {
		return
	}
	dispatch(w, r, h.sessions, http.StatusOK, func(_ context.Context, sess *services.Session) (any, error) {
		if err := sess.Checkout.UpdatePayment(info); err != nil {
			return nil, err
		}
		return checkoutView(sess.Checkout, displayLanguage(r)), nil
	})
}

func (h *CheckoutHandlers) setMethod(w http.ResponseWriter, r *http.Request) {
	var req shippingMethodRequest
	if !decodeBody(w, r, &req) {
		return
	}
	method, err := pricing.ParseShippingMethod(req.Method)
	if err != nil {
		writeServiceError(r.Context(), w, err, nil)
		return
	}
	dispatch(w, r, h.sessions, http.StatusOK, func(_ context.Context, sess *services.Session) (any, error) {
		if err := sess.Checkout.SetShippingMethod(method); err != nil {
			return nil, err
		}
		return checkoutView(sess.Checkout, displayLanguage(r)), nil
	})
}

func (h *CheckoutHandlers) next(w http.ResponseWriter, r *http.Request) {
	dispatch(w, r, h.sessions, http.StatusOK, func(ctx context.Context, sess *services.Session) (any, error) {
		if _, err := sess.Checkout.Next(ctx); err != nil {
			return nil, err
		}
		return checkoutView(sess.Checkout, displayLanguage(r)), nil
	})
}

func (h *CheckoutHandlers) back(w http.ResponseWriter, r *http.Request) {
	dispatch(w, r, h.sessions, http.StatusOK, func(_ context.Context, sess *services.Session) (any, error) {
		if _, err := sess.Checkout.Back(); err != nil {
			return nil, err
		}
		return checkoutView(sess.Checkout, displayLanguage(r)), nil
	})
}

func (h *CheckoutHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	dispatch(w, r, h.sessions, http.StatusCreated, func(ctx context.Context, sess *services.Session) (any, error) {
		confirmation, err := sess.Checkout.PlaceOrder(ctx)
		if err != nil {
			return nil, err
		}
		return confirmation, nil
	})
}

func (h *CheckoutHandlers) confirmation(w http.ResponseWriter, r *http.Request) {
	dispatch(w, r, h.sessions, http.StatusOK, func(_ context.Context, sess *services.Session) (any, error) {
		confirmation, ok := sess.Checkout.Confirmation()
		if !ok {
			return nil, errNoConfirmation
		}
		return confirmation, nil
	})
}
