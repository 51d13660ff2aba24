package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/clickora/storefront/internal/blog"
	"github.com/clickora/storefront/internal/catalog"
	"github.com/clickora/storefront/internal/checkout"
	"github.com/clickora/storefront/internal/notifications"
	"github.com/clickora/storefront/internal/platform/httpx"
	"github.com/clickora/storefront/internal/platform/requestctx"
	"github.com/clickora/storefront/internal/pricing"
	"github.com/clickora/storefront/internal/services"
)

const maxBodySize = 16 * 1024

var (
	errEmptyBody    = errors.New("request body is empty")
	errBodyTooLarge = errors.New("request body too large")

	errNoConfirmation = errors.New("no order has been placed in this session")
)

// SessionDispatcher runs work against one shopper session with exclusive access.
type SessionDispatcher interface {
	Do(ctx context.Context, id string, fn func(context.Context, *services.Session) error, opts ...services.DoOption) error
}

// envelope wraps every session-scoped response with the notifications and navigation target
// raised while serving it.
type envelope struct {
	Data     any                     `json:"data"`
	Toasts   []services.Notification `json:"toasts,omitempty"`
	Redirect string                  `json:"redirect,omitempty"`
}

type sessionAction func(ctx context.Context, sess *services.Session) (any, error)

// dispatch runs action inside the request's session and writes the envelope.
func dispatch(w http.ResponseWriter, r *http.Request, sessions SessionDispatcher, status int, action sessionAction) {
	ctx := r.Context()
	if sessions == nil {
		httpx.WriteError(ctx, w, httpx.NewError("session_service_unavailable", "session service is unavailable", http.StatusServiceUnavailable))
		return
	}
	id := requestctx.SessionID(ctx)
	if id == "" {
		httpx.WriteError(ctx, w, httpx.NewError("session_required", "request has no session", http.StatusUnauthorized))
		return
	}

	collector := notifications.NewCollector()
	var payload any
	err := sessions.Do(ctx, id, func(ctx context.Context, sess *services.Session) error {
		var actionErr error
		payload, actionErr = action(ctx, sess)
		return actionErr
	}, services.WithNotifier(collector), services.WithNavigator(collector))
	if err != nil {
		writeServiceError(ctx, w, err, collector)
		return
	}
	httpx.WriteJSON(w, status, envelope{Data: payload, Toasts: collector.Toasts(), Redirect: collector.Redirect()})
}

func writeServiceError(ctx context.Context, w http.ResponseWriter, err error, collector *notifications.Collector) {
	apiErr := toAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		requestctx.Logger(ctx).Error("request failed", zap.Error(err), zap.Int("status", apiErr.Status))
	}
	if collector != nil {
		details := map[string]any{}
		if toasts := collector.Toasts(); len(toasts) > 0 {
			details["toasts"] = toasts
		}
		if redirect := collector.Redirect(); redirect != "" {
			details["redirect"] = redirect
		}
		apiErr = apiErr.WithDetails(details)
	}
	httpx.WriteError(ctx, w, apiErr)
}

func toAPIError(err error) httpx.Error {
	var validation *checkout.ValidationError
	switch {
	case errors.As(err, &validation):
		return httpx.NewError("validation_failed", err.Error(), http.StatusUnprocessableEntity).
			WithDetails(map[string]any{"fields": validation.Fields})
	case errors.Is(err, services.ErrCheckoutValidation):
		return httpx.NewError("validation_failed", err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, services.ErrAuthInvalidInput):
		return httpx.NewError("invalid_input", err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, services.ErrAuthRequired):
		return httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized)
	case errors.Is(err, catalog.ErrNotFound):
		return httpx.NewError("product_not_found", "product not found", http.StatusNotFound)
	case errors.Is(err, blog.ErrNotFound):
		return httpx.NewError("post_not_found", "post not found", http.StatusNotFound)
	case errors.Is(err, catalog.ErrInvalidCriteria):
		return httpx.NewError("invalid_criteria", err.Error(), http.StatusBadRequest)
	case errors.Is(err, pricing.ErrUnknownShippingMethod):
		return httpx.NewError("invalid_shipping_method", err.Error(), http.StatusBadRequest)
	case errors.Is(err, errNoConfirmation):
		return httpx.NewError("order_not_found", err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		return httpx.NewError("cart_empty", "cart is empty", http.StatusConflict)
	case errors.Is(err, services.ErrCheckoutNotStarted):
		return httpx.NewError("checkout_not_started", "checkout has not been started", http.StatusConflict)
	case errors.Is(err, services.ErrCheckoutInvalidTransition):
		return httpx.NewError("invalid_transition", err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrCheckoutOrderFailed):
		return httpx.NewError("order_declined", err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, services.ErrPersistence):
		return httpx.NewError("persistence_unavailable", "changes could not be saved", http.StatusServiceUnavailable)
	case errors.Is(err, services.ErrInvalidSessionID):
		return httpx.NewError("session_required", "request has no session", http.StatusUnauthorized)
	case errors.Is(err, context.DeadlineExceeded):
		return httpx.NewError("timeout", "request timed out", http.StatusGatewayTimeout)
	case errors.Is(err, context.Canceled):
		return httpx.NewError("request_cancelled", "request was cancelled", http.StatusRequestTimeout)
	case errors.Is(err, errEmptyBody):
		return httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest)
	case errors.Is(err, errBodyTooLarge):
		return httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge)
	default:
		return httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError)
	}
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = maxBodySize
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// totalsDisplay carries preformatted money strings for clients that do not format currency.
type totalsDisplay struct {
	Subtotal string `json:"subtotal"`
	Shipping string `json:"shipping"`
	Tax      string `json:"tax,omitempty"`
	Total    string `json:"total"`
}

// displayLanguage picks the first Accept-Language entry.
func displayLanguage(r *http.Request) string {
	header := r.Header.Get("Accept-Language")
	first, _, _ := strings.Cut(header, ",")
	first, _, _ = strings.Cut(first, ";")
	return strings.TrimSpace(first)
}

// decodeBody reads a JSON object into dst, writing a 4xx response on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := readLimitedBody(r, maxBodySize)
	if err != nil {
		writeServiceError(r.Context(), w, err, nil)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", fmt.Sprintf("invalid JSON payload: %v", err), http.StatusBadRequest))
		return false
	}
	return true
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "productID"))
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_product_id", "product id must be a positive integer", http.StatusBadRequest))
		return 0, false
	}
	return id, true
}
