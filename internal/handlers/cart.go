package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clickora/storefront/internal/catalog"
	"github.com/clickora/storefront/internal/domain"
	"github.com/clickora/storefront/internal/platform/format"
	"github.com/clickora/storefront/internal/platform/httpx"
	"github.com/clickora/storefront/internal/pricing"
	"github.com/clickora/storefront/internal/services"
)

// CartHandlers exposes the session cart.
type CartHandlers struct {
	catalog  *catalog.Catalog
	sessions SessionDispatcher
}

// NewCartHandlers constructs cart handlers. Product snapshots are taken from cat.
func NewCartHandlers(cat *catalog.Catalog, sessions SessionDispatcher) *CartHandlers {
	return &CartHandlers{catalog: cat, sessions: sessions}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Get("/count", h.count)
	r.Post("/toggle", h.toggle)
	r.Post("/items", h.addItem)
	r.Patch("/items/{productID}", h.updateItem)
	r.Delete("/items/{productID}", h.removeItem)
}

type cartPayload struct {
	Items   []domain.CartItem   `json:"items"`
	IsOpen  bool                `json:"is_open"`
	Summary pricing.CartSummary `json:"summary"`
	Display totalsDisplay       `json:"display"`
}

type addCartItemRequest struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

func cartView(cart *services.CartStore, lang string) cartPayload {
	state := cart.State()
	summary := cart.Summary()
	return cartPayload{
		Items:   state.Items,
		IsOpen:  state.IsOpen,
		Summary: summary,
		Display: totalsDisplay{
			Subtotal: format.Currency(summary.Subtotal, lang),
			Shipping: format.Currency(summary.Shipping, lang),
			Total:    format.Currency(summary.Total, lang),
		},
	}
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	dispatch(w, r, h.sessions, http.StatusOK, func(_ context.Context, sess *services.Session) (any, error) {
		return cartView(sess.Cart, displayLanguage(r)), nil
	})
}

func (h *CartHandlers) count(w http.ResponseWriter, r *http.Request) {
	dispatch(w, r, h.sessions, http.StatusOK, func(_ context.Context, sess *services.Session) (any, error) {
		return map[string]int{"count": sess.Cart.Summary().ItemCount}, nil
	})
}

func (h *CartHandlers) toggle(w http.ResponseWriter, r *http.Request) {
	dispatch(w, r, h.sessions, http.StatusOK, func(ctx context.Context, sess *services.Session) (any, error) {
		sess.Cart.ToggleVisibility(ctx)
		return cartView(sess.Cart, displayLanguage(r)), nil
	})
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if h.catalog == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_unavailable", "catalog is unavailable", http.StatusServiceUnavailable))
		return
	}
	product, err := h.catalog.Product(req.ProductID)
	if err != nil {
		writeServiceError(r.Context(), w, err, nil)
		return
	}
	if !product.InStock {
		httpx.WriteError(r.Context(), w, httpx.NewError("out_of_stock", "product is out of stock", http.StatusConflict))
		return
	}
	dispatch(w, r, h.sessions, http.StatusOK, func(ctx context.Context, sess *services.Session) (any, error) {
		var err error
		if req.Quantity > 1 {
			err = sess.Cart.AddQuantity(ctx, product.Snapshot(), req.Quantity)
		} else {
			err = sess.Cart.Add(ctx, product.Snapshot())
		}
		return cartView(sess.Cart, displayLanguage(r)), err
	})
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	var req updateCartItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}
	dispatch(w, r, h.sessions, http.StatusOK, func(ctx context.Context, sess *services.Session) (any, error) {
		err := sess.Cart.UpdateQuantity(ctx, id, *req.Quantity)
		return cartView(sess.Cart, displayLanguage(r)), err
	})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	dispatch(w, r, h.sessions, http.StatusOK, func(ctx context.Context, sess *services.Session) (any, error) {
		err := sess.Cart.Remove(ctx, id)
		return cartView(sess.Cart, displayLanguage(r)), err
	})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	dispatch(w, r, h.sessions, http.StatusOK, func(ctx context.Context, sess *services.Session) (any, error) {
		err := sess.Cart.Clear(ctx)
		return cartView(sess.Cart, displayLanguage(r)), err
	})
}
