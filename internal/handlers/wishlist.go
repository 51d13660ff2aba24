package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clickora/storefront/internal/catalog"
	"github.com/clickora/storefront/internal/domain"
	"github.com/clickora/storefront/internal/platform/httpx"
	"github.com/clickora/storefront/internal/services"
)

// WishlistHandlers exposes the session wishlist.
type WishlistHandlers struct {
	catalog  *catalog.Catalog
	sessions SessionDispatcher
}

// NewWishlistHandlers constructs wishlist handlers.
func NewWishlistHandlers(cat *catalog.Catalog, sessions SessionDispatcher) *WishlistHandlers {
	return &WishlistHandlers{catalog: cat, sessions: sessions}
}

// Routes wires the /wishlist endpoints onto the provided router.
func (h *WishlistHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getWishlist)
	r.Delete("/", h.clear)
	r.Post("/items", h.add)
	r.Post("/items/{productID}/toggle", h.toggle)
	r.Post("/items/{productID}/move-to-cart", h.moveToCart)
	r.Delete("/items/{productID}", h.remove)
}

type wishlistPayload struct {
	Items []domain.WishlistItem `json:"items"`
	Count int                   `json:"count"`
}

type wishlistToggleResponse struct {
	wishlistPayload
	InWishlist bool `json:"in_wishlist"`
}

func wishlistView(wishlist *services.WishlistStore) wishlistPayload {
	items := wishlist.Items()
	return wishlistPayload{Items: items, Count: len(items)}
}

func (h *WishlistHandlers) lookup(w http.ResponseWriter, r *http.Request, id int) (domain.Product, bool) {
	if h.catalog == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_unavailable", "catalog is unavailable", http.StatusServiceUnavailable))
		return domain.Product{}, false
	}
	product, err := h.catalog.Product(id)
	if err != nil {
		writeServiceError(r.Context(), w, err, nil)
		return domain.Product{}, false
	}
	return product, true
}

func (h *WishlistHandlers) getWishlist(w http.ResponseWriter, r *http.Request) {
	dispatch(w, r, h.sessions, http.StatusOK, func(_ context.Context, sess *services.Session) (any, error) {
		return wishlistView(sess.Wishlist), nil
	})
}

func (h *WishlistHandlers) add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int `json:"product_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	product, ok := h.lookup(w, r, req.ProductID)
	if !ok {
		return
	}
	dispatch(w, r, h.sessions, http.StatusOK, func(ctx context.Context, sess *services.Session) (any, error) {
		err := sess.Wishlist.Add(ctx, product.WishlistItem())
		return wishlistView(sess.Wishlist), err
	})
}

func (h *WishlistHandlers) toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	product, ok := h.lookup(w, r, id)
	if !ok {
		return
	}
	dispatch(w, r, h.sessions, http.StatusOK, func(ctx context.Context, sess *services.Session) (any, error) {
		on, err := sess.Wishlist.Toggle(ctx, product.WishlistItem())
		return wishlistToggleResponse{wishlistPayload: wishlistView(sess.Wishlist), InWishlist: on}, err
	})
}

// moveToCart adds the bookmarked product to the cart and drops it from the wishlist.
func (h *WishlistHandlers) moveToCart(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	product, ok := h.lookup(w, r, id)
	if !ok {
		return
	}
	dispatch(w, r, h.sessions, http.StatusOK, func(ctx context.Context, sess *services.Session) (any, error) {
		cartErr := sess.Cart.Add(ctx, product.Snapshot())
		wishErr := sess.Wishlist.Remove(ctx, product.ID)
		if cartErr != nil {
			return nil, cartErr
		}
		return wishlistView(sess.Wishlist), wishErr
	})
}

func (h *WishlistHandlers) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	dispatch(w, r, h.sessions, http.StatusOK, func(ctx context.Context, sess *services.Session) (any, error) {
		err := sess.Wishlist.Remove(ctx, id)
		return wishlistView(sess.Wishlist), err
	})
}

func (h *WishlistHandlers) clear(w http.ResponseWriter, r *http.Request) {
	dispatch(w, r, h.sessions, http.StatusOK, func(ctx context.Context, sess *services.Session) (any, error) {
		err := sess.Wishlist.Clear(ctx)
		return wishlistView(sess.Wishlist), err
	})
}
