package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/clickora/storefront/internal/catalog"
	"github.com/clickora/storefront/internal/domain"
	"github.com/clickora/storefront/internal/platform/httpx"
	"github.com/clickora/storefront/internal/platform/requestctx"
	"github.com/clickora/storefront/internal/pricing"
	"github.com/clickora/storefront/internal/services"
)

const (
	defaultFeaturedLimit = 8
	maxFeaturedLimit     = 30
	catalogCacheControl  = "public, max-age=300"
)

// CatalogHandlers exposes product listing and detail endpoints.
type CatalogHandlers struct {
	catalog  *catalog.Catalog
	sessions SessionDispatcher
}

// NewCatalogHandlers constructs catalog handlers. Listing state lives in the session.
func NewCatalogHandlers(cat *catalog.Catalog, sessions SessionDispatcher) *CatalogHandlers {
	return &CatalogHandlers{catalog: cat, sessions: sessions}
}

// Routes registers the /products endpoints.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/featured", h.featured)
	r.Get("/facets", h.facets)
	r.Get("/{productID}", h.getProduct)
}

type listingPayload struct {
	catalog.Page
	Criteria catalog.Criteria `json:"criteria"`
	Sort     catalog.SortKey  `json:"sort"`
	Search   string           `json:"search,omitempty"`
}

type productPayload struct {
	domain.Product
	DiscountPercent int              `json:"discount_percent,omitempty"`
	InWishlist      bool             `json:"in_wishlist"`
	Related         []domain.Product `json:"related"`
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_unavailable", "catalog is unavailable", http.StatusServiceUnavailable))
		return
	}
	query := r.URL.Query()
	update, err := parseListingQuery(query)
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	dispatch(w, r, h.sessions, http.StatusOK, func(ctx context.Context, sess *services.Session) (any, error) {
		view := sess.Catalog
		if update.reset {
			view.Reset()
		}
		if criteria, changed := update.mergeCriteria(view.Criteria()); changed {
			if err := view.SetCriteria(criteria); err != nil {
				return nil, err
			}
		}
		if update.alias != "" {
			view.ApplyCategoryAlias(update.alias)
		}
		if update.sortSet {
			view.SetSort(update.sort)
		}
		if update.searchSet {
			view.SetSearch(update.search)
			if update.search != "" {
				requestctx.Logger(ctx).Info("catalog search", zap.String("term", update.search))
			}
		}
		if update.page > 0 {
			view.SetPage(update.page)
		}
		page, err := view.Result()
		if err != nil {
			return nil, err
		}
		return listingPayload{
			Page:     page,
			Criteria: view.Criteria(),
			Sort:     view.SortKey(),
			Search:   view.Search(),
		}, nil
	})
}

func (h *CatalogHandlers) featured(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_unavailable", "catalog is unavailable", http.StatusServiceUnavailable))
		return
	}
	limit := defaultFeaturedLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxFeaturedLimit {
			httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", fmt.Sprintf("limit must be between 1 and %d", maxFeaturedLimit), http.StatusBadRequest))
			return
		}
		limit = n
	}
	w.Header().Set("Cache-Control", catalogCacheControl)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": h.catalog.Featured(limit)})
}

func (h *CatalogHandlers) facets(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_unavailable", "catalog is unavailable", http.StatusServiceUnavailable))
		return
	}
	w.Header().Set("Cache-Control", catalogCacheControl)
	httpx.WriteJSON(w, http.StatusOK, h.catalog.Facets())
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	if h.catalog == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_unavailable", "catalog is unavailable", http.StatusServiceUnavailable))
		return
	}
	product, err := h.catalog.Product(id)
	if err != nil {
		writeServiceError(r.Context(), w, err, nil)
		return
	}
	related, err := h.catalog.Related(id, 0)
	if err != nil {
		writeServiceError(r.Context(), w, err, nil)
		return
	}
	dispatch(w, r, h.sessions, http.StatusOK, func(_ context.Context, sess *services.Session) (any, error) {
		return productPayload{
			Product:         product,
			DiscountPercent: pricing.DiscountPercent(product.Price, product.OriginalPrice),
			InWishlist:      sess.Wishlist.Contains(product.ID),
			Related:         related,
		}, nil
	})
}

type listingUpdate struct {
	reset      bool
	categories []string
	brands     []string
	colors     []string
	tags       []string
	price      *catalog.PriceRange
	alias      string
	sort      catalog.SortKey
	sortSet   bool
	search    string
	searchSet bool
	page      int
}

// parseListingQuery maps listing query parameters onto a view update. Parameters that are
// absent leave the session's listing state untouched.
func parseListingQuery(query url.Values) (listingUpdate, error) {
	var update listingUpdate
	update.reset = query.Get("reset") == "1" || strings.EqualFold(query.Get("reset"), "true")

	update.categories = multiValue(query, "category_name")
	update.brands = multiValue(query, "brand")
	update.colors = multiValue(query, "color")
	update.tags = multiValue(query, "tag")
	minRaw := strings.TrimSpace(query.Get("min_price"))
	maxRaw := strings.TrimSpace(query.Get("max_price"))
	if minRaw != "" || maxRaw != "" {
		if minRaw == "" || maxRaw == "" {
			return update, fmt.Errorf("min_price and max_price must be supplied together")
		}
		minPrice, err := decimal.NewFromString(minRaw)
		if err != nil {
			return update, fmt.Errorf("min_price must be a number")
		}
		maxPrice, err := decimal.NewFromString(maxRaw)
		if err != nil {
			return update, fmt.Errorf("max_price must be a number")
		}
		update.price = &catalog.PriceRange{Min: minPrice, Max: maxPrice}
	}

	update.alias = strings.TrimSpace(query.Get("category"))
	if _, ok := query["sort"]; ok {
		update.sort = catalog.ParseSortKey(query.Get("sort"))
		update.sortSet = true
	}
	if _, ok := query["search"]; ok {
		update.search = strings.TrimSpace(query.Get("search"))
		update.searchSet = true
	}
	if raw := strings.TrimSpace(query.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return update, fmt.Errorf("page must be a positive integer")
		}
		update.page = page
	}
	return update, nil
}

// mergeCriteria overlays the dimensions present in the query onto current. It reports
// whether any dimension was supplied.
func (u listingUpdate) mergeCriteria(current catalog.Criteria) (catalog.Criteria, bool) {
	changed := false
	if u.categories != nil {
		current.Categories = u.categories
		changed = true
	}
	if u.brands != nil {
		current.Brands = u.brands
		changed = true
	}
	if u.colors != nil {
		current.Colors = u.colors
		changed = true
	}
	if u.tags != nil {
		current.Tags = u.tags
		changed = true
	}
	if u.price != nil {
		price := *u.price
		current.Price = &price
		changed = true
	}
	return current, changed
}

// multiValue accepts both repeated parameters and comma-separated lists. A parameter that is
// present but empty clears its dimension.
func multiValue(query url.Values, key string) []string {
	raw, ok := query[key]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
