package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/clickora/storefront/internal/domain"
	"github.com/clickora/storefront/internal/platform/kvstore"
	"github.com/clickora/storefront/internal/pricing"
)

// Persisted keys within a session scope.
const (
	KeyUser     = "user"
	KeyWishlist = "wishlist"
	KeyCart     = "cart"
)

var errCartStoreRequired = errors.New("cart store: persistence store is required")

// CartState is the cart snapshot exposed to callers.
type CartState struct {
	Items  []domain.CartItem `json:"items"`
	IsOpen bool              `json:"is_open"`
}

// CartStoreDeps wires the collaborators of a CartStore.
type CartStoreDeps struct {
	Store    kvstore.Store
	Notifier Notifier
	Logger   *zap.Logger
}

// CartStore owns the ordered cart lines of one session. It is not safe for concurrent use;
// the owning session serializes access.
type CartStore struct {
	kv       kvstore.Store
	notifier Notifier
	logger   *zap.Logger
	state    CartState
}

// NewCartStore constructs an empty CartStore.
func NewCartStore(deps CartStoreDeps) (*CartStore, error) {
	if deps.Store == nil {
		return nil, errCartStoreRequired
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartStore{kv: deps.Store, notifier: notifier, logger: logger}, nil
}

// Rehydrate loads the persisted cart. Malformed records are ignored.
func (s *CartStore) Rehydrate(ctx context.Context) {
	var items []domain.CartItem
	found, err := kvstore.GetJSON(ctx, s.kv, KeyCart, &items)
	if err != nil {
		s.logger.Warn("cart rehydration failed; starting empty", zap.Error(err))
		return
	}
	if !found {
		return
	}
	s.state.Items = sanitizeCartItems(items)
}

// sanitizeCartItems drops lines violating the quantity floor and merges duplicate ids.
func sanitizeCartItems(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	index := make(map[int]int, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			continue
		}
		if i, ok := index[item.ID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.ID] = len(out)
		out = append(out, item)
	}
	return out
}

// State returns a copy of the current cart.
func (s *CartStore) State() CartState {
	return CartState{Items: s.Items(), IsOpen: s.state.IsOpen}
}

// Items returns a copy of the cart lines.
func (s *CartStore) Items() []domain.CartItem {
	return append([]domain.CartItem{}, s.state.Items...)
}

// IsEmpty reports whether the cart has no lines.
func (s *CartStore) IsEmpty() bool { return len(s.state.Items) == 0 }

// Summary derives subtotal, flat-rate shipping, total and item count.
func (s *CartStore) Summary() pricing.CartSummary {
	return pricing.SummarizeCart(s.state.Items)
}

// Add increments an existing line or appends a new one with quantity 1.
func (s *CartStore) Add(ctx context.Context, product domain.ProductSnapshot) error {
	return s.AddQuantity(ctx, product, 1)
}

// AddQuantity adds n units of product; n below 1 is treated as 1.
func (s *CartStore) AddQuantity(ctx context.Context, product domain.ProductSnapshot, n int) error {
	if n < 1 {
		n = 1
	}
	merged := false
	for i := range s.state.Items {
		if s.state.Items[i].ID == product.ID {
			s.state.Items[i].Quantity += n
			merged = true
			break
		}
	}
	if !merged {
		s.state.Items = append(s.state.Items, domain.CartItem{
			ID:       product.ID,
			Name:     product.Name,
			Price:    product.Price,
			ImageURL: product.ImageURL,
			Quantity: n,
		})
	}

	description := fmt.Sprintf("%s has been added to your cart.", product.Name)
	if n > 1 {
		description = fmt.Sprintf("%dx %s has been added to your cart.", n, product.Name)
	}
	s.notifier.Notify(ctx, Notification{Title: "Added to cart", Description: description, Severity: SeverityInfo})
	return s.persist(ctx)
}

// UpdateQuantity sets the quantity of line id exactly. Quantities ≤ 0 remove the line;
// unknown ids are ignored.
func (s *CartStore) UpdateQuantity(ctx context.Context, id, quantity int) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}
	if quantity <= 0 {
		s.removeAt(idx)
		s.notifier.Notify(ctx, Notification{
			Title:       "Item removed",
			Description: "Item has been removed from your cart.",
			Severity:    SeverityInfo,
		})
		return s.persist(ctx)
	}
	if s.state.Items[idx].Quantity == quantity {
		return nil
	}
	s.state.Items[idx].Quantity = quantity
	s.notifier.Notify(ctx, Notification{
		Title:       "Cart updated",
		Description: fmt.Sprintf("%s quantity updated to %d.", s.state.Items[idx].Name, quantity),
		Severity:    SeverityInfo,
	})
	return s.persist(ctx)
}

// Remove deletes line id when present.
func (s *CartStore) Remove(ctx context.Context, id int) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}
	name := s.state.Items[idx].Name
	s.removeAt(idx)
	s.notifier.Notify(ctx, Notification{
		Title:       "Item removed",
		Description: fmt.Sprintf("%s has been removed from your cart.", name),
		Severity:    SeverityInfo,
	})
	return s.persist(ctx)
}

// Clear empties the cart.
func (s *CartStore) Clear(ctx context.Context) error {
	if len(s.state.Items) == 0 {
		return nil
	}
	s.state.Items = nil
	s.notifier.Notify(ctx, Notification{
		Title:       "Cart cleared",
		Description: "All items have been removed from your cart.",
		Severity:    SeverityInfo,
	})
	return s.persist(ctx)
}

// reset empties the cart without notifying; used after order placement and logout, which
// announce themselves.
func (s *CartStore) reset(ctx context.Context) error {
	s.state.Items = nil
	s.state.IsOpen = false
	return s.persist(ctx)
}

// ToggleVisibility flips the sidebar flag. The flag is presentation state and is not
// persisted.
func (s *CartStore) ToggleVisibility(context.Context) bool {
	s.state.IsOpen = !s.state.IsOpen
	return s.state.IsOpen
}

func (s *CartStore) indexOf(id int) int {
	for i, item := range s.state.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (s *CartStore) removeAt(idx int) {
	s.state.Items = append(s.state.Items[:idx:idx], s.state.Items[idx+1:]...)
}

func (s *CartStore) persist(ctx context.Context) error {
	items := s.state.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	if err := kvstore.SetJSON(ctx, s.kv, KeyCart, items); err != nil {
		s.logger.Error("cart persistence failed", zap.Error(err))
		return fmt.Errorf("%w: cart: %v", ErrPersistence, err)
	}
	return nil
}
