package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/clickora/storefront/internal/domain"
	"github.com/clickora/storefront/internal/platform/kvstore"
)

var errWishlistStoreRequired = errors.New("wishlist store: persistence store is required")

// WishlistState is the wishlist snapshot exposed to callers.
type WishlistState struct {
	Items []domain.WishlistItem `json:"items"`
}

// WishlistStoreDeps wires the collaborators of a WishlistStore.
type WishlistStoreDeps struct {
	Store    kvstore.Store
	Notifier Notifier
	Logger   *zap.Logger
}

// WishlistStore keeps a set of bookmarked products keyed by id, in insertion order.
type WishlistStore struct {
	kv       kvstore.Store
	notifier Notifier
	logger   *zap.Logger
	items    []domain.WishlistItem
}

// NewWishlistStore constructs an empty WishlistStore.
func NewWishlistStore(deps WishlistStoreDeps) (*WishlistStore, error) {
	if deps.Store == nil {
		return nil, errWishlistStoreRequired
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WishlistStore{kv: deps.Store, notifier: notifier, logger: logger}, nil
}

// Rehydrate loads the persisted wishlist. Malformed records are ignored.
func (s *WishlistStore) Rehydrate(ctx context.Context) {
	var items []domain.WishlistItem
	found, err := kvstore.GetJSON(ctx, s.kv, KeyWishlist, &items)
	if err != nil {
		s.logger.Warn("wishlist rehydration failed; starting empty", zap.Error(err))
		return
	}
	if !found {
		return
	}
	seen := make(map[int]struct{}, len(items))
	s.items = s.items[:0]
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		s.items = append(s.items, item)
	}
}

// State returns a copy of the wishlist.
func (s *WishlistStore) State() WishlistState {
	return WishlistState{Items: s.Items()}
}

// Items returns a copy of the bookmarked items.
func (s *WishlistStore) Items() []domain.WishlistItem {
	return append([]domain.WishlistItem{}, s.items...)
}

// Len reports the number of bookmarked items.
func (s *WishlistStore) Len() int { return len(s.items) }

// Contains reports whether id is bookmarked.
func (s *WishlistStore) Contains(id int) bool {
	for _, item := range s.items {
		if item.ID == id {
			return true
		}
	}
	return false
}

// Add bookmarks item; duplicates are ignored.
func (s *WishlistStore) Add(ctx context.Context, item domain.WishlistItem) error {
	if s.Contains(item.ID) {
		return nil
	}
	s.items = append(s.items, item)
	s.notifier.Notify(ctx, Notification{
		Title:       "Added to wishlist",
		Description: fmt.Sprintf("%s has been added to your wishlist.", item.Name),
		Severity:    SeverityInfo,
	})
	return s.persist(ctx)
}

// Remove drops id when present.
func (s *WishlistStore) Remove(ctx context.Context, id int) error {
	for i, item := range s.items {
		if item.ID != id {
			continue
		}
		s.items = append(s.items[:i:i], s.items[i+1:]...)
		s.notifier.Notify(ctx, Notification{
			Title:       "Removed from wishlist",
			Description: fmt.Sprintf("%s has been removed from your wishlist.", item.Name),
			Severity:    SeverityInfo,
		})
		return s.persist(ctx)
	}
	return nil
}

// Toggle adds item when absent and removes it otherwise. It reports whether the item is
// bookmarked afterwards.
func (s *WishlistStore) Toggle(ctx context.Context, item domain.WishlistItem) (bool, error) {
	if s.Contains(item.ID) {
		return false, s.Remove(ctx, item.ID)
	}
	return true, s.Add(ctx, item)
}

// Clear removes every bookmark.
func (s *WishlistStore) Clear(ctx context.Context) error {
	if len(s.items) == 0 {
		return nil
	}
	s.items = nil
	s.notifier.Notify(ctx, Notification{
		Title:       "Wishlist cleared",
		Description: "All items have been removed from your wishlist.",
		Severity:    SeverityInfo,
	})
	return s.persist(ctx)
}

func (s *WishlistStore) persist(ctx context.Context) error {
	items := s.items
	if items == nil {
		items = []domain.WishlistItem{}
	}
	if err := kvstore.SetJSON(ctx, s.kv, KeyWishlist, items); err != nil {
		s.logger.Error("wishlist persistence failed", zap.Error(err))
		return fmt.Errorf("%w: wishlist: %v", ErrPersistence, err)
	}
	return nil
}
