package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clickora/storefront/internal/domain"
	"github.com/clickora/storefront/internal/platform/kvstore"
)

type recordingNotifier struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recordingNotifier) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.items))
	for _, n := range r.items {
		out = append(out, n.Title)
	}
	return out
}

func (r *recordingNotifier) last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}
	}
	return r.items[len(r.items)-1]
}

type recordingNavigator struct {
	paths []string
}

func (r *recordingNavigator) Navigate(_ context.Context, path string) {
	r.paths = append(r.paths, path)
}

// flakyStore fails writes while failSet is true.
type flakyStore struct {
	*kvstore.MemoryStore
	failSet bool
}

var errBackendDown = errors.New("backend down")

func (s *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	if s.failSet {
		return errBackendDown
	}
	return s.MemoryStore.Set(ctx, key, value)
}

type stubProcessor struct {
	result OrderResult
	err    error
	orders []Order
}

func (p *stubProcessor) Process(_ context.Context, order Order) (OrderResult, error) {
	p.orders = append(p.orders, order)
	return p.result, p.err
}

func instantSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func snapshot(id int, name, price string) domain.ProductSnapshot {
	return domain.ProductSnapshot{ID: id, Name: name, Price: decimal.RequireFromString(price), ImageURL: "/img.png"}
}
