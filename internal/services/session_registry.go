package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clickora/storefront/internal/catalog"
	"github.com/clickora/storefront/internal/checkout"
	"github.com/clickora/storefront/internal/platform/kvstore"
)

var (
	errRegistryStoreRequired   = errors.New("session registry: persistence store is required")
	errRegistryCatalogRequired = errors.New("session registry: catalog is required")

	// ErrInvalidSessionID indicates an empty session id.
	ErrInvalidSessionID = errors.New("session registry: invalid session id")
)

const (
	defaultIdleTimeout = 30 * time.Minute
	sessionKeyspace    = "session"
)

// Session is one shopper's state: the cart, wishlist and auth stores rehydrated from the
// persistence backend, plus in-memory checkout and listing state. Access is serialized by
// SessionRegistry.Do.
type Session struct {
	ID       string
	Cart     *CartStore
	Wishlist *WishlistStore
	Auth     *AuthStore
	Checkout *CheckoutFlow
	Catalog  *catalog.View

	mu       sync.Mutex
	relay    *relay
	lastSeen time.Time
	loaded   bool
	evicted  bool
}

// relay stamps and forwards notifications to the shared sink and the request-bound
// collector, and forwards navigation to the request-bound navigator.
type relay struct {
	sessionID string
	sink      Notifier
	now       func() time.Time
	notifier  Notifier
	navigator Navigator
}

func (r *relay) Notify(ctx context.Context, n Notification) {
	n.SessionID = r.sessionID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now().UTC()
	}
	if n.Severity == "" {
		n.Severity = SeverityInfo
	}
	if r.sink != nil {
		r.sink.Notify(ctx, n)
	}
	if r.notifier != nil {
		r.notifier.Notify(ctx, n)
	}
}

func (r *relay) Navigate(ctx context.Context, path string) {
	if r.navigator != nil {
		r.navigator.Navigate(ctx, path)
	}
}

// SessionRegistryDeps wires the shared collaborators of every session.
type SessionRegistryDeps struct {
	Store       kvstore.Store
	Catalog     *catalog.Catalog
	Notifier    Notifier
	Processor   OrderProcessor
	Validator   *checkout.Validator
	Logger      *zap.Logger
	Clock       func() time.Time
	Sleep       Sleeper
	AuthDelay   time.Duration
	IdleTimeout time.Duration
	PageSize    int
}

// SessionRegistry owns live sessions and serializes work per session.
type SessionRegistry struct {
	deps SessionRegistryDeps
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionRegistry validates dependencies and constructs a registry.
func NewSessionRegistry(deps SessionRegistryDeps) (*SessionRegistry, error) {
	if deps.Store == nil {
		return nil, errRegistryStoreRequired
	}
	if deps.Catalog == nil {
		return nil, errRegistryCatalogRequired
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Sleep == nil {
		deps.Sleep = ContextSleep
	}
	if deps.Processor == nil {
		deps.Processor = NewSimulatedOrderProcessor(SimulatedOrderProcessorDeps{Sleep: deps.Sleep, Clock: deps.Clock})
	}
	if deps.Validator == nil {
		deps.Validator = checkout.NewValidator()
	}
	if deps.IdleTimeout <= 0 {
		deps.IdleTimeout = defaultIdleTimeout
	}
	if deps.PageSize <= 0 {
		deps.PageSize = catalog.DefaultPageSize
	}
	return &SessionRegistry{
		deps:     deps,
		now:      deps.Clock,
		sessions: make(map[string]*Session),
	}, nil
}

// DoOption binds request-scoped collaborators for the duration of one Do call.
type DoOption func(*relay)

// WithNotifier also delivers the call's notifications to n.
func WithNotifier(n Notifier) DoOption {
	return func(r *relay) { r.notifier = n }
}

// WithNavigator delivers the call's navigation requests to n.
func WithNavigator(n Navigator) DoOption {
	return func(r *relay) { r.navigator = n }
}

// Do runs fn with exclusive access to session id, creating and rehydrating it on first use.
func (r *SessionRegistry) Do(ctx context.Context, id string, fn func(context.Context, *Session) error, opts ...DoOption) error {
	if id == "" {
		return ErrInvalidSessionID
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		sess, err := r.lookup(id)
		if err != nil {
			return err
		}
		sess.mu.Lock()
		if sess.evicted {
			sess.mu.Unlock()
			continue
		}
		return r.run(ctx, sess, fn, opts)
	}
}

func (r *SessionRegistry) run(ctx context.Context, sess *Session, fn func(context.Context, *Session) error, opts []DoOption) (err error) {
	defer func() {
		sess.relay.notifier = nil
		sess.relay.navigator = nil
		sess.lastSeen = r.now()
		sess.mu.Unlock()
	}()
	for _, opt := range opts {
		if opt != nil {
			opt(sess.relay)
		}
	}
	if !sess.loaded {
		sess.Auth.Rehydrate(ctx)
		sess.Wishlist.Rehydrate(ctx)
		sess.Cart.Rehydrate(ctx)
		sess.loaded = true
	}
	return fn(ctx, sess)
}

func (r *SessionRegistry) lookup(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[id]; ok {
		return sess, nil
	}
	sess, err := r.newSession(id)
	if err != nil {
		return nil, err
	}
	r.sessions[id] = sess
	return sess, nil
}

func (r *SessionRegistry) newSession(id string) (*Session, error) {
	logger := r.deps.Logger.With(zap.String("sessionID", id))
	scoped := kvstore.Scoped(r.deps.Store, sessionKeyspace, id)
	rel := &relay{sessionID: id, sink: r.deps.Notifier, now: r.now}

	cart, err := NewCartStore(CartStoreDeps{Store: scoped, Notifier: rel, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("session registry: %w", err)
	}
	wishlist, err := NewWishlistStore(WishlistStoreDeps{Store: scoped, Notifier: rel, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("session registry: %w", err)
	}
	auth, err := NewAuthStore(AuthStoreDeps{
		Store:     scoped,
		Cart:      cart,
		Notifier:  rel,
		Navigator: rel,
		Logger:    logger,
		Delay:     r.deps.AuthDelay,
		Sleep:     r.deps.Sleep,
		Clock:     r.deps.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("session registry: %w", err)
	}
	flow, err := NewCheckoutFlow(CheckoutFlowDeps{
		Cart:      cart,
		Auth:      auth,
		Processor: r.deps.Processor,
		Validator: r.deps.Validator,
		Notifier:  rel,
		Navigator: rel,
		Logger:    logger,
		SessionID: id,
	})
	if err != nil {
		return nil, fmt.Errorf("session registry: %w", err)
	}
	return &Session{
		ID:       id,
		Cart:     cart,
		Wishlist: wishlist,
		Auth:     auth,
		Checkout: flow,
		Catalog:  catalog.NewView(r.deps.Catalog, r.deps.PageSize),
		relay:    rel,
		lastSeen: r.now(),
	}, nil
}

// Len reports the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than the idle timeout. Sessions busy in Do are
// skipped. Persisted state survives eviction; checkout and listing state do not.
func (r *SessionRegistry) Sweep() int {
	cutoff := r.now().Add(-r.deps.IdleTimeout)
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, sess := range r.sessions {
		if !sess.mu.TryLock() {
			continue
		}
		if sess.lastSeen.Before(cutoff) {
			sess.evicted = true
			delete(r.sessions, id)
			evicted++
		}
		sess.mu.Unlock()
	}
	return evicted
}

// Run sweeps idle sessions every interval until ctx is cancelled.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.deps.Logger.Debug("evicted idle sessions", zap.Int("count", n), zap.Int("remaining", r.Len()))
			}
		}
	}
}
