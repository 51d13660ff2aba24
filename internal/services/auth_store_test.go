package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clickora/storefront/internal/domain"
	"github.com/clickora/storefront/internal/platform/kvstore"
)

type authFixture struct {
	auth  *AuthStore
	cart  *CartStore
	kv    *kvstore.MemoryStore
	notes *recordingNotifier
	nav   *recordingNavigator
}

func newAuthFixture(t *testing.T, sleep Sleeper) authFixture {
	t.Helper()
	kv := kvstore.NewMemoryStore()
	notes := &recordingNotifier{}
	nav := &recordingNavigator{}
	cart, err := NewCartStore(CartStoreDeps{Store: kv, Notifier: notes})
	if err != nil {
		t.Fatalf("NewCartStore: %v", err)
	}
	auth, err := NewAuthStore(AuthStoreDeps{
		Store:     kv,
		Cart:      cart,
		Notifier:  notes,
		Navigator: nav,
		Delay:     time.Second,
		Sleep:     sleep,
		Clock:     fixedClock(time.UnixMilli(1700000000123)),
	})
	if err != nil {
		t.Fatalf("NewAuthStore: %v", err)
	}
	return authFixture{auth: auth, cart: cart, kv: kv, notes: notes, nav: nav}
}

func TestAuthStore_LoadingUntilRehydrated(t *testing.T) {
	f := newAuthFixture(t, instantSleep)
	if !f.auth.State().IsLoading {
		t.Fatalf("expected loading before rehydration")
	}
	f.auth.Rehydrate(context.Background())
	state := f.auth.State()
	if state.IsLoading || state.IsAuthenticated {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestAuthStore_DemoLogin(t *testing.T) {
	ctx := context.Background()
	var observedLoading bool
	var f authFixture
	f = newAuthFixture(t, func(ctx context.Context, d time.Duration) error {
		observedLoading = f.auth.state.IsLoading
		if d != time.Second {
			t.Fatalf("unexpected delay %v", d)
		}
		return nil
	})

	user, err := f.auth.Login(ctx, Credentials{Email: "demo@clickora.com", Password: "demo123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !observedLoading {
		t.Fatalf("expected IsLoading during the simulated delay")
	}
	if user.ID != 1 || user.FirstName != "Demo" || user.Phone != "+1 (555) 123-4567" {
		t.Fatalf("unexpected demo user %+v", user)
	}
	state := f.auth.State()
	if !state.IsAuthenticated || state.IsLoading {
		t.Fatalf("unexpected state %+v", state)
	}

	var stored domain.User
	if found, err := kvstore.GetJSON(ctx, f.kv, KeyUser, &stored); err != nil || !found || stored.ID != 1 {
		t.Fatalf("expected persisted user, found=%v err=%v user=%+v", found, err, stored)
	}
}

func TestAuthStore_AnyCredentialsAccepted(t *testing.T) {
	f := newAuthFixture(t, instantSleep)
	user, err := f.auth.Login(context.Background(), Credentials{Email: "shopper@example.com", Password: "x"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != 1700000000123 || user.FirstName != "John" || user.LastName != "Doe" || user.Email != "shopper@example.com" {
		t.Fatalf("unexpected placeholder user %+v", user)
	}
	if _, err := f.auth.Login(context.Background(), Credentials{Email: " "}); !errors.Is(err, ErrAuthInvalidInput) {
		t.Fatalf("expected ErrAuthInvalidInput, got %v", err)
	}
}

func TestAuthStore_CancelledLoginLeavesStateUntouched(t *testing.T) {
	f := newAuthFixture(t, ContextSleep)
	f.auth.Rehydrate(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.auth.Login(ctx, Credentials{Email: "a@b.c", Password: "p"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	state := f.auth.State()
	if state.IsAuthenticated || state.IsLoading || state.User != nil {
		t.Fatalf("cancelled login mutated state: %+v", state)
	}
	if _, err := f.kv.Get(context.Background(), KeyUser); !errors.Is(err, kvstore.ErrNotFound) {
		t.Fatalf("cancelled login must not persist, got %v", err)
	}
}

func TestAuthStore_SignupOmitsPhone(t *testing.T) {
	f := newAuthFixture(t, instantSleep)
	user, err := f.auth.Signup(context.Background(), SignupRequest{
		Email: "new@example.com", Password: "secret", FirstName: "New", LastName: "Shopper",
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if user.Phone != "" || user.FirstName != "New" {
		t.Fatalf("unexpected user %+v", user)
	}
	if _, err := f.auth.Signup(context.Background(), SignupRequest{Email: "bad"}); !errors.Is(err, ErrAuthInvalidInput) {
		t.Fatalf("expected ErrAuthInvalidInput, got %v", err)
	}
}

func TestAuthStore_LogoutClearsCartKeepsNavigation(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, instantSleep)
	_, _ = f.auth.Login(ctx, Credentials{Email: "demo@clickora.com", Password: "demo123"})
	_ = f.cart.Add(ctx, snapshot(1, "A", "10"))

	if err := f.auth.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if f.auth.State().IsAuthenticated || f.auth.User() != nil {
		t.Fatalf("expected signed-out state")
	}
	if !f.cart.IsEmpty() {
		t.Fatalf("expected cart cleared on logout")
	}
	if _, err := f.kv.Get(ctx, KeyUser); !errors.Is(err, kvstore.ErrNotFound) {
		t.Fatalf("expected user record removed, got %v", err)
	}
	if f.notes.last().Title != "Logged out" {
		t.Fatalf("unexpected notification %+v", f.notes.last())
	}
	if len(f.nav.paths) != 1 || f.nav.paths[0] != "/" {
		t.Fatalf("unexpected navigation %v", f.nav.paths)
	}
}

func TestAuthStore_UpdateProfileMerges(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, instantSleep)
	if _, err := f.auth.UpdateProfile(ctx, ProfileUpdate{}); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired for guests, got %v", err)
	}
	_, _ = f.auth.Login(ctx, Credentials{Email: "demo@clickora.com", Password: "demo123"})

	phone := "+1 (555) 000-0000"
	user, err := f.auth.UpdateProfile(ctx, ProfileUpdate{Phone: &phone})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if user.Phone != phone || user.FirstName != "Demo" || user.Email != "demo@clickora.com" {
		t.Fatalf("unexpected merged user %+v", user)
	}
	if f.notes.last().Title != "Profile updated" {
		t.Fatalf("unexpected notification %+v", f.notes.last())
	}
}

func TestAuthStore_RehydrateErasesCorruptUser(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, instantSleep)
	_ = f.kv.Set(ctx, KeyUser, []byte("{broken"))

	f.auth.Rehydrate(ctx)
	if f.auth.State().IsAuthenticated || f.auth.State().IsLoading {
		t.Fatalf("unexpected state %+v", f.auth.State())
	}
	if _, err := f.kv.Get(ctx, KeyUser); !errors.Is(err, kvstore.ErrNotFound) {
		t.Fatalf("expected corrupt user removed, got %v", err)
	}
}

func TestAuthStore_ProfileRequiresLogin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, instantSleep)
	f.auth.Rehydrate(ctx)

	if _, err := f.auth.Profile(ctx); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if len(f.nav.paths) != 1 || f.nav.paths[0] != "/login" {
		t.Fatalf("expected redirect to /login, got %v", f.nav.paths)
	}

	_, _ = f.auth.Login(ctx, Credentials{Email: "demo@clickora.com", Password: "demo123"})
	profile, err := f.auth.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if len(profile.Orders) != 3 || profile.Orders[0].ID != "1001" || profile.Orders[2].Status != domain.OrderStatusProcessing {
		t.Fatalf("unexpected order history %+v", profile.Orders)
	}
}
