package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/clickora/storefront/internal/domain"
	"github.com/clickora/storefront/internal/platform/kvstore"
)

const (
	demoEmail    = "demo@clickora.com"
	demoPassword = "demo123"
	mockPhone    = "+1 (555) 123-4567"
)

var (
	errAuthStoreRequired = errors.New("auth store: persistence store is required")
	errAuthCartRequired  = errors.New("auth store: cart store is required")

	// ErrAuthInvalidInput indicates missing credentials or signup fields.
	ErrAuthInvalidInput = errors.New("auth store: invalid input")
	// ErrAuthRequired indicates the operation needs a signed-in user.
	ErrAuthRequired = errors.New("auth store: authentication required")
)

// AuthState is the session placeholder exposed to callers.
type AuthState struct {
	User            *domain.User `json:"user"`
	IsAuthenticated bool         `json:"is_authenticated"`
	IsLoading       bool         `json:"is_loading"`
}

// Credentials is the login payload. Any non-empty pair is accepted.
type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SignupRequest is the signup payload.
type SignupRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

// ProfileUpdate merges the non-nil fields into the signed-in user.
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

// Profile is the account page payload.
type Profile struct {
	User   domain.User           `json:"user"`
	Orders []domain.OrderSummary `json:"orders"`
}

// AuthStoreDeps wires the collaborators of an AuthStore.
type AuthStoreDeps struct {
	Store     kvstore.Store
	Cart      *CartStore
	Notifier  Notifier
	Navigator Navigator
	Logger    *zap.Logger
	Delay     time.Duration
	Sleep     Sleeper
	Clock     func() time.Time
}

// AuthStore simulates a login session. Credentials are never verified.
type AuthStore struct {
	kv        kvstore.Store
	cart      *CartStore
	notifier  Notifier
	navigator Navigator
	logger    *zap.Logger
	delay     time.Duration
	sleep     Sleeper
	now       func() time.Time
	validate  *validator.Validate
	state     AuthState
}

// NewAuthStore constructs an AuthStore in the loading state.
func NewAuthStore(deps AuthStoreDeps) (*AuthStore, error) {
	if deps.Store == nil {
		return nil, errAuthStoreRequired
	}
	if deps.Cart == nil {
		return nil, errAuthCartRequired
	}
	store := &AuthStore{
		kv:        deps.Store,
		cart:      deps.Cart,
		notifier:  deps.Notifier,
		navigator: deps.Navigator,
		logger:    deps.Logger,
		delay:     deps.Delay,
		sleep:     deps.Sleep,
		now:       deps.Clock,
		validate:  validator.New(),
		state:     AuthState{IsLoading: true},
	}
	if store.notifier == nil {
		store.notifier = noopNotifier{}
	}
	if store.navigator == nil {
		store.navigator = noopNavigator{}
	}
	if store.logger == nil {
		store.logger = zap.NewNop()
	}
	if store.sleep == nil {
		store.sleep = ContextSleep
	}
	if store.now == nil {
		store.now = time.Now
	}
	return store, nil
}

// Rehydrate restores the persisted user. A corrupt record is erased.
func (s *AuthStore) Rehydrate(ctx context.Context) {
	defer func() { s.state.IsLoading = false }()

	var user domain.User
	found, err := kvstore.GetJSON(ctx, s.kv, KeyUser, &user)
	if err != nil {
		var decodeErr *kvstore.DecodeError
		if errors.As(err, &decodeErr) {
			s.logger.Warn("discarding corrupt user record", zap.Error(err))
			if rmErr := s.kv.Remove(ctx, KeyUser); rmErr != nil {
				s.logger.Warn("failed to remove corrupt user record", zap.Error(rmErr))
			}
			return
		}
		s.logger.Warn("user rehydration failed", zap.Error(err))
		return
	}
	if found {
		s.state.User = &user
		s.state.IsAuthenticated = true
	}
}

// State returns a copy of the auth state.
func (s *AuthStore) State() AuthState {
	out := s.state
	if s.state.User != nil {
		user := *s.state.User
		out.User = &user
	}
	return out
}

// User returns the signed-in user or nil.
func (s *AuthStore) User() *domain.User {
	return s.State().User
}

// Login signs in after the simulated delay. The demo credentials map to the demo account;
// anything else yields a generated placeholder user.
func (s *AuthStore) Login(ctx context.Context, creds Credentials) (domain.User, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := s.validate.Struct(creds); err != nil {
		return domain.User{}, fmt.Errorf("%w: email and password are required", ErrAuthInvalidInput)
	}
	if err := s.wait(ctx); err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:        s.now().UnixMilli(),
		Email:     creds.Email,
		FirstName: "John",
		LastName:  "Doe",
		Phone:     mockPhone,
	}
	if creds.Email == demoEmail && creds.Password == demoPassword {
		user = domain.User{ID: 1, Email: demoEmail, FirstName: "Demo", LastName: "User", Phone: mockPhone}
	}
	return user, s.signIn(ctx, user, Notification{
		Title:       "Welcome back!",
		Description: "You have been logged in successfully.",
		Severity:    SeverityInfo,
	})
}

// Signup registers a placeholder account after the simulated delay.
func (s *AuthStore) Signup(ctx context.Context, req SignupRequest) (domain.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := s.validate.Struct(req); err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrAuthInvalidInput, err)
	}
	if err := s.wait(ctx); err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		ID:        s.now().UnixMilli(),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	return user, s.signIn(ctx, user, Notification{
		Title:       "Account created",
		Description: "Your account has been created successfully.",
		Severity:    SeverityInfo,
	})
}

// wait runs the simulated network delay with IsLoading raised. A cancelled context leaves
// the prior state untouched.
func (s *AuthStore) wait(ctx context.Context) error {
	s.state.IsLoading = true
	defer func() { s.state.IsLoading = false }()
	return s.sleep(ctx, s.delay)
}

func (s *AuthStore) signIn(ctx context.Context, user domain.User, n Notification) error {
	s.state.User = &user
	s.state.IsAuthenticated = true
	s.notifier.Notify(ctx, n)
	if err := kvstore.SetJSON(ctx, s.kv, KeyUser, user); err != nil {
		s.logger.Error("user persistence failed", zap.Error(err))
		return fmt.Errorf("%w: user: %v", ErrPersistence, err)
	}
	return nil
}

// Logout erases the session user and the cart, then navigates home. The wishlist is kept.
func (s *AuthStore) Logout(ctx context.Context) error {
	s.state.User = nil
	s.state.IsAuthenticated = false
	s.state.IsLoading = false

	var errs []error
	if err := s.kv.Remove(ctx, KeyUser); err != nil {
		s.logger.Error("user removal failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("%w: user: %v", ErrPersistence, err))
	}
	if err := s.cart.reset(ctx); err != nil {
		errs = append(errs, err)
	}
	s.notifier.Notify(ctx, Notification{
		Title:       "Logged out",
		Description: "You have been logged out successfully.",
		Severity:    SeverityInfo,
	})
	s.navigator.Navigate(ctx, "/")
	return errors.Join(errs...)
}

// UpdateProfile merges the supplied fields into the signed-in user.
func (s *AuthStore) UpdateProfile(ctx context.Context, update ProfileUpdate) (domain.User, error) {
	if s.state.User == nil {
		return domain.User{}, ErrAuthRequired
	}
	user := *s.state.User
	if update.FirstName != nil {
		user.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		user.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.Email != nil {
		user.Email = strings.TrimSpace(*update.Email)
	}
	if update.Phone != nil {
		user.Phone = strings.TrimSpace(*update.Phone)
	}
	s.state.User = &user
	s.notifier.Notify(ctx, Notification{
		Title:       "Profile updated",
		Description: "Your profile has been updated successfully.",
		Severity:    SeverityInfo,
	})
	if err := kvstore.SetJSON(ctx, s.kv, KeyUser, user); err != nil {
		s.logger.Error("user persistence failed", zap.Error(err))
		return user, fmt.Errorf("%w: user: %v", ErrPersistence, err)
	}
	return user, nil
}

// Profile returns the account page data. Guests are sent to the login page.
func (s *AuthStore) Profile(ctx context.Context) (Profile, error) {
	if !s.state.IsAuthenticated || s.state.User == nil {
		s.navigator.Navigate(ctx, "/login")
		return Profile{}, ErrAuthRequired
	}
	return Profile{User: *s.state.User, Orders: mockOrderHistory()}, nil
}
