package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clickora/storefront/internal/domain"
	"github.com/clickora/storefront/internal/platform/httpx"
	"github.com/clickora/storefront/internal/platform/requestctx"
	"github.com/clickora/storefront/internal/services"
)

// TokenIssuer signs bearer tokens for a session id.
type TokenIssuer interface {
	IssueToken(id string) (string, time.Time, error)
}

// AuthHandlers exposes the simulated login session.
type AuthHandlers struct {
	sessions SessionDispatcher
	tokens   TokenIssuer
}

// NewAuthHandlers constructs auth handlers. tokens may be nil, which disables /auth/token.
func NewAuthHandlers(sessions SessionDispatcher, tokens TokenIssuer) *AuthHandlers {
	return &AuthHandlers{sessions: sessions, tokens: tokens}
}

// Routes wires the /auth endpoints onto the provided router.
func (h *AuthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.state)
	r.Post("/login", h.login)
	r.Post("/signup", h.signup)
	r.Post("/logout", h.logout)
	r.Post("/token", h.issueToken)
}

type userPayload struct {
	User domain.User `json:"user"`
}

type tokenPayload struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *AuthHandlers) state(w http.ResponseWriter, r *http.Request) {
	dispatch(w, r, h.sessions, http.StatusOK, func(_ context.Context, sess *services.Session) (any, error) {
		return sess.Auth.State(), nil
	})
}

func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var creds services.Credentials
	if !decodeBody(w, r, &creds) {
		return
	}
	dispatch(w, r, h.sessions, http.StatusOK, func(ctx context.Context, sess *services.Session) (any, error) {
		user, err := sess.Auth.Login(ctx, creds)
		return userPayload{User: user}, err
	})
}

func (h *AuthHandlers) signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	dispatch(w, r, h.sessions, http.StatusCreated, func(ctx context.Context, sess *services.Session) (any, error) {
		user, err := sess.Auth.Signup(ctx, req)
		return userPayload{User: user}, err
	})
}

func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	dispatch(w, r, h.sessions, http.StatusOK, func(ctx context.Context, sess *services.Session) (any, error) {
		if err := sess.Auth.Logout(ctx); err != nil {
			return nil, err
		}
		return sess.Auth.State(), nil
	})
}

// issueToken lets non-browser clients carry the current session as a bearer token.
func (h *AuthHandlers) issueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.tokens == nil {
		httpx.WriteError(ctx, w, httpx.NewError("tokens_disabled", "token issuance is not configured", http.StatusNotImplemented))
		return
	}
	id := requestctx.SessionID(ctx)
	if id == "" {
		httpx.WriteError(ctx, w, httpx.NewError("session_required", "request has no session", http.StatusUnauthorized))
		return
	}
	token, expires, err := h.tokens.IssueToken(id)
	if err != nil {
		writeServiceError(ctx, w, err, nil)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.WriteJSON(w, http.StatusOK, tokenPayload{Token: token, TokenType: "Bearer", ExpiresAt: expires})
}
