// Package session identifies shoppers across requests. A shopper session id travels either
// in a signed cookie or in an HS256 bearer token, and keys the server-side storage scope.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const (
	defaultCookieName = "clickora_session"
	defaultLifetime   = 30 * 24 * time.Hour
	defaultTokenTTL   = 24 * time.Hour
	tokenIssuer       = "clickora-storefront"
)

var (
	// ErrInvalidConfig indicates the manager was initialised with missing or invalid options.
	ErrInvalidConfig = errors.New("session: invalid config")
	// ErrInvalidToken indicates a bearer token failed signature or claim validation.
	ErrInvalidToken = errors.New("session: invalid token")
)

// Config controls cookie encoding and token signing.
type Config struct {
	CookieName   string
	CookieSecure bool
	HashKey      []byte
	BlockKey     []byte
	TokenSecret  []byte
	TokenTTL     time.Duration
	Lifetime     time.Duration
	Now          func() time.Time
}

// Identity is the resolved session for a request.
type Identity struct {
	ID string
	// Issued reports that the id was minted for this request.
	Issued bool
	// FromToken reports that the id came from a bearer token rather than the cookie.
	FromToken bool
}

type cookiePayload struct {
	ID       string    `json:"id"`
	IssuedAt time.Time `json:"issuedAt"`
}

type tokenClaims struct {
	jwt.RegisteredClaims
}

// Manager resolves, mints and persists session identities.
type Manager struct {
	cfg   Config
	codec *securecookie.SecureCookie
	now   func() time.Time
}

// NewManager constructs a Manager using the provided configuration.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	if len(cfg.TokenSecret) == 0 {
		return nil, fmt.Errorf("%w: token secret is required", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.Lifetime.Seconds()))

	return &Manager{cfg: cfg, codec: codec, now: now}, nil
}

// Resolve returns the session identity carried by the request. A bearer token takes
// precedence over the cookie. Missing or unreadable credentials yield a fresh identity; an
// invalid bearer token is an error because the client asked for a specific session.
func (m *Manager) Resolve(r *http.Request) (Identity, error) {
	if raw := bearerToken(r); raw != "" {
		id, err := m.ParseToken(raw)
		if err != nil {
			return Identity{}, err
		}
		return Identity{ID: id, FromToken: true}, nil
	}

	if cookie, err := r.Cookie(m.cfg.CookieName); err == nil {
		var payload cookiePayload
		if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &payload); err == nil && validID(payload.ID) {
			return Identity{ID: payload.ID}, nil
		}
	}

	return Identity{ID: uuid.NewString(), Issued: true}, nil
}

// Save writes the session cookie for identities that did not arrive via a bearer token.
func (m *Manager) Save(w http.ResponseWriter, identity Identity) error {
	if identity.FromToken || !validID(identity.ID) {
		return nil
	}
	encoded, err := m.codec.Encode(m.cfg.CookieName, cookiePayload{ID: identity.ID, IssuedAt: m.now().UTC()})
	if err != nil {
		return fmt.Errorf("session: encode cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encoded,
		Path:     "/",
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.cfg.Lifetime.Seconds()),
	})
	return nil
}

// IssueToken signs a bearer token binding the session id.
func (m *Manager) IssueToken(id string) (string, time.Time, error) {
	if !validID(id) {
		return "", time.Time{}, fmt.Errorf("%w: malformed session id", ErrInvalidToken)
	}
	now := m.now().UTC()
	expires := now.Add(m.cfg.TokenTTL)
	claims := tokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   id,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.TokenSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: sign token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken validates a bearer token and returns the session id it carries.
func (m *Manager) ParseToken(raw string) (string, error) {
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	var claims tokenClaims
	token, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.cfg.TokenSecret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !claims.VerifyIssuer(tokenIssuer, true) {
		return "", fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	}
	if !claims.VerifyExpiresAt(m.now(), true) {
		return "", fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	if !validID(claims.Subject) {
		return "", fmt.Errorf("%w: malformed subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
