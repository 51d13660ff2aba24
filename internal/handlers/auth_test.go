package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clickora/storefront/internal/platform/session"
)

type userResponse struct {
	User struct {
		ID        int64  `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		Phone     string `json:"phone"`
	} `json:"user"`
}

func TestAuthHandlers_LoginProfileLogout(t *testing.T) {
	h := newAPIHarness(t, nil, nil)

	rr := h.do(http.MethodGet, "/api/profile", "", "s1")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "/login", decodeError(t, rr).Redirect)

	rr = h.do(http.MethodPost, "/api/auth/login", `{"email":"demo@clickora.com","password":"demo123"}`, "s1")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var user userResponse
	env := decodeEnvelope(t, rr, &user)
	require.Equal(t, int64(1), user.User.ID)
	require.Equal(t, "Demo", user.User.FirstName)
	require.Equal(t, []string{"Welcome back!"}, toastTitles(env.Toasts))

	var profile struct {
		Orders []struct {
			ID string `json:"id"`
		} `json:"orders"`
	}
	decodeEnvelope(t, h.do(http.MethodGet, "/api/profile", "", "s1"), &profile)
	require.Len(t, profile.Orders, 3)

	rr = h.do(http.MethodPatch, "/api/profile", `{"phone":"+1 (555) 000-0000"}`, "s1")
	require.Equal(t, http.StatusOK, rr.Code)
	decodeEnvelope(t, rr, &user)
	require.Equal(t, "+1 (555) 000-0000", user.User.Phone)
	require.Equal(t, "demo@clickora.com", user.User.Email)

	h.do(http.MethodPost, "/api/cart/items", `{"product_id":1}`, "s1")
	rr = h.do(http.MethodPost, "/api/auth/logout", "", "s1")
	require.Equal(t, http.StatusOK, rr.Code)
	var state struct {
		IsAuthenticated bool `json:"is_authenticated"`
	}
	env = decodeEnvelope(t, rr, &state)
	require.False(t, state.IsAuthenticated)
	require.Equal(t, "/", env.Redirect)

	var cart cartResponse
	decodeEnvelope(t, h.do(http.MethodGet, "/api/cart", "", "s1"), &cart)
	require.Empty(t, cart.Items)
}

func TestAuthHandlers_SignupValidation(t *testing.T) {
	h := newAPIHarness(t, nil, nil)

	rr := h.do(http.MethodPost, "/api/auth/signup", `{"email":"not-an-email","password":"x"}`, "s1")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Equal(t, "invalid_input", decodeError(t, rr).Error)

	rr = h.do(http.MethodPost, "/api/auth/signup",
		`{"email":"new@example.com","password":"secret","first_name":"New","last_name":"Shopper"}`, "s1")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var user userResponse
	env := decodeEnvelope(t, rr, &user)
	require.Equal(t, "new@example.com", user.User.Email)
	require.Empty(t, user.User.Phone)
	require.Equal(t, []string{"Account created"}, toastTitles(env.Toasts))
}

func TestAuthHandlers_TokenCarriesCookieSession(t *testing.T) {
	manager, err := session.NewManager(session.Config{
		HashKey:     []byte("12345678901234567890123456789012"),
		BlockKey:    []byte("abcdefghijklmnopqrstuv0123456789"),
		TokenSecret: []byte("token-secret-token-secret-012345"),
		TokenTTL:    time.Hour,
	})
	require.NoError(t, err)
	h := newAPIHarness(t, SessionMiddleware(manager), manager)

	req := httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader(`{"product_id":5}`))
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/token", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr = httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Empty(t, rr.Result().Cookies(), "existing sessions must not be re-issued")
	var token tokenPayload
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &token))
	require.Equal(t, "Bearer", token.TokenType)
	require.NotEmpty(t, token.Token)

	req = httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token.Token)
	rr = httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var cart cartResponse
	decodeEnvelope(t, rr, &cart)
	require.Len(t, cart.Items, 1)
	require.Equal(t, 5, cart.Items[0].ID)

	req = httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr = httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "invalid_token", decodeError(t, rr).Error)
}

func TestAuthHandlers_TokenDisabledWithoutIssuer(t *testing.T) {
	h := newAPIHarness(t, nil, nil)
	rr := h.do(http.MethodPost, "/api/auth/token", "", "s1")
	require.Equal(t, http.StatusNotImplemented, rr.Code)
}
