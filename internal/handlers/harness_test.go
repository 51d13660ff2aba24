package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clickora/storefront/internal/blog"
	"github.com/clickora/storefront/internal/catalog"
	"github.com/clickora/storefront/internal/platform/kvstore"
	"github.com/clickora/storefront/internal/platform/requestctx"
	"github.com/clickora/storefront/internal/services"
)

const testSessionHeader = "X-Test-Session"

func instantSleep(context.Context, time.Duration) error { return nil }

// headerSession binds the session named by a test header without going through cookies.
func headerSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(testSessionHeader); id != "" {
			r = r.WithContext(requestctx.WithSessionID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

type apiHarness struct {
	t        *testing.T
	router   http.Handler
	registry *services.SessionRegistry
	kv       *kvstore.MemoryStore
}

func newAPIHarness(t *testing.T, sessionMiddleware func(http.Handler) http.Handler, tokens TokenIssuer) *apiHarness {
	t.Helper()
	cat, err := catalog.Load("")
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}
	posts, err := blog.Load()
	if err != nil {
		t.Fatalf("blog.Load: %v", err)
	}
	kv := kvstore.NewMemoryStore()
	registry, err := services.NewSessionRegistry(services.SessionRegistryDeps{
		Store:   kv,
		Catalog: cat,
		Sleep:   instantSleep,
		Processor: services.NewSimulatedOrderProcessor(services.SimulatedOrderProcessorDeps{
			Sleep:       instantSleep,
			OrderNumber: func() int { return 555555 },
		}),
	})
	if err != nil {
		t.Fatalf("NewSessionRegistry: %v", err)
	}
	if sessionMiddleware == nil {
		sessionMiddleware = headerSession
	}
	router := NewRouter(
		WithSessionMiddlewares(sessionMiddleware),
		WithProductRoutes(NewCatalogHandlers(cat, registry).Routes),
		WithCartRoutes(NewCartHandlers(cat, registry).Routes),
		WithWishlistRoutes(NewWishlistHandlers(cat, registry).Routes),
		WithAuthRoutes(NewAuthHandlers(registry, tokens).Routes),
		WithProfileRoutes(NewProfileHandlers(registry).Routes),
		WithCheckoutRoutes(NewCheckoutHandlers(registry).Routes),
		WithBlogRoutes(NewBlogHandlers(posts).Routes),
	)
	return &apiHarness{t: t, router: router, registry: registry, kv: kv}
}

func (h *apiHarness) do(method, path, body, sessionID string) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set(testSessionHeader, sessionID)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

type testEnvelope struct {
	Data     json.RawMessage         `json:"data"`
	Toasts   []services.Notification `json:"toasts"`
	Redirect string                  `json:"redirect"`
}

type testError struct {
	Error    string                  `json:"error"`
	Message  string                  `json:"message"`
	Status   int                     `json:"status"`
	Fields   []string                `json:"fields"`
	Toasts   []services.Notification `json:"toasts"`
	Redirect string                  `json:"redirect"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, data any) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v body=%s", err, rr.Body.String())
	}
	if data != nil {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v body=%s", err, rr.Body.String())
		}
	}
	return env
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) testError {
	t.Helper()
	var out testError
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error: %v body=%s", err, rr.Body.String())
	}
	return out
}

func jsonDecode(rr *httptest.ResponseRecorder, dst any) error {
	return json.Unmarshal(rr.Body.Bytes(), dst)
}

func toastTitles(toasts []services.Notification) []string {
	out := make([]string, 0, len(toasts))
	for _, n := range toasts {
		out = append(out, n.Title)
	}
	return out
}
