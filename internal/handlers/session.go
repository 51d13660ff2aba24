package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/clickora/storefront/internal/platform/httpx"
	"github.com/clickora/storefront/internal/platform/observability"
	"github.com/clickora/storefront/internal/platform/requestctx"
	"github.com/clickora/storefront/internal/platform/session"
)

// SessionMiddleware resolves the shopper session from the bearer token or cookie, minting a
// new one when neither is present, and stores its id on the request context.
func SessionMiddleware(manager *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity, err := manager.Resolve(r)
			if err != nil {
				requestctx.Logger(ctx).Info("rejected session token", zap.Error(err))
				httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "session token is invalid or expired", http.StatusUnauthorized))
				return
			}
			if identity.Issued {
				if err := manager.Save(w, identity); err != nil {
					requestctx.Logger(ctx).Error("failed to write session cookie", zap.Error(err))
					httpx.WriteError(ctx, w, httpx.NewError("session_unavailable", "unable to start session", http.StatusInternalServerError))
					return
				}
			}

			observability.RecordSession(w, identity.ID)
			logger := requestctx.Logger(ctx).With(zap.String("sessionID", observability.SanitizeSessionID(identity.ID)))
			ctx = requestctx.WithLogger(ctx, logger)
			ctx = requestctx.WithSessionID(ctx, identity.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
