package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clickora/storefront/internal/services"
)

// ProfileHandlers exposes the account page of the signed-in shopper.
type ProfileHandlers struct {
	sessions SessionDispatcher
}

// NewProfileHandlers constructs profile handlers.
func NewProfileHandlers(sessions SessionDispatcher) *ProfileHandlers {
	return &ProfileHandlers{sessions: sessions}
}

// Routes wires the /profile endpoints onto the provided router.
func (h *ProfileHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getProfile)
	r.Patch("/", h.updateProfile)
}

func (h *ProfileHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	dispatch(w, r, h.sessions, http.StatusOK, func(ctx context.Context, sess *services.Session) (any, error) {
		return sess.Auth.Profile(ctx)
	})
}

func (h *ProfileHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	var update services.ProfileUpdate
	if !decodeBody(w, r, &update) {
		return
	}
	dispatch(w, r, h.sessions, http.StatusOK, func(ctx context.Context, sess *services.Session) (any, error) {
		user, err := sess.Auth.UpdateProfile(ctx, update)
		return userPayload{User: user}, err
	})
}
