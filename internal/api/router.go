package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/admission"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// adm, if non-nil, gates the upload routes; a shed upload is answered with
// 429 and a retry hint before any state is touched.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, adm *admission.Controller, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Session lifecycle.
	r.Post("/sessions", h.CreateSession)
	r.Get("/sessions/{id}", h.GetSession)
	r.Post("/sessions/{id}/finish", h.Finish)
	r.Post("/sessions/{id}/abort", h.Abort)

	// Batch uploads, behind the admission gate.
	r.Group(func(g chi.Router) {
		if adm != nil {
			g.Use(adm.Middleware)
		}
		g.Post("/sessions/{id}/notes", h.UploadNotes)
		g.Post("/sessions/{id}/assets", h.UploadAssets)
	})

	// Published state.
	r.Get("/manifest", h.GetManifest)
	r.Get("/tree", h.GetTree)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
