package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/genresync/internal/syncservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *syncservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// The "Update Genre Pages" command.
	r.Post("/genres/sync", h.SyncGenres)

	r.Get("/genres", h.ListGenres)
	r.Get("/genres/{genre}/artists", h.GenreArtists)
	r.Get("/runs", h.ListRuns)

	// Settings panel.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
