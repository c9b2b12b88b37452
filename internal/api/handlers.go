package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/genresync/internal/genre"
	"github.com/starford/genresync/internal/syncservice"
)

const maxRunsLimit = 500

// Handler holds API route handlers.
type Handler struct {
	svc *syncservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *syncservice.Service) *Handler {
	return &Handler{svc: svc}
}

// SyncGenres handles POST /api/genres/sync.
// An unconfigured vault is not an error: the report comes back with
// skipped=true.
func (h *Handler) SyncGenres(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.UpdateGenrePages(r.Context())
	if err != nil {
		slog.Error("sync genres failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListGenres handles GET /api/genres.
func (h *Handler) ListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.svc.Genres(r.Context())
	if err != nil {
		slog.Error("list genres failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, GenreListResponse{Genres: genres})
}

// GenreArtists handles GET /api/genres/{genre}/artists.
func (h *Handler) GenreArtists(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "genre")
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	g := genre.Normalize(raw)
	if g == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("genre is required"))
		return
	}
	artists, err := h.svc.ArtistsFor(r.Context(), g)
	if err != nil {
		slog.Error("genre artists failed", slog.String("genre", g), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, GenreArtistsResponse{Genre: g, Artists: artists})
}

// ListRuns handles GET /api/runs?limit=N.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be an integer"))
			return
		}
		limit = n
	}
	if err := validation.Validate(limit, validation.Min(0), validation.Max(maxRunsLimit)); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("limit: "+err.Error()))
		return
	}
	runs, err := h.svc.Runs(r.Context(), limit)
	if err != nil {
		slog.Error("list runs failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs})
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Settings(r.Context())
	if err != nil {
		slog.Error("load settings failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// UpdateSettings handles PUT /api/settings. Each field present in the body
// is persisted immediately; folders are not validated until a run.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	if req.Empty() {
		writeJSON(w, http.StatusBadRequest, errorBody("artistFolder or genreFolder is required"))
		return
	}
	s, err := h.svc.UpdateSettings(r.Context(), req)
	if err != nil {
		slog.Error("save settings failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, s)
}
