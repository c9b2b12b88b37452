// Package syncservice coordinates settings, the reconciliation engine and
// the index behind every entry point (CLI, REST, MCP, watcher).
package syncservice

import (
	"context"
	"log/slog"

	"github.com/starford/genresync/internal/genre"
	"github.com/starford/genresync/internal/index"
	"github.com/starford/genresync/internal/models"
	"github.com/starford/genresync/internal/reconcile"
	"github.com/starford/genresync/internal/settings"
	"github.com/starford/genresync/internal/vaultpath"
)

// SettingsPatch carries the settings fields to change; nil fields are kept.
type SettingsPatch struct {
	ArtistFolder *string `json:"artistFolder,omitempty"`
	GenreFolder  *string `json:"genreFolder,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p.ArtistFolder == nil && p.GenreFolder == nil
}

// Service coordinates settings, engine and index operations.
type Service struct {
	settings settings.Provider
	engine   *reconcile.Engine
	db       index.GenreIndex
	logger   *slog.Logger
}

// NewService creates a new sync service. db may be nil, in which case the
// query methods return empty results.
func NewService(sp settings.Provider, engine *reconcile.Engine, db index.GenreIndex, logger *slog.Logger) *Service {
	return &Service{settings: sp, engine: engine, db: db, logger: logger}
}

// UpdateGenrePages loads the current settings and runs one reconciliation.
func (s *Service) UpdateGenrePages(ctx context.Context) (*models.RunReport, error) {
	return s.UpdateGenrePagesWith(ctx, SettingsPatch{})
}

// UpdateGenrePagesWith runs one reconciliation with the persisted settings
// overridden by patch. The overrides are not saved.
func (s *Service) UpdateGenrePagesWith(ctx context.Context, patch SettingsPatch) (*models.RunReport, error) {
	cur, err := s.settings.Load()
	if err != nil {
		return nil, err
	}
	apply(&cur, patch)
	return s.engine.Reconcile(ctx, cur)
}

// Settings returns the persisted settings.
func (s *Service) Settings(_ context.Context) (models.Settings, error) {
	return s.settings.Load()
}

// UpdateSettings persists the fields set in patch.
func (s *Service) UpdateSettings(_ context.Context, patch SettingsPatch) (models.Settings, error) {
	return s.settings.Update(func(v *models.Settings) { apply(v, patch) })
}

// NotesChanged is the watcher trigger: it reconciles when any of paths lies
// under the configured artist folder.
func (s *Service) NotesChanged(ctx context.Context, paths []string) {
	cur, err := s.settings.Load()
	if err != nil {
		s.logger.Warn("watch: load settings failed", slog.String("error", err.Error()))
		return
	}
	if !cur.Configured() {
		return
	}
	root := vaultpath.Normalize(cur.ArtistFolder)
	for _, p := range paths {
		if vaultpath.HasPrefix(p, root) {
			s.logger.Info("watch: artist notes changed", slog.Int("changed", len(paths)))
			if _, err := s.engine.Reconcile(ctx, cur); err != nil {
				s.logger.Warn("watch: reconcile failed", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// Genres lists the genres of the latest run with their artist counts.
func (s *Service) Genres(_ context.Context) ([]index.GenreRow, error) {
	if s.db == nil {
		return []index.GenreRow{}, nil
	}
	rows, err := s.db.Genres()
	return nonNilSlice(rows), err
}

// ArtistsFor lists the artist notes declaring the canonical form of g.
func (s *Service) ArtistsFor(_ context.Context, g string) ([]string, error) {
	if s.db == nil {
		return []string{}, nil
	}
	rows, err := s.db.ArtistsFor(genre.Normalize(g))
	return nonNilSlice(rows), err
}

// Runs lists recent runs, newest first.
func (s *Service) Runs(_ context.Context, limit int) ([]index.RunRow, error) {
	if s.db == nil {
		return []index.RunRow{}, nil
	}
	rows, err := s.db.Runs(limit)
	return nonNilSlice(rows), err
}

func apply(v *models.Settings, patch SettingsPatch) {
	if patch.ArtistFolder != nil {
		v.ArtistFolder = *patch.ArtistFolder
	}
	if patch.GenreFolder != nil {
		v.GenreFolder = *patch.GenreFolder
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
