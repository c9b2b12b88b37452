// Package reconcile creates a genre note for every genre declared by an
// artist note that has no genre note yet. It is one-directional: existing
// genre notes are never modified or removed.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/genresync/internal/genre"
	"github.com/starford/genresync/internal/models"
	"github.com/starford/genresync/internal/vaultpath"
)

// DefaultWorkers bounds concurrent metadata reads.
const DefaultWorkers = 4

// Notes is the subset of the vault the engine needs.
type Notes interface {
	List(dir string) ([]models.NoteMetadata, error)
	Metadata(path string) (map[string]any, error)
	Create(path string, content []byte) error
}

// Recorder persists the outcome of a run.
type Recorder interface {
	RecordRun(r *models.RunReport) error
}

// Notifier is told about created notes and finished runs.
type Notifier interface {
	GenreCreated(c models.CreatedGenre)
	RunFinished(r *models.RunReport)
}

// Engine runs reconciliations. Runs are serialized.
type Engine struct {
	mu       sync.Mutex
	notes    Notes
	logger   *slog.Logger
	workers  int
	recorder Recorder
	notifier Notifier
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets how many artist notes are read concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithRecorder stores every run report.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithNotifier publishes created notes and run completion.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// New creates an Engine working on notes.
func New(notes Notes, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		notes:   notes,
		logger:  logger,
		workers: DefaultWorkers,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile creates the missing genre notes for s. Unset folders skip the
// run with a warning and a Skipped report; individual read and create
// failures are logged and collected in the report. Only a failure to list
// the vault (or ctx cancellation) returns an error. Cancellation during
// creation still records and announces the partial report, which is
// returned with the error.
func (e *Engine) Reconcile(ctx context.Context, s models.Settings) (*models.RunReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := &models.RunReport{StartedAt: e.now()}
	e.logger.Info("Updating genre pages...")

	if !s.Configured() {
		e.logger.Warn("Artist and genre folders must be set in the settings before running the command.",
			slog.String("artist_folder", s.ArtistFolder),
			slog.String("genre_folder", s.GenreFolder))
		report.Skipped = true
		e.finish(report)
		return report, nil
	}

	artistRoot := vaultpath.Normalize(s.ArtistFolder)
	genreRoot := vaultpath.Normalize(s.GenreFolder)
	report.ArtistRoot, report.GenreRoot = artistRoot, genreRoot

	all, err := e.notes.List("")
	if err != nil {
		return nil, fmt.Errorf("reconcile: list notes: %w", err)
	}

	var artistPaths, genrePaths []string
	for _, n := range all {
		if vaultpath.HasPrefix(n.Path, artistRoot) {
			artistPaths = append(artistPaths, n.Path)
		}
		if vaultpath.HasPrefix(n.Path, genreRoot) {
			genrePaths = append(genrePaths, n.Path)
		}
	}

	artists, err := e.scanArtists(ctx, artistPaths)
	if err != nil {
		return nil, err
	}
	report.Artists = artists
	report.Discovered = Discovered(artists)
	e.logger.Info("Final extracted genres", slog.Any("genres", report.Discovered))

	existing := Existing(genrePaths)
	report.Existing = existing.Values()
	e.logger.Info("Existing genres in folder", slog.Any("genres", report.Existing))

	report.Missing = Missing(report.Discovered, existing)
	e.logger.Info("Missing genres to be created", slog.Any("genres", report.Missing))

	for _, g := range report.Missing {
		if err := ctx.Err(); err != nil {
			e.finish(report)
			e.logger.Warn("Genre page update cancelled",
				slog.Int("created", len(report.Created)),
				slog.Int("pending", len(report.Missing)-len(report.Created)-len(report.Failed)))
			return report, err
		}
		e.create(report, genre.Generate(g, artistRoot, genreRoot), g)
	}

	e.finish(report)
	e.logger.Info("Genre pages updated successfully.",
		slog.Int("created", len(report.Created)),
		slog.Int("failed", len(report.Failed)))
	return report, nil
}

// create writes one genre note. A failure only affects this genre.
func (e *Engine) create(report *models.RunReport, c genre.Content, g string) {
	if err := e.notes.Create(c.Path, []byte(c.Text)); err != nil {
		e.logger.Warn("Failed to create genre page",
			slog.String("genre", g),
			slog.String("path", c.Path),
			slog.String("error", err.Error()))
		report.Failed = append(report.Failed, models.GenreFailure{Genre: g, Path: c.Path, Error: err.Error()})
		return
	}
	e.logger.Info("Created genre page", slog.String("path", c.Path))
	created := models.CreatedGenre{Genre: g, Path: c.Path}
	report.Created = append(report.Created, created)
	if e.notifier != nil {
		e.notifier.GenreCreated(created)
	}
}

func (e *Engine) finish(report *models.RunReport) {
	report.FinishedAt = e.now()
	if e.recorder != nil {
		if err := e.recorder.RecordRun(report); err != nil {
			e.logger.Warn("Failed to record run", slog.String("error", err.Error()))
		}
	}
	if e.notifier != nil {
		e.notifier.RunFinished(report)
	}
}

// scanArtists reads the metadata of every artist note, at most e.workers at
// a time. The result keeps the order of paths.
func (e *Engine) scanArtists(ctx context.Context, paths []string) ([]models.ArtistGenres, error) {
	out := make([]models.ArtistGenres, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = models.ArtistGenres{Path: p}
			e.logger.Debug("Reading file", slog.String("path", p))
			fm, err := e.notes.Metadata(p)
			if err != nil {
				e.logger.Warn("Failed to read artist metadata",
					slog.String("path", p),
					slog.String("error", err.Error()))
				return nil
			}
			v := genre.Read(fm)
			if v.Dropped > 0 {
				e.logger.Debug("Ignored non-scalar genre values",
					slog.String("path", p),
					slog.Int("dropped", v.Dropped))
			}
			if v.Kind != genre.Absent {
				e.logger.Debug("Extracted genres",
					slog.String("path", p),
					slog.Any("genres", v.Values))
			}
			out[i].Genres = Canonical(v.Values)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
