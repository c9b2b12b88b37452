package reconcile

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/starford/genresync/internal/apperr"
	"github.com/starford/genresync/internal/models"
	"github.com/starford/genresync/internal/storage"
	"github.com/starford/genresync/internal/testutil"
)

var musicSettings = models.Settings{ArtistFolder: "Artists", GenreFolder: "Genres"}

func seedScenario(t *testing.T, store storage.Provider) {
	t.Helper()
	testutil.WriteNote(t, store, "Artists/Slowdive.md", "---\ngenres:\n  - Dream Pop\n  - shoegaze\n---\n# Slowdive\n")
	testutil.WriteNote(t, store, "Artists/Beach House.md", "---\ngenres: Dream Pop\n---\n# Beach House\n")
}

func listGenreNotes(t *testing.T, store storage.Provider) []string {
	t.Helper()
	metas, err := store.List("Genres")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var out []string
	for _, m := range metas {
		out = append(out, m.Path)
	}
	sort.Strings(out)
	return out
}

func TestReconcile_ScenarioA_EmptyGenreRoot(t *testing.T) {
	_, store := testutil.TestVault(t)
	seedScenario(t, store)

	report, err := New(store, testutil.Logger()).Reconcile(context.Background(), musicSettings)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	got := listGenreNotes(t, store)
	want := []string{"Genres/dream pop.md", "Genres/shoegaze.md"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("genre notes = %v, want %v", got, want)
	}
	if len(report.Created) != 2 || len(report.Failed) != 0 {
		t.Errorf("report = %+v", report)
	}

	data, _ := store.Read("Genres/dream pop.md")
	text := string(data)
	for _, want := range []string{
		"chosicUrl: https://www.chosic.com/genre-chart/dream-pop/\n",
		"everynoiseUrl: https://everynoise.com/engenremap-dreampop.html\n",
		"from \"Artists\"\n",
		"where contains(genres, \"dream pop\")\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("dream pop note missing %q:\n%s", want, text)
		}
	}
	data, _ = store.Read("Genres/shoegaze.md")
	if !strings.Contains(string(data), "engenremap-shoegaze.html") {
		t.Errorf("shoegaze note:\n%s", data)
	}
}

func TestReconcile_ScenarioB_ExistingGenreSkipped(t *testing.T) {
	_, store := testutil.TestVault(t)
	seedScenario(t, store)
	testutil.WriteNote(t, store, "Genres/Shoegaze.md", "my own notes")

	report, err := New(store, testutil.Logger()).Reconcile(context.Background(), musicSettings)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !reflect.DeepEqual(report.Missing, []string{"dream pop"}) {
		t.Errorf("missing = %v", report.Missing)
	}
	got := listGenreNotes(t, store)
	want := []string{"Genres/Shoegaze.md", "Genres/dream pop.md"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("genre notes = %v, want %v", got, want)
	}
	data, _ := store.Read("Genres/Shoegaze.md")
	if string(data) != "my own notes" {
		t.Errorf("existing genre note modified: %q", data)
	}
}

func TestReconcile_ScenarioC_Unconfigured(t *testing.T) {
	for _, s := range []models.Settings{
		{},
		{ArtistFolder: "Artists"},
		{GenreFolder: "Genres"},
	} {
		_, store := testutil.TestVault(t)
		seedScenario(t, store)
		logger, logs := testutil.CaptureLogger()

		report, err := New(store, logger).Reconcile(context.Background(), s)
		if err != nil {
			t.Fatalf("Reconcile(%+v): %v", s, err)
		}
		if !report.Skipped {
			t.Errorf("report for %+v not marked skipped", s)
		}
		if got := listGenreNotes(t, store); len(got) != 0 {
			t.Errorf("notes created without configuration: %v", got)
		}
		if !strings.Contains(logs.String(), `"level":"WARN"`) {
			t.Errorf("expected a warning, logs:\n%s", logs.String())
		}
	}
}

func TestReconcile_ScenarioD_NoMetadataHeader(t *testing.T) {
	_, store := testutil.TestVault(t)
	testutil.WriteNote(t, store, "Artists/Unknown.md", "# Unknown\nNo header here.\n")
	testutil.WriteNote(t, store, "Artists/Broken.md", "---\ngenres: [unclosed\n---\n")
	testutil.WriteNote(t, store, "Artists/Ride.md", "---\ngenres: shoegaze\n---\n")

	report, err := New(store, testutil.Logger()).Reconcile(context.Background(), musicSettings)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !reflect.DeepEqual(report.Discovered, []string{"shoegaze"}) {
		t.Errorf("discovered = %v", report.Discovered)
	}
	if got := listGenreNotes(t, store); !reflect.DeepEqual(got, []string{"Genres/shoegaze.md"}) {
		t.Errorf("genre notes = %v", got)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	_, store := testutil.TestVault(t)
	seedScenario(t, store)
	engine := New(store, testutil.Logger())

	if _, err := engine.Reconcile(context.Background(), musicSettings); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, _ := store.Read("Genres/shoegaze.md")

	report, err := engine.Reconcile(context.Background(), musicSettings)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(report.Missing) != 0 || len(report.Created) != 0 || len(report.Failed) != 0 {
		t.Errorf("second run did work: %+v", report)
	}
	second, _ := store.Read("Genres/shoegaze.md")
	if string(first) != string(second) {
		t.Error("genre note changed on second run")
	}
}

func TestReconcile_NormalizesCaseAndWhitespace(t *testing.T) {
	_, store := testutil.TestVault(t)
	testutil.WriteNote(t, store, "Artists/a.md", "---\ngenres: Synth-Pop\n---\n")
	testutil.WriteNote(t, store, "Artists/b.md", "---\ngenres: [\" synth-pop\", \"SYNTH-POP \"]\n---\n")

	report, err := New(store, testutil.Logger()).Reconcile(context.Background(), musicSettings)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !reflect.DeepEqual(report.Discovered, []string{"synth-pop"}) {
		t.Errorf("discovered = %v", report.Discovered)
	}
	if len(report.Created) != 1 || report.Created[0].Path != "Genres/synth-pop.md" {
		t.Errorf("created = %+v", report.Created)
	}
}

func TestReconcile_RootPathsNormalized(t *testing.T) {
	_, store := testutil.TestVault(t)
	testutil.WriteNote(t, store, "Music/Artists/Ride.md", "---\ngenres: shoegaze\n---\n")

	s := models.Settings{ArtistFolder: `/Music\Artists/`, GenreFolder: "Music//Genres/"}
	report, err := New(store, testutil.Logger()).Reconcile(context.Background(), s)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.ArtistRoot != "Music/Artists" || report.GenreRoot != "Music/Genres" {
		t.Errorf("roots = %q, %q", report.ArtistRoot, report.GenreRoot)
	}
	data, err := store.Read("Music/Genres/shoegaze.md")
	if err != nil {
		t.Fatalf("genre note missing: %v", err)
	}
	if !strings.Contains(string(data), `from "Music/Artists"`) {
		t.Errorf("query should use the normalized root:\n%s", data)
	}
}

func TestReconcile_DotSegmentsInRoots(t *testing.T) {
	for _, genreFolder := range []string{"./Genres", "Music/../Genres", "Genres/."} {
		t.Run(genreFolder, func(t *testing.T) {
			_, store := testutil.TestVault(t)
			testutil.WriteNote(t, store, "Artists/Ride.md", "---\ngenres: shoegaze\n---\n")
			s := models.Settings{ArtistFolder: "./Artists", GenreFolder: genreFolder}
			engine := New(store, testutil.Logger())

			first, err := engine.Reconcile(context.Background(), s)
			if err != nil {
				t.Fatalf("first run: %v", err)
			}
			if first.GenreRoot != "Genres" || len(first.Created) != 1 {
				t.Fatalf("first run = %+v", first)
			}

			second, err := engine.Reconcile(context.Background(), s)
			if err != nil {
				t.Fatalf("second run: %v", err)
			}
			if len(second.Failed) != 0 || len(second.Created) != 0 {
				t.Errorf("second run created=%+v failed=%+v", second.Created, second.Failed)
			}
			if !reflect.DeepEqual(second.Existing, []string{"shoegaze"}) {
				t.Errorf("existing = %v", second.Existing)
			}
		})
	}
}

func TestReconcile_NotesOutsideArtistRootIgnored(t *testing.T) {
	_, store := testutil.TestVault(t)
	testutil.WriteNote(t, store, "Albums/Souvlaki.md", "---\ngenres: dream pop\n---\n")
	testutil.WriteNote(t, store, "Artists/Ride.md", "---\ngenres: shoegaze\n---\n")

	report, err := New(store, testutil.Logger()).Reconcile(context.Background(), musicSettings)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !reflect.DeepEqual(report.Discovered, []string{"shoegaze"}) {
		t.Errorf("discovered = %v", report.Discovered)
	}
}

// flakyNotes wraps a vault and fails Create for chosen paths.
type flakyNotes struct {
	storage.Provider
	mu       sync.Mutex
	failOn   map[string]error
	attempts []string
}

func (f *flakyNotes) Create(path string, content []byte) error {
	f.mu.Lock()
	f.attempts = append(f.attempts, path)
	err := f.failOn[path]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Provider.Create(path, content)
}

func TestReconcile_CreationFailureIsolated(t *testing.T) {
	_, store := testutil.TestVault(t)
	testutil.WriteNote(t, store, "Artists/a.md", "---\ngenres: [ambient, drone, techno]\n---\n")
	notes := &flakyNotes{Provider: store, failOn: map[string]error{
		"Genres/drone.md": errors.New("disk full"),
	}}

	report, err := New(notes, testutil.Logger()).Reconcile(context.Background(), musicSettings)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(notes.attempts) != 3 {
		t.Errorf("attempts = %v, want all three genres tried", notes.attempts)
	}
	if len(report.Failed) != 1 || report.Failed[0].Genre != "drone" {
		t.Errorf("failed = %+v", report.Failed)
	}
	if got := listGenreNotes(t, store); !reflect.DeepEqual(got, []string{"Genres/ambient.md", "Genres/techno.md"}) {
		t.Errorf("genre notes = %v", got)
	}
}

func TestReconcile_CollisionReportedNotFatal(t *testing.T) {
	_, store := testutil.TestVault(t)
	// "r&b/soul" is written as r&b_soul.md, whose basename never matches the
	// canonical genre, so the second run collides with the first.
	testutil.WriteNote(t, store, "Artists/a.md", "---\ngenres: [r&b/soul, funk]\n---\n")
	engine := New(store, testutil.Logger())
	if _, err := engine.Reconcile(context.Background(), musicSettings); err != nil {
		t.Fatalf("first run: %v", err)
	}
	report, err := engine.Reconcile(context.Background(), musicSettings)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(report.Created) != 0 {
		t.Errorf("created = %+v", report.Created)
	}
	if len(report.Failed) != 1 || !strings.Contains(report.Failed[0].Error, apperr.ErrAlreadyExists.Error()) {
		t.Errorf("failed = %+v", report.Failed)
	}
}

// listErrNotes fails to list the vault.
type listErrNotes struct{ storage.Provider }

func (listErrNotes) List(string) ([]models.NoteMetadata, error) {
	return nil, errors.New("io error")
}

func TestReconcile_ListFailure(t *testing.T) {
	_, store := testutil.TestVault(t)
	_, err := New(listErrNotes{store}, testutil.Logger()).Reconcile(context.Background(), musicSettings)
	if err == nil {
		t.Fatal("expected error when the vault cannot be listed")
	}
}

type fakeRecorder struct{ runs []*models.RunReport }

func (f *fakeRecorder) RecordRun(r *models.RunReport) error {
	f.runs = append(f.runs, r)
	return nil
}

type fakeNotifier struct {
	created  []models.CreatedGenre
	finished int
}

func (f *fakeNotifier) GenreCreated(c models.CreatedGenre) { f.created = append(f.created, c) }
func (f *fakeNotifier) RunFinished(*models.RunReport)      { f.finished++ }

func TestReconcile_RecorderAndNotifier(t *testing.T) {
	_, store := testutil.TestVault(t)
	seedScenario(t, store)
	rec := &fakeRecorder{}
	note := &fakeNotifier{}
	engine := New(store, testutil.Logger(), WithRecorder(rec), WithNotifier(note), WithWorkers(1))

	if _, err := engine.Reconcile(context.Background(), musicSettings); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if _, err := engine.Reconcile(context.Background(), models.Settings{}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(rec.runs) != 2 || !rec.runs[1].Skipped {
		t.Errorf("recorded runs = %d", len(rec.runs))
	}
	if len(rec.runs[0].Artists) != 2 {
		t.Errorf("artists = %+v", rec.runs[0].Artists)
	}
	if len(note.created) != 2 || note.finished != 2 {
		t.Errorf("notifier created=%v finished=%d", note.created, note.finished)
	}
}

// cancelAfterCreate cancels the run once the first note has been created.
type cancelAfterCreate struct {
	storage.Provider
	cancel context.CancelFunc
}

func (c *cancelAfterCreate) Create(path string, content []byte) error {
	defer c.cancel()
	return c.Provider.Create(path, content)
}

func TestReconcile_CancelledDuringCreationRecordsPartialRun(t *testing.T) {
	_, store := testutil.TestVault(t)
	seedScenario(t, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &fakeRecorder{}
	note := &fakeNotifier{}
	engine := New(&cancelAfterCreate{Provider: store, cancel: cancel}, testutil.Logger(),
		WithRecorder(rec), WithNotifier(note))

	report, err := engine.Reconcile(ctx, musicSettings)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if report == nil || len(report.Created) != 1 {
		t.Fatalf("report = %+v, want one created note", report)
	}
	if len(rec.runs) != 1 || len(rec.runs[0].Created) != 1 {
		t.Errorf("recorded runs = %+v", rec.runs)
	}
	if note.finished != 1 {
		t.Errorf("finished notifications = %d, want 1", note.finished)
	}
	if got := listGenreNotes(t, store); len(got) != 1 {
		t.Errorf("genre notes = %v", got)
	}
}

func TestReconcile_CancelledContext(t *testing.T) {
	_, store := testutil.TestVault(t)
	seedScenario(t, store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(store, testutil.Logger()).Reconcile(ctx, musicSettings); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if got := listGenreNotes(t, store); len(got) != 0 {
		t.Errorf("notes created after cancellation: %v", got)
	}
}
