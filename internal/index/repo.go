package index

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/genresync/internal/models"
)

// GenreRow is one genre seen in the latest artist snapshot.
type GenreRow struct {
	Genre    string `json:"genre"`
	Artists  int    `json:"artists"`
	NotePath string `json:"note_path,omitempty"`
}

// RunRow is a stored run summary.
type RunRow struct {
	ID         int64                 `json:"id"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	ArtistRoot string                `json:"artist_root"`
	GenreRoot  string                `json:"genre_root"`
	Skipped    bool                  `json:"skipped"`
	Discovered int                   `json:"discovered"`
	Created    int                   `json:"created"`
	Failed     int                   `json:"failed"`
	Errors     []models.GenreFailure `json:"errors"`
}

// RecordRun stores the run summary and, for runs that were not skipped,
// replaces the artist snapshot and remembers the notes the run created.
func (db *DB) RecordRun(r *models.RunReport) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	failures := r.Failed
	if failures == nil {
		failures = []models.GenreFailure{}
	}
	errorsJSON, _ := json.Marshal(failures)

	res, err := tx.Exec(`
		INSERT INTO runs (started_at, finished_at, artist_root, genre_root, skipped, discovered, created, failed, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.StartedAt.UTC(), r.FinishedAt.UTC(), r.ArtistRoot, r.GenreRoot, r.Skipped,
		len(r.Discovered), len(r.Created), len(r.Failed), string(errorsJSON))
	if err != nil {
		return fmt.Errorf("index: insert run: %w", err)
	}
	if r.Skipped {
		return tx.Commit()
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("index: run id: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM artist_genres`); err != nil {
		return fmt.Errorf("index: clear artist genres: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO artist_genres (artist_path, genre) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare artist genre insert: %w", err)
	}
	defer stmt.Close()
	for _, a := range r.Artists {
		for _, g := range a.Genres {
			if _, err := stmt.Exec(a.Path, g); err != nil {
				return fmt.Errorf("index: insert artist genre: %w", err)
			}
		}
	}

	for _, c := range r.Created {
		_, err := tx.Exec(`
			INSERT INTO genre_notes (genre, path, run_id, created_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(genre) DO UPDATE SET
				path       = excluded.path,
				run_id     = excluded.run_id,
				created_at = excluded.created_at
		`, c.Genre, c.Path, runID, r.FinishedAt.UTC())
		if err != nil {
			return fmt.Errorf("index: insert genre note: %w", err)
		}
	}

	return tx.Commit()
}

// Genres returns every genre of the latest snapshot with its artist count,
// most popular first.
func (db *DB) Genres() ([]GenreRow, error) {
	rows, err := db.conn.Query(`
		SELECT ag.genre, COUNT(*), COALESCE(gn.path, '')
		FROM artist_genres ag
		LEFT JOIN genre_notes gn ON gn.genre = ag.genre
		GROUP BY ag.genre
		ORDER BY COUNT(*) DESC, ag.genre ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("index: genres: %w", err)
	}
	defer rows.Close()

	var out []GenreRow
	for rows.Next() {
		var g GenreRow
		if err := rows.Scan(&g.Genre, &g.Artists, &g.NotePath); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ArtistsFor returns the artist note paths declaring genre.
func (db *DB) ArtistsFor(genre string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT artist_path FROM artist_genres WHERE genre = ? ORDER BY artist_path`, genre)
	if err != nil {
		return nil, fmt.Errorf("index: artists for genre: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Runs returns the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, started_at, finished_at, artist_root, genre_root, skipped, discovered, created, failed, errors
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("index: runs: %w", err)
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		var errorsJSON string
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.ArtistRoot, &r.GenreRoot,
			&r.Skipped, &r.Discovered, &r.Created, &r.Failed, &errorsJSON); err != nil {
			return nil, fmt.Errorf("index: scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(errorsJSON), &r.Errors); err != nil {
			return nil, fmt.Errorf("index: decode run errors: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
