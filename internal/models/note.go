// Package models defines the domain types for genresync.
package models

import "time"

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Settings is the persisted plugin configuration: the two vault folders the
// reconciliation works on. Absent keys decode to empty strings.
type Settings struct {
	ArtistFolder string `json:"artistFolder"`
	GenreFolder  string `json:"genreFolder"`
}

// Configured reports whether both folders are set.
func (s Settings) Configured() bool {
	return s.ArtistFolder != "" && s.GenreFolder != ""
}

// ArtistGenres is the canonical genre list discovered in one artist note.
type ArtistGenres struct {
	Path   string   `json:"path"`
	Genres []string `json:"genres"`
}

// GenreFailure describes a genre note that could not be created.
type GenreFailure struct {
	Genre string `json:"genre"`
	Path  string `json:"path"`
	Error string `json:"error"`
}

// CreatedGenre is a genre note written by a run.
type CreatedGenre struct {
	Genre string `json:"genre"`
	Path  string `json:"path"`
}

// RunReport summarizes one reconciliation run.
type RunReport struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	ArtistRoot string         `json:"artist_root"`
	GenreRoot  string         `json:"genre_root"`
	Skipped    bool           `json:"skipped"`
	Artists    []ArtistGenres `json:"-"`
	Discovered []string       `json:"discovered"`
	Existing   []string       `json:"existing"`
	Missing    []string       `json:"missing"`
	Created    []CreatedGenre `json:"created"`
	Failed     []GenreFailure `json:"failed"`
}
