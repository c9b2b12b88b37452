package index

import "github.com/starford/genresync/internal/models"

// GenreIndex defines the read and write operations on the index.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type GenreIndex interface {
	RecordRun(r *models.RunReport) error
	Genres() ([]GenreRow, error)
	ArtistsFor(genre string) ([]string, error)
	Runs(limit int) ([]RunRow, error)
	Close() error
}

// Verify *DB satisfies GenreIndex at compile time.
var _ GenreIndex = (*DB)(nil)
