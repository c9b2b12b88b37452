// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/genresync/internal/models"

// Provider is the interface for vault file operations. All paths are
// slash-separated and relative to the vault root.
type Provider interface {
	// List returns metadata for every .md file under dir, in lexical order.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Metadata returns the parsed frontmatter of the note at path, or nil
	// when the note has no metadata header.
	Metadata(path string) (map[string]any, error)
	// Write atomically writes content to path, replacing any existing file.
	Write(path string, content []byte) error
	// Create writes content to a new file at path. It fails with
	// apperr.ErrAlreadyExists instead of replacing an existing file.
	Create(path string, content []byte) error
}
