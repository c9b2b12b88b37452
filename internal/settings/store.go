// Package settings persists the two-folder plugin configuration as a flat
// JSON object ({"artistFolder": "...", "genreFolder": "..."}).
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/starford/genresync/internal/models"
)

// Provider loads and saves settings.
type Provider interface {
	Load() (models.Settings, error)
	Save(s models.Settings) error
	// Update applies fn to the current settings and persists the result.
	Update(fn func(*models.Settings)) (models.Settings, error)
}

// Store is a file-backed Provider.
type Store struct {
	mu   sync.Mutex
	path string
}

var _ Provider = (*Store)(nil)

// NewStore returns a Store persisting to path. The file need not exist.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings file. A missing file and missing keys yield empty
// strings.
func (s *Store) Load() (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save replaces the persisted settings.
func (s *Store) Save(v models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(v)
}

// Update is a read-modify-write under the store lock.
func (s *Store) Update(fn func(*models.Settings)) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.load()
	if err != nil {
		return models.Settings{}, err
	}
	fn(&cur)
	if err := s.save(cur); err != nil {
		return models.Settings{}, err
	}
	return cur, nil
}

func (s *Store) load() (models.Settings, error) {
	var v models.Settings
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		return v, fmt.Errorf("settings: read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return models.Settings{}, fmt.Errorf("settings: parse %s: %w", s.path, err)
	}
	return v, nil
}

// save writes tmp file → fsync → rename.
func (s *Store) save(v models.Settings) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-tmp-*")
	if err != nil {
		return fmt.Errorf("settings: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("settings: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("settings: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("settings: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("settings: rename: %w", err)
	}
	return nil
}
