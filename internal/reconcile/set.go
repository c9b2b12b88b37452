package reconcile

import (
	"github.com/starford/genresync/internal/genre"
	"github.com/starford/genresync/internal/models"
	"github.com/starford/genresync/internal/vaultpath"
)

// Set is an insertion-ordered set of canonical genres.
type Set struct {
	index map[string]struct{}
	order []string
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{index: make(map[string]struct{})}
}

// Add inserts g unless it is already present.
func (s *Set) Add(g string) {
	if _, ok := s.index[g]; ok {
		return
	}
	s.index[g] = struct{}{}
	s.order = append(s.order, g)
}

// Has reports membership.
func (s *Set) Has(g string) bool {
	_, ok := s.index[g]
	return ok
}

// Len returns the number of elements.
func (s *Set) Len() int {
	return len(s.order)
}

// Values returns the elements in insertion order.
func (s *Set) Values() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Canonical normalizes raw genres, dropping blanks and duplicates.
func Canonical(raw []string) []string {
	set := NewSet()
	for _, r := range raw {
		if g := genre.Normalize(r); g != "" {
			set.Add(g)
		}
	}
	return set.Values()
}

// Discovered merges the genres of all artists in discovery order.
func Discovered(artists []models.ArtistGenres) []string {
	set := NewSet()
	for _, a := range artists {
		for _, g := range a.Genres {
			set.Add(g)
		}
	}
	return set.Values()
}

// Existing derives the canonical genre of each genre note from its file name.
func Existing(paths []string) *Set {
	set := NewSet()
	for _, p := range paths {
		if g := genre.Normalize(vaultpath.Basename(p)); g != "" {
			set.Add(g)
		}
	}
	return set
}

// Missing returns the discovered genres absent from existing.
func Missing(discovered []string, existing *Set) []string {
	var out []string
	for _, g := range discovered {
		if !existing.Has(g) {
			out = append(out, g)
		}
	}
	return out
}
