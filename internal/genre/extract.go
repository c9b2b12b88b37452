// Package genre extracts, normalizes and renders genres: the pure half of
// the artist-to-genre reconciliation.
package genre

import (
	"fmt"
	"strings"
	"unicode"
)

// Field is the frontmatter key holding an artist's genres.
const Field = "genres"

// Kind is the shape the genres field takes in a note's metadata header.
type Kind int

const (
	Absent Kind = iota
	Single
	Many
)

func (k Kind) String() string {
	switch k {
	case Single:
		return "single"
	case Many:
		return "many"
	default:
		return "absent"
	}
}

// Value is the genres field resolved at the extraction boundary.
type Value struct {
	Kind   Kind
	Values []string
	// Dropped counts list elements that were neither strings nor scalars.
	Dropped int
}

// Read resolves the genres field of a parsed frontmatter map. Scalar values
// (numbers, booleans) are coerced to their string form; nulls, nested lists
// and maps are dropped.
func Read(fm map[string]any) Value {
	raw, ok := fm[Field]
	if !ok || raw == nil {
		return Value{Kind: Absent}
	}
	if items, ok := raw.([]any); ok {
		v := Value{Kind: Many, Values: make([]string, 0, len(items))}
		for _, item := range items {
			s, ok := scalar(item)
			if !ok {
				v.Dropped++
				continue
			}
			v.Values = append(v.Values, s)
		}
		return v
	}
	if s, ok := scalar(raw); ok {
		return Value{Kind: Single, Values: []string{s}}
	}
	return Value{Kind: Absent, Dropped: 1}
}

// Extract returns the raw genre strings declared in fm, in declaration order.
func Extract(fm map[string]any) []string {
	return Read(fm).Values
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int, int64, uint64, float64, bool:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}

// Normalize maps a raw genre to its canonical form: lowercased with
// surrounding whitespace and byte order marks removed.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimFunc(raw, trimmable))
}

func trimmable(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}
