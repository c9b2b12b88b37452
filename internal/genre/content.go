package genre

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/genresync/internal/vaultpath"
)

// Ext is the extension of every generated genre note.
const Ext = ".md"

const (
	chosicURL     = "https://www.chosic.com/genre-chart/%s/"
	everynoiseURL = "https://everynoise.com/engenremap-%s.html"
)

const noteTemplate = "---\n" +
	"chosicUrl: %s\n" +
	"everynoiseUrl: %s\n" +
	"---\n" +
	"\n" +
	"```dataview\n" +
	"list\n" +
	"from \"%s\"\n" +
	"where contains(genres, \"%s\")\n" +
	"```"

var (
	unsafeRe   = regexp.MustCompile(`[\\/:*?"<>|]`)
	spaceRunRe = regexp.MustCompile(`[\s\v\p{Z}\x{FEFF}]+`)
	nonAlnumRe = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// Content is a generated genre note, not yet written anywhere.
type Content struct {
	Path string
	Text string
}

// SafeName replaces characters that are invalid in file names with "_".
func SafeName(g string) string {
	return unsafeRe.ReplaceAllString(g, "_")
}

// Slug is the chart-service key: whitespace runs become "-", lowercased.
func Slug(g string) string {
	return strings.ToLower(spaceRunRe.ReplaceAllString(g, "-"))
}

// Compact is the map-service key: ASCII letters and digits only, lowercased.
func Compact(g string) string {
	return strings.ToLower(nonAlnumRe.ReplaceAllString(g, ""))
}

// ChosicURL returns the genre-chart link for g.
func ChosicURL(g string) string {
	return fmt.Sprintf(chosicURL, Slug(g))
}

// EverynoiseURL returns the genre-map link for g.
func EverynoiseURL(g string) string {
	return fmt.Sprintf(everynoiseURL, Compact(g))
}

// Generate renders the note for canonical genre g. Both roots must already be
// normalized; the output depends on nothing but the arguments.
func Generate(g, artistRoot, genreRoot string) Content {
	return Content{
		Path: vaultpath.Join(genreRoot, SafeName(g)+Ext),
		Text: fmt.Sprintf(noteTemplate, ChosicURL(g), EverynoiseURL(g), artistRoot, g),
	}
}
