package mcpserver

// GenreNoteFormat describes the genre notes genresync writes, so that LLM
// consumers can recognize (and leave alone) generated notes.
const GenreNoteFormat = `# Genre Note Format

genresync creates one note per distinct genre declared in the ` + "`genres`" + `
frontmatter field of the artist notes. A genre note is only created when no
note with the same canonical name exists in the genre folder; existing genre
notes are never edited or deleted.

## Canonical genre

Lowercased, surrounding whitespace removed. "Dream Pop", " dream pop" and
"DREAM POP" are the same genre.

## File name

` + "`<genre folder>/<genre>.md`" + `, with any of ` + "`" + `\ / : * ? " < > |` + "`" + ` replaced by ` + "`_`" + `.

## Content

` + "```" + `markdown
---
chosicUrl: https://www.chosic.com/genre-chart/<slug>/
everynoiseUrl: https://everynoise.com/engenremap-<compact>.html
---

` + "```" + `dataview
list
from "<artist folder>"
where contains(genres, "<genre>")
` + "```" + `
` + "```" + `

- ` + "`<slug>`" + `: whitespace runs replaced by ` + "`-`" + `, lowercased.
- ` + "`<compact>`" + `: every character other than A-Z, a-z, 0-9 removed, lowercased.
- ` + "`<genre>`" + `: the canonical genre, unescaped.

## Artist notes

` + "```" + `markdown
---
genres:
  - Dream Pop
  - Shoegaze
---
` + "```" + `

A single string (` + "`genres: Shoegaze`" + `) is accepted too.
`
