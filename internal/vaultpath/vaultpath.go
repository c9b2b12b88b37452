// Package vaultpath normalizes vault-relative paths to the slash-separated,
// NFC-composed form every other package compares against.
package vaultpath

import (
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Root is the normalized form of an empty path.
const Root = "/"

var nbspRe = regexp.MustCompile(`[\x{00A0}\x{202F}]`)

// Normalize converts p to the platform-neutral vault path form: backslashes
// become slashes, the path is cleaned against the vault root ("." and ".."
// resolved, repeated slashes collapsed), leading and trailing slashes are
// dropped, non-breaking spaces become spaces and the result is NFC-composed.
// An empty result is the vault root.
func Normalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return Root
	}
	p = nbspRe.ReplaceAllString(p, " ")
	return norm.NFC.String(p)
}

// HasPrefix reports whether the note at p belongs to root. Membership is a
// raw string prefix match, so "Artists" also claims "Artists Archive/x.md".
func HasPrefix(p, root string) bool {
	if root == Root {
		return true
	}
	return strings.HasPrefix(p, root)
}

// Join places name inside dir.
func Join(dir, name string) string {
	if dir == Root {
		return name
	}
	return path.Join(dir, name)
}

// Basename returns the file name of p without its extension.
func Basename(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
