package references

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Slug turns a display name into a folder-safe token: no diacritics, no
// whitespace, no path separators or underscores.
func Slug(name string) string {
	name = RemoveDiacritics(name)
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r), r == '/', r == '\\', r == '_', r == '.':
			return -1
		}
		return r
	}, name)
}

// FolderName returns the reference folder name "<id>_<slug>".
func FolderName(identityID, displayName string) string {
	return identityID + "_" + Slug(displayName)
}

// ParseFolderName splits "<id>_<name>" on the first underscore.
func ParseFolderName(folder string) (id, name string, ok bool) {
	id, name, ok = strings.Cut(folder, "_")
	if !ok || id == "" {
		return "", "", false
	}
	return id, name, true
}
