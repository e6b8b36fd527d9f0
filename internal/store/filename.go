package store

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	maxFilenameRunes = 100
	fallbackFilename = "workflow"
	documentExt      = ".json"
)

// SanitizeFilename turns a display name into a filesystem-safe slug (without extension).
func SanitizeFilename(name string) string {
	name = norm.NFC.String(name)

	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		keep := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-'
		if !keep {
			// Whitespace, underscores and everything else collapse into one '_'.
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteRune(r)
		lastUnderscore = false
	}

	slug := strings.Trim(b.String(), "_")
	if runes := []rune(slug); len(runes) > maxFilenameRunes {
		slug = strings.TrimRight(string(runes[:maxFilenameRunes]), "_")
	}
	if slug == "" {
		return fallbackFilename
	}
	return slug
}

// FilenameFor returns the document filename for a display name.
func FilenameFor(name string) string {
	return SanitizeFilename(name) + documentExt
}
