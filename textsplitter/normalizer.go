package textsplitter

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// stripControl removes control characters that are not whitespace.
// Whitespace control characters (newlines, tabs) must survive until the
// whitespace collapse so that word boundaries are preserved.
var stripControl = runes.Remove(runes.Predicate(func(r rune) bool {
	return unicode.IsControl(r) && !unicode.IsSpace(r)
}))

// Normalize cleans raw extracted text into a single-spaced string:
// control characters are stripped and runs of whitespace (including the
// newlines left behind by page breaks) collapse to one space.
//
// Returns ErrEmptyContent when nothing usable remains, which is the case
// for scanned or image-only documents with no extractable text.
func Normalize(raw string) (string, error) {
	cleaned, _, err := transform.String(stripControl, raw)
	if err != nil {
		cleaned = raw
	}

	normalized := strings.Join(strings.Fields(cleaned), " ")
	if normalized == "" {
		return "", ErrEmptyContent
	}
	return normalized, nil
}
