package routepath

import (
	"strings"
	"unicode"
)

// Slug converts a single path segment to lower-case, hyphen separated form.
//
// Word boundaries are camel-case humps ("subTest" → "sub-test"), the end of
// an acronym ("HTMLParser" → "html-parser") and any run of characters that
// are neither letters nor digits ("my_controller" → "my-controller").
// Digits never start a new word, so "v1" and "oauth2Client" keep their
// digits attached ("v1", "oauth2client").
func Slug(segment string) string {
	runes := []rune(segment)

	var b strings.Builder
	b.Grow(len(segment) + 4)

	pending := false
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pending = b.Len() > 0
			continue
		}

		if unicode.IsUpper(r) && i > 0 && b.Len() > 0 {
			prev := runes[i-1]
			if unicode.IsLower(prev) {
				pending = true
			} else if unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				pending = true
			}
		}

		if pending {
			b.WriteByte('-')
			pending = false
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
