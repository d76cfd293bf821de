package strings

import (
	"strings"
	"unicode"
)

// SplitWords breaks an identifier into lowercased word parts, splitting at
// lower-to-upper boundaries and keeping acronym runs together
// (HTTPRequest -> [http, request]). Underscores, hyphens, and spaces also
// separate words.
func SplitWords(s string) []string {
	var words []string
	var cur strings.Builder
	runes := []rune(s)

	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}

	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				if unicode.IsLower(prev) || unicode.IsDigit(prev) {
					flush()
				} else if unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
					// End of an acronym run (HTTPRequest -> http | request).
					flush()
				}
			}
			cur.WriteRune(unicode.ToLower(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

// ToSnakeCase converts CamelCase to snake_case.
// Handles acronyms properly (HTTPRequest -> http_request).
func ToSnakeCase(s string) string {
	return strings.Join(SplitWords(s), "_")
}

// LowerFirst lowercases the first rune only (BlogPost -> blogPost).
func LowerFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
