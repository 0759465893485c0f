// Package jsonrepair normalizes quasi-JSON model output into strict JSON.
//
// Generative models wrap objects in markdown fences, use typographic quotes,
// single-quoted string literals or leave stray punctuation before the closing
// brace. Repair fixes the known malformations and leaves anything else
// unchanged; the caller must still validate the result by parsing it.
package jsonrepair

import (
	"regexp"
	"strings"
)

var (
	smartQuotes = strings.NewReplacer(
		"‘", "'", "’", "'",
		"“", `"`, "”", `"`,
	)

	// Trailing `.`, `,` or `;` immediately before the final closing brace.
	trailingPunct = regexp.MustCompile(`[.,;]\s*}$`)
)

// Repair applies the malformation fixes in order: trim, quote normalization,
// fence stripping, trailing punctuation removal, single-to-double quote
// conversion. The result is idempotent on already-strict JSON.
func Repair(s string) string {
	s = strings.TrimSpace(s)
	s = smartQuotes.Replace(s)
	s = stripFence(s)
	s = trailingPunct.ReplaceAllString(s, "}")
	s = requote(s)

	return s
}

// stripFence removes a leading/trailing triple-backtick fence, with or
// without a json language tag.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSpace(s)
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}

// requote converts single-quoted string literals to double-quoted ones.
// Content of existing double-quoted segments is copied verbatim, so
// apostrophes inside already-valid strings survive the pass. This replaces
// the regex rewrite the feature started with; the scanner cannot misfire on
// quotes nested inside the other quoting style.
func requote(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	i := 0
	for i < len(s) {
		switch s[i] {
		case '"':
			end, ok := closeQuote(s, i, '"')
			if !ok {
				b.WriteString(s[i:])
				return b.String()
			}
			b.WriteString(s[i:end])
			i = end
		case '\'':
			end, ok := closeQuote(s, i, '\'')
			if !ok {
				b.WriteString(s[i:])
				return b.String()
			}
			inner := s[i+1 : end-1]
			inner = strings.ReplaceAll(inner, `\'`, `'`)
			inner = strings.ReplaceAll(inner, `"`, `\"`)
			b.WriteByte('"')
			b.WriteString(inner)
			b.WriteByte('"')
			i = end
		default:
			b.WriteByte(s[i])
			i++
		}
	}

	return b.String()
}

// closeQuote returns the index just past the closing quote of the string
// literal starting at start, honoring backslash escapes.
func closeQuote(s string, start int, quote byte) (int, bool) {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i + 1, true
		}
	}

	return len(s), false
}
