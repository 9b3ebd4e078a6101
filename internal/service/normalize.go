package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize cleans raw extracted text: line endings become \n, control and
// invalid characters are stripped, runs of horizontal whitespace collapse to
// a single space, and runs of blank lines collapse to one paragraph break.
// Pure and idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n':
			b.WriteRune(r)
		case r == '\t':
			b.WriteRune(' ')
		case r == utf8.RuneError:
			// skip invalid encoding artifacts
		case unicode.IsControl(r):
			// skip control characters
		default:
			b.WriteRune(r)
		}
	}

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		cleaned := strings.Join(strings.Fields(line), " ")
		if cleaned == "" {
			blank = true
			continue
		}
		if blank && len(out) > 0 {
			out = append(out, "")
		}
		blank = false
		out = append(out, cleaned)
	}

	return strings.Join(out, "\n")
}
