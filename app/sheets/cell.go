package sheets

import (
	"strings"
)

const hyperlinkPrefix = "=HYPERLINK("

// EncodeCell stores a (url, label) pair in one cell. With a url the cell is a
// HYPERLINK formula with quotes doubled, without one it is the plain label.
// Labels the spreadsheet would parse as a formula, number, date or boolean
// get a leading apostrophe so they are kept as text.
func EncodeCell(url, label string) string {
	if url == "" {
		if parsedBySheet(label) {
			return "'" + label
		}
		return label
	}
	return hyperlinkPrefix + quote(url) + ", " + quote(label) + ")"
}

func parsedBySheet(label string) bool {
	s := strings.TrimSpace(label)
	if s == "" {
		return false
	}
	if strings.ContainsRune("=+-'@", rune(s[0])) {
		return true
	}
	if strings.EqualFold(s, "true") || strings.EqualFold(s, "false") {
		return true
	}

	// Numbers, dates, times, percentages and amounts: digits mixed with
	// separators only.
	digits := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = true
		case strings.ContainsRune(" .,/:-%$", r):
		default:
			return false
		}
	}
	return digits
}

// DecodeCell reverses EncodeCell. Anything that is not a well-formed
// HYPERLINK formula is returned as the label with an empty url.
func DecodeCell(raw string) (url, label string) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(strings.ToUpper(s), hyperlinkPrefix) {
		return "", strings.TrimPrefix(s, "'")
	}

	rest := strings.TrimLeft(s[len(hyperlinkPrefix):], " ")
	url, rest, ok := unquote(rest)
	if !ok {
		return "", s
	}

	rest = strings.TrimLeft(rest, " ")
	if !strings.HasPrefix(rest, ",") && !strings.HasPrefix(rest, ";") {
		return url, url
	}

	label, rest, ok = unquote(strings.TrimLeft(rest[1:], " "))
	if !ok {
		return url, url
	}
	if !strings.HasPrefix(strings.TrimLeft(rest, " "), ")") {
		return "", s
	}

	return url, label
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// unquote reads one formula string literal from the start of s and returns
// its value and the remaining input.
func unquote(s string) (string, string, bool) {
	if !strings.HasPrefix(s, `"`) {
		return "", s, false
	}

	var b strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != '"' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '"' {
			b.WriteByte('"')
			i++
			continue
		}
		return b.String(), s[i+1:], true
	}

	return "", s, false
}
