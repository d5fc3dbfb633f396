package tracker

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"
)

// ParseProfileList extracts profile identifiers from a CSV export. The
// first row is a header when none of its cells looks like a profile link
// and one column is named like "LinkedIn Profile", "LinkedIn URL" or
// "LinkedIn link". Without such a header every row is data. Rows starting
// with "#" are comments. Results keep their first-seen order.
func ParseProfileList(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var profiles []string
	if col := profileColumn(rows[0]); col >= 0 {
		for _, row := range rows[1:] {
			if col < len(row) {
				if v := strings.TrimSpace(row[col]); v != "" {
					profiles = append(profiles, v)
				}
			}
		}
		return dedupe(profiles), nil
	}

	for _, row := range rows {
		if v := pickProfileCell(row); v != "" {
			profiles = append(profiles, v)
		}
	}
	return dedupe(profiles), nil
}

// pickProfileCell prefers a link anywhere in the row over a bare handle, so a
// leading name column is not mistaken for a handle.
func pickProfileCell(row []string) string {
	handle := ""
	for i, cell := range row {
		v := strings.TrimSpace(cell)
		if v == "" {
			continue
		}
		if i == 0 && strings.HasPrefix(v, "#") {
			return ""
		}
		if looksLikeProfileLink(v) {
			return v
		}
		if handle == "" && isHandle(v) {
			handle = v
		}
	}
	return handle
}

func profileColumn(header []string) int {
	if slices.ContainsFunc(header, func(c string) bool { return looksLikeProfileLink(strings.TrimSpace(c)) }) {
		return -1
	}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if strings.Contains(h, "linkedin") &&
			(strings.Contains(h, "profile") || strings.Contains(h, "url") || strings.Contains(h, "link")) {
			return i
		}
	}
	return -1
}

func looksLikeProfileLink(s string) bool {
	return strings.Contains(s, "linkedin.com") || strings.Contains(s, "/in/")
}

func isHandle(s string) bool {
	return !isHTTP(s) && ValidProfileIdentifier(s)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
