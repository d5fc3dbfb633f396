package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeCell(t *testing.T) {
	assert.Equal(t, `=HYPERLINK("https://x.com", "Acme")`, EncodeCell("https://x.com", "Acme"))
	assert.Equal(t, `=HYPERLINK("https://x.com", "Say ""Hi""")`, EncodeCell("https://x.com", `Say "Hi"`))
	assert.Equal(t, "Plain label", EncodeCell("", "Plain label"))
}

func TestEncodeCellKeepsPlainLabelsAsText(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"=SUM(A1:A9)", "'=SUM(A1:A9)"},
		{"+Plus Ventures", "'+Plus Ventures"},
		{"-dash", "'-dash"},
		{"@handle", "'@handle"},
		{"'quoted", "''quoted"},
		{"1984", "'1984"},
		{"3.14", "'3.14"},
		{"2026-10-15", "'2026-10-15"},
		{"10/15", "'10/15"},
		{"50%", "'50%"},
		{"TRUE", "'TRUE"},
		{"3M", "3M"},
		{"7-Eleven", "7-Eleven"},
		{"Acme 2.0", "Acme 2.0"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			encoded := EncodeCell("", tt.label)
			assert.Equal(t, tt.want, encoded)

			url, label := DecodeCell(encoded)
			assert.Empty(t, url)
			assert.Equal(t, tt.label, label)
		})
	}
}

func TestCellRoundTrip(t *testing.T) {
	tests := []struct {
		url   string
		label string
	}{
		{"https://x.com", `Say "Hi"`},
		{"https://www.linkedin.com/company/acme/", "Acme, Inc."},
		{`https://x.com/?q="a"`, `""`},
		{"https://x.com", ""},
		{"https://x.com", "Jürgen (CEO)"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			url, label := DecodeCell(EncodeCell(tt.url, tt.label))
			assert.Equal(t, tt.url, url)
			assert.Equal(t, tt.label, label)
		})
	}
}

func TestDecodeCell(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		url   string
		label string
	}{
		{"plain text", "  Acme  ", "", "Acme"},
		{"text marker", "'=1+1", "", "=1+1"},
		{"empty", "", "", ""},
		{"formula", `=HYPERLINK("https://www.linkedin.com/in/jane/", "Jane Doe")`, "https://www.linkedin.com/in/jane/", "Jane Doe"},
		{"no space after comma", `=HYPERLINK("https://x.com","X")`, "https://x.com", "X"},
		{"lower case function", `=hyperlink("https://x.com", "X")`, "https://x.com", "X"},
		{"locale separator", `=HYPERLINK("https://x.com"; "X")`, "https://x.com", "X"},
		{"url only", `=HYPERLINK("https://x.com")`, "https://x.com", "https://x.com"},
		{"unterminated url", `=HYPERLINK("https://x.com`, "", `=HYPERLINK("https://x.com`},
		{"unquoted argument", `=HYPERLINK(A1, "X")`, "", `=HYPERLINK(A1, "X")`},
		{"label not quoted", `=HYPERLINK("https://x.com", B2)`, "https://x.com", "https://x.com"},
		{"trailing garbage", `=HYPERLINK("https://x.com", "X" & "Y")`, "", `=HYPERLINK("https://x.com", "X" & "Y")`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, label := DecodeCell(tt.raw)
			assert.Equal(t, tt.url, url)
			assert.Equal(t, tt.label, label)
		})
	}
}
