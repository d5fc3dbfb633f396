package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSerialToDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"46077", "2026-02-24"},
		{"46077.75", "2026-02-24"},
		{" 45658 ", "2025-01-01"},
		{"1", "1899-12-31"},
		{"2025-03-01", "2025-03-01"},
		{"", ""},
		{"not a date", "not a date"},
		{"NaN", "NaN"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SerialToDate(tt.input))
		})
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2026-10-15", FormatDate(time.Date(2026, time.October, 15, 23, 59, 0, 0, time.UTC)))
}
