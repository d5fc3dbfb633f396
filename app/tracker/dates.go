package tracker

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Spreadsheet day 1 is 1899-12-31, so day 0 is the day before.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// SerialToDate converts a spreadsheet day count such as "46077" to
// "2026-02-24". Values that are not numbers are returned unchanged.
func SerialToDate(value string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return value
	}
	return serialEpoch.AddDate(0, 0, int(math.Floor(f))).Format(DateLayout)
}
