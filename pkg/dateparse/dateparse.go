// Package dateparse reads the two calendar date layouts used across the
// series and investor records: DD/MM/YYYY and ISO YYYY-MM-DD.
package dateparse

import (
	"strconv"
	"strings"
	"time"
)

// Parse returns the date at local midnight. Empty or malformed input
// yields ok=false; it never returns an error.
//
// Accepted:
//   - "15/01/2025" and unpadded "5/1/2025"; the year is always four digits
//   - "2025-01-15", optionally followed by an ISO time part
//     ("2025-01-15T10:00:00Z", "2025-01-15T10:00"); the date part is used as
//     written, without converting the time zone
func Parse(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)

	var d, m, y string
	switch {
	case strings.Contains(raw, "/"):
		parts := strings.Split(raw, "/")
		if len(parts) != 3 {
			return time.Time{}, false
		}
		d, m, y = parts[0], parts[1], parts[2]
		if !digits(d, 1, 2) || !digits(m, 1, 2) || !digits(y, 4, 4) {
			return time.Time{}, false
		}
	case strings.Contains(raw, "-"):
		date, _, hasClock := strings.Cut(raw, "T")
		if hasClock && !validClock(raw) {
			return time.Time{}, false
		}
		parts := strings.Split(date, "-")
		if len(parts) != 3 {
			return time.Time{}, false
		}
		y, m, d = parts[0], parts[1], parts[2]
		if !digits(y, 4, 4) || !digits(m, 2, 2) || !digits(d, 2, 2) {
			return time.Time{}, false
		}
	default:
		return time.Time{}, false
	}

	day, _ := strconv.Atoi(d)
	month, _ := strconv.Atoi(m)
	year, _ := strconv.Atoi(y)
	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	// time.Date normalises 31/02 into March; treat that as invalid.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// digits reports whether s is between min and max ASCII digits long.
func digits(s string, min, max int) bool {
	if len(s) < min || len(s) > max {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

var clockLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04"}

func validClock(raw string) bool {
	for _, layout := range clockLayouts {
		if _, err := time.Parse(layout, raw); err == nil {
			return true
		}
	}
	return false
}

// Day truncates t to midnight in the local zone.
func Day(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// Today is Day(time.Now()).
func Today() time.Time { return Day(time.Now()) }

// Format renders t as DD/MM/YYYY.
func Format(t time.Time) string { return t.Format("02/01/2006") }

// Valid reports whether raw parses.
func Valid(raw string) bool {
	_, ok := Parse(raw)
	return ok
}
