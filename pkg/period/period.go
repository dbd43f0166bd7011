// Package period formats and validates the YYYY-MM months bills and settlements are keyed by.
package period

import (
	"strings"
	"time"
)

const layout = "2006-01"

// Month returns the YYYY-MM month of t in UTC.
func Month(t time.Time) string {
	return t.UTC().Format(layout)
}

// Parse validates a YYYY-MM month and returns its first instant.
func Parse(month string) (time.Time, bool) {
	parsed, err := time.Parse(layout, strings.TrimSpace(month))
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// Valid reports whether month is a well formed YYYY-MM value.
func Valid(month string) bool {
	_, ok := Parse(month)
	return ok
}

// Compact returns the month without its separator, e.g. 202403.
func Compact(month string) string {
	return strings.ReplaceAll(strings.TrimSpace(month), "-", "")
}
