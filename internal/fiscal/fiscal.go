// Package fiscal maps timestamps to July–June fiscal years labeled by their
// start year.
package fiscal

import (
	"fmt"
	"time"
)

const startMonth = time.July

// YearOf returns the fiscal year containing t, evaluated in t's location.
// February 2026 belongs to fiscal year 2025.
func YearOf(t time.Time) int {
	if t.Month() >= startMonth {
		return t.Year()
	}
	return t.Year() - 1
}

// Bounds returns the half-open interval [start, end) covered by a fiscal year.
func Bounds(year int, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(1, 0, 0)
}

// Label formats a fiscal year as "2025-26".
func Label(year int) string {
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}
