package fiscal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestYearOf(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"february belongs to previous start year", time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC), 2025},
		{"july first starts new year", time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), 2025},
		{"june thirtieth ends year", time.Date(2025, time.June, 30, 23, 59, 59, 0, time.UTC), 2024},
		{"december", time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC), 2025},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, YearOf(tc.at))
		})
	}
}

func TestBounds(t *testing.T) {
	start, end := Bounds(2025, nil)

	assert.Equal(t, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC), end)
	assert.Equal(t, 2025, YearOf(start))
	assert.Equal(t, 2025, YearOf(end.Add(-time.Nanosecond)))
	assert.Equal(t, 2026, YearOf(end))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "2025-26", Label(2025))
	assert.Equal(t, "2099-00", Label(2099))
}
