package aitime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDisplay(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{"same day", fixedNow, "today"},
		{"same day earlier hour", time.Date(2026, 10, 15, 0, 1, 0, 0, time.UTC), "today"},
		{"previous day", fixedNow.AddDate(0, 0, -1), "yesterday"},
		{"three days prior same week", fixedNow.AddDate(0, 0, -3), "Monday"},
		{"ten days prior", fixedNow.AddDate(0, 0, -10), "last Monday"},
		{"previous sunday", time.Date(2026, 10, 11, 9, 0, 0, 0, time.UTC), "last Sunday"},
		{"two weeks back", time.Date(2026, 10, 4, 9, 0, 0, 0, time.UTC), "October 4th"},
		{"earlier this year", time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC), "January 1st"},
		{"previous year", time.Date(2025, 12, 23, 9, 0, 0, 0, time.UTC), "December 23rd, 2025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDisplay(tt.date, fixedNow))
		})
	}
}

func TestFormatDisplay_WeekStartsOnMonday(t *testing.T) {
	sunday := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "Monday", FormatDisplay(time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC), sunday))
	assert.Equal(t, "last Sunday", FormatDisplay(time.Date(2026, 10, 11, 9, 0, 0, 0, time.UTC), sunday))
}

func TestFormatDisplay_LastWeekFromMonday(t *testing.T) {
	monday := time.Date(2024, 7, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{"previous day", time.Date(2024, 7, 14, 9, 0, 0, 0, time.UTC), "yesterday"},
		{"three days prior", time.Date(2024, 7, 12, 9, 0, 0, 0, time.UTC), "last Friday"},
		{"seven days prior", time.Date(2024, 7, 8, 9, 0, 0, 0, time.UTC), "last Monday"},
		{"eight days prior", time.Date(2024, 7, 7, 9, 0, 0, 0, time.UTC), "July 7th"},
		{"ten days prior", time.Date(2024, 7, 5, 9, 0, 0, 0, time.UTC), "July 5th"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDisplay(tt.date, monday))
		})
	}
}

func TestFormatDisplay_LastWeekFromSunday(t *testing.T) {
	sunday := time.Date(2024, 7, 21, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, "last Monday", FormatDisplay(time.Date(2024, 7, 8, 9, 0, 0, 0, time.UTC), sunday))
	assert.Equal(t, "last Thursday", FormatDisplay(time.Date(2024, 7, 11, 9, 0, 0, 0, time.UTC), sunday))
	assert.Equal(t, "July 7th", FormatDisplay(time.Date(2024, 7, 7, 9, 0, 0, 0, time.UTC), sunday))
}

func TestOrdinal(t *testing.T) {
	tests := map[int]string{
		1:  "1st",
		2:  "2nd",
		3:  "3rd",
		4:  "4th",
		11: "11th",
		12: "12th",
		13: "13th",
		21: "21st",
		22: "22nd",
		23: "23rd",
		31: "31st",
	}

	for n, want := range tests {
		assert.Equal(t, want, ordinal(n))
	}
}
