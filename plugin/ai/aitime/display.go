package aitime

import (
	"fmt"
	"time"
)

// FormatDisplay returns the human label for date as seen from now.
// Weeks start on Monday.
func FormatDisplay(date, now time.Time) string {
	today := startOfDay(now)
	day := startOfDay(date.In(now.Location()))

	switch {
	case day.Equal(today):
		return "today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "yesterday"
	}

	weekStart := startOfWeek(today)
	nextWeekStart := weekStart.AddDate(0, 0, 7)
	lastWeekStart := weekStart.AddDate(0, 0, -7)

	switch {
	case !day.Before(weekStart) && day.Before(nextWeekStart):
		return day.Weekday().String()
	// "last <Weekday>" names any day of the previous Monday-start week: on a
	// Monday that is 1 to 7 days back, on a Sunday 7 to 13. Older days get
	// the month and day.
	case !day.Before(lastWeekStart) && day.Before(weekStart):
		return "last " + day.Weekday().String()
	case day.Year() == today.Year():
		return fmt.Sprintf("%s %s", day.Month(), ordinal(day.Day()))
	default:
		return fmt.Sprintf("%s %s, %d", day.Month(), ordinal(day.Day()), day.Year())
	}
}

// startOfWeek returns the Monday of t's week.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return startOfDay(t).AddDate(0, 0, -offset)
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
