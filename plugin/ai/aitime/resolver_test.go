package aitime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Thursday 2026-10-15 10:30 UTC
var fixedNow = time.Date(2026, 10, 15, 10, 30, 0, 0, time.UTC)

type fakeNatural struct {
	result time.Time
	ok     bool
	calls  int
}

func (f *fakeNatural) ParseNatural(string, time.Time) (time.Time, bool) {
	f.calls++
	return f.result, f.ok
}

func TestResolver_RelativePhrases(t *testing.T) {
	r := NewResolver(time.UTC)

	tests := []struct {
		name        string
		input       string
		wantDate    string
		wantDisplay string
	}{
		{"yesterday", "yesterday", "2026-10-14", "yesterday"},
		{"mixed case and padding", "  YesterDay ", "2026-10-14", "yesterday"},
		{"bare weekday earlier this week", "monday", "2026-10-12", "Monday"},
		{"last weekday", "last monday", "2026-10-12", "Monday"},
		{"bare weekday later in the week", "friday", "2026-10-09", "last Friday"},
		{"abbreviated weekday", "fri", "2026-10-09", "last Friday"},
		{"weekday equal to today", "thursday", "2026-10-08", "last Thursday"},
		{"days ago", "3 days ago", "2026-10-12", "Monday"},
		{"singular day ago", "1 day ago", "2026-10-14", "yesterday"},
		{"weeks ago", "2 weeks ago", "2026-10-01", "October 1st"},
		{"zero days ago", "0 days ago", "2026-10-15", "today"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.input, fixedNow)
			require.True(t, got.IsValid, "error: %s", got.Error)
			assert.Equal(t, tt.wantDate, got.Date.Format("2006-01-02"))
			assert.Equal(t, tt.wantDisplay, got.DisplayText)
			assert.Empty(t, got.Error)
		})
	}
}

func TestResolver_Today(t *testing.T) {
	r := NewResolver(time.UTC)

	got := r.Resolve("today", fixedNow)
	require.True(t, got.IsValid)
	assert.True(t, got.IsToday)
	assert.False(t, got.IsPast)
	assert.Equal(t, fixedNow, got.Date)
	assert.Equal(t, "today", got.DisplayText)

	assert.Equal(t, got, r.Today(fixedNow))
}

func TestResolver_PastDatesAnchoredAtNine(t *testing.T) {
	r := NewResolver(time.UTC)

	got := r.Resolve("yesterday", fixedNow)
	require.True(t, got.IsValid)
	assert.True(t, got.IsPast)
	assert.False(t, got.IsToday)
	assert.Equal(t, "2026-10-14 09:00", got.Date.Format("2006-01-02 15:04"))
}

func TestResolver_StrictFormats(t *testing.T) {
	r := NewResolver(time.UTC)

	tests := []struct {
		name        string
		input       string
		wantDate    string
		wantDisplay string
	}{
		{"ISO date", "2024-07-01", "2024-07-01", "July 1st, 2024"},
		{"US date", "07/01/2024", "2024-07-01", "July 1st, 2024"},
		{"US date without padding", "7/1/2024", "2024-07-01", "July 1st, 2024"},
		{"ISO date this year", "2026-03-22", "2026-03-22", "March 22nd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.input, fixedNow)
			require.True(t, got.IsValid, "error: %s", got.Error)
			assert.Equal(t, tt.wantDate, got.Date.Format("2006-01-02"))
			assert.Equal(t, tt.wantDisplay, got.DisplayText)
		})
	}
}

func TestResolver_Invalid(t *testing.T) {
	r := NewResolver(time.UTC)

	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", ErrNoDateText},
		{"whitespace", "   ", ErrNoDateText},
		{"out of range ISO", "2024-13-40", "unable to parse date: 2024-13-40"},
		{"near miss ISO", "2024-7-1", "unable to parse date: 2024-7-1"},
		{"tomorrow", "tomorrow", ErrFutureDate},
		{"future ISO", "2026-10-16", ErrFutureDate},
		{"future US", "12/25/2026", ErrFutureDate},
		{"day past end of month", "june 31", "unable to parse date: june 31"},
		{"february 30", "february 30", "unable to parse date: february 30"},
		{"day first past end of month", "31st of april", "unable to parse date: 31st of april"},
		{"impossible day with year", "sept 31, 2024", "unable to parse date: sept 31, 2024"},
		{"bare month", "may", "unable to parse date: may"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.input, fixedNow)
			assert.False(t, got.IsValid)
			assert.Equal(t, tt.wantErr, got.Error)
			assert.Empty(t, got.DisplayText)
			assert.True(t, got.Date.IsZero())
		})
	}
}

func TestResolver_FutureRuleAppliesToNaturalParser(t *testing.T) {
	natural := &fakeNatural{result: fixedNow.AddDate(0, 0, 2), ok: true}
	r := NewResolver(time.UTC).WithNaturalParser(natural)

	got := r.Resolve("the day after tomorrow", fixedNow)
	assert.Equal(t, 1, natural.calls)
	assert.False(t, got.IsValid)
	assert.True(t, got.IsFuture())
}

func TestResolver_NaturalParserFallback(t *testing.T) {
	natural := &fakeNatural{result: time.Date(2026, 9, 30, 17, 0, 0, 0, time.UTC), ok: true}
	r := NewResolver(time.UTC).WithNaturalParser(natural)

	got := r.Resolve("end of last month", fixedNow)
	require.True(t, got.IsValid)
	assert.Equal(t, "2026-09-30 09:00", got.Date.Format("2006-01-02 15:04"))
	assert.Equal(t, "September 30th", got.DisplayText)
}

func TestResolver_NumericInputSkipsNaturalParser(t *testing.T) {
	natural := &fakeNatural{result: fixedNow.AddDate(0, 0, -1), ok: true}
	r := NewResolver(time.UTC).WithNaturalParser(natural)

	got := r.Resolve("2024-13-40", fixedNow)
	assert.False(t, got.IsValid)
	assert.Zero(t, natural.calls)
}

func TestResolver_WithoutNaturalParser(t *testing.T) {
	r := NewResolver(time.UTC).WithNaturalParser(nil)

	got := r.Resolve("july 1st", fixedNow)
	assert.False(t, got.IsValid)
	assert.Equal(t, "unable to parse date: july 1st", got.Error)
}

func TestResolver_MonthDayPhrases(t *testing.T) {
	r := NewResolver(time.UTC)

	tests := []struct {
		name        string
		input       string
		wantDate    string
		wantDisplay string
	}{
		{"month first with ordinal", "July 1st", "2026-07-01", "July 1st"},
		{"abbreviated month", "Sept 3", "2026-09-03", "September 3rd"},
		{"day first", "the 2nd of august", "2026-08-02", "August 2nd"},
		{"explicit year", "July 1st, 2024", "2024-07-01", "July 1st, 2024"},
		{"later this year rolls back", "December 3", "2025-12-03", "December 3rd, 2025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.input, fixedNow)
			require.True(t, got.IsValid, "error: %s", got.Error)
			assert.Equal(t, tt.wantDate, got.Date.Format("2006-01-02"))
			assert.Equal(t, tt.wantDisplay, got.DisplayText)
		})
	}
}

func TestResolver_NaturalWeekdayPhrasesResolveToPast(t *testing.T) {
	r := NewResolver(time.UTC)
	monday := time.Date(2024, 7, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
	}{
		{"on weekday", "on friday"},
		{"this weekday", "this friday"},
		{"weekday with part of day", "friday afternoon"},
		{"weekday with clock time", "friday at 3pm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.input, monday)
			require.True(t, got.IsValid, "error: %s", got.Error)
			assert.Equal(t, "2024-07-12 09:00", got.Date.Format("2006-01-02 15:04"))
			assert.Equal(t, "last Friday", got.DisplayText)
		})
	}
}

func TestResolver_NextWeekdayStaysInFuture(t *testing.T) {
	r := NewResolver(time.UTC)
	monday := time.Date(2024, 7, 15, 10, 30, 0, 0, time.UTC)

	got := r.Resolve("next friday", monday)
	assert.False(t, got.IsValid)
	assert.True(t, got.IsFuture())
}

func TestResolver_SameWeekdayNeverResolvesToToday(t *testing.T) {
	r := NewResolver(time.UTC)

	for i := 0; i < 7; i++ {
		now := fixedNow.AddDate(0, 0, i)
		name := now.Weekday().String()

		for _, input := range []string{name, "last " + name} {
			got := r.Resolve(input, now)
			require.True(t, got.IsValid, input)
			assert.Equal(t, now.AddDate(0, 0, -7).Format("2006-01-02"), got.Date.Format("2006-01-02"), input)
			assert.False(t, got.IsToday, input)
		}
	}
}

func TestResolver_YesterdayEqualsOneDayAgo(t *testing.T) {
	r := NewResolver(time.UTC)

	for i := 0; i < 40; i++ {
		now := fixedNow.AddDate(0, 0, -i*9)
		assert.Equal(t, r.Resolve("yesterday", now), r.Resolve("1 days ago", now))
	}
}

func TestResolver_NeverReturnsFutureDates(t *testing.T) {
	r := NewResolver(time.UTC)
	inputs := []string{
		"today", "yesterday", "tomorrow", "monday", "sunday", "last saturday",
		"5 days ago", "1 week ago", "2026-10-15", "2026-10-16", "10/14/2026",
		"july 1st", "december 31", "2027-01-01",
	}

	for i := 0; i < 14; i++ {
		now := fixedNow.AddDate(0, 0, i)
		today := startOfDay(now)
		for _, input := range inputs {
			got := r.Resolve(input, now)
			if got.IsValid {
				assert.False(t, startOfDay(got.Date).After(today), "%s at %s", input, now)
			}
		}
	}
}

func TestResolver_ThreeDaysAgoFromMonday(t *testing.T) {
	r := NewResolver(time.UTC)
	monday := time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)

	got := r.Resolve("3 days ago", monday)
	require.True(t, got.IsValid)
	assert.Equal(t, time.Friday, got.Date.Weekday())
	assert.Equal(t, "2026-10-09", got.Date.Format("2006-01-02"))
	assert.Equal(t, "last Friday", got.DisplayText)
}

func TestResolver_Location(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*60*60)
	r := NewResolver(loc)
	assert.Equal(t, loc, r.Location())

	// 2026-10-14 20:00 UTC is already the 15th in UTC+8.
	now := time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC)
	got := r.Resolve("yesterday", now)
	require.True(t, got.IsValid)
	assert.Equal(t, "2026-10-14", got.Date.Format("2006-01-02"))
	assert.Equal(t, loc, got.Date.Location())

	assert.Equal(t, time.Local, NewResolver(nil).Location())
}
