package aitime

import (
	"regexp"
	"strconv"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/en"
)

var (
	// forwardPattern marks phrases that explicitly point ahead of the reference.
	forwardPattern = regexp.MustCompile(`\b(?:next|tomorrow|upcoming|coming|after|in\s+\d+|from\s+now)\b`)

	monthFirstPattern = regexp.MustCompile(`^([a-z]+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?$`)
	dayFirstPattern   = regexp.MustCompile(`^(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]+)(?:,?\s+(\d{4}))?$`)
)

// monthNames maps month names and abbreviations.
var monthNames = map[string]time.Month{
	"january":   time.January,
	"jan":       time.January,
	"february":  time.February,
	"feb":       time.February,
	"march":     time.March,
	"mar":       time.March,
	"april":     time.April,
	"apr":       time.April,
	"may":       time.May,
	"june":      time.June,
	"jun":       time.June,
	"july":      time.July,
	"jul":       time.July,
	"august":    time.August,
	"aug":       time.August,
	"september": time.September,
	"sep":       time.September,
	"sept":      time.September,
	"october":   time.October,
	"oct":       time.October,
	"november":  time.November,
	"nov":       time.November,
	"december":  time.December,
	"dec":       time.December,
}

// rejecter is implemented by parsers that can claim a phrase as malformed.
// A rejected phrase is not offered to the parsers after it.
type rejecter interface {
	rejects(text string) bool
}

// chainParser returns the first successful parse.
type chainParser []NaturalParser

func (c chainParser) ParseNatural(text string, reference time.Time) (time.Time, bool) {
	for _, p := range c {
		if t, ok := p.ParseNatural(text, reference); ok {
			return t, true
		}
		if r, ok := p.(rejecter); ok && r.rejects(text) {
			return time.Time{}, false
		}
	}
	return time.Time{}, false
}

// monthDayParser handles "July 1st", "1st of July" and "July 1, 2024".
// Without a year the most recent occurrence is chosen, so an ambiguous
// phrase never defaults to the future.
type monthDayParser struct{}

func (monthDayParser) ParseNatural(text string, reference time.Time) (time.Time, bool) {
	month, dayText, yearText, ok := matchMonthDay(text)
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(dayText)

	year := reference.Year()
	explicitYear := yearText != ""
	if explicitYear {
		year, _ = strconv.Atoi(yearText)
	}

	t, ok := calendarDate(year, month, day, reference.Location())
	if !ok {
		return time.Time{}, false
	}
	if !explicitYear && startOfDay(t).After(startOfDay(reference)) {
		return calendarDate(year-1, month, day, reference.Location())
	}
	return t, true
}

// rejects claims every month/day shaped phrase, so a day the month does not
// have ("june 31") fails instead of rolling into the next month. A bare month
// name carries no day and is rejected too.
func (monthDayParser) rejects(text string) bool {
	if _, ok := monthNames[text]; ok {
		return true
	}
	_, _, _, ok := matchMonthDay(text)
	return ok
}

func matchMonthDay(text string) (month time.Month, dayText, yearText string, ok bool) {
	var monthName string
	if m := monthFirstPattern.FindStringSubmatch(text); m != nil {
		monthName, dayText, yearText = m[1], m[2], m[3]
	} else if m := dayFirstPattern.FindStringSubmatch(text); m != nil {
		dayText, monthName, yearText = m[1], m[2], m[3]
	} else {
		return 0, "", "", false
	}
	month, ok = monthNames[monthName]
	return month, dayText, yearText, ok
}

// calendarDate rejects days that time.Date would normalize into another month.
func calendarDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

// whenParser adapts github.com/olebedev/when to NaturalParser.
// Only the English rule set is loaded; the common slash rules read dates as
// day/month/year, which would shadow the strict month/day/year layout.
//
// when reads an unqualified weekday ("on friday", "friday at 3pm") as the
// upcoming one. Unless the phrase says otherwise, such a result within the
// coming week is moved back to the most recent occurrence of that weekday.
type whenParser struct {
	parser *when.Parser
}

func (p *whenParser) ParseNatural(text string, reference time.Time) (time.Time, bool) {
	result, err := p.parser.Parse(text, reference)
	if err != nil || result == nil {
		return time.Time{}, false
	}

	t := result.Time.In(reference.Location())
	ahead := daysBetween(reference, t)
	if ahead > 0 && ahead <= 7 && !forwardPattern.MatchString(text) {
		back := daysSinceWeekday(reference.Weekday(), t.Weekday())
		t = t.AddDate(0, 0, -(ahead + back))
	}
	return t, true
}

// daysBetween counts calendar days from a to b, ignoring the clock.
func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// NewNaturalParser returns the default natural language parser: explicit
// month/day phrases first, then the general English rule set.
func NewNaturalParser() NaturalParser {
	w := when.New(nil)
	w.Add(en.All...)
	return chainParser{monthDayParser{}, &whenParser{parser: w}}
}
