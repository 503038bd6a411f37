// Package aitime resolves natural language date phrases for time logging.
package aitime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// ErrNoDateText is reported when the input is empty.
	ErrNoDateText = "no date text provided"
	// ErrFutureDate is reported when a phrase resolves after the reference date.
	ErrFutureDate = "future dates not allowed for time logging"

	// pastAnchorHour is the time of day assigned to resolved past dates.
	pastAnchorHour = 9
)

var (
	// Relative time patterns
	agoPattern     = regexp.MustCompile(`^(\d+)\s+(days?|weeks?)\s+ago$`)
	weekdayPattern = regexp.MustCompile(`^(?:last\s+)?([a-z]+)$`)

	// numericDatePattern matches input made only of digits and separators.
	// Such input skips the natural parser so it cannot be coerced.
	numericDatePattern = regexp.MustCompile(`^[\d\s/.\-]+$`)
)

// relDateOffsets maps relative date keywords to day offsets.
var relDateOffsets = map[string]int{
	"today":     0,
	"yesterday": -1,
	"tomorrow":  1,
}

// weekdayNames maps weekday names and common abbreviations.
var weekdayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"thur":      time.Thursday,
	"thurs":     time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
}

// strictLayouts are the only machine-readable formats accepted as a last resort.
var strictLayouts = []string{
	"2006-01-02",
	"1/2/2006",
}

// ResolvedDate is the outcome of resolving a date phrase.
// If IsValid is true, Date is never after the reference date.
type ResolvedDate struct {
	Date        time.Time `json:"date"`
	IsValid     bool      `json:"isValid"`
	IsToday     bool      `json:"isToday"`
	IsPast      bool      `json:"isPast"`
	DisplayText string    `json:"displayText"`
	Error       string    `json:"error,omitempty"`
}

// IsFuture reports whether the phrase was rejected for pointing into the future.
func (r ResolvedDate) IsFuture() bool {
	return !r.IsValid && r.Error == ErrFutureDate
}

// NaturalParser is a general purpose natural language date parser used when
// none of the fixed relative phrases match.
type NaturalParser interface {
	ParseNatural(text string, reference time.Time) (time.Time, bool)
}

// Resolver turns date phrases into calendar dates, rejecting future dates.
type Resolver struct {
	location *time.Location
	natural  NaturalParser
}

// NewResolver creates a resolver for the given location backed by the default
// natural language parser.
func NewResolver(location *time.Location) *Resolver {
	if location == nil {
		location = time.Local
	}
	return &Resolver{
		location: location,
		natural:  NewNaturalParser(),
	}
}

// WithNaturalParser returns a copy of the resolver using parser as fallback.
// A nil parser disables the natural language step.
func (r *Resolver) WithNaturalParser(parser NaturalParser) *Resolver {
	return &Resolver{
		location: r.location,
		natural:  parser,
	}
}

// Location returns the resolver's location.
func (r *Resolver) Location() *time.Location {
	return r.location
}

// Resolve resolves text relative to referenceNow.
func (r *Resolver) Resolve(text string, referenceNow time.Time) ResolvedDate {
	input := strings.ToLower(strings.TrimSpace(text))
	if input == "" {
		return invalidDate(ErrNoDateText)
	}
	input = strings.Join(strings.Fields(input), " ")

	now := referenceNow.In(r.location)

	if t, ok := r.matchRelative(input, now); ok {
		return r.finish(t, now)
	}

	if r.natural != nil && !numericDatePattern.MatchString(input) {
		if t, ok := r.natural.ParseNatural(input, now); ok {
			return r.finish(t, now)
		}
	}

	if t, ok := r.parseStrict(input); ok {
		return r.finish(t, now)
	}

	return invalidDate(fmt.Sprintf("unable to parse date: %s", strings.TrimSpace(text)))
}

// Today resolves the reference date itself.
func (r *Resolver) Today(referenceNow time.Time) ResolvedDate {
	now := referenceNow.In(r.location)
	return r.finish(now, now)
}

// matchRelative tries the fixed table of relative phrases.
func (r *Resolver) matchRelative(input string, now time.Time) (time.Time, bool) {
	if offset, ok := relDateOffsets[input]; ok {
		return now.AddDate(0, 0, offset), true
	}

	if matches := agoPattern.FindStringSubmatch(input); len(matches) == 3 {
		n, err := strconv.Atoi(matches[1])
		if err != nil {
			return time.Time{}, false
		}
		if strings.HasPrefix(matches[2], "week") {
			n *= 7
		}
		return now.AddDate(0, 0, -n), true
	}

	if matches := weekdayPattern.FindStringSubmatch(input); len(matches) == 2 {
		target, ok := weekdayNames[matches[1]]
		if !ok {
			return time.Time{}, false
		}
		return now.AddDate(0, 0, -daysSinceWeekday(now.Weekday(), target)), true
	}

	return time.Time{}, false
}

// daysSinceWeekday returns how many days back the most recent target weekday
// is. A target equal to the current weekday is a full week back.
func daysSinceWeekday(current, target time.Weekday) int {
	diff := (int(current) - int(target) + 7) % 7
	if diff == 0 {
		diff = 7
	}
	return diff
}

// parseStrict attempts the machine-readable layouts.
func (r *Resolver) parseStrict(input string) (time.Time, bool) {
	for _, layout := range strictLayouts {
		if t, err := time.ParseInLocation(layout, input, r.location); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// finish applies the future-date policy and fills display metadata.
func (r *Resolver) finish(t, now time.Time) ResolvedDate {
	day := startOfDay(t.In(r.location))
	today := startOfDay(now)

	if day.After(today) {
		return invalidDate(ErrFutureDate)
	}

	result := ResolvedDate{
		IsValid:     true,
		DisplayText: FormatDisplay(day, now),
	}
	if day.Equal(today) {
		result.Date = now
		result.IsToday = true
		return result
	}

	result.Date = time.Date(day.Year(), day.Month(), day.Day(), pastAnchorHour, 0, 0, 0, r.location)
	result.IsPast = true
	return result
}

func invalidDate(reason string) ResolvedDate {
	return ResolvedDate{Error: reason}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
