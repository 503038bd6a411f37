package aitime

import (
	"regexp"
	"strings"
	"time"
)

const (
	// No abbreviations: "sat" and "sun" collide with ordinary words.
	weekdayAlternation = `monday|tuesday|wednesday|thursday|friday|saturday|sunday`
	monthAlternation   = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

	relativePhrase = `today|yesterday|tomorrow|(?:last\s+)?(?:` + weekdayAlternation + `)|\d+\s+(?:days?|weeks?)\s+ago`
	monthDate      = `(?:` + monthAlternation + `)\.?\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?`
	numericDate    = `\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}`
)

// extractPatterns are tried in order; the first match wins.
var extractPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:for|on|from)\s+(` + relativePhrase + `|` + monthDate + `|` + numericDate + `)\b`),
	regexp.MustCompile(`(?i)\b(` + relativePhrase + `)\b`),
	regexp.MustCompile(`(?i)\b(` + monthDate + `)\b`),
	regexp.MustCompile(`\b(` + numericDate + `)\b`),
}

// Extraction is the result of locating a date phrase inside a sentence.
type Extraction struct {
	// Date is nil when no date-like phrase was found.
	Date *ResolvedDate
	// Matched is the phrase handed to Resolve.
	Matched string
	// Remaining is the sentence with the matched text removed.
	Remaining string
}

// Extract finds the first date-like phrase in sentence, resolves it and
// returns the sentence without it.
func (r *Resolver) Extract(sentence string, referenceNow time.Time) Extraction {
	for _, pattern := range extractPatterns {
		loc := pattern.FindStringSubmatchIndex(sentence)
		if loc == nil {
			continue
		}

		phrase := sentence[loc[2]:loc[3]]
		resolved := r.Resolve(phrase, referenceNow)
		return Extraction{
			Date:      &resolved,
			Matched:   phrase,
			Remaining: collapseSpaces(sentence[:loc[0]] + " " + sentence[loc[1]:]),
		}
	}

	return Extraction{Remaining: collapseSpaces(sentence)}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
