package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hrygo/chronolog/plugin/ai/aitime"
)

var (
	ticketPattern = regexp.MustCompile(`\b([A-Z][A-Z0-9]+-\d+)\b`)
	hoursPattern  = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:h|hrs?|hours?)\b`)
	// minutesPattern only applies when no hours were given.
	minutesPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(?:m|mins?|minutes?)\b`)
)

// fillerWords are dropped from the edges of the description.
var fillerWords = map[string]bool{
	"log":     true,
	"logged":  true,
	"spent":   true,
	"worked":  true,
	"add":     true,
	"please":  true,
	"i":       true,
	"on":      true,
	"to":      true,
	"for":     true,
	"against": true,
	"in":      true,
	"of":      true,
}

// RuleParser extracts requests with regular expressions. It never fails.
type RuleParser struct {
	resolver *aitime.Resolver
	now      func() time.Time
}

// NewRuleParser creates a rule parser that locates dates with resolver.
func NewRuleParser(resolver *aitime.Resolver) *RuleParser {
	if resolver == nil {
		resolver = aitime.NewResolver(nil)
	}
	return &RuleParser{resolver: resolver, now: time.Now}
}

func (p *RuleParser) Parse(_ context.Context, text string) (*Result, error) {
	return p.parse(text), nil
}

func (p *RuleParser) parse(text string) *Result {
	result := &Result{}
	rest := text

	if loc := ticketPattern.FindStringSubmatchIndex(rest); loc != nil {
		result.TicketKey = rest[loc[2]:loc[3]]
		rest = rest[:loc[0]] + " " + rest[loc[1]:]
	}

	if loc := hoursPattern.FindStringSubmatchIndex(rest); loc != nil {
		if h, err := strconv.ParseFloat(rest[loc[2]:loc[3]], 64); err == nil {
			result.Hours = normalizeHours(h)
		}
		rest = rest[:loc[0]] + " " + rest[loc[1]:]
	} else if loc := minutesPattern.FindStringSubmatchIndex(rest); loc != nil {
		if m, err := strconv.Atoi(rest[loc[2]:loc[3]]); err == nil {
			result.Hours = normalizeHours(float64(m) / 60)
		}
		rest = rest[:loc[0]] + " " + rest[loc[1]:]
	}

	extraction := p.resolver.Extract(rest, p.now())
	if extraction.Date != nil {
		result.DateText = extraction.Matched
	}
	result.Description = trimFiller(extraction.Remaining)
	return result
}

func trimFiller(s string) string {
	words := strings.Fields(s)
	for len(words) > 0 && fillerWords[strings.ToLower(words[0])] {
		words = words[1:]
	}
	for len(words) > 0 && fillerWords[strings.ToLower(words[len(words)-1])] {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}
