// Package intent turns a chat message into a work log request.
package intent

import (
	"context"
	"strings"
)

// Result is what a message says about the work to log. Empty fields were
// not mentioned.
type Result struct {
	Hours       *float64 `json:"hours,omitempty"`
	TicketKey   string   `json:"ticketKey,omitempty"`
	Description string   `json:"description,omitempty"`
	DateText    string   `json:"dateText,omitempty"`
}

func (r Result) clone() *Result {
	if r.Hours != nil {
		h := *r.Hours
		r.Hours = &h
	}
	return &r
}

// Parser extracts a Result from free text.
type Parser interface {
	Parse(ctx context.Context, text string) (*Result, error)
}

// truncateForLog truncates a string for logging purposes.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func normalizeHours(h float64) *float64 {
	if h <= 0 {
		return nil
	}
	return &h
}

func normalizeTicket(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
