package worklog

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/hrygo/chronolog/plugin/ai/aitime"
	"github.com/hrygo/chronolog/store"
)

// TicketPendingPayload is stored while waiting for the user to pick a ticket.
type TicketPendingPayload struct {
	Hours        float64              `json:"hours"`
	Description  string               `json:"description,omitempty"`
	DateText     string               `json:"dateText,omitempty"`
	ResolvedDate *aitime.ResolvedDate `json:"resolvedDate,omitempty"`
}

// ConfirmationPendingPayload is stored while waiting for confirm or cancel.
type ConfirmationPendingPayload struct {
	TicketKey    string               `json:"ticketKey"`
	Hours        float64              `json:"hours"`
	Description  string               `json:"description,omitempty"`
	DateText     string               `json:"dateText,omitempty"`
	ResolvedDate *aitime.ResolvedDate `json:"resolvedDate,omitempty"`
}

// QuickTimePayload is stored while waiting for a duration pick.
type QuickTimePayload struct {
	TicketKey    string               `json:"ticketKey"`
	Description  string               `json:"description,omitempty"`
	DateText     string               `json:"dateText,omitempty"`
	ResolvedDate *aitime.ResolvedDate `json:"resolvedDate,omitempty"`
}

// decodePayload picks the payload variant for the session state.
// The result is one of *TicketPendingPayload, *ConfirmationPendingPayload
// or *QuickTimePayload.
func decodePayload(session *store.Session) (any, error) {
	var payload any
	switch session.State {
	case store.SessionStateAwaitingTicketSelection:
		payload = &TicketPendingPayload{}
	case store.SessionStateAwaitingConfirmation:
		payload = &ConfirmationPendingPayload{}
	case store.SessionStateAwaitingQuickTime:
		payload = &QuickTimePayload{}
	default:
		return nil, errors.Errorf("session %s has unrecognized state %q", session.ID, session.State)
	}

	if err := json.Unmarshal(session.Payload, payload); err != nil {
		return nil, errors.Wrapf(err, "session %s has corrupt payload", session.ID)
	}
	return payload, nil
}

func encodePayload(payload any) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode session payload")
	}
	return data, nil
}
