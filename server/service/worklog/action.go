package worklog

import (
	"strings"

	"github.com/pkg/errors"
)

// ActionKind identifies what an interactive element does when clicked.
type ActionKind string

const (
	ActionSelectTicket ActionKind = "select_ticket"
	ActionConfirm      ActionKind = "confirm"
	ActionCancel       ActionKind = "cancel"
	ActionQuickTime    ActionKind = "quick_time"
	// ActionQuickLog starts a quick log; it carries the ticket key as value
	// and no session id.
	ActionQuickLog ActionKind = "quick_log"
)

const actionSeparator = ":"

// EncodeActionID builds the identifier embedded in an outbound button so a
// later click can find its session without other context.
func EncodeActionID(kind ActionKind, sessionID string) string {
	return string(kind) + actionSeparator + sessionID
}

// ParseActionID splits an action id into its kind and session id.
func ParseActionID(actionID string) (ActionKind, string, error) {
	kind, sessionID, ok := strings.Cut(actionID, actionSeparator)
	if !ok {
		return "", "", errors.Errorf("malformed action id %q", actionID)
	}

	switch k := ActionKind(kind); k {
	case ActionQuickLog:
		return k, sessionID, nil
	case ActionSelectTicket, ActionConfirm, ActionCancel, ActionQuickTime:
		if sessionID == "" {
			return "", "", errors.Errorf("action id %q has no session", actionID)
		}
		return k, sessionID, nil
	default:
		return "", "", errors.Errorf("unknown action kind %q", kind)
	}
}
