package worklog

// ReplyKind tells the delivery layer what the user is being shown.
type ReplyKind string

const (
	ReplyAskTicket       ReplyKind = "ask_ticket"
	ReplyAskConfirmation ReplyKind = "ask_confirmation"
	ReplyAskQuickTime    ReplyKind = "ask_quick_time"
	ReplyLogged          ReplyKind = "logged"
	ReplyFailed          ReplyKind = "failed"
	ReplyCancelled       ReplyKind = "cancelled"
	ReplyExpired         ReplyKind = "expired"
	ReplyInvalid         ReplyKind = "invalid"
)

// Reply is the outcome of one conversation step.
type Reply struct {
	Kind      ReplyKind `json:"kind"`
	Text      string    `json:"text"`
	SessionID string    `json:"sessionId,omitempty"`
	Actions   []Action  `json:"actions,omitempty"`
}

// Action is an interactive element offered with a reply. An empty Value
// asks the delivery layer to collect free text.
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value,omitempty"`
}

const expiredText = "session expired, please try again"

func expiredReply() *Reply {
	return &Reply{Kind: ReplyExpired, Text: expiredText}
}

func invalidReply(text string) *Reply {
	return &Reply{Kind: ReplyInvalid, Text: text}
}
