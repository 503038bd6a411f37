package worklog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/chronolog/store"
)

func TestParseActionID(t *testing.T) {
	tests := []struct {
		actionID  string
		kind      ActionKind
		sessionID string
		wantErr   bool
	}{
		{actionID: "confirm:42", kind: ActionConfirm, sessionID: "42"},
		{actionID: "cancel:8LrwQ9zFJk3n", kind: ActionCancel, sessionID: "8LrwQ9zFJk3n"},
		{actionID: "select_ticket:7", kind: ActionSelectTicket, sessionID: "7"},
		{actionID: "quick_time:7", kind: ActionQuickTime, sessionID: "7"},
		{actionID: "quick_log:", kind: ActionQuickLog},
		{actionID: "confirm:", wantErr: true},
		{actionID: "confirm", wantErr: true},
		{actionID: "delete:1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.actionID, func(t *testing.T) {
			kind, sessionID, err := ParseActionID(tt.actionID)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.sessionID, sessionID)
			assert.Equal(t, tt.actionID, EncodeActionID(kind, sessionID))
		})
	}
}

func TestDecodePayloadByState(t *testing.T) {
	tests := []struct {
		state store.SessionState
		check func(t *testing.T, payload any)
	}{
		{
			state: store.SessionStateAwaitingTicketSelection,
			check: func(t *testing.T, payload any) {
				p, ok := payload.(*TicketPendingPayload)
				require.True(t, ok)
				assert.Equal(t, 3.0, p.Hours)
			},
		},
		{
			state: store.SessionStateAwaitingConfirmation,
			check: func(t *testing.T, payload any) {
				p, ok := payload.(*ConfirmationPendingPayload)
				require.True(t, ok)
				assert.Equal(t, "ABC-1", p.TicketKey)
			},
		},
		{
			state: store.SessionStateAwaitingQuickTime,
			check: func(t *testing.T, payload any) {
				p, ok := payload.(*QuickTimePayload)
				require.True(t, ok)
				assert.Equal(t, "ABC-1", p.TicketKey)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			payload, err := decodePayload(&store.Session{
				ID:      "1",
				State:   tt.state,
				Payload: json.RawMessage(`{"hours":3,"ticketKey":"ABC-1"}`),
			})
			require.NoError(t, err)
			tt.check(t, payload)
		})
	}

	_, err := decodePayload(&store.Session{ID: "1", State: "AWAITING_SOMETHING_ELSE", Payload: json.RawMessage(`{}`)})
	require.Error(t, err)
}
