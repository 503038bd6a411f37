package test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/chronolog/store"
)

func ptr[T any](v T) *T {
	return &v
}

func TestSessionCreateAndGet(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	created, err := ts.CreateSession(ctx, &store.CreateSession{
		UserID:   "U1",
		Platform: "slack",
		State:    store.SessionStateAwaitingTicketSelection,
		Payload:  json.RawMessage(`{"hours":3,"dateText":"yesterday"}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, ts.Clock.Now().Add(store.DefaultSessionTTL).Unix(), created.ExpiresAt.Unix())

	got, err := ts.GetSession(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "U1", got.UserID)
	assert.Equal(t, "slack", got.Platform)
	assert.Equal(t, store.SessionStateAwaitingTicketSelection, got.State)
	assert.JSONEq(t, `{"hours":3,"dateText":"yesterday"}`, string(got.Payload))
	assert.Equal(t, created.CreatedAt.Unix(), got.CreatedAt.Unix())
}

func TestSessionDefaultsEmptyPayload(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	created, err := ts.CreateSession(ctx, &store.CreateSession{
		UserID:   "U1",
		Platform: "slack",
		State:    store.SessionStateAwaitingQuickTime,
	})
	require.NoError(t, err)

	got, err := ts.GetSession(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, `{}`, string(got.Payload))
}

func TestSessionUnknownID(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	for _, id := range []string{"999999", "not-an-id", ""} {
		got, err := ts.GetSession(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got, "id %q", id)
	}
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	created, err := ts.CreateSession(ctx, &store.CreateSession{
		UserID:   "U1",
		Platform: "slack",
		State:    store.SessionStateAwaitingConfirmation,
		Payload:  json.RawMessage(`{"ticketKey":"ABC-123","hours":2}`),
	})
	require.NoError(t, err)

	ts.Clock.Advance(29 * time.Minute)
	got, err := ts.GetSession(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	// The deadline itself is already expired.
	ts.Clock.Advance(time.Minute)
	got, err = ts.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	latest, err := ts.GetLatestSession(ctx, &store.FindSession{
		UserID:   ptr("U1"),
		Platform: ptr("slack"),
		State:    ptr(store.SessionStateAwaitingConfirmation),
	})
	require.NoError(t, err)
	assert.Nil(t, latest)

	ok, err := ts.UpdateSession(ctx, &store.UpdateSession{
		ID:      created.ID,
		State:   store.SessionStateAwaitingConfirmation,
		Payload: json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionExplicitExpiry(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	deadline := ts.Clock.Now().Add(5 * time.Minute)
	created, err := ts.CreateSession(ctx, &store.CreateSession{
		UserID:    "U1",
		Platform:  "teams",
		State:     store.SessionStateAwaitingQuickTime,
		ExpiresAt: &deadline,
	})
	require.NoError(t, err)
	assert.Equal(t, deadline.Unix(), created.ExpiresAt.Unix())

	ts.Clock.Advance(6 * time.Minute)
	got, err := ts.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionUpdatePreservesIdentity(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	created, err := ts.CreateSession(ctx, &store.CreateSession{
		UserID:   "U1",
		Platform: "slack",
		State:    store.SessionStateAwaitingTicketSelection,
		Payload:  json.RawMessage(`{"hours":3}`),
	})
	require.NoError(t, err)

	ts.Clock.Advance(2 * time.Minute)
	ok, err := ts.UpdateSession(ctx, &store.UpdateSession{
		ID:      created.ID,
		State:   store.SessionStateAwaitingConfirmation,
		Payload: json.RawMessage(`{"hours":3,"ticketKey":"ABC-123"}`),
	})
	require.NoError(t, err)
	require.True(t, ok)

	got, err := ts.GetSession(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.CreatedAt.Unix(), got.CreatedAt.Unix())
	assert.Equal(t, created.ExpiresAt.Unix(), got.ExpiresAt.Unix())
	assert.Equal(t, store.SessionStateAwaitingConfirmation, got.State)
	assert.JSONEq(t, `{"hours":3,"ticketKey":"ABC-123"}`, string(got.Payload))
}

func TestSessionUpdateMissing(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	ok, err := ts.UpdateSession(ctx, &store.UpdateSession{
		ID:    "424242",
		State: store.SessionStateAwaitingConfirmation,
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionGetLatestByKind(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	first, err := ts.CreateSession(ctx, &store.CreateSession{
		UserID: "U1", Platform: "slack", State: store.SessionStateAwaitingTicketSelection,
		Payload: json.RawMessage(`{"hours":1}`),
	})
	require.NoError(t, err)

	ts.Clock.Advance(time.Second)
	second, err := ts.CreateSession(ctx, &store.CreateSession{
		UserID: "U1", Platform: "slack", State: store.SessionStateAwaitingTicketSelection,
		Payload: json.RawMessage(`{"hours":2}`),
	})
	require.NoError(t, err)

	// Different kind, user and platform must not match.
	for _, create := range []*store.CreateSession{
		{UserID: "U1", Platform: "slack", State: store.SessionStateAwaitingQuickTime},
		{UserID: "U2", Platform: "slack", State: store.SessionStateAwaitingTicketSelection},
		{UserID: "U1", Platform: "teams", State: store.SessionStateAwaitingTicketSelection},
	} {
		_, err := ts.CreateSession(ctx, create)
		require.NoError(t, err)
	}

	latest, err := ts.GetLatestSession(ctx, &store.FindSession{
		UserID:   ptr("U1"),
		Platform: ptr("slack"),
		State:    ptr(store.SessionStateAwaitingTicketSelection),
	})
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)
	assert.NotEqual(t, first.ID, latest.ID)
	assert.JSONEq(t, `{"hours":2}`, string(latest.Payload))

	none, err := ts.GetLatestSession(ctx, &store.FindSession{
		UserID:   ptr("U3"),
		Platform: ptr("slack"),
		State:    ptr(store.SessionStateAwaitingTicketSelection),
	})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSessionDelete(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	created, err := ts.CreateSession(ctx, &store.CreateSession{
		UserID: "U1", Platform: "slack", State: store.SessionStateAwaitingConfirmation,
	})
	require.NoError(t, err)

	ok, err := ts.DeleteSession(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := ts.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// A second delete of the same id finds nothing.
	ok, err = ts.DeleteSession(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionDeleteByKind(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	for i := 0; i < 2; i++ {
		_, err := ts.CreateSession(ctx, &store.CreateSession{
			UserID: "U1", Platform: "slack", State: store.SessionStateAwaitingTicketSelection,
		})
		require.NoError(t, err)
	}
	other, err := ts.CreateSession(ctx, &store.CreateSession{
		UserID: "U1", Platform: "slack", State: store.SessionStateAwaitingConfirmation,
	})
	require.NoError(t, err)

	n, err := ts.DeleteSessions(ctx, &store.DeleteSession{
		UserID:   ptr("U1"),
		Platform: ptr("slack"),
		State:    ptr(store.SessionStateAwaitingTicketSelection),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, err := ts.GetSession(ctx, other.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)

	_, err = ts.DeleteSessions(ctx, &store.DeleteSession{})
	require.Error(t, err)
}

func TestDeleteExpiredSessions(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	short := ts.Clock.Now().Add(time.Minute)
	_, err := ts.CreateSession(ctx, &store.CreateSession{
		UserID: "U1", Platform: "slack", State: store.SessionStateAwaitingQuickTime, ExpiresAt: &short,
	})
	require.NoError(t, err)
	live, err := ts.CreateSession(ctx, &store.CreateSession{
		UserID: "U2", Platform: "slack", State: store.SessionStateAwaitingQuickTime,
	})
	require.NoError(t, err)

	ts.Clock.Advance(2 * time.Minute)
	n, err := ts.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := ts.GetSession(ctx, live.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)

	n, err = ts.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}
