package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContextLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	reqCtx := NewRequestContext(logger, "actions", "U1", "slack")
	_, err := uuid.Parse(reqCtx.RequestID)
	require.NoError(t, err)

	reqCtx.Info("handled", slog.String(LogFieldSessionID, "42"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, reqCtx.RequestID, entry[LogFieldRequestID])
	assert.Equal(t, "U1", entry[LogFieldUserID])
	assert.Equal(t, "slack", entry[LogFieldPlatform])
	assert.Equal(t, "actions", entry[LogFieldOperation])
	assert.Equal(t, "42", entry[LogFieldSessionID])
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, ok := FromContext(ctx)
	assert.False(t, ok)
	assert.Equal(t, slog.Default(), LoggerFrom(ctx))

	reqCtx := NewRequestContextWithID(nil, "req-1", "messages", "U1", "teams")
	ctx = WithRequestContext(ctx, reqCtx)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "req-1", got.RequestID)
	assert.NotNil(t, LoggerFrom(ctx))
}
