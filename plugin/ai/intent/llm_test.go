package intent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 10, "total_tokens": 20},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLLMParser(t *testing.T) {
	server := chatServer(t, http.StatusOK, `{"hours":3,"ticket_key":"abc-123","description":"fixing login","date_text":"yesterday"}`)
	p := NewLLMParser(LLMConfig{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"}, newTestRuleParser())

	result, err := p.Parse(context.Background(), "three hours on abc-123 yesterday fixing login")
	require.NoError(t, err)
	require.NotNil(t, result.Hours)
	assert.Equal(t, 3.0, *result.Hours)
	assert.Equal(t, "ABC-123", result.TicketKey)
	assert.Equal(t, "fixing login", result.Description)
	assert.Equal(t, "yesterday", result.DateText)
}

func TestLLMParserFallsBackToRules(t *testing.T) {
	server := chatServer(t, http.StatusServiceUnavailable, "")
	p := NewLLMParser(LLMConfig{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"}, newTestRuleParser())

	_, err := p.ParseWithModel(context.Background(), "2h ABC-9 review")
	require.Error(t, err)

	result, err := p.Parse(context.Background(), "2h ABC-9 review")
	require.NoError(t, err)
	assert.Equal(t, "ABC-9", result.TicketKey)
	require.NotNil(t, result.Hours)
	assert.Equal(t, 2.0, *result.Hours)
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		hours   *float64
		ticket  string
		wantErr bool
	}{
		{
			name:    "plain json",
			content: `{"hours":1.5,"ticket_key":"OPS-1","description":"","date_text":""}`,
			hours:   ptr(1.5),
			ticket:  "OPS-1",
		},
		{
			name:    "fenced json",
			content: "```json\n{\"hours\":0,\"ticket_key\":\"\",\"description\":\"x\",\"date_text\":\"\"}\n```",
		},
		{
			name:    "not json",
			content: "I think it was 3 hours",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseResponse(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hours, result.Hours)
			assert.Equal(t, tt.ticket, result.TicketKey)
		})
	}
}

func TestNewParserWithoutKeyUsesRules(t *testing.T) {
	rules := newTestRuleParser()
	assert.Same(t, rules, NewParser(LLMConfig{}, rules))
	_, ok := NewParser(LLMConfig{APIKey: "k"}, rules).(*LLMParser)
	assert.True(t, ok)
}

func ptr[T any](v T) *T {
	return &v
}
