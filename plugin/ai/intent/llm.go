package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

var codeFencePattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// LLMConfig holds configuration for the LLM parser.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMParser asks an OpenAI-compatible model to extract the request and
// falls back to rules when the model is unavailable.
type LLMParser struct {
	client  *openai.Client
	model   string
	timeout time.Duration

	// Fallback rule-based parser for when LLM fails
	fallback *RuleParser
}

// NewLLMParser creates a new LLM-based parser.
func NewLLMParser(cfg LLMConfig, fallback *RuleParser) *LLMParser {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if fallback == nil {
		fallback = NewRuleParser(nil)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = baseURL

	return &LLMParser{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    model,
		timeout:  timeout,
		fallback: fallback,
	}
}

// NewParser returns the LLM parser when a key is configured and the rule
// parser otherwise.
func NewParser(cfg LLMConfig, rules *RuleParser) Parser {
	if cfg.APIKey == "" {
		return rules
	}
	return NewLLMParser(cfg, rules)
}

// Parse never fails; model errors fall back to rules.
func (p *LLMParser) Parse(ctx context.Context, text string) (*Result, error) {
	result, err := p.ParseWithModel(ctx, text)
	if err != nil {
		slog.Warn("LLM intent parsing failed, using fallback",
			"error", err,
			"input", truncateForLog(text, 50))
		return p.fallback.Parse(ctx, text)
	}
	return result, nil
}

// ParseWithModel returns the model's reading of text.
func (p *LLMParser) ParseWithModel(ctx context.Context, text string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   120,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: intentSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "work_log_request",
				Strict: true,
				Schema: intentJSONSchema,
			},
		},
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("LLM request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from LLM")
	}

	result, err := parseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	slog.Debug("LLM intent parsing completed",
		"input", truncateForLog(text, 30),
		"ticket", result.TicketKey,
		"latency_ms", latency.Milliseconds(),
		"tokens", resp.Usage.TotalTokens)
	return result, nil
}

// parseResponse parses the model's JSON, tolerating a markdown code fence.
func parseResponse(content string) (*Result, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if matches := codeFencePattern.FindStringSubmatch(content); len(matches) > 1 {
			content = matches[1]
		}
	}

	var raw struct {
		Hours       float64 `json:"hours"`
		TicketKey   string  `json:"ticket_key"`
		Description string  `json:"description"`
		DateText    string  `json:"date_text"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	return &Result{
		Hours:       normalizeHours(raw.Hours),
		TicketKey:   normalizeTicket(raw.TicketKey),
		Description: strings.TrimSpace(raw.Description),
		DateText:    strings.TrimSpace(raw.DateText),
	}, nil
}

const intentSystemPrompt = `Extract a work log request from the user's message.

hours: duration worked in hours (convert minutes), 0 if not stated
ticket_key: issue key like ABC-123, empty if not stated
description: what was done, without the duration, ticket or date
date_text: the date phrase exactly as written (e.g. "yesterday", "last friday"), empty if not stated

Never invent values.`

// intentJSONSchema defines the strict output schema.
var intentJSONSchema = &jsonSchema{
	Type: "object",
	Properties: map[string]*jsonSchema{
		"hours": {
			Type:        "number",
			Description: "Hours worked, 0 when unknown",
		},
		"ticket_key": {
			Type:        "string",
			Description: "Issue key, empty when unknown",
		},
		"description": {
			Type:        "string",
			Description: "Work description",
		},
		"date_text": {
			Type:        "string",
			Description: "Date phrase as written, empty when unknown",
		},
	},
	Required:             []string{"hours", "ticket_key", "description", "date_text"},
	AdditionalProperties: false,
}

// jsonSchema implements json.Marshaler for OpenAI's JSON Schema format.
type jsonSchema struct {
	Type                 string                 `json:"type"`
	Properties           map[string]*jsonSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Description          string                 `json:"description,omitempty"`
	AdditionalProperties bool                   `json:"additionalProperties"`
}

func (s *jsonSchema) MarshalJSON() ([]byte, error) {
	type alias jsonSchema
	return json.Marshal((*alias)(s))
}
