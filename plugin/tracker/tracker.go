// Package tracker writes work logs to a Jira-compatible issue tracker.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// startedLayout is the timestamp format the worklog API expects.
const startedLayout = "2006-01-02T15:04:05.000-0700"

// ErrNoToken is returned when the user has not configured tracker access.
var ErrNoToken = errors.New("no tracker token configured")

// TokenSource yields the access token a user stored for a platform.
type TokenSource interface {
	Token(ctx context.Context, userID, platform string) (string, error)
}

// Entry is one worklog written against an issue.
type Entry struct {
	UserID      string
	Platform    string
	IssueKey    string
	Hours       float64
	Description string
	Started     time.Time
}

// Client posts worklogs on behalf of individual users.
type Client struct {
	baseURL string
	tokens  TokenSource
	base    *http.Client
}

// NewClient creates a client for the tracker at baseURL.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		base:    &http.Client{Timeout: 15 * time.Second},
	}
}

// WithHTTPClient overrides the transport used underneath the oauth2 client.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.base = client
	return c
}

type worklogRequest struct {
	TimeSpentSeconds int64  `json:"timeSpentSeconds"`
	Comment          string `json:"comment,omitempty"`
	Started          string `json:"started"`
}

// LogWork records entry on its issue using the user's stored token.
func (c *Client) LogWork(ctx context.Context, entry Entry) error {
	if c.baseURL == "" {
		return errors.New("tracker base URL is not configured")
	}

	token, err := c.tokens.Token(ctx, entry.UserID, entry.Platform)
	if err != nil {
		return errors.Wrap(err, "failed to load tracker token")
	}
	if token == "" {
		return ErrNoToken
	}

	body, err := json.Marshal(worklogRequest{
		TimeSpentSeconds: int64(math.Round(entry.Hours * 3600)),
		Comment:          entry.Description,
		Started:          entry.Started.Format(startedLayout),
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/rest/api/2/issue/%s/worklog", c.baseURL, url.PathEscape(entry.IssueKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient(ctx, token).Do(req)
	if err != nil {
		return errors.Wrap(err, "tracker request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, upstreamMessage(resp.Body))
	}

	slog.Debug("worklog recorded",
		"issue", entry.IssueKey,
		"user_id", entry.UserID,
		"seconds", int64(math.Round(entry.Hours*3600)))
	return nil
}

func (c *Client) httpClient(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

// upstreamMessage extracts the tracker's error text from a response body.
func upstreamMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))

	var payload struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		messages := append([]string{}, payload.ErrorMessages...)
		for _, field := range slices.Sorted(maps.Keys(payload.Errors)) {
			messages = append(messages, field+": "+payload.Errors[field])
		}
		if len(messages) > 0 {
			return strings.Join(messages, "; ")
		}
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "empty response"
	}
	return text
}
