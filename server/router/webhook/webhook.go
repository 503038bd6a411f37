// Package webhook exposes the conversation orchestrator over JSON HTTP.
package webhook

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/chronolog/plugin/ai/intent"
	apperrors "github.com/hrygo/chronolog/server/internal/errors"
	"github.com/hrygo/chronolog/server/internal/observability"
	"github.com/hrygo/chronolog/server/middleware"
	"github.com/hrygo/chronolog/server/service/worklog"
)

// HeaderRequestID carries the request id back to the caller.
const HeaderRequestID = "X-Request-ID"

// maxTextLength bounds inbound message text.
const maxTextLength = 2000

// Conversation is the orchestrator the webhook drives.
type Conversation interface {
	HandleIntent(ctx context.Context, intent worklog.Intent) (*worklog.Reply, error)
	HandleAction(ctx context.Context, req worklog.ActionRequest) (*worklog.Reply, error)
}

// MessageRequest is a free-text chat message.
type MessageRequest struct {
	UserID   string `json:"userId"`
	Platform string `json:"platform"`
	Text     string `json:"text"`
}

// ActionRequest is a button click on a previous reply.
type ActionRequest struct {
	UserID   string `json:"userId"`
	Platform string `json:"platform"`
	ActionID string `json:"actionId"`
	Value    string `json:"value,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code      apperrors.ErrorCode `json:"code"`
	Message   string              `json:"message"`
	RequestID string              `json:"requestId,omitempty"`
}

// Config configures the webhook routes.
type Config struct {
	// Secret enables HS256 bearer authentication when non-empty.
	Secret string
	// RateLimiter throttles callers; nil disables throttling.
	RateLimiter *middleware.RateLimiter
}

// Handler serves the webhook endpoints.
type Handler struct {
	conversation Conversation
	parser       intent.Parser
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewHandler creates a webhook handler.
func NewHandler(conversation Conversation, parser intent.Parser, metrics *observability.Metrics, logger *slog.Logger) *Handler {
	if metrics == nil {
		metrics = observability.NoopMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		conversation: conversation,
		parser:       parser,
		metrics:      metrics,
		logger:       logger,
	}
}

// Register mounts the routes on e and installs the error handler.
func (h *Handler) Register(e *echo.Echo, cfg Config) {
	e.HTTPErrorHandler = ErrorHandler
	e.GET("/healthz", h.Health)

	api := e.Group("/api/v1", middleware.JWTAuth(cfg.Secret))
	if cfg.RateLimiter != nil {
		api.Use(middleware.RateLimit(cfg.RateLimiter, nil))
	}
	api.POST("/messages", h.PostMessage)
	api.POST("/actions", h.PostAction)
}

// Health reports liveness.
// GET /healthz
func (*Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// PostMessage parses a chat message and advances the conversation.
// POST /api/v1/messages
func (h *Handler) PostMessage(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.InvalidArgument("malformed request body")
	}
	req.Text = strings.TrimSpace(req.Text)
	if err := requireCaller(req.UserID, req.Platform); err != nil {
		return err
	}
	if req.Text == "" {
		return apperrors.InvalidArgument("text is required")
	}
	if len(req.Text) > maxTextLength {
		return apperrors.InvalidArgument("text is too long")
	}

	return h.serve(c, "message", req.UserID, req.Platform, func(ctx context.Context) (*worklog.Reply, error) {
		parsed, err := h.parser.Parse(ctx, req.Text)
		if err != nil {
			return nil, apperrors.ServiceUnavailable("could not understand the message", err)
		}
		return h.conversation.HandleIntent(ctx, worklog.Intent{
			UserID:      req.UserID,
			Platform:    req.Platform,
			Hours:       parsed.Hours,
			TicketKey:   parsed.TicketKey,
			Description: parsed.Description,
			DateText:    parsed.DateText,
		})
	})
}

// PostAction applies a button click.
// POST /api/v1/actions
func (h *Handler) PostAction(c echo.Context) error {
	var req ActionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.InvalidArgument("malformed request body")
	}
	if err := requireCaller(req.UserID, req.Platform); err != nil {
		return err
	}
	if req.ActionID == "" {
		return apperrors.InvalidArgument("actionId is required")
	}

	return h.serve(c, "action", req.UserID, req.Platform, func(ctx context.Context) (*worklog.Reply, error) {
		return h.conversation.HandleAction(ctx, worklog.ActionRequest{
			UserID:   req.UserID,
			Platform: req.Platform,
			ActionID: req.ActionID,
			Value:    req.Value,
		})
	})
}

// serve binds a request context, runs fn and records the outcome.
func (h *Handler) serve(c echo.Context, operation, userID, platform string, fn func(context.Context) (*worklog.Reply, error)) error {
	reqCtx := observability.NewRequestContext(h.logger, operation, userID, platform)
	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)
	c.Response().Header().Set(HeaderRequestID, reqCtx.RequestID)

	reply, err := fn(ctx)

	status := http.StatusOK
	if err != nil {
		status = statusOf(err)
		reqCtx.Error("webhook request failed", err,
			slog.String(observability.LogFieldErrorCode, string(apperrors.GetCodeFromError(err, apperrors.ErrCodeInternal))))
	} else {
		reqCtx.Info("webhook request handled",
			slog.String("reply_kind", string(reply.Kind)),
			slog.String(observability.LogFieldSessionID, reply.SessionID))
	}
	h.metrics.ObserveRequest(ctx, operation, status, time.Since(reqCtx.StartTime))

	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reply)
}

func requireCaller(userID, platform string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.InvalidArgument("userId is required")
	}
	if strings.TrimSpace(platform) == "" {
		return apperrors.InvalidArgument("platform is required")
	}
	return nil
}

func statusOf(err error) int {
	if serviceErr, ok := asServiceError(err); ok {
		return serviceErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}
