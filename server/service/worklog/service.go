// Package worklog drives the multi-step conversation that turns a parsed
// work log request into a ticket tracker entry.
//
// Every step round-trips through the session store; nothing is cached in
// process. A session moves through:
//
//	(none) -> AWAITING_TICKET_SELECTION -> AWAITING_CONFIRMATION -> (finalized)
//	(none) -> AWAITING_CONFIRMATION -> (finalized | cancelled)
//	(none) -> AWAITING_QUICK_TIME -> (finalized)
//
// Finalizing writes to the tracker once and then deletes the session whatever
// the outcome, so a failed write requires the user to start over.
package worklog

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hrygo/chronolog/plugin/ai/aitime"
	apperrors "github.com/hrygo/chronolog/server/internal/errors"
	"github.com/hrygo/chronolog/server/internal/observability"
	"github.com/hrygo/chronolog/store"
)

const (
	// MaxHours is the largest duration accepted for one entry.
	MaxHours = 24.0
)

// DefaultQuickDurations are offered when a quick log needs a duration.
var DefaultQuickDurations = []float64{0.5, 1, 2, 4, 8}

var ticketKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]+-\d+$`)

// SessionStore is the subset of the store the conversation needs.
type SessionStore interface {
	CreateSession(ctx context.Context, create *store.CreateSession) (*store.Session, error)
	GetSession(ctx context.Context, id string) (*store.Session, error)
	GetLatestSession(ctx context.Context, find *store.FindSession) (*store.Session, error)
	UpdateSession(ctx context.Context, update *store.UpdateSession) (bool, error)
	DeleteSession(ctx context.Context, id string) (bool, error)
	DeleteSessions(ctx context.Context, delete *store.DeleteSession) (int64, error)
}

// WorkLogRequest is one entry written to the tracker.
type WorkLogRequest struct {
	UserID      string
	Platform    string
	TicketKey   string
	Hours       float64
	Description string
	Date        time.Time
}

// TicketWriter records work against a ticket.
type TicketWriter interface {
	LogWork(ctx context.Context, req WorkLogRequest) error
}

// Config tunes the conversation.
type Config struct {
	// RequireConfirmation asks before logging even when ticket, hours and
	// date are all known.
	RequireConfirmation bool
	// QuickDurations are the hour choices offered for a quick log.
	QuickDurations []float64
}

// Intent is a parsed inbound message.
type Intent struct {
	UserID      string
	Platform    string
	Hours       *float64
	TicketKey   string
	Description string
	DateText    string
}

// ActionRequest is a button click.
type ActionRequest struct {
	UserID   string
	Platform string
	ActionID string
	Value    string
}

// QuickLogRequest starts a quick log against a known ticket.
type QuickLogRequest struct {
	UserID      string
	Platform    string
	TicketKey   string
	Description string
	DateText    string
}

// Service is the conversation orchestrator.
type Service struct {
	store    SessionStore
	writer   TicketWriter
	resolver *aitime.Resolver
	metrics  *observability.Metrics
	config   Config
	now      func() time.Time
}

// NewService creates a conversation orchestrator.
func NewService(sessionStore SessionStore, writer TicketWriter, resolver *aitime.Resolver, config Config) *Service {
	if len(config.QuickDurations) == 0 {
		config.QuickDurations = DefaultQuickDurations
	}
	if resolver == nil {
		resolver = aitime.NewResolver(nil)
	}
	return &Service{
		store:    sessionStore,
		writer:   writer,
		resolver: resolver,
		metrics:  observability.NoopMetrics(),
		config:   config,
		now:      time.Now,
	}
}

// WithMetrics sets the metrics sink.
func (s *Service) WithMetrics(metrics *observability.Metrics) *Service {
	if metrics != nil {
		s.metrics = metrics
	}
	return s
}

// WithClock replaces the clock used to resolve dates.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// HandleIntent starts a conversation from a parsed message.
func (s *Service) HandleIntent(ctx context.Context, intent Intent) (*Reply, error) {
	if intent.Hours != nil {
		if reply := validateHours(*intent.Hours); reply != nil {
			return reply, nil
		}
	}

	ticketKey := ""
	if intent.TicketKey != "" {
		var reply *Reply
		if ticketKey, reply = normalizeTicketKey(intent.TicketKey); reply != nil {
			return reply, nil
		}
	}

	resolved, reply := s.resolveDate(ctx, intent.DateText)
	if reply != nil {
		return reply, nil
	}

	switch {
	case intent.Hours == nil && ticketKey == "":
		return invalidReply("How many hours should I log, and against which ticket?"), nil

	case intent.Hours == nil:
		// A bare ticket key answers an open ticket question if there is one.
		state := store.SessionStateAwaitingTicketSelection
		pending, err := s.store.GetLatestSession(ctx, &store.FindSession{
			UserID:   &intent.UserID,
			Platform: &intent.Platform,
			State:    &state,
		})
		if err != nil {
			return nil, err
		}
		if pending != nil {
			return s.SelectTicket(ctx, intent.UserID, intent.Platform, pending.ID, ticketKey)
		}
		return s.StartQuickLog(ctx, QuickLogRequest{
			UserID:      intent.UserID,
			Platform:    intent.Platform,
			TicketKey:   ticketKey,
			Description: intent.Description,
			DateText:    intent.DateText,
		})

	case ticketKey == "":
		payload := &TicketPendingPayload{
			Hours:        *intent.Hours,
			Description:  intent.Description,
			DateText:     intent.DateText,
			ResolvedDate: resolved,
		}
		session, err := s.createSession(ctx, intent.UserID, intent.Platform, store.SessionStateAwaitingTicketSelection, payload)
		if err != nil {
			return nil, err
		}
		return &Reply{
			Kind:      ReplyAskTicket,
			Text:      fmt.Sprintf("Which ticket should I log %s to%s?", formatHours(*intent.Hours), s.dateSuffix(resolved)),
			SessionID: session.ID,
			Actions: []Action{
				{ID: EncodeActionID(ActionSelectTicket, session.ID), Label: "Ticket key"},
				{ID: EncodeActionID(ActionCancel, session.ID), Label: "Cancel"},
			},
		}, nil

	case !s.config.RequireConfirmation:
		return s.logWork(ctx, WorkLogRequest{
			UserID:      intent.UserID,
			Platform:    intent.Platform,
			TicketKey:   ticketKey,
			Hours:       *intent.Hours,
			Description: intent.Description,
			Date:        s.dateOf(resolved),
		}), nil

	default:
		payload := &ConfirmationPendingPayload{
			TicketKey:    ticketKey,
			Hours:        *intent.Hours,
			Description:  intent.Description,
			DateText:     intent.DateText,
			ResolvedDate: resolved,
		}
		session, err := s.createSession(ctx, intent.UserID, intent.Platform, store.SessionStateAwaitingConfirmation, payload)
		if err != nil {
			return nil, err
		}
		return s.confirmationReply(session.ID, payload), nil
	}
}

// HandleAction routes a button click to its transition.
func (s *Service) HandleAction(ctx context.Context, req ActionRequest) (*Reply, error) {
	kind, sessionID, err := ParseActionID(req.ActionID)
	if err != nil {
		return nil, apperrors.InvalidArgument(err.Error())
	}

	switch kind {
	case ActionSelectTicket:
		return s.SelectTicket(ctx, req.UserID, req.Platform, sessionID, req.Value)
	case ActionConfirm:
		return s.Confirm(ctx, req.UserID, req.Platform, sessionID)
	case ActionCancel:
		return s.Cancel(ctx, req.UserID, req.Platform, sessionID)
	case ActionQuickTime:
		hours, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(req.Value), "h")), 64)
		if err != nil {
			return invalidReply(fmt.Sprintf("%q is not a number of hours", req.Value)), nil
		}
		return s.SelectQuickTime(ctx, req.UserID, req.Platform, sessionID, hours)
	default:
		return s.StartQuickLog(ctx, QuickLogRequest{
			UserID:    req.UserID,
			Platform:  req.Platform,
			TicketKey: req.Value,
		})
	}
}

// SelectTicket merges the chosen ticket into a ticket selection session and
// moves the same session on to confirmation.
func (s *Service) SelectTicket(ctx context.Context, userID, platform, sessionID, ticketKey string) (*Reply, error) {
	session, reply, err := s.loadSession(ctx, userID, platform, sessionID, store.SessionStateAwaitingTicketSelection)
	if session == nil {
		return reply, err
	}

	key, reply := normalizeTicketKey(ticketKey)
	if reply != nil {
		return reply, nil
	}

	decoded, err := decodePayload(session)
	if err != nil {
		return nil, err
	}
	pending := decoded.(*TicketPendingPayload)

	payload := &ConfirmationPendingPayload{
		TicketKey:    key,
		Hours:        pending.Hours,
		Description:  pending.Description,
		DateText:     pending.DateText,
		ResolvedDate: pending.ResolvedDate,
	}
	data, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.UpdateSession(ctx, &store.UpdateSession{
		ID:      session.ID,
		State:   store.SessionStateAwaitingConfirmation,
		Payload: data,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.SessionExpired(ctx)
		return expiredReply(), nil
	}

	s.metrics.Transition(ctx, session.State.String(), store.SessionStateAwaitingConfirmation.String())
	return s.confirmationReply(session.ID, payload), nil
}

// Confirm finalizes a confirmation session.
func (s *Service) Confirm(ctx context.Context, userID, platform, sessionID string) (*Reply, error) {
	session, reply, err := s.loadSession(ctx, userID, platform, sessionID, store.SessionStateAwaitingConfirmation)
	if session == nil {
		return reply, err
	}

	decoded, err := decodePayload(session)
	if err != nil {
		return nil, err
	}
	payload := decoded.(*ConfirmationPendingPayload)

	return s.finalize(ctx, session, WorkLogRequest{
		UserID:      session.UserID,
		Platform:    session.Platform,
		TicketKey:   payload.TicketKey,
		Hours:       payload.Hours,
		Description: payload.Description,
		Date:        s.dateOf(payload.ResolvedDate),
	}), nil
}

// Cancel discards a session in any state.
func (s *Service) Cancel(ctx context.Context, userID, platform, sessionID string) (*Reply, error) {
	session, reply, err := s.loadSession(ctx, userID, platform, sessionID)
	if session == nil {
		return reply, err
	}

	deleted, err := s.store.DeleteSession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		s.metrics.SessionExpired(ctx)
		return expiredReply(), nil
	}

	s.metrics.Finalized(ctx, "cancelled")
	return &Reply{Kind: ReplyCancelled, Text: "Cancelled, nothing was logged."}, nil
}

// SelectQuickTime finalizes a quick log with the chosen duration.
func (s *Service) SelectQuickTime(ctx context.Context, userID, platform, sessionID string, hours float64) (*Reply, error) {
	session, reply, err := s.loadSession(ctx, userID, platform, sessionID, store.SessionStateAwaitingQuickTime)
	if session == nil {
		return reply, err
	}
	if reply := validateHours(hours); reply != nil {
		return reply, nil
	}

	decoded, err := decodePayload(session)
	if err != nil {
		return nil, err
	}
	payload := decoded.(*QuickTimePayload)

	return s.finalize(ctx, session, WorkLogRequest{
		UserID:      session.UserID,
		Platform:    session.Platform,
		TicketKey:   payload.TicketKey,
		Hours:       hours,
		Description: payload.Description,
		Date:        s.dateOf(payload.ResolvedDate),
	}), nil
}

// StartQuickLog opens a session asking how long was spent on a ticket.
func (s *Service) StartQuickLog(ctx context.Context, req QuickLogRequest) (*Reply, error) {
	key, reply := normalizeTicketKey(req.TicketKey)
	if reply != nil {
		return reply, nil
	}
	resolved, reply := s.resolveDate(ctx, req.DateText)
	if reply != nil {
		return reply, nil
	}

	payload := &QuickTimePayload{
		TicketKey:    key,
		Description:  req.Description,
		DateText:     req.DateText,
		ResolvedDate: resolved,
	}
	session, err := s.createSession(ctx, req.UserID, req.Platform, store.SessionStateAwaitingQuickTime, payload)
	if err != nil {
		return nil, err
	}

	actions := make([]Action, 0, len(s.config.QuickDurations)+1)
	for _, hours := range s.config.QuickDurations {
		actions = append(actions, Action{
			ID:    EncodeActionID(ActionQuickTime, session.ID),
			Label: formatHours(hours),
			Value: strconv.FormatFloat(hours, 'f', -1, 64),
		})
	}
	actions = append(actions, Action{ID: EncodeActionID(ActionCancel, session.ID), Label: "Cancel"})

	return &Reply{
		Kind:      ReplyAskQuickTime,
		Text:      fmt.Sprintf("How long did you spend on %s%s?", key, s.dateSuffix(resolved)),
		SessionID: session.ID,
		Actions:   actions,
	}, nil
}

// loadSession returns the live session owned by userID on platform. When the
// session is absent, expired, owned by someone else or in a state not listed
// in states, it returns a nil session and the reply to show instead.
func (s *Service) loadSession(ctx context.Context, userID, platform, sessionID string, states ...store.SessionState) (*store.Session, *Reply, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session == nil || session.UserID != userID || session.Platform != platform {
		s.metrics.SessionExpired(ctx)
		return nil, expiredReply(), nil
	}

	if len(states) == 0 {
		return session, nil, nil
	}
	for _, state := range states {
		if session.State == state {
			return session, nil, nil
		}
	}
	return nil, invalidReply("That button no longer applies to this conversation."), nil
}

// createSession replaces any session of the same kind for the user.
func (s *Service) createSession(ctx context.Context, userID, platform string, state store.SessionState, payload any) (*store.Session, error) {
	data, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.DeleteSessions(ctx, &store.DeleteSession{
		UserID:   &userID,
		Platform: &platform,
		State:    &state,
	}); err != nil {
		return nil, err
	}

	session, err := s.store.CreateSession(ctx, &store.CreateSession{
		UserID:   userID,
		Platform: platform,
		State:    state,
		Payload:  data,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SessionCreated(ctx, state.String())
	observability.LoggerFrom(ctx).Info("session created",
		slog.String(observability.LogFieldSessionID, session.ID),
		slog.String("state", state.String()))
	return session, nil
}

// finalize writes once and then deletes the session regardless of outcome.
func (s *Service) finalize(ctx context.Context, session *store.Session, req WorkLogRequest) *Reply {
	reply := s.logWork(ctx, req)

	if _, err := s.store.DeleteSession(ctx, session.ID); err != nil {
		observability.LoggerFrom(ctx).Error("failed to delete finalized session",
			slog.String(observability.LogFieldSessionID, session.ID),
			slog.String("error", err.Error()))
	}
	return reply
}

func (s *Service) logWork(ctx context.Context, req WorkLogRequest) *Reply {
	display := aitime.FormatDisplay(req.Date, s.now().In(s.resolver.Location()))

	if err := s.writer.LogWork(ctx, req); err != nil {
		s.metrics.Finalized(ctx, "failed")
		observability.LoggerFrom(ctx).Error("failed to log work",
			slog.String("ticket", req.TicketKey),
			slog.String(observability.LogFieldErrorCode, string(apperrors.ErrCodeWriteFailed)),
			slog.String("error", err.Error()))
		return &Reply{Kind: ReplyFailed, Text: fmt.Sprintf("Failed to log work: %s", err.Error())}
	}

	s.metrics.Finalized(ctx, "logged")
	return &Reply{
		Kind: ReplyLogged,
		Text: fmt.Sprintf("Logged %s to %s for %s.", formatHours(req.Hours), req.TicketKey, display),
	}
}

// resolveDate returns nil when text is empty, meaning "today at finalize".
func (s *Service) resolveDate(ctx context.Context, text string) (*aitime.ResolvedDate, *Reply) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	resolved := s.resolver.Resolve(text, s.now())
	if !resolved.IsValid {
		reason := "unparseable"
		if resolved.IsFuture() {
			reason = "future"
		}
		s.metrics.DateResolutionFailed(ctx, reason)
		return nil, invalidReply(resolved.Error)
	}
	return &resolved, nil
}

func (s *Service) dateOf(resolved *aitime.ResolvedDate) time.Time {
	if resolved == nil {
		return s.resolver.Today(s.now()).Date
	}
	return resolved.Date
}

func (s *Service) dateSuffix(resolved *aitime.ResolvedDate) string {
	if resolved == nil {
		return ""
	}
	return " for " + resolved.DisplayText
}

func (s *Service) confirmationReply(sessionID string, payload *ConfirmationPendingPayload) *Reply {
	date := "today"
	if payload.ResolvedDate != nil {
		date = payload.ResolvedDate.DisplayText
	}

	text := fmt.Sprintf("Log %s to %s for %s?", formatHours(payload.Hours), payload.TicketKey, date)
	if payload.Description != "" {
		text = fmt.Sprintf("Log %s to %s for %s (%s)?", formatHours(payload.Hours), payload.TicketKey, date, payload.Description)
	}
	return &Reply{
		Kind:      ReplyAskConfirmation,
		Text:      text,
		SessionID: sessionID,
		Actions: []Action{
			{ID: EncodeActionID(ActionConfirm, sessionID), Label: "Confirm"},
			{ID: EncodeActionID(ActionCancel, sessionID), Label: "Cancel"},
		},
	}
}

func normalizeTicketKey(key string) (string, *Reply) {
	normalized := strings.ToUpper(strings.TrimSpace(key))
	if !ticketKeyPattern.MatchString(normalized) {
		return "", invalidReply(fmt.Sprintf("%q is not a ticket key like ABC-123", key))
	}
	return normalized, nil
}

func validateHours(hours float64) *Reply {
	if hours <= 0 || hours > MaxHours {
		return invalidReply(fmt.Sprintf("hours must be more than 0 and at most %g", MaxHours))
	}
	return nil
}

func formatHours(hours float64) string {
	return strconv.FormatFloat(hours, 'f', -1, 64) + "h"
}
