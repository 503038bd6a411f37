// Package server assembles the webhook service from a profile and a store.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/hrygo/chronolog/internal/profile"
	"github.com/hrygo/chronolog/internal/vault"
	"github.com/hrygo/chronolog/plugin/ai/aitime"
	"github.com/hrygo/chronolog/plugin/ai/cache"
	"github.com/hrygo/chronolog/plugin/ai/intent"
	"github.com/hrygo/chronolog/plugin/tracker"
	"github.com/hrygo/chronolog/server/internal/observability"
	"github.com/hrygo/chronolog/server/middleware"
	"github.com/hrygo/chronolog/server/router/webhook"
	"github.com/hrygo/chronolog/server/runner/sweeper"
	"github.com/hrygo/chronolog/server/service/worklog"
	"github.com/hrygo/chronolog/store"
)

const (
	// limiterIdleTTL is how long an idle caller keeps its rate limit state.
	limiterIdleTTL = 30 * time.Minute

	intentCacheSize = 1000
	intentCacheTTL  = 10 * time.Minute
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer    *echo.Echo
	limiter       *middleware.RateLimiter
	sweeper       *sweeper.Sweeper
	meterProvider *sdkmetric.MeterProvider
	intentCache   *cache.LRU[intent.Result]
	stopPruning   chan struct{}
}

// NewServer wires the conversation service and its collaborators.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Profile:     profile,
		Store:       store,
		limiter:     middleware.NewRateLimiter(middleware.DefaultRate, middleware.DefaultBurst),
		stopPruning: make(chan struct{}),
	}

	metrics := observability.NoopMetrics()
	if profile.OTELEnabled {
		provider, err := observability.NewMeterProvider(ctx, observability.ExporterConfig{
			Endpoint: profile.OTELEndpoint,
			Insecure: profile.OTELInsecure,
			Version:  profile.Version,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to start metrics export")
		}
		s.meterProvider = provider
		if metrics, err = observability.NewMetrics(provider.Meter("chronolog")); err != nil {
			return nil, errors.Wrap(err, "failed to create metrics")
		}
	}

	credentials, err := vault.New(profile.VaultSecret, store)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open credential vault")
	}
	if profile.TrackerBaseURL == "" {
		slog.Warn("tracker base URL is not configured, work logs will fail")
	}

	resolver := aitime.NewResolver(profile.Location())
	parser := intent.NewParser(intent.LLMConfig{
		APIKey:  profile.LLMAPIKey,
		BaseURL: profile.LLMBaseURL,
		Model:   profile.LLMModel,
	}, intent.NewRuleParser(resolver))
	if profile.IsLLMEnabled() {
		s.intentCache = cache.New[intent.Result](intentCacheSize, intentCacheTTL)
		parser = intent.NewCachingParser(parser, s.intentCache)
	}

	service := worklog.NewService(store, &trackerWriter{
		client: tracker.NewClient(profile.TrackerBaseURL, credentials),
	}, resolver, worklog.Config{
		RequireConfirmation: profile.RequireConfirmation,
	}).WithMetrics(metrics)

	s.echoServer = echo.New()
	s.echoServer.Debug = profile.IsDev()
	s.echoServer.HideBanner = true
	s.echoServer.HidePort = true
	s.echoServer.Use(echomiddleware.Recover())

	webhook.NewHandler(service, parser, metrics, slog.Default()).Register(s.echoServer, webhook.Config{
		Secret:      profile.WebhookSecret,
		RateLimiter: s.limiter,
	})

	if profile.SweepInterval > 0 {
		s.sweeper = sweeper.New(store, profile.SweepInterval, metrics)
	}

	slog.Info("server initialized",
		"driver", profile.Driver,
		"llm", profile.IsLLMEnabled(),
		"webhook_auth", profile.WebhookSecret != "",
		"confirmation", profile.RequireConfirmation)
	return s, nil
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.sweeper != nil {
		s.sweeper.Start(ctx)
	}
	go s.prune()

	address := net.JoinHostPort(s.Profile.Addr, strconv.Itoa(s.Profile.Port))
	slog.Info("chronolog listening", "address", address, "mode", s.Profile.Mode, "version", s.Profile.Version)

	if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start server")
	}
	return nil
}

// Shutdown stops the listener, the sweeper and metric export.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(s.echoServer.Shutdown(ctx))
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	select {
	case <-s.stopPruning:
	default:
		close(s.stopPruning)
	}
	if s.meterProvider != nil {
		record(s.meterProvider.Shutdown(ctx))
	}

	slog.Info("chronolog stopped")
	return firstErr
}

// Handler exposes the HTTP handler for in-process use.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// prune drops idle rate limiters and expired intent results.
func (s *Server) prune() {
	ticker := time.NewTicker(limiterIdleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopPruning:
			return
		case <-ticker.C:
			if n := s.limiter.Prune(limiterIdleTTL); n > 0 {
				slog.Debug("pruned idle rate limiters", "count", n)
			}
			if s.intentCache != nil {
				s.intentCache.PurgeExpired()
			}
		}
	}
}

// trackerWriter adapts the tracker client to the conversation service.
type trackerWriter struct {
	client *tracker.Client
}

func (w *trackerWriter) LogWork(ctx context.Context, req worklog.WorkLogRequest) error {
	if err := w.client.LogWork(ctx, tracker.Entry{
		UserID:      req.UserID,
		Platform:    req.Platform,
		IssueKey:    req.TicketKey,
		Hours:       req.Hours,
		Description: req.Description,
		Started:     req.Date,
	}); err != nil {
		return fmt.Errorf("%s: %w", req.TicketKey, err)
	}
	return nil
}
