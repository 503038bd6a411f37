// Package sweeper periodically deletes expired conversation sessions.
package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hrygo/chronolog/server/internal/observability"
)

// DefaultInterval is the default interval between sweeps.
const DefaultInterval = 10 * time.Minute

// SessionPurger deletes every session whose deadline has passed.
type SessionPurger interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// Sweeper removes expired sessions on a ticker. Expired sessions are already
// invisible to readers, so a missed sweep only costs storage.
type Sweeper struct {
	store    SessionPurger
	interval time.Duration
	metrics  *observability.Metrics

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a sweeper. A non-positive interval selects DefaultInterval.
func New(store SessionPurger, interval time.Duration, metrics *observability.Metrics) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if metrics == nil {
		metrics = observability.NoopMetrics()
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		metrics:  metrics,
	}
}

// Start begins sweeping in a goroutine. Calling Start twice is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(ctx, s.stopChan, s.done)

	slog.Info("session sweeper started", "interval", s.interval)
}

// Stop halts the sweeper and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.running = false
	s.mu.Unlock()

	<-done
	slog.Info("session sweeper stopped")
}

// IsRunning reports whether the sweeper loop is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunOnce sweeps immediately and returns the number of deleted sessions.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	deleted, err := s.store.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, err
	}
	s.metrics.SessionsSwept(ctx, deleted)
	return deleted, nil
}

func (s *Sweeper) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		case <-stop:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	deleted, err := s.RunOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("session sweep failed", "error", err)
		}
		return
	}
	if deleted > 0 {
		slog.Info("session sweep completed", "deleted", deleted)
	}
}
