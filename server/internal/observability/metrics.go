package observability

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is the instrumentation scope for chronolog metrics.
const MeterName = "github.com/hrygo/chronolog"

// Metrics records conversation and date resolution counters.
type Metrics struct {
	sessionsCreated metric.Int64Counter
	transitions     metric.Int64Counter
	finalizations   metric.Int64Counter
	expiredLookups  metric.Int64Counter
	dateFailures    metric.Int64Counter
	sessionsSwept   metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.sessionsCreated, err = meter.Int64Counter(
		"chronolog_sessions_created_total",
		metric.WithDescription("Conversation sessions created"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, errors.Wrap(err, "creating sessions counter")
	}
	if m.transitions, err = meter.Int64Counter(
		"chronolog_session_transitions_total",
		metric.WithDescription("In-place session state transitions"),
		metric.WithUnit("{transition}"),
	); err != nil {
		return nil, errors.Wrap(err, "creating transitions counter")
	}
	if m.finalizations, err = meter.Int64Counter(
		"chronolog_finalizations_total",
		metric.WithDescription("Terminal session outcomes"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, errors.Wrap(err, "creating finalizations counter")
	}
	if m.expiredLookups, err = meter.Int64Counter(
		"chronolog_session_expired_total",
		metric.WithDescription("Actions that referenced an absent or expired session"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		return nil, errors.Wrap(err, "creating expired lookups counter")
	}
	if m.dateFailures, err = meter.Int64Counter(
		"chronolog_date_resolution_failures_total",
		metric.WithDescription("Date phrases that could not be used"),
		metric.WithUnit("{phrase}"),
	); err != nil {
		return nil, errors.Wrap(err, "creating date failures counter")
	}
	if m.sessionsSwept, err = meter.Int64Counter(
		"chronolog_sessions_swept_total",
		metric.WithDescription("Expired session rows removed by the sweeper"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, errors.Wrap(err, "creating swept counter")
	}
	if m.requestDuration, err = meter.Float64Histogram(
		"chronolog_webhook_duration_seconds",
		metric.WithDescription("Webhook handling latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, errors.Wrap(err, "creating duration histogram")
	}
	return m, nil
}

// NoopMetrics returns metrics that record nothing.
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(MeterName))
	return m
}

func (m *Metrics) SessionCreated(ctx context.Context, state string) {
	m.sessionsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}

func (m *Metrics) Transition(ctx context.Context, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// Finalized records a terminal outcome: "logged", "failed" or "cancelled".
func (m *Metrics) Finalized(ctx context.Context, outcome string) {
	m.finalizations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) SessionExpired(ctx context.Context) {
	m.expiredLookups.Add(ctx, 1)
}

func (m *Metrics) DateResolutionFailed(ctx context.Context, reason string) {
	m.dateFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) SessionsSwept(ctx context.Context, n int64) {
	m.sessionsSwept.Add(ctx, n)
}

func (m *Metrics) ObserveRequest(ctx context.Context, operation string, status int, d time.Duration) {
	m.requestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Int("status", status),
	))
}
