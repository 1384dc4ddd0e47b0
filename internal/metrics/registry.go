package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds all domain-specific metrics for the investigation
// engine. Record methods are nil-safe so components can run without
// metrics in tests.
type Registry struct {
	meter metric.Meter

	// Validation metrics
	ValidationDuration metric.Float64Histogram
	ValidationCounter  metric.Int64Counter
	ValidationCacheHit metric.Int64Counter

	// Execution metrics
	AgentExecutionDuration metric.Float64Histogram
	AgentSuccessCounter    metric.Int64Counter
	AgentFailureCounter    metric.Int64Counter
	BreakerTripCounter     metric.Int64Counter
	ActiveInvestigations   metric.Int64ObservableGauge

	// Lifecycle metrics
	InvestigationDuration metric.Float64Histogram
	InvestigationCounter  metric.Int64Counter
	ConsolidationDuration metric.Float64Histogram

	// API metrics
	APIRequestDuration metric.Float64Histogram
	APIRequestCounter  metric.Int64Counter

	mu     sync.RWMutex
	active int64
}

// NewRegistry creates a metrics registry on the named meter
func NewRegistry(meterName string) (*Registry, error) {
	r := &Registry{meter: otel.Meter(meterName)}

	if err := r.initValidationMetrics(); err != nil {
		return nil, err
	}
	if err := r.initExecutionMetrics(); err != nil {
		return nil, err
	}
	if err := r.initLifecycleMetrics(); err != nil {
		return nil, err
	}
	if err := r.initAPIMetrics(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) initValidationMetrics() error {
	var err error

	r.ValidationDuration, err = r.meter.Float64Histogram(
		"inveng.validation.duration",
		metric.WithDescription("Duration of query validation in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50),
	)
	if err != nil {
		return err
	}

	r.ValidationCounter, err = r.meter.Int64Counter(
		"inveng.validation.total",
		metric.WithDescription("Total validated queries"),
	)
	if err != nil {
		return err
	}

	r.ValidationCacheHit, err = r.meter.Int64Counter(
		"inveng.validation.cache_hits",
		metric.WithDescription("Validation verdicts served from cache"),
	)
	return err
}

func (r *Registry) initExecutionMetrics() error {
	var err error

	r.AgentExecutionDuration, err = r.meter.Float64Histogram(
		"inveng.agent.execution_duration",
		metric.WithDescription("Duration of one agent invocation in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 50, 100, 500, 1000, 5000, 10000),
	)
	if err != nil {
		return err
	}

	r.AgentSuccessCounter, err = r.meter.Int64Counter(
		"inveng.agent.successes",
		metric.WithDescription("Successful agent invocations"),
	)
	if err != nil {
		return err
	}

	r.AgentFailureCounter, err = r.meter.Int64Counter(
		"inveng.agent.failures",
		metric.WithDescription("Failed agent invocations, including fail-soft results"),
	)
	if err != nil {
		return err
	}

	r.BreakerTripCounter, err = r.meter.Int64Counter(
		"inveng.breaker.trips",
		metric.WithDescription("Circuit breaker transitions to open"),
	)
	if err != nil {
		return err
	}

	r.ActiveInvestigations, err = r.meter.Int64ObservableGauge(
		"inveng.investigations.active",
		metric.WithDescription("Investigations currently in a non-terminal phase"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.active)
			return nil
		}),
	)
	return err
}

func (r *Registry) initLifecycleMetrics() error {
	var err error

	r.InvestigationDuration, err = r.meter.Float64Histogram(
		"inveng.investigation.duration",
		metric.WithDescription("End-to-end investigation duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(10, 50, 100, 500, 1000, 5000, 10000, 60000, 300000),
	)
	if err != nil {
		return err
	}

	r.InvestigationCounter, err = r.meter.Int64Counter(
		"inveng.investigation.total",
		metric.WithDescription("Investigations by terminal phase"),
	)
	if err != nil {
		return err
	}

	r.ConsolidationDuration, err = r.meter.Float64Histogram(
		"inveng.consolidation.duration",
		metric.WithDescription("Duration of result consolidation in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 50, 100),
	)
	return err
}

func (r *Registry) initAPIMetrics() error {
	var err error

	r.APIRequestDuration, err = r.meter.Float64Histogram(
		"inveng.api.request_duration",
		metric.WithDescription("API request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000),
	)
	if err != nil {
		return err
	}

	r.APIRequestCounter, err = r.meter.Int64Counter(
		"inveng.api.requests",
		metric.WithDescription("Total API requests"),
	)
	return err
}

// RecordValidation records one validation pass
func (r *Registry) RecordValidation(ctx context.Context, duration time.Duration, valid bool, cacheHit bool) {
	if r == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.Bool("valid", valid),
	}
	r.ValidationDuration.Record(ctx, millis(duration), metric.WithAttributes(attrs...))
	r.ValidationCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	if cacheHit {
		r.ValidationCacheHit.Add(ctx, 1)
	}
}

// RecordAgentExecution records one terminal agent invocation
func (r *Registry) RecordAgentExecution(ctx context.Context, duration time.Duration, domain string, success bool) {
	if r == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("agent_domain", domain),
		attribute.Bool("success", success),
	}
	r.AgentExecutionDuration.Record(ctx, millis(duration), metric.WithAttributes(attrs...))
	if success {
		r.AgentSuccessCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	} else {
		r.AgentFailureCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordBreakerTrip records a circuit breaker opening
func (r *Registry) RecordBreakerTrip(ctx context.Context, domain string) {
	if r == nil {
		return
	}
	r.BreakerTripCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent_domain", domain),
	))
}

// RecordInvestigation records one finished investigation
func (r *Registry) RecordInvestigation(ctx context.Context, duration time.Duration, phase string) {
	if r == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("terminal_phase", phase),
	}
	r.InvestigationDuration.Record(ctx, millis(duration), metric.WithAttributes(attrs...))
	r.InvestigationCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordConsolidation records one consolidation pass
func (r *Registry) RecordConsolidation(ctx context.Context, duration time.Duration, degraded bool) {
	if r == nil {
		return
	}
	r.ConsolidationDuration.Record(ctx, millis(duration), metric.WithAttributes(
		attribute.Bool("degraded", degraded),
	))
}

// RecordAPIRequest records one HTTP request
func (r *Registry) RecordAPIRequest(ctx context.Context, duration time.Duration, method, path string, statusCode int) {
	if r == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status_code", statusCode),
	}
	r.APIRequestDuration.Record(ctx, millis(duration), metric.WithAttributes(attrs...))
	r.APIRequestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// InvestigationStarted bumps the active investigation gauge
func (r *Registry) InvestigationStarted() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.active++
	r.mu.Unlock()
}

// InvestigationFinished decrements the active investigation gauge
func (r *Registry) InvestigationFinished() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.active--
	r.mu.Unlock()
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
