package observability

import (
	"context"
	"fmt"
	"time"

	"skrut/internal/ai"
	"skrut/internal/evaluation"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom metrics for Skrut
type Metrics struct {
	// Model call metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Evaluation metrics
	EvaluationsTotal   metric.Int64Counter
	EvaluationDuration metric.Float64Histogram
	ReviewerTurns      metric.Int64Histogram
	AuditFailures      metric.Int64Counter
	ResumeTextLength   metric.Int64Histogram
	JobDescUpdates     metric.Int64Counter

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter
}

var (
	_ ai.CallObserver     = (*ObservabilityManager)(nil)
	_ evaluation.Recorder = (*ObservabilityManager)(nil)
)

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.AIProcessingTime, err = meter.Float64Histogram(
		"skrut_ai_processing_duration_seconds",
		metric.WithDescription("Time spent in a single reviewer or auditor model call"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	if m.AIRequestCount, err = meter.Int64Counter(
		"skrut_ai_requests_total",
		metric.WithDescription("Total number of model calls"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI request count metric: %w", err)
	}

	if m.AIErrorCount, err = meter.Int64Counter(
		"skrut_ai_errors_total",
		metric.WithDescription("Total number of failed model calls"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI error count metric: %w", err)
	}

	if m.AITokenUsage, err = meter.Int64Histogram(
		"skrut_ai_token_usage_total",
		metric.WithDescription("Token usage per model call (input, output, total)"),
		metric.WithUnit("tokens"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	if m.EvaluationsTotal, err = meter.Int64Counter(
		"skrut_evaluations_total",
		metric.WithDescription("Total number of evaluation runs by final status"),
	); err != nil {
		return nil, fmt.Errorf("failed to create evaluations metric: %w", err)
	}

	if m.EvaluationDuration, err = meter.Float64Histogram(
		"skrut_evaluation_duration_seconds",
		metric.WithDescription("Wall time of a full evaluation run"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create evaluation duration metric: %w", err)
	}

	if m.ReviewerTurns, err = meter.Int64Histogram(
		"skrut_reviewer_turns",
		metric.WithDescription("Reviewer turns used per evaluation run"),
		metric.WithExplicitBucketBoundaries(1, 2, 3),
	); err != nil {
		return nil, fmt.Errorf("failed to create reviewer turns metric: %w", err)
	}

	if m.AuditFailures, err = meter.Int64Counter(
		"skrut_audit_failures_total",
		metric.WithDescription("Total number of FAIL verdicts returned by the auditor"),
	); err != nil {
		return nil, fmt.Errorf("failed to create audit failures metric: %w", err)
	}

	if m.ResumeTextLength, err = meter.Int64Histogram(
		"skrut_resume_text_bytes",
		metric.WithDescription("Size of extracted resume text"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, fmt.Errorf("failed to create resume size metric: %w", err)
	}

	if m.JobDescUpdates, err = meter.Int64Counter(
		"skrut_job_description_updates_total",
		metric.WithDescription("Total number of job description updates"),
	); err != nil {
		return nil, fmt.Errorf("failed to create job description updates metric: %w", err)
	}

	if m.RateLimitHits, err = meter.Int64Counter(
		"skrut_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return m, nil
}

// GetMetrics returns the metrics instance
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om.metrics == nil {
		return &Metrics{}
	}
	return om.metrics
}

// ObserveModelCall records one reviewer or auditor call
func (om *ObservabilityManager) ObserveModelCall(ctx context.Context, role, provider, model string, duration time.Duration, usage *ai.TokenUsage, err error) {
	m := om.metrics
	if m == nil || !om.aiMetricsEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("role", role),
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.Bool("success", err == nil),
	)

	if om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.AIOperations.TrackDuration {
		m.AIProcessingTime.Record(ctx, duration.Seconds(), attrs)
	}
	m.AIRequestCount.Add(ctx, 1, attrs)
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, attrs)
	}

	if usage == nil {
		return
	}
	if om.fullConfig != nil && !om.fullConfig.Observability.CustomMetrics.AIOperations.TrackTokenUsage {
		return
	}
	for _, tt := range []struct {
		tokenType string
		value     int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	} {
		m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("role", role),
			attribute.String("provider", provider),
			attribute.String("token_type", tt.tokenType),
		))
	}
}

// RecordEvaluation records the outcome of one evaluation run
func (om *ObservabilityManager) RecordEvaluation(ctx context.Context, outcome evaluation.Outcome) {
	m := om.metrics
	if m == nil || !om.businessMetricsEnabled() {
		return
	}

	statusAttrs := []attribute.KeyValue{attribute.String("status", outcome.Status)}
	if outcome.ErrorCode != "" {
		statusAttrs = append(statusAttrs, attribute.String("error_code", outcome.ErrorCode))
	}
	m.EvaluationsTotal.Add(ctx, 1, metric.WithAttributes(statusAttrs...))
	m.EvaluationDuration.Record(ctx, outcome.Duration.Seconds(),
		metric.WithAttributes(attribute.String("status", outcome.Status)))

	custom := om.customMetrics()
	if custom == nil || custom.BusinessMetrics.TrackVerdicts {
		if outcome.ReviewerTurns > 0 {
			m.ReviewerTurns.Record(ctx, int64(outcome.ReviewerTurns),
				metric.WithAttributes(attribute.String("status", outcome.Status)))
		}
		if outcome.FailedAudits > 0 {
			m.AuditFailures.Add(ctx, int64(outcome.FailedAudits))
		}
	}
	if (custom == nil || custom.BusinessMetrics.TrackContentSizes) && outcome.ResumeLength > 0 {
		m.ResumeTextLength.Record(ctx, int64(outcome.ResumeLength))
	}
}

// RecordJobDescriptionUpdate counts a job description change by its source
// ("api", "cli" or "file")
func (om *ObservabilityManager) RecordJobDescriptionUpdate(ctx context.Context, source string) {
	m := om.metrics
	if m == nil || !om.businessMetricsEnabled() {
		return
	}
	m.JobDescUpdates.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordRateLimitHit counts a rejected request
func (om *ObservabilityManager) RecordRateLimitHit(ctx context.Context, clientID string) {
	m := om.metrics
	if m == nil {
		return
	}
	if custom := om.customMetrics(); custom != nil &&
		(!custom.Infrastructure.Enabled || !custom.Infrastructure.TrackRateLimits) {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("client_id", clientID)))
}

func (om *ObservabilityManager) aiMetricsEnabled() bool {
	custom := om.customMetrics()
	return custom == nil || custom.AIOperations.Enabled
}

func (om *ObservabilityManager) businessMetricsEnabled() bool {
	custom := om.customMetrics()
	return custom == nil || custom.BusinessMetrics.Enabled
}
