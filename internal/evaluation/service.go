package evaluation

import (
	"context"
	"strings"
	"time"

	"skrut/internal/errors"
	"skrut/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TextExtractor turns an uploaded resume document into plain text
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// Outcome summarises a finished run for metrics
type Outcome struct {
	RunID         string
	Status        string // "passed", "degraded" or "failed"
	ErrorCode     string
	ReviewerTurns int
	FailedAudits  int
	ResumeLength  int
	Duration      time.Duration
	Usage         Usage
}

// Recorder receives one Outcome per run
type Recorder interface {
	RecordEvaluation(ctx context.Context, outcome Outcome)
}

// Request is the input to one evaluation. Document takes precedence over
// ResumeText when both are set.
type Request struct {
	FileName       string
	Document       []byte
	ResumeText     string
	JobDescription string
}

// Service wires ingestion and the orchestrator into the result contract
type Service struct {
	orchestrator *Orchestrator
	extractor    TextExtractor
	recorder     Recorder
	logger       *errors.Logger
}

// Option configures a Service
type Option func(*Service)

// WithRecorder attaches a metrics recorder
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithExtractor attaches the document text extractor
func WithExtractor(x TextExtractor) Option {
	return func(s *Service) { s.extractor = x }
}

// NewService creates the evaluation façade
func NewService(orchestrator *Orchestrator, logger *errors.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	s := &Service{orchestrator: orchestrator, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate runs a full evaluation and returns the structured result
func (s *Service) Evaluate(ctx context.Context, req Request) (*types.EvaluationResult, error) {
	return s.run(ctx, req, nil)
}

// EvaluateStream is Evaluate with a progress side channel. Cancel ctx to stop
// the run between model calls.
func (s *Service) EvaluateStream(ctx context.Context, req Request, sink ProgressSink) (*types.EvaluationResult, error) {
	return s.run(ctx, req, sink)
}

func (s *Service) run(ctx context.Context, req Request, sink ProgressSink) (*types.EvaluationResult, error) {
	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)
	start := time.Now()

	ctx, span := otel.Tracer("skrut.evaluation").Start(ctx, "evaluation.run")
	defer span.End()
	span.SetAttributes(attribute.String("evaluation.run_id", runID))

	outcome := Outcome{RunID: runID, Status: "failed"}
	defer func() {
		outcome.Duration = time.Since(start)
		if s.recorder != nil {
			s.recorder.RecordEvaluation(ctx, outcome)
		}
	}()

	resumeText, err := s.resumeText(ctx, req)
	if err != nil {
		outcome.ErrorCode = errorCode(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "ingestion failed")
		return nil, err
	}
	outcome.ResumeLength = len(resumeText)

	jobDescription := strings.TrimSpace(req.JobDescription)
	if jobDescription == "" {
		outcome.ErrorCode = errors.ErrCodeMissingJobDescription
		span.SetStatus(codes.Error, "missing job description")
		return nil, errors.NewValidationError(errors.ErrCodeMissingJobDescription, "job description not found", nil)
	}

	logger.Debug("Starting evaluation run",
		"resume_length", len(resumeText),
		"job_description_length", len(jobDescription))

	state := NewState(resumeText, jobDescription)
	usage, err := s.orchestrator.Run(ctx, state, sink)
	outcome.ReviewerTurns = state.RetryCount
	outcome.FailedAudits = len(state.FeedbackHistory)
	if usage != nil {
		outcome.Usage = *usage
	}
	if err != nil {
		outcome.ErrorCode = errorCode(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "orchestration failed")
		logger.LogError(err, "Evaluation run failed", "reviewer_turns", state.RetryCount)
		return nil, err
	}

	result, err := BuildResult(state)
	if err != nil {
		outcome.ErrorCode = errorCode(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "no reviewer output")
		return nil, err
	}

	outcome.Status = "passed"
	if state.Degraded() {
		outcome.Status = "degraded"
		logger.Warn("Retry budget exhausted, returning last reviewer output",
			"reviewer_turns", state.RetryCount,
			"failed_audits", len(state.FeedbackHistory))
	}

	span.SetAttributes(
		attribute.Int("evaluation.reviewer_turns", state.RetryCount),
		attribute.Int("evaluation.failed_audits", len(state.FeedbackHistory)),
		attribute.String("evaluation.score", result.Score),
		attribute.String("evaluation.status", outcome.Status),
	)
	logger.Info("Evaluation run completed",
		"status", outcome.Status,
		"score", result.Score,
		"reviewer_turns", state.RetryCount,
		"duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

func (s *Service) resumeText(ctx context.Context, req Request) (string, error) {
	text := req.ResumeText
	if req.Document != nil {
		if s.extractor == nil {
			return "", errors.NewInternalError(errors.ErrCodeInvalidConfig, "no text extractor configured", nil)
		}
		extracted, err := s.extractor.Extract(ctx, req.FileName, req.Document)
		if err != nil {
			if _, ok := errors.AsAppError(err); ok {
				return "", err
			}
			return "", errors.NewValidationError(errors.ErrCodeIngestionFailed,
				"could not extract text from resume", err)
		}
		text = extracted
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.NewValidationError(errors.ErrCodeIngestionFailed, "could not extract text from resume", nil)
	}
	return text, nil
}

// BuildResult maps a finished run into the response contract
func BuildResult(state *State) (*types.EvaluationResult, error) {
	analysis := state.ReviewerOutput
	if strings.TrimSpace(analysis) == "" {
		return nil, errors.NewInternalError(errors.ErrCodeExtractionExhausted,
			"no reviewer output after retry budget", nil).
			WithContext("reviewer_turns", state.RetryCount)
	}

	return &types.EvaluationResult{
		Score:           ExtractScore(analysis),
		CandidateName:   ExtractName(analysis),
		Email:           ExtractEmail(analysis),
		Recommendation:  ExtractRecommendation(analysis),
		Analysis:        analysis,
		ConversationLog: state.Transcript(),
	}, nil
}

func errorCode(err error) string {
	return errors.CodeOf(err, errors.ErrCodeAIServiceFailed)
}
