package common

import (
	"context"
	stdErrors "errors"
	"fmt"

	"skrut/internal/ai"
	"skrut/internal/config"
	"skrut/internal/errors"
	"skrut/internal/evaluation"
	"skrut/internal/ingest"
	"skrut/internal/observability"
	"skrut/internal/types"
)

// Runtime holds the evaluation pipeline shared by the CLI and the server
type Runtime struct {
	Evaluation *evaluation.Service
	Models     map[string]*ai.Service

	logger *errors.Logger
}

// NewRuntime builds one model service per role, the review loop and the
// evaluation façade. om may be nil.
func NewRuntime(cfg *config.Config, logger *errors.Logger, om *observability.ObservabilityManager) (*Runtime, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	rt := &Runtime{Models: make(map[string]*ai.Service, 2), logger: logger}
	roles := make(map[string]*evaluation.Role, 2)

	for _, role := range []string{config.RoleReviewer, config.RoleAuditor} {
		opCfg, ok := cfg.GetRoleConfig(role)
		if !ok {
			_ = rt.Close()
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("Missing model configuration for role %s", role), nil)
		}

		svc, err := ai.NewService(&opCfg, role, logger)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		if om != nil {
			svc.WithObserver(om)
		}
		rt.Models[role] = svc

		prompts := ai.ResolveRolePrompts(&opCfg, role)
		if role == config.RoleReviewer {
			roles[role] = evaluation.NewReviewer(svc, prompts)
		} else {
			roles[role] = evaluation.NewAuditor(svc, prompts)
		}
	}

	opts := []evaluation.Option{
		evaluation.WithExtractor(ingest.NewExtractor(cfg.Evaluation.MinTextLength, logger)),
	}
	if om != nil {
		opts = append(opts, evaluation.WithRecorder(om))
	}

	orchestrator := evaluation.NewOrchestrator(roles[config.RoleReviewer], roles[config.RoleAuditor])
	rt.Evaluation = evaluation.NewService(orchestrator, logger, opts...)

	return rt, nil
}

// Close releases the model clients
func (rt *Runtime) Close() error {
	var errs []error
	for role, svc := range rt.Models {
		if err := svc.Close(); err != nil {
			rt.logger.Warn("Failed to close model client", "role", role, "error", err)
			errs = append(errs, err)
		}
	}
	return stdErrors.Join(errs...)
}

// Evaluator is the part of the evaluation service the CLI needs
type Evaluator interface {
	EvaluateStream(ctx context.Context, req evaluation.Request, sink evaluation.ProgressSink) (*types.EvaluationResult, error)
}

// EvaluateInput names the documents of one CLI evaluation
type EvaluateInput struct {
	ResumeFile     string
	JobDescription string
	MaxFileSize    int64
}

// RunEvaluateCommand reads the resume, runs one evaluation and writes the
// formatted result. sink may be nil.
func RunEvaluateCommand(
	ctx context.Context,
	logger *errors.Logger,
	evaluator Evaluator,
	cmdConfig CommandConfig,
	input EvaluateInput,
	sink evaluation.ProgressSink,
) error {
	fileProcessor := NewFileProcessor(logger)
	outputHandler := NewOutputHandler(logger)

	// output path is checked before any model call
	if err := fileProcessor.ValidateOutputFile(cmdConfig.OutputFile); err != nil {
		return err
	}

	document, err := fileProcessor.ReadResume(input.ResumeFile, input.MaxFileSize)
	if err != nil {
		return err
	}

	fileProcessor.logger.Info("Starting evaluation",
		"resume", input.ResumeFile,
		"resume_bytes", len(document),
		"job_description_length", len(input.JobDescription),
		"format", cmdConfig.OutputFormat)

	result, err := evaluator.EvaluateStream(ctx, evaluation.Request{
		FileName:       input.ResumeFile,
		Document:       document,
		JobDescription: input.JobDescription,
	}, sink)
	if err != nil {
		return err
	}

	fileProcessor.logger.Info("Evaluation finished",
		"score", result.Score,
		"recommendation", result.Recommendation,
		"conversation_entries", len(result.ConversationLog))

	return outputHandler.HandleOutput(result, cmdConfig)
}
