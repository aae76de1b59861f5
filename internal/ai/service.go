package ai

import (
	"context"
	"fmt"
	"time"

	"skrut/internal/config"
	"skrut/internal/errors"
)

// CallObserver is notified after every model call a Service makes
type CallObserver interface {
	ObserveModelCall(ctx context.Context, role, provider, model string, duration time.Duration, usage *TokenUsage, err error)
}

// Service binds a provider to one role and reports its calls
type Service struct {
	Provider Provider // Exported for access from server package
	role     string
	config   *config.OperationAIConfig
	observer CallObserver
	logger   *errors.Logger
}

// Ensure Service can stand in for a role model
var _ Model = (*Service)(nil)

// NewService creates a new AI service instance for a role
func NewService(cfg *config.OperationAIConfig, role string, logger *errors.Logger) (*Service, error) {
	var provider Provider
	var err error

	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"role", role,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries,
		"use_system_prompts", useSystemPrompts(cfg))

	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(cfg, role, logger)
	case "openai":
		provider, err = NewOpenAIProvider(cfg, role, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}

	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create AI provider", err)
	}

	return &Service{
		Provider: provider,
		role:     role,
		config:   cfg,
		logger:   logger,
	}, nil
}

// WithObserver attaches a call observer and returns the service
func (s *Service) WithObserver(o CallObserver) *Service {
	s.observer = o
	return s
}

// Role returns the role this service was built for
func (s *Service) Role() string {
	return s.role
}

// Invoke calls the provider and reports the outcome to the observer
func (s *Service) Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, *TokenUsage, error) {
	start := time.Now()
	text, usage, err := s.Provider.Invoke(ctx, systemPrompt, userPrompt)
	duration := time.Since(start)

	if s.observer != nil {
		s.observer.ObserveModelCall(ctx, s.role, s.config.Provider, s.config.Model, duration, usage, err)
	}

	if err != nil {
		s.logger.LogError(err, "Model call failed",
			"role", s.role,
			"model", s.config.Model,
			"duration_ms", duration.Milliseconds())
		return "", nil, err
	}

	s.logger.Debug("Model call completed",
		"role", s.role,
		"model", s.config.Model,
		"duration_ms", duration.Milliseconds(),
		"response_length", len(text))
	return text, usage, nil
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// Close releases the provider
func (s *Service) Close() error {
	return s.Provider.Close()
}
