package ai

import (
	"context"
	"fmt"

	"skrut/internal/config"
	skrutErrors "skrut/internal/errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// OpenAIProvider implements Provider for OpenAI compatible chat completion APIs
type OpenAIProvider struct {
	client         *openai.Client
	config         *config.OperationAIConfig
	role           string
	circuitBreaker *CircuitBreaker[*openai.ChatCompletion]
	modelBreaker   *CircuitBreaker[*openai.Model]
	retrier        *retrier
	logger         *skrutErrors.Logger
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a new OpenAI provider instance for a role
func NewOpenAIProvider(cfg *config.OperationAIConfig, role string, logger *skrutErrors.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, skrutErrors.NewConfigError(skrutErrors.ErrCodeMissingAPIKey,
			fmt.Sprintf("OpenAI API key is missing for %s", role), nil)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// retries are handled by the backoff policy
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout != nil {
		opts = append(opts, option.WithRequestTimeout(*cfg.Timeout))
	}
	client := openai.NewClient(opts...)

	return &OpenAIProvider{
		client:         &client,
		config:         cfg,
		role:           role,
		circuitBreaker: NewCircuitBreaker[*openai.ChatCompletion](role, cfg, logger),
		modelBreaker:   NewCircuitBreaker[*openai.Model](role+"-model", cfg, logger),
		retrier:        newRetrier(role, cfg, logger),
		logger:         logger,
	}, nil
}

// Invoke sends one system and one user message and returns the text reply
func (p *OpenAIProvider) Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, *TokenUsage, error) {
	tracer := otel.Tracer("skrut.ai.openai")
	ctx, span := tracer.Start(ctx, "openai.invoke")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", p.config.Model),
		attribute.String("ai.role", p.role),
		attribute.Float64("ai.temperature", float64(*p.config.Temperature)),
		attribute.Int("input.prompt_length", len(userPrompt)),
	)

	var messages []openai.ChatCompletionMessageParamUnion
	if useSystemPrompts(p.config) {
		messages = []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		}
	} else {
		messages = []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(inlineSystemPrompt(systemPrompt, userPrompt)),
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.config.Model),
		Messages:    messages,
		Temperature: openai.Float(float64(*p.config.Temperature)),
	}

	completion, err := p.circuitBreaker.Execute(func() (*openai.ChatCompletion, error) {
		return retry(ctx, p.retrier, func(ctx context.Context) (*openai.ChatCompletion, error) {
			return p.client.Chat.Completions.New(ctx, params)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, skrutErrors.NewAIError(skrutErrors.ErrCodeAIServiceFailed,
			fmt.Sprintf("OpenAI call failed for %s", p.role), err)
	}

	if len(completion.Choices) == 0 {
		err := fmt.Errorf("no choices in completion %s", completion.ID)
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, skrutErrors.NewAIError(skrutErrors.ErrCodeAIServiceFailed,
			fmt.Sprintf("OpenAI returned an empty response for %s", p.role), err)
	}

	tokenUsage := &TokenUsage{
		InputTokens:  completion.Usage.PromptTokens,
		OutputTokens: completion.Usage.CompletionTokens,
		TotalTokens:  completion.Usage.TotalTokens,
	}
	span.SetAttributes(
		attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
		attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
		attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
	)

	text := completion.Choices[0].Message.Content
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("output.length", len(text)),
	)
	return text, tokenUsage, nil
}

// GetModelInfo checks the readiness and availability of the configured model
func (p *OpenAIProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:     p.config.Model,
		Provider: "openai",
	}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := p.modelBreaker.Execute(func() (*openai.Model, error) {
		return p.client.Models.Get(checkCtx, p.config.Model)
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		p.logger.Warn("Model availability check failed",
			"model", p.config.Model,
			"provider", "openai",
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.ID
	modelInfo.Version = model.OwnedBy

	p.logger.Debug("Model availability check successful",
		"model", p.config.Model,
		"owned_by", model.OwnedBy)

	return modelInfo
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (p *OpenAIProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    p.circuitBreaker.GetStats(),
		"model_operations": p.modelBreaker.GetStats(),
		"overall_healthy":  p.circuitBreaker.IsHealthy() && p.modelBreaker.IsHealthy(),
	}
}

// Close implements Provider
func (p *OpenAIProvider) Close() error {
	return nil
}
