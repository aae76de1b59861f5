package ai

import (
	"context"
)

// Model is a chat model reduced to what the review loop needs: one system
// message, one user message, plain text back.
type Model interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, *TokenUsage, error)
}

// Provider is a Model backed by a remote AI service
type Provider interface {
	Model
	GetModelInfo(ctx context.Context) *ModelInfo
	GetCircuitBreakerStats() map[string]any
	Close() error
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
