package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	if yaml != "" {
		require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	}
	return v
}

func TestLoadFromViperDefaults(t *testing.T) {
	cfg, err := loadFromViper(newTestViper(t, ""), "")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Evaluation.MaxRetries)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORS.AllowedOrigins)

	reviewer := cfg.GetReviewerConfig()
	auditor := cfg.GetAuditorConfig()
	assert.Equal(t, "gpt-4o-mini", reviewer.Model)
	assert.InDelta(t, 0.4, float64(*reviewer.Temperature), 1e-6)
	assert.InDelta(t, 0.0, float64(*auditor.Temperature), 1e-6)
	assert.Equal(t, 90*time.Second, *reviewer.Timeout)
	assert.True(t, reviewer.CircuitBreaker.Enabled)
	assert.Equal(t, time.Second, auditor.Backoff.InitialInterval)
}

func TestRoleConfigFallbacks(t *testing.T) {
	cfg, err := loadFromViper(newTestViper(t, `
ai:
  provider: gemini
  model: gemini-2.0-flash
  apiKey: global-key
  maxRetries: 4
  reviewer:
    model: gemini-2.5-pro
    temperature: 0.9
  auditor:
    provider: openai
    model: gpt-4o-mini
    apiKey: auditor-key
`), "")
	require.NoError(t, err)

	reviewer := cfg.GetReviewerConfig()
	assert.Equal(t, "gemini", reviewer.Provider)
	assert.Equal(t, "gemini-2.5-pro", reviewer.Model)
	assert.Equal(t, "global-key", reviewer.APIKey)
	assert.Equal(t, 4, *reviewer.MaxRetries)
	assert.InDelta(t, 0.9, float64(*reviewer.Temperature), 1e-6)

	auditor := cfg.GetAuditorConfig()
	assert.Equal(t, "openai", auditor.Provider)
	assert.Equal(t, "auditor-key", auditor.APIKey)

	_, ok := cfg.GetRoleConfig("judge")
	assert.False(t, ok)
}

func TestAPIKeyEnvFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAPI_KEY", "legacy-key")

	cfg, err := loadFromViper(newTestViper(t, ""), "")
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", cfg.GetReviewerConfig().APIKey)
	assert.NoError(t, cfg.ValidateForModels())
}

func TestAPIKeyEnvFallbackPerProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := loadFromViper(newTestViper(t, `
ai:
  auditor:
    provider: gemini
    model: gemini-2.0-flash
`), "")
	require.NoError(t, err)
	assert.Equal(t, "openai-key", cfg.GetReviewerConfig().APIKey)
	assert.Equal(t, "gemini-key", cfg.GetAuditorConfig().APIKey)
}

func TestValidateForModelsMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAPI_KEY", "")

	cfg, err := loadFromViper(newTestViper(t, ""), "")
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.ValidateForModels(), "reviewer API key is required")
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		errorMsg string
	}{
		{
			name:     "retry budget is fixed",
			yaml:     "evaluation:\n  maxRetries: 5\n",
			errorMsg: "MaxRetries",
		},
		{
			name:     "unknown provider",
			yaml:     "ai:\n  reviewer:\n    provider: claude\n",
			errorMsg: "unsupported AI provider",
		},
		{
			name:     "bad log level",
			yaml:     "app:\n  logLevel: verbose\n",
			errorMsg: "LogLevel",
		},
		{
			name:     "default format not supported",
			yaml:     "app:\n  defaultFormat: html\n",
			errorMsg: "invalid default format",
		},
		{
			name:     "tls server without files",
			yaml:     "server:\n  tls:\n    mode: server\n",
			errorMsg: "TLS configuration error",
		},
		{
			name:     "user prompt placeholders",
			yaml:     "ai:\n  auditor:\n    customPrompts:\n      userPrompt: \"%s only\"\n",
			errorMsg: "placeholders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadFromViper(newTestViper(t, tt.yaml), "")
			assert.ErrorContains(t, err, tt.errorMsg)
		})
	}
}
