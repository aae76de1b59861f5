package ai

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"

	"skrut/internal/config"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

func TestDefaultUserPromptsTakeThreeArguments(t *testing.T) {
	for name, tmpl := range map[string]string{
		"reviewer": DefaultUserPrompts.Reviewer,
		"auditor":  DefaultUserPrompts.Auditor,
	} {
		assert.Equal(t, 3, strings.Count(tmpl, "%s"), name)
	}

	rendered := fmt.Sprintf(DefaultUserPrompts.Auditor, "JD", "RESUME", "EVAL")
	assert.Contains(t, rendered, "[JOB DESCRIPTION]\nJD")
	assert.Contains(t, rendered, "[ORIGINAL RESUME TEXT]\nRESUME")
	assert.Contains(t, rendered, "[REVIEWER'S EVALUATION]\nEVAL")
	assert.True(t, strings.HasSuffix(rendered, "Verify this evaluation as a Mentor."))
}

func TestResolveRolePrompts(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p := ResolveRolePrompts(&config.OperationAIConfig{}, config.RoleAuditor)
		assert.Equal(t, DefaultSystemPrompts.Auditor, p.System)
		assert.Equal(t, DefaultUserPrompts.Auditor, p.User)

		p = ResolveRolePrompts(nil, config.RoleReviewer)
		assert.Equal(t, DefaultSystemPrompts.Reviewer, p.System)
	})

	t.Run("config overrides default", func(t *testing.T) {
		cfg := &config.OperationAIConfig{
			CustomPrompts: config.PromptConfig{SystemPrompt: "inline system"},
		}
		p := ResolveRolePrompts(cfg, config.RoleReviewer)
		assert.Equal(t, "inline system", p.System)
		assert.Equal(t, DefaultUserPrompts.Reviewer, p.User)
	})

	t.Run("file content wins", func(t *testing.T) {
		cfg := &config.OperationAIConfig{
			CustomPrompts: config.PromptConfig{SystemPrompt: "inline", UserPrompt: "inline %s %s %s"},
			Loaded:        config.LoadedPrompts{SystemPrompt: "from file"},
		}
		p := ResolveRolePrompts(cfg, config.RoleReviewer)
		assert.Equal(t, "from file", p.System)
		assert.Equal(t, "inline %s %s %s", p.User)
	})
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "network timeout", err: fmt.Errorf("dial: %w", timeoutErr{}), expected: true},
		{name: "googleapi 503", err: &googleapi.Error{Code: http.StatusServiceUnavailable}, expected: true},
		{name: "googleapi 400", err: &googleapi.Error{Code: http.StatusBadRequest}, expected: false},
		{name: "genai 429", err: genai.APIError{Code: http.StatusTooManyRequests}, expected: true},
		{name: "genai 403", err: genai.APIError{Code: http.StatusForbidden}, expected: false},
		{name: "context canceled", err: context.Canceled, expected: false},
		{name: "plain error", err: fmt.Errorf("bad prompt"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryableError(tt.err))
		})
	}
}
