package config

import (
	stderrors "errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	for _, role := range c.roleConfigs() {
		op, _ := c.GetRoleConfig(role.name)
		if err := validateOperation(role.name, op); err != nil {
			return err
		}
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

// ValidateForModels checks that every role has an API key. Commands that
// never call a model skip this.
func (c *Config) ValidateForModels() error {
	for _, role := range c.roleConfigs() {
		op, _ := c.GetRoleConfig(role.name)
		if op.APIKey == "" {
			return fmt.Errorf("%s API key is required (set SKRUT_AI_APIKEY or %s)",
				role.name, strings.Join(apiKeyEnvFallbacks[op.Provider], " / "))
		}
	}
	return nil
}

func validateOperation(role string, op OperationAIConfig) error {
	switch op.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("%s: unsupported AI provider %q (must be 'gemini' or 'openai')", role, op.Provider)
	}
	if op.Model == "" {
		return fmt.Errorf("%s: model is required", role)
	}
	if op.Timeout == nil || *op.Timeout <= 0 {
		return fmt.Errorf("%s: timeout must be positive", role)
	}
	if op.Temperature != nil && (*op.Temperature < 0 || *op.Temperature > 2) {
		return fmt.Errorf("%s: temperature must be between 0 and 2", role)
	}
	if op.CircuitBreaker.Enabled && (op.CircuitBreaker.FailureThreshold <= 0 || op.CircuitBreaker.FailureThreshold > 1) {
		return fmt.Errorf("%s: circuit breaker failureThreshold must be in (0, 1]", role)
	}
	if op.CustomPrompts.UserPrompt != "" {
		if err := validateUserTemplate(op.CustomPrompts.UserPrompt); err != nil {
			return fmt.Errorf("%s: %w", role, err)
		}
	}
	return nil
}

// formatValidationErrors flattens validator errors into one readable error
func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed '%s=%s' (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("configuration validation failed: %s", strings.Join(parts, "; "))
}
