package config

// applyOperationDefaults applies global defaults to role-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.BaseURL == "" {
		opCfg.BaseURL = c.AI.BaseURL
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.AI.MaxRetries
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
	// UseSystemPrompts: apply global default only if not explicitly set
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.AI.UseSystemPrompts
	}
}

// GetReviewerConfig returns the reviewer model configuration with fallback to global config
func (c *Config) GetReviewerConfig() OperationAIConfig {
	config := c.AI.Reviewer
	c.applyOperationDefaults(&config)
	return config
}

// GetAuditorConfig returns the auditor model configuration with fallback to global config
func (c *Config) GetAuditorConfig() OperationAIConfig {
	config := c.AI.Auditor
	c.applyOperationDefaults(&config)
	return config
}

// GetRoleConfig returns the configuration for a role by name
func (c *Config) GetRoleConfig(role string) (OperationAIConfig, bool) {
	switch role {
	case RoleReviewer:
		return c.GetReviewerConfig(), true
	case RoleAuditor:
		return c.GetAuditorConfig(), true
	default:
		return OperationAIConfig{}, false
	}
}

// Role names used in configuration keys and prompt lookup
const (
	RoleReviewer = "reviewer"
	RoleAuditor  = "auditor"
)
