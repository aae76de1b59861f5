package config

// LoadedPrompts holds the content of prompts loaded from files
type LoadedPrompts struct {
	SystemPrompt string
	UserPrompt   string
}

// IsEmpty reports whether nothing was loaded from files
func (p LoadedPrompts) IsEmpty() bool {
	return p.SystemPrompt == "" && p.UserPrompt == ""
}

// roleConfigs returns the role sections in a stable order for loading and logging
func (c *Config) roleConfigs() []struct {
	name string
	cfg  *OperationAIConfig
} {
	return []struct {
		name string
		cfg  *OperationAIConfig
	}{
		{RoleReviewer, &c.AI.Reviewer},
		{RoleAuditor, &c.AI.Auditor},
	}
}
