package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// loadPromptsFromFiles loads custom prompts from external files if file paths are specified
func (c *Config) loadPromptsFromFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	for _, role := range c.roleConfigs() {
		prompts := role.cfg.CustomPrompts

		if prompts.SystemPromptFile != "" {
			content, err := loadPromptFromFile(prompts.SystemPromptFile, "system", role.name)
			if err != nil {
				return fmt.Errorf("failed to load %s system prompt: %w", role.name, err)
			}
			role.cfg.Loaded.SystemPrompt = content
		}

		if prompts.UserPromptFile != "" {
			content, err := loadPromptFromFile(prompts.UserPromptFile, "user", role.name)
			if err != nil {
				return fmt.Errorf("failed to load %s user prompt: %w", role.name, err)
			}
			if err := validateUserTemplate(content); err != nil {
				return fmt.Errorf("%s user prompt file '%s': %w", role.name, prompts.UserPromptFile, err)
			}
			role.cfg.Loaded.UserPrompt = content
		}
	}

	c.logPromptLoadingSummary()

	return nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func loadPromptFromFile(filePath, promptType, role string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", role, promptType, filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%s %s prompt file not found: %s", role, promptType, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", role, promptType, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", role, promptType, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		role, promptType, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// validateUserTemplate checks a user prompt template has exactly three %s
// placeholders (job description, resume, role-specific context) and no other
// formatting directive. A literal percent sign is written as %%.
func validateUserTemplate(template string) error {
	placeholders := 0
	for i := 0; i < len(template); i++ {
		if template[i] != '%' {
			continue
		}
		if i+1 == len(template) {
			return fmt.Errorf("user prompt template ends with a bare %%, write a literal percent as %%%%")
		}
		switch template[i+1] {
		case 's':
			placeholders++
		case '%':
		default:
			return fmt.Errorf("user prompt template has an unsupported %% directive at byte %d, only %%s is allowed (write a literal percent as %%%%)", i)
		}
		i++
	}

	if placeholders != 3 {
		return fmt.Errorf("user prompt template must contain exactly 3 %%s placeholders, found %d", placeholders)
	}
	return nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	validateFile := func(filePath, promptType, role string) {
		if filePath == "" {
			return
		}

		absPath, err := filepath.Abs(filePath)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", role, promptType, filePath))
			return
		}

		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", role, promptType, absPath))
		}
	}

	for _, role := range c.roleConfigs() {
		validateFile(role.cfg.CustomPrompts.SystemPromptFile, "system", role.name)
		validateFile(role.cfg.CustomPrompts.UserPromptFile, "user", role.name)
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}

	return nil
}

// logPromptLoadingSummary logs a summary of loaded prompts
func (c *Config) logPromptLoadingSummary() {
	log.Println("[CONFIG] === Custom Prompt Loading Summary ===")

	promptCount := 0
	for _, role := range c.roleConfigs() {
		if role.cfg.Loaded.SystemPrompt != "" {
			log.Printf("[CONFIG] %s system prompt: loaded from file", role.name)
			promptCount++
		}
		if role.cfg.Loaded.UserPrompt != "" {
			log.Printf("[CONFIG] %s user prompt: loaded from file", role.name)
			promptCount++
		}
	}

	if promptCount == 0 {
		log.Println("[CONFIG] No custom prompt files loaded - using config values or built-in defaults")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded: %d", promptCount)
	}

	log.Println("[CONFIG] ==========================================")
}
