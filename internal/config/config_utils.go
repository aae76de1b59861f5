package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// apiKeyEnvFallbacks are consulted in order when no SKRUT_AI_APIKEY is set
var apiKeyEnvFallbacks = map[string][]string{
	"openai": {"OPENAI_API_KEY", "OPENAPI_KEY"},
	"gemini": {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyAPIKeyFallbacks()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyAPIKeyFallbacks fills empty model keys from provider-specific variables
func (c *Config) applyAPIKeyFallbacks() {
	if c.AI.APIKey == "" {
		c.AI.APIKey = lookupProviderKey(c.AI.Provider)
	}

	for _, op := range []*OperationAIConfig{&c.AI.Reviewer, &c.AI.Auditor} {
		if op.APIKey != "" || op.Provider == "" || op.Provider == c.AI.Provider {
			continue
		}
		op.APIKey = lookupProviderKey(op.Provider)
	}
}

func lookupProviderKey(provider string) string {
	for _, name := range apiKeyEnvFallbacks[provider] {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}

	// Set console output based on log level if not explicitly configured
	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"SKRUT_AI_APIKEY",
		"SKRUT_AI_PROVIDER",
		"SKRUT_AI_MODEL",
		"SKRUT_SERVER_PORT",
		"SKRUT_SERVER_HOST",
		"SKRUT_APP_LOGLEVEL",
		"SKRUT_VAULT_ENABLED",
		"SKRUT_JOBDESCRIPTION_FILE",
		"OPENAI_API_KEY",
		"OPENAPI_KEY",
		"GEMINI_API_KEY",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if strings.Contains(strings.ToLower(envVar), "key") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	if c.AI.APIKey != "" {
		log.Println("[CONFIG] AI API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] AI API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Job Description File: %s (watch: %t)", c.JobDescription.File, c.JobDescription.Watch)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)

	log.Println("[CONFIG] === Role-Specific AI Configurations ===")
	log.Printf("[CONFIG] Reviewer - Provider: %s, Model: %s", c.AI.Reviewer.Provider, c.AI.Reviewer.Model)
	log.Printf("[CONFIG] Auditor - Provider: %s, Model: %s", c.AI.Auditor.Provider, c.AI.Auditor.Model)

	log.Println("[CONFIG] =====================================")
}
