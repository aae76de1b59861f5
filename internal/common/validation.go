package common

import (
	"fmt"
	"slices"
	"strings"

	"skrut/internal/formatters"
)

var formatAliases = map[string]string{
	"md":  "markdown",
	"yml": "yaml",
	"txt": "text",
}

// NormalizeFormat lowercases a format name and resolves short aliases
func NormalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if canonical, ok := formatAliases[format]; ok {
		return canonical
	}
	return format
}

// ValidateOutputFormat checks a normalized format against the configured
// list and the formatter registry
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) > 0 && !slices.Contains(supportedFormats, format) {
		return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
			format, supportedFormats)
	}

	if !slices.Contains(formatters.GlobalRegistry.GetSupportedFormats(), format) {
		return fmt.Errorf("no formatter registered for '%s'", format)
	}

	return nil
}

// GetSupportedFormats returns the formats that are both configured and
// registered. An empty configuration allows every registered format.
func GetSupportedFormats(supportedFormats []string) []string {
	registered := formatters.GlobalRegistry.GetSupportedFormats()
	if len(supportedFormats) == 0 {
		return registered
	}
	var formats []string
	for _, f := range supportedFormats {
		if slices.Contains(registered, f) {
			formats = append(formats, f)
		}
	}
	return formats
}
