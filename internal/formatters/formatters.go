package formatters

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"skrut/internal/types"

	"gopkg.in/yaml.v3"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("yaml", "any", &YAMLFormatter{})
	registry.RegisterFormatter("text", "EvaluationResult", &EvaluationTextFormatter{})
	registry.RegisterFormatter("markdown", "EvaluationResult", &EvaluationMarkdownFormatter{})
	registry.RegisterFormatter("text", "JobDescription", &JobDescriptionTextFormatter{})
	registry.RegisterFormatter("markdown", "JobDescription", &JobDescriptionTextFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	data = deref(data)
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats in sorted order
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	return slices.Sorted(maps.Keys(fr.formatters))
}

// deref lets callers pass results by pointer
func deref(data any) any {
	switch v := data.(type) {
	case *types.EvaluationResult:
		if v != nil {
			return *v
		}
	case *types.JobDescription:
		if v != nil {
			return *v
		}
	}
	return data
}

func getDataType(data any) string {
	switch data.(type) {
	case types.EvaluationResult:
		return "EvaluationResult"
	case types.JobDescription:
		return "JobDescription"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// YAMLFormatter handles YAML formatting for any data type
type YAMLFormatter struct{}

func (yf *YAMLFormatter) Format(data any) (string, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (yf *YAMLFormatter) SupportedType() string {
	return "any"
}

// EvaluationTextFormatter renders an evaluation for a terminal
type EvaluationTextFormatter struct{}

func (etf *EvaluationTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.EvaluationResult)
	if !ok {
		return "", fmt.Errorf("expected EvaluationResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== EVALUATION SUMMARY ===\n")
	fmt.Fprintf(&output, "Candidate:      %s\n", result.CandidateName)
	fmt.Fprintf(&output, "Email:          %s\n", result.Email)
	fmt.Fprintf(&output, "Score:          %s\n", scoreLabel(result.Score))
	fmt.Fprintf(&output, "Recommendation: %s\n\n", result.Recommendation)

	output.WriteString("=== ANALYSIS ===\n")
	output.WriteString(strings.TrimSpace(result.Analysis))
	output.WriteString("\n\n")

	fmt.Fprintf(&output, "=== CONVERSATION LOG (%d entries) ===\n", len(result.ConversationLog))
	for _, entry := range result.ConversationLog {
		fmt.Fprintf(&output, "[Turn %d] %s:\n", entry.TurnIndex, entry.Role)
		output.WriteString(indent(strings.TrimSpace(entry.Content), "  "))
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (etf *EvaluationTextFormatter) SupportedType() string {
	return "EvaluationResult"
}

// EvaluationMarkdownFormatter renders an evaluation as a Markdown report
type EvaluationMarkdownFormatter struct{}

func (emf *EvaluationMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.EvaluationResult)
	if !ok {
		return "", fmt.Errorf("expected EvaluationResult, got %T", data)
	}

	var output strings.Builder

	fmt.Fprintf(&output, "# Evaluation: %s\n\n", result.CandidateName)
	output.WriteString("| Field | Value |\n")
	output.WriteString("|---|---|\n")
	fmt.Fprintf(&output, "| Email | %s |\n", escapeCell(result.Email))
	fmt.Fprintf(&output, "| Score | %s |\n", scoreLabel(result.Score))
	fmt.Fprintf(&output, "| Recommendation | %s |\n\n", escapeCell(result.Recommendation))

	output.WriteString("## Analysis\n\n")
	output.WriteString(strings.TrimSpace(result.Analysis))
	output.WriteString("\n\n")

	output.WriteString("## Conversation Log\n\n")
	for _, entry := range result.ConversationLog {
		fmt.Fprintf(&output, "### Turn %d: %s\n\n", entry.TurnIndex, entry.Role)
		output.WriteString(indent(strings.TrimSpace(entry.Content), "> "))
		output.WriteString("\n\n")
	}

	return output.String(), nil
}

func (emf *EvaluationMarkdownFormatter) SupportedType() string {
	return "EvaluationResult"
}

// JobDescriptionTextFormatter prints the stored job description as is
type JobDescriptionTextFormatter struct{}

func (jtf *JobDescriptionTextFormatter) Format(data any) (string, error) {
	jd, ok := data.(types.JobDescription)
	if !ok {
		return "", fmt.Errorf("expected JobDescription, got %T", data)
	}
	if jd.Content == "" || strings.HasSuffix(jd.Content, "\n") {
		return jd.Content, nil
	}
	return jd.Content + "\n", nil
}

func (jtf *JobDescriptionTextFormatter) SupportedType() string {
	return "JobDescription"
}

func scoreLabel(score string) string {
	if score == "" || score == "N/A" {
		return "N/A"
	}
	return score + "/10"
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(prefix+line, " ")
	}
	return strings.Join(lines, "\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
