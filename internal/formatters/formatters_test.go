package formatters

import (
	"encoding/json"
	"strings"
	"testing"

	"skrut/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var result = types.EvaluationResult{
	Score:          "8",
	CandidateName:  "สมชาย ใจดี",
	Email:          "somchai@example.com",
	Recommendation: "Strong Potential",
	Analysis:       "ชื่อ: สมชาย ใจดี\nคะแนน: 8",
	ConversationLog: []types.TranscriptEntry{
		{Role: types.RoleReviewer, Content: "draft one", TurnIndex: 1},
		{Role: types.RoleAuditor, Content: "FAIL: add evidence", TurnIndex: 1},
		{Role: types.RoleReviewer, Content: "draft two\nwith detail", TurnIndex: 2},
		{Role: types.RoleAuditor, Content: "PASS", TurnIndex: 2},
	},
}

func TestFormatJSONUsesWireNames(t *testing.T) {
	out, err := GlobalRegistry.Format(&result, "json")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	for _, key := range []string{"score", "candidate_name", "email", "recommendation", "analysis", "conversation_log"} {
		assert.Contains(t, decoded, key)
	}
	entry := decoded["conversation_log"].([]any)[0].(map[string]any)
	assert.Equal(t, "Reviewer", entry["role"])
	assert.Equal(t, float64(1), entry["turn_index"])
}

func TestFormatYAML(t *testing.T) {
	out, err := GlobalRegistry.Format(result, "yaml")
	require.NoError(t, err)

	var decoded types.EvaluationResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, result, decoded)
	assert.Contains(t, out, "candidate_name: สมชาย ใจดี")
}

func TestFormatText(t *testing.T) {
	out, err := GlobalRegistry.Format(result, "text")
	require.NoError(t, err)

	assert.Contains(t, out, "Score:          8/10")
	assert.Contains(t, out, "Recommendation: Strong Potential")
	assert.Contains(t, out, "[Turn 2] Reviewer:\n  draft two\n  with detail")
	assert.Contains(t, out, "CONVERSATION LOG (4 entries)")
}

func TestFormatMarkdown(t *testing.T) {
	na := result
	na.Score = "N/A"
	out, err := GlobalRegistry.Format(na, "markdown")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Evaluation: สมชาย ใจดี\n"))
	assert.Contains(t, out, "| Score | N/A |")
	assert.Contains(t, out, "### Turn 1: Auditor\n\n> FAIL: add evidence")
}

func TestFormatJobDescription(t *testing.T) {
	out, err := GlobalRegistry.Format(types.JobDescription{Content: "Go engineer"}, "text")
	require.NoError(t, err)
	assert.Equal(t, "Go engineer\n", out)

	out, err = GlobalRegistry.Format(types.JobDescription{Content: "Go engineer"}, "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"Go engineer"}`, out)
}

func TestFormatUnknown(t *testing.T) {
	_, err := GlobalRegistry.Format(result, "html")
	assert.Error(t, err)

	// text has no generic fallback
	_, err = GlobalRegistry.Format(map[string]string{"a": "b"}, "text")
	assert.Error(t, err)
}

func TestSupportedFormats(t *testing.T) {
	assert.Equal(t, []string{"json", "markdown", "text", "yaml"}, GlobalRegistry.GetSupportedFormats())
}
