package evaluation

import (
	"context"
	"fmt"
	"strings"

	"skrut/internal/ai"
	"skrut/internal/types"
)

const mentorAdviceHeader = "--- ADVICE FROM SENIOR MENTOR (Please adjust analysis) ---"

// Role is one configured model instance plus the prompt it renders from state.
// Reviewer and auditor differ only in prompts and in what part of the state
// they read.
type Role struct {
	kind    types.Role
	model   ai.Model
	prompts ai.RolePrompts
	render  func(template string, s *State) string
}

// NewReviewer builds the role that writes the evaluation
func NewReviewer(model ai.Model, prompts ai.RolePrompts) *Role {
	return &Role{
		kind:    types.RoleReviewer,
		model:   model,
		prompts: prompts,
		render:  renderReviewerPrompt,
	}
}

// NewAuditor builds the role that approves or critiques the evaluation
func NewAuditor(model ai.Model, prompts ai.RolePrompts) *Role {
	return &Role{
		kind:    types.RoleAuditor,
		model:   model,
		prompts: prompts,
		render:  renderAuditorPrompt,
	}
}

// Kind returns which transcript role this instance fills
func (r *Role) Kind() types.Role {
	return r.kind
}

// Invoke renders the user prompt from state and performs one model call
func (r *Role) Invoke(ctx context.Context, s *State) (string, *ai.TokenUsage, error) {
	return r.model.Invoke(ctx, r.prompts.System, r.render(r.prompts.User, s))
}

func renderReviewerPrompt(template string, s *State) string {
	return fmt.Sprintf(template, s.JobDescription, s.ResumeText, FormatFeedbackHistory(s.FeedbackHistory))
}

func renderAuditorPrompt(template string, s *State) string {
	return fmt.Sprintf(template, s.JobDescription, s.ResumeText, s.ReviewerOutput)
}

// FormatFeedbackHistory renders auditor critiques as numbered tips, oldest
// first. An empty history renders as an empty string.
func FormatFeedbackHistory(feedback []string) string {
	if len(feedback) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(mentorAdviceHeader)
	b.WriteString("\n")
	for i, tip := range feedback {
		fmt.Fprintf(&b, "Tip %d: %s\n", i+1, tip)
	}
	return b.String()
}
