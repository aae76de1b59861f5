package ai

import (
	"skrut/internal/config"
)

// SystemPrompts contains the system-level instructions for each role
type SystemPrompts struct {
	Reviewer string
	Auditor  string
}

// UserPrompts contains user-level templates. Each takes three %s
// placeholders: the job description, the resume text, and a role specific
// third block (mentor advice for the reviewer, the evaluation under review
// for the auditor).
type UserPrompts struct {
	Reviewer string
	Auditor  string
}

// RolePrompts is the resolved prompt pair handed to one role
type RolePrompts struct {
	System string
	User   string
}

// DefaultSystemPrompts provides the default system instructions
var DefaultSystemPrompts = SystemPrompts{
	Reviewer: `Role: You are an Empathetic and Insightful Talent Acquisition Partner.
Task: Evaluate the candidate's Resume against the JD with a "Growth Mindset."

Evaluation Guidelines:
1. **Transferable Skills (Partial Credit)**: If the JD asks for "React" but the candidate has "Vue" or "Angular", DO NOT give 0. Give partial credit (e.g., 6-7/10) because they understand component-based architecture.
2. **Potential over Pedigree**: Look for evidence of fast learning or adaptability. If they lack a specific tool but have strong fundamentals, note this as a positive.
3. **Constructive Feedback**: Instead of just listing "Missing A, B, C", frame it as "Candidate would be a stronger match if they highlighted experience with [A] or completed a workshop on [B]."

Output Requirements (ALWAYS RESPOND IN THAI):
0. **Candidate Metadata**:
   - Name: [Full Name in English or Thai]
   - Email: [Email Address]
1. Score (0-10): Fair score including partial credits for related skills.
2. Analysis (MUST BE IN THAI):
   - **จุดแข็ง (Strengths):** execution, leadership, or technical capability.
   - **ทักษะที่นำมาปรับใช้ได้ (Transferable Skills):** What skills can they adapt to this role?
   - **สิ่งที่ต้องพัฒนา (Gaps & Growth Areas):** What specific skills should they learn to become a 10/10?
3. Recommendation: one of Hire, Interview, Strong Potential or Reject.

CRITICAL: All explanations in 'Analysis' MUST be in Thai language only.`,

	Auditor: `Role: You are a Senior HR Mentor & Quality Coach.
Task: Review the Recruiter's evaluation to ensure it is fair, constructive, and recognizes potential.

Verification Checklist:
1. **Did they miss Transferable Skills?** If the Recruiter rejected a candidate for missing a tool (e.g., Jira) but they have used similar tools (e.g., Trello/Asana), intervene! Tell them to give partial credit.
2. **Is the Tone Constructive?** Ensure the critique is helpful, not just negative.
3. **Accuracy Check:** Ensure they haven't HALLUCINATED skills the candidate doesn't have.

Response Format:
- If the evaluation is fair and identifies potential well: Return exactly "PASS".
- If the evaluation is too narrow-minded, harsh, or misses transferable connections: Return "FAIL: [Give specific advice in THAI language only on what skills to reconsider]".

CRITICAL: Your feedback MUST be in Thai language.`,
}

// DefaultUserPrompts provides the default user prompt templates
var DefaultUserPrompts = UserPrompts{
	Reviewer: `[JOB DESCRIPTION]
%s

[RESUME TEXT]
%s

%s

Generate your constructive evaluation now.`,

	Auditor: `[JOB DESCRIPTION]
%s

[ORIGINAL RESUME TEXT]
%s

[REVIEWER'S EVALUATION]
%s

Verify this evaluation as a Mentor.`,
}

// ResolveRolePrompts returns the prompts for a role, preferring file
// content, then inline configuration, then the defaults.
func ResolveRolePrompts(cfg *config.OperationAIConfig, role string) RolePrompts {
	defSystem, defUser := DefaultSystemPrompts.Reviewer, DefaultUserPrompts.Reviewer
	if role == config.RoleAuditor {
		defSystem, defUser = DefaultSystemPrompts.Auditor, DefaultUserPrompts.Auditor
	}
	if cfg == nil {
		return RolePrompts{System: defSystem, User: defUser}
	}
	return RolePrompts{
		System: resolvePrompt(cfg.Loaded.SystemPrompt, cfg.CustomPrompts.SystemPrompt, defSystem),
		User:   resolvePrompt(cfg.Loaded.UserPrompt, cfg.CustomPrompts.UserPrompt, defUser),
	}
}

// resolvePrompt selects the prompt string by priority:
// 1. A prompt loaded from a file.
// 2. A prompt defined directly in the configuration.
// 3. A hardcoded default prompt.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}
