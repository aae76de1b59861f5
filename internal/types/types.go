package types

// Role identifies which agent produced a transcript entry
type Role string

const (
	RoleReviewer Role = "Reviewer"
	RoleAuditor  Role = "Auditor"
)

// TranscriptEntry is one role turn in the conversation log
type TranscriptEntry struct {
	Role      Role   `json:"role" yaml:"role"`
	Content   string `json:"content" yaml:"content"`
	TurnIndex int    `json:"turn_index" yaml:"turn_index"` // reviewer turn the entry belongs to, starting at 1
}

// EvaluationResult is the final output of an evaluation run
type EvaluationResult struct {
	Score           string            `json:"score" yaml:"score"` // decimal in [0,10] or "N/A"
	CandidateName   string            `json:"candidate_name" yaml:"candidate_name"`
	Email           string            `json:"email" yaml:"email"`
	Recommendation  string            `json:"recommendation" yaml:"recommendation"`
	Analysis        string            `json:"analysis" yaml:"analysis"`
	ConversationLog []TranscriptEntry `json:"conversation_log" yaml:"conversation_log"`
}

// JobDescription is the request/response body of the job description endpoints
type JobDescription struct {
	Content string `json:"content" yaml:"content"`
}
