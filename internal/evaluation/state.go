package evaluation

import (
	"strings"

	"skrut/internal/types"
)

// MaxReviewerTurns bounds the reviewer/auditor loop
const MaxReviewerTurns = 3

// Verdict is the auditor's signal for the current turn
type Verdict string

const (
	VerdictStart Verdict = "START"
	VerdictPass  Verdict = "PASS"
	VerdictFail  Verdict = "FAIL"
)

// State is owned by a single orchestration run and discarded afterwards
type State struct {
	ResumeText          string
	JobDescription      string
	ReviewerOutput      string
	FeedbackHistory     []string
	ConversationHistory []types.TranscriptEntry
	RetryCount          int
	Verdict             Verdict
}

// NewState creates the initial state for one evaluation
func NewState(resumeText, jobDescription string) *State {
	return &State{
		ResumeText:     resumeText,
		JobDescription: jobDescription,
		Verdict:        VerdictStart,
	}
}

// recordReview stores a reviewer turn. The turn counter moves first so the
// transcript entry carries the 1-based turn it belongs to.
func (s *State) recordReview(output string) {
	s.RetryCount++
	s.ReviewerOutput = output
	s.ConversationHistory = append(s.ConversationHistory, types.TranscriptEntry{
		Role:      types.RoleReviewer,
		Content:   output,
		TurnIndex: s.RetryCount,
	})
}

// recordAudit parses the auditor response and stores it. A FAIL keeps the
// raw response in the feedback history so it is replayed verbatim.
func (s *State) recordAudit(raw string) Verdict {
	trimmed := strings.TrimSpace(raw)
	s.ConversationHistory = append(s.ConversationHistory, types.TranscriptEntry{
		Role:      types.RoleAuditor,
		Content:   trimmed,
		TurnIndex: s.RetryCount,
	})

	s.Verdict = ParseVerdict(raw)
	if s.Verdict == VerdictFail {
		s.FeedbackHistory = append(s.FeedbackHistory, raw)
	}
	return s.Verdict
}

// ParseVerdict treats only the bare token PASS, ignoring case and surrounding
// whitespace, as approval
func ParseVerdict(raw string) Verdict {
	if strings.EqualFold(strings.TrimSpace(raw), string(VerdictPass)) {
		return VerdictPass
	}
	return VerdictFail
}

// Transcript returns a copy of the conversation history
func (s *State) Transcript() []types.TranscriptEntry {
	out := make([]types.TranscriptEntry, len(s.ConversationHistory))
	copy(out, s.ConversationHistory)
	return out
}

// Degraded reports whether the run ended on the retry budget rather than a PASS
func (s *State) Degraded() bool {
	return s.Verdict != VerdictPass && s.RetryCount >= MaxReviewerTurns
}
