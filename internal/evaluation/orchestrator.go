package evaluation

import (
	"context"
	"fmt"

	"skrut/internal/ai"
	"skrut/internal/errors"
	"skrut/internal/types"
)

// Phase is a state of the review loop
type Phase int

const (
	PhaseReview Phase = iota
	PhaseAudit
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseReview:
		return "REVIEW"
	case PhaseAudit:
		return "AUDIT"
	case PhaseDone:
		return "DONE"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// ProgressEvent is emitted once before each role turn
type ProgressEvent struct {
	Role    types.Role `json:"role"`
	Attempt int        `json:"attempt"`
	Message string     `json:"message"`
}

// ProgressSink receives progress events. It may be nil.
type ProgressSink func(ProgressEvent)

// Usage accumulates token usage over a run
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	Calls        int
}

func (u *Usage) add(t *ai.TokenUsage) {
	u.Calls++
	if t == nil {
		return
	}
	u.InputTokens += t.InputTokens
	u.OutputTokens += t.OutputTokens
	u.TotalTokens += t.TotalTokens
}

// Orchestrator drives REVIEW -> AUDIT -> (DONE | REVIEW)
type Orchestrator struct {
	reviewer *Role
	auditor  *Role
}

// NewOrchestrator creates an orchestrator over the two roles
func NewOrchestrator(reviewer, auditor *Role) *Orchestrator {
	return &Orchestrator{reviewer: reviewer, auditor: auditor}
}

// Run executes the loop on state until the auditor passes the evaluation or
// the reviewer has used MaxReviewerTurns. Model failures end the run at once.
// The context is checked before every model call.
func (o *Orchestrator) Run(ctx context.Context, state *State, sink ProgressSink) (*Usage, error) {
	usage := &Usage{}
	phase := PhaseReview

	for phase != PhaseDone {
		if err := ctx.Err(); err != nil {
			return usage, canceled(err, phase, state)
		}

		switch phase {
		case PhaseReview:
			emit(sink, ProgressEvent{
				Role:    types.RoleReviewer,
				Attempt: state.RetryCount + 1,
				Message: fmt.Sprintf("Reviewer is thinking (Attempt %d)", state.RetryCount+1),
			})

			output, tokens, err := o.reviewer.Invoke(ctx, state)
			if err != nil {
				return usage, modelFailure(ctx, err, o.reviewer.Kind(), phase, state)
			}
			usage.add(tokens)
			state.recordReview(output)
			phase = PhaseAudit

		case PhaseAudit:
			emit(sink, ProgressEvent{
				Role:    types.RoleAuditor,
				Attempt: state.RetryCount,
				Message: fmt.Sprintf("Auditor is verifying (Attempt %d)", state.RetryCount),
			})

			raw, tokens, err := o.auditor.Invoke(ctx, state)
			if err != nil {
				return usage, modelFailure(ctx, err, o.auditor.Kind(), phase, state)
			}
			usage.add(tokens)
			phase = nextPhase(state.recordAudit(raw), state.RetryCount)
		}
	}

	return usage, nil
}

func nextPhase(verdict Verdict, retryCount int) Phase {
	if verdict == VerdictPass || retryCount >= MaxReviewerTurns {
		return PhaseDone
	}
	return PhaseReview
}

func emit(sink ProgressSink, ev ProgressEvent) {
	if sink != nil {
		sink(ev)
	}
}

func modelFailure(ctx context.Context, err error, role types.Role, phase Phase, state *State) error {
	if ctx.Err() != nil {
		return canceled(err, phase, state)
	}
	return errors.NewAIError(errors.ErrCodeModelCallFailed,
		fmt.Sprintf("%s model call failed", role), err).
		WithContext("role", string(role)).
		WithContext("attempt", state.RetryCount)
}

func canceled(err error, phase Phase, state *State) error {
	return errors.NewInternalError(errors.ErrCodeCanceled, "evaluation canceled", err).
		WithContext("phase", phase.String()).
		WithContext("attempt", state.RetryCount)
}
