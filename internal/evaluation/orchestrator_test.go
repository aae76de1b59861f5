package evaluation

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	"skrut/internal/ai"
	"skrut/internal/errors"
	"skrut/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type modelCall struct {
	system string
	user   string
}

// scriptedModel replays responses in order and repeats the last one
type scriptedModel struct {
	mu        sync.Mutex
	responses []string
	err       error
	errAt     int // 1-based call that fails; 0 means err on every call when set
	calls     []modelCall
	onCall    func(n int)
}

func (m *scriptedModel) Invoke(_ context.Context, system, user string) (string, *ai.TokenUsage, error) {
	m.mu.Lock()
	m.calls = append(m.calls, modelCall{system: system, user: user})
	n := len(m.calls)
	m.mu.Unlock()

	if m.onCall != nil {
		m.onCall(n)
	}
	if m.err != nil && (m.errAt == 0 || m.errAt == n) {
		return "", nil, m.err
	}

	idx := min(n-1, len(m.responses)-1)
	return m.responses[idx], &ai.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}, nil
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

var testPrompts = ai.RolePrompts{System: "system", User: "JD=%s|RESUME=%s|EXTRA=%s"}

func newTestOrchestrator(reviewer, auditor ai.Model) *Orchestrator {
	return NewOrchestrator(NewReviewer(reviewer, testPrompts), NewAuditor(auditor, testPrompts))
}

func collectEvents() (ProgressSink, func() []ProgressEvent) {
	var mu sync.Mutex
	var events []ProgressEvent
	return func(ev ProgressEvent) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		}, func() []ProgressEvent {
			mu.Lock()
			defer mu.Unlock()
			return append([]ProgressEvent(nil), events...)
		}
}

func TestOrchestratorPassOnFirstTurn(t *testing.T) {
	reviewer := &scriptedModel{responses: []string{"Score: 9/10"}}
	auditor := &scriptedModel{responses: []string{"  pass \n"}}
	state := NewState("resume", "jd")
	sink, events := collectEvents()

	usage, err := newTestOrchestrator(reviewer, auditor).Run(context.Background(), state, sink)
	require.NoError(t, err)

	assert.Equal(t, 1, reviewer.callCount())
	assert.Equal(t, 1, auditor.callCount())
	assert.Equal(t, 1, state.RetryCount)
	assert.Equal(t, VerdictPass, state.Verdict)
	assert.Empty(t, state.FeedbackHistory)
	assert.False(t, state.Degraded())

	assert.Equal(t, []types.TranscriptEntry{
		{Role: types.RoleReviewer, Content: "Score: 9/10", TurnIndex: 1},
		{Role: types.RoleAuditor, Content: "pass", TurnIndex: 1},
	}, state.Transcript())

	assert.Equal(t, []ProgressEvent{
		{Role: types.RoleReviewer, Attempt: 1, Message: "Reviewer is thinking (Attempt 1)"},
		{Role: types.RoleAuditor, Attempt: 1, Message: "Auditor is verifying (Attempt 1)"},
	}, events())

	assert.Equal(t, 2, usage.Calls)
	assert.Equal(t, int64(30), usage.TotalTokens)
}

func TestOrchestratorRetryBudgetExhausted(t *testing.T) {
	reviewer := &scriptedModel{responses: []string{"draft 1", "draft 2", "draft 3"}}
	auditor := &scriptedModel{responses: []string{"FAIL: ขาด A", "FAIL: ขาด B", "FAIL: ขาด C\n"}}
	state := NewState("resume", "jd")
	sink, events := collectEvents()

	_, err := newTestOrchestrator(reviewer, auditor).Run(context.Background(), state, sink)
	require.NoError(t, err)

	assert.Equal(t, MaxReviewerTurns, reviewer.callCount())
	assert.Equal(t, MaxReviewerTurns, auditor.callCount())
	assert.Equal(t, "draft 3", state.ReviewerOutput)
	assert.True(t, state.Degraded())

	// raw auditor text kept for replay, trimmed text in the transcript
	assert.Equal(t, []string{"FAIL: ขาด A", "FAIL: ขาด B", "FAIL: ขาด C\n"}, state.FeedbackHistory)
	transcript := state.Transcript()
	require.Len(t, transcript, 6)
	assert.Equal(t, "FAIL: ขาด C", transcript[5].Content)
	for i, entry := range transcript {
		assert.Equal(t, i/2+1, entry.TurnIndex)
		if i%2 == 0 {
			assert.Equal(t, types.RoleReviewer, entry.Role)
		} else {
			assert.Equal(t, types.RoleAuditor, entry.Role)
		}
	}

	assert.Len(t, events(), 6)
	assert.Equal(t, "Reviewer is thinking (Attempt 3)", events()[4].Message)
}

func TestOrchestratorReplaysAdviceInOrder(t *testing.T) {
	reviewer := &scriptedModel{responses: []string{"draft"}}
	auditor := &scriptedModel{responses: []string{"FAIL: first", "FAIL: second", "PASS"}}
	state := NewState("the resume", "the jd")

	_, err := newTestOrchestrator(reviewer, auditor).Run(context.Background(), state, nil)
	require.NoError(t, err)
	require.Equal(t, 3, reviewer.callCount())

	assert.Equal(t, "JD=the jd|RESUME=the resume|EXTRA=", reviewer.calls[0].user)
	assert.Equal(t, "system", reviewer.calls[0].system)

	second := reviewer.calls[1].user
	assert.Contains(t, second, mentorAdviceHeader)
	assert.Contains(t, second, "Tip 1: FAIL: first\n")
	assert.NotContains(t, second, "Tip 2")

	third := reviewer.calls[2].user
	assert.Less(t, strings.Index(third, "Tip 1: FAIL: first"), strings.Index(third, "Tip 2: FAIL: second"))

	// auditor sees the reviewer output of the same turn
	assert.Equal(t, "JD=the jd|RESUME=the resume|EXTRA=draft", auditor.calls[0].user)
	assert.Equal(t, VerdictPass, state.Verdict)
	assert.False(t, state.Degraded())
}

func TestOrchestratorModelFailure(t *testing.T) {
	boom := stderrors.New("connection reset")
	reviewer := &scriptedModel{responses: []string{"draft"}}
	auditor := &scriptedModel{responses: []string{"FAIL: more"}, err: boom, errAt: 2}
	state := NewState("resume", "jd")

	_, err := newTestOrchestrator(reviewer, auditor).Run(context.Background(), state, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrModelCallFailure)
	assert.ErrorIs(t, err, boom)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Auditor", appErr.Context["role"])
	assert.Equal(t, 2, appErr.Context["attempt"])

	// no retry after a model error
	assert.Equal(t, 2, reviewer.callCount())
	assert.Equal(t, 2, auditor.callCount())
}

func TestOrchestratorCanceledBetweenCalls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reviewer := &scriptedModel{responses: []string{"draft"}, onCall: func(int) { cancel() }}
	auditor := &scriptedModel{responses: []string{"PASS"}}
	state := NewState("resume", "jd")

	_, err := newTestOrchestrator(reviewer, auditor).Run(ctx, state, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCanceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, auditor.callCount())
}

func TestOrchestratorCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reviewer := &scriptedModel{responses: []string{"draft"}}
	_, err := newTestOrchestrator(reviewer, &scriptedModel{responses: []string{"PASS"}}).Run(ctx, NewState("r", "j"), nil)
	assert.ErrorIs(t, err, errors.ErrCanceled)
	assert.Zero(t, reviewer.callCount())
}

func TestParseVerdict(t *testing.T) {
	assert.Equal(t, VerdictPass, ParseVerdict("PASS"))
	assert.Equal(t, VerdictPass, ParseVerdict("\n Pass  "))
	assert.Equal(t, VerdictFail, ParseVerdict("PASS."))
	assert.Equal(t, VerdictFail, ParseVerdict("PASS: looks good"))
	assert.Equal(t, VerdictFail, ParseVerdict("FAIL: ควรให้คะแนนบางส่วน"))
	assert.Equal(t, VerdictFail, ParseVerdict(""))
}

func TestFormatFeedbackHistory(t *testing.T) {
	assert.Equal(t, "", FormatFeedbackHistory(nil))
	assert.Equal(t,
		mentorAdviceHeader+"\nTip 1: FAIL: a\nTip 2: FAIL: b\n",
		FormatFeedbackHistory([]string{"FAIL: a", "FAIL: b"}))
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "REVIEW", PhaseReview.String())
	assert.Equal(t, "AUDIT", PhaseAudit.String())
	assert.Equal(t, "DONE", PhaseDone.String())
	assert.Equal(t, PhaseDone, nextPhase(VerdictFail, MaxReviewerTurns))
	assert.Equal(t, PhaseReview, nextPhase(VerdictFail, 1))
	assert.Equal(t, PhaseDone, nextPhase(VerdictPass, 1))
}

func TestRenderPromptEscapedPercent(t *testing.T) {
	s := NewState("resume at 100%", "JD with %d literal")

	got := renderReviewerPrompt("Aim for a 90%% match.\nJD=%s\nRESUME=%s\n%s", s)
	assert.Equal(t, "Aim for a 90% match.\nJD=JD with %d literal\nRESUME=resume at 100%\n", got)

	s.ReviewerOutput = "draft"
	got = renderAuditorPrompt("%s|%s|%s (100%%)", s)
	assert.Equal(t, "JD with %d literal|resume at 100%|draft (100%)", got)
}
