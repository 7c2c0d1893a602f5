package quest

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traitquest/traitquest/internal/domain"
)

var equateErrors = cmpopts.EquateErrors()

func intPtr(v int) *int { return &v }

func q1() *domain.Question {
	return &domain.Question{
		ID:      "q1",
		Type:    domain.QuestionQuantitative,
		Text:    "When the tavern fills, do you join the songs?",
		Options: []domain.Option{{ID: "1", Text: "A"}, {ID: "2", Text: "B"}},
	}
}

// run folds actions over an idle state, failing on any rejected action.
func run(t *testing.T, actions ...action) Snapshot {
	t.Helper()
	var s Snapshot
	for _, a := range actions {
		var err error
		s, err = reduce(s, a)
		require.NoError(t, err, "action %s", a.name())
	}
	return s
}

func active(t *testing.T) Snapshot {
	t.Helper()
	return run(t,
		actInit{questID: domain.QuestMBTI, sessionID: "s1"},
		actConnected{sessionID: "s1"},
		actQuestion{update: domain.QuestUpdate{Question: q1(), Narrative: "The gate opens."}, first: true},
	)
}

func TestReduce_FirstQuestion(t *testing.T) {
	got := active(t)

	want := Snapshot{
		Phase:           domain.PhaseQuestionActive,
		SessionID:       "s1",
		QuestID:         domain.QuestMBTI,
		CurrentQuestion: q1(),
		Narrative:       "The gate opens.",
		TotalSteps:      DefaultTotalSteps,
	}
	if diff := cmp.Diff(want, got, equateErrors); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestReduce_SubmitThenComplete_KeepsQuestion(t *testing.T) {
	s := active(t)

	s, err := reduce(s, actSubmit{index: 0})
	require.NoError(t, err)
	assert.True(t, s.IsLoading)
	assert.Equal(t, domain.PhaseSubmitting, s.Phase)

	s, err = reduce(s, actComplete{payload: domain.QuestComplete{Message: "done", TotalExp: 120}})
	require.NoError(t, err)

	assert.True(t, s.IsCompleted)
	assert.False(t, s.IsLoading)
	assert.Equal(t, domain.PhaseCompleted, s.Phase)
	assert.Equal(t, "done", s.Narrative)
	assert.Equal(t, 120, s.ExpGained)
	if diff := cmp.Diff(q1(), s.CurrentQuestion); diff != "" {
		t.Errorf("question changed (-want +got):\n%s", diff)
	}
}

func TestReduce_SubmitGuards(t *testing.T) {
	t.Run("pending", func(t *testing.T) {
		s, err := reduce(active(t), actSubmit{index: 0})
		require.NoError(t, err)

		_, err = reduce(s, actSubmit{index: 0})
		assert.ErrorIs(t, err, ErrSubmissionPending)
	})

	t.Run("no question", func(t *testing.T) {
		s := run(t, actInit{questID: domain.QuestMBTI, sessionID: "s1"}, actConnected{sessionID: "s1"})

		_, err := reduce(s, actSubmit{index: 0})
		assert.ErrorIs(t, err, ErrNoActiveQuestion)
	})

	t.Run("idle", func(t *testing.T) {
		_, err := reduce(Snapshot{}, actSubmit{index: 0})
		assert.ErrorIs(t, err, ErrNoActiveQuestion)
	})

	t.Run("negative index keeps current", func(t *testing.T) {
		s := active(t)
		s.QuestionIndex = 4

		s, err := reduce(s, actSubmit{index: -1})
		require.NoError(t, err)
		assert.Equal(t, 4, s.QuestionIndex)
	})
}

func TestReduce_NextQuestionIndexing(t *testing.T) {
	s := active(t)
	s, _ = reduce(s, actSubmit{index: 0})

	next := &domain.Question{Type: domain.QuestionSoulNarrative, Text: "Describe your lantern."}
	s, err := reduce(s, actQuestion{update: domain.QuestUpdate{
		Question:     next,
		Narrative:    "Fog rolls in.",
		GuideMessage: "Trust your first instinct.",
		TotalSteps:   intPtr(12),
	}})
	require.NoError(t, err)

	assert.Equal(t, 1, s.QuestionIndex)
	assert.Equal(t, 12, s.TotalSteps)
	assert.Equal(t, "q_1", s.CurrentQuestion.ID)
	assert.Equal(t, "Trust your first instinct.", s.GuideMessage)
	assert.False(t, s.IsLoading)
	assert.Equal(t, domain.PhaseQuestionActive, s.Phase)

	s, err = reduce(s, actQuestion{update: domain.QuestUpdate{Question: q1(), QuestionIndex: intPtr(7)}})
	require.NoError(t, err)
	assert.Equal(t, 7, s.QuestionIndex)
	assert.Equal(t, "Trust your first instinct.", s.GuideMessage, "guide message persists when omitted")
	assert.Equal(t, 12, s.TotalSteps)
}

func TestReduce_QuestionlessUpdateKeepsQuestion(t *testing.T) {
	s := active(t)
	s, _ = reduce(s, actSubmit{index: 0})

	s, err := reduce(s, actQuestion{update: domain.QuestUpdate{Narrative: "Only words this time."}})
	require.NoError(t, err)

	require.NotNil(t, s.CurrentQuestion)
	assert.Equal(t, "q1", s.CurrentQuestion.ID)
	assert.Equal(t, "Only words this time.", s.Narrative)
	assert.Equal(t, domain.PhaseQuestionActive, s.Phase)
}

func TestReduce_ServerErrorReturnsToQuestion(t *testing.T) {
	s := active(t)
	s, _ = reduce(s, actSubmit{index: 0})

	s, err := reduce(s, actServerError{message: "answer rejected"})
	require.NoError(t, err)

	assert.False(t, s.IsLoading)
	assert.Equal(t, domain.PhaseQuestionActive, s.Phase)
	assert.Equal(t, ServerError{Message: "answer rejected"}, s.LastError)
	assert.Equal(t, "q1", s.CurrentQuestion.ID)

	_, err = reduce(s, actSubmit{index: 0})
	assert.NoError(t, err, "retry allowed after error")
}

func TestReduce_SubmitTimeout(t *testing.T) {
	s := active(t)
	s, _ = reduce(s, actSubmit{index: 0})

	_, err := reduce(s, actSubmitTimedOut{sessionID: "s1", submissions: 0})
	assert.ErrorIs(t, err, errDropped, "stale submission")
	_, err = reduce(s, actSubmitTimedOut{sessionID: "other", submissions: 1})
	assert.ErrorIs(t, err, errDropped, "other session")

	s, err = reduce(s, actSubmitTimedOut{sessionID: "s1", submissions: 1})
	require.NoError(t, err)
	assert.True(t, errors.Is(s.LastError, ErrSubmitTimeout))
	assert.False(t, s.IsLoading)
	assert.Equal(t, domain.PhaseQuestionActive, s.Phase)
}

func TestReduce_EventsDroppedWhenIdle(t *testing.T) {
	for _, a := range []action{
		actQuestion{update: domain.QuestUpdate{Question: q1()}, first: true},
		actComplete{payload: domain.QuestComplete{Message: "done"}},
		actFinalResult{},
		actServerError{message: "x"},
	} {
		got, err := reduce(Snapshot{}, a)
		assert.ErrorIs(t, err, errDropped, a.name())
		assert.Equal(t, Snapshot{}, got)
	}
}

func TestReduce_CompletedIsTerminal(t *testing.T) {
	s := active(t)
	s, _ = reduce(s, actComplete{payload: domain.QuestComplete{Message: "done"}})

	_, err := reduce(s, actQuestion{update: domain.QuestUpdate{Question: q1()}})
	assert.ErrorIs(t, err, errDropped)

	_, err = reduce(s, actInit{questID: domain.QuestDISC, sessionID: "s2"})
	assert.ErrorIs(t, err, ErrQuestInProgress)

	s, err = reduce(s, actReset{})
	require.NoError(t, err)
	assert.Equal(t, Snapshot{}, s)
}

func TestReduce_RequestResult(t *testing.T) {
	_, err := reduce(active(t), actRequestResult{})
	assert.ErrorIs(t, err, ErrNotCompleted)

	s := active(t)
	s, _ = reduce(s, actComplete{payload: domain.QuestComplete{Message: "done"}})
	s, err = reduce(s, actRequestResult{})
	require.NoError(t, err)
	assert.True(t, s.IsLoading)

	res := domain.FinalResult{QuestID: "mbti", ResultType: "INTJ", Analysis: "## Strategist"}
	s, err = reduce(s, actFinalResult{result: res})
	require.NoError(t, err)
	assert.False(t, s.IsLoading)
	if diff := cmp.Diff(&res, s.FinalResult); diff != "" {
		t.Errorf("final result mismatch (-want +got):\n%s", diff)
	}
}

func TestReduce_ConnectFailedReturnsToIdle(t *testing.T) {
	s := run(t, actInit{questID: domain.QuestMBTI, sessionID: "s1"})
	boom := errors.New("handshake refused")

	s, err := reduce(s, actConnectFailed{sessionID: "s1", err: boom})
	require.NoError(t, err)

	if diff := cmp.Diff(Snapshot{LastError: boom}, s, equateErrors); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshot_Progress(t *testing.T) {
	assert.Equal(t, 0.0, Snapshot{}.Progress())
	assert.Equal(t, 0.3, Snapshot{QuestionIndex: 3, TotalSteps: 10}.Progress())
	assert.Equal(t, 1.0, Snapshot{QuestionIndex: 14, TotalSteps: 10}.Progress())
	assert.Equal(t, 1.0, Snapshot{IsCompleted: true}.Progress())
}
