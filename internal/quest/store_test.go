package quest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traitquest/traitquest/internal/channel"
	"github.com/traitquest/traitquest/internal/domain"
	"github.com/traitquest/traitquest/internal/testutil"
	"go.uber.org/goleak"
)

const wait = 2 * time.Second

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	store   *Store
	backend *testutil.Backend
	token   string
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	backend := testutil.NewBackend(t)
	ch := channel.New(backend.WSURL())
	opts = append([]Option{WithSessionIDs(func() string { return "s1" })}, opts...)
	store := NewStore(ch, opts...)
	t.Cleanup(store.Close)
	return &harness{store: store, backend: backend, token: backend.MintToken("u1", time.Hour)}
}

// start runs InitQuest for mbti and answers start_quest with q1.
func (h *harness) start(t *testing.T) *testutil.QuestConn {
	t.Helper()
	require.NoError(t, h.store.InitQuest(context.Background(), domain.QuestMBTI, h.token))
	qc := h.backend.AcceptQuest(wait)

	f := qc.Next(t, wait)
	require.Equal(t, channel.CommandStartQuest, f.Event)
	assert.JSONEq(t, `{"questId":"mbti"}`, string(f.Data))

	require.NoError(t, qc.Emit(channel.EventFirstQuestion, map[string]any{
		"question":  q1(),
		"narrative": "The gate opens.",
	}))
	h.waitFor(t, func(s Snapshot) bool { return s.Phase == domain.PhaseQuestionActive })
	return qc
}

func (h *harness) waitFor(t *testing.T, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool { return cond(h.store.Snapshot()) }, wait, 5*time.Millisecond)
	return h.store.Snapshot()
}

func TestStore_FirstQuestion(t *testing.T) {
	h := newHarness(t)
	qc := h.start(t)

	s := h.store.Snapshot()
	assert.Equal(t, "s1", qc.SessionID)
	require.NotNil(t, s.CurrentQuestion)
	assert.Equal(t, "q1", s.CurrentQuestion.ID)
	assert.False(t, s.IsCompleted)
	assert.False(t, s.IsLoading)
	assert.Equal(t, "The gate opens.", s.Narrative)
}

func TestStore_SubmitThenComplete(t *testing.T) {
	h := newHarness(t)
	qc := h.start(t)

	require.NoError(t, h.store.SubmitAnswer("1", 0))
	assert.True(t, h.store.Snapshot().IsLoading)

	f := qc.Next(t, wait)
	assert.Equal(t, channel.CommandSubmitAnswer, f.Event)
	assert.JSONEq(t, `{"answer":"1","questionIndex":0}`, string(f.Data))

	assert.ErrorIs(t, h.store.SubmitAnswer("2", 0), ErrSubmissionPending)

	require.NoError(t, qc.Emit(channel.EventQuestComplete, map[string]any{"message": "done"}))
	s := h.waitFor(t, func(s Snapshot) bool { return s.IsCompleted })

	assert.False(t, s.IsLoading)
	assert.Equal(t, "done", s.Narrative)
	if diff := cmp.Diff(q1(), s.CurrentQuestion); diff != "" {
		t.Errorf("question changed (-want +got):\n%s", diff)
	}
}

func TestStore_NextQuestionClearsLoading(t *testing.T) {
	h := newHarness(t)
	qc := h.start(t)

	require.NoError(t, h.store.SubmitAnswer("2", -1))
	qc.Next(t, wait)
	require.NoError(t, qc.Emit(channel.EventNextQuestion, map[string]any{
		"question":   map[string]any{"id": "q2", "type": "SOUL_NARRATIVE", "text": "Why?"},
		"narrative":  "Deeper.",
		"totalSteps": 5,
	}))

	s := h.waitFor(t, func(s Snapshot) bool { return s.CurrentQuestion != nil && s.CurrentQuestion.ID == "q2" })
	assert.False(t, s.IsLoading)
	assert.Equal(t, 1, s.QuestionIndex)
	assert.Equal(t, 5, s.TotalSteps)
}

func TestStore_ServerErrorKeepsQuestion(t *testing.T) {
	h := newHarness(t)
	qc := h.start(t)

	require.NoError(t, h.store.SubmitAnswer("1", 0))
	qc.Next(t, wait)
	require.NoError(t, qc.Emit(channel.EventError, map[string]string{"message": "try again"}))

	s := h.waitFor(t, func(s Snapshot) bool { return !s.IsLoading })
	assert.Equal(t, domain.PhaseQuestionActive, s.Phase)
	assert.Equal(t, ServerError{Message: "try again"}, s.LastError)
	assert.NoError(t, h.store.SubmitAnswer("1", 0))
}

func TestStore_MalformedFramesKeepQuestion(t *testing.T) {
	h := newHarness(t)
	qc := h.start(t)
	before := h.store.Snapshot()

	for _, raw := range []string{
		`not json`,
		`{"data":{"question":{"id":"qx"}}}`,
		`{"event":"next_question","data":"x"}`,
		`{"event":"next_question","data":{"question":"oops"}}`,
		`{"event":"first_question","data":[1,2,3]}`,
	} {
		require.NoError(t, qc.EmitRaw(raw))
	}
	// Frames are handled in order, so once this lands the ones above have been seen.
	require.NoError(t, qc.Emit(channel.EventError, map[string]string{"message": "marker"}))
	s := h.waitFor(t, func(s Snapshot) bool { return s.LastError != nil })

	assert.Equal(t, domain.PhaseQuestionActive, s.Phase)
	assert.Equal(t, before.QuestionIndex, s.QuestionIndex)
	assert.Equal(t, before.Narrative, s.Narrative)
	if diff := cmp.Diff(before.CurrentQuestion, s.CurrentQuestion); diff != "" {
		t.Errorf("question changed (-want +got):\n%s", diff)
	}
}

func TestStore_SubmitTimeout(t *testing.T) {
	h := newHarness(t, WithSubmitTimeout(50*time.Millisecond))
	qc := h.start(t)

	require.NoError(t, h.store.SubmitAnswer("1", 0))
	qc.Next(t, wait)

	s := h.waitFor(t, func(s Snapshot) bool { return !s.IsLoading })
	assert.ErrorIs(t, s.LastError, ErrSubmitTimeout)
	assert.Equal(t, domain.PhaseQuestionActive, s.Phase)
}

func TestStore_FinalResultLevelsUp(t *testing.T) {
	h := newHarness(t)
	got := make(chan domain.LevelUp, 1)
	h.store.SetOnLevelUp(func(lu domain.LevelUp) { got <- lu })
	qc := h.start(t)

	require.NoError(t, h.store.SubmitAnswer("1", 0))
	qc.Next(t, wait)
	require.NoError(t, qc.Emit(channel.EventQuestComplete, map[string]any{"message": "done", "totalExp": 80}))
	h.waitFor(t, func(s Snapshot) bool { return s.IsCompleted })

	require.NoError(t, h.store.RequestResult())
	f := qc.Next(t, wait)
	assert.Equal(t, channel.CommandRequestResult, f.Event)

	require.NoError(t, qc.Emit(channel.EventFinalResult, map[string]any{
		"quest_id":    "mbti",
		"result_type": "INFP",
		"analysis":    "## The Mediator",
		"level_info":  map[string]int{"level": 3, "exp": 80, "next_level_exp": 150},
		"class_id":    "bard",
	}))

	select {
	case lu := <-got:
		assert.Equal(t, domain.LevelUp{Level: 3, Exp: 80, ExpToNextLevel: 150, ClassID: "bard"}, lu)
	case <-time.After(wait):
		t.Fatal("level up not delivered")
	}
	s := h.store.Snapshot()
	require.NotNil(t, s.FinalResult)
	assert.Equal(t, "INFP", s.FinalResult.ResultType)
	assert.Equal(t, 80, s.ExpGained)
	assert.False(t, s.IsLoading)
}

func TestStore_InitWhileActive(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	err := h.store.InitQuest(context.Background(), domain.QuestDISC, h.token)
	assert.ErrorIs(t, err, ErrQuestInProgress)
	assert.Equal(t, domain.QuestMBTI, h.store.Snapshot().QuestID)
}

func TestStore_InitUnknownQuest(t *testing.T) {
	h := newHarness(t)

	err := h.store.InitQuest(context.Background(), "tarot", h.token)
	assert.ErrorIs(t, err, domain.ErrUnknownQuest)
	assert.Equal(t, domain.PhaseIdle, h.store.Snapshot().Phase)
}

func TestStore_ConnectFailureReturnsToIdle(t *testing.T) {
	h := newHarness(t)

	err := h.store.InitQuest(context.Background(), domain.QuestMBTI, "expired")
	require.ErrorIs(t, err, channel.ErrHandshake)

	s := h.store.Snapshot()
	assert.Equal(t, domain.PhaseIdle, s.Phase)
	assert.ErrorIs(t, s.LastError, channel.ErrHandshake)
	assert.Nil(t, s.CurrentQuestion)
}

func TestStore_ResetIdempotent(t *testing.T) {
	h := newHarness(t)

	h.store.ResetQuest()
	first := h.store.Snapshot()
	h.store.ResetQuest()
	assert.Equal(t, first, h.store.Snapshot())

	qc := h.start(t)
	h.store.ResetQuest()
	require.NoError(t, qc.WaitClosed(wait))
	afterSession := h.store.Snapshot()
	h.store.ResetQuest()

	assert.Equal(t, Snapshot{}, afterSession)
	assert.Equal(t, afterSession, h.store.Snapshot())
	assert.ErrorIs(t, h.store.SubmitAnswer("1", 0), ErrNoActiveQuestion)
}

func TestStore_SubscribeSeesEveryChange(t *testing.T) {
	h := newHarness(t)

	var mu sync.Mutex
	var phases []domain.Phase
	unsubscribe := h.store.Subscribe(func(s Snapshot) {
		mu.Lock()
		phases = append(phases, s.Phase)
		mu.Unlock()
	})

	h.start(t)
	unsubscribe()
	unsubscribe()
	h.store.ResetQuest()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.Phase{
		domain.PhaseConnecting,
		domain.PhaseAwaitingQuestion,
		domain.PhaseQuestionActive,
	}, phases)
}
