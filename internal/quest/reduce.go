package quest

import (
	"errors"
	"fmt"

	"github.com/traitquest/traitquest/internal/domain"
)

// DefaultTotalSteps is assumed until the service reports totalSteps.
const DefaultTotalSteps = 10

// Snapshot is a read-only view of one quest attempt.
type Snapshot struct {
	Phase     domain.Phase
	SessionID string
	QuestID   domain.QuestID

	CurrentQuestion *domain.Question
	Narrative       string
	GuideMessage    string
	QuestionIndex   int
	TotalSteps      int

	IsLoading   bool
	IsCompleted bool
	ExpGained   int
	FinalResult *domain.FinalResult

	// Submissions counts answers sent in this session.
	Submissions int
	LastError   error
}

// Progress returns the completed fraction of the quest in [0, 1].
func (s Snapshot) Progress() float64 {
	if s.IsCompleted {
		return 1
	}
	if s.TotalSteps <= 0 {
		return 0
	}
	p := float64(s.QuestionIndex) / float64(s.TotalSteps)
	if p > 1 {
		return 1
	}
	return p
}

func (s Snapshot) clone() Snapshot {
	if s.CurrentQuestion != nil {
		q := *s.CurrentQuestion
		q.Options = append([]domain.Option(nil), q.Options...)
		s.CurrentQuestion = &q
	}
	if s.FinalResult != nil {
		r := *s.FinalResult
		s.FinalResult = &r
	}
	return s
}

type action interface {
	name() string
}

type (
	actInit struct {
		questID   domain.QuestID
		sessionID string
	}
	actConnected struct {
		sessionID string
	}
	actConnectFailed struct {
		sessionID string
		err       error
	}
	actSubmit struct {
		index int
	}
	actSendFailed struct {
		sessionID string
		err       error
	}
	actSubmitTimedOut struct {
		sessionID   string
		submissions int
	}
	actRequestResult struct{}
	actQuestion      struct {
		update domain.QuestUpdate
		first  bool
	}
	actComplete struct {
		payload domain.QuestComplete
	}
	actFinalResult struct {
		result domain.FinalResult
	}
	actServerError struct {
		message string
	}
	actReset struct{}
)

func (actInit) name() string           { return "init" }
func (actConnected) name() string      { return "connected" }
func (actConnectFailed) name() string  { return "connect_failed" }
func (actSubmit) name() string         { return "submit" }
func (actSendFailed) name() string     { return "send_failed" }
func (actSubmitTimedOut) name() string { return "submit_timed_out" }
func (actRequestResult) name() string  { return "request_result" }
func (actQuestion) name() string       { return "question" }
func (actComplete) name() string       { return "complete" }
func (actFinalResult) name() string    { return "final_result" }
func (actServerError) name() string    { return "server_error" }
func (actReset) name() string          { return "reset" }

// errDropped marks an action that does not apply to the current state.
// It never leaves the store.
var errDropped = errors.New("action dropped")

// reduce returns the state after applying a to s. A non-nil error means s is
// returned unchanged.
func reduce(s Snapshot, a action) (Snapshot, error) {
	switch a := a.(type) {
	case actReset:
		return Snapshot{}, nil

	case actInit:
		if s.Phase != domain.PhaseIdle {
			return s, ErrQuestInProgress
		}
		return Snapshot{
			Phase:      domain.PhaseConnecting,
			SessionID:  a.sessionID,
			QuestID:    a.questID,
			TotalSteps: DefaultTotalSteps,
		}, nil

	case actConnected:
		if s.SessionID != a.sessionID || s.Phase == domain.PhaseIdle {
			return s, ErrSessionEnded
		}
		if s.Phase == domain.PhaseConnecting {
			s.Phase = domain.PhaseAwaitingQuestion
		}
		return s, nil

	case actConnectFailed:
		if s.SessionID != a.sessionID {
			return s, errDropped
		}
		return Snapshot{LastError: a.err}, nil

	case actSubmit:
		if s.IsLoading {
			return s, ErrSubmissionPending
		}
		if s.Phase != domain.PhaseQuestionActive || s.CurrentQuestion == nil {
			return s, ErrNoActiveQuestion
		}
		if a.index >= 0 {
			s.QuestionIndex = a.index
		}
		s.Phase = domain.PhaseSubmitting
		s.IsLoading = true
		s.Submissions++
		s.LastError = nil
		return s, nil

	case actSendFailed:
		if s.SessionID != a.sessionID || s.Phase == domain.PhaseIdle {
			return s, errDropped
		}
		if s.Phase == domain.PhaseSubmitting {
			s.Phase = domain.PhaseQuestionActive
		}
		s.IsLoading = false
		s.LastError = a.err
		return s, nil

	case actSubmitTimedOut:
		if s.SessionID != a.sessionID || s.Submissions != a.submissions || s.Phase != domain.PhaseSubmitting {
			return s, errDropped
		}
		s.Phase = domain.PhaseQuestionActive
		s.IsLoading = false
		s.LastError = ErrSubmitTimeout
		return s, nil

	case actRequestResult:
		if s.Phase != domain.PhaseCompleted {
			return s, ErrNotCompleted
		}
		if s.IsLoading {
			return s, ErrSubmissionPending
		}
		s.IsLoading = true
		s.LastError = nil
		return s, nil

	case actQuestion:
		if s.Phase == domain.PhaseIdle || s.Phase == domain.PhaseCompleted {
			return s, errDropped
		}
		return applyQuestion(s, a.update, a.first), nil

	case actComplete:
		if s.Phase == domain.PhaseIdle {
			return s, errDropped
		}
		s.Phase = domain.PhaseCompleted
		s.IsCompleted = true
		s.IsLoading = false
		s.Narrative = a.payload.Message
		s.ExpGained = a.payload.TotalExp
		return s, nil

	case actFinalResult:
		if s.Phase == domain.PhaseIdle {
			return s, errDropped
		}
		r := a.result
		s.FinalResult = &r
		s.IsLoading = false
		return s, nil

	case actServerError:
		if s.Phase == domain.PhaseIdle {
			return s, errDropped
		}
		// A rejected answer leaves the question open for another try.
		if s.Phase == domain.PhaseSubmitting {
			s.Phase = domain.PhaseQuestionActive
		}
		s.IsLoading = false
		s.LastError = ServerError{Message: a.message}
		return s, nil
	}
	return s, fmt.Errorf("unknown action %T", a)
}

func applyQuestion(s Snapshot, u domain.QuestUpdate, first bool) Snapshot {
	switch {
	case u.QuestionIndex != nil:
		s.QuestionIndex = *u.QuestionIndex
	case first:
		s.QuestionIndex = 0
	case s.Phase == domain.PhaseSubmitting || s.Phase == domain.PhaseQuestionActive:
		s.QuestionIndex++
	}
	if u.TotalSteps != nil && *u.TotalSteps > 0 {
		s.TotalSteps = *u.TotalSteps
	} else if s.TotalSteps <= 0 {
		s.TotalSteps = DefaultTotalSteps
	}

	if u.Question != nil {
		q := *u.Question
		q.Options = append([]domain.Option(nil), q.Options...)
		if q.ID == "" {
			q.ID = fmt.Sprintf("q_%d", s.QuestionIndex)
		}
		s.CurrentQuestion = &q
	}
	s.Narrative = u.Narrative
	if u.GuideMessage != "" {
		s.GuideMessage = u.GuideMessage
	}
	s.IsLoading = false
	s.LastError = nil

	if s.CurrentQuestion != nil {
		s.Phase = domain.PhaseQuestionActive
	} else {
		s.Phase = domain.PhaseAwaitingQuestion
	}
	return s
}
