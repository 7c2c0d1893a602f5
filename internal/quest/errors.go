package quest

import "errors"

var (
	// ErrQuestInProgress is returned by InitQuest while a session is active.
	ErrQuestInProgress = errors.New("quest already in progress")

	// ErrSubmissionPending is returned while an answer awaits its reply.
	ErrSubmissionPending = errors.New("answer submission pending")

	// ErrNoActiveQuestion is returned when there is no question to answer.
	ErrNoActiveQuestion = errors.New("no active question")

	// ErrNotCompleted is returned by RequestResult before quest_complete.
	ErrNotCompleted = errors.New("quest not completed")

	// ErrSubmitTimeout is recorded when a submission gets no reply in time.
	ErrSubmitTimeout = errors.New("answer submission timed out")

	// ErrSessionEnded is returned when the session was reset mid-operation.
	ErrSessionEnded = errors.New("quest session ended")
)

// ServerError is an application error reported by the quest service.
type ServerError struct {
	Message string
}

func (e ServerError) Error() string {
	return "quest service: " + e.Message
}
