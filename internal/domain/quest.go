package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownQuest is returned when a quest identifier is not one of the
// supported assessment instruments.
var ErrUnknownQuest = errors.New("unknown quest")

// QuestID identifies an assessment instrument.
type QuestID string

const (
	QuestMBTI      QuestID = "mbti"
	QuestBigFive   QuestID = "bigfive"
	QuestDISC      QuestID = "disc"
	QuestEnneagram QuestID = "enneagram"
	QuestGallup    QuestID = "gallup"
)

// AllQuests returns every quest in map order.
func AllQuests() []QuestID {
	return []QuestID{QuestMBTI, QuestBigFive, QuestEnneagram, QuestDISC, QuestGallup}
}

// ParseQuestID normalizes s and validates it against the known quests.
// The backend's "big_five" spelling is accepted as an alias.
func ParseQuestID(s string) (QuestID, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "big_five" {
		v = string(QuestBigFive)
	}
	for _, q := range AllQuests() {
		if string(q) == v {
			return q, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownQuest, s)
}

// DisplayName returns the human-readable instrument name.
func (q QuestID) DisplayName() string {
	switch q {
	case QuestMBTI:
		return "MBTI"
	case QuestBigFive:
		return "Big Five"
	case QuestDISC:
		return "DISC"
	case QuestEnneagram:
		return "Enneagram"
	case QuestGallup:
		return "Gallup"
	default:
		return string(q)
	}
}

type QuestionType string

const (
	QuestionQuantitative  QuestionType = "QUANTITATIVE"
	QuestionSoulNarrative QuestionType = "SOUL_NARRATIVE"
)

// Option is one closed-form answer choice.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is a single prompt delivered by the quest service.
type Question struct {
	ID             string       `json:"id"`
	Type           QuestionType `json:"type"`
	Text           string       `json:"text"`
	Options        []Option     `json:"options,omitempty"`
	VisualFeedback string       `json:"visualFeedback,omitempty"`
}

// IsFreeText reports whether the question expects an open answer.
// Quantitative questions without options are also answered as free text.
func (q Question) IsFreeText() bool {
	return q.Type == QuestionSoulNarrative || len(q.Options) == 0
}

// QuestUpdate is the payload of first_question and next_question events.
type QuestUpdate struct {
	Question      *Question `json:"question,omitempty"`
	Narrative     string    `json:"narrative,omitempty"`
	GuideMessage  string    `json:"guideMessage,omitempty"`
	TotalSteps    *int      `json:"totalSteps,omitempty"`
	QuestionIndex *int      `json:"questionIndex,omitempty"`
}

// QuestComplete is the payload of quest_complete.
type QuestComplete struct {
	Message  string `json:"message"`
	TotalExp int    `json:"totalExp,omitempty"`
}

// QuestError is the payload of the server's error event.
type QuestError struct {
	Message string `json:"message"`
}

// StartQuest is the payload of the start_quest command.
type StartQuest struct {
	QuestID QuestID `json:"questId"`
}

// SubmitAnswer is the payload of the submit_answer command.
type SubmitAnswer struct {
	Answer        string `json:"answer"`
	QuestionIndex int    `json:"questionIndex"`
}

// LevelInfo describes the player's level after a quest.
type LevelInfo struct {
	Level        int `json:"level"`
	Exp          int `json:"exp"`
	NextLevelExp int `json:"next_level_exp"`
	PrevLevelExp int `json:"prev_level_exp"`
}

// FinalResult is the payload of final_result.
type FinalResult struct {
	QuestID         string             `json:"quest_id"`
	ResultType      string             `json:"result_type"`
	Scores          map[string]float64 `json:"scores"`
	DimensionScores map[string]float64 `json:"dimension_scores"`
	Analysis        string             `json:"analysis"`
	LevelInfo       *LevelInfo         `json:"level_info,omitempty"`
	ClassID         string             `json:"class_id,omitempty"`
	NewTalents      []string           `json:"new_talents,omitempty"`
}

// LevelUp is what a final result contributes to the signed-in user.
type LevelUp struct {
	Level          int
	Exp            int
	ExpToNextLevel int
	ClassID        string
}

// LevelUp extracts the level change carried by the result, if any.
func (r FinalResult) LevelUp() (LevelUp, bool) {
	if r.LevelInfo == nil {
		return LevelUp{}, false
	}
	return LevelUp{
		Level:          r.LevelInfo.Level,
		Exp:            r.LevelInfo.Exp,
		ExpToNextLevel: r.LevelInfo.NextLevelExp,
		ClassID:        r.ClassID,
	}, true
}

// QuestResponse is returned by the REST quest endpoints.
type QuestResponse struct {
	SessionID   string    `json:"sessionId"`
	Narrative   string    `json:"narrative"`
	Question    *Question `json:"question,omitempty"`
	IsCompleted bool      `json:"isCompleted"`
}

// InteractRequest is the body of POST /quests/interact.
type InteractRequest struct {
	SessionID string  `json:"sessionId"`
	QuestID   QuestID `json:"questId"`
	Answer    string  `json:"answer"`
}
