package channel

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event names on the quest wire protocol.
const (
	EventFirstQuestion = "first_question"
	EventNextQuestion  = "next_question"
	EventQuestComplete = "quest_complete"
	EventFinalResult   = "final_result"
	EventError         = "error"

	CommandStartQuest    = "start_quest"
	CommandSubmitAnswer  = "submit_answer"
	CommandRequestResult = "request_result"
)

var errMissingEvent = errors.New("frame has no event")

// Frame is one {event, data} message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func decodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("decoding frame: %w", err)
	}
	if f.Event == "" {
		return Frame{}, errMissingEvent
	}
	return f, nil
}

func encodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: data})
}
