package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Inbound actions a viewer may send over the score channel.
const (
	ActionGet   = "get"
	ActionInput = "input"
)

// Outbound message types.
const (
	MessageTypeScore    = "score"
	MessageTypeRoster   = "roster"
	MessageTypeSnapshot = "snapshot"
	MessageTypeError    = "error"
)

// Close code sent when a join names an unknown event.
const CloseUnknownEvent = 4004

// ClientMessage is the decoded inbound message: either a roster request
// (Get) or a hole score submission (Input).
type ClientMessage struct {
	Action string
	Input  *InputScore
}

// InputScore carries one validated hole score submission.
type InputScore struct {
	ParticipantID uuid.UUID
	HoleNumber    int
	Score         int
}

// ValidationError marks a malformed inbound message. It is returned to the
// viewer inline as a 400 reply; the connection stays open.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// rawClientMessage is the loose wire shape before validation.
type rawClientMessage struct {
	Action        string  `json:"action"`
	ParticipantID *string `json:"participant_id"`
	HoleNumber    *int    `json:"hole_number"`
	Score         *int    `json:"score"`
}

// ParseClientMessage decodes and validates one inbound frame.
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var raw rawClientMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Reason: "malformed JSON message"}
	}

	switch raw.Action {
	case ActionGet:
		return &ClientMessage{Action: ActionGet}, nil

	case ActionInput:
		if raw.ParticipantID == nil {
			return nil, &ValidationError{Reason: "participant_id is required"}
		}
		if raw.HoleNumber == nil || raw.Score == nil {
			return nil, &ValidationError{Reason: "hole_number and score are required"}
		}
		participantID, err := uuid.Parse(*raw.ParticipantID)
		if err != nil {
			return nil, &ValidationError{Reason: "participant_id must be a UUID"}
		}
		if *raw.HoleNumber < 1 {
			return nil, &ValidationError{Reason: "hole_number must be positive"}
		}
		if *raw.Score < 0 {
			return nil, &ValidationError{Reason: "score must be non-negative"}
		}
		return &ClientMessage{
			Action: ActionInput,
			Input: &InputScore{
				ParticipantID: participantID,
				HoleNumber:    *raw.HoleNumber,
				Score:         *raw.Score,
			},
		}, nil

	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown action %q", raw.Action)}
	}
}

// ServerMessage is the outbound envelope for every frame the gateway sends.
type ServerMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ErrorData is the inline error reply payload.
type ErrorData struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

func encodeServerMessage(msgType string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	return json.Marshal(ServerMessage{Type: msgType, Data: raw})
}

func encodeErrorMessage(status int, reason string) []byte {
	msg, err := encodeServerMessage(MessageTypeError, ErrorData{Status: status, Error: reason})
	if err != nil {
		// ErrorData cannot fail to marshal; keep the compiler honest.
		return []byte(`{"type":"error","data":{"status":500,"error":"internal error"}}`)
	}
	return msg
}
