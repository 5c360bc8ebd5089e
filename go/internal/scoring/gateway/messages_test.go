package gateway

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientMessageGet(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"action":"get"}`))
	require.NoError(t, err)
	assert.Equal(t, ActionGet, msg.Action)
	assert.Nil(t, msg.Input)
}

func TestParseClientMessageInput(t *testing.T) {
	participantID := uuid.New()
	frame := []byte(`{"action":"input","participant_id":"` + participantID.String() + `","hole_number":7,"score":4}`)

	msg, err := ParseClientMessage(frame)
	require.NoError(t, err)
	assert.Equal(t, ActionInput, msg.Action)
	require.NotNil(t, msg.Input)
	assert.Equal(t, participantID, msg.Input.ParticipantID)
	assert.Equal(t, 7, msg.Input.HoleNumber)
	assert.Equal(t, 4, msg.Input.Score)
}

func TestParseClientMessageRejections(t *testing.T) {
	participantID := uuid.New().String()

	tests := []struct {
		name   string
		frame  string
		reason string
	}{
		{"malformed json", `{"action":`, "malformed JSON message"},
		{"unknown action", `{"action":"subscribe"}`, `unknown action "subscribe"`},
		{"empty action", `{}`, `unknown action ""`},
		{"missing participant", `{"action":"input","hole_number":1,"score":4}`, "participant_id is required"},
		{"missing hole", `{"action":"input","participant_id":"` + participantID + `","score":4}`, "hole_number and score are required"},
		{"missing score", `{"action":"input","participant_id":"` + participantID + `","hole_number":1}`, "hole_number and score are required"},
		{"bad uuid", `{"action":"input","participant_id":"not-a-uuid","hole_number":1,"score":4}`, "participant_id must be a UUID"},
		{"hole zero", `{"action":"input","participant_id":"` + participantID + `","hole_number":0,"score":4}`, "hole_number must be positive"},
		{"negative score", `{"action":"input","participant_id":"` + participantID + `","hole_number":1,"score":-1}`, "score must be non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseClientMessage([]byte(tt.frame))
			assert.Nil(t, msg)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.reason, verr.Reason)
		})
	}
}

func TestParseClientMessageScoreZeroIsValid(t *testing.T) {
	// Zero strokes never happens in play, but the wire contract only
	// forbids negatives.
	participantID := uuid.New()
	frame := []byte(`{"action":"input","participant_id":"` + participantID.String() + `","hole_number":1,"score":0}`)

	msg, err := ParseClientMessage(frame)
	require.NoError(t, err)
	assert.Equal(t, 0, msg.Input.Score)
}

func TestEncodeServerMessageEnvelope(t *testing.T) {
	payload := map[string]int{"sum_score": 42}
	raw, err := encodeServerMessage(MessageTypeScore, payload)
	require.NoError(t, err)

	var envelope ServerMessage
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.Equal(t, MessageTypeScore, envelope.Type)

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(envelope.Data, &decoded))
	assert.Equal(t, 42, decoded["sum_score"])
}

func TestEncodeErrorMessage(t *testing.T) {
	raw := encodeErrorMessage(404, "participant not found")

	var envelope ServerMessage
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.Equal(t, MessageTypeError, envelope.Type)

	var data ErrorData
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, 404, data.Status)
	assert.Equal(t, "participant not found", data.Error)
}
