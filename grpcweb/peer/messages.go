package peer

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
)

// Message is one signalling message on the websocket.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

// SessionPayload carries an SDP offer or answer.
type SessionPayload struct {
	SDP string `json:"sdp"`
}

// ICEPayload carries one trickled ICE candidate.
type ICEPayload struct {
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

// ErrorPayload for error messages
type ErrorPayload struct {
	Message string `json:"message"`
}

// Message types
const (
	MsgTypeOffer  = "offer"
	MsgTypeAnswer = "answer"
	MsgTypeICE    = "ice"
	MsgTypeError  = "error"
)
