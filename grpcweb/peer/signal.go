package peer

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const writeWait = 10 * time.Second

// signaller sends and receives Messages on a websocket. Writes may come from
// pion callbacks, so they are serialised.
type signaller struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *signaller) send(msgType string, payload any, requestID string) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal payload failed")
	}
	msgJSON, err := json.Marshal(Message{Type: msgType, Payload: payloadJSON, RequestID: requestID})
	if err != nil {
		return errors.Wrap(err, "marshal message failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, msgJSON)
}

func (s *signaller) read() (*Message, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	msg := &Message{}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, errors.Wrap(err, "invalid signalling message")
	}
	return msg, nil
}

func (s *signaller) close() error {
	s.mu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	s.mu.Unlock()
	return s.conn.Close()
}

func decodePayload[T any](msg *Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return v, errors.Wrapf(err, "invalid %s payload", msg.Type)
	}
	return v, nil
}
