package transport

import (
	"context"
	"maps"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pkg/errors"
	"github.com/qaforge/dashrpc/grpcweb/codec"
	"github.com/qaforge/dashrpc/pkg/rpclog"
	"go.uber.org/zap"
)

// ErrChannelClosed is returned for calls pending or issued after the
// DataChannel closed.
var ErrChannelClosed = errors.New("data channel closed")

// DataChannel abstracts webrtc.DataChannel for testability
type DataChannel interface {
	Send(data []byte) error
	Close() error
	OnMessage(f func(msg webrtc.DataChannelMessage))
	OnClose(f func())
	OnError(f func(err error))
}

// DataChannelTransport carries unary calls to a peer backend over a WebRTC
// DataChannel using the peer envelope format. Responses are matched to calls
// by the x-request-id header, which the peer echoes back.
type DataChannelTransport struct {
	dc      DataChannel
	mu      sync.Mutex
	pending map[string]chan *codec.PeerResponse
	closed  bool
	log     *rpclog.Log
}

// NewDataChannelTransport creates a transport from an open DataChannel.
// The transport takes over the channel's message, close and error callbacks.
func NewDataChannelTransport(dc *webrtc.DataChannel) *DataChannelTransport {
	return NewPeerTransport(dc)
}

// NewPeerTransport creates a transport over any DataChannel implementation,
// such as an in-memory pipe in tests.
func NewPeerTransport(dc DataChannel) *DataChannelTransport {
	t := &DataChannelTransport{
		dc:      dc,
		pending: make(map[string]chan *codec.PeerResponse),
		log:     rpclog.NewLog("DataChannelTransport"),
	}
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.handleMessage(msg.Data)
	})
	dc.OnClose(t.handleClose)
	dc.OnError(func(err error) {
		t.log.Warn("data channel error", zap.Error(err))
	})
	return t
}

func (t *DataChannelTransport) RoundTrip(ctx context.Context, req *codec.RequestEnvelope) (*Response, error) {
	headers := maps.Clone(req.Headers)
	if headers == nil {
		headers = map[string]string{}
	}
	requestID := headers[HeaderRequestID]
	if requestID == "" {
		requestID = uuid.NewString()
		headers[HeaderRequestID] = requestID
	}

	data, err := codec.EncodeRequest(codec.RequestEnvelope{
		Path:    req.Path,
		Headers: headers,
		Body:    req.Body,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode peer request")
	}

	ch := make(chan *codec.PeerResponse, 1)
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrChannelClosed
	}
	t.pending[requestID] = ch
	t.mu.Unlock()

	if err := t.dc.Send(data); err != nil {
		t.forget(requestID)
		return nil, errors.Wrap(err, "send over data channel")
	}

	select {
	case <-ctx.Done():
		t.forget(requestID)
		return nil, ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrChannelClosed
		}
		return &Response{
			StatusCode: http.StatusOK,
			Headers:    resp.Headers,
			Body:       resp.Body,
		}, nil
	}
}

func (t *DataChannelTransport) forget(requestID string) {
	t.mu.Lock()
	delete(t.pending, requestID)
	t.mu.Unlock()
}

// handleMessage routes one incoming response to its waiting call
func (t *DataChannelTransport) handleMessage(data []byte) {
	resp, err := codec.DecodePeerResponse(data)
	if err != nil {
		t.log.Warn("failed to decode peer response", zap.Error(err), zap.Int("size", len(data)))
		return
	}
	requestID := resp.Headers[HeaderRequestID]

	t.mu.Lock()
	ch, ok := t.pending[requestID]
	delete(t.pending, requestID)
	t.mu.Unlock()

	if !ok {
		// Late reply for a cancelled call, or a peer that does not echo ids.
		t.log.Debug("dropping unmatched peer response", zap.String("requestID", requestID))
		return
	}
	ch <- resp
}

func (t *DataChannelTransport) handleClose() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for id, ch := range t.pending {
		close(ch)
		delete(t.pending, id)
	}
}

// Close fails pending calls and closes the DataChannel.
func (t *DataChannelTransport) Close() error {
	t.handleClose()
	return t.dc.Close()
}
