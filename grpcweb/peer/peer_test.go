package peer

import (
	"context"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/qaforge/dashrpc/grpcweb/codec"
	"github.com/qaforge/dashrpc/grpcweb/server"
	"github.com/qaforge/dashrpc/grpcweb/unary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const echoPath = "/demo.EchoService/Echo"

var textCodec = codec.NewCodec(
	func(s string) ([]byte, error) { return []byte(s), nil },
	func(data []byte) (string, error) { return string(data), nil },
)

func newSignalServer(t *testing.T) string {
	t.Helper()
	srv := server.New(nil)
	srv.RegisterHandler(echoPath, server.MakeHandler(textCodec, textCodec,
		func(ctx context.Context, req string) (string, error) { return "echo: " + req, nil }))
	ts := httptest.NewServer(NewAnswerer(srv, nil))
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dialSignal(t *testing.T, url string) *signaller {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	sig := &signaller{conn: ws}
	t.Cleanup(func() { _ = sig.close() })
	return sig
}

func TestAnswererRejectsUnexpectedMessage(t *testing.T) {
	sig := dialSignal(t, newSignalServer(t))

	require.NoError(t, sig.send("hello", map[string]string{}, "r-1"))
	msg, err := sig.read()
	require.NoError(t, err)
	assert.Equal(t, MsgTypeError, msg.Type)
	assert.Equal(t, "r-1", msg.RequestID)

	payload, err := decodePayload[ErrorPayload](msg)
	require.NoError(t, err)
	assert.Contains(t, payload.Message, `unexpected message type "hello"`)
}

func TestAnswererRejectsInvalidOffer(t *testing.T) {
	sig := dialSignal(t, newSignalServer(t))

	require.NoError(t, sig.send(MsgTypeOffer, SessionPayload{SDP: "not an sdp"}, "r-2"))
	msg, err := sig.read()
	require.NoError(t, err)
	assert.Equal(t, MsgTypeError, msg.Type)

	payload, err := decodePayload[ErrorPayload](msg)
	require.NoError(t, err)
	assert.Contains(t, payload.Message, "remote description")
}

func TestAnswererQueuesEarlyCandidates(t *testing.T) {
	s := &session{}
	require.NoError(t, s.addICECandidate(webrtc.ICECandidateInit{
		Candidate: "candidate:1 1 udp 2130706431 127.0.0.1 50000 typ host",
	}))
	assert.Len(t, s.pendingICE, 1)
}

// TestDialAndCall negotiates a real loopback connection.
//
// Run with: E2E_TEST=1 go test -run TestDialAndCall ./grpcweb/peer
func TestDialAndCall(t *testing.T) {
	if os.Getenv("E2E_TEST") == "" {
		t.Skip("E2E tests disabled. Set E2E_TEST=1 to run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := Dial(ctx, newSignalServer(t), nil)
	require.NoError(t, err)
	defer conn.Close()

	exec := unary.NewExecutor(conn.Transport(), nil)
	got, err := unary.Invoke(ctx, exec, echoPath, "over webrtc", textCodec, textCodec)
	require.NoError(t, err)
	assert.Equal(t, "echo: over webrtc", got)
}
