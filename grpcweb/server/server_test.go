package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/qaforge/dashrpc/grpcweb/codec"
	"github.com/qaforge/dashrpc/grpcweb/transport"
	"github.com/qaforge/dashrpc/grpcweb/unary"
	"github.com/qaforge/dashrpc/pkg/rpcmetrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const echoPath = "/testgen.TestCaseService/GenerateTestCases"

var stringCodec = codec.NewCodec(
	func(s string) ([]byte, error) { return []byte(s), nil },
	func(data []byte) (string, error) { return string(data), nil },
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer() *Server {
	s := New(nil)
	s.RegisterHandler(echoPath, MakeHandler(stringCodec, stringCodec,
		func(ctx context.Context, req string) (string, error) {
			switch req {
			case "":
				return "", codec.NewRPCError(codec.StatusInvalidArgument, "story is required")
			case "panic-free failure":
				return "", errors.New("database unavailable")
			}
			return strings.ToUpper(req), nil
		}))
	return s
}

func TestGetRegisteredMethods(t *testing.T) {
	s := New(nil)
	noop := func(ctx context.Context, req *Request) ([]byte, error) { return nil, nil }
	s.RegisterHandler("/b.Svc/Two", noop)
	s.RegisterHandler("/a.Svc/One", noop)
	s.RegisterHandler("/b.Svc/One", noop)
	assert.Equal(t, []string{"/a.Svc/One", "/b.Svc/One", "/b.Svc/Two"}, s.GetRegisteredMethods())

	s.UnregisterHandler("/b.Svc/Two")
	assert.Equal(t, []string{"/a.Svc/One", "/b.Svc/One"}, s.GetRegisteredMethods())
}

func serve(t *testing.T, s *Server, path, message string) *codec.UnaryBody {
	t.Helper()
	body, err := codec.EncodeMessage(stringCodec, message)
	require.NoError(t, err)
	resp := s.Serve(context.Background(), &codec.RequestEnvelope{
		Path:    path,
		Headers: map[string]string{transport.HeaderRequestID: "req-1"},
		Body:    body,
	})
	assert.Equal(t, "req-1", resp.Headers[transport.HeaderRequestID])

	result, err := codec.DecodeUnaryBody(resp.Body, resp.Headers)
	require.NoError(t, err)
	return result
}

func TestServe(t *testing.T) {
	s := newTestServer()

	t.Run("ok", func(t *testing.T) {
		result := serve(t, s, echoPath, "as a user")
		assert.Equal(t, codec.StatusOK, result.Status)
		assert.Equal(t, []byte("AS A USER"), result.Message)
	})
	t.Run("rpc error", func(t *testing.T) {
		result := serve(t, s, echoPath, "")
		assert.Equal(t, codec.StatusInvalidArgument, result.Status)
		assert.Equal(t, "story is required", result.StatusText)
		assert.Nil(t, result.Message)
	})
	t.Run("plain error", func(t *testing.T) {
		result := serve(t, s, echoPath, "panic-free failure")
		assert.Equal(t, codec.StatusInternal, result.Status)
		assert.Equal(t, "database unavailable", result.StatusText)
	})
	t.Run("unknown method", func(t *testing.T) {
		result := serve(t, s, "/testgen.TestCaseService/Nope", "x")
		assert.Equal(t, codec.StatusUnimplemented, result.Status)
		assert.Contains(t, result.StatusText, "/testgen.TestCaseService/Nope")
	})
}

func TestServeMalformedBody(t *testing.T) {
	s := newTestServer()
	resp := s.Serve(context.Background(), &codec.RequestEnvelope{Path: echoPath, Body: []byte{0, 0, 0}})

	result, err := codec.DecodeUnaryBody(resp.Body, nil)
	require.NoError(t, err)
	assert.Equal(t, codec.StatusInvalidArgument, result.Status)
}

func TestServeHandlerTimeout(t *testing.T) {
	s := New(&Options{Timeout: 10 * time.Millisecond})
	s.RegisterHandler(echoPath, func(ctx context.Context, req *Request) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	result := serve(t, s, echoPath, "x")
	assert.Equal(t, codec.StatusDeadlineExceeded, result.Status)
}

func TestServeMetrics(t *testing.T) {
	m := rpcmetrics.NewSubsystem(prometheus.NewRegistry(), "server")
	s := New(&Options{Timeout: time.Second, Metrics: m})
	s.RegisterHandler(echoPath, MakeHandler(stringCodec, stringCodec,
		func(ctx context.Context, req string) (string, error) { return req, nil }))

	serve(t, s, echoPath, "x")
	serve(t, s, "/testgen.TestCaseService/Nope", "x")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls().WithLabelValues(echoPath, rpcmetrics.ModeServed, "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls().WithLabelValues("/testgen.TestCaseService/Nope", rpcmetrics.ModeServed, "UNIMPLEMENTED")))
}

func TestHTTPWithExecutor(t *testing.T) {
	httpServer := httptest.NewServer(NewEngine(newTestServer()))
	defer httpServer.Close()

	exec := unary.NewHTTPExecutor(httpServer.URL, nil)

	got, err := unary.Invoke(context.Background(), exec, echoPath, "as a user", stringCodec, stringCodec)
	require.NoError(t, err)
	assert.Equal(t, "AS A USER", got)

	_, err = unary.Invoke(context.Background(), exec, echoPath, "", stringCodec, stringCodec)
	var rpcErr *codec.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, codec.StatusInvalidArgument, rpcErr.Code)

	_, err = unary.Invoke(context.Background(), exec, "/testgen.Missing/Call", "x", stringCodec, stringCodec)
	assert.Equal(t, codec.StatusUnimplemented, codec.StatusOf(err))
}

func TestHTTPRejectsWrongContentType(t *testing.T) {
	engine := NewEngine(newTestServer())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, echoPath, bytes.NewReader(nil))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestHTTPPreflight(t *testing.T) {
	engine := NewEngine(newTestServer())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, echoPath, nil)
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

// pipeEnd is one side of an in-memory DataChannel pair.
type pipeEnd struct {
	mu        sync.Mutex
	peer      *pipeEnd
	onMessage func(webrtc.DataChannelMessage)
	onClose   func()
}

func newPipe() (*pipeEnd, *pipeEnd) {
	a, b := &pipeEnd{}, &pipeEnd{}
	a.peer, b.peer = b, a
	return a, b
}

func (p *pipeEnd) Send(data []byte) error {
	p.peer.mu.Lock()
	onMessage := p.peer.onMessage
	p.peer.mu.Unlock()
	if onMessage != nil {
		go onMessage(webrtc.DataChannelMessage{Data: data})
	}
	return nil
}

func (p *pipeEnd) Close() error {
	for _, end := range []*pipeEnd{p, p.peer} {
		end.mu.Lock()
		onClose := end.onClose
		end.mu.Unlock()
		if onClose != nil {
			onClose()
		}
	}
	return nil
}

func (p *pipeEnd) OnMessage(f func(webrtc.DataChannelMessage)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onMessage = f
}

func (p *pipeEnd) OnClose(f func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClose = f
}

func (p *pipeEnd) OnError(func(err error)) {}

func TestDataChannelWithExecutor(t *testing.T) {
	clientEnd, serverEnd := newPipe()
	newTestServer().serveDataChannel(serverEnd)

	tr := transport.NewPeerTransport(clientEnd)
	defer tr.Close()
	exec := unary.NewExecutor(tr, nil)

	var wg sync.WaitGroup
	for _, story := range []string{"one", "two", "three"} {
		wg.Add(1)
		go func(story string) {
			defer wg.Done()
			got, err := unary.Invoke(context.Background(), exec, echoPath, story, stringCodec, stringCodec)
			if assert.NoError(t, err) {
				assert.Equal(t, strings.ToUpper(story), got)
			}
		}(story)
	}
	wg.Wait()

	_, err := unary.Invoke(context.Background(), exec, echoPath, "", stringCodec, stringCodec)
	assert.Equal(t, codec.StatusInvalidArgument, codec.StatusOf(err))
}

func TestDataChannelHandlerRunsOffCallback(t *testing.T) {
	release := make(chan struct{})
	s := New(nil)
	s.RegisterHandler(echoPath, MakeHandler(stringCodec, stringCodec,
		func(ctx context.Context, req string) (string, error) {
			<-release
			return strings.ToUpper(req), nil
		}))

	clientEnd, serverEnd := newPipe()
	s.serveDataChannel(serverEnd)
	responses := make(chan []byte, 1)
	clientEnd.OnMessage(func(msg webrtc.DataChannelMessage) { responses <- msg.Data })

	frame, err := codec.EncodeFrame(codec.CreateDataFrame([]byte("slow")))
	require.NoError(t, err)
	data, err := codec.EncodeRequest(codec.RequestEnvelope{Path: echoPath, Body: frame})
	require.NoError(t, err)

	returned := make(chan struct{})
	go func() {
		serverEnd.onMessage(webrtc.DataChannelMessage{Data: data})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("message callback blocked on the handler")
	}

	close(release)
	select {
	case raw := <-responses:
		resp, err := codec.DecodePeerResponse(raw)
		require.NoError(t, err)
		body, err := codec.DecodeUnaryBody(resp.Body, resp.Headers)
		require.NoError(t, err)
		assert.Equal(t, codec.StatusOK, body.Status)
		assert.Equal(t, "SLOW", string(body.Message))
	case <-time.After(5 * time.Second):
		t.Fatal("no response after the handler was released")
	}
}
