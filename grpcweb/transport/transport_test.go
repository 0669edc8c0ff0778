package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/qaforge/dashrpc/grpcweb/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransportRoundTrip(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", ContentType)
		w.Header().Set("Grpc-Status", "0")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("frames"))
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL + "/")
	resp, err := tr.RoundTrip(context.Background(), &codec.RequestEnvelope{
		Path:    "/testgen.TestCaseService/GenerateTestCases",
		Headers: map[string]string{"content-type": ContentType, HeaderGRPCWeb: "1"},
		Body:    []byte("request"),
	})
	require.NoError(t, err)

	assert.Equal(t, "/testgen.TestCaseService/GenerateTestCases", gotPath)
	assert.Equal(t, ContentType, gotContentType)
	assert.Equal(t, []byte("request"), gotBody)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", resp.Headers["grpc-status"])
	assert.Equal(t, []byte("frames"), resp.Body)
	assert.Equal(t, server.URL, tr.BaseURL())
}

func TestHTTPTransportNon200IsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer server.Close()

	resp, err := NewHTTPTransport(server.URL).RoundTrip(context.Background(), &codec.RequestEnvelope{Path: "/a.B/C"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestHTTPTransportResponseTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, WithMaxResponseBytes(16), WithHTTPClient(server.Client()))
	_, err := tr.RoundTrip(context.Background(), &codec.RequestEnvelope{Path: "/a.B/C"})
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestHTTPTransportNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewHTTPTransport(url).RoundTrip(context.Background(), &codec.RequestEnvelope{Path: "/a.B/C"})
	assert.Error(t, err)
}

func TestHTTPTransportCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := NewHTTPTransport(server.URL).RoundTrip(ctx, &codec.RequestEnvelope{Path: "/a.B/C"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// fakeDataChannel is an in-memory DataChannel. When respond is set, every
// sent request is answered asynchronously like a remote peer would.
type fakeDataChannel struct {
	mu        sync.Mutex
	onMessage func(msg webrtc.DataChannelMessage)
	onClose   func()
	onError   func(err error)
	sent      [][]byte
	closed    bool
	respond   func(req *codec.RequestEnvelope) *codec.PeerResponse
}

func (f *fakeDataChannel) Send(data []byte) error {
	f.mu.Lock()
	f.sent = append(f.sent, data)
	respond := f.respond
	f.mu.Unlock()

	if respond != nil {
		req, err := codec.DecodeRequest(data)
		if err != nil {
			return err
		}
		resp := respond(req)
		if resp != nil {
			encoded, err := codec.EncodePeerResponse(*resp)
			if err != nil {
				return err
			}
			go f.deliver(encoded)
		}
	}
	return nil
}

func (f *fakeDataChannel) deliver(data []byte) {
	f.mu.Lock()
	onMessage := f.onMessage
	f.mu.Unlock()
	onMessage(webrtc.DataChannelMessage{Data: data})
}

func (f *fakeDataChannel) Close() error {
	f.mu.Lock()
	f.closed = true
	onClose := f.onClose
	f.mu.Unlock()
	if onClose != nil {
		onClose()
	}
	return nil
}

func (f *fakeDataChannel) OnMessage(handler func(msg webrtc.DataChannelMessage)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onMessage = handler
}

func (f *fakeDataChannel) OnClose(handler func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onClose = handler
}

func (f *fakeDataChannel) OnError(handler func(err error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onError = handler
}

func echoPeer(req *codec.RequestEnvelope) *codec.PeerResponse {
	return &codec.PeerResponse{
		Headers: map[string]string{HeaderRequestID: req.Headers[HeaderRequestID], "path": req.Path},
		Body:    req.Body,
	}
}

func TestDataChannelTransportRoundTrip(t *testing.T) {
	dc := &fakeDataChannel{respond: echoPeer}
	tr := NewPeerTransport(dc)

	resp, err := tr.RoundTrip(context.Background(), &codec.RequestEnvelope{
		Path:    "/testgen.KnowledgeService/QueryKnowledge",
		Headers: map[string]string{"content-type": ContentType},
		Body:    []byte("frames"),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []byte("frames"), resp.Body)
	assert.Equal(t, "/testgen.KnowledgeService/QueryKnowledge", resp.Headers["path"])
	assert.NotEmpty(t, resp.Headers[HeaderRequestID])
	assert.Empty(t, tr.pending)
}

func TestDataChannelTransportKeepsCallerRequestID(t *testing.T) {
	dc := &fakeDataChannel{respond: echoPeer}
	tr := NewPeerTransport(dc)

	headers := map[string]string{HeaderRequestID: "req-42"}
	resp, err := tr.RoundTrip(context.Background(), &codec.RequestEnvelope{Path: "/a.B/C", Headers: headers})
	require.NoError(t, err)
	assert.Equal(t, "req-42", resp.Headers[HeaderRequestID])
	assert.Len(t, headers, 1, "caller headers must not be mutated")
}

func TestDataChannelTransportConcurrentCalls(t *testing.T) {
	dc := &fakeDataChannel{respond: echoPeer}
	tr := NewPeerTransport(dc)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := []byte{byte(i)}
			resp, err := tr.RoundTrip(context.Background(), &codec.RequestEnvelope{Path: "/a.B/C", Body: body})
			if assert.NoError(t, err) {
				assert.Equal(t, body, resp.Body)
			}
		}(i)
	}
	wg.Wait()
}

func TestDataChannelTransportCancel(t *testing.T) {
	dc := &fakeDataChannel{}
	tr := NewPeerTransport(dc)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := tr.RoundTrip(ctx, &codec.RequestEnvelope{Path: "/a.B/C"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	tr.mu.Lock()
	assert.Empty(t, tr.pending)
	tr.mu.Unlock()
}

func TestDataChannelTransportClose(t *testing.T) {
	dc := &fakeDataChannel{}
	tr := NewPeerTransport(dc)

	errCh := make(chan error, 1)
	go func() {
		_, err := tr.RoundTrip(context.Background(), &codec.RequestEnvelope{Path: "/a.B/C"})
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		dc.mu.Lock()
		defer dc.mu.Unlock()
		return len(dc.sent) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, tr.Close())
	assert.ErrorIs(t, <-errCh, ErrChannelClosed)
	assert.True(t, dc.closed)

	_, err := tr.RoundTrip(context.Background(), &codec.RequestEnvelope{Path: "/a.B/C"})
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestDataChannelTransportIgnoresGarbage(t *testing.T) {
	dc := &fakeDataChannel{}
	tr := NewPeerTransport(dc)

	dc.deliver([]byte{0x01})
	unmatched, _ := codec.EncodePeerResponse(codec.PeerResponse{Headers: map[string]string{HeaderRequestID: "nobody"}})
	dc.deliver(unmatched)
	assert.Empty(t, tr.pending)
}
