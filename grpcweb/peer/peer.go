// Package peer opens the WebRTC DataChannels that carry gRPC-Web calls to
// peer backends.
//
// Signalling is a short websocket exchange: the dialling side sends an
// "offer" with its complete SDP, the answering side replies with an
// "answer". Candidates may also be trickled as "ice" messages. Once the
// DataChannel opens, the websocket is closed and calls flow over the
// channel in the peer envelope format.
package peer

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/pkg/errors"
	"github.com/qaforge/dashrpc/grpcweb/transport"
)

// ChannelLabel is the label of the DataChannel calls travel on.
const ChannelLabel = "grpc-web"

// Config configures a peer connection
type Config struct {
	// ICEServers defaults to a public STUN server.
	ICEServers []webrtc.ICEServer
	// Header is sent with the websocket handshake, e.g. authorization.
	Header http.Header
}

func newPeerConnection(cfg *Config) (*webrtc.PeerConnection, error) {
	iceServers := cfg.ICEServers
	if len(iceServers) == 0 {
		iceServers = []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		}
	}
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create peer connection")
	}
	return pc, nil
}

// Conn is an established DataChannel to a peer backend.
type Conn struct {
	pc        *webrtc.PeerConnection
	dc        *webrtc.DataChannel
	transport *transport.DataChannelTransport
}

// Dial negotiates a DataChannel with the answering peer at signalURL
// (ws:// or wss://) and returns once the channel is open.
func Dial(ctx context.Context, signalURL string, cfg *Config) (*Conn, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	pc, err := newPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := dial(ctx, pc, signalURL, cfg)
	if err != nil {
		_ = pc.Close()
		return nil, err
	}
	return conn, nil
}

func dial(ctx context.Context, pc *webrtc.PeerConnection, signalURL string, cfg *Config) (*Conn, error) {
	dc, err := pc.CreateDataChannel(ChannelLabel, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create data channel")
	}
	t := transport.NewDataChannelTransport(dc)

	opened := make(chan struct{})
	dc.OnOpen(func() { close(opened) })
	failed := make(chan struct{})
	var failOnce sync.Once
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateClosed {
			failOnce.Do(func() { close(failed) })
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create offer")
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return nil, errors.Wrap(err, "failed to set local description")
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, signalURL, cfg.Header)
	if err != nil {
		return nil, errors.Wrap(err, "websocket dial failed")
	}
	sig := &signaller{conn: ws}
	defer sig.close()
	stop := context.AfterFunc(ctx, func() { _ = ws.Close() })
	defer stop()

	requestID := uuid.NewString()
	if err := sig.send(MsgTypeOffer, SessionPayload{SDP: pc.LocalDescription().SDP}, requestID); err != nil {
		return nil, errors.Wrap(err, "failed to send offer")
	}
	if err := awaitAnswer(ctx, sig, pc); err != nil {
		return nil, err
	}

	select {
	case <-opened:
		return &Conn{pc: pc, dc: dc, transport: t}, nil
	case <-failed:
		return nil, errors.New("peer connection failed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// awaitAnswer reads signalling messages until the answer is applied.
func awaitAnswer(ctx context.Context, sig *signaller, pc *webrtc.PeerConnection) error {
	for {
		msg, err := sig.read()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "signalling closed before answer")
		}

		switch msg.Type {
		case MsgTypeAnswer:
			answer, err := decodePayload[SessionPayload](msg)
			if err != nil {
				return err
			}
			if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer.SDP}); err != nil {
				return errors.Wrap(err, "failed to set remote description")
			}
			return nil
		case MsgTypeError:
			payload, err := decodePayload[ErrorPayload](msg)
			if err != nil {
				return err
			}
			return errors.Errorf("peer rejected offer: %s", payload.Message)
		}
	}
}

// Transport returns the transport that sends calls over the channel.
func (c *Conn) Transport() *transport.DataChannelTransport {
	return c.transport
}

// DataChannel returns the underlying WebRTC data channel
func (c *Conn) DataChannel() *webrtc.DataChannel {
	return c.dc
}

// ConnectionState returns the current connection state
func (c *Conn) ConnectionState() webrtc.PeerConnectionState {
	return c.pc.ConnectionState()
}

// Close fails pending calls and closes the peer connection.
func (c *Conn) Close() error {
	_ = c.transport.Close()
	return c.pc.Close()
}
