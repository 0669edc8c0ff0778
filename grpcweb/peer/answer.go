package peer

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/pkg/errors"
	"github.com/qaforge/dashrpc/grpcweb/server"
	"github.com/qaforge/dashrpc/pkg/rpclog"
	"go.uber.org/zap"
)

// Answerer accepts offers over websocket signalling and serves every
// DataChannel the remote peer opens with a server.Server.
type Answerer struct {
	srv      *server.Server
	cfg      Config
	upgrader websocket.Upgrader
	log      *rpclog.Log
}

// NewAnswerer creates an Answerer. The cfg parameter is optional.
func NewAnswerer(srv *server.Server, cfg *Config) *Answerer {
	a := &Answerer{
		srv: srv,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: rpclog.NewLog("Answerer"),
	}
	if cfg != nil {
		a.cfg = *cfg
	}
	return a
}

func (a *Answerer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	sig := &signaller{conn: ws}
	defer sig.close()

	s := &session{answerer: a, sig: sig}
	for {
		msg, err := sig.read()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				a.log.Debug("signalling ended", zap.Error(err))
			}
			s.abandon()
			return
		}
		if err := s.handle(msg); err != nil {
			a.log.Warn("signalling failed", zap.String("type", msg.Type), zap.Error(err))
			_ = sig.send(MsgTypeError, ErrorPayload{Message: err.Error()}, msg.RequestID)
		}
	}
}

// session is the state of one websocket: at most one peer connection.
type session struct {
	answerer *Answerer
	sig      *signaller

	mu         sync.Mutex
	pc         *webrtc.PeerConnection
	answered   bool
	pendingICE []webrtc.ICECandidateInit
}

func (s *session) handle(msg *Message) error {
	switch msg.Type {
	case MsgTypeOffer:
		offer, err := decodePayload[SessionPayload](msg)
		if err != nil {
			return err
		}
		return s.answer(offer.SDP, msg.RequestID)
	case MsgTypeICE:
		ice, err := decodePayload[ICEPayload](msg)
		if err != nil {
			return err
		}
		return s.addICECandidate(ice.Candidate)
	}
	return errors.Errorf("unexpected message type %q", msg.Type)
}

func (s *session) answer(sdp, requestID string) error {
	s.mu.Lock()
	if s.pc != nil {
		s.mu.Unlock()
		return errors.New("offer already received")
	}
	pc, err := newPeerConnection(&s.answerer.cfg)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.pc = pc
	s.mu.Unlock()

	log := s.answerer.log
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		log.Info("serving data channel", zap.String("label", dc.Label()), zap.String("requestID", requestID))
		s.answerer.srv.ServeDataChannel(dc)
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug("peer connection state", zap.Stringer("state", state), zap.String("requestID", requestID))
		if state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateDisconnected {
			_ = pc.Close()
		}
	})

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}); err != nil {
		s.abandon()
		return errors.Wrap(err, "failed to set remote description")
	}

	// Candidates that arrived before the offer.
	s.mu.Lock()
	for _, candidate := range s.pendingICE {
		if err := pc.AddICECandidate(candidate); err != nil {
			log.Warn("failed to add queued candidate", zap.Error(err))
		}
	}
	s.pendingICE = nil
	s.mu.Unlock()

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		s.abandon()
		return errors.Wrap(err, "failed to create answer")
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		s.abandon()
		return errors.Wrap(err, "failed to set local description")
	}
	<-gathered

	if err := s.sig.send(MsgTypeAnswer, SessionPayload{SDP: pc.LocalDescription().SDP}, requestID); err != nil {
		s.abandon()
		return errors.Wrap(err, "failed to send answer")
	}
	s.mu.Lock()
	s.answered = true
	s.mu.Unlock()
	return nil
}

func (s *session) addICECandidate(candidate webrtc.ICECandidateInit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pc == nil || s.pc.RemoteDescription() == nil {
		s.pendingICE = append(s.pendingICE, candidate)
		return nil
	}
	return s.pc.AddICECandidate(candidate)
}

// abandon closes a peer connection that never got its answer out.
func (s *session) abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pc != nil && !s.answered {
		_ = s.pc.Close()
	}
}
