package server

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/qaforge/dashrpc/grpcweb/codec"
	"github.com/qaforge/dashrpc/grpcweb/transport"
	"go.uber.org/zap"
)

// ServeDataChannel answers peer envelope requests arriving on dc until it
// closes. Each request is handled on its own goroutine, so responses may be
// sent out of order; clients match them by x-request-id.
func (s *Server) ServeDataChannel(dc *webrtc.DataChannel) {
	s.serveDataChannel(dc)
}

func (s *Server) serveDataChannel(dc transport.DataChannel) {
	ctx, cancel := context.WithCancel(context.Background())
	var sendMu sync.Mutex

	send := func(resp *codec.PeerResponse) {
		data, err := codec.EncodePeerResponse(*resp)
		if err != nil {
			s.log.Error("failed to encode peer response", zap.Error(err))
			return
		}
		sendMu.Lock()
		defer sendMu.Unlock()
		if err := dc.Send(data); err != nil {
			s.log.Warn("failed to send peer response", zap.Error(err))
		}
	}

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		req, err := codec.DecodeRequest(msg.Data)
		if err != nil {
			s.log.Warn("failed to decode peer request", zap.Error(err), zap.Int("size", len(msg.Data)))
			body, _ := codec.EncodeUnaryBody(nil, codec.StatusInvalidArgument, "Failed to decode request: "+err.Error())
			send(&codec.PeerResponse{Headers: map[string]string{}, Body: body})
			return
		}
		go func() { send(s.Serve(ctx, req)) }()
	})
	dc.OnClose(cancel)
	dc.OnError(func(err error) {
		s.log.Warn("data channel error", zap.Error(err))
	})
}
