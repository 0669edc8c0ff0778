// Package server dispatches gRPC-Web unary calls to registered handlers.
//
// A Server is a handler registry keyed by method path. It serves the same
// handlers over HTTP (a gin route, for the dev backend and tests) and over
// WebRTC DataChannels using the peer envelope format.
package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/qaforge/dashrpc/grpcweb/codec"
	"github.com/qaforge/dashrpc/grpcweb/transport"
	"github.com/qaforge/dashrpc/pkg/rpclog"
	"github.com/qaforge/dashrpc/pkg/rpcmetrics"
	"go.uber.org/zap"
)

// Request is one decoded unary request as seen by a handler.
type Request struct {
	Path    string
	Headers map[string]string
	Message []byte
}

// Handler handles a unary method call and returns the encoded response
// message. An error implementing codec.StatusError sets the response status;
// any other error is reported as INTERNAL.
type Handler func(ctx context.Context, req *Request) ([]byte, error)

// Options provides options for handling requests
type Options struct {
	// Timeout is the per-request handler timeout, default 30s
	Timeout time.Duration
	// Metrics, when set, records every served call.
	Metrics *rpcmetrics.Metrics
}

// DefaultOptions returns default handler options
func DefaultOptions() *Options {
	return &Options{
		Timeout: 30 * time.Second,
	}
}

type Server struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	options  *Options
	log      *rpclog.Log
}

// New creates an empty server. The opts parameter is optional; if nil,
// defaults are used.
func New(opts *Options) *Server {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Server{
		handlers: make(map[string]Handler),
		options:  opts,
		log:      rpclog.NewLog("Server"),
	}
}

// RegisterHandler registers a handler for a method path.
// path should be in format "/package.Service/Method"
func (s *Server) RegisterHandler(path string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[path] = handler
}

// UnregisterHandler removes a handler
func (s *Server) UnregisterHandler(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, path)
}

// GetRegisteredMethods returns all registered method paths, sorted.
func (s *Server) GetRegisteredMethods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	methods := make([]string, 0, len(s.handlers))
	for path := range s.handlers {
		methods = append(methods, path)
	}
	sort.Strings(methods)
	return methods
}

// Serve runs one request through its handler and returns the response
// headers and framed body. Every outcome, including an unknown path or a
// malformed request body, is expressed as a grpc-status trailer.
func (s *Server) Serve(ctx context.Context, env *codec.RequestEnvelope) *codec.PeerResponse {
	headers := map[string]string{"content-type": transport.ContentType}
	if reqID, ok := env.Headers[transport.HeaderRequestID]; ok {
		headers[transport.HeaderRequestID] = reqID
	}

	start := time.Now()
	message, err := s.dispatch(ctx, env)
	if err != nil {
		code := handlerStatus(err)
		s.options.Metrics.Observe(env.Path, rpcmetrics.ModeServed, code, time.Since(start))
		s.log.Debug("handler failed", zap.String("path", env.Path), zap.Stringer("code", code), zap.Error(err))
		body, encErr := codec.EncodeUnaryBody(nil, code, codec.MessageOf(err))
		if encErr != nil {
			s.log.Error("failed to encode error response", zap.Error(encErr))
		}
		return &codec.PeerResponse{Headers: headers, Body: body}
	}

	code := codec.StatusOK
	body, err := codec.EncodeUnaryBody(message, code, "")
	if err != nil {
		s.log.Error("failed to encode response", zap.String("path", env.Path), zap.Error(err))
		code = codec.StatusInternal
		body, _ = codec.EncodeUnaryBody(nil, code, "failed to encode response")
	}
	s.options.Metrics.Observe(env.Path, rpcmetrics.ModeServed, code, time.Since(start))
	return &codec.PeerResponse{Headers: headers, Body: body}
}

func (s *Server) dispatch(ctx context.Context, env *codec.RequestEnvelope) ([]byte, error) {
	s.mu.RLock()
	handler, ok := s.handlers[env.Path]
	s.mu.RUnlock()
	if !ok {
		s.log.Debug("no handler registered", zap.String("path", env.Path))
		return nil, codec.NewRPCError(codec.StatusUnimplemented, "Method %s is not implemented", env.Path)
	}

	message, err := requestMessage(env.Body)
	if err != nil {
		return nil, codec.NewRPCError(codec.StatusInvalidArgument, "Failed to decode request: %v", err)
	}

	if s.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.Timeout)
		defer cancel()
	}
	return handler(ctx, &Request{Path: env.Path, Headers: env.Headers, Message: message})
}

// requestMessage extracts the single data frame of a unary request body.
func requestMessage(body []byte) ([]byte, error) {
	frames, err := codec.DecodeFrames(body)
	if err != nil {
		return nil, err
	}
	if len(frames) != 1 || frames[0].IsTrailer() {
		return nil, fmt.Errorf("expected one data frame, got %d frames", len(frames))
	}
	return frames[0].Data, nil
}

func handlerStatus(err error) codec.StatusCode {
	var se codec.StatusError
	if errors.As(err, &se) {
		return se.Status()
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return codec.StatusDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codec.StatusCancelled
	}
	return codec.StatusInternal
}

// MakeHandler creates a Handler from typed codecs.
//
// Example:
//
//	srv.RegisterHandler(path, server.MakeHandler(
//	    pb.GenerateTestCasesRequestCodec,
//	    pb.GenerateTestCasesResponseCodec,
//	    func(ctx context.Context, req *pb.GenerateTestCasesRequest) (*pb.GenerateTestCasesResponse, error) {
//	        return &pb.GenerateTestCasesResponse{Success: true}, nil
//	    },
//	))
func MakeHandler[Req, Resp any](
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
	handle func(ctx context.Context, req Req) (Resp, error),
) Handler {
	return func(ctx context.Context, r *Request) ([]byte, error) {
		req, err := reqCodec.Decode(r.Message)
		if err != nil {
			return nil, codec.NewRPCError(codec.StatusInvalidArgument, "Failed to deserialize request: %v", err)
		}

		resp, err := handle(ctx, req)
		if err != nil {
			var se codec.StatusError
			if errors.As(err, &se) {
				return nil, err
			}
			return nil, codec.NewRPCError(codec.StatusInternal, "%s", err.Error())
		}

		data, err := respCodec.Encode(resp)
		if err != nil {
			return nil, codec.NewRPCError(codec.StatusInternal, "Failed to serialize response: %v", err)
		}
		if data == nil {
			data = []byte{}
		}
		return data, nil
	}
}
