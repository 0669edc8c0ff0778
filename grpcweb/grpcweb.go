// Package grpcweb makes unary gRPC-Web calls and serves them.
//
// A call is a single POST whose body is one length-prefixed data frame. The
// response body carries zero or more data frames followed by a trailer frame
// holding grpc-status and grpc-message.
//
// # Architecture
//
//	services.XClient          grpcweb/server
//	      |                         |
//	 unary.Invoke  --- POST --->  Serve
//	  or mock.Call                  |
//	      |                      Handler
//	      |  <--- data + trailer ---|
//	 DecodeUnaryBody
//
// # Quick Start
//
// Client side:
//
//	exec := grpcweb.NewHTTPExecutor("http://127.0.0.1:8080", nil)
//	resp, err := grpcweb.Invoke(ctx, exec,
//	    "/testgen.TestCaseService/GenerateTestCases",
//	    req, pb.GenerateTestCasesRequestCodec, pb.GenerateTestCasesResponseCodec)
//
// Server side:
//
//	srv := grpcweb.NewServer(nil)
//	srv.RegisterHandler(path, server.MakeHandler(reqCodec, respCodec, handle))
//	grpcweb.RegisterReflection(srv)
//	_ = grpcweb.NewEngine(srv).Run(":8080")
//
// # Subpackages
//
//   - codec: frames, trailers, status codes and typed errors
//   - transport: HTTP and WebRTC DataChannel round trippers
//   - unary: the call executor
//   - mock: in-process generators behind the same decode path
//   - server: handler registry served over gin or a DataChannel
//   - reflection: ListServices
//
// For most use cases, use the re-exported names from this package.
package grpcweb

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/qaforge/dashrpc/grpcweb/codec"
	"github.com/qaforge/dashrpc/grpcweb/reflection"
	"github.com/qaforge/dashrpc/grpcweb/server"
	"github.com/qaforge/dashrpc/grpcweb/transport"
	"github.com/qaforge/dashrpc/grpcweb/unary"
)

// Re-export codec types
type (
	// Frame represents a gRPC-Web frame
	Frame = codec.Frame
	// StatusCode is a gRPC status code
	StatusCode = codec.StatusCode
	// RPCError is a non-OK status returned by a backend
	RPCError = codec.RPCError
	// TransportError is a call that never produced a gRPC status
	TransportError = codec.TransportError
	// FramingError is a malformed response body
	FramingError = codec.FramingError
)

// Re-export codec constants
const (
	FrameData    = codec.FrameData
	FrameTrailer = codec.FrameTrailer

	StatusOK                 = codec.StatusOK
	StatusCancelled          = codec.StatusCancelled
	StatusUnknown            = codec.StatusUnknown
	StatusInvalidArgument    = codec.StatusInvalidArgument
	StatusDeadlineExceeded   = codec.StatusDeadlineExceeded
	StatusNotFound           = codec.StatusNotFound
	StatusAlreadyExists      = codec.StatusAlreadyExists
	StatusPermissionDenied   = codec.StatusPermissionDenied
	StatusResourceExhausted  = codec.StatusResourceExhausted
	StatusFailedPrecondition = codec.StatusFailedPrecondition
	StatusAborted            = codec.StatusAborted
	StatusOutOfRange         = codec.StatusOutOfRange
	StatusUnimplemented      = codec.StatusUnimplemented
	StatusInternal           = codec.StatusInternal
	StatusUnavailable        = codec.StatusUnavailable
	StatusDataLoss           = codec.StatusDataLoss
	StatusUnauthenticated    = codec.StatusUnauthenticated
)

// Re-export codec functions
var (
	EncodeFrame     = codec.EncodeFrame
	DecodeFrames    = codec.DecodeFrames
	ParseTrailers   = codec.ParseTrailers
	EncodeUnaryBody = codec.EncodeUnaryBody
	DecodeUnaryBody = codec.DecodeUnaryBody

	StatusOf  = codec.StatusOf
	MessageOf = codec.MessageOf
)

// Executor runs unary calls over a Transport.
type Executor = unary.Executor

// ExecutorOptions configures an Executor.
type ExecutorOptions = unary.Options

// NewHTTPExecutor creates an Executor posting to baseURL.
//
// The opts parameter is optional; if nil, defaults are used.
func NewHTTPExecutor(baseURL string, opts *ExecutorOptions) *Executor {
	return unary.NewHTTPExecutor(baseURL, opts)
}

// NewPeerExecutor creates an Executor sending calls over a WebRTC
// DataChannel to a peer that serves them with Server.ServeDataChannel.
func NewPeerExecutor(dc *webrtc.DataChannel, opts *ExecutorOptions) *Executor {
	return unary.NewExecutor(transport.NewDataChannelTransport(dc), opts)
}

// Invoke runs one unary call and returns the decoded response.
func Invoke[Req, Resp any](
	ctx context.Context,
	exec *Executor,
	path string,
	req Req,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
) (Resp, error) {
	return unary.Invoke(ctx, exec, path, req, reqCodec, respCodec)
}

// Server is the handler registry that answers calls.
type Server = server.Server

// ServerOptions provides options for handling requests
type ServerOptions = server.Options

// NewServer creates an empty Server.
//
// The opts parameter is optional; if nil, defaults are used.
func NewServer(opts *ServerOptions) *Server {
	return server.New(opts)
}

// NewEngine returns a gin engine serving srv over HTTP.
func NewEngine(srv *Server) *gin.Engine {
	return server.NewEngine(srv)
}

// Reflection types
type (
	// Reflection provides server reflection functionality
	Reflection = reflection.Reflection
	// ServiceInfo contains information about a registered service
	ServiceInfo = reflection.ServiceInfo
	// ListServicesResponse is the response for ListServices
	ListServicesResponse = reflection.ListServicesResponse
)

// ReflectionMethodPath is the path for the ListServices method
const ReflectionMethodPath = reflection.MethodPath

// RegisterReflection registers ListServices on srv.
//
// Example:
//
//	srv := grpcweb.NewServer(nil)
//	grpcweb.RegisterReflection(srv)
func RegisterReflection(srv *Server) *Reflection {
	return reflection.Register(srv)
}

// ListServices asks the backend behind exec which services it serves.
func ListServices(ctx context.Context, exec *Executor) (*ListServicesResponse, error) {
	return reflection.List(ctx, exec)
}
