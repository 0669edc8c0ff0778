// Package transport moves framed gRPC-Web requests to a backend and brings
// the buffered response back.
//
// A Transport never interprets the body: status mapping and frame decoding
// belong to the caller. RoundTrip returns an error only when no response was
// received at all (network failure, closed channel, cancelled context).
package transport

import (
	"context"
	"strings"

	"github.com/qaforge/dashrpc/grpcweb/codec"
)

// Standard gRPC-Web request headers.
const (
	ContentType     = "application/grpc-web+proto"
	HeaderGRPCWeb   = "x-grpc-web"
	HeaderRequestID = "x-request-id"
	HeaderUserAgent = "x-user-agent"
	HeaderTimeout   = "grpc-timeout"
)

// Response is a fully buffered response.
type Response struct {
	StatusCode int               // HTTP status; peer transports always report 200
	Headers    map[string]string // lower-case keys, HTTP trailers merged in
	Body       []byte
}

// Transport issues one request and waits for the complete response.
type Transport interface {
	RoundTrip(ctx context.Context, req *codec.RequestEnvelope) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *codec.RequestEnvelope) (*Response, error)

func (f TransportFunc) RoundTrip(ctx context.Context, req *codec.RequestEnvelope) (*Response, error) {
	return f(ctx, req)
}

func lowerKeys(h map[string][]string, into map[string]string) {
	for k, v := range h {
		if len(v) == 0 {
			continue
		}
		into[strings.ToLower(k)] = v[0]
	}
}
