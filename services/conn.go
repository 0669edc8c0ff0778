// Package services exposes the four testgen backend services as typed
// clients.
//
// Every client method validates and normalises its request locally, then
// runs the call through the gRPC-Web executor or, in mock mode, through the
// mock adapter. Callers get the same decoded types and the same error types
// in both modes.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/qaforge/dashrpc/config"
	"github.com/qaforge/dashrpc/grpcweb/codec"
	"github.com/qaforge/dashrpc/grpcweb/mock"
	"github.com/qaforge/dashrpc/grpcweb/transport"
	"github.com/qaforge/dashrpc/grpcweb/unary"
	"github.com/qaforge/dashrpc/pkg/rpclog"
	"github.com/qaforge/dashrpc/pkg/rpcmetrics"
	"github.com/valyala/fastrand"
	"go.uber.org/zap"
)

// Fully qualified service names.
const (
	RequirementAnalysisService = "testgen.RequirementAnalysisService"
	TestCaseService            = "testgen.TestCaseService"
	TestDataService            = "testgen.TestDataService"
	KnowledgeService           = "testgen.KnowledgeService"
)

// serviceNames maps config keys to service names.
var serviceNames = map[string]string{
	config.RequirementAnalysis: RequirementAnalysisService,
	config.TestCase:            TestCaseService,
	config.TestData:            TestDataService,
	config.Knowledge:           KnowledgeService,
}

// Conn holds what the clients share: one executor per service, the mock
// adapter and the mode settings. It is safe for concurrent use.
type Conn struct {
	opts      *config.Options
	executors map[string]*unary.Executor
	adapter   *mock.Adapter
	log       *rpclog.Log
}

type connOptions struct {
	metrics   *rpcmetrics.Metrics
	transport transport.Transport
	now       func() time.Time
}

// ConnOption customises NewConn.
type ConnOption func(*connOptions)

// WithMetrics records every call, real or mocked, on m.
func WithMetrics(m *rpcmetrics.Metrics) ConnOption {
	return func(o *connOptions) { o.metrics = m }
}

// WithTransport sends every real call through t instead of HTTP.
func WithTransport(t transport.Transport) ConnOption {
	return func(o *connOptions) { o.transport = t }
}

// WithClock sets the clock mock generators use for timestamps.
func WithClock(now func() time.Time) ConnOption {
	return func(o *connOptions) { o.now = now }
}

// NewConn builds the shared connection state from opts.
func NewConn(opts *config.Options, options ...ConnOption) *Conn {
	var co connOptions
	for _, o := range options {
		o(&co)
	}

	seed := fastrand.Uint32()
	if opts.Mock.Seed != nil {
		seed = *opts.Mock.Seed
	}

	c := &Conn{
		opts:      opts,
		executors: make(map[string]*unary.Executor, len(config.ServiceKeys)),
		adapter: mock.NewAdapter(&mock.Options{
			Seed:    seed,
			Latency: opts.Mock.Latency,
			Metrics: co.metrics,
			Now:     co.now,
		}),
		log: rpclog.NewLog("Conn"),
	}

	for _, key := range config.ServiceKeys {
		execOpts := &unary.Options{
			Timeout:   opts.Timeout,
			UserAgent: opts.UserAgent,
			Headers:   opts.Headers(),
			Metrics:   co.metrics,
		}
		if co.transport != nil {
			c.executors[key] = unary.NewExecutor(co.transport, execOpts)
		} else {
			c.executors[key] = unary.NewHTTPExecutor(opts.Service(key).BaseURL, execOpts)
		}
	}
	return c
}

// Adapter returns the mock adapter, e.g. to serve mocks from a backend.
func (c *Conn) Adapter() *mock.Adapter {
	return c.adapter
}

// Executor returns the executor for a service key.
func (c *Conn) Executor(key string) *unary.Executor {
	return c.executors[key]
}

// Mocked reports whether calls to the service are served from mocks.
func (c *Conn) Mocked(key string) bool {
	return c.opts.Mock.Enabled || !c.opts.Service(key).Enabled
}

// Mode returns rpcmetrics.ModeMock or rpcmetrics.ModeReal for a service.
func (c *Conn) Mode(key string) string {
	if c.Mocked(key) {
		return rpcmetrics.ModeMock
	}
	return rpcmetrics.ModeReal
}

// call runs one operation in the mode configured for key.
func call[Req, Resp any](
	ctx context.Context,
	c *Conn,
	key string,
	method string,
	req Req,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
	gen mock.Generator[Req, Resp],
) (Resp, error) {
	path := codec.MethodPath(serviceNames[key], method)
	if c.Mocked(key) {
		return mock.Call(ctx, c.adapter, path, req, reqCodec, respCodec, gen)
	}

	env, err := unary.InvokeEnvelope(ctx, c.executors[key], path, req, reqCodec, respCodec)
	if err != nil && c.opts.Mock.Fallback && unreachable(err) && ctx.Err() == nil {
		c.log.Warn("backend unreachable, serving mock response", zap.String("path", path), zap.Error(err))
		return mock.Call(ctx, c.adapter, path, req, reqCodec, respCodec, gen)
	}
	var zero Resp
	if err != nil {
		return zero, err
	}
	if err := env.Err(); err != nil {
		return zero, err
	}
	if env.HasMessage {
		return env.Message, nil
	}
	// Every testgen response is a message, so an OK status without a data
	// frame carries the default message.
	resp, err := respCodec.Decode([]byte{})
	if err != nil {
		return zero, &codec.DecodeError{Path: path, Err: err}
	}
	return resp, nil
}

// unreachable reports a transport failure that never reached a backend.
func unreachable(err error) bool {
	var te *codec.TransportError
	return errors.As(err, &te) && te.Code == codec.StatusUnavailable
}
