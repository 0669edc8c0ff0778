// Package mock serves unary calls from in-process generators instead of a
// backend.
//
// A mocked call still goes through the wire format: the request is framed
// and decoded back before the generator sees it, and the generated response
// is encoded, framed with a status trailer and decoded by the same code the
// executor uses. Mock and real responses are therefore structurally
// identical, including their errors.
package mock

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/qaforge/dashrpc/grpcweb/codec"
	"github.com/qaforge/dashrpc/pkg/rpclog"
	"github.com/qaforge/dashrpc/pkg/rpcmetrics"
	"go.uber.org/zap"
)

// Generator produces the response for one mocked call. Returning a
// *codec.RPCError makes the call fail with that status.
type Generator[Req, Resp any] func(req Req, env *Env) (Resp, error)

// Options configures an Adapter
type Options struct {
	// Seed makes generated content reproducible.
	Seed uint32
	// Latency is waited before each response.
	Latency time.Duration
	Metrics *rpcmetrics.Metrics
	// Now is the clock generators read; default time.Now.
	Now func() time.Time
}

// Adapter answers calls from generators.
type Adapter struct {
	opts Options
	log  *rpclog.Log
}

// NewAdapter creates an adapter. A nil opts uses seed 0 and no latency.
func NewAdapter(opts *Options) *Adapter {
	a := &Adapter{log: rpclog.NewLog("Mock")}
	if opts != nil {
		a.opts = *opts
	}
	if a.opts.Now == nil {
		a.opts.Now = time.Now
	}
	return a
}

// Seed returns the configured seed.
func (a *Adapter) Seed() uint32 {
	return a.opts.Seed
}

// Env returns a fresh generator environment for path. Two environments for
// the same seed and path produce the same random sequence.
func (a *Adapter) Env(path string) *Env {
	h := fnv.New32a()
	_, _ = h.Write([]byte(path))
	return newEnv(a.opts.Seed, path, a.opts.Seed^h.Sum32(), a.opts.Now)
}

// Call serves one unary call from gen.
func Call[Req, Resp any](
	ctx context.Context,
	a *Adapter,
	path string,
	req Req,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
	gen Generator[Req, Resp],
) (Resp, error) {
	start := time.Now()
	resp, err := call(ctx, a, path, req, reqCodec, respCodec, gen)

	elapsed := time.Since(start)
	code := codec.StatusOf(err)
	a.opts.Metrics.Observe(path, rpcmetrics.ModeMock, code, elapsed)
	if err != nil {
		a.log.Debug("mock call failed", zap.String("path", path), zap.Stringer("code", code), zap.Error(err))
	} else {
		a.log.Debug("mock call ok", zap.String("path", path), zap.Duration("elapsed", elapsed))
	}
	return resp, err
}

func call[Req, Resp any](
	ctx context.Context,
	a *Adapter,
	path string,
	req Req,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
	gen Generator[Req, Resp],
) (Resp, error) {
	var zero Resp

	wireReq, err := roundTripRequest(req, reqCodec, path)
	if err != nil {
		return zero, err
	}

	if err := a.wait(ctx); err != nil {
		return zero, err
	}

	body, err := respond(wireReq, a.Env(path), respCodec, gen)
	if err != nil {
		return zero, err
	}
	if ctx.Err() != nil {
		return zero, contextError(ctx.Err())
	}

	result, err := codec.DecodeUnaryBody(body, nil)
	if err != nil {
		return zero, err
	}
	if result.Status != codec.StatusOK {
		return zero, &codec.RPCError{Code: result.Status, Message: result.StatusText, Trailers: result.Trailers}
	}
	if result.Message == nil {
		return zero, nil
	}
	msg, err := respCodec.Decode(result.Message)
	if err != nil {
		return zero, &codec.DecodeError{Path: path, Err: err}
	}
	return msg, nil
}

// roundTripRequest frames req and decodes it back, so generators see what a
// backend would.
func roundTripRequest[Req any](req Req, reqCodec codec.Codec[Req], path string) (Req, error) {
	var zero Req
	framed, err := codec.EncodeMessage(reqCodec, req)
	if err != nil {
		return zero, err
	}
	frames, err := codec.DecodeFrames(framed)
	if err != nil {
		return zero, err
	}
	decoded, err := reqCodec.Decode(frames[0].Data)
	if err != nil {
		return zero, &codec.DecodeError{Path: path, Err: err}
	}
	return decoded, nil
}

// respond runs the generator and encodes its outcome as a unary body.
func respond[Req, Resp any](req Req, env *Env, respCodec codec.Codec[Resp], gen Generator[Req, Resp]) ([]byte, error) {
	resp, err := gen(req, env)
	if err != nil {
		return codec.EncodeUnaryBody(nil, errorCode(err), codec.MessageOf(err))
	}
	payload, err := respCodec.Encode(resp)
	if err != nil {
		return nil, &codec.EncodingError{Reason: "encode mock response", Err: err}
	}
	if payload == nil {
		payload = []byte{}
	}
	return codec.EncodeUnaryBody(payload, codec.StatusOK, "")
}

// errorCode maps a generator error to the status put in the trailer.
// Errors without a status become INTERNAL rather than UNKNOWN.
func errorCode(err error) codec.StatusCode {
	var se codec.StatusError
	if errors.As(err, &se) {
		return se.Status()
	}
	return codec.StatusInternal
}

func (a *Adapter) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return contextError(err)
	}
	if a.opts.Latency <= 0 {
		return nil
	}
	timer := time.NewTimer(a.opts.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return contextError(ctx.Err())
	case <-timer.C:
		return nil
	}
}

func contextError(err error) *codec.TransportError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &codec.TransportError{Code: codec.StatusDeadlineExceeded, Message: "deadline exceeded", Err: err}
	}
	return &codec.TransportError{Code: codec.StatusCancelled, Message: "call cancelled", Err: err}
}
