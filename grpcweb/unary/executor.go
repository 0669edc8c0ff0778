// Package unary executes one gRPC-Web request/response exchange.
//
// Invoke encodes and frames the request, hands it to a transport, waits for
// the fully buffered body, decodes the frames and maps the outcome to either
// a decoded message or a typed error from the codec package:
//
//	resp, err := unary.Invoke(ctx, exec, "/testgen.TestCaseService/GenerateTestCases",
//	    req, pb.GenerateTestCasesRequestCodec, pb.GenerateTestCasesResponseCodec)
//
// No retries are attempted; whether a call is safe to repeat is the caller's
// decision.
package unary

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qaforge/dashrpc/grpcweb/codec"
	"github.com/qaforge/dashrpc/grpcweb/transport"
	"github.com/qaforge/dashrpc/pkg/rpclog"
	"github.com/qaforge/dashrpc/pkg/rpcmetrics"
	"go.uber.org/zap"
)

// Options configures an Executor
type Options struct {
	// Timeout bounds each call, default 30s. Zero means only the caller's
	// context applies.
	Timeout time.Duration
	// UserAgent is sent as x-user-agent.
	UserAgent string
	// Headers are added to every request, e.g. authorization.
	Headers map[string]string
	Metrics *rpcmetrics.Metrics
}

// DefaultOptions returns default executor options
func DefaultOptions() *Options {
	return &Options{
		Timeout:   30 * time.Second,
		UserAgent: "dashrpc-go/1.0",
	}
}

// Executor issues unary calls over one transport. It holds no per-call
// state and is safe for concurrent use.
type Executor struct {
	transport transport.Transport
	options   *Options
	log       *rpclog.Log
}

// NewExecutor creates an executor. The opts parameter is optional; if nil,
// defaults are used.
func NewExecutor(t transport.Transport, opts *Options) *Executor {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Executor{
		transport: t,
		options:   opts,
		log:       rpclog.NewLog("Executor"),
	}
}

// NewHTTPExecutor is shorthand for an executor over an HTTPTransport.
func NewHTTPExecutor(baseURL string, opts *Options, httpOpts ...transport.HTTPOption) *Executor {
	return NewExecutor(transport.NewHTTPTransport(baseURL, httpOpts...), opts)
}

// Invoke performs one unary call and returns the decoded response.
//
// A non-OK grpc-status is returned as *codec.RPCError. When the server sends
// an OK status without a data frame the zero value of Resp is returned.
func Invoke[Req, Resp any](
	ctx context.Context,
	e *Executor,
	path string,
	req Req,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
) (Resp, error) {
	env, err := InvokeEnvelope(ctx, e, path, req, reqCodec, respCodec)
	if err != nil {
		var zero Resp
		return zero, err
	}
	if err := env.Err(); err != nil {
		var zero Resp
		return zero, err
	}
	return env.Message, nil
}

// InvokeEnvelope is like Invoke but reports a non-OK grpc-status in the
// returned envelope instead of as an error. Transport, framing and decode
// failures are still returned as errors.
func InvokeEnvelope[Req, Resp any](
	ctx context.Context,
	e *Executor,
	path string,
	req Req,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
) (codec.ResponseEnvelope[Resp], error) {
	var env codec.ResponseEnvelope[Resp]
	start := time.Now()

	body, err := codec.EncodeMessage(reqCodec, req)
	if err != nil {
		e.finish(path, start, err)
		return env, err
	}

	result, err := e.exchange(ctx, path, body)
	if err != nil {
		e.finish(path, start, err)
		return env, err
	}

	env.Status = result.Status
	env.ErrorText = result.StatusText
	env.Trailers = result.Trailers
	if result.Status == codec.StatusOK && result.Message != nil {
		msg, err := respCodec.Decode(result.Message)
		if err != nil {
			decodeErr := &codec.DecodeError{Path: path, Err: err}
			e.finish(path, start, decodeErr)
			return codec.ResponseEnvelope[Resp]{}, decodeErr
		}
		env.Message = msg
		env.HasMessage = true
	}

	e.finish(path, start, env.Err())
	return env, nil
}

// exchange sends the framed request and decodes the response frames.
func (e *Executor) exchange(ctx context.Context, path string, body []byte) (*codec.UnaryBody, error) {
	callCtx := ctx
	if e.options.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.options.Timeout)
		defer cancel()
	}

	req := &codec.RequestEnvelope{
		Path:    path,
		Headers: e.headers(callCtx),
		Body:    body,
	}

	resp, err := e.transport.RoundTrip(callCtx, req)
	if err != nil {
		return nil, transportError(callCtx, err)
	}
	// Settled as cancelled if the abort raced the response; nothing is decoded.
	if callCtx.Err() != nil {
		return nil, transportError(callCtx, callCtx.Err())
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &codec.TransportError{
			Code:       codec.HTTPStatusToCode(resp.StatusCode),
			HTTPStatus: resp.StatusCode,
			Message:    httpMessage(resp),
		}
	}
	if ct := resp.Headers["content-type"]; ct != "" && !strings.HasPrefix(ct, "application/grpc-web") {
		return nil, &codec.FramingError{Offset: -1, Reason: "unexpected content-type " + strconv.Quote(ct)}
	}

	result, err := codec.DecodeUnaryBody(resp.Body, resp.Headers)
	if err != nil {
		return nil, err
	}
	if result.DataFrames > 1 {
		e.log.Debug("multiple data frames in unary response, keeping the last",
			zap.String("path", path), zap.Int("frames", result.DataFrames))
	}
	return result, nil
}

func (e *Executor) headers(ctx context.Context) map[string]string {
	headers := make(map[string]string, len(e.options.Headers)+6)
	for k, v := range e.options.Headers {
		headers[strings.ToLower(k)] = v
	}
	headers["content-type"] = transport.ContentType
	headers["accept"] = transport.ContentType
	headers[transport.HeaderGRPCWeb] = "1"
	headers[transport.HeaderRequestID] = uuid.NewString()
	if e.options.UserAgent != "" {
		headers[transport.HeaderUserAgent] = e.options.UserAgent
	}
	if deadline, ok := ctx.Deadline(); ok {
		headers[transport.HeaderTimeout] = encodeTimeout(time.Until(deadline))
	}
	return headers
}

func (e *Executor) finish(path string, start time.Time, err error) {
	elapsed := time.Since(start)
	code := codec.StatusOf(err)
	e.options.Metrics.Observe(path, rpcmetrics.ModeReal, code, elapsed)
	if err != nil {
		e.log.Warn("call failed", zap.String("path", path), zap.Stringer("code", code),
			zap.Duration("elapsed", elapsed), zap.Error(err))
		return
	}
	e.log.Debug("call ok", zap.String("path", path), zap.Duration("elapsed", elapsed))
}

// transportError classifies a failed round trip. The context decides
// between CANCELLED and DEADLINE_EXCEEDED; everything else is UNAVAILABLE.
func transportError(ctx context.Context, err error) *codec.TransportError {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return &codec.TransportError{Code: codec.StatusCancelled, Message: "call cancelled", Err: err}
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &codec.TransportError{Code: codec.StatusDeadlineExceeded, Message: "deadline exceeded", Err: err}
	case errors.Is(err, transport.ErrResponseTooLarge):
		return &codec.TransportError{Code: codec.StatusResourceExhausted, Message: "response too large", Err: err}
	}
	return &codec.TransportError{Code: codec.StatusUnavailable, Message: "backend unreachable", Err: err}
}

const maxErrorBody = 256

func httpMessage(resp *transport.Response) string {
	text := strings.TrimSpace(string(resp.Body))
	if text == "" || !isPrintable(text) {
		return http.StatusText(resp.StatusCode)
	}
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return text
}

func isPrintable(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 && c != '\n' && c != '\r' && c != '\t' {
			return false
		}
	}
	return true
}

// encodeTimeout formats d as a grpc-timeout value: at most eight digits
// followed by a unit.
func encodeTimeout(d time.Duration) string {
	if d <= 0 {
		return "1n"
	}
	const maxDigits = 99999999
	units := []struct {
		unit string
		size time.Duration
	}{
		{"n", time.Nanosecond},
		{"u", time.Microsecond},
		{"m", time.Millisecond},
		{"S", time.Second},
		{"M", time.Minute},
		{"H", time.Hour},
	}
	for _, u := range units {
		n := d / u.size
		if d%u.size != 0 {
			n++
		}
		if n <= maxDigits {
			return strconv.FormatInt(int64(n), 10) + u.unit
		}
	}
	return strconv.FormatInt(maxDigits, 10) + "H"
}
