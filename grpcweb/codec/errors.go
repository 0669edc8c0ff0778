package codec

import (
	"context"
	"errors"
	"fmt"
)

// StatusError is implemented by every error this module hands to callers.
type StatusError interface {
	error
	Status() StatusCode
}

// RPCError is a non-OK grpc-status reported by the server.
type RPCError struct {
	Code    StatusCode
	Message string
	// Trailers holds the raw trailer block when the error came off the wire.
	Trailers map[string]string
}

// NewRPCError creates an RPCError with a formatted message.
func NewRPCError(code StatusCode, format string, args ...any) *RPCError {
	return &RPCError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface
func (e *RPCError) Error() string {
	return fmt.Sprintf("gRPC error %d (%s): %s", e.Code, e.Code, e.Message)
}

func (e *RPCError) Status() StatusCode { return e.Code }

// TransportError means the exchange never produced a gRPC response: the
// network failed, the call was aborted, or the server answered with a
// non-200 HTTP status.
type TransportError struct {
	Code       StatusCode
	HTTPStatus int // zero when no HTTP response was received
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("transport error (%s): http %d: %s", e.Code, e.HTTPStatus, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("transport error (%s): %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("transport error (%s): %s", e.Code, e.Message)
}

func (e *TransportError) Status() StatusCode { return e.Code }

func (e *TransportError) Unwrap() error { return e.Err }

// FramingError reports a malformed gRPC-Web body. It signals a protocol
// mismatch, so it always maps to INTERNAL.
type FramingError struct {
	Offset int // byte offset of the offending frame, -1 if not frame specific
	Reason string
}

func (e *FramingError) Error() string {
	if e.Offset < 0 {
		return "grpc-web framing error: " + e.Reason
	}
	return fmt.Sprintf("grpc-web framing error at offset %d: %s", e.Offset, e.Reason)
}

func (e *FramingError) Status() StatusCode { return StatusInternal }

// UnsupportedCompressionError is returned for frames with the compression bit set.
type UnsupportedCompressionError struct {
	Offset int
	Flags  byte
}

func (e *UnsupportedCompressionError) Error() string {
	return fmt.Sprintf("grpc-web framing error at offset %d: compressed frame (flags 0x%02x) not supported", e.Offset, e.Flags)
}

func (e *UnsupportedCompressionError) Status() StatusCode { return StatusInternal }

// DecodeError means a payload did not match the expected message schema.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode response: %v", e.Err)
	}
	return fmt.Sprintf("decode response of %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Status() StatusCode { return StatusInternal }

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodingError means a request could not be serialized or framed.
type EncodingError struct {
	Length uint64
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("grpc-web encoding error: %s: %v", e.Reason, e.Err)
	}
	if e.Length > 0 {
		return fmt.Sprintf("grpc-web encoding error: %s (%d bytes)", e.Reason, e.Length)
	}
	return "grpc-web encoding error: " + e.Reason
}

func (e *EncodingError) Status() StatusCode { return StatusInternal }

func (e *EncodingError) Unwrap() error { return e.Err }

// StatusOf returns the status code carried by err. Context errors map to
// CANCELLED and DEADLINE_EXCEEDED, anything unrecognised to UNKNOWN.
func StatusOf(err error) StatusCode {
	if err == nil {
		return StatusOK
	}
	var se StatusError
	if errors.As(err, &se) {
		return se.Status()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return StatusCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return StatusDeadlineExceeded
	}
	return StatusUnknown
}

// MessageOf returns the human readable part of err: the server message for
// RPC and transport errors, err.Error() otherwise.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Message
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Message
	}
	return err.Error()
}

// IsFramingError reports whether err is a FramingError or an
// UnsupportedCompressionError.
func IsFramingError(err error) bool {
	var fe *FramingError
	var ce *UnsupportedCompressionError
	return errors.As(err, &fe) || errors.As(err, &ce)
}
