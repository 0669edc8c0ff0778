package services

import (
	"errors"
	"fmt"

	"github.com/qaforge/dashrpc/grpcweb/codec"
)

// invalid returns the INVALID_ARGUMENT error used for local validation.
func invalid(format string, args ...any) error {
	return codec.NewRPCError(codec.StatusInvalidArgument, format, args...)
}

// friendly rewrites a backend RPCError into a message a dashboard can show,
// keeping its status and trailers. Other errors are returned unchanged so
// callers can still tell a declined call from a broken transport.
func friendly(operation string, err error) error {
	var rpcErr *codec.RPCError
	if !errors.As(err, &rpcErr) {
		return err
	}

	var prefix string
	switch rpcErr.Code {
	case codec.StatusInvalidArgument, codec.StatusFailedPrecondition, codec.StatusOutOfRange:
		prefix = operation + " rejected the request"
	case codec.StatusNotFound:
		prefix = operation + ": not found"
	case codec.StatusAlreadyExists:
		prefix = operation + ": already exists"
	case codec.StatusPermissionDenied, codec.StatusUnauthenticated:
		prefix = operation + ": not authorised, sign in again"
	case codec.StatusResourceExhausted:
		prefix = operation + ": service is busy, try again later"
	case codec.StatusUnavailable:
		prefix = operation + ": service is temporarily unavailable"
	case codec.StatusDeadlineExceeded:
		prefix = operation + ": service took too long to answer"
	case codec.StatusUnimplemented:
		prefix = operation + ": not supported by this backend"
	default:
		prefix = operation + " failed"
	}

	message := prefix
	if rpcErr.Message != "" {
		message = fmt.Sprintf("%s (%s)", prefix, rpcErr.Message)
	}
	return &codec.RPCError{Code: rpcErr.Code, Message: message, Trailers: rpcErr.Trailers}
}
