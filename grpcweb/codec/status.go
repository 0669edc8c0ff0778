package codec

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// StatusCode is a gRPC status code, independent of the HTTP status.
type StatusCode uint32

const (
	StatusOK                 StatusCode = 0
	StatusCancelled          StatusCode = 1
	StatusUnknown            StatusCode = 2
	StatusInvalidArgument    StatusCode = 3
	StatusDeadlineExceeded   StatusCode = 4
	StatusNotFound           StatusCode = 5
	StatusAlreadyExists      StatusCode = 6
	StatusPermissionDenied   StatusCode = 7
	StatusResourceExhausted  StatusCode = 8
	StatusFailedPrecondition StatusCode = 9
	StatusAborted            StatusCode = 10
	StatusOutOfRange         StatusCode = 11
	StatusUnimplemented      StatusCode = 12
	StatusInternal           StatusCode = 13
	StatusUnavailable        StatusCode = 14
	StatusDataLoss           StatusCode = 15
	StatusUnauthenticated    StatusCode = 16
)

// String returns the status name for a code
func (c StatusCode) String() string {
	switch c {
	case StatusOK:
		return "OK"
	case StatusCancelled:
		return "CANCELLED"
	case StatusUnknown:
		return "UNKNOWN"
	case StatusInvalidArgument:
		return "INVALID_ARGUMENT"
	case StatusDeadlineExceeded:
		return "DEADLINE_EXCEEDED"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusAlreadyExists:
		return "ALREADY_EXISTS"
	case StatusPermissionDenied:
		return "PERMISSION_DENIED"
	case StatusResourceExhausted:
		return "RESOURCE_EXHAUSTED"
	case StatusFailedPrecondition:
		return "FAILED_PRECONDITION"
	case StatusAborted:
		return "ABORTED"
	case StatusOutOfRange:
		return "OUT_OF_RANGE"
	case StatusUnimplemented:
		return "UNIMPLEMENTED"
	case StatusInternal:
		return "INTERNAL"
	case StatusUnavailable:
		return "UNAVAILABLE"
	case StatusDataLoss:
		return "DATA_LOSS"
	case StatusUnauthenticated:
		return "UNAUTHENTICATED"
	default:
		return "UNKNOWN"
	}
}

// Code returns the decimal form used in the grpc-status trailer.
func (c StatusCode) Code() string {
	return strconv.FormatUint(uint64(c), 10)
}

// ParseStatus parses a grpc-status value. Numbers outside the defined range
// are reported as StatusUnknown.
func ParseStatus(s string) (StatusCode, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return StatusUnknown, fmt.Errorf("invalid grpc-status %q", s)
	}
	if n > uint64(StatusUnauthenticated) {
		return StatusUnknown, nil
	}
	return StatusCode(n), nil
}

// HTTPStatusToCode maps a non-200 HTTP status to the gRPC status a
// gRPC-Web client reports when the response carries no gRPC framing.
func HTTPStatusToCode(httpStatus int) StatusCode {
	switch httpStatus {
	case http.StatusOK:
		return StatusOK
	case http.StatusBadRequest:
		return StatusInternal
	case http.StatusUnauthorized:
		return StatusUnauthenticated
	case http.StatusForbidden:
		return StatusPermissionDenied
	case http.StatusNotFound:
		return StatusUnimplemented
	case http.StatusTooManyRequests:
		return StatusUnavailable
	}
	if httpStatus >= 500 && httpStatus <= 599 {
		return StatusUnavailable
	}
	return StatusUnknown
}

const upperHex = "0123456789ABCDEF"

// EncodeGRPCMessage percent-encodes a status message for the grpc-message
// trailer. Printable ASCII other than '%' passes through unchanged.
func EncodeGRPCMessage(msg string) string {
	var sb strings.Builder
	for i := 0; i < len(msg); i++ {
		c := msg[i]
		if c >= 0x20 && c <= 0x7e && c != '%' {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperHex[c>>4])
		sb.WriteByte(upperHex[c&0x0f])
	}
	return sb.String()
}

// DecodeGRPCMessage reverses EncodeGRPCMessage. Malformed escapes are kept
// verbatim rather than failing the call.
func DecodeGRPCMessage(msg string) string {
	if !strings.Contains(msg, "%") {
		return msg
	}
	out := make([]byte, 0, len(msg))
	for i := 0; i < len(msg); i++ {
		if msg[i] == '%' && i+2 < len(msg) {
			hi, okHi := unhex(msg[i+1])
			lo, okLo := unhex(msg[i+2])
			if okHi && okLo {
				out = append(out, hi<<4|lo)
				i += 2
				continue
			}
		}
		out = append(out, msg[i])
	}
	return string(out)
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
