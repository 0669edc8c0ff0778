package codec

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// RequestEnvelope is one outgoing unary call before it hits a transport.
type RequestEnvelope struct {
	Path    string            // Full method path, e.g., "/package.Service/Method"
	Headers map[string]string // Request headers (metadata), lower-case keys
	Body    []byte            // gRPC-Web frames carrying the request message
}

// ServicePath returns the "package.Service" part of Path.
func (e RequestEnvelope) ServicePath() string {
	service, _ := SplitMethodPath(e.Path)
	return service
}

// MethodName returns the method part of Path.
func (e RequestEnvelope) MethodName() string {
	_, method := SplitMethodPath(e.Path)
	return method
}

// SplitMethodPath splits "/package.Service/Method" into its two parts.
func SplitMethodPath(path string) (service, method string) {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

// MethodPath joins a service and method name into a request path.
func MethodPath(service, method string) string {
	return "/" + service + "/" + method
}

// ResponseEnvelope is the decoded outcome of one unary call.
type ResponseEnvelope[T any] struct {
	Status     StatusCode
	Message    T // zero value when the response carried no data frame
	HasMessage bool
	ErrorText  string // decoded grpc-message for non-OK status
	Trailers   map[string]string
}

// Err converts a non-OK envelope into an RPCError.
func (e ResponseEnvelope[T]) Err() error {
	if e.Status == StatusOK {
		return nil
	}
	return &RPCError{Code: e.Status, Message: e.ErrorText, Trailers: e.Trailers}
}

// UnaryBody is a decoded unary response body before message decoding.
type UnaryBody struct {
	Message    []byte // payload of the selected data frame, nil if none
	DataFrames int
	Status     StatusCode
	StatusText string
	Trailers   map[string]string
}

// DecodeUnaryBody splits a buffered unary response into its data and
// trailer frames and extracts the final status.
//
// Data frames must precede the single trailer frame. When more than one data
// frame is present the last one wins. A body without a trailer frame is
// accepted only if headers carries grpc-status (a trailers-only response).
func DecodeUnaryBody(body []byte, headers map[string]string) (*UnaryBody, error) {
	result := &UnaryBody{}
	var trailers map[string]string

	for frame, err := range Frames(body) {
		if err != nil {
			return nil, err
		}
		if trailers != nil {
			return nil, &FramingError{Offset: -1, Reason: "frame after trailer"}
		}
		if frame.IsTrailer() {
			trailers = ParseTrailers(frame.Data)
			continue
		}
		result.DataFrames++
		result.Message = frame.Data
	}

	if trailers == nil {
		if _, ok := headers["grpc-status"]; !ok {
			return nil, &FramingError{Offset: -1, Reason: "missing trailer frame"}
		}
		trailers = headers
	}

	code, text, err := TrailerStatus(trailers)
	if err != nil {
		return nil, err
	}
	result.Status = code
	result.StatusText = text
	result.Trailers = trailers
	return result, nil
}

// EncodeUnaryBody builds the response body a server sends for one unary
// call: an optional data frame followed by the status trailer.
func EncodeUnaryBody(message []byte, code StatusCode, statusText string) ([]byte, error) {
	var body []byte
	if message != nil {
		dataFrame, err := EncodeFrame(CreateDataFrame(message))
		if err != nil {
			return nil, err
		}
		body = append(body, dataFrame...)
	}
	trailerFrame, err := EncodeFrame(CreateStatusTrailer(code, statusText))
	if err != nil {
		return nil, err
	}
	return append(body, trailerFrame...), nil
}

// Peer envelopes carry requests over message-oriented channels (WebRTC
// DataChannel) where there is no HTTP request line or header block.
//
// Request format:
// - 4 bytes: path length (big-endian)
// - N bytes: path string (UTF-8)
// - 4 bytes: headers length (big-endian)
// - M bytes: headers as JSON string
// - Rest: gRPC-Web frames
//
// Response format:
// - 4 bytes: headers length (big-endian)
// - N bytes: headers as JSON string
// - Rest: gRPC-Web frames (data frames + trailer frame)

// PeerResponse is a response received over a peer channel.
type PeerResponse struct {
	Headers map[string]string
	Body    []byte
}

// EncodeRequest encodes a request envelope for a peer channel
// Format: [path_len(4)][path(N)][headers_len(4)][headers_json(M)][grpc_frames]
func EncodeRequest(envelope RequestEnvelope) ([]byte, error) {
	pathBytes := []byte(envelope.Path)
	pathLength := len(pathBytes)

	headers := envelope.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal headers: %w", err)
	}
	headersLength := len(headersJSON)

	totalLength := 4 + pathLength + 4 + headersLength + len(envelope.Body)
	buffer := make([]byte, totalLength)
	offset := 0

	binary.BigEndian.PutUint32(buffer[offset:offset+4], uint32(pathLength))
	offset += 4

	copy(buffer[offset:offset+pathLength], pathBytes)
	offset += pathLength

	binary.BigEndian.PutUint32(buffer[offset:offset+4], uint32(headersLength))
	offset += 4

	copy(buffer[offset:offset+headersLength], headersJSON)
	offset += headersLength

	copy(buffer[offset:], envelope.Body)

	return buffer, nil
}

// DecodeRequest decodes a request envelope received from a peer channel
func DecodeRequest(data []byte) (*RequestEnvelope, error) {
	if len(data) < 8 {
		return nil, errors.New("incomplete request: data too short")
	}

	offset := 0

	pathLength := binary.BigEndian.Uint32(data[offset : offset+4])
	offset += 4

	if uint64(offset)+uint64(pathLength) > uint64(len(data)) {
		return nil, errors.New("incomplete request: missing path")
	}
	path := string(data[offset : offset+int(pathLength)])
	offset += int(pathLength)

	if offset+4 > len(data) {
		return nil, errors.New("incomplete request: missing headers length")
	}
	headersLength := binary.BigEndian.Uint32(data[offset : offset+4])
	offset += 4

	if uint64(offset)+uint64(headersLength) > uint64(len(data)) {
		return nil, errors.New("incomplete request: missing headers")
	}
	headersJSON := data[offset : offset+int(headersLength)]
	offset += int(headersLength)

	var headers map[string]string
	if err := json.Unmarshal(headersJSON, &headers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal headers: %w", err)
	}

	body := make([]byte, len(data)-offset)
	copy(body, data[offset:])

	return &RequestEnvelope{
		Path:    path,
		Headers: headers,
		Body:    body,
	}, nil
}

// EncodePeerResponse encodes a response for a peer channel
// Format: [headers_len(4)][headers_json(N)][grpc_frames]
func EncodePeerResponse(resp PeerResponse) ([]byte, error) {
	headers := resp.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal headers: %w", err)
	}

	buffer := make([]byte, 4+len(headersJSON)+len(resp.Body))
	binary.BigEndian.PutUint32(buffer[0:4], uint32(len(headersJSON)))
	copy(buffer[4:], headersJSON)
	copy(buffer[4+len(headersJSON):], resp.Body)

	return buffer, nil
}

// DecodePeerResponse decodes a response received from a peer channel.
// The frames are returned undecoded in Body.
func DecodePeerResponse(data []byte) (*PeerResponse, error) {
	if len(data) < 4 {
		return nil, errors.New("incomplete response: data too short")
	}

	headersLength := binary.BigEndian.Uint32(data[0:4])
	if 4+uint64(headersLength) > uint64(len(data)) {
		return nil, errors.New("incomplete response: missing headers")
	}
	end := 4 + int(headersLength)

	var headers map[string]string
	if err := json.Unmarshal(data[4:end], &headers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal headers: %w", err)
	}

	body := make([]byte, len(data)-end)
	copy(body, data[end:])

	return &PeerResponse{
		Headers: headers,
		Body:    body,
	}, nil
}
