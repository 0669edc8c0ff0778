package codec

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"sort"
	"strings"
)

const (
	// FrameData represents an uncompressed data frame
	FrameData byte = 0x00
	// FrameCompressed is the compression bit; compressed frames are rejected
	FrameCompressed byte = 0x01
	// FrameTrailer represents a trailer frame
	FrameTrailer byte = 0x80
	// HeaderSize is the size of the frame header (1 byte flags + 4 bytes length)
	HeaderSize = 5
)

// Frame represents a gRPC-Web frame
type Frame struct {
	Flags byte
	Data  []byte
}

// IsTrailer reports whether the frame terminates the response.
func (f Frame) IsTrailer() bool {
	return f.Flags&FrameTrailer != 0
}

// frameLength validates that n bytes fit the 32-bit length prefix.
func frameLength(n int) (uint32, error) {
	if uint64(n) > math.MaxUint32 {
		return 0, &EncodingError{Length: uint64(n), Reason: "payload exceeds 32-bit frame length"}
	}
	return uint32(n), nil
}

// EncodeFrame encodes a single frame into gRPC-Web format
func EncodeFrame(frame Frame) ([]byte, error) {
	messageLength, err := frameLength(len(frame.Data))
	if err != nil {
		return nil, err
	}
	buffer := make([]byte, HeaderSize+len(frame.Data))

	buffer[0] = frame.Flags
	binary.BigEndian.PutUint32(buffer[1:HeaderSize], messageLength)
	copy(buffer[HeaderSize:], frame.Data)

	return buffer, nil
}

// EncodeMessage serializes msg with c and wraps it in a single data frame.
func EncodeMessage[T any](c Codec[T], msg T) ([]byte, error) {
	payload, err := c.Encode(msg)
	if err != nil {
		return nil, &EncodingError{Reason: "message encode failed", Err: err}
	}
	return EncodeFrame(CreateDataFrame(payload))
}

// Frames returns a lazy sequence over the frames in buffer, in stream order.
//
// The sequence stops after the first error. A header or payload that runs
// past the end of buffer is reported as a FramingError; no partial frame is
// ever yielded. Frame data is copied so callers may retain it.
func Frames(buffer []byte) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		offset := 0
		bufferLen := len(buffer)

		for offset < bufferLen {
			if offset+HeaderSize > bufferLen {
				yield(Frame{}, &FramingError{Offset: offset, Reason: "truncated frame header"})
				return
			}

			flags := buffer[offset]
			messageLength := binary.BigEndian.Uint32(buffer[offset+1 : offset+HeaderSize])

			if flags&FrameCompressed != 0 {
				yield(Frame{}, &UnsupportedCompressionError{Offset: offset, Flags: flags})
				return
			}
			if flags&^FrameTrailer != 0 {
				yield(Frame{}, &FramingError{Offset: offset, Reason: fmt.Sprintf("unknown frame flags 0x%02x", flags)})
				return
			}

			remaining := bufferLen - offset - HeaderSize
			if uint64(messageLength) > uint64(remaining) {
				yield(Frame{}, &FramingError{
					Offset: offset,
					Reason: fmt.Sprintf("truncated frame: declared %d bytes, %d available", messageLength, remaining),
				})
				return
			}

			frameEnd := offset + HeaderSize + int(messageLength)
			data := make([]byte, messageLength)
			copy(data, buffer[offset+HeaderSize:frameEnd])

			if !yield(Frame{Flags: flags, Data: data}, nil) {
				return
			}
			offset = frameEnd
		}
	}
}

// DecodeFrames decodes every frame in buffer. It fails on the first
// malformed frame instead of returning what was read so far.
func DecodeFrames(buffer []byte) ([]Frame, error) {
	frames := []Frame{}
	for frame, err := range Frames(buffer) {
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// CreateDataFrame creates a data frame
func CreateDataFrame(data []byte) Frame {
	return Frame{
		Flags: FrameData,
		Data:  data,
	}
}

// CreateTrailerFrame creates a trailer frame from headers.
// Trailers are encoded as HTTP/1.1 headers format, sorted by key:
// "key1: value1\r\nkey2: value2\r\n"
func CreateTrailerFrame(trailers map[string]string) Frame {
	keys := make([]string, 0, len(trailers))
	for key := range trailers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		sb.WriteString(strings.ToLower(key))
		sb.WriteString(": ")
		sb.WriteString(trailers[key])
		sb.WriteString("\r\n")
	}

	return Frame{
		Flags: FrameTrailer,
		Data:  []byte(sb.String()),
	}
}

// CreateStatusTrailer creates the trailer frame for a final status.
// The message is percent-encoded.
func CreateStatusTrailer(code StatusCode, message string) Frame {
	trailers := map[string]string{
		"grpc-status": code.Code(),
	}
	if message != "" {
		trailers["grpc-message"] = EncodeGRPCMessage(message)
	}
	return CreateTrailerFrame(trailers)
}

// ParseTrailers parses trailer frame data to headers.
// Expects HTTP/1.1 header format: "key1: value1\r\nkey2: value2\r\n"
func ParseTrailers(data []byte) map[string]string {
	text := string(data)
	trailers := make(map[string]string)

	lines := strings.Split(text, "\r\n")

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		colonIndex := strings.Index(line, ":")
		if colonIndex == -1 {
			continue // Invalid header line, skip
		}

		key := strings.TrimSpace(strings.ToLower(line[:colonIndex]))
		value := strings.TrimSpace(line[colonIndex+1:])

		trailers[key] = value
	}

	return trailers
}

// TrailerStatus extracts grpc-status and the decoded grpc-message.
func TrailerStatus(trailers map[string]string) (StatusCode, string, error) {
	raw, ok := trailers["grpc-status"]
	if !ok {
		return StatusUnknown, "", &FramingError{Offset: -1, Reason: "trailer missing grpc-status"}
	}
	code, err := ParseStatus(raw)
	if err != nil {
		return StatusUnknown, "", &FramingError{Offset: -1, Reason: err.Error()}
	}
	return code, DecodeGRPCMessage(trailers["grpc-message"]), nil
}
