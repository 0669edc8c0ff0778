package codec

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"
	"testing"
)

func TestEncodeFrame(t *testing.T) {
	tests := []struct {
		name     string
		frame    Frame
		expected []byte
	}{
		{
			name: "data frame with content",
			frame: Frame{
				Flags: FrameData,
				Data:  []byte("hello"),
			},
			expected: []byte{0x00, 0x00, 0x00, 0x00, 0x05, 'h', 'e', 'l', 'l', 'o'},
		},
		{
			name: "trailer frame",
			frame: Frame{
				Flags: FrameTrailer,
				Data:  []byte("grpc-status: 0\r\n"),
			},
			expected: append([]byte{0x80, 0x00, 0x00, 0x00, 0x10}, []byte("grpc-status: 0\r\n")...),
		},
		{
			name: "empty data frame",
			frame: Frame{
				Flags: FrameData,
				Data:  []byte{},
			},
			expected: []byte{0x00, 0x00, 0x00, 0x00, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EncodeFrame(tt.frame)
			if err != nil {
				t.Fatalf("EncodeFrame() error = %v", err)
			}
			if !bytes.Equal(result, tt.expected) {
				t.Errorf("EncodeFrame() = %v, want %v", result, tt.expected)
			}
		})
	}
}

// Vectors produced by the browser client.
func TestEncodeFrameWireCompatibility(t *testing.T) {
	tests := []struct {
		data []byte
		want string
	}{
		{[]byte("hello"), "000000000568656c6c6f"},
		{nil, "0000000000"},
	}
	for _, tt := range tests {
		encoded, err := EncodeFrame(CreateDataFrame(tt.data))
		if err != nil {
			t.Fatalf("EncodeFrame() error = %v", err)
		}
		if got := hex.EncodeToString(encoded); got != tt.want {
			t.Errorf("EncodeFrame(%q) = %s, want %s", tt.data, got, tt.want)
		}
	}
}

func TestFrameLengthOverflow(t *testing.T) {
	if strconv.IntSize == 32 {
		t.Skip("int cannot exceed the 32-bit frame length")
	}
	n := int64(math.MaxUint32) + 1
	_, err := frameLength(int(n))

	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("frameLength() error = %v, want *EncodingError", err)
	}
	if encErr.Length != uint64(n) {
		t.Errorf("EncodingError.Length = %d, want %d", encErr.Length, n)
	}
	if StatusOf(err) != StatusInternal {
		t.Errorf("StatusOf() = %v, want %v", StatusOf(err), StatusInternal)
	}

	length, err := frameLength(int(n - 1))
	if err != nil {
		t.Fatalf("frameLength(max) error = %v", err)
	}
	if length != math.MaxUint32 {
		t.Errorf("frameLength(max) = %d, want %d", length, uint32(math.MaxUint32))
	}
}

func TestDecodeFrames(t *testing.T) {
	tests := []struct {
		name           string
		buffer         []byte
		expectedFrames []Frame
	}{
		{
			name:   "single complete frame",
			buffer: []byte{0x00, 0x00, 0x00, 0x00, 0x05, 'h', 'e', 'l', 'l', 'o'},
			expectedFrames: []Frame{
				{Flags: FrameData, Data: []byte("hello")},
			},
		},
		{
			name: "data frame then trailer frame",
			buffer: append(
				[]byte{0x00, 0x00, 0x00, 0x00, 0x05, 'h', 'e', 'l', 'l', 'o'},
				[]byte{0x80, 0x00, 0x00, 0x00, 0x05, 'w', 'o', 'r', 'l', 'd'}...,
			),
			expectedFrames: []Frame{
				{Flags: FrameData, Data: []byte("hello")},
				{Flags: FrameTrailer, Data: []byte("world")},
			},
		},
		{
			name:           "empty buffer",
			buffer:         []byte{},
			expectedFrames: []Frame{},
		},
		{
			name:   "empty payload",
			buffer: []byte{0x00, 0x00, 0x00, 0x00, 0x00},
			expectedFrames: []Frame{
				{Flags: FrameData, Data: []byte{}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames, err := DecodeFrames(tt.buffer)
			if err != nil {
				t.Fatalf("DecodeFrames() error = %v", err)
			}
			if len(frames) != len(tt.expectedFrames) {
				t.Fatalf("DecodeFrames() got %d frames, want %d", len(frames), len(tt.expectedFrames))
			}
			for i, frame := range frames {
				if frame.Flags != tt.expectedFrames[i].Flags {
					t.Errorf("Frame %d flags = %v, want %v", i, frame.Flags, tt.expectedFrames[i].Flags)
				}
				if !bytes.Equal(frame.Data, tt.expectedFrames[i].Data) {
					t.Errorf("Frame %d data = %v, want %v", i, frame.Data, tt.expectedFrames[i].Data)
				}
			}
		})
	}
}

func TestDecodeFramesErrors(t *testing.T) {
	tests := []struct {
		name        string
		buffer      []byte
		compression bool
	}{
		{
			name:   "incomplete header",
			buffer: []byte{0x00, 0x00, 0x00},
		},
		{
			name:   "declared length exceeds remaining bytes",
			buffer: []byte{0x00, 0x00, 0x00, 0x00, 0x05, 'h', 'e'},
		},
		{
			name: "complete frame with partial next frame",
			buffer: append(
				[]byte{0x00, 0x00, 0x00, 0x00, 0x05, 'h', 'e', 'l', 'l', 'o'},
				[]byte{0x80, 0x00, 0x00}...,
			),
		},
		{
			name:   "unknown flag bits",
			buffer: []byte{0x40, 0x00, 0x00, 0x00, 0x00},
		},
		{
			name:        "compressed data frame",
			buffer:      []byte{0x01, 0x00, 0x00, 0x00, 0x01, 'x'},
			compression: true,
		},
		{
			name:        "compressed trailer frame",
			buffer:      []byte{0x81, 0x00, 0x00, 0x00, 0x01, 'x'},
			compression: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames, err := DecodeFrames(tt.buffer)
			if err == nil {
				t.Fatal("DecodeFrames() expected error")
			}
			if frames != nil {
				t.Errorf("DecodeFrames() frames = %v, want nil", frames)
			}
			if !IsFramingError(err) {
				t.Errorf("IsFramingError(%v) = false", err)
			}
			if StatusOf(err) != StatusInternal {
				t.Errorf("StatusOf() = %v, want %v", StatusOf(err), StatusInternal)
			}

			var compErr *UnsupportedCompressionError
			if got := errors.As(err, &compErr); got != tt.compression {
				t.Errorf("compression error = %v, want %v", got, tt.compression)
			}
		})
	}
}

func TestFramesYieldsCompleteFramesBeforeError(t *testing.T) {
	buffer := append(
		[]byte{0x00, 0x00, 0x00, 0x00, 0x02, 'o', 'k'},
		[]byte{0x80, 0x00, 0x00, 0x00, 0x09, 'g'}...,
	)

	var frames []Frame
	var lastErr error
	for frame, err := range Frames(buffer) {
		if err != nil {
			lastErr = err
			break
		}
		frames = append(frames, frame)
	}

	if len(frames) != 1 || string(frames[0].Data) != "ok" {
		t.Fatalf("frames before error = %v, want one \"ok\" frame", frames)
	}

	var framingErr *FramingError
	if !errors.As(lastErr, &framingErr) {
		t.Fatalf("error = %v, want *FramingError", lastErr)
	}
	if framingErr.Offset != 7 {
		t.Errorf("FramingError.Offset = %d, want 7", framingErr.Offset)
	}
	if !strings.Contains(framingErr.Error(), "truncated frame") {
		t.Errorf("FramingError.Error() = %q", framingErr.Error())
	}
}

func TestFramesStopsWhenConsumerBreaks(t *testing.T) {
	a, _ := EncodeFrame(CreateDataFrame([]byte("a")))
	b, _ := EncodeFrame(CreateDataFrame([]byte("b")))

	count := 0
	for range Frames(append(a, b...)) {
		count++
		break
	}
	if count != 1 {
		t.Errorf("iterations = %d, want 1", count)
	}
}

func TestFrameBoundary(t *testing.T) {
	frameA, err := EncodeFrame(CreateDataFrame([]byte("payload-a")))
	if err != nil {
		t.Fatal(err)
	}
	frameB, err := EncodeFrame(CreateStatusTrailer(StatusOK, ""))
	if err != nil {
		t.Fatal(err)
	}

	frames, err := DecodeFrames(append(frameA, frameB...))
	if err != nil {
		t.Fatalf("DecodeFrames() error = %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(frames))
	}
	if frames[0].IsTrailer() || !bytes.Equal(frames[0].Data, []byte("payload-a")) {
		t.Errorf("first frame = %+v, want data frame \"payload-a\"", frames[0])
	}
	if !frames[1].IsTrailer() {
		t.Error("second frame is not a trailer")
	}
	want := map[string]string{"grpc-status": "0"}
	if got := ParseTrailers(frames[1].Data); !reflect.DeepEqual(got, want) {
		t.Errorf("ParseTrailers() = %v, want %v", got, want)
	}
}

func TestDecodedFrameDoesNotAliasBuffer(t *testing.T) {
	buffer := []byte{0x00, 0x00, 0x00, 0x00, 0x02, 'h', 'i'}
	frames, err := DecodeFrames(buffer)
	if err != nil {
		t.Fatalf("DecodeFrames() error = %v", err)
	}

	buffer[5] = 'x'
	if string(frames[0].Data) != "hi" {
		t.Errorf("frame data = %q after buffer change, want %q", frames[0].Data, "hi")
	}
}

func TestCreateTrailerFrame(t *testing.T) {
	trailers := map[string]string{
		"grpc-status":  "0",
		"grpc-message": "OK",
	}

	frame := CreateTrailerFrame(trailers)

	if frame.Flags != FrameTrailer {
		t.Errorf("CreateTrailerFrame() flags = %v, want %v", frame.Flags, FrameTrailer)
	}
	if got, want := string(frame.Data), "grpc-message: OK\r\ngrpc-status: 0\r\n"; got != want {
		t.Errorf("CreateTrailerFrame() data = %q, want %q", got, want)
	}
	if parsed := ParseTrailers(frame.Data); !reflect.DeepEqual(parsed, trailers) {
		t.Errorf("ParseTrailers() = %v, want %v", parsed, trailers)
	}
}

func TestCreateStatusTrailer(t *testing.T) {
	frame := CreateStatusTrailer(StatusNotFound, "not found")
	if got, want := string(frame.Data), "grpc-message: not%20found\r\ngrpc-status: 5\r\n"; got != want {
		t.Errorf("CreateStatusTrailer() data = %q, want %q", got, want)
	}

	code, msg, err := TrailerStatus(ParseTrailers(frame.Data))
	if err != nil {
		t.Fatalf("TrailerStatus() error = %v", err)
	}
	if code != StatusNotFound || msg != "not found" {
		t.Errorf("TrailerStatus() = %v, %q, want %v, %q", code, msg, StatusNotFound, "not found")
	}
}

func TestParseTrailers(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected map[string]string
	}{
		{
			name: "single header",
			data: []byte("grpc-status: 0\r\n"),
			expected: map[string]string{
				"grpc-status": "0",
			},
		},
		{
			name: "no space after colon",
			data: []byte("grpc-status:5\r\ngrpc-message:not%20found\r\n"),
			expected: map[string]string{
				"grpc-status":  "5",
				"grpc-message": "not%20found",
			},
		},
		{
			name: "headers with whitespace",
			data: []byte("grpc-status : 0 \r\n grpc-message: OK\r\n"),
			expected: map[string]string{
				"grpc-status":  "0",
				"grpc-message": "OK",
			},
		},
		{
			name:     "empty headers",
			data:     []byte("\r\n"),
			expected: map[string]string{},
		},
		{
			name: "invalid header line ignored",
			data: []byte("grpc-status: 0\r\ninvalidline\r\ngrpc-message: OK\r\n"),
			expected: map[string]string{
				"grpc-status":  "0",
				"grpc-message": "OK",
			},
		},
		{
			name: "case insensitive keys",
			data: []byte("Grpc-Status: 0\r\nGRPC-MESSAGE: OK\r\n"),
			expected: map[string]string{
				"grpc-status":  "0",
				"grpc-message": "OK",
			},
		},
		{
			name: "value containing colon",
			data: []byte("grpc-message: a:b\r\n"),
			expected: map[string]string{
				"grpc-message": "a:b",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseTrailers(tt.data)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ParseTrailers() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestTrailerStatus(t *testing.T) {
	tests := []struct {
		name     string
		trailers map[string]string
		code     StatusCode
		message  string
		wantErr  bool
	}{
		{
			name:     "ok",
			trailers: map[string]string{"grpc-status": "0"},
			code:     StatusOK,
		},
		{
			name:     "not found with encoded message",
			trailers: map[string]string{"grpc-status": "5", "grpc-message": "not%20found"},
			code:     StatusNotFound,
			message:  "not found",
		},
		{
			name:     "missing status",
			trailers: map[string]string{"grpc-message": "oops"},
			wantErr:  true,
		},
		{
			name:     "non numeric status",
			trailers: map[string]string{"grpc-status": "ok"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg, err := TrailerStatus(tt.trailers)
			if tt.wantErr {
				if !IsFramingError(err) {
					t.Errorf("TrailerStatus() error = %v, want framing error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("TrailerStatus() error = %v", err)
			}
			if code != tt.code {
				t.Errorf("TrailerStatus() code = %v, want %v", code, tt.code)
			}
			if msg != tt.message {
				t.Errorf("TrailerStatus() message = %q, want %q", msg, tt.message)
			}
		})
	}
}
