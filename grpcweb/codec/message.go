package codec

import (
	"google.golang.org/protobuf/proto"
)

// Codec is the encode/decode capability of one message type.
type Codec[T any] interface {
	Encode(msg T) ([]byte, error)
	Decode(data []byte) (T, error)
}

type funcCodec[T any] struct {
	encode func(T) ([]byte, error)
	decode func([]byte) (T, error)
}

func (c funcCodec[T]) Encode(msg T) ([]byte, error) { return c.encode(msg) }

func (c funcCodec[T]) Decode(data []byte) (T, error) { return c.decode(data) }

// NewCodec creates a Codec from a pair of serialization functions.
//
// Example:
//
//	c := codec.NewCodec(
//	    func(req *pb.Request) ([]byte, error) { return req.Marshal() },
//	    func(data []byte) (*pb.Request, error) {
//	        req := &pb.Request{}
//	        return req, req.Unmarshal(data)
//	    },
//	)
func NewCodec[T any](encode func(T) ([]byte, error), decode func([]byte) (T, error)) Codec[T] {
	return funcCodec[T]{encode: encode, decode: decode}
}

// ProtoCodec serializes generated protobuf messages.
type ProtoCodec[T proto.Message] struct {
	newMessage func() T
}

// NewProtoCodec creates a Codec for a generated message type; newMessage
// must return a fresh, non-nil message.
func NewProtoCodec[T proto.Message](newMessage func() T) *ProtoCodec[T] {
	return &ProtoCodec[T]{newMessage: newMessage}
}

func (c *ProtoCodec[T]) Encode(msg T) ([]byte, error) {
	return proto.Marshal(msg)
}

func (c *ProtoCodec[T]) Decode(data []byte) (T, error) {
	msg := c.newMessage()
	if err := proto.Unmarshal(data, msg); err != nil {
		var zero T
		return zero, err
	}
	return msg, nil
}
