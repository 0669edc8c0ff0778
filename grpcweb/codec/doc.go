// Package codec implements gRPC-Web frame encoding and decoding.
//
// The gRPC-Web protocol uses a simple framing format to transport messages:
//   - 1 byte: flags (0x00 = data, 0x80 = trailer, 0x01 = compressed)
//   - 4 bytes: big-endian message length
//   - N bytes: message payload
//
// A unary response body is zero or more data frames followed by exactly one
// trailer frame whose payload is HTTP/1.1 style "key: value" lines carrying
// grpc-status and grpc-message.
//
// Example usage:
//
//	// Encoding
//	body, err := codec.EncodeMessage(reqCodec, req)
//
//	// Decoding
//	for frame, err := range codec.Frames(body) {
//	    if err != nil {
//	        return err
//	    }
//	    // Process frame
//	}
//
// Compression is not supported; a frame with the compression bit set is
// reported as an UnsupportedCompressionError. Every failure produced by this
// package carries a StatusCode so the layers above can hand a single
// {status, message} pair to callers.
package codec
