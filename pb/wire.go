// Package pb holds the testgen message types and their protobuf wire
// encoding. Messages are plain structs; Marshal and Unmarshal follow proto3
// rules (default values are omitted, unknown fields are skipped).
package pb

import (
	"fmt"
	"math"
	"sort"

	"github.com/qaforge/dashrpc/grpcweb/codec"
	"google.golang.org/protobuf/encoding/protowire"
)

type message interface {
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
}

// newCodec returns the codec for message type T.
func newCodec[T any, PT interface {
	*T
	message
}]() codec.Codec[PT] {
	return codec.NewCodec(
		func(m PT) ([]byte, error) {
			if m == nil {
				return []byte{}, nil
			}
			return m.Marshal()
		},
		func(data []byte) (PT, error) {
			m := PT(new(T))
			if err := m.Unmarshal(data); err != nil {
				return nil, err
			}
			return m, nil
		},
	)
}

type encoder struct {
	b []byte
}

func (e *encoder) string(num protowire.Number, v string) {
	if v == "" {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendString(e.b, v)
}

func (e *encoder) strings(num protowire.Number, vs []string) {
	for _, v := range vs {
		e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
		e.b = protowire.AppendString(e.b, v)
	}
}

func (e *encoder) int32(num protowire.Number, v int32) {
	if v == 0 {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, uint64(int64(v)))
}

func (e *encoder) int64(num protowire.Number, v int64) {
	if v == 0 {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, uint64(v))
}

func (e *encoder) bool(num protowire.Number, v bool) {
	if !v {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, protowire.EncodeBool(v))
}

func (e *encoder) double(num protowire.Number, v float64) {
	if v == 0 {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.Fixed64Type)
	e.b = protowire.AppendFixed64(e.b, math.Float64bits(v))
}

func (e *encoder) message(num protowire.Number, m message) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, data)
	return nil
}

// stringMap encodes a map<string, string> in key order.
func (e *encoder) stringMap(num protowire.Number, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		entry := encoder{}
		entry.string(1, k)
		entry.string(2, m[k])
		e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
		e.b = protowire.AppendBytes(e.b, entry.b)
	}
}

func (e *encoder) bytes() []byte {
	if e.b == nil {
		return []byte{}
	}
	return e.b
}

// field is one tagged field being decoded. Readers set n to the number of
// value bytes consumed; fields no reader claims are skipped.
type field struct {
	num protowire.Number
	typ protowire.Type
	buf []byte
	n   int
}

func decode(data []byte, fn func(f *field) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		f := field{num: num, typ: typ, buf: data[n:], n: -1}
		if err := fn(&f); err != nil {
			return err
		}
		if f.n < 0 {
			f.n = protowire.ConsumeFieldValue(num, typ, f.buf)
			if f.n < 0 {
				return protowire.ParseError(f.n)
			}
		}
		data = f.buf[f.n:]
	}
	return nil
}

func (f *field) expect(typ protowire.Type) error {
	if f.typ != typ {
		return fmt.Errorf("field %d: wire type %d, want %d", f.num, f.typ, typ)
	}
	return nil
}

func (f *field) string(dst *string) error {
	if err := f.expect(protowire.BytesType); err != nil {
		return err
	}
	v, n := protowire.ConsumeString(f.buf)
	if n < 0 {
		return protowire.ParseError(n)
	}
	*dst, f.n = v, n
	return nil
}

func (f *field) appendString(dst *[]string) error {
	var v string
	if err := f.string(&v); err != nil {
		return err
	}
	*dst = append(*dst, v)
	return nil
}

func (f *field) varint() (uint64, error) {
	if err := f.expect(protowire.VarintType); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeVarint(f.buf)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	f.n = n
	return v, nil
}

func (f *field) int32(dst *int32) error {
	v, err := f.varint()
	*dst = int32(v)
	return err
}

func (f *field) int64(dst *int64) error {
	v, err := f.varint()
	*dst = int64(v)
	return err
}

func (f *field) bool(dst *bool) error {
	v, err := f.varint()
	*dst = protowire.DecodeBool(v)
	return err
}

func (f *field) double(dst *float64) error {
	if err := f.expect(protowire.Fixed64Type); err != nil {
		return err
	}
	v, n := protowire.ConsumeFixed64(f.buf)
	if n < 0 {
		return protowire.ParseError(n)
	}
	*dst, f.n = math.Float64frombits(v), n
	return nil
}

func (f *field) message(m message) error {
	if err := f.expect(protowire.BytesType); err != nil {
		return err
	}
	v, n := protowire.ConsumeBytes(f.buf)
	if n < 0 {
		return protowire.ParseError(n)
	}
	f.n = n
	return m.Unmarshal(v)
}

// stringMapEntry is the implicit entry message of a map<string, string>.
type stringMapEntry struct {
	key, value string
}

func (m *stringMapEntry) Marshal() ([]byte, error) {
	e := encoder{}
	e.string(1, m.key)
	e.string(2, m.value)
	return e.bytes(), nil
}

func (m *stringMapEntry) Unmarshal(data []byte) error {
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			return f.string(&m.key)
		case 2:
			return f.string(&m.value)
		}
		return nil
	})
}

func (f *field) mapEntry(dst *map[string]string) error {
	var entry stringMapEntry
	if err := f.message(&entry); err != nil {
		return err
	}
	if *dst == nil {
		*dst = make(map[string]string)
	}
	(*dst)[entry.key] = entry.value
	return nil
}
