// Package proto contains the payload messages carried inside TCP frames and
// UDP datagrams. Encoding is standard protobuf wire format, written by hand
// over encoding/protowire: field numbers are fixed per message, floats are
// fixed32, integers varint. Hand-rolled codecs keep the per-tick hot path
// free of reflection and generated-code allocations.
package proto

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrTruncated is returned when a payload ends mid-field.
var ErrTruncated = fmt.Errorf("proto: truncated payload")

func appendFloat(b []byte, num protowire.Number, v float32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendSint(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendMessage(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

// walkFields iterates every field of a payload, calling visit with the field
// number, wire type, and the value bytes positioned at the field start.
// visit returns the number of value bytes it consumed, or a negative
// protowire error count.
func walkFields(b []byte, visit func(num protowire.Number, typ protowire.Type, val []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return ErrTruncated
		}
		b = b[n:]
		m := visit(num, typ, b)
		if m < 0 {
			return ErrTruncated
		}
		if m == 0 {
			// Field not recognised by this message: skip it for forward
			// compatibility, same as generated code does.
			m = protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return ErrTruncated
			}
		}
		b = b[m:]
	}
	return nil
}

func consumeFloat(b []byte) (float32, int) {
	v, n := protowire.ConsumeFixed32(b)
	return math.Float32frombits(v), n
}

func consumeUint(b []byte) (uint64, int) {
	return protowire.ConsumeVarint(b)
}

func consumeSint(b []byte) (int64, int) {
	v, n := protowire.ConsumeVarint(b)
	return protowire.DecodeZigZag(v), n
}

func consumeBool(b []byte) (bool, int) {
	v, n := protowire.ConsumeVarint(b)
	return v != 0, n
}

func consumeString(b []byte) (string, int) {
	return protowire.ConsumeString(b)
}

func consumeBytes(b []byte) ([]byte, int) {
	return protowire.ConsumeBytes(b)
}
