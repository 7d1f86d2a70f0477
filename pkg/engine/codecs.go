package engine

import (
	"encoding/binary"

	"chronodb/pkg/errs"
)

const codecComponent = "engine.codec"

// BytesCodec is the identity Codec: it is useful both on its own (for
// callers who want Typed's transaction/scan ergonomics without giving up
// byte keys) and as a model for writing other Codecs.
type BytesCodec struct{}

func (BytesCodec) Encode(v []byte) []byte { return v }
func (BytesCodec) Decode(b []byte) ([]byte, error) {
	return append([]byte(nil), b...), nil
}

// StringCodec encodes a string as its UTF-8 bytes.
type StringCodec struct{}

func (StringCodec) Encode(v string) []byte { return []byte(v) }
func (StringCodec) Decode(b []byte) (string, error) {
	return string(b), nil
}

// Uint64Codec encodes a uint64 as 8 big-endian bytes, so lexicographic byte
// order (the order the tree compares keys with) matches numeric order.
type Uint64Codec struct{}

func (Uint64Codec) Encode(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func (Uint64Codec) Decode(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, errs.New(errs.Corrupted, codecComponent, "uint64 key/value must be exactly 8 bytes")
	}
	return binary.BigEndian.Uint64(b), nil
}
