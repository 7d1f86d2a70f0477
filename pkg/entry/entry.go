// Package entry defines the key/value pair stored in B+ tree leaves and the
// total order used to compare keys.
//
// Grounded on the teacher's pkg/entry/entry.go, generalized from fixed
// int64 keys/values to byte slices with a caller-supplied Comparator (see
// the core spec's §9 note that keys and values are, at the wire level,
// byte sequences with a caller-supplied total order).
package entry

import "bytes"

// Entry is a key/value pair as stored in a B+ tree leaf. A deleted key is
// removed from its leaf outright rather than marked in place (see
// BPlusTree.Delete), so every Entry that exists represents a present value.
type Entry struct {
	Key   []byte
	Value []byte
}

// New constructs an entry.
func New(key, value []byte) Entry {
	return Entry{Key: key, Value: value}
}

// Comparator totally orders keys. Implementations must be consistent with
// the byte encoding used across restarts; the default, Bytes, compares lexically.
type Comparator func(a, b []byte) int

// Bytes is the default Comparator: lexicographic byte comparison.
func Bytes(a, b []byte) int {
	return bytes.Compare(a, b)
}
