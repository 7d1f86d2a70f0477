package engine

import "chronodb/pkg/txn"

// Codec converts a typed value to and from the byte encoding stored in the
// tree. Encode must be injective: distinct values must never encode to the
// same bytes, since Decode has to recover the original value exactly.
type Codec[T any] interface {
	Encode(T) []byte
	Decode([]byte) (T, error)
}

// Comparator totally orders typed keys, consistently with the byte order
// produced by the key Codec's Encode (the tree only ever compares encoded bytes).
type Comparator[K any] func(a, b K) int

// Typed wraps an Engine with a key type K and value type V, encoding and
// decoding through the supplied codecs so callers never handle raw bytes.
// This is a thin layer in the same spirit as pkg/entry.Entry: the tree
// itself remains byte-keyed throughout, exactly as pkg/btree requires.
type Typed[K, V any] struct {
	engine   *Engine
	keyCodec Codec[K]
	valCodec Codec[V]
}

// NewTyped wraps engine with the given key and value codecs.
func NewTyped[K, V any](engine *Engine, keyCodec Codec[K], valCodec Codec[V]) *Typed[K, V] {
	return &Typed[K, V]{engine: engine, keyCodec: keyCodec, valCodec: valCodec}
}

// Begin starts a new transaction against the underlying engine.
func (t *Typed[K, V]) Begin() (*txn.Txn, error) {
	return t.engine.Begin()
}

// Commit commits tx.
func (t *Typed[K, V]) Commit(tx *txn.Txn) error {
	return t.engine.Commit(tx)
}

// Abort aborts tx.
func (t *Typed[K, V]) Abort(tx *txn.Txn) error {
	return t.engine.Abort(tx)
}

// Get decodes and returns the value visible to tx for key.
func (t *Typed[K, V]) Get(tx *txn.Txn, key K) (value V, found bool, err error) {
	raw, found, err := t.engine.Get(tx, t.keyCodec.Encode(key))
	if err != nil || !found {
		return value, found, err
	}
	value, err = t.valCodec.Decode(raw)
	return value, true, err
}

// Insert records key=value under tx.
func (t *Typed[K, V]) Insert(tx *txn.Txn, key K, value V) error {
	return t.engine.Insert(tx, t.keyCodec.Encode(key), t.valCodec.Encode(value))
}

// Delete records a deletion of key under tx.
func (t *Typed[K, V]) Delete(tx *txn.Txn, key K) error {
	return t.engine.Delete(tx, t.keyCodec.Encode(key))
}

// Pair is one decoded (key, value) result from a RangeScan.
type Pair[K, V any] struct {
	Key   K
	Value V
}

// RangeScan returns every visible pair with key in [lo, hi), decoded, in the
// tree's key order. Note: as with the underlying txn.Scanner, keys the
// transaction itself wrote that the tree walk did not return are appended
// after the ordered portion rather than merged into it.
func (t *Typed[K, V]) RangeScan(tx *txn.Txn, lo, hi K) ([]Pair[K, V], error) {
	scanner, err := t.engine.RangeScan(tx, t.keyCodec.Encode(lo), t.keyCodec.Encode(hi))
	if err != nil {
		return nil, err
	}
	var out []Pair[K, V]
	for {
		rawKey, rawValue, ok, err := scanner.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		key, err := t.keyCodec.Decode(rawKey)
		if err != nil {
			return nil, err
		}
		value, err := t.valCodec.Decode(rawValue)
		if err != nil {
			return nil, err
		}
		out = append(out, Pair[K, V]{Key: key, Value: value})
	}
	return out, nil
}
