// NodeCodec: serialization of B+ tree leaf and internal nodes into a page's
// payload bytes. Grounded on the teacher's pkg/btree node encoding
// (NODETYPE_OFFSET/NUM_KEYS_OFFSET and the leaf/internal header constants
// in pkg/btree/constants.go), generalized from fixed-width varint entries to
// the core spec's length-prefixed variable-length entries.
package btree

import (
	"encoding/binary"

	"chronodb/pkg/entry"
	"chronodb/pkg/errs"
	"chronodb/pkg/page"
)

const codecComponent = "btree.codec"

func putUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func getUint32(b []byte) uint32    { return binary.LittleEndian.Uint32(b) }

// entryEncodedSize returns the on-disk size of a single leaf entry.
func entryEncodedSize(e entry.Entry) int {
	return 4 + len(e.Key) + 4 + len(e.Value)
}

// encodeLeaf serializes a leaf node's logical contents into a page payload.
// Returns errs.Corrupted (really an overflow caught before it happens) if
// the encoding would not fit; callers must split before this occurs.
func encodeLeaf(payload []byte, nextLeaf int32, entries []entry.Entry) error {
	size := leafHeaderSize
	for _, e := range entries {
		size += entryEncodedSize(e)
	}
	if size > len(payload) {
		return errs.New(errs.Corrupted, codecComponent, "encoded leaf exceeds page payload capacity")
	}
	payload[0] = byte(page.Leaf)
	putUint32(payload[1:5], uint32(len(entries)))
	putUint32(payload[5:9], uint32(uint32(nextLeaf)))
	off := leafHeaderSize
	for _, e := range entries {
		putUint32(payload[off:off+4], uint32(len(e.Key)))
		off += 4
		copy(payload[off:off+len(e.Key)], e.Key)
		off += len(e.Key)
		putUint32(payload[off:off+4], uint32(len(e.Value)))
		off += 4
		copy(payload[off:off+len(e.Value)], e.Value)
		off += len(e.Value)
	}
	// Zero any trailing bytes from a previous, larger encoding.
	for i := off; i < len(payload); i++ {
		payload[i] = 0
	}
	return nil
}

// decodeLeaf parses a leaf node's logical contents out of a page payload.
func decodeLeaf(payload []byte) (nextLeaf int32, entries []entry.Entry, err error) {
	if page.Kind(payload[0]) != page.Leaf {
		return 0, nil, errs.New(errs.Corrupted, codecComponent, "page kind tag does not match leaf node encoding")
	}
	count := getUint32(payload[1:5])
	nextLeaf = int32(getUint32(payload[5:9]))
	off := leafHeaderSize
	entries = make([]entry.Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+4 > len(payload) {
			return 0, nil, errs.New(errs.Corrupted, codecComponent, "leaf entry key length runs past payload")
		}
		keyLen := getUint32(payload[off : off+4])
		off += 4
		if off+int(keyLen) > len(payload) {
			return 0, nil, errs.New(errs.Corrupted, codecComponent, "leaf entry key runs past payload")
		}
		key := append([]byte(nil), payload[off:off+int(keyLen)]...)
		off += int(keyLen)
		if off+4 > len(payload) {
			return 0, nil, errs.New(errs.Corrupted, codecComponent, "leaf entry value length runs past payload")
		}
		valueLen := getUint32(payload[off : off+4])
		off += 4
		if off+int(valueLen) > len(payload) {
			return 0, nil, errs.New(errs.Corrupted, codecComponent, "leaf entry value runs past payload")
		}
		// A present entry always gets a non-nil Value, even when valueLen is
		// 0: append onto a nil slice with nothing to append returns nil,
		// which would make a present-but-empty value indistinguishable from
		// one that was never read. append([]byte{}, ...) keeps it non-nil.
		value := append([]byte{}, payload[off:off+int(valueLen)]...)
		off += int(valueLen)
		entries = append(entries, entry.New(key, value))
	}
	return nextLeaf, entries, nil
}

// keyEncodedSize returns the on-disk size of a single internal-node key.
func keyEncodedSize(key []byte) int {
	return 4 + len(key)
}

// encodeInternal serializes an internal node's keys and children into a page payload.
func encodeInternal(payload []byte, keys [][]byte, children []int32) error {
	size := nodeHeaderSize
	for _, k := range keys {
		size += keyEncodedSize(k)
	}
	size += 4 * len(children)
	if size > len(payload) {
		return errs.New(errs.Corrupted, codecComponent, "encoded internal node exceeds page payload capacity")
	}
	payload[0] = byte(page.Internal)
	putUint32(payload[1:5], uint32(len(keys)))
	off := nodeHeaderSize
	for _, k := range keys {
		putUint32(payload[off:off+4], uint32(len(k)))
		off += 4
		copy(payload[off:off+len(k)], k)
		off += len(k)
	}
	for _, c := range children {
		putUint32(payload[off:off+4], uint32(c))
		off += 4
	}
	for i := off; i < len(payload); i++ {
		payload[i] = 0
	}
	return nil
}

// decodeInternal parses an internal node's keys and children out of a page payload.
func decodeInternal(payload []byte) (keys [][]byte, children []int32, err error) {
	if page.Kind(payload[0]) != page.Internal {
		return nil, nil, errs.New(errs.Corrupted, codecComponent, "page kind tag does not match internal node encoding")
	}
	count := getUint32(payload[1:5])
	off := nodeHeaderSize
	keys = make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+4 > len(payload) {
			return nil, nil, errs.New(errs.Corrupted, codecComponent, "internal node key length runs past payload")
		}
		keyLen := getUint32(payload[off : off+4])
		off += 4
		if off+int(keyLen) > len(payload) {
			return nil, nil, errs.New(errs.Corrupted, codecComponent, "internal node key runs past payload")
		}
		key := append([]byte(nil), payload[off:off+int(keyLen)]...)
		off += int(keyLen)
		keys = append(keys, key)
	}
	children = make([]int32, 0, count+1)
	for i := uint32(0); i < count+1; i++ {
		if off+4 > len(payload) {
			return nil, nil, errs.New(errs.Corrupted, codecComponent, "internal node child pointer runs past payload")
		}
		children = append(children, int32(getUint32(payload[off:off+4])))
		off += 4
	}
	return keys, children, nil
}
