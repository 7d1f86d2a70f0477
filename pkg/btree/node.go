package btree

import (
	"sort"

	"chronodb/pkg/entry"
	"chronodb/pkg/page"
)

// payloadSizeForFit is the capacity a candidate encoding must fit within.
const payloadSizeForFit = page.PayloadSize

// Split is returned by a lower node's insert when it had to divide in two.
// Key is the separator to insert into the parent; RightPageID is the newly
// allocated sibling holding the upper half of the original node's contents.
type Split struct {
	Key         []byte
	RightPageID int32
}

// leafNode is the decoded, in-memory form of a leaf page's payload.
type leafNode struct {
	pageID   int32
	nextLeaf int32
	entries  []entry.Entry // sorted by Key under cmp
}

// internalNode is the decoded, in-memory form of an internal page's payload.
// children always has len(keys)+1 entries; children[i] holds keys < keys[i]
// (and >= keys[i-1] for i > 0), children[len(keys)] holds keys >= the last key.
type internalNode struct {
	pageID   int32
	keys     [][]byte
	children []int32
}

// findEntryIndex returns the index at which key belongs within a sorted
// slice of entries, and whether an exact match already occupies that slot.
func findEntryIndex(entries []entry.Entry, key []byte, cmp entry.Comparator) (int, bool) {
	i := sort.Search(len(entries), func(i int) bool {
		return cmp(entries[i].Key, key) >= 0
	})
	if i < len(entries) && cmp(entries[i].Key, key) == 0 {
		return i, true
	}
	return i, false
}

// findChildIndex returns which child of an internal node a search for key
// must descend into.
func findChildIndex(keys [][]byte, key []byte, cmp entry.Comparator) int {
	return sort.Search(len(keys), func(i int) bool {
		return cmp(keys[i], key) > 0
	})
}

// leafFits reports whether encoding the given leaf contents would fit
// within a page payload, without mutating any real page.
func leafFits(nextLeaf int32, entries []entry.Entry) bool {
	scratch := make([]byte, payloadSizeForFit)
	return encodeLeaf(scratch, nextLeaf, entries) == nil
}

// internalFits reports whether encoding the given internal contents would fit.
func internalFits(keys [][]byte, children []int32) bool {
	scratch := make([]byte, payloadSizeForFit)
	return encodeInternal(scratch, keys, children) == nil
}

// splitLeaf divides entries roughly in half, returning the left half (kept
// in place) and the right half (moved to a new sibling page).
func splitLeaf(entries []entry.Entry) (left, right []entry.Entry) {
	mid := len(entries) / 2
	left = append([]entry.Entry(nil), entries[:mid]...)
	right = append([]entry.Entry(nil), entries[mid:]...)
	return left, right
}

// splitInternal divides an overfull internal node around its median key,
// which is promoted to the parent and removed from both halves.
func splitInternal(keys [][]byte, children []int32) (leftKeys, rightKeys [][]byte, leftChildren, rightChildren []int32, median []byte) {
	mid := len(keys) / 2
	median = keys[mid]
	leftKeys = append([][]byte(nil), keys[:mid]...)
	rightKeys = append([][]byte(nil), keys[mid+1:]...)
	leftChildren = append([]int32(nil), children[:mid+1]...)
	rightChildren = append([]int32(nil), children[mid+1:]...)
	return
}
