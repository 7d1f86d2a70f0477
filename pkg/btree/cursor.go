package btree

import (
	"chronodb/pkg/entry"
	"chronodb/pkg/errs"
	"chronodb/pkg/page"
)

// Cursor iterates entries in [lo, hi) (hi == nil means unbounded) in key
// order, walking the leaf linked list one page at a time. Grounded on the
// teacher's pkg/cursor/cursor.go next/prev-leaf walk, generalized to a
// half-open range over variable-length keys.
type Cursor struct {
	tree *BPlusTree
	hi   []byte

	leafID  int32
	entries []entry.Entry
	idx     int
	done    bool
}

// RangeScan returns a Cursor positioned at the first present entry with key
// >= lo (lo == nil means from the very first key), which Next advances
// through up to (but not including) hi.
func (t *BPlusTree) RangeScan(lo, hi []byte) (*Cursor, error) {
	if lo != nil && hi != nil && t.cmp(lo, hi) >= 0 {
		return nil, errs.New(errs.InvalidArgument, component, "rangeScan requires lo < hi")
	}

	t.treeMu.RLock()
	defer t.treeMu.RUnlock()

	_, hp, err := t.header()
	if err != nil {
		return nil, err
	}
	root := hp.RootPageID()
	t.pool.Unpin(0, false)
	c := &Cursor{tree: t, hi: hi}
	if root == NoPageID {
		c.done = true
		return c, nil
	}

	id := root
	for {
		pg, err := t.pool.Fetch(int64(id))
		if err != nil {
			return nil, err
		}
		if pg.Kind() == page.Leaf {
			next, entries, err := decodeLeaf(pg.Payload())
			t.pool.Unpin(int64(id), false)
			if err != nil {
				return nil, err
			}
			start := 0
			if lo != nil {
				start, _ = findEntryIndex(entries, lo, t.cmp)
			}
			c.leafID = next
			c.entries = entries
			c.idx = start
			return c, nil
		}
		keys, children, err := decodeInternal(pg.Payload())
		t.pool.Unpin(int64(id), false)
		if err != nil {
			return nil, err
		}
		if lo == nil {
			id = children[0]
		} else {
			id = children[findChildIndex(keys, lo, t.cmp)]
		}
	}
}

// Next advances the cursor and returns the next entry in range. ok is false
// once the range is exhausted.
func (c *Cursor) Next() (key, value []byte, ok bool, err error) {
	for {
		if c.done {
			return nil, nil, false, nil
		}
		if c.idx >= len(c.entries) {
			if c.leafID == NoPageID {
				c.done = true
				return nil, nil, false, nil
			}
			pg, err := c.tree.pool.Fetch(int64(c.leafID))
			if err != nil {
				return nil, nil, false, err
			}
			next, entries, err := decodeLeaf(pg.Payload())
			c.tree.pool.Unpin(int64(c.leafID), false)
			if err != nil {
				return nil, nil, false, err
			}
			c.leafID = next
			c.entries = entries
			c.idx = 0
			continue
		}
		e := c.entries[c.idx]
		if c.hi != nil && c.tree.cmp(e.Key, c.hi) >= 0 {
			c.done = true
			return nil, nil, false, nil
		}
		c.idx++
		return e.Key, e.Value, true, nil
	}
}
