package btree

import (
	"chronodb/pkg/bufferpool"
	"chronodb/pkg/entry"
	"chronodb/pkg/page"
)

// loadLeaf fetches and decodes the leaf page at id. The caller must release
// the returned pin via pool.Unpin once done.
func loadLeaf(pool *bufferpool.Pool, id int32) (*page.Page, *leafNode, error) {
	pg, err := pool.Fetch(int64(id))
	if err != nil {
		return nil, nil, err
	}
	next, entries, err := decodeLeaf(pg.Payload())
	if err != nil {
		pool.Unpin(int64(id), false)
		return nil, nil, err
	}
	return pg, &leafNode{pageID: id, nextLeaf: next, entries: entries}, nil
}

// storeLeaf re-encodes n into pg's payload. Callers must have already
// confirmed n fits (see leafFits) before calling this.
func storeLeaf(pg *page.Page, n *leafNode) error {
	if err := encodeLeaf(pg.Payload(), n.nextLeaf, n.entries); err != nil {
		return err
	}
	pg.SetKind(page.Leaf)
	return nil
}

// newLeaf allocates a fresh, empty leaf page.
func newLeaf(pool *bufferpool.Pool) (*page.Page, *leafNode, error) {
	pg, err := pool.NewPage()
	if err != nil {
		return nil, nil, err
	}
	pg.SetKind(page.Leaf)
	n := &leafNode{pageID: pg.ID(), nextLeaf: NoPageID}
	return pg, n, nil
}

// insertOrReplace inserts e into n's sorted entries, replacing any existing
// entry for the same key.
func (n *leafNode) insertOrReplace(e entry.Entry, cmp entry.Comparator) {
	i, found := findEntryIndex(n.entries, e.Key, cmp)
	if found {
		n.entries[i] = e
		return
	}
	n.entries = append(n.entries, entry.Entry{})
	copy(n.entries[i+1:], n.entries[i:])
	n.entries[i] = e
}

// remove deletes the entry for key, if present, reporting whether it was found.
func (n *leafNode) remove(key []byte, cmp entry.Comparator) bool {
	i, found := findEntryIndex(n.entries, key, cmp)
	if !found {
		return false
	}
	n.entries = append(n.entries[:i], n.entries[i+1:]...)
	return true
}
