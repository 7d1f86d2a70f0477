// Package btree implements the on-disk B+ tree: a page-resident, ordered
// index over variable-length byte keys, with leaf nodes linked for range
// scans and the root pointer tracked in the database's header page.
//
// Grounded on the teacher's pkg/btree (constants.go/node.go/btree.go), kept
// in its single-file-per-page-kind shape but generalized from the teacher's
// fixed int64 key/value encoding to the core spec's variable-length entries,
// and simplified from the teacher's fine-grained hand-over-hand latch
// crabbing (SUPER_NODE, unlockParents) to one coarse sync.RWMutex per tree.
// See DESIGN.md for why: the crabbing scheme exists to let concurrent
// non-conflicting mutations proceed past a shared ancestor, an optimization
// this engine defers in favor of getting whole-operation correctness right
// without the ability to run and race-test the result.
package btree

import (
	"sync"

	"chronodb/pkg/bufferpool"
	"chronodb/pkg/entry"
	"chronodb/pkg/errs"
	"chronodb/pkg/page"
)

const component = "btree"

// BPlusTree is an ordered index over byte-slice keys backed by a buffer pool.
// Its root pointer lives in the page-0 header page so it survives restarts.
type BPlusTree struct {
	pool  *bufferpool.Pool
	cmp   entry.Comparator
	order int

	treeMu sync.RWMutex
}

// Open wraps pool as a BPlusTree using cmp to order keys. If the underlying
// database file has no pages yet, Open bootstraps page 0 as an empty header
// page. order is the target fanout used only as a size hint for callers
// tuning encodings elsewhere; the tree itself splits purely on page capacity.
func Open(pool *bufferpool.Pool, cmp entry.Comparator, order int) (*BPlusTree, error) {
	t := &BPlusTree{pool: pool, cmp: cmp, order: order}
	pg, err := pool.Fetch(0)
	if err != nil {
		pg, err = pool.NewPage()
		if err != nil {
			return nil, err
		}
		if pg.ID() != 0 {
			return nil, errs.New(errs.Fatal, component, "expected header page to be allocated at pageId 0")
		}
		page.InitHeaderPage(pg)
		if err := t.pool.Unpin(0, true); err != nil {
			return nil, err
		}
		return t, nil
	}
	if pg.Kind() != page.HeaderPg {
		t.pool.Unpin(0, false)
		return nil, errs.New(errs.Corrupted, component, "page 0 is not a header page")
	}
	t.pool.Unpin(0, false)
	return t, nil
}

func (t *BPlusTree) header() (*page.Page, *page.HeaderPage, error) {
	pg, err := t.pool.Fetch(0)
	if err != nil {
		return nil, nil, err
	}
	return pg, page.AsHeaderPage(pg), nil
}

// Search returns the value stored for key, or found == false if key is
// absent or was deleted.
func (t *BPlusTree) Search(key []byte) (value []byte, found bool, err error) {
	t.treeMu.RLock()
	defer t.treeMu.RUnlock()

	_, hp, err := t.header()
	if err != nil {
		return nil, false, err
	}
	root := hp.RootPageID()
	t.pool.Unpin(0, false)
	if root == NoPageID {
		return nil, false, nil
	}

	id := root
	for {
		pg, err := t.pool.Fetch(int64(id))
		if err != nil {
			return nil, false, err
		}
		if pg.Kind() == page.Leaf {
			_, entries, err := decodeLeaf(pg.Payload())
			t.pool.Unpin(int64(id), false)
			if err != nil {
				return nil, false, err
			}
			i, ok := findEntryIndex(entries, key, t.cmp)
			if !ok {
				return nil, false, nil
			}
			return entries[i].Value, true, nil
		}
		keys, children, err := decodeInternal(pg.Payload())
		t.pool.Unpin(int64(id), false)
		if err != nil {
			return nil, false, err
		}
		id = children[findChildIndex(keys, key, t.cmp)]
	}
}

// LeafForKey returns the pageId of the leaf that currently owns key's range,
// or NoPageID if the tree has no pages yet. Callers use this to learn which
// page a write is about to land on before the write itself is logged, so the
// WAL record can carry a pageId for recovery's Dirty Page Table.
func (t *BPlusTree) LeafForKey(key []byte) (int32, error) {
	t.treeMu.RLock()
	defer t.treeMu.RUnlock()

	_, hp, err := t.header()
	if err != nil {
		return NoPageID, err
	}
	root := hp.RootPageID()
	t.pool.Unpin(0, false)
	if root == NoPageID {
		return NoPageID, nil
	}

	id := root
	for {
		pg, err := t.pool.Fetch(int64(id))
		if err != nil {
			return NoPageID, err
		}
		if pg.Kind() == page.Leaf {
			t.pool.Unpin(int64(id), false)
			return id, nil
		}
		keys, children, err := decodeInternal(pg.Payload())
		t.pool.Unpin(int64(id), false)
		if err != nil {
			return NoPageID, err
		}
		id = children[findChildIndex(keys, key, t.cmp)]
	}
}

// PageLSN returns the pageLSN currently stamped on pageID, for recovery's
// Redo phase to compare against a log record's LSN. pageID == NoPageID (a
// write logged before its leaf was ever allocated, see SPEC_FULL.md's
// first-write page prediction note) reports page.NoLSN so Redo still
// replays it. A page that was logged but never reached disk before a crash
// reports page.NoLSN the same way, since it was never dirtied on disk.
func (t *BPlusTree) PageLSN(pageID int32) (int64, error) {
	if pageID == NoPageID {
		return page.NoLSN, nil
	}

	t.treeMu.RLock()
	defer t.treeMu.RUnlock()

	pg, err := t.pool.Fetch(int64(pageID))
	if err != nil {
		if errs.Is(err, errs.InvalidArgument) {
			return page.NoLSN, nil
		}
		return page.NoLSN, err
	}
	lsn := pg.LSN()
	if err := t.pool.Unpin(int64(pageID), false); err != nil {
		return page.NoLSN, err
	}
	return lsn, nil
}

// Insert adds or overwrites the value for key, stamping lsn onto every page
// it touches. lsn may be page.NoLSN for callers (such as tests) that aren't
// routing writes through the write-ahead log.
func (t *BPlusTree) Insert(key, value []byte, lsn int64) error {
	t.treeMu.Lock()
	defer t.treeMu.Unlock()

	hpPg, hp, err := t.header()
	if err != nil {
		return err
	}
	root := hp.RootPageID()

	if root == NoPageID {
		pg, n, err := newLeaf(t.pool)
		if err != nil {
			t.pool.Unpin(0, false)
			return err
		}
		n.entries = []entry.Entry{entry.New(key, value)}
		if err := storeLeaf(pg, n); err != nil {
			return err
		}
		pg.SetLSN(lsn)
		if err := t.pool.Unpin(int64(n.pageID), true); err != nil {
			return err
		}
		hp.SetRootPageID(n.pageID)
		hpPg.SetLSN(lsn)
		return t.pool.Unpin(0, true)
	}

	split, err := t.insertRec(root, key, value, lsn)
	if err != nil {
		t.pool.Unpin(0, false)
		return err
	}
	if split == nil {
		return t.pool.Unpin(0, false)
	}

	newRootPg, newRootNode, err := newInternal(t.pool, [][]byte{split.Key}, []int32{root, split.RightPageID})
	if err != nil {
		t.pool.Unpin(0, false)
		return err
	}
	if err := storeInternal(newRootPg, newRootNode); err != nil {
		return err
	}
	newRootPg.SetLSN(lsn)
	if err := t.pool.Unpin(int64(newRootNode.pageID), true); err != nil {
		return err
	}
	hp.SetRootPageID(newRootNode.pageID)
	hpPg.SetLSN(lsn)
	return t.pool.Unpin(0, true)
}

// insertRec descends to the leaf owning key, inserts there, and propagates
// any split upward one level at a time via the return value.
func (t *BPlusTree) insertRec(pageID int32, key, value []byte, lsn int64) (*Split, error) {
	pg, err := t.pool.Fetch(int64(pageID))
	if err != nil {
		return nil, err
	}

	if pg.Kind() == page.Leaf {
		next, entries, err := decodeLeaf(pg.Payload())
		if err != nil {
			t.pool.Unpin(int64(pageID), false)
			return nil, err
		}
		n := &leafNode{pageID: pageID, nextLeaf: next, entries: entries}
		n.insertOrReplace(entry.New(key, value), t.cmp)

		if leafFits(n.nextLeaf, n.entries) {
			if err := storeLeaf(pg, n); err != nil {
				return nil, err
			}
			pg.SetLSN(lsn)
			return nil, t.pool.Unpin(int64(pageID), true)
		}

		left, right := splitLeaf(n.entries)
		rightPg, rightNode, err := newLeaf(t.pool)
		if err != nil {
			return nil, err
		}
		rightNode.entries = right
		rightNode.nextLeaf = n.nextLeaf
		n.entries = left
		n.nextLeaf = rightNode.pageID

		if err := storeLeaf(pg, n); err != nil {
			return nil, err
		}
		pg.SetLSN(lsn)
		if err := storeLeaf(rightPg, rightNode); err != nil {
			return nil, err
		}
		rightPg.SetLSN(lsn)

		if err := t.pool.Unpin(int64(pageID), true); err != nil {
			return nil, err
		}
		if err := t.pool.Unpin(int64(rightNode.pageID), true); err != nil {
			return nil, err
		}
		return &Split{Key: append([]byte(nil), right[0].Key...), RightPageID: rightNode.pageID}, nil
	}

	keys, children, err := decodeInternal(pg.Payload())
	if err != nil {
		t.pool.Unpin(int64(pageID), false)
		return nil, err
	}
	idx := findChildIndex(keys, key, t.cmp)
	childSplit, err := t.insertRec(children[idx], key, value, lsn)
	if err != nil {
		t.pool.Unpin(int64(pageID), false)
		return nil, err
	}
	if childSplit == nil {
		return nil, t.pool.Unpin(int64(pageID), false)
	}

	n := &internalNode{pageID: pageID, keys: keys, children: children}
	n.insertChild(childSplit.Key, childSplit.RightPageID, idx)

	if internalFits(n.keys, n.children) {
		if err := storeInternal(pg, n); err != nil {
			return nil, err
		}
		pg.SetLSN(lsn)
		return nil, t.pool.Unpin(int64(pageID), true)
	}

	leftKeys, rightKeys, leftChildren, rightChildren, median := splitInternal(n.keys, n.children)
	rightPg, rightNode, err := newInternal(t.pool, rightKeys, rightChildren)
	if err != nil {
		return nil, err
	}
	n.keys, n.children = leftKeys, leftChildren

	if err := storeInternal(pg, n); err != nil {
		return nil, err
	}
	pg.SetLSN(lsn)
	if err := storeInternal(rightPg, rightNode); err != nil {
		return nil, err
	}
	rightPg.SetLSN(lsn)

	if err := t.pool.Unpin(int64(pageID), true); err != nil {
		return nil, err
	}
	if err := t.pool.Unpin(int64(rightNode.pageID), true); err != nil {
		return nil, err
	}
	return &Split{Key: median, RightPageID: rightNode.pageID}, nil
}

// Delete removes key, reporting whether it was present. Underflowing nodes
// are left as-is: this engine does not rebalance or merge siblings on
// delete, trading tree compactness for a much smaller recovery surface. See
// DESIGN.md.
func (t *BPlusTree) Delete(key []byte, lsn int64) (bool, error) {
	t.treeMu.Lock()
	defer t.treeMu.Unlock()

	_, hp, err := t.header()
	if err != nil {
		return false, err
	}
	root := hp.RootPageID()
	if err := t.pool.Unpin(0, false); err != nil {
		return false, err
	}
	if root == NoPageID {
		return false, nil
	}
	return t.deleteRec(root, key, lsn)
}

func (t *BPlusTree) deleteRec(pageID int32, key []byte, lsn int64) (bool, error) {
	pg, err := t.pool.Fetch(int64(pageID))
	if err != nil {
		return false, err
	}

	if pg.Kind() == page.Leaf {
		next, entries, err := decodeLeaf(pg.Payload())
		if err != nil {
			t.pool.Unpin(int64(pageID), false)
			return false, err
		}
		n := &leafNode{pageID: pageID, nextLeaf: next, entries: entries}
		found := n.remove(key, t.cmp)
		if !found {
			return false, t.pool.Unpin(int64(pageID), false)
		}
		if err := storeLeaf(pg, n); err != nil {
			return false, err
		}
		pg.SetLSN(lsn)
		return true, t.pool.Unpin(int64(pageID), true)
	}

	keys, children, err := decodeInternal(pg.Payload())
	if err != nil {
		t.pool.Unpin(int64(pageID), false)
		return false, err
	}
	idx := findChildIndex(keys, key, t.cmp)
	if err := t.pool.Unpin(int64(pageID), false); err != nil {
		return false, err
	}
	return t.deleteRec(children[idx], key, lsn)
}

