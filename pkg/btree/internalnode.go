package btree

import (
	"chronodb/pkg/bufferpool"
	"chronodb/pkg/page"
)

// loadInternal fetches and decodes the internal page at id. The caller must
// release the returned pin via pool.Unpin once done.
func loadInternal(pool *bufferpool.Pool, id int32) (*page.Page, *internalNode, error) {
	pg, err := pool.Fetch(int64(id))
	if err != nil {
		return nil, nil, err
	}
	keys, children, err := decodeInternal(pg.Payload())
	if err != nil {
		pool.Unpin(int64(id), false)
		return nil, nil, err
	}
	return pg, &internalNode{pageID: id, keys: keys, children: children}, nil
}

// storeInternal re-encodes n into pg's payload. Callers must have already
// confirmed n fits (see internalFits) before calling this.
func storeInternal(pg *page.Page, n *internalNode) error {
	if err := encodeInternal(pg.Payload(), n.keys, n.children); err != nil {
		return err
	}
	pg.SetKind(page.Internal)
	return nil
}

// newInternal allocates a fresh internal page with the given keys and children.
func newInternal(pool *bufferpool.Pool, keys [][]byte, children []int32) (*page.Page, *internalNode, error) {
	pg, err := pool.NewPage()
	if err != nil {
		return nil, nil, err
	}
	pg.SetKind(page.Internal)
	n := &internalNode{pageID: pg.ID(), keys: keys, children: children}
	return pg, n, nil
}

// insertChild inserts separator key and the new right child into n at the
// position following the child that split, so that children[i] and
// children[i+1] == rightChild now straddle key.
func (n *internalNode) insertChild(key []byte, rightChild int32, afterIndex int) {
	n.keys = append(n.keys, nil)
	copy(n.keys[afterIndex+1:], n.keys[afterIndex:])
	n.keys[afterIndex] = key

	n.children = append(n.children, 0)
	copy(n.children[afterIndex+2:], n.children[afterIndex+1:])
	n.children[afterIndex+1] = rightChild
}
