package txn

import (
	"bytes"

	"chronodb/pkg/btree"
	"chronodb/pkg/entry"
)

// Scanner iterates a transaction's snapshot view of a key range: the
// durable tree's entries, each re-resolved against the MVCC chain so a
// version committed after the transaction's snapshot never surfaces, followed
// by any of the transaction's own not-yet-committed writes that fall in
// range and weren't already covered by the tree walk. Insert and Delete
// apply to the tree immediately, so the transaction's own inserts come back
// from the tree walk in key order; the trailing pass only emits own writes
// the walk did not return, in write order, not merged into key order.
type Scanner struct {
	mgr *Manager
	t   *Txn
	cur *btree.Cursor

	lo, hi []byte
	seen   map[string]bool

	pending    [][]byte
	pendingIdx int
}

// RangeScan returns a Scanner over [lo, hi) (hi == nil means unbounded) as
// visible to t's snapshot.
func (m *Manager) RangeScan(t *Txn, lo, hi []byte) (*Scanner, error) {
	if err := m.requireRunning(t); err != nil {
		return nil, err
	}
	cur, err := m.tree.RangeScan(lo, hi)
	if err != nil {
		return nil, err
	}
	pending := make([][]byte, 0, len(t.writes))
	for _, w := range t.writes {
		if lo != nil && entry.Bytes(w.key, lo) < 0 {
			continue
		}
		if hi != nil && entry.Bytes(w.key, hi) >= 0 {
			continue
		}
		pending = append(pending, w.key)
	}
	return &Scanner{mgr: m, t: t, cur: cur, lo: lo, hi: hi, seen: make(map[string]bool), pending: pending}, nil
}

// Next returns the next visible (key, value) pair, or ok == false once the
// range is exhausted.
func (s *Scanner) Next() (key, value []byte, ok bool, err error) {
	for {
		tk, tv, tok, terr := s.cur.Next()
		if terr != nil {
			return nil, nil, false, terr
		}
		if !tok {
			break
		}
		s.seen[string(tk)] = true
		v, deleted, found := s.mgr.mvcc.Get(tk, s.t.ID, s.t.StartLSN)
		if found {
			if deleted {
				continue
			}
			return tk, v, true, nil
		}
		return tk, tv, true, nil
	}

	for s.pendingIdx < len(s.pending) {
		k := s.pending[s.pendingIdx]
		s.pendingIdx++
		if s.seen[string(k)] {
			continue
		}
		v, deleted, found := s.mgr.mvcc.Get(k, s.t.ID, s.t.StartLSN)
		if !found || deleted {
			continue
		}
		s.seen[string(k)] = true
		return k, v, true, nil
	}
	return nil, nil, false, nil
}

var _ = bytes.Compare
