package txn

import (
	"sync"
	"sync/atomic"

	"chronodb/pkg/btree"
	"chronodb/pkg/errs"
	"chronodb/pkg/wal"
)

const component = "txn"

// Manager is the single entry point for transaction lifecycle and
// MVCC-visible reads/writes. It logs every write to the WAL and applies it
// to the B+ tree at once, keeping it as a pending MVCC version that other
// transactions see only after the commit record itself is durable.
//
// Grounded on original_source's TransactionManager for the begin/commit/
// abort state machine, adapted from its table of bare states to track each
// transaction's WAL position so Commit and Abort can write correctly
// chained log records (PrevLSN per transaction, as ARIES requires for undo).
type Manager struct {
	mu     sync.Mutex
	nextID atomic.Uint32
	active map[uint32]*Txn

	// writeMu serializes the identify-leaf / read-old-value / log / mutate
	// sequence in Insert, Delete, and Abort's physical reversal, so the
	// pageId a write logs always matches the leaf it actually mutates.
	writeMu sync.Mutex

	wal  *wal.LogManager
	mvcc *MVCCIndex
	tree *btree.BPlusTree
}

// New returns a Manager built on the given log, MVCC index, and tree.
func New(log *wal.LogManager, mvcc *MVCCIndex, tree *btree.BPlusTree) *Manager {
	return &Manager{active: make(map[uint32]*Txn), wal: log, mvcc: mvcc, tree: tree}
}

// Begin starts a new transaction and returns its handle. The transaction's
// snapshot is everything committed at or before the returned handle's
// StartLSN.
func (m *Manager) Begin() (*Txn, error) {
	id := m.nextID.Add(1)
	lsn, err := m.wal.Append(wal.Record{TxnID: id, PrevLSN: wal.NoLSN, Kind: wal.Begin}, false)
	if err != nil {
		return nil, err
	}
	t := &Txn{ID: id, StartLSN: lsn, LastLSN: lsn, state: Running}
	m.mu.Lock()
	m.active[id] = t
	m.mu.Unlock()
	return t, nil
}

func (m *Manager) requireRunning(t *Txn) error {
	if t.State() != Running {
		return errs.New(errs.InvalidArgument, component, "transaction is not running")
	}
	return nil
}

// Get returns the value visible to t for key: t's own uncommitted write if
// any, else the most recently committed version at or before t's snapshot,
// else the durably committed value in the B+ tree.
func (m *Manager) Get(t *Txn, key []byte) ([]byte, bool, error) {
	if err := m.requireRunning(t); err != nil {
		return nil, false, err
	}
	if value, deleted, found := m.mvcc.Get(key, t.ID, t.StartLSN); found {
		if deleted {
			return nil, false, nil
		}
		return value, true, nil
	}
	return m.tree.Search(key)
}

func requireKey(key []byte) error {
	if len(key) == 0 {
		return errs.New(errs.InvalidArgument, component, "key must not be nil or empty")
	}
	return nil
}

// Insert records a write of key=value under t, applying it to the B+ tree
// immediately (see SPEC_FULL.md's Redo application discipline) and visible
// right away to t and to every other transaction once t commits.
func (m *Manager) Insert(t *Txn, key, value []byte) error {
	if err := m.requireRunning(t); err != nil {
		return err
	}
	if err := requireKey(key); err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	pageID, err := m.tree.LeafForKey(key)
	if err != nil {
		return err
	}
	old, oldFound, err := m.tree.Search(key)
	if err != nil {
		return err
	}

	kind := wal.Insert
	if oldFound {
		kind = wal.Update
	}
	prevLSN := t.LastLSN
	lsn, err := m.wal.Append(wal.Record{TxnID: t.ID, PrevLSN: prevLSN, Kind: kind, PageID: pageID, Key: key, Old: old, New: value}, false)
	if err != nil {
		return err
	}
	t.LastLSN = lsn

	if err := m.tree.Insert(key, value, lsn); err != nil {
		return err
	}
	m.mvcc.Put(key, t.ID, value, false, old, oldFound)
	t.recordWrite(key, old, oldFound, pageID, lsn, prevLSN)
	return nil
}

// Delete records a deletion of key under t, removing it from the B+ tree
// immediately.
func (m *Manager) Delete(t *Txn, key []byte) error {
	if err := m.requireRunning(t); err != nil {
		return err
	}
	if err := requireKey(key); err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	pageID, err := m.tree.LeafForKey(key)
	if err != nil {
		return err
	}
	old, oldFound, err := m.tree.Search(key)
	if err != nil {
		return err
	}

	prevLSN := t.LastLSN
	lsn, err := m.wal.Append(wal.Record{TxnID: t.ID, PrevLSN: prevLSN, Kind: wal.Delete, PageID: pageID, Key: key, Old: old}, false)
	if err != nil {
		return err
	}
	t.LastLSN = lsn

	if _, err := m.tree.Delete(key, lsn); err != nil {
		return err
	}
	m.mvcc.Put(key, t.ID, nil, true, old, oldFound)
	t.recordWrite(key, old, oldFound, pageID, lsn, prevLSN)
	return nil
}

// Commit durably records t's commit and folds its pending MVCC versions into
// committed ones. The writes themselves already reached the B+ tree at
// Insert/Delete time; a crash after the commit record reaches disk needs no
// further repair here, since recovery's redo pass only needs to catch pages
// whose writes never made it to disk before the crash (see redo.go).
func (m *Manager) Commit(t *Txn) error {
	if err := m.requireRunning(t); err != nil {
		return err
	}
	lsn, err := m.wal.Append(wal.Record{TxnID: t.ID, PrevLSN: t.LastLSN, Kind: wal.Commit}, true)
	if err != nil {
		return err
	}
	t.LastLSN = lsn

	for _, w := range t.writes {
		m.mvcc.CommitKey(w.key, t.ID, lsn)
	}

	t.setState(Committed)
	m.mu.Lock()
	delete(m.active, t.ID)
	m.mu.Unlock()
	return nil
}

// Abort physically reverses t's writes, most recent first, restoring each
// key's prior B+ tree value (or removing it, if the write created the key)
// and logging a CLR per reversed write before the closing Abort record —
// the same discipline recovery's Undo phase uses for a crashed loser.
func (m *Manager) Abort(t *Txn) error {
	if err := m.requireRunning(t); err != nil {
		return err
	}

	m.writeMu.Lock()
	for i := len(t.writes) - 1; i >= 0; i-- {
		w := t.writes[i]
		clr := wal.Record{
			TxnID:       t.ID,
			PrevLSN:     t.LastLSN,
			Kind:        wal.CLR,
			PageID:      w.pageID,
			Key:         w.key,
			UndoNextLSN: w.prevLSN,
		}
		if w.oldFound {
			clr.New = w.old
		}
		lsn, err := m.wal.Append(clr, false)
		if err != nil {
			m.writeMu.Unlock()
			return err
		}
		t.LastLSN = lsn

		var applyErr error
		if w.oldFound {
			applyErr = m.tree.Insert(w.key, w.old, lsn)
		} else {
			_, applyErr = m.tree.Delete(w.key, lsn)
		}
		if applyErr != nil {
			m.writeMu.Unlock()
			return applyErr
		}
	}
	m.writeMu.Unlock()

	lsn, err := m.wal.Append(wal.Record{TxnID: t.ID, PrevLSN: t.LastLSN, Kind: wal.Abort}, true)
	if err != nil {
		return err
	}
	t.LastLSN = lsn

	for _, w := range t.writes {
		m.mvcc.AbortKey(w.key, t.ID)
	}
	t.setState(Aborted)
	m.mu.Lock()
	delete(m.active, t.ID)
	m.mu.Unlock()
	return nil
}

// ActiveIDs returns the transaction IDs currently in the Running state, for
// Checkpoint to record in its Checkpoint log record.
func (m *Manager) ActiveIDs() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uint32, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	return ids
}

// OldestActiveStartLSN returns the smallest StartLSN among currently active
// transactions, or the WAL's next LSN if none are active. GC callers use
// this as the horizon below which MVCC history can be reclaimed.
func (m *Manager) OldestActiveStartLSN() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	oldest := m.wal.PeekNextLSN()
	for _, t := range m.active {
		if t.StartLSN < oldest {
			oldest = t.StartLSN
		}
	}
	return oldest
}

// GC reclaims MVCC history no longer reachable by any active snapshot.
func (m *Manager) GC() {
	m.mvcc.GC(m.OldestActiveStartLSN())
}
