package txn

import (
	"sync"
)

// pendingLSN marks a version created by a transaction that has not yet
// committed (or has aborted and been removed): it is visible only to the
// transaction that created it.
const pendingLSN int64 = -1

// version is one entry in a key's MVCC chain, in creation order.
type version struct {
	txnID     uint32
	commitLSN int64
	value     []byte
	deleted   bool
}

// MVCCIndex holds the in-memory version chain for every key with an
// in-flight or recently-committed write. Chains are append-only during
// normal operation; GC trims entries no longer reachable by any active
// snapshot. The durably-committed value for a key (the one a fresh restart
// would see with no readers old enough to need history) lives one layer
// down, in the B+ tree.
type MVCCIndex struct {
	mu     sync.RWMutex
	chains map[string][]version
}

// NewMVCCIndex returns an empty index.
func NewMVCCIndex() *MVCCIndex {
	return &MVCCIndex{chains: make(map[string][]version)}
}

// Put appends a new, uncommitted version of key created by txnID. Because
// writes now apply to the B+ tree immediately rather than at commit, the
// tree's pre-write content (base, baseFound) is recorded as an
// always-visible version at LSN 0 the first time a key is touched, so a
// reader whose snapshot predates this write still sees the old value
// instead of falling through to the tree's new, uncommitted content.
func (m *MVCCIndex) Put(key []byte, txnID uint32, value []byte, deleted bool, base []byte, baseFound bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := string(key)
	if _, seeded := m.chains[k]; !seeded {
		m.chains[k] = []version{{txnID: 0, commitLSN: 0, value: base, deleted: !baseFound}}
	}
	m.chains[k] = append(m.chains[k], version{txnID: txnID, commitLSN: pendingLSN, value: value, deleted: deleted})
}

// CommitKey finalizes the version txnID created for key at commitLSN. If
// txnID wrote key more than once before committing, only the last write
// survives: earlier pending versions from the same txn are dropped first.
func (m *MVCCIndex) CommitKey(key []byte, txnID uint32, commitLSN int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := string(key)
	chain := m.chains[k]
	last := -1
	for i, v := range chain {
		if v.txnID == txnID && v.commitLSN == pendingLSN {
			last = i
		}
	}
	if last == -1 {
		return
	}
	kept := chain[:0]
	for i, v := range chain {
		if v.txnID == txnID && v.commitLSN == pendingLSN && i != last {
			continue
		}
		kept = append(kept, v)
	}
	for i := range kept {
		if kept[i].txnID == txnID && kept[i].commitLSN == pendingLSN {
			kept[i].commitLSN = commitLSN
		}
	}
	m.chains[k] = kept
}

// AbortKey discards every uncommitted version txnID created for key.
func (m *MVCCIndex) AbortKey(key []byte, txnID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := string(key)
	chain := m.chains[k]
	kept := chain[:0]
	for _, v := range chain {
		if v.txnID == txnID && v.commitLSN == pendingLSN {
			continue
		}
		kept = append(kept, v)
	}
	if len(kept) == 0 {
		delete(m.chains, k)
		return
	}
	m.chains[k] = kept
}

// Get returns the version of key visible to a transaction with the given
// id and snapshot startLSN: its own uncommitted writes, or the most
// recently committed version at or before startLSN. found is false if no
// such version exists (fall through to the B+ tree's durable value); a
// visible tombstone is returned with found and deleted both true.
func (m *MVCCIndex) Get(key []byte, readerID uint32, startLSN int64) (value []byte, deleted bool, found bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chain := m.chains[string(key)]
	for i := len(chain) - 1; i >= 0; i-- {
		v := chain[i]
		if v.txnID == readerID && v.commitLSN == pendingLSN {
			return v.value, v.deleted, true
		}
		if v.commitLSN != pendingLSN && v.commitLSN <= startLSN {
			return v.value, v.deleted, true
		}
	}
	return nil, false, false
}

// GC drops committed versions that no active snapshot can still observe:
// for each key, every committed version older than the single newest one at
// or before oldestActiveStartLSN is no longer reachable by any reader and is
// removed. Pending (uncommitted) versions are never touched here; they are
// cleaned up by CommitKey/AbortKey.
func (m *MVCCIndex) GC(oldestActiveStartLSN int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, chain := range m.chains {
		newestReachable := -1
		for i, v := range chain {
			if v.commitLSN != pendingLSN && v.commitLSN <= oldestActiveStartLSN {
				newestReachable = i
			}
		}
		if newestReachable <= 0 {
			continue
		}
		kept := append([]version(nil), chain[newestReachable:]...)
		if len(kept) == 0 {
			delete(m.chains, k)
		} else {
			m.chains[k] = kept
		}
	}
}
