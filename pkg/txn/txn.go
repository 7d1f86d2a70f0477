// Package txn implements snapshot-isolated transactions: transaction
// lifecycle, and the MVCC version chains that let concurrent readers see a
// consistent snapshot without blocking on writers.
//
// Grounded on original_source's com.titandb.concurrency.TransactionManager
// and VersionedValue for the state machine and per-key version list shape,
// generalized from VersionedValue's unbounded in-memory list to a GC'd chain
// (see MVCCIndex.GC) and from TransactionManager's wall-clock startTime to
// the WAL's own LSN order, which is what recovery and visibility both need
// to agree on.
package txn

import "sync"

// State is a transaction's lifecycle state.
type State byte

const (
	Running State = iota
	Committed
	Aborted
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Committed:
		return "Committed"
	case Aborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// Txn is a single transaction's identity, snapshot, and undo chain position.
type Txn struct {
	mu sync.Mutex

	ID       uint32
	StartLSN int64 // the LSN sequence position at Begin; defines this txn's snapshot
	LastLSN  int64 // the most recent log record this txn produced, for the undo chain

	state State

	// writes tracks, in order, every key this txn has modified and enough
	// of each write's own log record to undo it physically: Commit walks
	// this to finalize MVCC chain entries, Abort walks it in reverse to
	// restore each key's prior value in the B+ tree and to emit CLRs.
	writes []writeEntry
}

// writeEntry is one Insert/Delete this txn has applied, recorded so Abort
// can reverse it the same way recovery's Undo phase reverses a loser's
// writes from the WAL.
type writeEntry struct {
	key      []byte
	old      []byte
	oldFound bool
	pageID   int32
	lsn      int64
	prevLSN  int64
}

// State returns the transaction's current lifecycle state.
func (t *Txn) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Txn) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *Txn) recordWrite(key, old []byte, oldFound bool, pageID int32, lsn, prevLSN int64) {
	t.mu.Lock()
	t.writes = append(t.writes, writeEntry{key: key, old: old, oldFound: oldFound, pageID: pageID, lsn: lsn, prevLSN: prevLSN})
	t.mu.Unlock()
}
