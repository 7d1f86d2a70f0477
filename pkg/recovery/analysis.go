package recovery

import "chronodb/pkg/wal"

// Analysis is the result of ARIES's Analysis pass: which transactions
// committed (and at what LSN), which were still open when the log ends, the
// Dirty Page Table mapping each touched page to the first LSN that dirtied
// it, and the LSN Redo must start scanning from (the smallest DPT value, or
// the LSN of an earlier data record logged with no pageId).
//
// Grounded on original_source's RecoveryAnalyzer (dirtyPageTable,
// transactionTable, firstRedoLSN), generalized from its int pageId/txnId to
// this engine's int32/uint32 and from its single-log-file scan to replaying
// across every WAL segment from startLSN forward.
type Analysis struct {
	Committed      map[uint32]int64 // txnID -> commit LSN
	Active         map[uint32]int64 // txnID -> most recent LSN seen for it, still open
	DirtyPageTable map[int32]int64  // pageID -> first LSN that dirtied it
	FirstRedoLSN   int64            // wal.NoLSN if nothing needs replaying
}

// analyze scans records (which must be in ascending LSN order) starting
// from startLSN, seeding the active set with any transaction ids a prior
// checkpoint reported as still open at that point.
func analyze(records []wal.Record, startLSN int64, seedActive []uint32) *Analysis {
	a := &Analysis{
		Committed:      make(map[uint32]int64),
		Active:         make(map[uint32]int64),
		DirtyPageTable: make(map[int32]int64),
		FirstRedoLSN:   wal.NoLSN,
	}
	for _, id := range seedActive {
		a.Active[id] = startLSN
	}
	for _, r := range records {
		if r.LSN < startLSN {
			continue
		}
		switch r.Kind {
		case wal.Begin:
			a.Active[r.TxnID] = r.LSN
		case wal.Commit:
			a.Committed[r.TxnID] = r.LSN
			delete(a.Active, r.TxnID)
		case wal.Abort:
			delete(a.Active, r.TxnID)
		case wal.Checkpoint:
			for _, id := range decodeTxnIDs(r.New) {
				if _, done := a.Committed[id]; !done {
					a.Active[id] = r.LSN
				}
			}
		default:
			// Insert, Update, Delete, CLR: mark the page dirty at its first
			// sighting and keep the transaction table current. A record
			// logged with NoPageID (a first write into an empty tree) has no
			// Dirty Page Table entry but still bounds where Redo starts.
			redoFrom := r.PageID == wal.NoPageID
			if r.PageID != wal.NoPageID {
				if _, dirty := a.DirtyPageTable[r.PageID]; !dirty {
					a.DirtyPageTable[r.PageID] = r.LSN
					redoFrom = true
				}
			}
			if redoFrom && (a.FirstRedoLSN == wal.NoLSN || r.LSN < a.FirstRedoLSN) {
				a.FirstRedoLSN = r.LSN
			}
			if _, open := a.Active[r.TxnID]; open {
				a.Active[r.TxnID] = r.LSN
			}
		}
	}
	return a
}
