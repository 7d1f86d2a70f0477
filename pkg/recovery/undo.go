package recovery

import (
	"chronodb/pkg/btree"
	"chronodb/pkg/wal"
)

// undo walks each still-open transaction's log records backward via prevLSN,
// physically reversing every Insert/Update/Delete against the tree using the
// record's own oldValue, writing a CLR after each reversal so a second crash
// mid-undo resumes exactly where this one left off (jumping over an
// already-undone range via a CLR's UndoNextLSN rather than re-undoing it),
// until it reaches that transaction's Begin, then closes the transaction out
// with its own Abort record.
//
// Grounded on original_source's UndoPhase.reverseChange/findLogRecord for
// the backward prevLSN walk and oldValue-based page repair, extended with
// the CLR-per-step discipline UndoPhase.java's own comments describe but
// don't implement (it never logs anything during undo, a simplification
// this engine's WAL format already has the UndoNextLSN field to do properly
// — see SPEC_FULL.md's RecoveryCoordinator section).
func undo(tree *btree.BPlusTree, log *wal.LogManager, a *Analysis, records []wal.Record) error {
	byLSN := make(map[int64]wal.Record, len(records))
	for _, r := range records {
		byLSN[r.LSN] = r
	}

	for txnID, lastLSN := range a.Active {
		cur := lastLSN
		tailLSN := lastLSN
		for cur != wal.NoLSN {
			r, ok := byLSN[cur]
			if !ok {
				break
			}
			if r.Kind == wal.Begin {
				break
			}
			if r.Kind == wal.CLR {
				cur = r.UndoNextLSN
				continue
			}

			next := r.PrevLSN
			switch r.Kind {
			case wal.Insert, wal.Update, wal.Delete:
				clr := wal.Record{
					TxnID:       txnID,
					PrevLSN:     tailLSN,
					Kind:        wal.CLR,
					PageID:      r.PageID,
					Key:         r.Key,
					New:         r.Old,
					UndoNextLSN: r.PrevLSN,
				}
				clrLSN, err := log.Append(clr, false)
				if err != nil {
					return err
				}
				tailLSN = clrLSN

				var applyErr error
				if r.Old != nil {
					applyErr = tree.Insert(r.Key, r.Old, clrLSN)
				} else {
					_, applyErr = tree.Delete(r.Key, clrLSN)
				}
				if applyErr != nil {
					return applyErr
				}
			}
			cur = next
		}

		if _, err := log.Append(wal.Record{
			TxnID:   txnID,
			PrevLSN: tailLSN,
			Kind:    wal.Abort,
		}, true); err != nil {
			return err
		}
	}
	return nil
}
