package recovery

import (
	"chronodb/pkg/btree"
	"chronodb/pkg/wal"
)

// redo scans forward from a.FirstRedoLSN and re-applies every data-modifying
// record that belongs to a committed transaction (CLRs always, since they
// are a transaction's own compensating actions and must reach disk
// regardless of how that transaction's abort eventually resolves), skipping
// any record whose target page's pageLSN already dominates it.
//
// Grounded on original_source's RedoPhase.shouldRedo: the one-line
// optimization at its heart — "if page.LSN >= log.LSN, skip" — is the whole
// point of carrying a Dirty Page Table through Analysis; see SPEC_FULL.md's
// Redo application discipline note for why this, not the unconditional
// logical replay an earlier draft used, is the real ARIES contract.
func redo(tree *btree.BPlusTree, a *Analysis, records []wal.Record) error {
	if a.FirstRedoLSN == wal.NoLSN {
		return nil
	}
	for _, r := range records {
		if r.LSN < a.FirstRedoLSN {
			continue
		}
		switch r.Kind {
		case wal.Insert, wal.Update, wal.Delete:
			if _, committed := a.Committed[r.TxnID]; !committed {
				continue
			}
		case wal.CLR:
			// always redone, see above.
		default:
			continue
		}

		pageLSN, err := tree.PageLSN(r.PageID)
		if err != nil {
			return err
		}
		if pageLSN >= r.LSN {
			continue
		}

		switch r.Kind {
		case wal.Insert, wal.Update:
			if err := tree.Insert(r.Key, r.New, r.LSN); err != nil {
				return err
			}
		case wal.Delete:
			if _, err := tree.Delete(r.Key, r.LSN); err != nil {
				return err
			}
		case wal.CLR:
			if r.New != nil {
				if err := tree.Insert(r.Key, r.New, r.LSN); err != nil {
					return err
				}
			} else {
				if _, err := tree.Delete(r.Key, r.LSN); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
