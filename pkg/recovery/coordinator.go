// Package recovery implements ARIES-style crash recovery: an Analysis pass
// that reconstructs which transactions committed and which were still open
// at the end of the log, a Redo pass that reapplies every committed write,
// and an Undo pass that closes out whatever was left in flight. It also
// owns Checkpoint, which bounds how much of the log Analysis ever needs to
// re-read.
//
// Grounded on original_source's recovery/RecoveryManager.java for the
// overall phase structure and on the teacher's pkg/recovery/recovery_manager.go
// for Checkpoint's flush-then-log-then-snapshot shape.
package recovery

import (
	"path/filepath"

	"chronodb/pkg/btree"
	"chronodb/pkg/bufferpool"
	"chronodb/pkg/wal"
)

const component = "recovery"

// Coordinator orchestrates recovery and checkpointing for one open database.
type Coordinator struct {
	wal  *wal.LogManager
	tree *btree.BPlusTree
	pool *bufferpool.Pool

	dataDir string
	walDir  string
}

// New returns a Coordinator for the given log, tree, and buffer pool.
// dataDir and walDir are used only by Checkpoint's optional snapshot staging.
func New(log *wal.LogManager, tree *btree.BPlusTree, pool *bufferpool.Pool, dataDir, walDir string) *Coordinator {
	return &Coordinator{wal: log, tree: tree, pool: pool, dataDir: dataDir, walDir: walDir}
}

// Recover runs the full Analysis/Redo/Undo pipeline against whatever the log
// currently holds. It is meant to be called once, synchronously, before an
// engine accepts any new transactions.
func (c *Coordinator) Recover() error {
	records, err := c.wal.ReadAll()
	if err != nil {
		return err
	}

	startLSN, seedActive := int64(0), []uint32(nil)
	if lsn, ok, err := findLastCheckpointLSN(filepath.Join(c.walDir, checkpointIndexName)); err != nil {
		return err
	} else if ok {
		startLSN = lsn
		for _, r := range records {
			if r.LSN == lsn && r.Kind == wal.Checkpoint {
				seedActive = decodeTxnIDs(r.New)
				break
			}
		}
	}

	a := analyze(records, startLSN, seedActive)
	if err := redo(c.tree, a, records); err != nil {
		return err
	}
	return undo(c.tree, c.wal, a, records)
}

