package recovery

import (
	"path/filepath"
	"testing"

	"chronodb/pkg/wal"
)

func newTestLog(t *testing.T) *wal.LogManager {
	t.Helper()
	m, err := wal.Open(filepath.Join(t.TempDir(), "wal"), 1<<20, 1<<16)
	if err != nil {
		t.Fatalf("wal.Open: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestUndoReversesUncommittedInsert(t *testing.T) {
	log := newTestLog(t)
	tree := newTestTree(t)

	if err := tree.Insert([]byte("k"), []byte("new"), 1); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	leafID, err := tree.LeafForKey([]byte("k"))
	if err != nil {
		t.Fatalf("LeafForKey: %v", err)
	}

	records := []wal.Record{
		{LSN: 1, TxnID: 7, Kind: wal.Begin, PageID: wal.NoPageID},
		{LSN: 2, TxnID: 7, Kind: wal.Insert, PageID: leafID, Key: []byte("k"), New: []byte("new"), PrevLSN: 1},
	}
	a := &Analysis{Committed: map[uint32]int64{}, Active: map[uint32]int64{7: 2}}

	if err := undo(tree, log, a, records); err != nil {
		t.Fatalf("undo: %v", err)
	}

	if _, found, err := tree.Search([]byte("k")); err != nil || found {
		t.Fatalf("expected uncommitted insert to be undone (found=%v err=%v)", found, err)
	}

	undone, err := log.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(undone) != 2 {
		t.Fatalf("expected a CLR and an Abort record, got %d records", len(undone))
	}
	if undone[0].Kind != wal.CLR || undone[0].TxnID != 7 {
		t.Fatalf("expected a CLR record for txn 7 first, got %+v", undone[0])
	}
	if undone[1].Kind != wal.Abort || undone[1].TxnID != 7 {
		t.Fatalf("expected an Abort record for txn 7 second, got %+v", undone[1])
	}
}

func TestUndoRestoresOverwrittenValue(t *testing.T) {
	log := newTestLog(t)
	tree := newTestTree(t)

	if err := tree.Insert([]byte("k"), []byte("new"), 2); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	leafID, err := tree.LeafForKey([]byte("k"))
	if err != nil {
		t.Fatalf("LeafForKey: %v", err)
	}

	records := []wal.Record{
		{LSN: 1, TxnID: 7, Kind: wal.Begin, PageID: wal.NoPageID},
		{LSN: 2, TxnID: 7, Kind: wal.Update, PageID: leafID, Key: []byte("k"), Old: []byte("old"), New: []byte("new"), PrevLSN: 1},
	}
	a := &Analysis{Committed: map[uint32]int64{}, Active: map[uint32]int64{7: 2}}

	if err := undo(tree, log, a, records); err != nil {
		t.Fatalf("undo: %v", err)
	}

	value, found, err := tree.Search([]byte("k"))
	if err != nil || !found || string(value) != "old" {
		t.Fatalf("expected overwritten value restored to %q, got (%q, %v, %v)", "old", value, found, err)
	}
}

func TestUndoNoActiveTransactionsIsNoop(t *testing.T) {
	log := newTestLog(t)
	tree := newTestTree(t)
	a := &Analysis{Committed: map[uint32]int64{}, Active: map[uint32]int64{}}
	if err := undo(tree, log, a, nil); err != nil {
		t.Fatalf("undo: %v", err)
	}
	records, err := log.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records appended, got %d", len(records))
	}
}
