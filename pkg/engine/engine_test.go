package engine

import (
	"testing"

	"chronodb/pkg/config"
)

func openTestEngine(t *testing.T, path string) *Engine {
	t.Helper()
	opts := config.Default()
	opts.BufferPoolFrames = 32
	e, err := Open(path, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return e
}

func TestInsertCommitGet(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	defer e.Close()

	tx, err := e.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := e.Insert(tx, []byte("k"), []byte("v")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := e.Commit(tx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	tx2, err := e.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	value, found, err := e.Get(tx2, []byte("k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found || string(value) != "v" {
		t.Fatalf("Get() = (%q, %v), want (v, true)", value, found)
	}
}

func TestInsertRejectsEmptyKey(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	defer e.Close()

	tx, _ := e.Begin()
	if err := e.Insert(tx, nil, []byte("v")); err == nil {
		t.Fatalf("expected an error inserting a nil key")
	}
	if err := e.Insert(tx, []byte{}, []byte("v")); err == nil {
		t.Fatalf("expected an error inserting an empty key")
	}
}

func TestDeleteRejectsEmptyKey(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	defer e.Close()

	tx, _ := e.Begin()
	if err := e.Delete(tx, nil); err == nil {
		t.Fatalf("expected an error deleting a nil key")
	}
}

func TestRangeScanRejectsInvertedRange(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	defer e.Close()

	tx, _ := e.Begin()
	if _, err := e.RangeScan(tx, []byte("z"), []byte("a")); err == nil {
		t.Fatalf("expected an error scanning a range with lo >= hi")
	}
}

func TestReopenSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	e := openTestEngine(t, dir)

	tx, _ := e.Begin()
	e.Insert(tx, []byte("k"), []byte("v"))
	if err := e.Commit(tx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e2 := openTestEngine(t, dir)
	defer e2.Close()

	tx2, _ := e2.Begin()
	value, found, err := e2.Get(tx2, []byte("k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found || string(value) != "v" {
		t.Fatalf("Get() after reopen = (%q, %v), want (v, true)", value, found)
	}
}

func TestCheckpointAndClose(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	defer e.Close()

	tx, _ := e.Begin()
	e.Insert(tx, []byte("k"), []byte("v"))
	e.Commit(tx)

	if err := e.Checkpoint(""); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
}

func TestTypedRoundTrip(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	defer e.Close()

	typed := NewTyped[uint64, string](e, Uint64Codec{}, StringCodec{})

	tx, err := typed.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := typed.Insert(tx, 42, "answer"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := typed.Commit(tx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	tx2, _ := typed.Begin()
	value, found, err := typed.Get(tx2, 42)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found || value != "answer" {
		t.Fatalf("Get() = (%q, %v), want (answer, true)", value, found)
	}
}

func TestTypedRangeScan(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	defer e.Close()

	typed := NewTyped[uint64, string](e, Uint64Codec{}, StringCodec{})

	tx, _ := typed.Begin()
	for i := uint64(0); i < 10; i++ {
		if err := typed.Insert(tx, i, "v"); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	if err := typed.Commit(tx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	tx2, _ := typed.Begin()
	pairs, err := typed.RangeScan(tx2, 3, 7)
	if err != nil {
		t.Fatalf("RangeScan: %v", err)
	}
	if len(pairs) != 4 {
		t.Fatalf("RangeScan returned %d pairs, want 4", len(pairs))
	}
	for i, p := range pairs {
		if p.Key != uint64(3+i) {
			t.Fatalf("pairs[%d].Key = %d, want %d", i, p.Key, 3+i)
		}
	}
}
