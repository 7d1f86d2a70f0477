package wal

import (
	"testing"
)

func TestAppendForceThenReadAll(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir, 1<<20, 1<<16)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	lsn1, err := m.Append(Record{TxnID: 1, PrevLSN: NoLSN, Kind: Begin}, false)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	lsn2, err := m.Append(Record{TxnID: 1, PrevLSN: lsn1, Kind: Insert, Key: []byte("k"), New: []byte("v")}, true)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if lsn2 <= lsn1 {
		t.Fatalf("expected strictly increasing LSNs, got %d then %d", lsn1, lsn2)
	}
	if m.FlushedLSN() != lsn2 {
		t.Fatalf("FlushedLSN() = %d, want %d after a forced append", m.FlushedLSN(), lsn2)
	}

	records, err := m.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ReadAll returned %d records, want 2", len(records))
	}
	if records[0].Kind != Begin || records[1].Kind != Insert {
		t.Fatalf("ReadAll returned records in the wrong order: %+v", records)
	}
}

func TestReopenContinuesLSNSequence(t *testing.T) {
	dir := t.TempDir()

	m, err := Open(dir, 1<<20, 1<<16)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	lsn, err := m.Append(Record{TxnID: 1, PrevLSN: NoLSN, Kind: Begin}, true)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	m2, err := Open(dir, 1<<20, 1<<16)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer m2.Close()

	next, err := m2.Append(Record{TxnID: 2, PrevLSN: NoLSN, Kind: Begin}, true)
	if err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}
	if next <= lsn {
		t.Fatalf("Append after reopen assigned LSN %d, not after prior %d", next, lsn)
	}

	records, err := m2.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ReadAll returned %d records across reopen, want 2", len(records))
	}
}

func TestSegmentRotationOnSmallSegmentSize(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir, int64(fixedHeaderSize+checksumSize+1), 1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	for i := 0; i < 5; i++ {
		if _, err := m.Append(Record{TxnID: uint32(i), PrevLSN: NoLSN, Kind: Begin}, true); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}

	ids, err := listSegmentIDs(dir)
	if err != nil {
		t.Fatalf("listSegmentIDs: %v", err)
	}
	if len(ids) < 2 {
		t.Fatalf("expected segment rotation to produce more than one segment, got %d", len(ids))
	}

	records, err := m.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("ReadAll returned %d records across segments, want 5", len(records))
	}
}

func TestPeekNextLSNDoesNotConsume(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir, 1<<20, 1<<16)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	peeked := m.PeekNextLSN()
	assigned, err := m.Append(Record{TxnID: 1, PrevLSN: NoLSN, Kind: Begin}, true)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if assigned != peeked {
		t.Fatalf("PeekNextLSN() = %d, but the next Append assigned %d", peeked, assigned)
	}
}
