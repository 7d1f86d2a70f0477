package txn

import "testing"

func drain(t *testing.T, s *Scanner) []string {
	t.Helper()
	var got []string
	for {
		k, _, ok, err := s.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, string(k))
	}
	return got
}

func TestRangeScanReflectsOwnUncommittedInserts(t *testing.T) {
	m := newManager(t)

	seed, _ := m.Begin()
	m.Insert(seed, []byte("a"), []byte("1"))
	m.Insert(seed, []byte("c"), []byte("3"))
	m.Commit(seed)

	t1, _ := m.Begin()
	m.Insert(t1, []byte("b"), []byte("2"))

	scanner, err := m.RangeScan(t1, nil, nil)
	if err != nil {
		t.Fatalf("RangeScan: %v", err)
	}
	got := drain(t, scanner)
	if len(got) != 3 {
		t.Fatalf("got %v, want 3 keys including the uncommitted insert", got)
	}
}

func TestRangeScanHidesOtherTransactionsUncommittedWrites(t *testing.T) {
	m := newManager(t)

	seed, _ := m.Begin()
	m.Insert(seed, []byte("a"), []byte("1"))
	m.Commit(seed)

	writer, _ := m.Begin()
	m.Insert(writer, []byte("b"), []byte("2"))

	reader, _ := m.Begin()
	scanner, err := m.RangeScan(reader, nil, nil)
	if err != nil {
		t.Fatalf("RangeScan: %v", err)
	}
	got := drain(t, scanner)
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("got %v, want [a]", got)
	}
}

func TestRangeScanSkipsCommittedDeletes(t *testing.T) {
	m := newManager(t)

	seed, _ := m.Begin()
	m.Insert(seed, []byte("a"), []byte("1"))
	m.Insert(seed, []byte("b"), []byte("2"))
	m.Commit(seed)

	del, _ := m.Begin()
	m.Delete(del, []byte("a"))
	m.Commit(del)

	reader, _ := m.Begin()
	scanner, err := m.RangeScan(reader, nil, nil)
	if err != nil {
		t.Fatalf("RangeScan: %v", err)
	}
	got := drain(t, scanner)
	if len(got) != 1 || got[0] != "b" {
		t.Fatalf("got %v, want [b]", got)
	}
}
