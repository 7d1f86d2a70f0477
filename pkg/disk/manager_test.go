package disk

import (
	"path/filepath"
	"testing"

	"chronodb/pkg/page"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := Open(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func fill(b byte) []byte {
	buf := make([]byte, page.Size)
	for i := range buf {
		buf[i] = b
	}
	return buf
}

func TestAllocateWriteRead(t *testing.T) {
	m := newManager(t)

	id, err := m.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if id != 0 {
		t.Fatalf("first Allocate() = %d, want 0", id)
	}

	want := fill(0x42)
	if err := m.WritePage(id, want); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	got := make([]byte, page.Size)
	if err := m.ReadPage(id, got); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ReadPage returned mismatched bytes at offset %d", i)
		}
	}
}

func TestReadOutOfRange(t *testing.T) {
	m := newManager(t)
	buf := make([]byte, page.Size)
	if err := m.ReadPage(0, buf); err == nil {
		t.Fatalf("expected an error reading an unallocated page")
	}
}

func TestWritePageExtendsNumPages(t *testing.T) {
	m := newManager(t)
	if err := m.WritePage(3, fill(1)); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	if m.NumPages() != 4 {
		t.Fatalf("NumPages() = %d, want 4", m.NumPages())
	}
}

func TestWritePageWrongSize(t *testing.T) {
	m := newManager(t)
	if err := m.WritePage(0, []byte{1, 2, 3}); err == nil {
		t.Fatalf("expected an error writing a short page")
	}
}

func TestReopenPreservesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.db")

	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := fill(0x7a)
	if err := m.WritePage(0, want); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	m2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	defer m2.Close()
	if m2.NumPages() != 1 {
		t.Fatalf("NumPages() after reopen = %d, want 1", m2.NumPages())
	}
	got := make([]byte, page.Size)
	if err := m2.ReadPage(0, got); err != nil {
		t.Fatalf("ReadPage after reopen: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("content did not survive reopen at offset %d", i)
		}
	}
}
