package bufferpool

import (
	"path/filepath"
	"testing"

	"chronodb/pkg/disk"
)

func newPool(t *testing.T, capacity int) *Pool {
	t.Helper()
	d, err := disk.Open(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("disk.Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return New(d, capacity, nil)
}

func TestNewPageThenFetch(t *testing.T) {
	p := newPool(t, 4)

	pg, err := p.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	id := int64(pg.ID())
	pg.WriteAt([]byte("hello"), 0)
	if err := p.Unpin(id, true); err != nil {
		t.Fatalf("Unpin: %v", err)
	}

	got, err := p.Fetch(id)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(got.Payload()[:5]) != "hello" {
		t.Fatalf("Fetch returned unexpected content %q", got.Payload()[:5])
	}
	if err := p.Unpin(id, false); err != nil {
		t.Fatalf("Unpin: %v", err)
	}
}

func TestEvictionWritesBackDirtyPage(t *testing.T) {
	p := newPool(t, 2)

	pg0, _ := p.NewPage()
	id0 := int64(pg0.ID())
	pg0.WriteAt([]byte("first"), 0)
	p.Unpin(id0, true)

	pg1, _ := p.NewPage()
	id1 := int64(pg1.ID())
	p.Unpin(id1, false)

	// A third page forces eviction of the LRU unpinned frame (page 0).
	pg2, _ := p.NewPage()
	id2 := int64(pg2.ID())
	p.Unpin(id2, false)

	got, err := p.Fetch(id0)
	if err != nil {
		t.Fatalf("Fetch after eviction: %v", err)
	}
	if string(got.Payload()[:5]) != "first" {
		t.Fatalf("evicted page did not survive write-back, got %q", got.Payload()[:5])
	}
	p.Unpin(id0, false)
	_ = id1
}

func TestUnpinUnknownPage(t *testing.T) {
	p := newPool(t, 2)
	if err := p.Unpin(99, false); err == nil {
		t.Fatalf("expected an error unpinning a page not in the pool")
	}
}

func TestAllPinnedBlocksEviction(t *testing.T) {
	p := newPool(t, 1)
	pg, err := p.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if !p.AllPinned() {
		t.Fatalf("expected AllPinned to be true with the only frame still pinned")
	}
	if _, err := p.NewPage(); err == nil {
		t.Fatalf("expected NewPage to fail when every frame is pinned")
	}
	p.Unpin(int64(pg.ID()), false)
}

func TestFlushAllClearsDirtyBit(t *testing.T) {
	p := newPool(t, 2)
	pg, _ := p.NewPage()
	id := int64(pg.ID())
	pg.WriteAt([]byte("x"), 0)
	p.Unpin(id, true)

	if err := p.FlushAll(); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}

	got, err := p.Fetch(id)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.IsDirty() {
		t.Fatalf("FlushAll should have cleared the dirty flag")
	}
	p.Unpin(id, false)
}
