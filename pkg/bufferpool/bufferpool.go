// Package bufferpool implements the fixed-capacity LRU page cache sitting
// between the B+ tree and the disk manager: pin counts, dirty tracking,
// eviction, and write-back.
//
// Grounded on the teacher's pkg/pager/pager.go three-list design
// (free/unpinned/pinned lists built from a doubly-linked list), generalized
// to the core spec's separate DiskManager and to the WAL-before-page
// durability invariant the teacher's design predates.
package bufferpool

import (
	"fmt"
	"sync"
	"time"

	"chronodb/pkg/disk"
	"chronodb/pkg/errs"
	"chronodb/pkg/internal/list"
	"chronodb/pkg/page"

	"github.com/bits-and-blooms/bitset"
	"github.com/ncw/directio"
)

const component = "bufferpool"

// WALSyncer is the slice of LogManager the buffer pool needs: the
// durability watermark, and a way to push it forward on demand. A narrow
// interface here avoids a pkg/wal <-> pkg/bufferpool import cycle, since
// pkg/wal's own LogManager never needs to know about pages.
type WALSyncer interface {
	FlushedLSN() int64
	ForceFlush() error
}

type frame struct {
	idx int
	pg  *page.Page
}

// Pool is a fixed-capacity buffer pool.
type Pool struct {
	disk *disk.Manager
	wal  WALSyncer

	arena  []byte
	frames []*frame

	// ptMtx guards the page table, the three lists, and the dirty bitset,
	// so concurrent Fetch/Unpin/eviction from different goroutines sharing
	// one Engine never race on them. Grounded on the teacher's
	// Pager.ptMtx, which serializes the identical page-table/list
	// operations.
	ptMtx sync.Mutex

	freeList     *list.List[*frame]
	unpinnedList *list.List[*frame]
	pinnedList   *list.List[*frame]
	pageTable    map[int64]*list.Link[*frame]

	dirty *bitset.BitSet
}

// New constructs a Pool with capacity frames, backed by disk and consulting
// wal for the WAL-before-page durability invariant. wal may be nil until the
// caller wires a LogManager in (e.g. during the bootstrap phase of Engine.Open,
// before the WAL has been opened yet).
func New(d *disk.Manager, capacity int, wal WALSyncer) *Pool {
	arena := directio.AlignedBlock(page.Size * capacity)
	p := &Pool{
		disk:         d,
		wal:          wal,
		arena:        arena,
		frames:       make([]*frame, capacity),
		freeList:     list.New[*frame](),
		unpinnedList: list.New[*frame](),
		pinnedList:   list.New[*frame](),
		pageTable:    make(map[int64]*list.Link[*frame]),
		dirty:        bitset.New(uint(capacity)),
	}
	for i := 0; i < capacity; i++ {
		buf := arena[i*page.Size : (i+1)*page.Size]
		fr := &frame{idx: i, pg: page.New(buf)}
		p.frames[i] = fr
		p.freeList.PushTail(fr)
	}
	return p
}

// SetWAL wires in the LogManager once it becomes available. Engine.Open
// constructs the buffer pool before the WAL (the WAL's own append path
// never touches pages), then calls SetWAL before servicing any writes.
func (p *Pool) SetWAL(wal WALSyncer) {
	p.wal = wal
}

func (p *Pool) markDirty(fr *frame) {
	fr.pg.SetDirty(true)
	p.dirty.Set(uint(fr.idx))
}

func (p *Pool) markClean(fr *frame) {
	fr.pg.SetDirty(false)
	p.dirty.Clear(uint(fr.idx))
}

// writeBack enforces the WAL-before-page invariant and writes fr to disk if dirty.
func (p *Pool) writeBack(fr *frame) error {
	if !fr.pg.IsDirty() {
		return nil
	}
	if p.wal != nil && fr.pg.LSN() > p.wal.FlushedLSN() {
		if err := p.wal.ForceFlush(); err != nil {
			return errs.Wrap(errs.Io, component, err, "failed to force WAL flush before write-back")
		}
	}
	if err := p.disk.WritePage(int64(fr.pg.ID()), fr.pg.Data); err != nil {
		return err
	}
	p.markClean(fr)
	return nil
}

// evict picks the least-recently-used unpinned frame, writing it back first if dirty.
// It is a fatal error if every frame is pinned. Callers must hold ptMtx.
func (p *Pool) evict() (*frame, error) {
	link := p.unpinnedList.PeekHead()
	if link == nil {
		return nil, errs.New(errs.Fatal, component, "no unpinned frames available for eviction; all frames are pinned")
	}
	link.PopSelf()
	fr := link.GetValue()
	if err := p.writeBack(fr); err != nil {
		return nil, err
	}
	delete(p.pageTable, int64(fr.pg.ID()))
	fr.pg.Reset()
	return fr, nil
}

// acquireFrame returns a frame to host a page with the given id, taking one
// from the free list first, then evicting the LRU unpinned frame. Callers
// must hold ptMtx.
func (p *Pool) acquireFrame(id int64) (*frame, error) {
	if link := p.freeList.PeekHead(); link != nil {
		link.PopSelf()
		fr := link.GetValue()
		fr.pg.Reset()
		return fr, nil
	}
	fr, err := p.evict()
	if err != nil {
		return nil, err
	}
	return fr, nil
}

func now() int64 {
	return time.Now().UnixNano()
}

// Fetch returns the cached image for id, pinned, loading it from disk on a
// cache miss. Callers must call Unpin exactly once per Fetch.
func (p *Pool) Fetch(id int64) (*page.Page, error) {
	p.ptMtx.Lock()
	defer p.ptMtx.Unlock()

	if link, ok := p.pageTable[id]; ok {
		fr := link.GetValue()
		if link.GetList() != p.pinnedList {
			link.PopSelf()
			p.pageTable[id] = p.pinnedList.PushTail(fr)
		}
		fr.pg.Pin()
		fr.pg.Touch(now())
		return fr.pg, nil
	}
	fr, err := p.acquireFrame(id)
	if err != nil {
		return nil, err
	}
	if err := p.disk.ReadPage(id, fr.pg.Data); err != nil {
		p.freeList.PushTail(fr)
		return nil, err
	}
	fr.pg.Pin()
	fr.pg.Touch(now())
	p.pageTable[id] = p.pinnedList.PushTail(fr)
	return fr.pg, nil
}

// NewPage allocates a fresh page on disk and returns it pinned and dirty.
func (p *Pool) NewPage() (*page.Page, error) {
	id, err := p.disk.Allocate()
	if err != nil {
		return nil, err
	}

	p.ptMtx.Lock()
	defer p.ptMtx.Unlock()

	fr, err := p.acquireFrame(id)
	if err != nil {
		return nil, err
	}
	fr.pg.SetID(int32(id))
	fr.pg.Pin()
	fr.pg.Touch(now())
	p.markDirty(fr)
	p.pageTable[id] = p.pinnedList.PushTail(fr)
	return fr.pg, nil
}

// Unpin decrements id's pin count and ORs dirtied into its dirty flag. Once
// the pin count reaches zero the frame becomes an eviction candidate.
func (p *Pool) Unpin(id int64, dirtied bool) error {
	p.ptMtx.Lock()
	defer p.ptMtx.Unlock()

	link, ok := p.pageTable[id]
	if !ok {
		return errs.New(errs.InvalidArgument, component, "unpin of a page not in the buffer pool").WithPageID(id)
	}
	fr := link.GetValue()
	if dirtied {
		p.markDirty(fr)
	}
	remaining := fr.pg.Unpin()
	if remaining < 0 {
		return errs.New(errs.Fatal, component, fmt.Sprintf("pin count for page %d went negative", id)).WithPageID(id)
	}
	if remaining == 0 && link.GetList() == p.pinnedList {
		link.PopSelf()
		p.pageTable[id] = p.unpinnedList.PushTail(fr)
	}
	return nil
}

// FlushAll writes every dirty frame through the disk manager.
func (p *Pool) FlushAll() error {
	p.ptMtx.Lock()
	defer p.ptMtx.Unlock()

	var firstErr error
	report := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for i, fr := range p.frames {
		if !p.dirty.Test(uint(i)) {
			continue
		}
		report(p.writeBack(fr))
	}
	return firstErr
}

// AllPinned reports whether every frame is currently pinned (used by tests
// exercising the Fatal eviction-failure path deterministically).
func (p *Pool) AllPinned() bool {
	p.ptMtx.Lock()
	defer p.ptMtx.Unlock()
	return p.unpinnedList.PeekHead() == nil && p.freeList.PeekHead() == nil
}
