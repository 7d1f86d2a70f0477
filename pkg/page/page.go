// Package page defines the fixed-size on-disk page format shared by every
// higher layer of the engine, and the in-memory frame metadata the buffer
// pool hangs off of each cached page image.
package page

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"chronodb/pkg/config"
)

// Size is the fixed byte size of a page, matching config.PageSize.
const Size = config.PageSize

// HeaderSize is the size, in bytes, of the fixed page header.
const HeaderSize = 16

// PayloadSize is the number of bytes available to higher layers after the header.
const PayloadSize = Size - HeaderSize

// Kind identifies what a page currently holds.
type Kind byte

const (
	Invalid  Kind = 0
	HeaderPg Kind = 1
	Internal Kind = 2
	Leaf     Kind = 3
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "Invalid"
	case HeaderPg:
		return "Header"
	case Internal:
		return "Internal"
	case Leaf:
		return "Leaf"
	default:
		return "Unknown"
	}
}

// Header byte offsets within a page image. pageId(4) || pageKind(1) || pageLSN(8) || reserved(3).
const (
	idOffset       = 0
	kindOffset     = 4
	lsnOffset      = 5
	reservedOffset = 13
)

// NoID is the pageId used by an invalid/unallocated page.
const NoID int32 = -1

// NoLSN is the pageLSN used by a page that has never had a log record applied.
const NoLSN int64 = -1

// Page caches one page's on-disk image in memory, together with the
// bookkeeping the buffer pool needs to pin, evict, and write it back.
//
// The on-disk byte image is authoritative: every header accessor reads
// from / writes directly into Data, so a page's in-memory copy can never
// silently disagree with what SetDirty(true) promises will eventually be
// flushed.
type Page struct {
	pinCount        atomic.Int64
	dirty           bool
	lastAccessNanos atomic.Int64
	rwlock          sync.RWMutex
	Data            []byte // exactly Size bytes; header at offset 0, payload at HeaderSize.
}

// New returns a Page backed by the given buffer, which must be exactly Size
// bytes (callers typically slice it out of a larger directio-aligned arena).
func New(buf []byte) *Page {
	if len(buf) != Size {
		panic("page: buffer must be exactly Size bytes")
	}
	p := &Page{Data: buf}
	p.SetID(NoID)
	return p
}

// ID returns the page's pageId.
func (p *Page) ID() int32 {
	return int32(binary.LittleEndian.Uint32(p.Data[idOffset : idOffset+4]))
}

// SetID sets the page's pageId.
func (p *Page) SetID(id int32) {
	binary.LittleEndian.PutUint32(p.Data[idOffset:idOffset+4], uint32(id))
}

// Kind returns the page's kind tag.
func (p *Page) Kind() Kind {
	return Kind(p.Data[kindOffset])
}

// SetKind sets the page's kind tag.
func (p *Page) SetKind(k Kind) {
	p.Data[kindOffset] = byte(k)
}

// LSN returns the LSN of the most recent log record whose effect has been applied to this page.
func (p *Page) LSN() int64 {
	return int64(binary.LittleEndian.Uint64(p.Data[lsnOffset : lsnOffset+8]))
}

// SetLSN sets the page's pageLSN.
func (p *Page) SetLSN(lsn int64) {
	binary.LittleEndian.PutUint64(p.Data[lsnOffset:lsnOffset+8], uint64(lsn))
}

// Payload returns the mutable payload region of the page, following the header.
func (p *Page) Payload() []byte {
	return p.Data[HeaderSize:Size]
}

// Pin increments the pin count, indicating another caller now holds a reference.
func (p *Page) Pin() int64 {
	return p.pinCount.Add(1)
}

// Unpin decrements the pin count, returning its new value.
func (p *Page) Unpin() int64 {
	return p.pinCount.Add(-1)
}

// PinCount returns the current pin count.
func (p *Page) PinCount() int64 {
	return p.pinCount.Load()
}

// IsDirty reports whether the page has been modified since it was last written to disk.
func (p *Page) IsDirty() bool {
	return p.dirty
}

// SetDirty sets the dirty flag.
func (p *Page) SetDirty(dirty bool) {
	p.dirty = dirty
}

// Touch records the current access time, used by the buffer pool's LRU policy.
func (p *Page) Touch(nowNanos int64) {
	p.lastAccessNanos.Store(nowNanos)
}

// LastAccessNanos returns the last recorded access time.
func (p *Page) LastAccessNanos() int64 {
	return p.lastAccessNanos.Load()
}

// WLock acquires the page's writer lock.
func (p *Page) WLock() { p.rwlock.Lock() }

// WUnlock releases the page's writer lock.
func (p *Page) WUnlock() { p.rwlock.Unlock() }

// RLock acquires the page's reader lock.
func (p *Page) RLock() { p.rwlock.RLock() }

// RUnlock releases the page's reader lock.
func (p *Page) RUnlock() { p.rwlock.RUnlock() }

// WriteAt copies data into the page's payload at the given offset (relative
// to the start of the payload, not the page), marking the page dirty.
func (p *Page) WriteAt(data []byte, offset int) {
	copy(p.Payload()[offset:offset+len(data)], data)
	p.dirty = true
}

// Reset clears the page back to its just-allocated-but-unused state: pageId
// becomes Invalid (-1), pageLSN becomes -1, the payload is zeroed, and the
// pin count and dirty flag are cleared. See the core spec's §9 resolution
// of the page-reset ambiguity.
func (p *Page) Reset() {
	for i := range p.Data {
		p.Data[i] = 0
	}
	p.SetID(NoID)
	p.SetLSN(NoLSN)
	p.SetKind(Invalid)
	p.pinCount.Store(0)
	p.dirty = false
}
