package page

import "encoding/binary"

// FormatVersion is the current on-disk file format version written into
// every freshly created database file's header page.
const FormatVersion int32 = 1

// HeaderPage interprets page 0's payload as the database file's header:
// file format version, root pageId (-1 meaning an empty tree), and a
// next-pageId field (see NextPageID).
type HeaderPage struct {
	*Page
}

// Header payload offsets, relative to the start of the payload.
const (
	hpVersionOffset int = 0
	hpRootOffset    int = 4
	hpNextOffset    int = 8
)

// AsHeaderPage wraps p as a HeaderPage. p must already carry Kind() == HeaderPg.
func AsHeaderPage(p *Page) *HeaderPage {
	return &HeaderPage{p}
}

// InitHeaderPage initializes p (expected to be page 0 of a brand new file)
// as an empty database's header page.
func InitHeaderPage(p *Page) *HeaderPage {
	p.SetID(0)
	p.SetKind(HeaderPg)
	p.SetLSN(NoLSN)
	hp := &HeaderPage{p}
	hp.SetVersion(FormatVersion)
	hp.SetRootPageID(-1)
	hp.SetNextPageID(1)
	return hp
}

// Version returns the on-disk file format version.
func (hp *HeaderPage) Version() int32 {
	return int32(binary.LittleEndian.Uint32(hp.Payload()[hpVersionOffset : hpVersionOffset+4]))
}

// SetVersion sets the on-disk file format version.
func (hp *HeaderPage) SetVersion(v int32) {
	binary.LittleEndian.PutUint32(hp.Payload()[hpVersionOffset:hpVersionOffset+4], uint32(v))
	hp.SetDirty(true)
}

// RootPageID returns the pageId of the B+ tree's root, or -1 if the tree is empty.
func (hp *HeaderPage) RootPageID() int32 {
	return int32(binary.LittleEndian.Uint32(hp.Payload()[hpRootOffset : hpRootOffset+4]))
}

// SetRootPageID records the pageId of the B+ tree's root.
func (hp *HeaderPage) SetRootPageID(id int32) {
	binary.LittleEndian.PutUint32(hp.Payload()[hpRootOffset:hpRootOffset+4], uint32(id))
	hp.SetDirty(true)
}

// NextPageID returns the value last stored by SetNextPageID (1 on a freshly
// initialized header). Page allocation goes through disk.Manager.Allocate,
// which does not update this field, so it does not track the file's size.
func (hp *HeaderPage) NextPageID() int32 {
	return int32(binary.LittleEndian.Uint32(hp.Payload()[hpNextOffset : hpNextOffset+4]))
}

// SetNextPageID records the next allocatable pageId.
func (hp *HeaderPage) SetNextPageID(id int32) {
	binary.LittleEndian.PutUint32(hp.Payload()[hpNextOffset:hpNextOffset+4], uint32(id))
	hp.SetDirty(true)
}
