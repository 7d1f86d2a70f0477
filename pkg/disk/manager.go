// Package disk implements the paged disk manager: fixed-size page I/O,
// allocation, and fsync semantics over a single database file.
//
// Grounded on the teacher's pkg/pager/pager.go: a directio-backed file
// handle, generalized from the teacher's flat byte pages to pages carrying
// the core spec's 16-byte id/kind/pageLSN header (see pkg/page).
package disk

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"chronodb/pkg/errs"
	"chronodb/pkg/page"

	"github.com/ncw/directio"
)

func init() {
	if directio.BlockSize != page.Size {
		panic(fmt.Sprintf("disk: directio block size %d does not match page size %d", directio.BlockSize, page.Size))
	}
}

const component = "disk"

// Manager owns the single file backing a database and serializes all page
// I/O and allocation against it.
type Manager struct {
	mtx      sync.Mutex
	file     *os.File
	numPages int64
	poisoned bool // set after a fatal I/O error; the Manager must be reopened.
}

// Open opens or creates the database file at path. A brand new file is left
// with zero pages; the caller (btree.Open, which pkg/engine calls) is
// responsible for allocating and initializing the header page on a fresh
// database.
func Open(path string) (*Manager, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0775); err != nil {
			return nil, errs.Wrap(errs.Io, component, err, "failed to create database directory")
		}
	}
	file, err := directio.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, errs.Wrap(errs.Io, component, err, "failed to open database file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errs.Wrap(errs.Io, component, err, "failed to stat database file")
	}
	if info.Size()%page.Size != 0 {
		file.Close()
		return nil, errs.New(errs.Corrupted, component, "database file size is not a multiple of the page size")
	}
	return &Manager{file: file, numPages: info.Size() / page.Size}, nil
}

// NumPages returns the number of pages currently in the file.
func (m *Manager) NumPages() int64 {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.numPages
}

// Allocate reserves the next pageId and extends the logical file size,
// without writing any bytes; the caller must write the new page before it
// is durable. Returns the allocated pageId.
func (m *Manager) Allocate() (int64, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.poisoned {
		return 0, errs.New(errs.Fatal, component, "disk manager is poisoned after a prior fatal error")
	}
	id := m.numPages
	m.numPages++
	return id, nil
}

// ReadPage reads the page at the given id into buf, which must be exactly page.Size bytes.
func (m *Manager) ReadPage(id int64, buf []byte) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.poisoned {
		return errs.New(errs.Fatal, component, "disk manager is poisoned after a prior fatal error")
	}
	if id < 0 || id >= m.numPages {
		return errs.New(errs.InvalidArgument, component, "pageId out of range").WithPageID(id)
	}
	// O_DIRECT needs an aligned buffer; read into one and copy out to buf.
	block := directio.AlignedBlock(page.Size)
	n, err := m.file.ReadAt(block, id*page.Size)
	if err != nil && err != io.EOF {
		m.poisoned = true
		return errs.Wrap(errs.Io, component, err, "read failed").WithPageID(id)
	}
	if int64(n) < page.Size {
		m.poisoned = true
		return errs.New(errs.Io, component, "short read").WithPageID(id)
	}
	copy(buf, block)
	return nil
}

// WritePage writes data (exactly page.Size bytes) to the page at the given id,
// extending the file's logical page count if necessary.
func (m *Manager) WritePage(id int64, data []byte) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.poisoned {
		return errs.New(errs.Fatal, component, "disk manager is poisoned after a prior fatal error")
	}
	if id < 0 {
		return errs.New(errs.InvalidArgument, component, "pageId must be non-negative").WithPageID(id)
	}
	if len(data) != page.Size {
		return errs.New(errs.InvalidArgument, component, "page data must be exactly page.Size bytes").WithPageID(id)
	}
	// O_DIRECT needs an aligned buffer; copy data into one before writing.
	block := directio.AlignedBlock(page.Size)
	copy(block, data)
	n, err := m.file.WriteAt(block, id*page.Size)
	if err != nil {
		m.poisoned = true
		return errs.Wrap(errs.Io, component, err, "write failed").WithPageID(id)
	}
	if int64(n) < page.Size {
		m.poisoned = true
		return errs.New(errs.Io, component, "short write").WithPageID(id)
	}
	if id >= m.numPages {
		m.numPages = id + 1
	}
	return nil
}

// Flush forces the file's data and metadata to stable storage.
func (m *Manager) Flush() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.file.Sync(); err != nil {
		m.poisoned = true
		return errs.Wrap(errs.Io, component, err, "fsync failed")
	}
	return nil
}

// Close flushes then releases the file handle. The Manager is unusable afterward.
func (m *Manager) Close() error {
	if err := m.Flush(); err != nil {
		return err
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.file.Close(); err != nil {
		return errs.Wrap(errs.Io, component, err, "close failed")
	}
	m.poisoned = true
	return nil
}
