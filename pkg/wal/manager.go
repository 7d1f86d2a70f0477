package wal

import (
	"os"
	"sync"
	"sync/atomic"

	"chronodb/pkg/errs"
)

// LogManager owns the segmented, append-only log: it assigns LSNs, buffers
// marshaled records in memory, and forces them to disk (in LSN order) on
// demand or on rotation. It satisfies pkg/bufferpool's WALSyncer interface
// so the buffer pool can enforce write-ahead-logging before evicting a dirty
// page, and pkg/txn forces the log on commit by appending its Commit record
// with force set.
type LogManager struct {
	mu sync.Mutex

	dir         string
	segmentSize int64
	bufferLimit int

	gen *LSNGenerator
	cur *segment

	buf        []byte
	bufFirst   int64 // LSN of the first record currently buffered, NoLSN if buf is empty
	bufLast    int64 // LSN of the last record currently buffered
	flushedLSN atomic.Int64
}

// Open opens or creates the WAL directory dir, recovering the LSN sequence
// from any existing segments so appends continue where a prior process left off.
func Open(dir string, segmentSize int64, bufferLimit int) (*LogManager, error) {
	if err := os.MkdirAll(dir, 0775); err != nil {
		return nil, errs.Wrap(errs.Io, component, err, "failed to create WAL directory")
	}
	ids, err := listSegmentIDs(dir)
	if err != nil {
		return nil, err
	}

	m := &LogManager{dir: dir, segmentSize: segmentSize, bufferLimit: bufferLimit}
	m.flushedLSN.Store(NoLSN)

	if len(ids) == 0 {
		seg, err := createSegment(dir, 0, 0)
		if err != nil {
			return nil, err
		}
		m.cur = seg
		m.gen = NewLSNGenerator(0)
		m.bufFirst, m.bufLast = NoLSN, NoLSN
		return m, nil
	}

	lastID := ids[len(ids)-1]
	var maxLSN int64 = NoLSN
	for _, id := range ids {
		records, err := readSegmentForReplay(dir, id)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if r.LSN > maxLSN {
				maxLSN = r.LSN
			}
		}
	}
	seg, err := openSegmentForAppend(dir, lastID)
	if err != nil {
		return nil, err
	}
	m.cur = seg
	m.gen = NewLSNGenerator(maxLSN + 1)
	m.flushedLSN.Store(maxLSN)
	m.bufFirst, m.bufLast = NoLSN, NoLSN
	return m, nil
}

// Append assigns the next LSN to r, stamps NoPageID on control records
// (Begin, Commit, Abort), marshals and buffers the record. PrevLSN is written
// as the caller set it. It returns the assigned LSN. If force is true, or the
// buffer has grown past its limit, the buffer (including r) is flushed to
// disk before returning.
func (m *LogManager) Append(r Record, force bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lsn := m.gen.Next()
	r.LSN = lsn
	switch r.Kind {
	case Begin, Commit, Abort:
		r.PageID = NoPageID
	}
	encoded := r.Marshal()

	if m.bufFirst == NoLSN {
		m.bufFirst = lsn
	}
	m.bufLast = lsn
	m.buf = append(m.buf, encoded...)

	if force || len(m.buf) >= m.bufferLimit {
		if err := m.forceFlushLocked(); err != nil {
			return lsn, err
		}
	}
	return lsn, nil
}

// ForceFlush writes any buffered records to the current segment and fsyncs it.
func (m *LogManager) ForceFlush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.forceFlushLocked()
}

func (m *LogManager) forceFlushLocked() error {
	if len(m.buf) == 0 {
		return nil
	}
	// Rotate first if writing the buffer would push a non-empty segment
	// past segmentSize.
	if m.cur.size > 0 && m.cur.size+int64(len(m.buf)) > m.segmentSize {
		next, err := createSegment(m.dir, m.cur.id+1, m.bufFirst)
		if err != nil {
			return err
		}
		if err := m.cur.close(); err != nil {
			return err
		}
		m.cur = next
	}
	if err := m.cur.append(m.buf); err != nil {
		return err
	}
	if err := m.cur.sync(); err != nil {
		return err
	}
	m.flushedLSN.Store(m.bufLast)
	m.buf = m.buf[:0]
	m.bufFirst, m.bufLast = NoLSN, NoLSN
	return nil
}

// FlushedLSN returns the highest LSN durably written to disk, or NoLSN if
// nothing has ever been flushed.
func (m *LogManager) FlushedLSN() int64 {
	return m.flushedLSN.Load()
}

// PeekNextLSN returns the LSN the next Append call will assign, without
// consuming it. Used to stamp a transaction's snapshot point at Begin.
func (m *LogManager) PeekNextLSN() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen.Peek()
}

// ReadAll returns every well-formed record across every segment, in LSN
// order, for recovery to replay. Unflushed buffered records are included so
// that a caller reading the log immediately after appends (e.g. tests) sees
// a consistent view; real recovery only ever runs against a reopened,
// flushed log.
func (m *LogManager) ReadAll() ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids, err := listSegmentIDs(m.dir)
	if err != nil {
		return nil, err
	}
	var all []Record
	for _, id := range ids {
		records, err := readSegmentForReplay(m.dir, id)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	for off := 0; off < len(m.buf); {
		r, n, err := Unmarshal(m.buf[off:])
		if err != nil {
			break
		}
		all = append(all, r)
		off += n
	}
	return all, nil
}

// Close flushes and closes the current segment.
func (m *LogManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.forceFlushLocked(); err != nil {
		return err
	}
	return m.cur.close()
}

