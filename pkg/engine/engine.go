// Package engine assembles the disk manager, buffer pool, write-ahead log,
// B+ tree, and transaction manager into the single public entry point for
// the storage engine: Open a database directory, run transactions against
// it, Close it.
//
// Grounded on the teacher's pkg/database/database.go for the overall
// Open/Close/basepath shape, narrowed from its multi-table, multiple-index
// design to a single ordered index, since the core spec describes one
// B+ tree per database rather than a catalog of named tables.
package engine

import (
	"path/filepath"
	"sync"

	"chronodb/pkg/bufferpool"
	"chronodb/pkg/btree"
	"chronodb/pkg/config"
	"chronodb/pkg/disk"
	"chronodb/pkg/entry"
	"chronodb/pkg/errs"
	"chronodb/pkg/recovery"
	"chronodb/pkg/txn"
	"chronodb/pkg/wal"
)

const component = "engine"

const dataFileName = "data.db"

// Engine is an open, single-node, single-index database.
type Engine struct {
	mu sync.Mutex

	path string
	opts config.Options

	disk *disk.Manager
	pool *bufferpool.Pool
	log  *wal.LogManager
	tree *btree.BPlusTree
	mvcc *txn.MVCCIndex
	txns *txn.Manager
	rec  *recovery.Coordinator

	closed bool
}

// Open opens (creating if necessary) the database rooted at path. On an
// existing database, Open replays the write-ahead log through
// recovery.Coordinator.Recover before returning, so the engine never hands
// out a handle onto a database that hasn't finished crash recovery.
func Open(path string, opts config.Options) (*Engine, error) {
	opts, err := opts.Validate()
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, component, err, "invalid engine options")
	}

	diskMgr, err := disk.Open(filepath.Join(path, dataFileName))
	if err != nil {
		return nil, err
	}

	pool := bufferpool.New(diskMgr, opts.BufferPoolFrames, nil)

	tree, err := btree.Open(pool, entry.Bytes, opts.TreeOrder)
	if err != nil {
		return nil, err
	}

	walDir := filepath.Join(path, config.WALDirName)
	logMgr, err := wal.Open(walDir, opts.WALSegmentSize, opts.WALBufferBytes)
	if err != nil {
		return nil, err
	}
	pool.SetWAL(logMgr)

	coordinator := recovery.New(logMgr, tree, pool, path, walDir)
	if err := coordinator.Recover(); err != nil {
		return nil, err
	}

	mvcc := txn.NewMVCCIndex()
	txns := txn.New(logMgr, mvcc, tree)

	return &Engine{
		path: path,
		opts: opts,
		disk: diskMgr,
		pool: pool,
		log:  logMgr,
		tree: tree,
		mvcc: mvcc,
		txns: txns,
		rec:  coordinator,
	}, nil
}

// Begin starts a new snapshot-isolated transaction.
func (e *Engine) Begin() (*txn.Txn, error) {
	return e.txns.Begin()
}

// Get returns the value visible to t for key.
func (e *Engine) Get(t *txn.Txn, key []byte) ([]byte, bool, error) {
	return e.txns.Get(t, key)
}

// Insert records key=value under t.
func (e *Engine) Insert(t *txn.Txn, key, value []byte) error {
	return e.txns.Insert(t, key, value)
}

// Delete records a deletion of key under t.
func (e *Engine) Delete(t *txn.Txn, key []byte) error {
	return e.txns.Delete(t, key)
}

// RangeScan returns a Scanner over [lo, hi) as visible to t's snapshot. A
// nil lo or hi leaves that end of the range unbounded.
func (e *Engine) RangeScan(t *txn.Txn, lo, hi []byte) (*txn.Scanner, error) {
	return e.txns.RangeScan(t, lo, hi)
}

// Commit durably commits t.
func (e *Engine) Commit(t *txn.Txn) error {
	return e.txns.Commit(t)
}

// Abort discards t's writes.
func (e *Engine) Abort(t *txn.Txn) error {
	return e.txns.Abort(t)
}

// Checkpoint flushes dirty pages, appends a checkpoint record, and
// optionally stages a point-in-time snapshot under snapshotDir (pass "" to
// skip snapshot staging). It bounds how much of the log a future Recover
// ever needs to re-read.
func (e *Engine) Checkpoint(snapshotDir string) error {
	e.mu.Lock()
	active := e.txns.ActiveIDs()
	e.mu.Unlock()
	return e.rec.Checkpoint(active, snapshotDir)
}

// GC reclaims MVCC history no longer reachable by any active snapshot.
func (e *Engine) GC() {
	e.txns.GC()
}

// Close flushes every dirty page and the write-ahead log, then releases the
// underlying file handles. The Engine is unusable afterward.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	if err := e.pool.FlushAll(); err != nil {
		return err
	}
	if err := e.log.Close(); err != nil {
		return err
	}
	if err := e.disk.Flush(); err != nil {
		return err
	}
	return e.disk.Close()
}
