// Package config holds the tunables recognized by the storage engine.
package config

import "fmt"

// PageSize is the fixed size, in bytes, of every page in the database file
// and every frame in the buffer pool. The core spec fixes this at 4096.
const PageSize = 4096

// DefaultBufferPoolFrames is the default number of frames held by the buffer pool.
const DefaultBufferPoolFrames = 1000

// DefaultWALSegmentSize is the default maximum size, in bytes, of a single WAL segment.
const DefaultWALSegmentSize = 16 * 1024 * 1024

// DefaultWALBufferBytes is the default size, in bytes, of the WAL's in-memory append buffer.
const DefaultWALBufferBytes = 1 * 1024 * 1024

// DefaultTreeOrder is the default fanout used when encoding internal nodes.
const DefaultTreeOrder = 128

// MinTreeOrder is the smallest fanout the engine will accept; see Open(path, order) in §6.
const MinTreeOrder = 3

// WALDirName is the name of the directory, relative to the database path, holding WAL segments.
const WALDirName = "wal"

// Options bundles the tunables an Engine is opened with.
type Options struct {
	BufferPoolFrames int
	WALSegmentSize   int64
	WALBufferBytes   int
	TreeOrder        int
}

// Default returns an Options populated with the documented defaults.
func Default() Options {
	return Options{
		BufferPoolFrames: DefaultBufferPoolFrames,
		WALSegmentSize:   DefaultWALSegmentSize,
		WALBufferBytes:   DefaultWALBufferBytes,
		TreeOrder:        DefaultTreeOrder,
	}
}

// Validate fills in zero-valued fields with their defaults and rejects
// configurations that can never be satisfied (e.g. a tree order below the
// minimum fanout required for the B+ tree to make forward progress).
func (o Options) Validate() (Options, error) {
	if o.BufferPoolFrames == 0 {
		o.BufferPoolFrames = DefaultBufferPoolFrames
	}
	if o.WALSegmentSize == 0 {
		o.WALSegmentSize = DefaultWALSegmentSize
	}
	if o.WALBufferBytes == 0 {
		o.WALBufferBytes = DefaultWALBufferBytes
	}
	if o.TreeOrder == 0 {
		o.TreeOrder = DefaultTreeOrder
	}
	if o.BufferPoolFrames < 1 {
		return o, fmt.Errorf("config: bufferPoolFrames must be positive, got %d", o.BufferPoolFrames)
	}
	if o.TreeOrder < MinTreeOrder {
		return o, fmt.Errorf("config: treeOrder must be >= %d, got %d", MinTreeOrder, o.TreeOrder)
	}
	return o, nil
}
