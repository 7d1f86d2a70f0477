package wal

import "sync/atomic"

// LSNGenerator hands out strictly increasing log sequence numbers.
type LSNGenerator struct {
	next atomic.Int64
}

// NewLSNGenerator returns a generator whose first Next() call yields start.
func NewLSNGenerator(start int64) *LSNGenerator {
	g := &LSNGenerator{}
	g.next.Store(start)
	return g
}

// Next returns the next LSN and advances the generator.
func (g *LSNGenerator) Next() int64 {
	return g.next.Add(1) - 1
}

// Peek returns the LSN that the next call to Next will return, without consuming it.
func (g *LSNGenerator) Peek() int64 {
	return g.next.Load()
}
