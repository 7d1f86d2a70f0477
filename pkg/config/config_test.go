package config

import "testing"

func TestValidateFillsDefaults(t *testing.T) {
	opts, err := Options{}.Validate()
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if opts.BufferPoolFrames != DefaultBufferPoolFrames {
		t.Errorf("BufferPoolFrames = %d, want %d", opts.BufferPoolFrames, DefaultBufferPoolFrames)
	}
	if opts.WALSegmentSize != DefaultWALSegmentSize {
		t.Errorf("WALSegmentSize = %d, want %d", opts.WALSegmentSize, DefaultWALSegmentSize)
	}
	if opts.TreeOrder != DefaultTreeOrder {
		t.Errorf("TreeOrder = %d, want %d", opts.TreeOrder, DefaultTreeOrder)
	}
}

func TestValidateRejectsTreeOrderBelowMinimum(t *testing.T) {
	_, err := Options{TreeOrder: 1}.Validate()
	if err == nil {
		t.Fatalf("expected an error for a tree order below MinTreeOrder")
	}
}

func TestValidateRejectsNonPositiveBufferPool(t *testing.T) {
	_, err := Options{BufferPoolFrames: -1}.Validate()
	if err == nil {
		t.Fatalf("expected an error for a negative buffer pool size")
	}
}

func TestValidatePreservesExplicitValues(t *testing.T) {
	opts, err := Options{BufferPoolFrames: 10, TreeOrder: 8}.Validate()
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if opts.BufferPoolFrames != 10 || opts.TreeOrder != 8 {
		t.Fatalf("Validate should preserve caller-supplied values, got %+v", opts)
	}
}
