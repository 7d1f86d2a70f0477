// Package wal implements the write-ahead log: a segmented, LSN-ordered,
// checksummed record stream that the transaction manager appends to before
// any change becomes durable, and that recovery replays after a crash.
//
// Grounded on original_source's com.titandb.wal.LogRecord/WALFileHeader for
// the wire layout (a fixed header followed by length-prefixed variable-size
// payloads and a trailing checksum), and on
// ShubhamNegi4-DaemonDB/wal_manager/wal.go for segment rotation and
// glob-based segment discovery on reopen. The checksum itself uses
// cespare/xxhash, the teacher's hashing library, in place of the original's
// hand-rolled hash and the DaemonDB repo's CRC. Records are logical (keyed
// by the B+ tree entry's key) rather than physical byte-offset patches, but
// every data-modifying record still names the pageId it applies to, per
// LogRecord.java, so recovery's Dirty Page Table and pageLSN comparisons
// have something to key on: see SPEC_FULL.md's Redo application discipline.
package wal

import (
	"encoding/binary"

	"chronodb/pkg/errs"

	"github.com/cespare/xxhash"
)

const component = "wal"

// Kind identifies what a LogRecord represents.
type Kind byte

const (
	Begin      Kind = 1
	Commit     Kind = 2
	Abort      Kind = 3
	Insert     Kind = 4
	Update     Kind = 5
	Delete     Kind = 6
	Checkpoint Kind = 7
	CLR        Kind = 8
)

func (k Kind) String() string {
	switch k {
	case Begin:
		return "Begin"
	case Commit:
		return "Commit"
	case Abort:
		return "Abort"
	case Insert:
		return "Insert"
	case Update:
		return "Update"
	case Delete:
		return "Delete"
	case Checkpoint:
		return "Checkpoint"
	case CLR:
		return "CLR"
	default:
		return "Unknown"
	}
}

// NoLSN marks the absence of a previous-LSN link (a transaction's first record).
const NoLSN int64 = -1

// NoPageID marks a control record (Begin, Commit, Abort) that names no page.
const NoPageID int32 = -1

// absentLen is the sentinel written in place of a real oldLen/newLen to mark
// a field Go's nil represents as genuinely absent (no prior/new value at
// all), as distinct from a real, stored zero-length value. 0xFFFFFFFF can
// never collide with a real length, since a record's payload is bounded by
// the segment size. Without this, Unmarshal could only infer presence from
// length == 0, which is indistinguishable from "absent" and would make Undo
// mistake a present-but-empty prior value for "never had a value" — see
// pkg/recovery/undo.go's oldValue-based page repair.
const absentLen uint32 = 0xFFFFFFFF

// fixedHeaderSize is the portion of a record preceding its three
// variable-length payloads (key, old, new): lsn(8) txnId(4) prevLSN(8)
// kind(1) pageId(4) undoNextLSN(8) keyLen(4) oldLen(4) newLen(4).
const fixedHeaderSize = 8 + 4 + 8 + 1 + 4 + 8 + 4 + 4 + 4

// checksumSize is the trailing xxhash64 checksum appended to every record.
const checksumSize = 8

// Record is one entry in the write-ahead log. Key/Old/New carry whatever a
// Kind needs: Insert/Update carry Key, New, and (for Update) the value being
// overwritten in Old; Delete carries Key and Old (the value being removed);
// Checkpoint carries a serialized transaction-table snapshot in New;
// control records (Begin, Commit, Abort) carry none of the three and use
// PageID = NoPageID. CLR carries Key and the redo content in New (nil means
// the compensated action deletes Key), plus UndoNextLSN.
//
// PageID names the leaf a data-modifying record applies to — populated
// before the mutation happens, from the same descent Search uses to find
// the page a key currently resolves to (see pkg/txn.Manager.Insert/Delete)
// — so recovery's Analysis pass can build a Dirty Page Table and Redo can
// compare a record's LSN against the page's actual pageLSN instead of
// reapplying everything unconditionally.
type Record struct {
	LSN     int64
	TxnID   uint32
	PrevLSN int64 // NoLSN for a transaction's first record
	Kind    Kind
	PageID  int32 // NoPageID for control records

	Key []byte
	Old []byte
	New []byte

	// UndoNextLSN is valid only for CLR records: the LSN to resume undoing
	// from next, skipping the record this CLR compensates for.
	UndoNextLSN int64
}

// Size returns the on-disk size of the record once marshaled.
func (r Record) Size() int {
	return fixedHeaderSize + len(r.Key) + len(r.Old) + len(r.New) + checksumSize
}

// Marshal encodes r into its on-disk representation.
func (r Record) Marshal() []byte {
	buf := make([]byte, r.Size())
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.LSN))
	binary.LittleEndian.PutUint32(buf[8:12], r.TxnID)
	binary.LittleEndian.PutUint64(buf[12:20], uint64(r.PrevLSN))
	buf[20] = byte(r.Kind)
	binary.LittleEndian.PutUint32(buf[21:25], uint32(r.PageID))
	binary.LittleEndian.PutUint64(buf[25:33], uint64(r.UndoNextLSN))
	oldLen := absentLen
	if r.Old != nil {
		oldLen = uint32(len(r.Old))
	}
	newLen := absentLen
	if r.New != nil {
		newLen = uint32(len(r.New))
	}
	binary.LittleEndian.PutUint32(buf[33:37], uint32(len(r.Key)))
	binary.LittleEndian.PutUint32(buf[37:41], oldLen)
	binary.LittleEndian.PutUint32(buf[41:45], newLen)
	off := fixedHeaderSize
	off += copy(buf[off:], r.Key)
	off += copy(buf[off:], r.Old)
	off += copy(buf[off:], r.New)
	sum := xxhash.Sum64(buf[:off])
	binary.LittleEndian.PutUint64(buf[off:off+8], sum)
	return buf
}

// Unmarshal decodes a single record from the front of buf, returning the
// decoded record and the number of bytes it consumed. It returns
// errs.Corrupted if buf is too short to contain a full record or the
// checksum does not match.
func Unmarshal(buf []byte) (Record, int, error) {
	if len(buf) < fixedHeaderSize {
		return Record{}, 0, errs.New(errs.Corrupted, component, "record header runs past end of buffer")
	}
	keyLen := binary.LittleEndian.Uint32(buf[33:37])
	oldLenField := binary.LittleEndian.Uint32(buf[37:41])
	newLenField := binary.LittleEndian.Uint32(buf[41:45])
	oldPresent := oldLenField != absentLen
	newPresent := newLenField != absentLen
	oldBytes, newBytes := uint32(0), uint32(0)
	if oldPresent {
		oldBytes = oldLenField
	}
	if newPresent {
		newBytes = newLenField
	}
	total := fixedHeaderSize + int(keyLen) + int(oldBytes) + int(newBytes) + checksumSize
	if len(buf) < total {
		return Record{}, 0, errs.New(errs.Corrupted, component, "record payload runs past end of buffer")
	}

	want := binary.LittleEndian.Uint64(buf[total-8 : total])
	got := xxhash.Sum64(buf[:total-8])
	if want != got {
		return Record{}, 0, errs.New(errs.Corrupted, component, "record checksum mismatch")
	}

	r := Record{
		LSN:         int64(binary.LittleEndian.Uint64(buf[0:8])),
		TxnID:       binary.LittleEndian.Uint32(buf[8:12]),
		PrevLSN:     int64(binary.LittleEndian.Uint64(buf[12:20])),
		Kind:        Kind(buf[20]),
		PageID:      int32(binary.LittleEndian.Uint32(buf[21:25])),
		UndoNextLSN: int64(binary.LittleEndian.Uint64(buf[25:33])),
	}
	off := fixedHeaderSize
	if keyLen > 0 {
		r.Key = append([]byte(nil), buf[off:off+int(keyLen)]...)
	}
	off += int(keyLen)
	// append onto a non-nil empty slice so a present-but-zero-length value
	// round-trips as non-nil, distinct from a genuinely absent one.
	if oldPresent {
		r.Old = append([]byte{}, buf[off:off+int(oldBytes)]...)
	}
	off += int(oldBytes)
	if newPresent {
		r.New = append([]byte{}, buf[off:off+int(newBytes)]...)
	}
	return r, total, nil
}
