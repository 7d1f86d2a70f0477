package recovery

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"chronodb/pkg/errs"
	"chronodb/pkg/wal"

	"github.com/google/uuid"
	"github.com/icza/backscanner"
	"github.com/otiai10/copy"
)

const checkpointIndexName = "checkpoints.idx"

// encodeTxnIDs serializes a transaction-table snapshot for a Checkpoint record's payload.
func encodeTxnIDs(ids []uint32) []byte {
	buf := make([]byte, 4+4*len(ids))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(ids)))
	for i, id := range ids {
		binary.LittleEndian.PutUint32(buf[4+4*i:8+4*i], id)
	}
	return buf
}

func decodeTxnIDs(buf []byte) []uint32 {
	if len(buf) < 4 {
		return nil
	}
	n := binary.LittleEndian.Uint32(buf[0:4])
	ids := make([]uint32, 0, n)
	for i := uint32(0); i < n; i++ {
		off := 4 + 4*int(i)
		if off+4 > len(buf) {
			break
		}
		ids = append(ids, binary.LittleEndian.Uint32(buf[off:off+4]))
	}
	return ids
}

// Checkpoint flushes every dirty page, appends a Checkpoint record listing
// the currently active transactions, and appends a plain-text line
// recording its LSN to a small side index file so a later Recover can find
// the most recent checkpoint by scanning that index backwards instead of
// the whole (binary) log. If snapshotDir is non-empty, the data and WAL
// directories are additionally copied into a fresh UUID-named subdirectory
// of snapshotDir, giving Recover a restorable point-in-time backup.
//
// Grounded on the teacher's RecoveryManager.Checkpoint (flush then log) and
// RecoveryManager.delta (otiai10/copy directory snapshot), and on
// original_source's LogType.CHECKPOINT for what the record itself carries.
func (c *Coordinator) Checkpoint(activeTxnIDs []uint32, snapshotDir string) error {
	if err := c.pool.FlushAll(); err != nil {
		return err
	}
	lsn, err := c.wal.Append(wal.Record{Kind: wal.Checkpoint, New: encodeTxnIDs(activeTxnIDs)}, true)
	if err != nil {
		return err
	}
	if err := appendCheckpointIndexLine(filepath.Join(c.walDir, checkpointIndexName), lsn); err != nil {
		return err
	}
	if snapshotDir == "" {
		return nil
	}
	dest := filepath.Join(snapshotDir, uuid.NewString())
	if err := os.MkdirAll(dest, 0775); err != nil {
		return errs.Wrap(errs.Io, component, err, "failed to create checkpoint snapshot directory")
	}
	if err := copy.Copy(c.dataDir, filepath.Join(dest, "data")); err != nil {
		return errs.Wrap(errs.Io, component, err, "failed to snapshot data directory")
	}
	if err := copy.Copy(c.walDir, filepath.Join(dest, "wal")); err != nil {
		return errs.Wrap(errs.Io, component, err, "failed to snapshot WAL directory")
	}
	return nil
}

func appendCheckpointIndexLine(path string, lsn int64) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errs.Wrap(errs.Io, component, err, "failed to open checkpoint index")
	}
	defer file.Close()
	if _, err := fmt.Fprintf(file, "%d\n", lsn); err != nil {
		return errs.Wrap(errs.Io, component, err, "failed to append checkpoint index entry")
	}
	return file.Sync()
}

// findLastCheckpointLSN scans the checkpoint index file backwards for its
// last line, returning (lsn, true) if one exists. Grounded on the teacher's
// getRelevantStrings, which walks the log file backwards with backscanner
// looking for the last checkpoint marker.
func findLastCheckpointLSN(path string) (int64, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, errs.Wrap(errs.Io, component, err, "failed to open checkpoint index")
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return 0, false, errs.Wrap(errs.Io, component, err, "failed to stat checkpoint index")
	}
	if info.Size() == 0 {
		return 0, false, nil
	}
	scanner := backscanner.New(file, int(info.Size()))
	for {
		line, _, err := scanner.LineBytes()
		if err == io.EOF {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, errs.Wrap(errs.Io, component, err, "failed to scan checkpoint index")
		}
		// Every entry ends in a newline, so the scan first yields the empty
		// text after the final one.
		if len(line) == 0 {
			continue
		}
		var lsn int64
		if _, err := fmt.Sscanf(string(line), "%d", &lsn); err != nil {
			return 0, false, errs.New(errs.Corrupted, component, "malformed checkpoint index entry")
		}
		return lsn, true, nil
	}
}
