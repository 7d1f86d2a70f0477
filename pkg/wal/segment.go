package wal

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"chronodb/pkg/errs"
)

// segmentMagic identifies a WAL segment file, matching original_source's
// WALFileHeader magic number.
const segmentMagic uint32 = 0xDEADBEEF

// segmentVersion is the current on-disk segment header format version.
const segmentVersion uint32 = 1

// segmentHeaderSize is the fixed header every segment file starts with:
// magic(4) version(4) startLSN(8), padded to 64 bytes reserved for future use.
const segmentHeaderSize = 64

const segmentExt = ".log"

func segmentFileName(id uint64) string {
	return fmt.Sprintf("%024d%s", id, segmentExt)
}

// listSegmentIDs returns the ids of every segment file in dir, ascending.
func listSegmentIDs(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.Wrap(errs.Io, component, err, "failed to list WAL directory")
	}
	var ids []uint64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, segmentExt) {
			continue
		}
		idStr := strings.TrimSuffix(name, segmentExt)
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// writeSegmentHeader writes a fresh 64-byte header at the start of file.
func writeSegmentHeader(file *os.File, startLSN int64) error {
	buf := make([]byte, segmentHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], segmentMagic)
	binary.LittleEndian.PutUint32(buf[4:8], segmentVersion)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(startLSN))
	_, err := file.WriteAt(buf, 0)
	return err
}

// readSegmentHeader validates and reads the header at the start of file.
func readSegmentHeader(file *os.File) (startLSN int64, err error) {
	buf := make([]byte, segmentHeaderSize)
	if _, err := file.ReadAt(buf, 0); err != nil {
		return 0, errs.Wrap(errs.Io, component, err, "failed to read segment header")
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	version := binary.LittleEndian.Uint32(buf[4:8])
	if magic != segmentMagic || version != segmentVersion {
		return 0, errs.New(errs.Corrupted, component, "segment header magic or version mismatch")
	}
	return int64(binary.LittleEndian.Uint64(buf[8:16])), nil
}

// segment wraps one open, append-only WAL segment file.
type segment struct {
	id       uint64
	path     string
	file     *os.File
	startLSN int64
	size     int64 // bytes written after the header
}

// createSegment creates a brand new segment file with id, writes its header.
func createSegment(dir string, id uint64, startLSN int64) (*segment, error) {
	path := filepath.Join(dir, segmentFileName(id))
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, errs.Wrap(errs.Io, component, err, "failed to create WAL segment")
	}
	if err := writeSegmentHeader(file, startLSN); err != nil {
		file.Close()
		return nil, errs.Wrap(errs.Io, component, err, "failed to write WAL segment header")
	}
	return &segment{id: id, path: path, file: file, startLSN: startLSN}, nil
}

// openSegmentForAppend reopens an existing segment file for further appends.
func openSegmentForAppend(dir string, id uint64) (*segment, error) {
	path := filepath.Join(dir, segmentFileName(id))
	file, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, errs.Wrap(errs.Io, component, err, "failed to reopen WAL segment")
	}
	startLSN, err := readSegmentHeader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errs.Wrap(errs.Io, component, err, "failed to stat WAL segment")
	}
	return &segment{id: id, path: path, file: file, startLSN: startLSN, size: info.Size() - segmentHeaderSize}, nil
}

// readSegmentForReplay opens a segment read-only and decodes every well-
// formed record in it in order. It stops, without error, at the first
// incomplete or corrupted record: a torn write at the tail of the log is
// expected after a crash and simply marks the end of durable history.
func readSegmentForReplay(dir string, id uint64) ([]Record, error) {
	path := filepath.Join(dir, segmentFileName(id))
	file, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.Io, component, err, "failed to open WAL segment for replay")
	}
	defer file.Close()

	if _, err := readSegmentHeader(file); err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		return nil, errs.Wrap(errs.Io, component, err, "failed to stat WAL segment")
	}
	body := make([]byte, info.Size()-segmentHeaderSize)
	if _, err := file.ReadAt(body, segmentHeaderSize); err != nil {
		return nil, errs.Wrap(errs.Io, component, err, "failed to read WAL segment body")
	}

	var records []Record
	off := 0
	for off < len(body) {
		r, n, err := Unmarshal(body[off:])
		if err != nil {
			break
		}
		records = append(records, r)
		off += n
	}
	return records, nil
}

func (s *segment) append(data []byte) error {
	if _, err := s.file.WriteAt(data, segmentHeaderSize+s.size); err != nil {
		return errs.Wrap(errs.Io, component, err, "failed to append to WAL segment")
	}
	s.size += int64(len(data))
	return nil
}

func (s *segment) sync() error {
	if err := s.file.Sync(); err != nil {
		return errs.Wrap(errs.Io, component, err, "failed to fsync WAL segment")
	}
	return nil
}

func (s *segment) close() error {
	if err := s.file.Close(); err != nil {
		return errs.Wrap(errs.Io, component, err, "failed to close WAL segment")
	}
	return nil
}
