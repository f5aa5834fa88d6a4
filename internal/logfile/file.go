// Package logfile implements the minimal on-disk redo file this subsystem
// consumes. Datafile parsing, creation, sizing, and raw-device handling
// belong to the file layer this package stands in for, and are out of
// scope — this is a single, pre-sized, wrap-addressed file.
package logfile

import (
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xmysql-redo/internal/common"
)

// File is an os.File-backed, fixed-capacity, lsn-wrap-addressed redo log
// file: a wrapped, fixed-capacity log rather than an append-only one, so
// Capacity() reports a bound the reservation path can wait on.
type File struct {
	mu       sync.Mutex
	f        *os.File
	capacity uint64
}

// Open creates (if needed) and pre-sizes a redo file at path to capacity
// bytes, which must be a multiple of common.OS_FILE_LOG_BLOCK_SIZE.
func Open(path string, capacity uint64) (*File, error) {
	common.Assert(capacity%common.OS_FILE_LOG_BLOCK_SIZE == 0, "logfile: capacity must be block-aligned, got %d", capacity)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "logfile: open %s", path)
	}
	if err := f.Truncate(int64(capacity)); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "logfile: truncate %s to %d", path, capacity)
	}

	return &File{f: f, capacity: capacity}, nil
}

// Write persists bytes at the lsn-space offset, wrapping at capacity.
// The offset and length need not be block-aligned.
func (lf *File) Write(offset common.LSNT, bytes []byte) error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	pos := offset % lf.capacity
	first := bytes
	if pos+uint64(len(bytes)) > lf.capacity {
		first = bytes[:lf.capacity-pos]
	}
	n, err := lf.f.WriteAt(first, int64(pos))
	if err != nil {
		return errors.Wrap(err, "logfile: write")
	}
	if n < len(bytes) {
		rest := bytes[n:]
		if _, err := lf.f.WriteAt(rest, 0); err != nil {
			return errors.Wrap(err, "logfile: wrapped write")
		}
	}
	return nil
}

// Fsync is a durability barrier.
func (lf *File) Fsync() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return errors.Wrap(lf.f.Sync(), "logfile: fsync")
}

// Capacity returns the total redo lsn capacity in bytes.
func (lf *File) Capacity() uint64 {
	return lf.capacity
}

// Close releases the underlying file descriptor.
func (lf *File) Close() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return lf.f.Close()
}
