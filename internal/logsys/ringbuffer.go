package logsys

import (
	"sync"

	"github.com/zhukovaskychina/xmysql-redo/internal/common"
)

// RingBuffer is the buf_size-byte ring addressed by lsn mod buf_size,
// holding framed log blocks. Concurrent writers copy into
// disjoint ranges without a serializing mutex on the copy itself; RWMutex
// here only arbitrates against the rare resize path, which the reservation
// path runs while holding the writer mutex.
type RingBuffer struct {
	mu   sync.RWMutex
	buf  []byte
	size uint64
}

// NewRingBuffer allocates a ring of sizeBytes, which must be a multiple of
// OS_FILE_LOG_BLOCK_SIZE.
func NewRingBuffer(sizeBytes uint64) *RingBuffer {
	common.Assert(sizeBytes%common.OS_FILE_LOG_BLOCK_SIZE == 0, "logsys: ring buffer size must be block-aligned, got %d", sizeBytes)
	return &RingBuffer{
		buf:  make([]byte, sizeBytes),
		size: sizeBytes,
	}
}

// Size returns the current ring size in bytes.
func (r *RingBuffer) Size() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Resize grows the ring to at least minSize (rounded up to a block
// multiple), zeroing the new buffer. Callers must ensure the ring is
// quiescent (no live unconsumed bytes) — enforced by the reservation path
// only ever resizing before any byte of the oversize mtr has been copied.
func (r *RingBuffer) Resize(minSize uint64) uint64 {
	newSize := roundUpBlock(minSize)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = make([]byte, newSize)
	r.size = newSize
	return newSize
}

func roundUpBlock(n uint64) uint64 {
	rem := n % common.OS_FILE_LOG_BLOCK_SIZE
	if rem == 0 {
		return n
	}
	return n + (common.OS_FILE_LOG_BLOCK_SIZE - rem)
}

// CopyIn writes data (payload bytes, pre-framed by the caller into
// record-group content) starting at lsn startLSN, honoring block framing:
// bytes never land in the header or trailer region, and whenever the copy
// crosses into a new block, that block's first_rec_group field is cleared
// so a later mtr whose record group starts in that block can claim it.
// Returns the lsn just past the last copied byte.
func (r *RingBuffer) CopyIn(startLSN common.LSNT, data []byte) common.LSNT {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lsn := startLSN
	remaining := data

	for len(remaining) > 0 {
		blockStart := (lsn / common.OS_FILE_LOG_BLOCK_SIZE) * common.OS_FILE_LOG_BLOCK_SIZE
		offsetInBlock := lsn - blockStart

		if offsetInBlock == common.LOG_BLOCK_HDR_SIZE {
			// We just crossed into this block's payload region for the
			// first time during this copy: clear its first_rec_group so a
			// later mtr can claim the first complete record group.
			r.blockHeaderAt(blockStart).setFirstRecGroup(0)
			r.blockHeaderAt(blockStart).setHdrNo(common.BlockNoForLSN(blockStart))
		}

		dataEnd := blockStart + common.LOG_BLOCK_HDR_SIZE + common.LOG_BLOCK_DATA_SIZE
		avail := dataEnd - lsn
		n := uint64(len(remaining))
		if n > avail {
			n = avail
		}

		r.writeAt(lsn, remaining[:n])

		lsn += n
		remaining = remaining[n:]

		if lsn == dataEnd {
			// A boundary lsn always normalizes to the next block's payload
			// start (never the trailer), matching SNToLSN's convention
			// that lsn never points into header/trailer bytes — even when
			// this was the last byte copied, so a handle's end_lsn compares
			// equal to the translated end_sn.
			lsn = dataEnd + common.LOG_BLOCK_TRL_SIZE + common.LOG_BLOCK_HDR_SIZE
		}
	}

	return lsn
}

// writeAt copies p into the ring starting at lsn, wrapping around r.size.
func (r *RingBuffer) writeAt(lsn common.LSNT, p []byte) {
	off := lsn % r.size
	n := copy(r.buf[off:], p)
	if n < len(p) {
		copy(r.buf[0:], p[n:])
	}
}

func (r *RingBuffer) blockHeaderAt(blockStart common.LSNT) blockHeader {
	off := blockStart % r.size
	// A block never straddles the physical wrap point because buf_size is
	// always a multiple of the block size, so a block's header bytes are
	// contiguous even though later payload bytes of the same block might wrap.
	return blockHeader{buf: r.buf[off : off+common.OS_FILE_LOG_BLOCK_SIZE]}
}

// SetFirstRecGroup claims the first complete record group starting inside
// the block containing lsn. Called by mtr commit when its write crossed a
// block boundary.
func (r *RingBuffer) SetFirstRecGroup(lsn common.LSNT) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	blockStart := (lsn / common.OS_FILE_LOG_BLOCK_SIZE) * common.OS_FILE_LOG_BLOCK_SIZE
	offset := uint16(lsn - blockStart)
	h := r.blockHeaderAt(blockStart)
	if h.firstRecGroup() == 0 {
		h.setFirstRecGroup(offset)
	}
}

// ReadRange copies out the bytes in [start, end), handling wrap as at most
// two contiguous segments. Used by the writer thread to hand a contiguous
// byte range to the file layer.
func (r *RingBuffer) ReadRange(start, end common.LSNT) []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()

	length := end - start
	out := make([]byte, length)
	startOff := start % r.size
	n := copy(out, r.buf[startOff:])
	if uint64(n) < length {
		copy(out[n:], r.buf[0:])
	}
	return out
}

// StampBlockHeaders finalizes the hdr_no/checkpoint_no/checksum fields of
// the block at blockStart, which the writer thread calls just before
// handing the block's bytes to the file layer — by this point the block
// is fully retired from concurrent mtr writers (it lies entirely within
// [write_lsn, buf_ready_for_write_lsn)).
func (r *RingBuffer) StampBlockHeaders(blockStart common.LSNT, checkpointNo uint32) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h := r.blockHeaderAt(blockStart)
	h.setHdrNo(common.BlockNoForLSN(blockStart))
	h.setCheckpointNo(checkpointNo)

	off := blockStart % r.size
	block := r.buf[off : off+common.OS_FILE_LOG_BLOCK_SIZE]
	// data_len is measured from the end of the header to the highest byte
	// that has actually been written; it is left as recorded by SetDataLen,
	// which the writer calls for the block before stamping it, so the
	// checksum below covers the final data_len.
	setChecksum(block, checksumOf(block))
}

// SetDataLen records the exact number of payload bytes used within the
// block containing endLSN (the block holding the tail of a flush range).
func (r *RingBuffer) SetDataLen(blockStart, endLSN common.LSNT) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h := r.blockHeaderAt(blockStart)
	h.setDataLen(uint16(endLSN - blockStart - common.LOG_BLOCK_HDR_SIZE))
}
