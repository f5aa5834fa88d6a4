package logsys

import (
	"github.com/zhukovaskychina/xmysql-redo/internal/common"
)

// Handle identifies an in-flight reservation: the lsn range a commit will
// fill with redo bytes.
type Handle struct {
	StartLSN common.LSNT
	EndLSN   common.LSNT
}

// resizeFactor is applied to an oversize reservation's length to pick the
// new ring size, matching the 1.382 ratio used by the original redo log
// buffer growth policy (roughly the golden-ratio conjugate, chosen so
// back-to-back oversize mtrs don't repeatedly trigger resize).
const resizeFactor = 1.382

// Reserve allocates [start, start+length) of sn space and translates it to
// an lsn Handle, blocking as needed for ring and log-file space. Reserve
// itself has no read-only guard; mtr.Mtr.Start refuses to open a logging
// mtr in read-only mode before any Reserve call is ever made.
func (l *Log) Reserve(length uint64) Handle {
	startSN := l.gate.SharedReserve(length)
	endSN := startSN + length

	if endSN > l.bufLimitSN.Load() {
		l.waitForSpaceAfterReserving(startSN, endSN, length)
	}

	return Handle{
		StartLSN: common.SNToLSN(startSN),
		EndLSN:   common.SNToLSN(endSN),
	}
}

func (l *Log) waitForSpaceAfterReserving(startSN, endSN, length uint64) {
	// 1. Wait for the start of our range to already be durable-or-written,
	// which frees the ring space behind it for us to reuse.
	l.logWriteUpTo(common.SNToLSN(startSN))

	// 2. An oversize reservation (bigger than the whole ring) forces a
	// resize before we can ever make progress.
	if length > l.bufSizeSN.Load() {
		l.resizeForLength(length)
	}

	// 3. Wait until our end also fits: end_sn + B <= write_lsn + buf_size_sn.
	for {
		writeLSN := l.writeLSN.Load()
		bufSizeSN := l.bufSizeSN.Load()
		if endSN+common.OS_FILE_LOG_BLOCK_SIZE <= common.LSNToSN(writeLSN)+bufSizeSN {
			break
		}
		l.kickWriter()
		l.sleepSpin()
	}

	// 4. Wait until our end also fits within the log files' capacity, i.e.
	// the checkpointer has reclaimed enough space.
	if l.file == nil {
		return
	}
	capacitySN := l.file.Capacity()
	for {
		lastCkpt := l.lastCheckpointLSN.Load()
		if endSN-common.LSNToSN(lastCkpt) <= capacitySN {
			return
		}
		l.sleepSpin()
	}
}

// logWriteUpTo blocks until write_lsn has advanced to at least target.
func (l *Log) logWriteUpTo(target common.LSNT) {
	for l.writeLSN.Load() < target {
		l.kickWriter()
		l.writeMu.Lock()
		if l.writeLSN.Load() < target {
			l.writeCond.Wait()
		}
		l.writeMu.Unlock()
	}
}

// resizeForLength grows the ring to hold a reservation of at least length
// bytes, under the writer mutex. It does not take the sn-gate: the caller
// already holds an unclosed reservation, so an exclusive drain would wait
// on the caller itself. The caller has already waited for write_lsn to
// reach its start, so no earlier reservation still has bytes in the ring.
func (l *Log) resizeForLength(length uint64) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	minSize := uint64(float64(length) * resizeFactor)
	newSize := l.ring.Resize(minSize)
	l.bufSizeSN.Store(newSize)
	l.log.Named("logsys").WithField("new_size", newSize).Info("redo ring buffer resized")

	writeLSN := l.writeLSN.Load()
	l.bufLimitSN.Store(common.LSNToSN(writeLSN) + newSize - 2*common.OS_FILE_LOG_BLOCK_SIZE)
}

// Write copies bytes into the ring starting at "at", honoring block
// framing, and returns the lsn just past the copied range.
func (l *Log) Write(at common.LSNT, bytes []byte) common.LSNT {
	return l.ring.CopyIn(at, bytes)
}

// ClaimFirstRecGroup records that the record group starting at lsn is the
// first complete one in its block — called when an mtr's write crossed a
// block boundary.
func (l *Log) ClaimFirstRecGroup(lsn common.LSNT) {
	l.ring.SetFirstRecGroup(lsn)
}

// WriteCompleted publishes that [start, end) has been fully copied into
// the ring, waiting for a recent_written slot if the link buffer is
// currently full (bounded by M_w).
func (l *Log) WriteCompleted(start, end common.LSNT) {
	for !l.recentWritten.HasSpace(end) {
		l.kickWriter()
		l.sleepSpin()
	}
	l.recentWritten.AddLink(start, end)
	l.kickWriter()
}

// WaitForSpaceInRecentClosed blocks until the recent_closed link buffer has
// room for a link ending at endLSN (bounded by M_c, which caps per-mtr
// flush-list lag).
func (l *Log) WaitForSpaceInRecentClosed(endLSN common.LSNT) {
	for !l.recentClosed.HasSpace(endLSN) {
		l.kickCloser()
		l.sleepSpin()
	}
}

// Close records that [start, end) has finished adding its dirty pages to
// flush lists, releasing the reservation's outstanding shared lease.
func (l *Log) Close(h Handle) {
	l.recentClosed.AddLink(h.StartLSN, h.EndLSN)
	l.kickCloser()
}
