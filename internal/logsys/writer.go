package logsys

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zhukovaskychina/xmysql-redo/internal/common"
)

// writerIdleInterval bounds how long the writer thread sleeps between
// checks when it has no pending work and nobody has kicked it, so a
// missed wakeup (e.g. during a resize window) cannot stall it forever.
const writerIdleInterval = 2 * time.Millisecond

// writerLoop is the writer thread: it consumes recent_written, hands
// contiguous bytes to the file layer, and advances write_lsn.
func (l *Log) writerLoop() {
	defer l.wg.Done()
	log := l.log.Named("writer")

	for {
		select {
		case <-l.stop:
			return
		case <-l.writerEvent:
		case <-time.After(writerIdleInterval):
		}

		advanced := l.recentWritten.AdvanceTailUntil(func(prev, next common.LSNT) bool {
			return next-l.writeLSN.Load() >= uint64(l.cfg.WriteMaxSize)
		})
		if advanced == 0 {
			continue
		}

		target := l.recentWritten.Tail()
		l.flushRange(l.writeLSN.Load(), target, log)
	}
}

// flushRange hands [from, to) to the file layer and advances write_lsn,
// stamping every fully-covered block's header fields first.
func (l *Log) flushRange(from, to common.LSNT, log *logrus.Entry) {
	if to <= from {
		return
	}

	checkpointNo := l.checkpointNo.Load()
	for blockStart := blockFloor(from); blockStart+common.OS_FILE_LOG_BLOCK_SIZE <= to; blockStart += common.OS_FILE_LOG_BLOCK_SIZE {
		end := blockStart + common.OS_FILE_LOG_BLOCK_SIZE
		l.ring.SetDataLen(blockStart, minLSN(end-common.LOG_BLOCK_TRL_SIZE, to))
		l.ring.StampBlockHeaders(blockStart, checkpointNo)
	}

	data := l.ring.ReadRange(from, to)
	if l.file != nil {
		if err := l.file.Write(from, data); err != nil {
			log.WithField("err", err).Warn("redo write failed")
			return
		}
	}

	l.writeMu.Lock()
	l.writeLSN.Store(to)
	newLimit := common.LSNToSN(to) + l.bufSizeSN.Load() - 2*common.OS_FILE_LOG_BLOCK_SIZE
	l.bufLimitSN.Store(newLimit)
	l.writeCond.Broadcast()
	l.writeMu.Unlock()
}

func blockFloor(lsn common.LSNT) common.LSNT {
	return (lsn / common.OS_FILE_LOG_BLOCK_SIZE) * common.OS_FILE_LOG_BLOCK_SIZE
}

func minLSN(a, b common.LSNT) common.LSNT {
	if a < b {
		return a
	}
	return b
}
