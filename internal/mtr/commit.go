package mtr

import (
	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xmysql-redo/internal/bufpool"
	"github.com/zhukovaskychina/xmysql-redo/internal/common"
)

// ErrNoRedoWithRecords is a fatal invariant violation: a no-redo-mode mtr
// somehow accumulated log records. A correct caller never triggers this —
// PushRecord itself doesn't check the mode, so this is the commit-time
// backstop.
var ErrNoRedoWithRecords = errors.New("mtr: committing a nonzero-record mtr in a no-redo mode")

// Command prepares an active mtr's local buffer, publishes it through the
// log's reservation/write path, links dirty pages into flush lists, and
// releases every latch.
type Command struct {
	flush *bufpool.FlushListSet
}

// NewCommand builds a commit command that links dirty pages into flush.
func NewCommand(flush *bufpool.FlushListSet) *Command {
	return &Command{flush: flush}
}

// Execute runs mtr's commit to completion: ACTIVE -> COMMITTING -> COMMITTED.
func (c *Command) Execute(m *Mtr) error {
	if m.state != StateActive {
		return errors.Wrap(ErrWrongState, "mtr: Execute requires Active state")
	}
	m.state = StateCommitting

	length := m.mLog.Len()
	switch m.logMode {
	case LogModeNone, LogModeNoRedo, LogModeShortInserts:
		if length > 0 && m.logMode == LogModeNoRedo {
			return ErrNoRedoWithRecords
		}
		length = 0
	default:
		if m.nLogRecs == 1 {
			m.frameSingleRecord()
		} else if m.nLogRecs > 1 {
			m.mLog.WriteByte(byte(MLOGMultiRecEnd))
			length = m.mLog.Len()
		}
	}

	if length > 0 {
		c.commitWithRedo(m, length)
	} else if m.modifications {
		// No redo was emitted, but the mtr still touched already-dirty
		// pages: nothing new to stamp, those pages' oldest_modification
		// was set by whichever earlier mtr first dirtied them.
	}

	releaseAllReverse(m.memo)
	m.mLog.Reset()
	m.memo = nil

	if m.noLogMarked {
		m.log.Switch().UnmarkMtr(m.shard)
	}

	m.state = StateCommitted
	return nil
}

// frameSingleRecord ORs SingleRecFlag into the first byte, avoiding the
// MULTI_REC_END sentinel a multi-record mtr needs.
func (m *Mtr) frameSingleRecord() {
	b := m.mLog.Bytes()
	if len(b) > 0 {
		b[0] |= byte(SingleRecFlag)
	}
}

func (c *Command) commitWithRedo(m *Mtr, length int) {
	h := m.log.Reserve(uint64(length))

	data := m.mLog.Bytes()[:length]
	endLSN := m.log.Write(h.StartLSN, data)
	common.Assert(endLSN == h.EndLSN, "mtr: commit write ended at %d, reservation expected %d", endLSN, h.EndLSN)

	// A group that crosses a block boundary must claim first_rec_group on
	// the block its tail landed in, not the one it started in, so a
	// recovery scan of that block knows where its first complete group
	// begins.
	if h.StartLSN/common.OS_FILE_LOG_BLOCK_SIZE != h.EndLSN/common.OS_FILE_LOG_BLOCK_SIZE {
		m.log.ClaimFirstRecGroup(h.EndLSN)
	}

	m.log.WriteCompleted(h.StartLSN, h.EndLSN)
	m.log.WaitForSpaceInRecentClosed(h.EndLSN)

	for _, slot := range m.memo {
		if !m.IsPageDirtied(slot.Kind) {
			continue
		}
		page, ok := slot.Object.(*bufpool.Page)
		if !ok {
			continue
		}
		c.flush.NoteModification(page, h.StartLSN, h.EndLSN)
	}

	m.log.Close(h)
	m.commitLSN = h.EndLSN
}
