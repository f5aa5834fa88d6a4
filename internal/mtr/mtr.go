// Package mtr implements the mini-transaction object and its commit
// command: the per-thread transient unit that collects page latches,
// redo bytes, and dirty pages, and atomically publishes them on commit.
package mtr

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xmysql-redo/internal/bufpool"
	"github.com/zhukovaskychina/xmysql-redo/internal/common"
	"github.com/zhukovaskychina/xmysql-redo/internal/logsys"
)

// LogMode selects how an mtr's redo bytes are handled at commit.
type LogMode uint8

const (
	LogModeAll LogMode = iota
	LogModeNone
	LogModeNoRedo
	LogModeShortInserts
)

// State is the mtr lifecycle: linear, terminal at Committed.
type State uint8

const (
	StateInit State = iota
	StateActive
	StateCommitting
	StateCommitted
)

// ErrReadOnlyMode is returned by Start when the engine is in read-only
// mode and the caller attempted to open a logging mtr, surfacing
// mtr0mtr.cc's ut_ad(!srv_read_only_mode) assertion as a recoverable error.
var ErrReadOnlyMode = errors.New("mtr: cannot start a logged mtr while the engine is read-only")

// ErrWrongState is a state-machine rejection: an operation was attempted
// from an mtr state that doesn't permit it.
var ErrWrongState = errors.New("mtr: operation invalid in current state")

// Mtr is a mini-transaction: a per-thread transient object, created on the
// caller's stack, never shared across goroutines.
type Mtr struct {
	log   *logsys.Log
	shard int

	state   State
	logMode LogMode

	nLogRecs int
	mLog     bytes.Buffer

	memo []MemoSlot

	madeDirty     bool
	modifications bool
	insideIbuf    bool

	noLogMarked bool
	commitLSN   common.LSNT
}

// New creates an mtr bound to log, in state Init. shard selects which
// no-log-counter shard this mtr registers under.
func New(log *logsys.Log, shard int) *Mtr {
	return &Mtr{log: log, shard: shard, logMode: LogModeAll}
}

// SetLogMode overrides the logging mode before Start; NONE/NO_REDO/
// SHORT_INSERTS all suppress redo emission at commit.
func (m *Mtr) SetLogMode(mode LogMode) {
	common.Assert(m.state == StateInit, "mtr: SetLogMode after Start")
	m.logMode = mode
}

// LogMode returns the effective logging mode.
func (m *Mtr) LogMode() LogMode { return m.logMode }

// State returns the current lifecycle state.
func (m *Mtr) State() State { return m.state }

// Start transitions INIT -> ACTIVE, consulting the logging-enabled switch:
// if logging is currently DISABLED, this mtr may be forced into NO_REDO
// mode for its lifetime.
func (m *Mtr) Start(readOnly bool) error {
	if m.state != StateInit {
		return errors.Wrap(ErrWrongState, "mtr: Start requires Init")
	}
	if readOnly && m.logMode == LogModeAll {
		return ErrReadOnlyMode
	}

	if m.log.Switch().MarkMtr(m.shard) {
		m.noLogMarked = true
		m.logMode = LogModeNoRedo
	}

	m.state = StateActive
	return nil
}

// PushRecord appends one redo record-group entry to the mtr's local log
// buffer, tagged with recordType as its first byte. The byte catalogue is
// carried but never interpreted here.
func (m *Mtr) PushRecord(recordType RecordType, payload []byte) {
	common.Assert(m.state == StateActive, "mtr: PushRecord requires Active state")
	m.mLog.WriteByte(byte(recordType))
	m.mLog.Write(payload)
	m.nLogRecs++
}

// PushMemo records that kind of access was taken on obj, in acquisition
// order, so commit can release it in reverse order.
func (m *Mtr) PushMemo(kind MemoKind, obj interface{}) {
	common.Assert(m.state == StateActive, "mtr: PushMemo requires Active state")
	m.memo = append(m.memo, MemoSlot{Kind: kind, Object: obj})
}

// SLatchPage S-latches page and memoizes the release.
func (m *Mtr) SLatchPage(page *bufpool.Page) {
	page.Latch.LockS()
	m.PushMemo(MemoPageS, page)
}

// SXLatchPage SX-latches page and memoizes the release.
func (m *Mtr) SXLatchPage(page *bufpool.Page) {
	page.Latch.LockSX()
	m.PushMemo(MemoPageSX, page)
}

// XLatchPage X-latches page and memoizes the release.
func (m *Mtr) XLatchPage(page *bufpool.Page) {
	page.Latch.LockX()
	m.PushMemo(MemoPageX, page)
	m.madeDirty = true
}

// BufFix records a buffer-fix with no latch (pins the page in the pool
// without blocking concurrent access), memoizing the matching unfix.
func (m *Mtr) BufFix(page *bufpool.Page) {
	m.PushMemo(MemoBufFix, page)
}

// LockNamed acquires mode on an arbitrary rw-lockable object (dictionary
// locks, table locks — anything besides a buffer-pool page) and memoizes
// the matching release kind.
func (m *Mtr) LockNamed(l *bufpool.Latch, mode bufpool.Mode) {
	l.Lock(mode)
	switch mode {
	case bufpool.ModeS:
		m.PushMemo(MemoSLock, l)
	case bufpool.ModeSX:
		m.PushMemo(MemoSXLock, l)
	case bufpool.ModeX:
		m.PushMemo(MemoXLock, l)
	}
}

// MarkModified records that the mtr produced a logical modification
// without itself holding the page latch (e.g. a change buffered through
// the insert buffer) — a MODIFY memo slot with nothing to release later.
func (m *Mtr) MarkModified() {
	m.modifications = true
	m.PushMemo(MemoModify, nil)
}

// SetInsideIbuf tags the mtr as operating inside the insert buffer,
// carried for callers but not interpreted by this subsystem.
func (m *Mtr) SetInsideIbuf(v bool) { m.insideIbuf = v }

// IsPageDirtied reports whether kind represents an access that can dirty a
// page, mirroring mtr0mtr.h's mode-aware dirtying check.
func (m *Mtr) IsPageDirtied(kind MemoKind) bool {
	switch kind {
	case MemoPageX, MemoPageSX:
		return true
	case MemoBufFix:
		return m.madeDirty
	default:
		return false
	}
}

// CommitLSN returns the end_lsn of this mtr's commit once it has
// committed; zero before that.
func (m *Mtr) CommitLSN() common.LSNT { return m.commitLSN }
