package mtr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhukovaskychina/xmysql-redo/internal/bufpool"
	"github.com/zhukovaskychina/xmysql-redo/internal/common"
	"github.com/zhukovaskychina/xmysql-redo/internal/config"
	"github.com/zhukovaskychina/xmysql-redo/internal/logsys"
)

type memFile struct{ capacity uint64 }

func (f *memFile) Write(offset common.LSNT, bytes []byte) error { return nil }
func (f *memFile) Fsync() error                                 { return nil }
func (f *memFile) Capacity() uint64                             { return f.capacity }

func newTestLog(t *testing.T) *logsys.Log {
	t.Helper()
	cfg := config.Default()
	cfg.BufferSize = 8192
	cfg.RecentWrittenSlots = 32
	cfg.RecentClosedSlots = 32
	cfg.SpinWaitDelayDuration = 100 * time.Microsecond
	l := logsys.New(logsys.Options{Cfg: cfg, File: &memFile{capacity: 1 << 20}})
	l.Start()
	t.Cleanup(l.Stop)
	return l
}

// Scenario 1: a single-record mtr ORs SINGLE_REC_FLAG into the record's
// first byte instead of appending MULTI_REC_END.
func TestCommand_Execute_SingleRecord(t *testing.T) {
	l := newTestLog(t)
	flush := bufpool.NewFlushListSet(1)
	cmd := NewCommand(flush)

	m := New(l, 0)
	require.NoError(t, m.Start(false))

	m.PushRecord(MLOGRecInsert, []byte("B"))

	require.NoError(t, cmd.Execute(m))
	assert.Equal(t, StateCommitted, m.State())
	assert.Greater(t, m.CommitLSN(), common.LSNT(0))
}

// Scenario 2: a multi-record mtr appends the MULTI_REC_END sentinel.
func TestCommand_Execute_MultiRecordAppendsSentinel(t *testing.T) {
	l := newTestLog(t)
	flush := bufpool.NewFlushListSet(1)
	cmd := NewCommand(flush)

	m := New(l, 0)
	require.NoError(t, m.Start(false))

	m.PushRecord(MLOG1Byte, []byte{1})
	m.PushRecord(MLOG1Byte, []byte{2})
	m.PushRecord(MLOG1Byte, []byte{3})
	assert.Equal(t, 3, m.nLogRecs)

	require.NoError(t, cmd.Execute(m))
	assert.Equal(t, StateCommitted, m.State())
}

// P8: every memo slot pushed is released exactly once, in reverse order.
func TestCommand_Execute_ReleasesLatchesInReverseOrder(t *testing.T) {
	l := newTestLog(t)
	flush := bufpool.NewFlushListSet(1)
	cmd := NewCommand(flush)

	m := New(l, 0)
	require.NoError(t, m.Start(false))

	p1 := bufpool.NewPage(1, 1)
	p2 := bufpool.NewPage(1, 2)

	m.XLatchPage(p1)
	m.SLatchPage(p2)
	m.PushRecord(MLOGRecInsert, []byte("data"))

	require.NoError(t, cmd.Execute(m))

	// Both latches must be free again: a fresh X lock on each must not block.
	done := make(chan struct{})
	go func() {
		p1.Latch.LockX()
		p1.Latch.UnlockX()
		p2.Latch.LockX()
		p2.Latch.UnlockX()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("latches should have been released by commit")
	}
}

// Dirtied pages committed with redo must be linked into the flush list
// with the commit's start/end lsn.
func TestCommand_Execute_LinksDirtiedPagesIntoFlushList(t *testing.T) {
	l := newTestLog(t)
	flush := bufpool.NewFlushListSet(1)
	cmd := NewCommand(flush)

	m := New(l, 0)
	require.NoError(t, m.Start(false))

	p := bufpool.NewPage(2, 5)
	m.XLatchPage(p)
	m.PushRecord(MLOGRecInsert, []byte("x"))

	require.NoError(t, cmd.Execute(m))

	assert.True(t, p.IsDirty())
	assert.Equal(t, m.CommitLSN(), p.NewestModification())
}
