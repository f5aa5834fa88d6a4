package logsys

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhukovaskychina/xmysql-redo/internal/common"
	"github.com/zhukovaskychina/xmysql-redo/internal/config"
)

// fakeFile is an in-memory FileLayer for tests, recording every write at
// its lsn-space offset so assertions can inspect what was persisted.
type fakeFile struct {
	mu       sync.Mutex
	capacity uint64
	written  map[uint64][]byte
}

func newFakeFile(capacity uint64) *fakeFile {
	return &fakeFile{capacity: capacity, written: make(map[uint64][]byte)}
}

func (f *fakeFile) Write(offset common.LSNT, bytes []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(bytes))
	copy(cp, bytes)
	f.written[offset] = cp
	return nil
}

func (f *fakeFile) Fsync() error { return nil }

func (f *fakeFile) Capacity() uint64 { return f.capacity }

func testCfg() *config.Cfg {
	c := config.Default()
	c.BufferSize = 8192
	c.RecentWrittenSlots = 8192
	c.RecentClosedSlots = 8192
	c.WriteMaxSize = 1
	c.SpinWaitDelay = "200us"
	c.EnableDrainTimeout = "1s"
	_ = c
	// resolveDurations is unexported; Default already resolved once, but
	// SpinWaitDelay changed above, so recompute the duration directly.
	c.SpinWaitDelayDuration = 200 * time.Microsecond
	c.EnableDrainTimeoutDuration = time.Second
	return c
}

func TestLog_ReserveWriteCloseAdvancesWriteLSN(t *testing.T) {
	file := newFakeFile(1 << 20)
	l := New(Options{Cfg: testCfg(), File: file})
	l.Start()
	defer l.Stop()

	h := l.Reserve(3)
	end := l.Write(h.StartLSN, []byte{0x80 | 'A', 'B', 0})
	require.Equal(t, h.EndLSN, end)

	l.WriteCompleted(h.StartLSN, h.EndLSN)
	l.WaitForSpaceInRecentClosed(h.EndLSN)
	l.Close(h)

	require.Eventually(t, func() bool {
		return l.WriteLSN() >= h.EndLSN
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		return l.BufDirtyPagesAddedUpToLSN() >= h.EndLSN
	}, time.Second, time.Millisecond)
}

// P1: successive reserve calls return strictly increasing start_lsn.
func TestLog_ReserveMonotonic(t *testing.T) {
	file := newFakeFile(1 << 20)
	l := New(Options{Cfg: testCfg(), File: file})
	l.Start()
	defer l.Stop()

	var prev common.LSNT
	for i := 0; i < 50; i++ {
		h := l.Reserve(4)
		if i > 0 {
			assert.Greater(t, h.StartLSN, prev)
		}
		prev = h.StartLSN
		l.WriteCompleted(h.StartLSN, h.EndLSN)
		l.WaitForSpaceInRecentClosed(h.EndLSN)
		l.Close(h)
	}
}

// Scenario 5: an oversize reservation forces exactly one ring resize.
func TestLog_OversizeReservationResizes(t *testing.T) {
	file := newFakeFile(1 << 20)
	cfg := testCfg()
	cfg.BufferSize = 512 * 4
	l := New(Options{Cfg: cfg, File: file})
	l.Start()
	defer l.Stop()

	before := l.BufSize()
	h := l.Reserve(uint64(before) * 2)
	after := l.BufSize()

	assert.Greater(t, after, before)

	l.Write(h.StartLSN, make([]byte, int(h.EndLSN-h.StartLSN)))
	l.WriteCompleted(h.StartLSN, h.EndLSN)
	l.WaitForSpaceInRecentClosed(h.EndLSN)
	l.Close(h)
}

// Mirrors mtr.Command.commitWithRedo's boundary check and claim call: a
// commit whose bytes cross a block boundary must stamp first_rec_group on
// the block its *end* lsn landed in, not the block it started in.
func TestLog_ClaimFirstRecGroupStampsEndBlockNotStartBlock(t *testing.T) {
	file := newFakeFile(1 << 20)
	l := New(Options{Cfg: testCfg(), File: file})
	l.Start()
	defer l.Stop()

	h := l.Reserve(500)
	require.Equal(t, common.LSNT(12), h.StartLSN)
	require.Equal(t, common.LSNT(528), h.EndLSN)

	end := l.Write(h.StartLSN, make([]byte, 500))
	require.Equal(t, h.EndLSN, end)

	require.NotEqual(t, h.StartLSN/common.OS_FILE_LOG_BLOCK_SIZE, h.EndLSN/common.OS_FILE_LOG_BLOCK_SIZE)
	l.ClaimFirstRecGroup(h.EndLSN)

	assert.Equal(t, uint16(0), l.ring.blockHeaderAt(0).firstRecGroup(), "start block must not be stamped")
	assert.Equal(t, uint16(16), l.ring.blockHeaderAt(512).firstRecGroup(), "end block must be stamped at end_lsn%%B")

	l.WriteCompleted(h.StartLSN, h.EndLSN)
	l.WaitForSpaceInRecentClosed(h.EndLSN)
	l.Close(h)
}

// Scenario 6: filling recent_closed blocks the next reserver's close-side
// wait until an earlier reservation closes.
func TestLog_RecentClosedBackpressure(t *testing.T) {
	file := newFakeFile(1 << 20)
	cfg := testCfg()
	cfg.RecentClosedSlots = 8
	l := New(Options{Cfg: cfg, File: file})
	l.Start()
	defer l.Stop()

	var handles []Handle
	for i := 0; i < 8; i++ {
		h := l.Reserve(4)
		l.Write(h.StartLSN, []byte{1, 2, 3, 4})
		l.WriteCompleted(h.StartLSN, h.EndLSN)
		handles = append(handles, h)
		// Deliberately not closed yet.
	}

	h9 := l.Reserve(4)
	l.Write(h9.StartLSN, []byte{1, 2, 3, 4})
	l.WriteCompleted(h9.StartLSN, h9.EndLSN)

	blocked := make(chan struct{})
	go func() {
		l.WaitForSpaceInRecentClosed(h9.EndLSN)
		close(blocked)
	}()

	select {
	case <-blocked:
		t.Fatal("9th reservation should block for recent_closed space")
	case <-time.After(20 * time.Millisecond):
	}

	// Close the first 6 in order: tail only advances through a contiguous
	// prefix, so the 9th reservation must still stay blocked.
	for i := 0; i < 6; i++ {
		l.Close(handles[i])
	}

	select {
	case <-blocked:
		t.Fatal("should still be blocked: only 6 of 8 closed")
	case <-time.After(20 * time.Millisecond):
	}

	// Closing the 7th brings the tail within M_c(8) of h9.end, unblocking it.
	l.Close(handles[6])

	select {
	case <-blocked:
	case <-time.After(time.Second):
		t.Fatal("should unblock once tail is within M_c of h9.end")
	}

	l.Close(handles[7])
	l.Close(h9)
}
