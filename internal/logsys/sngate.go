package logsys

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/zhukovaskychina/xmysql-redo/internal/common"
)

// SNGate is the shared/exclusive lock embedded in the sn counter.
// Shared leases are lock-free: a writer does an unconditional
// fetch_add and only pays for synchronization when it discovers the
// exclusive flag was set. The exclusive side (a coherent last-block
// snapshot) is the rare, serialized path.
type SNGate struct {
	sn atomic.Uint64 // top bit is common.SNLocked

	mu       sync.Mutex
	cond     *sync.Cond
	snLocked common.SNT // sn value (flag stripped) at the moment the exclusive flag was set

	// drained reports whether every reservation taken before the
	// exclusive holder locked the gate has closed (its dirty pages
	// have been added to flush lists). Supplied by the owning Log so
	// the gate doesn't need to know about recent_closed directly.
	drained func(upTo common.LSNT) bool

	spinDelay time.Duration
}

// NewSNGate constructs a gate starting at sn=start. drained(lsn) must
// report whether buf_dirty_pages_added_up_to_lsn has reached lsn.
func NewSNGate(start common.SNT, drained func(common.LSNT) bool, spinDelay time.Duration) *SNGate {
	g := &SNGate{drained: drained, spinDelay: spinDelay}
	g.sn.Store(start)
	g.cond = sync.NewCond(&g.mu)
	return g
}

// SN returns the raw counter including the lock bit, for diagnostics.
func (g *SNGate) SN() common.SNT {
	return g.sn.Load()
}

// SharedReserve atomically hands out [start, start+length) of sn space and
// returns start. If the gate is exclusively held at the moment of the
// fetch_add, it waits for the exclusive holder to release before
// returning — mirroring log0buf.cc's log_buffer_s_lock wait loop.
func (g *SNGate) SharedReserve(length common.SNT) common.SNT {
	newVal := g.sn.Add(length)
	old := newVal - length

	if old&common.SNLocked == 0 {
		return old
	}

	start := old &^ common.SNLocked
	g.waitForUnlock()
	return start
}

func (g *SNGate) waitForUnlock() {
	g.mu.Lock()
	for g.sn.Load()&common.SNLocked != 0 {
		g.cond.Wait()
	}
	g.mu.Unlock()
}

// ExclusiveEnter blocks all new shared leases, then waits until every
// reservation taken before the lock was acquired has closed (so a
// last-block snapshot observes a quiescent ring). A caller that itself
// holds an unclosed reservation must not call it: the drain would wait
// on that reservation forever.
func (g *SNGate) ExclusiveEnter() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		old := g.sn.Load()
		common.Assert(old&common.SNLocked == 0, "logsys: sn gate already exclusively held")
		if g.sn.CAS(old, old|common.SNLocked) {
			g.snLocked = old
			break
		}
	}

	target := common.SNToLSN(g.snLocked)
	for !g.drained(target) {
		g.mu.Unlock()
		time.Sleep(g.spinDelay)
		g.mu.Lock()
	}
}

// ExclusiveExit releases the exclusive hold and wakes any shared waiters.
func (g *SNGate) ExclusiveExit() {
	g.mu.Lock()
	for {
		old := g.sn.Load()
		common.Assert(old&common.SNLocked != 0, "logsys: sn gate exclusive exit without holder")
		if g.sn.CAS(old, old&^common.SNLocked) {
			break
		}
	}
	g.cond.Broadcast()
	g.mu.Unlock()
}
