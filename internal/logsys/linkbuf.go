package logsys

import (
	"time"

	"go.uber.org/atomic"

	"github.com/zhukovaskychina/xmysql-redo/internal/common"
)

// LinkBuffer is a fixed-size ring array indexed by lsn mod N. Each slot
// stores the end-lsn of a completed [from, to) segment that started at
// that lsn, forming a lock-free singly-linked chain of "segment X is
// closed" notifications. Producers write disjoint slots (the from value
// is unique because it is handed out by a single fetch_add counter);
// a single consumer walks the chain from a monotonic tail.
//
// Used for both recent_written (writer thread consumes it) and
// recent_closed (closer thread consumes it).
type LinkBuffer struct {
	slots []atomic.Uint64
	n     uint64

	tail atomic.Uint64

	spinDelay time.Duration
}

// NewLinkBuffer allocates a link buffer with capacity n, tail starting at
// the given lsn.
func NewLinkBuffer(n int, tailStart common.LSNT, spinDelay time.Duration) *LinkBuffer {
	lb := &LinkBuffer{
		slots:     make([]atomic.Uint64, n),
		n:         uint64(n),
		spinDelay: spinDelay,
	}
	lb.tail.Store(tailStart)
	return lb
}

// Tail returns the current monotonic tail lsn.
func (lb *LinkBuffer) Tail() common.LSNT {
	return lb.tail.Load()
}

// HasSpace reports whether a link ending at lsn currently fits: lsn - tail <= N.
func (lb *LinkBuffer) HasSpace(lsn common.LSNT) bool {
	return lsn-lb.tail.Load() <= lb.n
}

// AddLink records that the segment [from, to) has completed. It spin-waits
// (sleeping spinDelay between polls) until HasSpace(to), then stores `to`
// into slot `from mod N` with release ordering, so that any write to the
// covered range happens-before this store is observed by AdvanceTail.
//
// Precondition: to > from, from >= Tail(), and the caller is the unique
// writer of this slot (guaranteed by construction: `from` values are
// handed out by sn.fetch_add and are therefore distinct).
func (lb *LinkBuffer) AddLink(from, to common.LSNT) {
	common.Assert(to > from, "logsys: link buffer AddLink requires to > from (from=%d to=%d)", from, to)

	for !lb.HasSpace(to) {
		time.Sleep(lb.spinDelay)
	}

	lb.slots[from%lb.n].Store(to)
}

// AdvanceTailUntil walks the chain of contiguous links starting at the
// current tail, advancing it and clearing each slot as it goes (acquire
// ordering on every slot read, matching AddLink's release store). It stops
// either when there is no link starting exactly at the tail, or when
// stop(prevTail, newTail) returns true after an advance.
//
// Returns the number of links consumed.
func (lb *LinkBuffer) AdvanceTailUntil(stop func(prev, next common.LSNT) bool) int {
	advanced := 0
	for {
		prev := lb.tail.Load()
		slot := &lb.slots[prev%lb.n]
		next := slot.Load()
		if next <= prev {
			// No link recorded yet at this tail position.
			return advanced
		}
		slot.Store(0)
		lb.tail.Store(next)
		advanced++
		if stop != nil && stop(prev, next) {
			return advanced
		}
	}
}

// AdvanceTail walks every contiguous link currently available.
func (lb *LinkBuffer) AdvanceTail() int {
	return lb.AdvanceTailUntil(nil)
}
