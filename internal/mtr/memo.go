package mtr

import "github.com/zhukovaskychina/xmysql-redo/internal/bufpool"

// MemoKind tags what a memo slot holds and how to release it.
type MemoKind uint8

const (
	MemoBufFix MemoKind = iota
	MemoPageS
	MemoPageSX
	MemoPageX
	MemoSLock
	MemoSXLock
	MemoXLock
	MemoModify
)

// MemoSlot is one (object, kind) entry on the mtr's memo stack. Object is
// a non-owning reference: the mtr borrows it for the latch's lifetime,
// released on commit in reverse push order.
type MemoSlot struct {
	Kind   MemoKind
	Object interface{}
}

// release undoes the access this slot represents, dispatching on Kind.
func (s MemoSlot) release() {
	switch s.Kind {
	case MemoPageS:
		s.Object.(*bufpool.Page).Latch.UnlockS()
	case MemoPageSX:
		s.Object.(*bufpool.Page).Latch.UnlockSX()
	case MemoPageX:
		s.Object.(*bufpool.Page).Latch.UnlockX()
	case MemoSLock:
		s.Object.(*bufpool.Latch).UnlockS()
	case MemoSXLock:
		s.Object.(*bufpool.Latch).UnlockSX()
	case MemoXLock:
		s.Object.(*bufpool.Latch).UnlockX()
	case MemoBufFix, MemoModify:
		// No latch to release; BUF_FIX still conceptually unpins, but
		// this subsystem doesn't model buffer-pool pinning separately
		// from the page struct's lifetime.
	}
}

// releaseAllReverse walks the memo stack tail-to-head, releasing each slot
// exactly once, in the reverse order they were acquired.
func releaseAllReverse(memo []MemoSlot) {
	for i := len(memo) - 1; i >= 0; i-- {
		memo[i].release()
	}
}
