package logsys

import "time"

// closerIdleInterval bounds the closer thread's idle poll, same rationale
// as writerIdleInterval.
const closerIdleInterval = 2 * time.Millisecond

// closerLoop is the closer thread: it drains recent_closed, advancing
// buf_dirty_pages_added_up_to_lsn, which in turn unblocks
// reservers waiting on flush-list window space and any sn-gate exclusive
// acquirer waiting for in-flight mtrs to drain.
func (l *Log) closerLoop() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stop:
			return
		case <-l.closerEvent:
		case <-time.After(closerIdleInterval):
		}

		advanced := l.recentClosed.AdvanceTail()
		if advanced == 0 {
			continue
		}

		l.bufDirtyPagesAddedUpToLSN.Store(l.recentClosed.Tail())
	}
}
