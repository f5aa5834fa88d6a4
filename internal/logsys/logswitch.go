package logsys

import (
	"time"

	"github.com/juju/errors"
	"go.uber.org/atomic"
)

// State is the logging-enabled state machine.
type State int32

const (
	StateEnabled State = iota
	StateEnabledDBLWR
	StateEnabledRestrict
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateEnabled:
		return "ENABLED"
	case StateEnabledDBLWR:
		return "ENABLED_DBLWR"
	case StateEnabledRestrict:
		return "ENABLED_RESTRICT"
	case StateDisabled:
		return "DISABLED"
	default:
		return "UNKNOWN"
	}
}

// ErrTransitionRefused is returned when Disable/Enable is attempted from a
// state that does not permit it.
var ErrTransitionRefused = errors.New("logsys: logging state transition refused from current state")

// Switch is the sharded no-log-mtr counter plus the four-state machine
// governing whether new mtrs may run without writing redo:
//
//	ENABLED --disable--> ENABLED_RESTRICT --drain--> DISABLED
//	DISABLED --enable--> ENABLED_RESTRICT --drain--> ENABLED_DBLWR --> ENABLED
type Switch struct {
	state atomic.Int32
	// shards counts mtrs that observed DISABLED in MarkMtr: registered
	// no-log mtrs, plus tentative increments still being rolled back, so
	// Enable/Disable can wait for them before finalizing the new state.
	shards       []atomic.Int64
	drainTimeout time.Duration
}

// NewSwitch builds a Switch starting in StateEnabled with numShards
// independent counters (to avoid one hot cache line across callers).
func NewSwitch(numShards int, drainTimeout time.Duration) *Switch {
	if numShards <= 0 {
		numShards = 1
	}
	s := &Switch{
		shards:       make([]atomic.Int64, numShards),
		drainTimeout: drainTimeout,
	}
	s.state.Store(int32(StateEnabled))
	return s
}

// State returns the current state.
func (s *Switch) State() State {
	return State(s.state.Load())
}

// MarkMtr registers an mtr's logging-mode evaluation under shard. It
// reports true (forcing NO_REDO mode) only if the switch is DISABLED both
// before and after the increment; otherwise the tentative increment is
// rolled back and the caller logs normally. Callers that receive true must
// later call UnmarkMtr with the same shard.
func (s *Switch) MarkMtr(shard int) bool {
	shard = shard % len(s.shards)
	if s.State() != StateDisabled {
		return false
	}
	s.shards[shard].Inc()
	if s.State() != StateDisabled {
		s.shards[shard].Dec()
		return false
	}
	return true
}

// UnmarkMtr releases a prior MarkMtr registration.
func (s *Switch) UnmarkMtr(shard int) {
	s.shards[shard%len(s.shards)].Dec()
}

func (s *Switch) shardSum() int64 {
	var sum int64
	for i := range s.shards {
		sum += s.shards[i].Load()
	}
	return sum
}

// Disable transitions ENABLED -> ENABLED_RESTRICT -> DISABLED, draining
// in-flight mtr registrations first. killed, if non-nil, is polled each
// spin and causes an early, non-timeout abort (cooperative cancellation).
func (s *Switch) Disable(killed func() bool) error {
	if !s.state.CAS(int32(StateEnabled), int32(StateEnabledRestrict)) {
		return errors.Trace(ErrTransitionRefused)
	}
	if err := s.drain(killed); err != nil {
		return err
	}
	s.state.Store(int32(StateDisabled))
	return nil
}

// Enable transitions DISABLED -> ENABLED_RESTRICT -> ENABLED_DBLWR ->
// ENABLED, draining in-flight no-log mtrs first.
func (s *Switch) Enable(killed func() bool) error {
	if !s.state.CAS(int32(StateDisabled), int32(StateEnabledRestrict)) {
		return errors.Trace(ErrTransitionRefused)
	}
	if err := s.drain(killed); err != nil {
		return err
	}
	s.state.Store(int32(StateEnabledDBLWR))
	s.state.Store(int32(StateEnabled))
	return nil
}

func (s *Switch) drain(killed func() bool) error {
	deadline := time.Now().Add(s.drainTimeout)
	for s.shardSum() != 0 {
		if killed != nil && killed() {
			return errors.New("logsys: logging state drain interrupted by shutdown")
		}
		if time.Now().After(deadline) {
			return errors.Annotatef(errTimeout, "draining no-log mtrs past %s", s.drainTimeout)
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}

var errTimeout = errors.New("logsys: timed out waiting for logging state drain")
