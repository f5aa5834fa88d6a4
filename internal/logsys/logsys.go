// Package logsys implements the shared redo-log state: the lock-free link
// buffers, the redo ring buffer, the
// sn-gate, the reservation/write path, and the writer/closer background
// threads.
package logsys

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/zhukovaskychina/xmysql-redo/internal/common"
	"github.com/zhukovaskychina/xmysql-redo/internal/config"
	"github.com/zhukovaskychina/xmysql-redo/internal/logging"
)

// FileLayer is the minimal surface this subsystem requires of the
// on-disk log file; on-disk layout, rotation, and raw-device handling are
// out of scope here.
type FileLayer interface {
	// Write persists bytes at the given lsn-space offset. The writer
	// thread passes the contiguous range [write_lsn, target) as is:
	// offset and len(bytes) are not rounded to OS_FILE_LOG_BLOCK_SIZE,
	// and a write may begin or end inside a block.
	Write(offset common.LSNT, bytes []byte) error
	// Fsync is a durability barrier.
	Fsync() error
	// Capacity returns the total redo lsn capacity available for
	// checkpoint-space accounting.
	Capacity() uint64
}

// Log is the process-wide redo-log state: the sn-gate, ring buffer, link
// buffers, and background writer/closer threads all live here.
type Log struct {
	cfg *config.Cfg
	log *logging.Logger

	gate          *SNGate
	recentWritten *LinkBuffer
	recentClosed  *LinkBuffer
	ring          *RingBuffer
	file          FileLayer

	writeLSN                atomic.Uint64
	bufDirtyPagesAddedUpToLSN atomic.Uint64
	bufLimitSN              atomic.Uint64
	bufSizeSN               atomic.Uint64
	lastCheckpointLSN       atomic.Uint64
	checkpointNo            atomic.Uint32

	writeMu   sync.Mutex // serializes writer-thread progress against resize
	writeCond *sync.Cond

	writerEvent chan struct{}
	closerEvent chan struct{}

	sw *Switch // logging-enabled state machine

	stop chan struct{}
	wg   sync.WaitGroup
}

// Options configures New.
type Options struct {
	Cfg       *config.Cfg
	Logger    *logging.Logger
	File      FileLayer
	StartLSN  common.LSNT
}

// New constructs a Log ready to have its Start method called. start is the
// lsn at which the redo stream begins (recovery's resume point, or the
// block header size for a freshly initialized log).
func New(opts Options) *Log {
	cfg := opts.Cfg
	if cfg == nil {
		cfg = config.Default()
	}
	lg := opts.Logger
	if lg == nil {
		lg = logging.Log
	}

	start := opts.StartLSN
	if start == 0 {
		start = common.LOG_BLOCK_HDR_SIZE
	}
	startSN := common.LSNToSN(start)

	l := &Log{
		cfg:           cfg,
		log:           lg,
		recentWritten: NewLinkBuffer(cfg.RecentWrittenSlots, start, cfg.SpinWaitDelayDuration),
		recentClosed:  NewLinkBuffer(cfg.RecentClosedSlots, start, cfg.SpinWaitDelayDuration),
		ring:          NewRingBuffer(uint64(cfg.BufferSize)),
		file:          opts.File,
		writerEvent:   make(chan struct{}, 1),
		closerEvent:   make(chan struct{}, 1),
		stop:          make(chan struct{}),
	}
	l.writeCond = sync.NewCond(&l.writeMu)

	l.writeLSN.Store(start)
	l.bufDirtyPagesAddedUpToLSN.Store(start)
	l.lastCheckpointLSN.Store(start)
	l.bufSizeSN.Store(uint64(cfg.BufferSize))
	l.bufLimitSN.Store(startSN + uint64(cfg.BufferSize) - 2*common.OS_FILE_LOG_BLOCK_SIZE)

	l.gate = NewSNGate(startSN, l.drainedUpTo, cfg.SpinWaitDelayDuration)
	l.sw = NewSwitch(cfg.NoLogShards, cfg.EnableDrainTimeoutDuration)

	return l
}

func (l *Log) drainedUpTo(lsn common.LSNT) bool {
	return l.bufDirtyPagesAddedUpToLSN.Load() >= lsn
}

// WriteLSN returns the contiguous lsn up to which bytes have been written
// to the file layer.
func (l *Log) WriteLSN() common.LSNT { return l.writeLSN.Load() }

// BufDirtyPagesAddedUpToLSN returns the contiguous tail of recent_closed.
func (l *Log) BufDirtyPagesAddedUpToLSN() common.LSNT {
	return l.bufDirtyPagesAddedUpToLSN.Load()
}

// LastCheckpointLSN returns the most recently published checkpoint lsn.
func (l *Log) LastCheckpointLSN() common.LSNT { return l.lastCheckpointLSN.Load() }

// SetLastCheckpointLSN is called by the checkpoint subsystem after it
// publishes a new checkpoint.
func (l *Log) SetLastCheckpointLSN(lsn common.LSNT) { l.lastCheckpointLSN.Store(lsn) }

// BufSize returns the current ring buffer size in bytes.
func (l *Log) BufSize() uint64 { return l.ring.Size() }

// Switch returns the logging-enabled state machine.
func (l *Log) Switch() *Switch { return l.sw }

// Gate returns the sn-gate, for callers that need a coherent last-block
// snapshot. No package in this module calls it.
func (l *Log) Gate() *SNGate { return l.gate }

// SetCheckpointNo records the checkpoint number stamped into subsequently
// flushed block headers.
func (l *Log) SetCheckpointNo(no uint32) { l.checkpointNo.Store(no) }

// Start launches the writer and closer background threads.
func (l *Log) Start() {
	l.wg.Add(2)
	go l.writerLoop()
	go l.closerLoop()
}

// Stop signals the background threads to exit and waits for them.
func (l *Log) Stop() {
	close(l.stop)
	l.wg.Wait()
}

func (l *Log) kickWriter() {
	select {
	case l.writerEvent <- struct{}{}:
	default:
	}
}

func (l *Log) kickCloser() {
	select {
	case l.closerEvent <- struct{}{}:
	default:
	}
}

func (l *Log) sleepSpin() {
	time.Sleep(l.cfg.SpinWaitDelayDuration)
}
