// Package checkpoint computes the earliest lsn recovery must replay from
// and runs the background checkpointer thread that keeps it current. The
// checkpoint writer's on-disk format is out of scope here.
package checkpoint

import (
	"sync"
	"time"

	"github.com/zhukovaskychina/xmysql-redo/internal/bufpool"
	"github.com/zhukovaskychina/xmysql-redo/internal/common"
	"github.com/zhukovaskychina/xmysql-redo/internal/logging"
)

// Source is the subset of internal/logsys.Log the checkpoint computation
// needs, kept as an interface so this package never imports logsys
// directly (avoiding a dependency cycle with internal/mtr).
type Source interface {
	BufDirtyPagesAddedUpToLSN() common.LSNT
	SetLastCheckpointLSN(common.LSNT)
}

// AvailableForCheckpointLSN computes the highest lsn that recovery could
// safely resume from right now: the minimum of buf_dirty_pages_added_up_to_lsn
// and (the oldest dirty page's oldest_modification across every flush
// list, minus the M_c slack needed because flush-list insertion order is
// only approximately sorted).
func AvailableForCheckpointLSN(dirtyPagesUpTo common.LSNT, flush *bufpool.FlushListSet, mc uint64) common.LSNT {
	head, ok := flush.MinHeadOldestModification()
	if !ok {
		return dirtyPagesUpTo
	}

	var candidate common.LSNT
	if head > mc {
		candidate = head - mc
	}

	if candidate < dirtyPagesUpTo {
		return candidate
	}
	return dirtyPagesUpTo
}

// Checkpointer periodically recomputes AvailableForCheckpointLSN and
// publishes it, standing in for the external checkpoint writer thread
// whose on-disk work is out of scope here.
type Checkpointer struct {
	log      Source
	flush    *bufpool.FlushListSet
	mc       uint64
	interval time.Duration
	logger   *logging.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewCheckpointer builds a Checkpointer. mc is the recent_closed capacity
// (M_c), used as the checkpoint-lsn safety margin.
func NewCheckpointer(log Source, flush *bufpool.FlushListSet, mc uint64, interval time.Duration, logger *logging.Logger) *Checkpointer {
	if logger == nil {
		logger = logging.Log
	}
	return &Checkpointer{
		log:      log,
		flush:    flush,
		mc:       mc,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start launches the checkpointer's background loop.
func (c *Checkpointer) Start() {
	c.wg.Add(1)
	go c.loop()
}

// Stop signals the loop to exit and waits for it.
func (c *Checkpointer) Stop() {
	close(c.stop)
	c.wg.Wait()
}

func (c *Checkpointer) loop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	log := c.logger.Named("checkpointer")
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			lsn := AvailableForCheckpointLSN(c.log.BufDirtyPagesAddedUpToLSN(), c.flush, c.mc)
			c.log.SetLastCheckpointLSN(lsn)
			log.WithField("checkpoint_lsn", lsn).Debug("checkpoint advanced")
		}
	}
}
