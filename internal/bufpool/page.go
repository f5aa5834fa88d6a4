package bufpool

import (
	"go.uber.org/atomic"

	"github.com/zhukovaskychina/xmysql-redo/internal/common"
)

// Page is a buffer-pool page's control block: the subset of InnoDB's
// buf_page_t this subsystem needs — identity, latch, and the
// oldest/newest modification lsns that drive flush-list checkpoint
// accounting.
type Page struct {
	SpaceID uint32
	PageNo  uint32

	Latch *Latch

	oldestModification atomic.Uint64
	newestModification atomic.Uint64

	// listElem is non-nil while the page is linked into a FlushList.
	listElem *flushListElem
}

// NewPage returns a clean (not dirty) page control block.
func NewPage(spaceID, pageNo uint32) *Page {
	return &Page{
		SpaceID: spaceID,
		PageNo:  pageNo,
		Latch:   NewLatch(),
	}
}

// ID uniquely identifies the page within its tablespace set.
func (p *Page) ID() uint64 {
	return uint64(p.SpaceID)<<32 | uint64(p.PageNo)
}

// OldestModification returns the lsn of the first redo record that
// dirtied this page since its last flush, or 0 if the page is clean.
func (p *Page) OldestModification() common.LSNT {
	return p.oldestModification.Load()
}

// NewestModification returns the lsn of the most recent redo record that
// touched this page.
func (p *Page) NewestModification() common.LSNT {
	return p.newestModification.Load()
}

// IsDirty reports whether the page has an outstanding modification.
func (p *Page) IsDirty() bool {
	return p.oldestModification.Load() != 0
}

// ClearModification resets both modification lsns, called once the page
// has actually been flushed to the file layer.
func (p *Page) ClearModification() {
	p.oldestModification.Store(0)
	p.newestModification.Store(0)
}
