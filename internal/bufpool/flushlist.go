package bufpool

import (
	"container/list"
	"encoding/binary"
	"sync"

	"github.com/OneOfOne/xxhash"

	"github.com/zhukovaskychina/xmysql-redo/internal/common"
)

// flushListElem is the list.Element a dirty page is linked under, kept on
// the Page itself so Remove is O(1).
type flushListElem struct {
	e *list.Element
}

// FlushList is a single buffer-pool instance's queue of dirty pages.
// Insertion order is relaxed: pages are appended to the back regardless
// of their oldest_modification value, so the head is only approximately
// the minimum — the recent_closed window (M_c) bounds how far off that
// approximation can be.
type FlushList struct {
	mu   sync.Mutex
	list *list.List
}

// NewFlushList returns an empty flush list.
func NewFlushList() *FlushList {
	return &FlushList{list: list.New()}
}

// NoteModification marks page dirty with [start, end) if it wasn't already
// dirty, and links it into the list; always advances newest_modification.
// Called under the page's own latch by mtr commit.
func (fl *FlushList) NoteModification(page *Page, start, end common.LSNT) {
	if page.oldestModification.CAS(0, start) {
		fl.mu.Lock()
		e := fl.list.PushBack(page)
		page.listElem = &flushListElem{e: e}
		fl.mu.Unlock()
	}
	page.newestModification.Store(end)
}

// Remove unlinks page after it has actually been flushed to the file layer.
func (fl *FlushList) Remove(page *Page) {
	fl.mu.Lock()
	if page.listElem != nil {
		fl.list.Remove(page.listElem.e)
		page.listElem = nil
	}
	fl.mu.Unlock()
	page.ClearModification()
}

// HeadOldestModification returns the oldest_modification of the page at
// the head of the list (the approximate, relaxed-order minimum) and
// whether the list is non-empty.
func (fl *FlushList) HeadOldestModification() (common.LSNT, bool) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.list.Len() == 0 {
		return 0, false
	}
	return fl.list.Front().Value.(*Page).OldestModification(), true
}

// Len reports the number of dirty pages currently linked.
func (fl *FlushList) Len() int {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.list.Len()
}

// FlushListSet shards dirty pages across numShards independent FlushLists
// keyed by an xxhash of the page id, the way a multi-instance buffer pool
// spreads flush-list contention across instances.
type FlushListSet struct {
	shards []*FlushList
}

// NewFlushListSet builds a set with numShards lists.
func NewFlushListSet(numShards int) *FlushListSet {
	if numShards <= 0 {
		numShards = 1
	}
	s := &FlushListSet{shards: make([]*FlushList, numShards)}
	for i := range s.shards {
		s.shards[i] = NewFlushList()
	}
	return s
}

func (s *FlushListSet) shardFor(page *Page) *FlushList {
	var key [8]byte
	binary.LittleEndian.PutUint64(key[:], page.ID())
	h := xxhash.Checksum64(key[:])
	return s.shards[h%uint64(len(s.shards))]
}

// NoteModification dispatches to the shard owning page.
func (s *FlushListSet) NoteModification(page *Page, start, end common.LSNT) {
	s.shardFor(page).NoteModification(page, start, end)
}

// Remove dispatches to the shard owning page.
func (s *FlushListSet) Remove(page *Page) {
	s.shardFor(page).Remove(page)
}

// MinHeadOldestModification returns the smallest head oldest_modification
// across every shard, and whether any shard has a dirty page at all. This
// is what the checkpoint subsystem reads before subtracting M_c slack to
// get available_for_checkpoint_lsn.
func (s *FlushListSet) MinHeadOldestModification() (common.LSNT, bool) {
	var min common.LSNT
	found := false
	for _, fl := range s.shards {
		lsn, ok := fl.HeadOldestModification()
		if !ok {
			continue
		}
		if !found || lsn < min {
			min = lsn
			found = true
		}
	}
	return min, found
}
