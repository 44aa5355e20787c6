package buffer_pool

import (
	"sync"

	"github.com/zhukovaskychina/xmysql-server/server/innodb/diskmanager"
)

// PageSize is the fixed page size shared with the disk manager.
const PageSize = diskmanager.PageSize

// InvalidPageID marks the absence of a page, matching the disk manager.
const InvalidPageID = diskmanager.InvalidPageID

// Page is a frame's payload plus the metadata the buffer pool manager
// tracks about it: its id, pin count, dirty flag, and an independent
// reader/writer latch a caller uses to coordinate concurrent access to the
// bytes once fetched. The BPM's own mutex only protects page-table
// bookkeeping, never the page contents themselves.
type Page struct {
	id       int32
	pinCount int32
	isDirty  bool
	latch    sync.RWMutex
	data     [PageSize]byte
}

// ID returns the page's id, or InvalidPageID for a free frame.
func (p *Page) ID() int32 {
	return p.id
}

// Data returns the page's raw byte payload. Callers must hold RLatch or
// WLatch for the duration of any read/write into the returned slice.
func (p *Page) Data() *[PageSize]byte {
	return &p.data
}

// PinCount reports the current pin count.
func (p *Page) PinCount() int32 {
	return p.pinCount
}

// IsDirty reports the page's dirty flag: set once a caller unpins it as
// dirty, and not cleared by FlushPage.
func (p *Page) IsDirty() bool {
	return p.isDirty
}

// RLatch/RUnlatch/WLatch/WUnlatch guard the page's byte contents against
// concurrent readers and writers. They are independent of the buffer pool
// manager's own latch, which only protects the page table.
func (p *Page) RLatch()   { p.latch.RLock() }
func (p *Page) RUnlatch() { p.latch.RUnlock() }
func (p *Page) WLatch()   { p.latch.Lock() }
func (p *Page) WUnlatch() { p.latch.Unlock() }

// reset clears a frame's page for reuse, matching NewPage/FetchPage step
// "zero the frame" in spec.
func (p *Page) reset() {
	p.id = InvalidPageID
	p.pinCount = 0
	p.isDirty = false
	p.data = [PageSize]byte{}
}
