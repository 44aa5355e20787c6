package buffer_pool

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/zhukovaskychina/xmysql-server/logger"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/diskmanager"
)

// BufferPoolManager is a fixed-size in-memory page cache backed by a disk
// manager, with LRU replacement and pin/unpin reference counting. It owns a
// frame array, a page-id-to-frame map, a free list, and an LRU replacer;
// one mutex guards all mutable state so every public operation is
// linearizable with respect to the others.
type BufferPoolManager struct {
	mu sync.Mutex

	poolSize      int
	instanceIndex int32
	numInstances  int32
	nextPageID    int32

	frames    []Page
	pageTable map[int32]int
	freeList  []int
	replacer  *LRUReplacer

	disk  diskmanager.DiskManager
	stats Stats
}

// NewBufferPoolManager creates a buffer pool of poolSize frames on top of
// disk. instanceIndex/numInstances partition the page id space the way a
// ParallelBufferPoolManager shard would: ids allocated by this instance
// satisfy id mod numInstances == instanceIndex. A single, unsharded pool
// passes instanceIndex=0, numInstances=1.
func NewBufferPoolManager(poolSize int, disk diskmanager.DiskManager, instanceIndex, numInstances int32) *BufferPoolManager {
	if numInstances <= 0 {
		numInstances = 1
	}
	bpm := &BufferPoolManager{
		poolSize:      poolSize,
		instanceIndex: instanceIndex,
		numInstances:  numInstances,
		nextPageID:    instanceIndex,
		frames:        make([]Page, poolSize),
		pageTable:     make(map[int32]int, poolSize),
		freeList:      make([]int, poolSize),
		replacer:      NewLRUReplacer(poolSize),
		disk:          disk,
	}
	for i := 0; i < poolSize; i++ {
		bpm.frames[i].id = InvalidPageID
		bpm.freeList[i] = i
	}
	return bpm
}

// AllocatePage returns the next page id for this instance's residue class
// and advances the counter by numInstances, so ids stay dense within one
// instance's class.
func (bpm *BufferPoolManager) AllocatePage() int32 {
	id := bpm.nextPageID
	bpm.nextPageID += bpm.numInstances
	return id
}

// pickVictim returns a frame id to reuse: the free list first (its back,
// per spec), then the replacer. Caller must hold bpm.mu.
func (bpm *BufferPoolManager) pickVictim() (int, bool) {
	if n := len(bpm.freeList); n > 0 {
		frameID := bpm.freeList[n-1]
		bpm.freeList = bpm.freeList[:n-1]
		return frameID, true
	}
	frameID, ok := bpm.replacer.Victim()
	if ok {
		bpm.stats.recordEviction()
	}
	return frameID, ok
}

// evict prepares frameID for reuse: flushing it if dirty and removing its
// page-table entry. Caller must hold bpm.mu.
func (bpm *BufferPoolManager) evict(frameID int) error {
	page := &bpm.frames[frameID]
	if page.id == InvalidPageID {
		return nil
	}
	if page.isDirty {
		if err := bpm.disk.WritePage(page.id, page.data[:]); err != nil {
			return errors.Wrapf(err, "buffer_pool: flush victim page %d", page.id)
		}
	}
	delete(bpm.pageTable, page.id)
	return nil
}

// NewPage allocates a fresh page, pins it once, and returns it. Returns
// ErrAllPinned if every frame is pinned.
func (bpm *BufferPoolManager) NewPage() (*Page, error) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameID, ok := bpm.pickVictim()
	if !ok {
		return nil, ErrAllPinned
	}
	if err := bpm.evict(frameID); err != nil {
		return nil, err
	}

	page := &bpm.frames[frameID]
	page.reset()
	page.id = bpm.AllocatePage()
	page.pinCount = 1
	page.isDirty = false

	bpm.replacer.Pin(frameID)
	bpm.pageTable[page.id] = frameID

	return page, nil
}

// FetchPage returns the page for pageID, pinning it. If not resident, it is
// read from disk into a victim frame.
func (bpm *BufferPoolManager) FetchPage(pageID int32) (*Page, error) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	if frameID, ok := bpm.pageTable[pageID]; ok {
		page := &bpm.frames[frameID]
		page.pinCount++
		bpm.replacer.Pin(frameID)
		bpm.stats.recordHit()
		return page, nil
	}
	bpm.stats.recordMiss()

	frameID, ok := bpm.pickVictim()
	if !ok {
		return nil, ErrAllPinned
	}
	if err := bpm.evict(frameID); err != nil {
		return nil, err
	}

	page := &bpm.frames[frameID]
	page.reset()
	if err := bpm.disk.ReadPage(pageID, page.data[:]); err != nil {
		return nil, errors.Wrapf(err, "buffer_pool: read page %d", pageID)
	}
	page.id = pageID
	page.pinCount = 1
	page.isDirty = false

	bpm.replacer.Pin(frameID)
	bpm.pageTable[pageID] = frameID

	return page, nil
}

// UnpinPage decrements pageID's pin count. isDirty is OR'd into the page's
// dirty flag: once dirty, it stays dirty until the page leaves the pool
// (FlushPage does not clear it). Returns false if the page is not resident
// or already unpinned.
func (bpm *BufferPoolManager) UnpinPage(pageID int32, isDirty bool) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return false
	}
	page := &bpm.frames[frameID]
	if page.pinCount == 0 {
		return false
	}

	page.isDirty = page.isDirty || isDirty
	page.pinCount--
	if page.pinCount == 0 {
		bpm.replacer.Unpin(frameID)
	}
	return true
}

// FlushPage writes pageID's frame to disk unconditionally, regardless of
// its dirty flag. It does not clear the dirty flag afterward — see
// DESIGN.md's open-questions entry for FlushPage.
func (bpm *BufferPoolManager) FlushPage(pageID int32) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return false
	}
	page := &bpm.frames[frameID]
	if err := bpm.disk.WritePage(page.id, page.data[:]); err != nil {
		logger.Errorf("buffer_pool: flush page %d failed: %v", pageID, err)
		return false
	}
	bpm.stats.recordFlush()
	return true
}

// FlushAllPages flushes every resident page.
func (bpm *BufferPoolManager) FlushAllPages() {
	bpm.mu.Lock()
	ids := make([]int32, 0, len(bpm.pageTable))
	for id := range bpm.pageTable {
		ids = append(ids, id)
	}
	bpm.mu.Unlock()

	for _, id := range ids {
		bpm.FlushPage(id)
	}
}

// DeletePage removes pageID from the pool if it has no outstanding pins.
// If pageID is not resident, this is a (trivial) success. It calls the
// disk manager's DeallocatePage before releasing the frame — see
// DESIGN.md's open-questions entry about the ordering with the pin check.
func (bpm *BufferPoolManager) DeletePage(pageID int32) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return true
	}
	page := &bpm.frames[frameID]
	if page.pinCount > 0 {
		return false
	}

	if err := bpm.disk.DeallocatePage(pageID); err != nil {
		logger.Errorf("buffer_pool: deallocate page %d failed: %v", pageID, err)
	}

	delete(bpm.pageTable, pageID)
	bpm.replacer.Pin(frameID) // no-op if not tracked, but keeps invariants tidy
	page.reset()
	bpm.freeList = append(bpm.freeList, frameID)
	return true
}

// StatsSnapshot returns a point-in-time view of the pool's counters.
func (bpm *BufferPoolManager) StatsSnapshot() Snapshot {
	return bpm.stats.Snapshot()
}

// PoolSize returns the number of frames this instance manages.
func (bpm *BufferPoolManager) PoolSize() int {
	return bpm.poolSize
}
