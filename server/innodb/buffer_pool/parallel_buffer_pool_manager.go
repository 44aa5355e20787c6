package buffer_pool

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/zhukovaskychina/xmysql-server/server/innodb/diskmanager"
)

// ParallelBufferPoolManager shards page ids across N BufferPoolManager
// instances by page_id mod N, and round-robins NewPage across instances
// so replacement pressure spreads across the shards. FlushAll fans out
// across shards with
// x/sync/errgroup, bounded by an x/sync/semaphore so a large shard count
// doesn't saturate the disk manager's I/O all at once — a generalization of
// a single flush-ticker background thread to the N-instance case.
type ParallelBufferPoolManager struct {
	mu         sync.Mutex
	startIndex int32
	instances  []*BufferPoolManager

	flushConcurrency int64
}

// NewParallelBufferPoolManager builds numInstances shards of poolSize
// frames each, all backed by the same underlying disk manager (a real disk
// manager is expected to route ReadPage/WritePage by page id itself, or
// callers may pass per-shard managers if the storage is itself sharded).
func NewParallelBufferPoolManager(numInstances, poolSize int, disk diskmanager.DiskManager) *ParallelBufferPoolManager {
	instances := make([]*BufferPoolManager, numInstances)
	for i := 0; i < numInstances; i++ {
		instances[i] = NewBufferPoolManager(poolSize, disk, int32(i), int32(numInstances))
	}
	return &ParallelBufferPoolManager{
		instances:        instances,
		flushConcurrency: 4,
	}
}

func (p *ParallelBufferPoolManager) instanceFor(pageID int32) *BufferPoolManager {
	n := int32(len(p.instances))
	idx := pageID % n
	if idx < 0 {
		idx += n
	}
	return p.instances[idx]
}

// FetchPage routes to the shard owning pageID.
func (p *ParallelBufferPoolManager) FetchPage(pageID int32) (*Page, error) {
	return p.instanceFor(pageID).FetchPage(pageID)
}

// UnpinPage routes to the shard owning pageID.
func (p *ParallelBufferPoolManager) UnpinPage(pageID int32, isDirty bool) bool {
	return p.instanceFor(pageID).UnpinPage(pageID, isDirty)
}

// FlushPage routes to the shard owning pageID.
func (p *ParallelBufferPoolManager) FlushPage(pageID int32) bool {
	return p.instanceFor(pageID).FlushPage(pageID)
}

// DeletePage routes to the shard owning pageID.
func (p *ParallelBufferPoolManager) DeletePage(pageID int32) bool {
	return p.instanceFor(pageID).DeletePage(pageID)
}

// NewPage tries each instance in round-robin order starting at startIndex,
// returning the first successfully allocated page. It only reports failure
// once every instance has rejected the request.
func (p *ParallelBufferPoolManager) NewPage() (*Page, error) {
	p.mu.Lock()
	start := p.startIndex
	p.startIndex = (p.startIndex + 1) % int32(len(p.instances))
	p.mu.Unlock()

	n := int32(len(p.instances))
	var lastErr error
	for i := int32(0); i < n; i++ {
		idx := (start + i) % n
		page, err := p.instances[idx].NewPage()
		if err == nil {
			p.mu.Lock()
			p.startIndex = (idx + 1) % n
			p.mu.Unlock()
			return page, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// FlushAll flushes every instance's resident pages, fanning the work out
// across shards with bounded concurrency.
func (p *ParallelBufferPoolManager) FlushAll(ctx context.Context) error {
	sem := semaphore.NewWeighted(p.flushConcurrency)
	g, ctx := errgroup.WithContext(ctx)

	for _, instance := range p.instances {
		instance := instance
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			instance.FlushAllPages()
			return nil
		})
	}
	return g.Wait()
}

// Instances exposes the underlying shards, e.g. for stats aggregation.
func (p *ParallelBufferPoolManager) Instances() []*BufferPoolManager {
	return p.instances
}
