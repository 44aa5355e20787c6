package buffer_pool

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/semaphore"

	"github.com/zhukovaskychina/xmysql-server/logger"
)

// PrefetchAdvisor sits alongside the core buffer pool manager: it watches
// the sequence of pages a caller fetches and predicts the next page id a
// scan is likely to touch next, so a caller can warm the pool ahead of
// time. Predictions are held in a ristretto cache so a burst of one-off,
// non-repeating access patterns can't evict a hot set of genuinely
// predictive transitions — the same admission-policy idea the reference
// codebase reaches for with its young/old LRU split, generalized to an
// actual TinyLFU-backed cache instead of a hand-rolled region split.
//
// This never changes what FetchPage/NewPage return; it is purely advisory.
type PrefetchAdvisor struct {
	transitions *ristretto.Cache[int32, int32]
	inflight    *semaphore.Weighted
}

// NewPrefetchAdvisor builds an advisor tracking up to maxEntries observed
// page-to-page transitions, prefetching at most maxConcurrent pages at a
// time.
func NewPrefetchAdvisor(maxEntries int64, maxConcurrent int64) (*PrefetchAdvisor, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[int32, int32]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("prefetch: build cache: %w", err)
	}
	return &PrefetchAdvisor{
		transitions: cache,
		inflight:    semaphore.NewWeighted(maxConcurrent),
	}, nil
}

// Observe records that a scan moved from prev to curr, so future visits to
// prev predict curr as the next page.
func (a *PrefetchAdvisor) Observe(prev, curr int32) {
	if prev == InvalidPageID {
		return
	}
	a.transitions.Set(prev, curr, 1)
}

// Predict returns the successor most recently recorded for curr by
// Observe, if the cache admitted and still holds it.
func (a *PrefetchAdvisor) Predict(curr int32) (int32, bool) {
	next, ok := a.transitions.Get(curr)
	if !ok {
		return InvalidPageID, false
	}
	return next, true
}

// Warm asynchronously fetches and immediately unpins the predicted
// successor of curr, so it lands in the pool before the caller asks for
// it. It never blocks the caller beyond acquiring a slot in the bounded
// worker pool, and silently drops the prefetch if the pool is saturated
// rather than making the caller wait.
func (a *PrefetchAdvisor) Warm(ctx context.Context, bpm *BufferPoolManager, curr int32) {
	if ctx.Err() != nil {
		return
	}
	next, ok := a.Predict(curr)
	if !ok {
		return
	}
	if !a.inflight.TryAcquire(1) {
		return
	}
	go func() {
		defer a.inflight.Release(1)
		if ctx.Err() != nil {
			return
		}
		page, err := bpm.FetchPage(next)
		if err != nil {
			logger.Debugf("prefetch: dropping warm for page %d: %v", next, err)
			return
		}
		bpm.UnpinPage(page.ID(), false)
	}()
}

// CacheReport returns a human-readable summary of the advisor's cache: the
// number of keys added (comma-grouped by go-humanize) and the hit ratio.
func (a *PrefetchAdvisor) CacheReport() string {
	metrics := a.transitions.Metrics
	if metrics == nil {
		return "prefetch advisor: metrics unavailable"
	}
	return fmt.Sprintf("prefetch advisor: %s tracked, hit ratio %.2f",
		humanize.Comma(int64(metrics.KeysAdded())), metrics.Ratio())
}

// Close releases the advisor's cache resources.
func (a *PrefetchAdvisor) Close() {
	a.transitions.Close()
}
