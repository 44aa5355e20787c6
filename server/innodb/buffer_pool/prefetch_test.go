package buffer_pool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/diskmanager"
)

func TestPrefetchAdvisorPredictsObservedTransition(t *testing.T) {
	advisor, err := NewPrefetchAdvisor(1024, 4)
	require.NoError(t, err)
	defer advisor.Close()

	advisor.Observe(1, 2)
	advisor.transitions.Wait()

	next, ok := advisor.Predict(1)
	require.True(t, ok)
	require.Equal(t, int32(2), next)
}

func TestPrefetchAdvisorPredictMissForUnknownPage(t *testing.T) {
	advisor, err := NewPrefetchAdvisor(1024, 4)
	require.NoError(t, err)
	defer advisor.Close()

	_, ok := advisor.Predict(999)
	require.False(t, ok)
}

func TestPrefetchAdvisorWarmFetchesPredictedPage(t *testing.T) {
	dm := diskmanager.NewNullDiskManager()
	bpm := NewBufferPoolManager(4, dm, 0, 1)

	p0, err := bpm.NewPage()
	require.NoError(t, err)
	require.True(t, bpm.UnpinPage(p0.ID(), false))
	p1, err := bpm.NewPage()
	require.NoError(t, err)
	require.True(t, bpm.UnpinPage(p1.ID(), false))

	advisor, err := NewPrefetchAdvisor(1024, 4)
	require.NoError(t, err)
	defer advisor.Close()

	advisor.Observe(p0.ID(), p1.ID())
	advisor.transitions.Wait()

	advisor.Warm(context.Background(), bpm, p0.ID())

	require.Eventually(t, func() bool {
		snap := bpm.StatsSnapshot()
		return snap.Hits+snap.Misses > 0
	}, time.Second, time.Millisecond)
}

func TestPrefetchAdvisorObserveIgnoresInvalidPredecessor(t *testing.T) {
	advisor, err := NewPrefetchAdvisor(1024, 4)
	require.NoError(t, err)
	defer advisor.Close()

	advisor.Observe(InvalidPageID, 5)
	advisor.transitions.Wait()

	_, ok := advisor.Predict(InvalidPageID)
	require.False(t, ok)
}
