package buffer_pool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/diskmanager"
)

func TestParallelBufferPoolManagerRoutesByPageIDModN(t *testing.T) {
	dm := diskmanager.NewNullDiskManager()
	p := NewParallelBufferPoolManager(3, 4, dm)

	page, err := p.NewPage()
	require.NoError(t, err)
	id := page.ID()

	fetched, err := p.FetchPage(id)
	require.NoError(t, err)
	require.Equal(t, id, fetched.ID())
	require.True(t, p.UnpinPage(id, false))
	require.True(t, p.UnpinPage(id, false))
}

func TestParallelBufferPoolManagerRoundRobinsNewPage(t *testing.T) {
	dm := diskmanager.NewNullDiskManager()
	p := NewParallelBufferPoolManager(2, 4, dm)

	seenInstance0 := false
	seenInstance1 := false
	for i := 0; i < 4; i++ {
		page, err := p.NewPage()
		require.NoError(t, err)
		if page.ID()%2 == 0 {
			seenInstance0 = true
		} else {
			seenInstance1 = true
		}
	}
	require.True(t, seenInstance0)
	require.True(t, seenInstance1)
}

func TestParallelBufferPoolManagerFlushAll(t *testing.T) {
	dm := diskmanager.NewNullDiskManager()
	p := NewParallelBufferPoolManager(2, 2, dm)

	page, err := p.NewPage()
	require.NoError(t, err)
	require.True(t, p.UnpinPage(page.ID(), true))

	require.NoError(t, p.FlushAll(context.Background()))
}
