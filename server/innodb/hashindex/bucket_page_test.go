package hashindex

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/buffer_pool"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/diskmanager"
)

func newTestBucketPage(t *testing.T) (*buffer_pool.BufferPoolManager, *BucketPage, int32) {
	t.Helper()
	dm := diskmanager.NewNullDiskManager()
	bpm := buffer_pool.NewBufferPoolManager(4, dm, 0, 1)
	page, err := bpm.NewPage()
	require.NoError(t, err)
	bucket := NewBucketPage(page)
	bucket.Clear()
	return bpm, bucket, page.ID()
}

func TestBucketPageInsertAndGetValue(t *testing.T) {
	_, bucket, _ := newTestBucketPage(t)

	require.True(t, bucket.Insert(1, RID{PageID: 1, SlotID: 0}))
	require.True(t, bucket.Insert(1, RID{PageID: 2, SlotID: 0}))

	values := bucket.GetValue(1, nil)
	require.ElementsMatch(t, []RID{{PageID: 1, SlotID: 0}, {PageID: 2, SlotID: 0}}, values)
}

func TestBucketPageRejectsExactDuplicate(t *testing.T) {
	_, bucket, _ := newTestBucketPage(t)

	require.True(t, bucket.Insert(1, RID{PageID: 1, SlotID: 0}))
	require.False(t, bucket.Insert(1, RID{PageID: 1, SlotID: 0}))
}

func TestBucketPageRemoveClearsReadableNotOccupied(t *testing.T) {
	_, bucket, _ := newTestBucketPage(t)
	rid := RID{PageID: 1, SlotID: 0}

	require.True(t, bucket.Insert(1, rid))
	require.True(t, bucket.Remove(1, rid))
	require.True(t, bucket.isOccupied(0))
	require.True(t, bucket.IsEmpty())
	require.Empty(t, bucket.GetValue(1, nil))
}

func TestBucketPageIsFullAtCapacity(t *testing.T) {
	_, bucket, _ := newTestBucketPage(t)
	for i := 0; i < bucket.Capacity(); i++ {
		require.True(t, bucket.Insert(uint32(i), RID{PageID: int32(i)}))
	}
	require.True(t, bucket.IsFull())
	require.False(t, bucket.Insert(uint32(bucket.Capacity()), RID{PageID: 999}))
}
