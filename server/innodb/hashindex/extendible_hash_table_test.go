package hashindex

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/buffer_pool"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/diskmanager"
)

func newTestTable(t *testing.T, poolSize int) *ExtendibleHashTable {
	t.Helper()
	dm := diskmanager.NewNullDiskManager()
	bpm := buffer_pool.NewBufferPoolManager(poolSize, dm, 0, 1)
	table, err := NewExtendibleHashTable(bpm, diskmanager.InvalidPageID)
	require.NoError(t, err)
	return table
}

func TestExtendibleHashTableRoundTrip(t *testing.T) {
	table := newTestTable(t, 32)

	ok, err := table.Insert(1, RID{PageID: 1, SlotID: 0})
	require.NoError(t, err)
	require.True(t, ok)

	values, err := table.GetValue(1)
	require.NoError(t, err)
	require.Equal(t, []RID{{PageID: 1, SlotID: 0}}, values)
}

func TestExtendibleHashTableRejectsExactDuplicate(t *testing.T) {
	table := newTestTable(t, 32)
	rid := RID{PageID: 1, SlotID: 0}

	ok, err := table.Insert(1, rid)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = table.Insert(1, rid)
	require.ErrorIs(t, err, ErrDuplicateEntry)
	require.False(t, ok)
}

// Overflowing the sole initial bucket (global depth 0 means every key maps
// to slot 0) forces at least one split, exercising the directory-doubling
// insert path without needing to fabricate hash collisions.
func TestExtendibleHashTableSplitsOnOverflow(t *testing.T) {
	table := newTestTable(t, 64)

	capacity := computeBucketCapacity(buffer_pool.PageSize)
	n := capacity + 8

	for i := 0; i < n; i++ {
		ok, err := table.Insert(uint32(i), RID{PageID: int32(i)})
		require.NoErrorf(t, err, "insert %d", i)
		require.Truef(t, ok, "insert %d", i)
	}

	for i := 0; i < n; i++ {
		values, err := table.GetValue(uint32(i))
		require.NoError(t, err)
		require.Containsf(t, values, RID{PageID: int32(i)}, "key %d", i)
	}
}

// Insert then remove everything: every key must come back empty, though
// merges don't cascade past their immediate trigger so the directory may
// not shrink all the way back to its starting depth.
func TestExtendibleHashTableMergeAfterFullDrain(t *testing.T) {
	table := newTestTable(t, 64)

	capacity := computeBucketCapacity(buffer_pool.PageSize)
	n := capacity + 8
	rids := make([]RID, n)
	for i := 0; i < n; i++ {
		rids[i] = RID{PageID: int32(i)}
		ok, err := table.Insert(uint32(i), rids[i])
		require.NoError(t, err)
		require.True(t, ok)
	}

	for i := 0; i < n; i++ {
		removed, err := table.Remove(uint32(i), rids[i])
		require.NoError(t, err)
		require.True(t, removed)
	}

	for i := 0; i < n; i++ {
		values, err := table.GetValue(uint32(i))
		require.NoError(t, err)
		require.Empty(t, values)
	}
}

func TestExtendibleHashTableRemoveMissingIsFalse(t *testing.T) {
	table := newTestTable(t, 32)
	removed, err := table.Remove(42, RID{PageID: 1})
	require.NoError(t, err)
	require.False(t, removed)
}
