package basic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhukovaskychina/xmysql-server/server/innodb/buffer_pool"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/diskmanager"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/hashindex"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/manager"
)

func newTestRowStore(t *testing.T) *PessimisticRowStore {
	t.Helper()
	disk := diskmanager.NewNullDiskManager()
	bpm := buffer_pool.NewBufferPoolManager(64, disk, 0, 1)
	index, err := hashindex.NewExtendibleHashTable(bpm, diskmanager.InvalidPageID)
	require.NoError(t, err)
	return NewPessimisticRowStore(index, manager.NewLockManager())
}

func TestRowStoreInsertThenGetUnderSeparateReaders(t *testing.T) {
	store := newTestRowStore(t)
	tm := manager.NewTransactionManager()
	writer := tm.Begin(manager.ReadCommitted)

	require.NoError(t, store.Insert(writer, 7, hashindex.RID{PageID: 1, SlotID: 0}))
	store.locks.Unlock(writer, manager.RowID(7))

	reader := tm.Begin(manager.ReadCommitted)
	values, err := store.Get(reader, 7)
	require.NoError(t, err)
	require.Contains(t, values, hashindex.RID{PageID: 1, SlotID: 0})
}

func TestRowStoreDeleteRemovesEntry(t *testing.T) {
	store := newTestRowStore(t)
	tm := manager.NewTransactionManager()
	txn := tm.Begin(manager.ReadCommitted)
	rid := hashindex.RID{PageID: 2, SlotID: 1}

	require.NoError(t, store.Insert(txn, 9, rid))
	require.NoError(t, store.Delete(txn, 9, rid))

	values, err := store.Get(txn, 9)
	require.NoError(t, err)
	require.Empty(t, values)
}

func TestRowStoreOlderWriterWoundsYoungerExclusiveHolder(t *testing.T) {
	store := newTestRowStore(t)
	tm := manager.NewTransactionManager()
	older := tm.Begin(manager.RepeatableRead)
	younger := tm.Begin(manager.RepeatableRead)

	require.NoError(t, store.Insert(younger, 5, hashindex.RID{PageID: 3, SlotID: 0}))

	// older's request conflicts with younger's still-held X lock and
	// wounds it outright rather than waiting, per wound-wait.
	require.NoError(t, store.Insert(older, 5, hashindex.RID{PageID: 4, SlotID: 0}))
	require.Equal(t, manager.TxnAborted, younger.State())
}
