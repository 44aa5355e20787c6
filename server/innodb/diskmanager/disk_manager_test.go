package diskmanager

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileDiskManagerAllocatesDenseIDs(t *testing.T) {
	dm, err := NewFileDiskManager(t.TempDir(), "kernel.db")
	require.NoError(t, err)
	defer dm.Close()

	ids := make([]int32, 5)
	for i := range ids {
		ids[i] = dm.AllocatePage()
	}
	require.Equal(t, []int32{0, 1, 2, 3, 4}, ids)
}

func TestFileDiskManagerRoundTrip(t *testing.T) {
	dm, err := NewFileDiskManager(t.TempDir(), "kernel.db")
	require.NoError(t, err)
	defer dm.Close()

	id := dm.AllocatePage()
	want := make([]byte, PageSize)
	copy(want, "hello world")
	require.NoError(t, dm.WritePage(id, want))

	got := make([]byte, PageSize)
	require.NoError(t, dm.ReadPage(id, got))
	require.Equal(t, want, got)
}

func TestFileDiskManagerReadsUnwrittenPageAsZero(t *testing.T) {
	dm, err := NewFileDiskManager(t.TempDir(), "kernel.db")
	require.NoError(t, err)
	defer dm.Close()

	id := dm.AllocatePage()
	buf := make([]byte, PageSize)
	require.NoError(t, dm.ReadPage(id, buf))
	for _, b := range buf {
		require.Equal(t, byte(0), b)
	}
}

func TestFileDiskManagerSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	dm, err := NewFileDiskManager(dir, "kernel.db")
	require.NoError(t, err)

	id := dm.AllocatePage()
	payload := make([]byte, PageSize)
	copy(payload, "persisted")
	require.NoError(t, dm.WritePage(id, payload))
	require.NoError(t, dm.Close())

	reopened, err := NewFileDiskManager(dir, "kernel.db")
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, id+1, reopened.AllocatePage())

	got := make([]byte, PageSize)
	require.NoError(t, reopened.ReadPage(id, got))
	require.Equal(t, payload, got)
}

func TestNullDiskManagerRoundTrip(t *testing.T) {
	dm := NewNullDiskManager()
	id := dm.AllocatePage()

	payload := make([]byte, PageSize)
	copy(payload, "in-memory")
	require.NoError(t, dm.WritePage(id, payload))

	got := make([]byte, PageSize)
	require.NoError(t, dm.ReadPage(id, got))
	require.Equal(t, payload, got)
}
