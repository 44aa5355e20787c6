package hashindex

import (
	"encoding/binary"

	"github.com/OneOfOne/xxhash"
	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xmysql-server/logger"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/buffer_pool"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/diskmanager"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/latch"
)

// PageManager is the subset of buffer_pool.BufferPoolManager (and
// ParallelBufferPoolManager) the index needs. It never touches the disk
// manager directly, only ever borrowing pages through this interface.
type PageManager interface {
	FetchPage(pageID int32) (*buffer_pool.Page, error)
	NewPage() (*buffer_pool.Page, error)
	UnpinPage(pageID int32, isDirty bool) bool
	DeletePage(pageID int32) bool
}

// ExtendibleHashTable is a disk-resident directory+bucket hash index whose
// pages live through a PageManager. Splits and merges, the only directory
// changes, run under tableLatch's write lock; GetValue, Insert and Remove
// otherwise hold its read lock plus the bucket page's own reader/writer
// latch (read for GetValue, write for Insert/Remove), so concurrent
// GetValue calls on distinct buckets never block each other.
type ExtendibleHashTable struct {
	bpm             PageManager
	tableLatch      *latch.Latch
	directoryPageID int32
}

// NewExtendibleHashTable opens an index rooted at directoryPageID. Passing
// diskmanager.InvalidPageID creates a fresh, empty index with a single
// bucket; its freshly allocated directory page id is then available from
// DirectoryPageID.
func NewExtendibleHashTable(bpm PageManager, directoryPageID int32) (*ExtendibleHashTable, error) {
	t := &ExtendibleHashTable{
		bpm:        bpm,
		tableLatch: latch.NewLatch(),
	}
	if directoryPageID != diskmanager.InvalidPageID {
		t.directoryPageID = directoryPageID
		return t, nil
	}

	dirPage, err := bpm.NewPage()
	if err != nil {
		return nil, errors.Wrap(ErrOutOfMemory, err.Error())
	}
	bucketPage, err := bpm.NewPage()
	if err != nil {
		bpm.DeletePage(dirPage.ID())
		return nil, errors.Wrap(ErrOutOfMemory, err.Error())
	}

	dir := NewDirectoryPage(dirPage)
	dir.Init(bucketPage.ID())
	NewBucketPage(bucketPage).Clear()

	t.directoryPageID = dirPage.ID()
	bpm.UnpinPage(bucketPage.ID(), true)
	bpm.UnpinPage(dirPage.ID(), true)
	return t, nil
}

// DirectoryPageID returns the id passed at construction (or freshly
// allocated), for persisting across restarts.
func (t *ExtendibleHashTable) DirectoryPageID() int32 {
	return t.directoryPageID
}

func hashKey(key uint32) uint32 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], key)
	return xxhash.Checksum32(buf[:])
}

// GetValue returns every value stored under key.
func (t *ExtendibleHashTable) GetValue(key uint32) ([]RID, error) {
	t.tableLatch.RLock()
	defer t.tableLatch.RUnlock()

	dirPage, err := t.bpm.FetchPage(t.directoryPageID)
	if err != nil {
		return nil, err
	}
	defer t.bpm.UnpinPage(t.directoryPageID, false)
	dir := NewDirectoryPage(dirPage)

	idx := dir.IndexOf(hashKey(key))
	bucketPageID := dir.BucketPageID(idx)

	bucketPage, err := t.bpm.FetchPage(bucketPageID)
	if err != nil {
		return nil, err
	}
	bucketPage.RLatch()
	values := NewBucketPage(bucketPage).GetValue(key, nil)
	bucketPage.RUnlatch()
	t.bpm.UnpinPage(bucketPageID, false)

	return values, nil
}

// Insert adds (key, value). If the target bucket is full it releases the
// read latch and restarts under the write-latched split path.
func (t *ExtendibleHashTable) Insert(key uint32, value RID) (bool, error) {
	t.tableLatch.RLock()
	dirPage, err := t.bpm.FetchPage(t.directoryPageID)
	if err != nil {
		t.tableLatch.RUnlock()
		return false, err
	}
	dir := NewDirectoryPage(dirPage)
	idx := dir.IndexOf(hashKey(key))
	bucketPageID := dir.BucketPageID(idx)

	bucketPage, err := t.bpm.FetchPage(bucketPageID)
	if err != nil {
		t.bpm.UnpinPage(t.directoryPageID, false)
		t.tableLatch.RUnlock()
		return false, err
	}
	bucketPage.WLatch()
	bucket := NewBucketPage(bucketPage)

	if !bucket.IsFull() {
		inserted := bucket.Insert(key, value)
		bucketPage.WUnlatch()
		t.bpm.UnpinPage(bucketPageID, inserted)
		t.bpm.UnpinPage(t.directoryPageID, false)
		t.tableLatch.RUnlock()
		if !inserted {
			return false, ErrDuplicateEntry
		}
		return true, nil
	}

	bucketPage.WUnlatch()
	t.bpm.UnpinPage(bucketPageID, false)
	t.bpm.UnpinPage(t.directoryPageID, false)
	t.tableLatch.RUnlock()

	return t.splitInsert(key, value)
}

// splitInsert loops, splitting the target bucket (and doubling the
// directory if needed) until it has room, then inserts.
func (t *ExtendibleHashTable) splitInsert(key uint32, value RID) (bool, error) {
	for {
		t.tableLatch.Lock()
		done, retry, err := t.splitInsertOnce(key, value)
		t.tableLatch.Unlock()
		if err != nil {
			return false, err
		}
		if !retry {
			return done, nil
		}
	}
}

// splitInsertOnce performs one iteration of the split loop under the table
// write latch. retry is true after every split: the caller loops again,
// and that next pass inserts or, if the target bucket is still full (e.g.
// a hash collision run), splits once more.
func (t *ExtendibleHashTable) splitInsertOnce(key uint32, value RID) (inserted bool, retry bool, err error) {
	dirPage, err := t.bpm.FetchPage(t.directoryPageID)
	if err != nil {
		return false, false, err
	}
	dir := NewDirectoryPage(dirPage)

	idx := dir.IndexOf(hashKey(key))
	localDepth := dir.LocalDepth(idx)
	bucketPageID := dir.BucketPageID(idx)

	bucketPage, err := t.bpm.FetchPage(bucketPageID)
	if err != nil {
		t.bpm.UnpinPage(t.directoryPageID, false)
		return false, false, err
	}
	bucketPage.WLatch()
	bucket := NewBucketPage(bucketPage)

	if !bucket.IsFull() {
		inserted = bucket.Insert(key, value)
		bucketPage.WUnlatch()
		t.bpm.UnpinPage(bucketPageID, inserted)
		t.bpm.UnpinPage(t.directoryPageID, false)
		if !inserted {
			return false, false, ErrDuplicateEntry
		}
		return true, false, nil
	}

	if localDepth == dir.GlobalDepth() {
		if !dir.Grow() {
			bucketPage.WUnlatch()
			t.bpm.UnpinPage(bucketPageID, false)
			t.bpm.UnpinPage(t.directoryPageID, false)
			return false, false, errors.New("hashindex: directory reached maximum depth")
		}
	}

	newLocalDepth := localDepth + 1
	imagePage, err := t.bpm.NewPage()
	if err != nil {
		bucketPage.WUnlatch()
		t.bpm.UnpinPage(bucketPageID, false)
		t.bpm.UnpinPage(t.directoryPageID, false)
		return false, false, errors.Wrap(ErrOutOfMemory, err.Error())
	}
	image := NewBucketPage(imagePage)
	image.Clear()

	newBit := uint32(1) << uint(newLocalDepth-1)
	oldMask := (uint32(1) << uint(localDepth)) - 1
	oldLowBits := uint32(idx) & oldMask

	for i := 0; i < dir.Size(); i++ {
		if uint32(i)&oldMask != oldLowBits {
			continue
		}
		dir.SetLocalDepth(i, newLocalDepth)
		if uint32(i)&newBit != 0 {
			dir.SetBucketPageID(i, imagePage.ID())
		} else {
			dir.SetBucketPageID(i, bucketPageID)
		}
	}

	for _, entry := range bucket.Entries() {
		if hashKey(entry.Key)&newBit != 0 {
			bucket.Remove(entry.Key, entry.Value)
			image.Insert(entry.Key, entry.Value)
		}
	}

	logger.Debugf("hashindex: split bucket %d into %d at local depth %d", bucketPageID, imagePage.ID(), newLocalDepth)

	bucketPage.WUnlatch()
	t.bpm.UnpinPage(bucketPageID, true)
	t.bpm.UnpinPage(imagePage.ID(), true)
	t.bpm.UnpinPage(t.directoryPageID, true)

	return false, true, nil
}

// Remove deletes the first (key, value) match, merging the bucket if it
// becomes empty.
func (t *ExtendibleHashTable) Remove(key uint32, value RID) (bool, error) {
	t.tableLatch.RLock()
	dirPage, err := t.bpm.FetchPage(t.directoryPageID)
	if err != nil {
		t.tableLatch.RUnlock()
		return false, err
	}
	dir := NewDirectoryPage(dirPage)
	idx := dir.IndexOf(hashKey(key))
	bucketPageID := dir.BucketPageID(idx)

	bucketPage, err := t.bpm.FetchPage(bucketPageID)
	if err != nil {
		t.bpm.UnpinPage(t.directoryPageID, false)
		t.tableLatch.RUnlock()
		return false, err
	}
	bucketPage.WLatch()
	bucket := NewBucketPage(bucketPage)
	removed := bucket.Remove(key, value)
	becameEmpty := removed && bucket.IsEmpty()
	bucketPage.WUnlatch()
	t.bpm.UnpinPage(bucketPageID, removed)
	t.bpm.UnpinPage(t.directoryPageID, false)
	t.tableLatch.RUnlock()

	if becameEmpty {
		if err := t.merge(key); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// merge runs under the table write latch: collapse an empty bucket into
// its split image, then halve the directory
// while every active pair still agrees. Merges are not cascaded past the
// bucket that triggered them.
func (t *ExtendibleHashTable) merge(key uint32) error {
	t.tableLatch.Lock()
	defer t.tableLatch.Unlock()

	dirPage, err := t.bpm.FetchPage(t.directoryPageID)
	if err != nil {
		return err
	}
	dir := NewDirectoryPage(dirPage)

	idx := dir.IndexOf(hashKey(key))
	d := dir.LocalDepth(idx)
	if d == 0 {
		t.bpm.UnpinPage(t.directoryPageID, false)
		return nil
	}

	bucketPageID := dir.BucketPageID(idx)
	j := idx ^ (1 << uint(d-1))
	if dir.LocalDepth(j) != d {
		t.bpm.UnpinPage(t.directoryPageID, false)
		return nil
	}

	bucketPage, err := t.bpm.FetchPage(bucketPageID)
	if err != nil {
		t.bpm.UnpinPage(t.directoryPageID, false)
		return err
	}
	empty := NewBucketPage(bucketPage).IsEmpty()
	t.bpm.UnpinPage(bucketPageID, false)
	if !empty {
		t.bpm.UnpinPage(t.directoryPageID, false)
		return nil
	}

	imageBucketPageID := dir.BucketPageID(j)
	t.bpm.DeletePage(bucketPageID)

	mask := (uint32(1) << uint(d-1)) - 1
	imageLowBits := uint32(j) & mask
	for i := 0; i < dir.Size(); i++ {
		if uint32(i)&mask != imageLowBits {
			continue
		}
		dir.SetBucketPageID(i, imageBucketPageID)
		dir.SetLocalDepth(i, d-1)
	}

	for dir.CanShrink() {
		dir.Shrink()
	}

	t.bpm.UnpinPage(t.directoryPageID, true)
	return nil
}
