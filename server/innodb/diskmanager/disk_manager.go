package diskmanager

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// PageSize is the fixed page size the whole kernel is built around.
const PageSize = 4096

// InvalidPageID marks the absence of a page.
const InvalidPageID int32 = -1

// DiskManager reads and writes fixed-size pages by page id and hands out
// monotonically increasing page ids. Implementations are the sole owner of
// the on-disk representation; the buffer pool never touches a file
// directly.
type DiskManager interface {
	ReadPage(pageID int32, buf []byte) error
	WritePage(pageID int32, data []byte) error
	AllocatePage() int32
	DeallocatePage(pageID int32) error
	Close() error
}

// FileDiskManager backs a DiskManager with a single flat file, addressed by
// pageID*PageSize offsets. Growth is monotonic: pages are never reclaimed
// from the file once allocated, the way a tablespace file grows.
type FileDiskManager struct {
	mu         sync.RWMutex
	file       *os.File
	filePath   string
	nextPageID int32
}

var _ DiskManager = (*FileDiskManager)(nil)

// NewFileDiskManager opens (creating if necessary) a page file under dir.
func NewFileDiskManager(dir, name string) (*FileDiskManager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "diskmanager: create data dir %s", dir)
	}
	filePath := filepath.Join(dir, name)
	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "diskmanager: open %s", filePath)
	}

	dm := &FileDiskManager{file: file, filePath: filePath}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "diskmanager: stat %s", filePath)
	}
	dm.nextPageID = int32(stat.Size() / PageSize)

	return dm, nil
}

// ReadPage reads exactly PageSize bytes at pageID's offset into buf.
func (dm *FileDiskManager) ReadPage(pageID int32, buf []byte) error {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if len(buf) < PageSize {
		return errors.New("diskmanager: buffer smaller than page size")
	}
	offset := int64(pageID) * PageSize
	n, err := dm.file.ReadAt(buf[:PageSize], offset)
	if err != nil {
		// A page that was allocated but never written back yet reads as
		// zeroes rather than failing the caller.
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			for i := n; i < PageSize; i++ {
				buf[i] = 0
			}
			return nil
		}
		return errors.Wrapf(err, "diskmanager: read page %d", pageID)
	}
	return nil
}

// WritePage writes data at pageID's offset, growing the file if necessary.
func (dm *FileDiskManager) WritePage(pageID int32, data []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	offset := int64(pageID) * PageSize
	if _, err := dm.file.WriteAt(data[:PageSize], offset); err != nil {
		return errors.Wrapf(err, "diskmanager: write page %d", pageID)
	}
	return nil
}

// AllocatePage hands out the next unused page id in this file.
func (dm *FileDiskManager) AllocatePage() int32 {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	id := dm.nextPageID
	dm.nextPageID++
	return id
}

// DeallocatePage is a bookkeeping no-op: space reclamation is out of scope.
func (dm *FileDiskManager) DeallocatePage(pageID int32) error {
	return nil
}

// Close flushes and releases the underlying file handle.
func (dm *FileDiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.file == nil {
		return nil
	}
	if err := dm.file.Sync(); err != nil {
		return errors.Wrap(err, "diskmanager: sync on close")
	}
	err := dm.file.Close()
	dm.file = nil
	return err
}

// NullDiskManager is an in-memory DiskManager for tests that don't need a
// real file. Reads of unwritten pages return zeroed buffers.
type NullDiskManager struct {
	mu         sync.RWMutex
	pages      map[int32][]byte
	nextPageID int32
}

var _ DiskManager = (*NullDiskManager)(nil)

// NewNullDiskManager returns an empty in-memory disk manager.
func NewNullDiskManager() *NullDiskManager {
	return &NullDiskManager{pages: make(map[int32][]byte)}
}

func (dm *NullDiskManager) ReadPage(pageID int32, buf []byte) error {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	if len(buf) < PageSize {
		return errors.New("diskmanager: buffer smaller than page size")
	}
	if data, ok := dm.pages[pageID]; ok {
		copy(buf, data)
		return nil
	}
	for i := range buf[:PageSize] {
		buf[i] = 0
	}
	return nil
}

func (dm *NullDiskManager) WritePage(pageID int32, data []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	buf := make([]byte, PageSize)
	copy(buf, data)
	dm.pages[pageID] = buf
	return nil
}

func (dm *NullDiskManager) AllocatePage() int32 {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	id := dm.nextPageID
	dm.nextPageID++
	return id
}

func (dm *NullDiskManager) DeallocatePage(pageID int32) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	delete(dm.pages, pageID)
	return nil
}

func (dm *NullDiskManager) Close() error { return nil }
