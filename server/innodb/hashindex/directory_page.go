package hashindex

import (
	"encoding/binary"

	"github.com/zhukovaskychina/xmysql-server/server/innodb/buffer_pool"
)

// maxDepth bounds global_depth so that the directory's slot array (one
// local-depth byte plus one bucket-id int32 per slot) fits in a single
// page alongside its 4-byte global-depth header, computed the same way
// bucketCapacity is rather than hand-checked.
var maxDepth = computeMaxDepth(buffer_pool.PageSize)

func computeMaxDepth(pageSize int) int {
	for d := 31; d >= 0; d-- {
		slots := 1 << uint(d)
		if 4+slots*5 <= pageSize {
			return d
		}
	}
	return 0
}

// DirectoryPage is a view over a buffer_pool.Page laid out as: a
// global-depth header, then parallel arrays of local depths and bucket
// page ids, each sized 2^maxDepth entries though only the first
// 2^global_depth are meaningful.
type DirectoryPage struct {
	page *buffer_pool.Page
}

func NewDirectoryPage(page *buffer_pool.Page) *DirectoryPage {
	return &DirectoryPage{page: page}
}

func (d *DirectoryPage) localDepthOffset() int { return 4 }
func (d *DirectoryPage) bucketIDOffset() int   { return 4 + (1 << uint(maxDepth)) }

// Init sets global depth 0 with a single slot pointing at bucketPageID.
func (d *DirectoryPage) Init(bucketPageID int32) {
	d.SetGlobalDepth(0)
	d.SetLocalDepth(0, 0)
	d.SetBucketPageID(0, bucketPageID)
}

func (d *DirectoryPage) GlobalDepth() int {
	return int(binary.LittleEndian.Uint32(d.page.Data()[0:4]))
}

func (d *DirectoryPage) SetGlobalDepth(depth int) {
	binary.LittleEndian.PutUint32(d.page.Data()[0:4], uint32(depth))
}

// Size returns 2^global_depth, the number of meaningful slots.
func (d *DirectoryPage) Size() int { return 1 << uint(d.GlobalDepth()) }

func (d *DirectoryPage) LocalDepth(i int) int {
	return int(d.page.Data()[d.localDepthOffset()+i])
}

func (d *DirectoryPage) SetLocalDepth(i, depth int) {
	d.page.Data()[d.localDepthOffset()+i] = byte(depth)
}

func (d *DirectoryPage) BucketPageID(i int) int32 {
	off := d.bucketIDOffset() + i*4
	return int32(binary.LittleEndian.Uint32(d.page.Data()[off : off+4]))
}

func (d *DirectoryPage) SetBucketPageID(i int, pageID int32) {
	off := d.bucketIDOffset() + i*4
	binary.LittleEndian.PutUint32(d.page.Data()[off:off+4], uint32(pageID))
}

// IndexOf maps a hash to a directory slot under the current global depth.
func (d *DirectoryPage) IndexOf(hash uint32) int {
	return int(hash) & (d.Size() - 1)
}

// Grow doubles the directory: entries 0..L are copied to L..2L, carrying
// local depth and bucket id, and global depth is incremented. Fails
// silently (no-op) if already at maxDepth.
func (d *DirectoryPage) Grow() bool {
	depth := d.GlobalDepth()
	if depth >= maxDepth {
		return false
	}
	size := d.Size()
	for i := 0; i < size; i++ {
		d.SetLocalDepth(i+size, d.LocalDepth(i))
		d.SetBucketPageID(i+size, d.BucketPageID(i))
	}
	d.SetGlobalDepth(depth + 1)
	return true
}

// Shrink halves the directory unconditionally; callers must first verify
// every active pair (i, i+size/2) shares a bucket and every local depth is
// within the new bound.
func (d *DirectoryPage) Shrink() {
	d.SetGlobalDepth(d.GlobalDepth() - 1)
}

// CanShrink reports whether every pair (i, i+half) currently points to the
// same bucket and no active slot needs more than global_depth-1 bits.
func (d *DirectoryPage) CanShrink() bool {
	depth := d.GlobalDepth()
	if depth == 0 {
		return false
	}
	half := 1 << uint(depth-1)
	for i := 0; i < half; i++ {
		if d.BucketPageID(i) != d.BucketPageID(i+half) {
			return false
		}
		if d.LocalDepth(i) > depth-1 || d.LocalDepth(i+half) > depth-1 {
			return false
		}
	}
	return true
}
