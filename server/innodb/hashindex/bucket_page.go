package hashindex

import (
	"encoding/binary"

	"github.com/zhukovaskychina/xmysql-server/server/innodb/buffer_pool"
)

// RID identifies a row's location in a heap: the page holding it and its
// slot within that page. It is the value half of every (key, value) pair
// the index stores.
type RID struct {
	PageID int32
	SlotID uint32
}

const ridSize = 8 // int32 + uint32
const pairSize = 4 + ridSize

// bucketCapacity is the largest B such that ceil(B/8)*2 + B*pairSize fits in
// one buffer_pool.Page, computed once at package init rather than carried as
// a hand-checked constant.
var bucketCapacity = computeBucketCapacity(buffer_pool.PageSize)

func computeBucketCapacity(pageSize int) int {
	for b := pageSize / pairSize; b > 0; b-- {
		bitmapBytes := 2 * ((b + 7) / 8)
		if bitmapBytes+b*pairSize <= pageSize {
			return b
		}
	}
	return 0
}

// BucketPage is a view over a buffer_pool.Page's byte array laid out as:
// occupied bitmap, readable bitmap, then a fixed-capacity array of (key,
// RID) pairs. readable_[i] implies occupied_[i]; Remove
// only ever clears the readable bit, leaving occupied set so a future
// probe sequence sharing this slot's hash chain still terminates
// correctly on tombstoned entries.
type BucketPage struct {
	page *buffer_pool.Page
}

func NewBucketPage(page *buffer_pool.Page) *BucketPage {
	return &BucketPage{page: page}
}

func (b *BucketPage) bitmapBytes() int {
	return (bucketCapacity + 7) / 8
}

func (b *BucketPage) occupiedOffset() int { return 0 }
func (b *BucketPage) readableOffset() int { return b.bitmapBytes() }
func (b *BucketPage) arrayOffset() int    { return 2 * b.bitmapBytes() }

func (b *BucketPage) testBit(offset, i int) bool {
	data := b.page.Data()
	return data[offset+i/8]&(1<<uint(i%8)) != 0
}

func (b *BucketPage) setBit(offset, i int, v bool) {
	data := b.page.Data()
	mask := byte(1 << uint(i%8))
	if v {
		data[offset+i/8] |= mask
	} else {
		data[offset+i/8] &^= mask
	}
}

func (b *BucketPage) isOccupied(i int) bool { return b.testBit(b.occupiedOffset(), i) }
func (b *BucketPage) isReadable(i int) bool { return b.testBit(b.readableOffset(), i) }

func (b *BucketPage) slotOffset(i int) int { return b.arrayOffset() + i*pairSize }

func (b *BucketPage) keyAt(i int) uint32 {
	data := b.page.Data()
	off := b.slotOffset(i)
	return binary.LittleEndian.Uint32(data[off : off+4])
}

func (b *BucketPage) valueAt(i int) RID {
	data := b.page.Data()
	off := b.slotOffset(i) + 4
	return RID{
		PageID: int32(binary.LittleEndian.Uint32(data[off : off+4])),
		SlotID: binary.LittleEndian.Uint32(data[off+4 : off+8]),
	}
}

func (b *BucketPage) writeSlot(i int, key uint32, value RID) {
	data := b.page.Data()
	off := b.slotOffset(i)
	binary.LittleEndian.PutUint32(data[off:off+4], key)
	binary.LittleEndian.PutUint32(data[off+4:off+8], uint32(value.PageID))
	binary.LittleEndian.PutUint32(data[off+8:off+12], value.SlotID)
}

// Capacity returns the fixed number of slots this bucket holds.
func (b *BucketPage) Capacity() int { return bucketCapacity }

// NumReadable counts currently-live entries.
func (b *BucketPage) NumReadable() int {
	n := 0
	for i := 0; i < bucketCapacity; i++ {
		if b.isReadable(i) {
			n++
		}
	}
	return n
}

// IsFull reports whether every slot is readable.
func (b *BucketPage) IsFull() bool { return b.NumReadable() == bucketCapacity }

// IsEmpty reports whether no slot is readable.
func (b *BucketPage) IsEmpty() bool { return b.NumReadable() == 0 }

// GetValue appends every value stored under key to out.
func (b *BucketPage) GetValue(key uint32, out []RID) []RID {
	for i := 0; i < bucketCapacity; i++ {
		if b.isReadable(i) && b.keyAt(i) == key {
			out = append(out, b.valueAt(i))
		}
	}
	return out
}

// Insert rejects an exact (key, value) duplicate; otherwise it claims the
// first non-readable slot. Returns false if the bucket has no room or the
// pair is already present.
func (b *BucketPage) Insert(key uint32, value RID) bool {
	firstFree := -1
	for i := 0; i < bucketCapacity; i++ {
		if b.isReadable(i) {
			if b.keyAt(i) == key && b.valueAt(i) == value {
				return false
			}
			continue
		}
		if firstFree == -1 {
			firstFree = i
		}
	}
	if firstFree == -1 {
		return false
	}
	b.writeSlot(firstFree, key, value)
	b.setBit(b.occupiedOffset(), firstFree, true)
	b.setBit(b.readableOffset(), firstFree, true)
	return true
}

// Remove clears the readable bit of the first slot matching (key, value)
// exactly. The occupied bit is left set.
func (b *BucketPage) Remove(key uint32, value RID) bool {
	for i := 0; i < bucketCapacity; i++ {
		if b.isReadable(i) && b.keyAt(i) == key && b.valueAt(i) == value {
			b.setBit(b.readableOffset(), i, false)
			return true
		}
	}
	return false
}

// BucketEntry is a live (key, value) pair read out of a bucket, used by
// SplitInsert's rehash step.
type BucketEntry struct {
	Key   uint32
	Value RID
}

// Entries returns every currently readable (key, value) pair.
func (b *BucketPage) Entries() []BucketEntry {
	out := make([]BucketEntry, 0, bucketCapacity)
	for i := 0; i < bucketCapacity; i++ {
		if b.isReadable(i) {
			out = append(out, BucketEntry{b.keyAt(i), b.valueAt(i)})
		}
	}
	return out
}

// Clear resets every slot to unoccupied/unreadable; the index calls it on
// each freshly allocated bucket page.
func (b *BucketPage) Clear() {
	data := b.page.Data()
	for i := 0; i < 2*b.bitmapBytes(); i++ {
		data[i] = 0
	}
}
