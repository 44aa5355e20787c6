package buffer_pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUReplacerVictimOrder(t *testing.T) {
	r := NewLRUReplacer(3)
	r.Unpin(0)
	r.Unpin(1)
	r.Unpin(2)
	require.Equal(t, 3, r.Size())

	// touching frame 1 by re-fetching it (Pin then Unpin) should move it
	// to the back, so it survives the next victim pass.
	r.Pin(1)
	r.Unpin(1)

	id, ok := r.Victim()
	require.True(t, ok)
	require.Equal(t, 0, id)

	id, ok = r.Victim()
	require.True(t, ok)
	require.Equal(t, 2, id)

	id, ok = r.Victim()
	require.True(t, ok)
	require.Equal(t, 1, id)

	_, ok = r.Victim()
	require.False(t, ok)
}

func TestLRUReplacerUnpinIsNoOpWhenAlreadyEvictable(t *testing.T) {
	r := NewLRUReplacer(3)
	r.Unpin(0)
	r.Unpin(1)
	// Re-unpinning 0 must not move it to the back.
	r.Unpin(0)

	id, ok := r.Victim()
	require.True(t, ok)
	require.Equal(t, 0, id)
}

func TestLRUReplacerPinIsIdempotent(t *testing.T) {
	r := NewLRUReplacer(2)
	r.Pin(5)
	r.Pin(5)
	require.Equal(t, 0, r.Size())
}

func TestLRUReplacerRespectsCapacity(t *testing.T) {
	r := NewLRUReplacer(1)
	r.Unpin(0)
	r.Unpin(1) // dropped: at capacity
	require.Equal(t, 1, r.Size())
}
