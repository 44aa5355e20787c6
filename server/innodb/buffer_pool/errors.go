package buffer_pool

import "errors"

// ErrAllPinned is returned by NewPage/FetchPage when every frame is
// pinned and no victim can be found. Page-not-found and page-still-pinned
// conditions are reported as a plain bool by UnpinPage/FlushPage/
// DeletePage instead of a sentinel error, since none of those callers
// need to distinguish the reason from a caller's ordinary control flow.
var ErrAllPinned = errors.New("buffer_pool: no evictable frame available")
