package hashindex

import "github.com/pkg/errors"

var (
	// ErrDuplicateEntry is returned when Insert is called with a (key,
	// value) pair already present in the index.
	ErrDuplicateEntry = errors.New("hashindex: duplicate (key, value) entry")
	// ErrOutOfMemory is returned when the buffer pool cannot allocate a
	// new bucket or directory page during Insert.
	ErrOutOfMemory = errors.New("hashindex: buffer pool exhausted allocating an index page")
)
