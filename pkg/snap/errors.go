package snap

import "errors"

var (
	// ErrNoCandidates is returned when no edge can be found within the
	// requested search radius.
	ErrNoCandidates = errors.New("snap: no candidate edge found")
	// ErrSnapFailed wraps lower-level failures (spatial hash table full,
	// etc.) encountered while building or querying a snap index.
	ErrSnapFailed = errors.New("snap: index operation failed")
)
