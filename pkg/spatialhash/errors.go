package spatialhash

import "errors"

var (
	// ErrTableFull is returned by Add/AddKey when the overflow scan
	// exceeds its step bound or wraps every bucket. The table remains
	// consistent for reads; it is simply no longer accepting inserts for
	// the affected region.
	ErrTableFull = errors.New("spatialhash: table full, overflow chain exhausted")
	// ErrConfigError is returned by New/Init when the requested layout
	// cannot be realized: skipKeyBeginningBits too large for the key
	// width, or a capacity that forces skipKeyEndBits negative.
	ErrConfigError = errors.New("spatialhash: invalid table configuration")
)
