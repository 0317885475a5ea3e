package queryservice

import "errors"

// ErrResolveFailed is the code attached to any failure resolving a
// Request into a Result, whether the failure came from snapping a
// point or from building the QueryGraph.
var ErrResolveFailed = errors.New("queryservice: failed to resolve request")
