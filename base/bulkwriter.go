package base

import (
	"time"
)

// BulkWriter is the transport boundary: it attempts to persist all given records upstream
//
// A nil result means full success. Any error means the whole call failed, whether the upstream
// rejected everything or only part of it; the dispatcher does not distinguish partial from total
// failure and retries the entire record list unmodified.
//
// BulkPut is called from a single goroutine per sink. Implementations own their connections and
// should recover them on the next call after a failure.
type BulkWriter interface {
	BulkPut(records []BulkRecord, deadline time.Time) error
	Close()
}
