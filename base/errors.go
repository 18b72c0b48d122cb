package base

import (
	"fmt"
)

// ExhaustedBatchError is the terminal delivery failure of one batch: all attempts failed
//
// It carries the complete unsent batch so the embedding application may re-queue or log the
// messages. The error is reported exactly once per batch, on the dispatch result channel and to
// the registered observer.
type ExhaustedBatchError struct {
	Batch    Batch // the full failing batch, in original order
	Attempts int   // total delivery attempts made, maxRetries + 1
	Cause    error // error of the last attempt
}

// Error formats the failure with batch identity and size
func (e *ExhaustedBatchError) Error() string {
	return fmt.Sprintf("batch %s undelivered after %d attempts (%d messages): %s",
		e.Batch.ID, e.Attempts, len(e.Batch.Messages), e.Cause)
}

// Unwrap returns the error of the last attempt
func (e *ExhaustedBatchError) Unwrap() error {
	return e.Cause
}

// Records returns the unsent messages in their original order
func (e *ExhaustedBatchError) Records() []Message {
	return e.Batch.Messages
}
