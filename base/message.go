package base

import (
	"fmt"

	"github.com/google/uuid"
)

// Message represents one accepted payload on its way to upstream
//
// The value is either the decoded form of raw input or, in object mode, whatever the caller wrote
type Message struct {
	Value interface{}
}

// Batch represents an ordered group of messages flushed together
//
// A batch is immutable once handed to the dispatcher: it is delivered or retried as a whole and
// never reordered or split
type Batch struct {
	ID       string // Unique ID of this batch, used in logs and delivery errors
	Messages []Message
}

// NewBatch creates a Batch with a fresh ID, taking ownership of the given messages
func NewBatch(messages []Message) Batch {
	return Batch{
		ID:       uuid.NewString(),
		Messages: messages,
	}
}

// IsEmpty tells whether the batch carries no messages; empty batches are silently completed by the dispatcher
func (batch Batch) IsEmpty() bool {
	return len(batch.Messages) == 0
}

func (batch Batch) String() string {
	return fmt.Sprintf("id=%s len=%d", batch.ID, len(batch.Messages))
}
