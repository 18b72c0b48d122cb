package base

import (
	"github.com/google/uuid"
)

// PartitionKeySource resolves the partition key for each message
//
// Resolution happens once per message when records are built; retries reuse the resolved keys
type PartitionKeySource interface {
	PartitionKeyFor(message Message) string
}

// FixedPartitionKey is a PartitionKeySource returning the same key for every message
type FixedPartitionKey string

// PartitionKeyFor returns the fixed key
func (key FixedPartitionKey) PartitionKeyFor(_ Message) string {
	return string(key)
}

// DerivedPartitionKey is a PartitionKeySource computing the key from the message itself
type DerivedPartitionKey func(message Message) string

// PartitionKeyFor invokes the key function
func (derive DerivedPartitionKey) PartitionKeyFor(message Message) string {
	return derive(message)
}

// GeneratedPartitionKey is a PartitionKeySource assigning a random unique key per message,
// spreading records evenly across upstream partitions. This is the default when no key is configured.
type GeneratedPartitionKey struct{}

// PartitionKeyFor returns a new random key
func (GeneratedPartitionKey) PartitionKeyFor(_ Message) string {
	return uuid.NewString()
}
