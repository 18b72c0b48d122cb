package base

import "github.com/samber/lo"

// BulkRecord is one message prepared for a bulk-put call: an opaque payload plus its partition key
type BulkRecord struct {
	PartitionKey string // Grouping key resolved by the configured PartitionKeySource
	Data         []byte // Serialized payload, safe for transport
}

// SumRecordDataLength returns the total payload size of the given records, used for send timeouts and metrics
func SumRecordDataLength(records []BulkRecord) int {
	return lo.SumBy(records, func(record BulkRecord) int { return len(record.Data) })
}
