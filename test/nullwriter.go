package test

import (
	"sync/atomic"
	"time"

	"github.com/relex/bulksink/base"
)

// nullBulkWriter counts and abandons all batches, to benchmark the sink pipeline alone
type nullBulkWriter struct {
	numBatches int64
	numRecords int64
	numBytes   int64
}

func (writer *nullBulkWriter) BulkPut(records []base.BulkRecord, _ time.Time) error {
	atomic.AddInt64(&writer.numBatches, 1)
	atomic.AddInt64(&writer.numRecords, int64(len(records)))
	atomic.AddInt64(&writer.numBytes, int64(base.SumRecordDataLength(records)))
	return nil
}

func (writer *nullBulkWriter) Close() {
}

func (writer *nullBulkWriter) counts() (numBatches int64, numRecords int64, numBytes int64) {
	return atomic.LoadInt64(&writer.numBatches), atomic.LoadInt64(&writer.numRecords), atomic.LoadInt64(&writer.numBytes)
}
