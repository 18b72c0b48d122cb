package accumulate

import (
	"github.com/relex/gotils/promexporter/promext"
	"github.com/relex/gotils/promexporter/promreg"
)

type accumulatorMetrics struct {
	queuedMessages         promext.RWGauge // Current numbers of messages waiting in the queue
	flushedMessagesTotal   promext.RWCounter
	flushedBatchesBySize   promext.RWCounter
	flushedBatchesByTimer  promext.RWCounter
	flushedBatchesManual   promext.RWCounter
	flushedBatchesShutdown promext.RWCounter
}

func newAccumulatorMetrics(metricCreator promreg.MetricCreator) accumulatorMetrics {
	bufferMetricCreator := metricCreator.AddOrGetPrefix("buffer_", nil, nil)
	flushedBatches := bufferMetricCreator.AddOrGetCounterVec("flushed_batches_total", "Numbers of flushed batches", []string{"trigger"}, nil)

	metrics := accumulatorMetrics{
		queuedMessages:         bufferMetricCreator.AddOrGetGauge("queued_messages", "Numbers of currently queued messages", nil, nil),
		flushedMessagesTotal:   bufferMetricCreator.AddOrGetCounter("flushed_messages_total", "Numbers of messages in flushed batches", nil, nil),
		flushedBatchesBySize:   flushedBatches.WithLabelValues(flushTriggerSize),
		flushedBatchesByTimer:  flushedBatches.WithLabelValues(flushTriggerTimer),
		flushedBatchesManual:   flushedBatches.WithLabelValues(flushTriggerManual),
		flushedBatchesShutdown: flushedBatches.WithLabelValues(flushTriggerShutdown),
	}
	// reset gauge in case metricCreator is reused
	metrics.queuedMessages.Set(0)

	return metrics
}

func (metrics *accumulatorMetrics) OnQueued() {
	metrics.queuedMessages.Inc()
}

func (metrics *accumulatorMetrics) OnFlush(trigger string, numMessages int) {
	if numMessages == 0 {
		return
	}
	switch trigger {
	case flushTriggerSize:
		metrics.flushedBatchesBySize.Inc()
	case flushTriggerTimer:
		metrics.flushedBatchesByTimer.Inc()
	case flushTriggerManual:
		metrics.flushedBatchesManual.Inc()
	case flushTriggerShutdown:
		metrics.flushedBatchesShutdown.Inc()
	}
	metrics.flushedMessagesTotal.Add(uint64(numMessages))
	metrics.queuedMessages.Sub(int64(numMessages))
}
