package dispatch

import (
	"github.com/relex/bulksink/util"
	"github.com/relex/gotils/promexporter/promext"
	"github.com/relex/gotils/promexporter/promreg"
)

type dispatcherMetrics struct {
	pendingBatches         promext.RWGauge // Current numbers of batches waiting for delivery
	attemptsTotal          promext.RWCounter
	deliveredBatchesTotal  promext.RWCounter
	deliveredMessagesTotal promext.RWCounter
	deliveredBytesTotal    promext.RWCounter
	networkErrorsTotal     promext.RWCounter
	nonNetworkErrorsTotal  promext.RWCounter
	exhaustedBatchesTotal  promext.RWCounter
	exhaustedMessagesTotal promext.RWCounter
}

func newDispatcherMetrics(metricCreator promreg.MetricCreator) dispatcherMetrics {
	dispatchMetricCreator := metricCreator.AddOrGetPrefix("dispatch_", nil, nil)

	metrics := dispatcherMetrics{
		pendingBatches:         dispatchMetricCreator.AddOrGetGauge("pending_batches", "Numbers of batches queued for delivery", nil, nil),
		attemptsTotal:          dispatchMetricCreator.AddOrGetCounter("attempts_total", "Numbers of delivery attempts including retries", nil, nil),
		deliveredBatchesTotal:  dispatchMetricCreator.AddOrGetCounter("delivered_batches_total", "Numbers of successfully delivered batches", nil, nil),
		deliveredMessagesTotal: dispatchMetricCreator.AddOrGetCounter("delivered_messages_total", "Numbers of messages in successfully delivered batches", nil, nil),
		deliveredBytesTotal:    dispatchMetricCreator.AddOrGetCounter("delivered_bytes_total", "Total length in bytes of delivered record data", nil, nil),
		networkErrorsTotal:     dispatchMetricCreator.AddOrGetCounter("network_errors_total", "Numbers of network errors from upstream", nil, nil),
		nonNetworkErrorsTotal:  dispatchMetricCreator.AddOrGetCounter("nonnetwork_errors_total", "Numbers of non-network errors (auth, unexpected response, etc) from upstream", nil, nil),
		exhaustedBatchesTotal:  dispatchMetricCreator.AddOrGetCounter("exhausted_batches_total", "Numbers of batches given up after all attempts failed", nil, nil),
		exhaustedMessagesTotal: dispatchMetricCreator.AddOrGetCounter("exhausted_messages_total", "Numbers of messages in given-up batches", nil, nil),
	}
	// reset gauge in case metricCreator is reused
	metrics.pendingBatches.Set(0)

	return metrics
}

func (metrics *dispatcherMetrics) OnQueued() {
	metrics.pendingBatches.Inc()
}

func (metrics *dispatcherMetrics) OnDequeued() {
	metrics.pendingBatches.Dec()
}

func (metrics *dispatcherMetrics) OnAttempt() {
	metrics.attemptsTotal.Inc()
}

func (metrics *dispatcherMetrics) OnDelivered(numRecords int, numBytes int) {
	metrics.deliveredBatchesTotal.Inc()
	metrics.deliveredMessagesTotal.Add(uint64(numRecords))
	metrics.deliveredBytesTotal.Add(uint64(numBytes))
}

func (metrics *dispatcherMetrics) OnError(err error) {
	if err != nil && util.IsNetworkError(err) {
		metrics.networkErrorsTotal.Inc()
	} else {
		metrics.nonNetworkErrorsTotal.Inc()
	}
}

func (metrics *dispatcherMetrics) OnExhausted(numMessages int) {
	metrics.exhaustedBatchesTotal.Inc()
	metrics.exhaustedMessagesTotal.Add(uint64(numMessages))
}
