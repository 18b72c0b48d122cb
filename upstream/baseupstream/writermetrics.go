// Package baseupstream provides common pieces for upstream writer implementations
package baseupstream

import (
	"github.com/relex/bulksink/util"
	"github.com/relex/gotils/promexporter/promext"
	"github.com/relex/gotils/promexporter/promreg"
)

// WriterMetrics defines metrics shared by most of network-based upstream writers
type WriterMetrics struct {
	openedConnectionsTotal promext.RWCounter
	putAttemptsTotal       promext.RWCounter
	deliveredBatchesTotal  promext.RWCounter
	deliveredRecordsTotal  promext.RWCounter
	deliveredBytesTotal    promext.RWCounter
	networkErrorsTotal     promext.RWCounter
	nonNetworkErrorsTotal  promext.RWCounter
}

// NewWriterMetrics creates WriterMetrics under the given upstream type label, e.g. "fluentdForward"
func NewWriterMetrics(metricCreator promreg.MetricCreator, upstreamType string) WriterMetrics {
	upstreamMetricCreator := metricCreator.AddOrGetPrefix("upstream_", []string{"upstream"}, []string{upstreamType})

	return WriterMetrics{
		openedConnectionsTotal: upstreamMetricCreator.AddOrGetCounter("opened_connections_total", "Numbers of opened connections or sessions", nil, nil),
		putAttemptsTotal:       upstreamMetricCreator.AddOrGetCounter("put_attempts_total", "Numbers of batch delivery attempts", nil, nil),
		deliveredBatchesTotal:  upstreamMetricCreator.AddOrGetCounter("delivered_batches_total", "Numbers of batches confirmed by upstream", nil, nil),
		deliveredRecordsTotal:  upstreamMetricCreator.AddOrGetCounter("delivered_records_total", "Numbers of records in batches confirmed by upstream", nil, nil),
		deliveredBytesTotal:    upstreamMetricCreator.AddOrGetCounter("delivered_batch_bytes_total", "Total length in bytes of batches confirmed by upstream", nil, nil),
		networkErrorsTotal:     upstreamMetricCreator.AddOrGetCounter("network_errors_total", "Numbers of network errors", nil, nil),
		nonNetworkErrorsTotal:  upstreamMetricCreator.AddOrGetCounter("nonnetwork_errors_total", "Numbers of non-network errors (auth, unexpected response, etc) from upstream", nil, nil),
	}
}

// OnOpening updates metrics for a new connection or session to upstream
func (metrics *WriterMetrics) OnOpening() {
	metrics.openedConnectionsTotal.Inc()
}

// OnPut updates metrics for the start of a batch delivery attempt
func (metrics *WriterMetrics) OnPut() {
	metrics.putAttemptsTotal.Inc()
}

// OnDelivered updates metrics for a batch confirmed by upstream
func (metrics *WriterMetrics) OnDelivered(numRecords int, numBytes int) {
	metrics.deliveredBatchesTotal.Inc()
	metrics.deliveredRecordsTotal.Add(uint64(numRecords))
	metrics.deliveredBytesTotal.Add(uint64(numBytes))
}

// OnError updates metrics for a failed delivery attempt
func (metrics *WriterMetrics) OnError(err error) {
	if err != nil && util.IsNetworkError(err) {
		metrics.networkErrorsTotal.Inc()
	} else {
		metrics.nonNetworkErrorsTotal.Inc()
	}
}
