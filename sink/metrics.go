package sink

import (
	"github.com/relex/gotils/promexporter/promext"
	"github.com/relex/gotils/promexporter/promreg"
)

type engineMetrics struct {
	acceptedMessagesTotal promext.RWCounter
	rejectedMessagesTotal promext.RWCounter
	priorityMessagesTotal promext.RWCounter
}

func newEngineMetrics(metricCreator promreg.MetricCreator) engineMetrics {
	return engineMetrics{
		acceptedMessagesTotal: metricCreator.AddOrGetCounter("accepted_messages_total", "Numbers of accepted incoming messages", nil, nil),
		rejectedMessagesTotal: metricCreator.AddOrGetCounter("rejected_messages_total", "Numbers of incoming messages rejected as malformed", nil, nil),
		priorityMessagesTotal: metricCreator.AddOrGetCounter("priority_messages_total", "Numbers of messages dispatched immediately by priority routing", nil, nil),
	}
}

func (metrics *engineMetrics) OnAccepted() {
	metrics.acceptedMessagesTotal.Inc()
}

func (metrics *engineMetrics) OnRejected() {
	metrics.rejectedMessagesTotal.Inc()
}

func (metrics *engineMetrics) OnPriority() {
	metrics.priorityMessagesTotal.Inc()
}
