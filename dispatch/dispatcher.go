// Package dispatch implements batch delivery with per-batch retrying
package dispatch

import (
	"errors"
	"runtime/debug"
	"time"

	"github.com/relex/bulksink/base"
	"github.com/relex/bulksink/defs"
	"github.com/relex/gotils/channels"
	"github.com/relex/gotils/logger"
	"github.com/relex/gotils/promexporter/promreg"
	"github.com/samber/lo"
)

// ErrDispatcherStalled is reported when a batch cannot be submitted because the main loop has
// not picked up pending batches for defs.IntermediateChannelTimeout
var ErrDispatcherStalled = errors.New("dispatcher stalled")

// Dispatcher delivers batches through a BulkWriter, transforming each message into a BulkRecord
// exactly once per batch and retrying whole batches immediately on failure
//
// A batch is attempted maxRetries+1 times in total; when all attempts fail, the error pushed to
// the result channel is an ExhaustedBatchError carrying the complete batch so callers can
// recover the undelivered messages. The optional exhaustion observer receives the same error
// exactly once.
type Dispatcher struct {
	logger      logger.Logger
	input       chan pendingDispatch
	writer      base.BulkWriter
	encoder     base.PayloadEncoder
	keySource   base.PartitionKeySource
	maxRetries  int
	onExhausted func(*base.ExhaustedBatchError)
	stopped     *channels.SignalAwaitable
	metrics     dispatcherMetrics
}

type pendingDispatch struct {
	batch base.Batch
	done  chan<- error
}

// NewDispatcher creates a Dispatcher; Launch must be called to start batch processing
//
// onExhausted may be nil if nobody needs to observe undeliverable batches out of band
func NewDispatcher(parentLogger logger.Logger, writer base.BulkWriter, encoder base.PayloadEncoder,
	keySource base.PartitionKeySource, maxRetries int, onExhausted func(*base.ExhaustedBatchError),
	metricCreator promreg.MetricCreator) *Dispatcher {
	return &Dispatcher{
		logger:      parentLogger.WithField(defs.LabelComponent, "Dispatcher"),
		input:       make(chan pendingDispatch, defs.DispatchQueueCapacity),
		writer:      writer,
		encoder:     encoder,
		keySource:   keySource,
		maxRetries:  maxRetries,
		onExhausted: onExhausted,
		stopped:     channels.NewSignalAwaitable(),
		metrics:     newDispatcherMetrics(metricCreator),
	}
}

// Launch starts the main loop in background
func (disp *Dispatcher) Launch() {
	go disp.run()
}

// Dispatch submits a batch for delivery and returns a channel carrying the final result
//
// An empty batch completes successfully right away without touching the upstream. Must not be
// called after Close.
func (disp *Dispatcher) Dispatch(batch base.Batch) <-chan error {
	done := make(chan error, 1)
	if batch.IsEmpty() {
		done <- nil
		return done
	}
	select {
	case disp.input <- pendingDispatch{batch: batch, done: done}:
		disp.metrics.OnQueued()
	case <-time.After(defs.IntermediateChannelTimeout):
		disp.logger.Errorf("BUG: timeout dispatching batch %s, stack=%s", batch, debug.Stack())
		done <- ErrDispatcherStalled
	}
	return done
}

// Close ends the main loop; batches already submitted are still delivered before Stopped is
// signaled
func (disp *Dispatcher) Close() {
	close(disp.input)
}

// Stopped returns an Awaitable which is signaled when the main loop has ended
func (disp *Dispatcher) Stopped() channels.Awaitable {
	return disp.stopped
}

func (disp *Dispatcher) run() {
	disp.logger.Info("start main loop")
	for pending := range disp.input {
		disp.metrics.OnDequeued()
		exhausted := disp.deliver(pending.batch, disp.buildRecords(pending.batch))
		if exhausted == nil {
			pending.done <- nil
			continue
		}
		pending.done <- exhausted
		disp.metrics.OnExhausted(len(exhausted.Batch.Messages))
		if disp.onExhausted != nil {
			disp.onExhausted(exhausted)
		}
	}
	disp.logger.Info("end main loop on input channel close")
	disp.stopped.Signal()
}

// buildRecords resolves partition keys and serializes payloads, once per batch regardless of how
// many delivery attempts follow
func (disp *Dispatcher) buildRecords(batch base.Batch) []base.BulkRecord {
	return lo.Map(batch.Messages, func(message base.Message, _ int) base.BulkRecord {
		return base.BulkRecord{
			PartitionKey: disp.keySource.PartitionKeyFor(message),
			Data:         disp.encoder.EncodePayload(message.Value),
		}
	})
}

func (disp *Dispatcher) deliver(batch base.Batch, records []base.BulkRecord) *base.ExhaustedBatchError {
	totalBytes := base.SumRecordDataLength(records)
	timeout := defs.UpstreamSendTimeoutBase + time.Duration(totalBytes/defs.UpstreamSendMinimumSpeed)*time.Second
	numAttempts := disp.maxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= numAttempts; attempt++ {
		disp.metrics.OnAttempt()
		err := disp.writer.BulkPut(records, time.Now().Add(timeout))
		if err == nil {
			disp.metrics.OnDelivered(len(records), totalBytes)
			return nil
		}
		lastErr = err
		disp.metrics.OnError(err)
		disp.logger.Warnf("failed to deliver batch %s attempt %d/%d: %s", batch, attempt, numAttempts, err.Error())
	}
	return &base.ExhaustedBatchError{
		Batch:    batch,
		Attempts: numAttempts,
		Cause:    lastErr,
	}
}
