// Package accumulate implements batching of incoming messages by size threshold and timeout
package accumulate

import (
	"errors"
	"runtime/debug"
	"time"

	"github.com/relex/bulksink/base"
	"github.com/relex/bulksink/defs"
	"github.com/relex/bulksink/util"
	"github.com/relex/gotils/channels"
	"github.com/relex/gotils/logger"
	"github.com/relex/gotils/promexporter/promreg"
)

// ErrAccumulatorStalled is reported when a flush request cannot be submitted because the main
// loop has not picked up commands for defs.IntermediateChannelTimeout
var ErrAccumulatorStalled = errors.New("accumulator stalled")

// DispatchFunc hands a completed batch downstream for delivery
//
// The returned channel receives the final delivery result exactly once. The function itself must
// not block for long as it's called from the accumulator's main loop.
type DispatchFunc func(batch base.Batch) <-chan error

// Accumulator queues messages until the size threshold is reached or the flush timeout expires,
// then drains the whole queue downstream as one batch
//
// The queue and the flush timer are confined to the worker goroutine launched by Launch; the
// timer is armed exactly when the queue is non-empty and still below the size threshold, so a
// batch flushed by size leaves no pending timer behind.
type Accumulator struct {
	logger        logger.Logger
	input         chan accumulatorCommand
	dispatch      DispatchFunc
	sizeThreshold int
	flushInterval time.Duration
	queue         []base.Message
	flushTimer    *time.Timer
	timerArmed    bool
	stopped       *channels.SignalAwaitable
	metrics       accumulatorMetrics
}

// accumulatorCommand carries either one message to queue or a manual flush request, never both.
// A single channel keeps enqueued messages and flush requests in submission order.
type accumulatorCommand struct {
	message    base.Message
	flushReply chan<- <-chan error
}

const (
	flushTriggerSize     = "size"
	flushTriggerTimer    = "timer"
	flushTriggerManual   = "manual"
	flushTriggerShutdown = "shutdown"
)

// NewAccumulator creates an Accumulator; Launch must be called to start queue processing
func NewAccumulator(parentLogger logger.Logger, config base.BufferConfig, dispatch DispatchFunc,
	metricCreator promreg.MetricCreator) *Accumulator {
	flushTimer := time.NewTimer(config.FlushInterval)
	util.StopTimer(flushTimer)

	return &Accumulator{
		logger:        parentLogger.WithField(defs.LabelComponent, "Accumulator"),
		input:         make(chan accumulatorCommand, defs.IntermediateBufferedChannelSize),
		dispatch:      dispatch,
		sizeThreshold: config.SizeThreshold,
		flushInterval: config.FlushInterval,
		queue:         make([]base.Message, 0, config.SizeThreshold),
		flushTimer:    flushTimer,
		timerArmed:    false,
		stopped:       channels.NewSignalAwaitable(),
		metrics:       newAccumulatorMetrics(metricCreator),
	}
}

// Launch starts the main loop in background
func (acc *Accumulator) Launch() {
	go acc.run()
}

// Enqueue submits one message for batching
//
// Must not be called after Close
func (acc *Accumulator) Enqueue(message base.Message) {
	select {
	case acc.input <- accumulatorCommand{message: message}:
	case <-time.After(defs.IntermediateChannelTimeout):
		acc.logger.Errorf("BUG: timeout enqueuing message, stack=%s", debug.Stack())
	}
}

// Flush requests an immediate flush of all currently queued messages regardless of queue length
//
// The returned channel receives the delivery result of the flushed batch, or nil immediately if
// the queue was empty
func (acc *Accumulator) Flush() <-chan error {
	reply := make(chan (<-chan error), 1)
	select {
	case acc.input <- accumulatorCommand{flushReply: reply}:
	case <-time.After(defs.IntermediateChannelTimeout):
		acc.logger.Errorf("BUG: timeout requesting flush, stack=%s", debug.Stack())
		failed := make(chan error, 1)
		failed <- ErrAccumulatorStalled
		return failed
	}
	return <-reply
}

// Close ends the main loop; remaining queued messages are flushed before Stopped is signaled
func (acc *Accumulator) Close() {
	close(acc.input)
}

// Stopped returns an Awaitable which is signaled when the main loop has ended
func (acc *Accumulator) Stopped() channels.Awaitable {
	return acc.stopped
}

func (acc *Accumulator) run() {
	acc.logger.Info("start main loop")
SELECT_LOOP:
	for {
		select {
		case command, ok := <-acc.input:
			if !ok {
				acc.logger.Info("end main loop on input channel close")
				break SELECT_LOOP
			}
			if command.flushReply != nil {
				command.flushReply <- acc.flushNow(flushTriggerManual)
				continue
			}
			acc.append(command.message)
		case <-acc.flushTimer.C:
			// a timer cancelled by flushNow never reaches here: its channel is drained on stop
			acc.timerArmed = false
			acc.flushNow(flushTriggerTimer)
		}
	}
	if len(acc.queue) > 0 {
		acc.flushNow(flushTriggerShutdown)
	}
	acc.flushTimer.Stop()
	acc.stopped.Signal()
}

func (acc *Accumulator) append(message base.Message) {
	acc.queue = append(acc.queue, message)
	acc.metrics.OnQueued()
	switch {
	case len(acc.queue) >= acc.sizeThreshold:
		acc.flushNow(flushTriggerSize)
	case len(acc.queue) == 1:
		util.ResetTimer(acc.flushTimer, acc.flushInterval)
		acc.timerArmed = true
	}
}

// flushNow atomically takes the whole queue as one batch, cancels any pending flush timer and
// hands the batch to the dispatch function. The queue may be empty for manual flushes.
func (acc *Accumulator) flushNow(trigger string) <-chan error {
	if acc.timerArmed {
		util.StopTimer(acc.flushTimer)
		acc.timerArmed = false
	}
	batch := base.NewBatch(acc.queue)
	acc.queue = make([]base.Message, 0, acc.sizeThreshold)
	acc.metrics.OnFlush(trigger, len(batch.Messages))
	return acc.dispatch(batch)
}
