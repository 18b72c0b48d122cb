package sink

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/relex/bulksink/accumulate"
	"github.com/relex/bulksink/base"
	"github.com/relex/bulksink/defs"
	"github.com/relex/bulksink/dispatch"
	"github.com/relex/bulksink/safejson"
	"github.com/relex/gotils/logger"
	"github.com/relex/gotils/promexporter/promreg"
)

// ErrEngineStopped is returned by writes submitted after Shutdown has begun
var ErrEngineStopped = errors.New("sink engine stopped")

// Engine is the write side of one stream: it normalizes incoming messages, routes priority
// messages past the batching queue and feeds everything else through the accumulator into the
// dispatcher
//
// All methods may be called from any goroutine. Shutdown flushes remaining messages and blocks
// until both workers have ended; a write racing with Shutdown either makes it into the queue or
// is rejected with ErrEngineStopped.
type Engine struct {
	logger      logger.Logger
	objectMode  bool
	router      base.PriorityRouter
	accumulator *accumulate.Accumulator
	dispatcher  *dispatch.Dispatcher
	writer      base.BulkWriter
	errorChan   chan *base.ExhaustedBatchError
	stateMutex  sync.RWMutex // read-held by writes, write-held to mark shutdown
	stopped     bool
	metrics     engineMetrics
}

// NewEngine creates an Engine delivering to the writer built from the upstream section of the
// configuration, and starts its workers
func (config Config) NewEngine(parentLogger logger.Logger, metricCreator promreg.MetricCreator) (*Engine, error) {
	if err := config.VerifyConfig(); err != nil {
		return nil, err
	}
	if config.Upstream.Value == nil {
		return nil, fmt.Errorf(".upstream is unspecified")
	}
	writer, err := config.Upstream.Value.NewBulkWriter(
		parentLogger.WithField(defs.LabelName, config.StreamName),
		config.StreamName,
		streamMetricCreator(metricCreator, config.StreamName),
	)
	if err != nil {
		return nil, fmt.Errorf(".upstream: %w", err)
	}
	parentLogger.WithField(defs.LabelName, config.StreamName).Infof(
		"created %s upstream writer", config.Upstream.Value.GetType())
	return config.NewEngineWithWriter(parentLogger, writer, metricCreator)
}

// NewEngineWithWriter creates an Engine delivering to the given writer and starts its workers;
// for embedders and tests providing their own upstream. The engine owns the writer and closes it
// on Shutdown.
func (config Config) NewEngineWithWriter(parentLogger logger.Logger, writer base.BulkWriter,
	metricCreator promreg.MetricCreator) (*Engine, error) {
	if err := config.VerifyConfig(); err != nil {
		return nil, err
	}
	keySource, err := config.newPartitionKeySource()
	if err != nil {
		return nil, fmt.Errorf(".partitionKey: %w", err)
	}
	sinkLogger := parentLogger.WithFields(logger.Fields{
		defs.LabelComponent: "SinkEngine",
		defs.LabelName:      config.StreamName,
	})
	smc := streamMetricCreator(metricCreator, config.StreamName)
	buffer := config.bufferOrDefault()
	router := config.Priority.NewRouter()
	if config.PriorityOverride != nil {
		router = config.PriorityOverride
	}

	engine := &Engine{
		logger:     sinkLogger,
		objectMode: config.ObjectMode,
		router:     router,
		writer:     writer,
		errorChan:  make(chan *base.ExhaustedBatchError, defs.SinkErrorChannelCapacity),
		metrics:    newEngineMetrics(smc),
	}
	engine.dispatcher = dispatch.NewDispatcher(sinkLogger, writer, safejson.Encoder{}, keySource,
		buffer.MaxRetries, engine.onBatchExhausted, smc)
	engine.accumulator = accumulate.NewAccumulator(sinkLogger, buffer, engine.dispatcher.Dispatch, smc)
	engine.dispatcher.Launch()
	engine.accumulator.Launch()
	return engine, nil
}

func streamMetricCreator(metricCreator promreg.MetricCreator, streamName string) promreg.MetricCreator {
	return metricCreator.AddOrGetPrefix("sink_", []string{"stream"}, []string{streamName})
}

// Write submits one serialized message
//
// The payload is decoded as JSON unless the engine is in object mode, in which case the raw
// input is carried as an opaque string. Malformed JSON is rejected here and never reaches the
// queue.
func (engine *Engine) Write(data []byte) error {
	engine.stateMutex.RLock()
	defer engine.stateMutex.RUnlock()
	if engine.stopped {
		return ErrEngineStopped
	}
	var value interface{}
	if engine.objectMode {
		value = string(data)
	} else {
		decoded, derr := decodeJSONValue(data)
		if derr != nil {
			engine.metrics.OnRejected()
			return fmt.Errorf("malformed JSON message: %w", derr)
		}
		value = decoded
	}
	engine.submit(base.Message{Value: value})
	return nil
}

// WriteValue submits one in-memory message value as-is, without serialization or decoding
func (engine *Engine) WriteValue(value interface{}) error {
	engine.stateMutex.RLock()
	defer engine.stateMutex.RUnlock()
	if engine.stopped {
		return ErrEngineStopped
	}
	engine.submit(base.Message{Value: value})
	return nil
}

func (engine *Engine) submit(message base.Message) {
	engine.metrics.OnAccepted()
	if engine.router.HasPriority(message) {
		// priority messages leave the queued ones untouched: no flush, no timer change
		engine.metrics.OnPriority()
		engine.dispatcher.Dispatch(base.NewBatch([]base.Message{message}))
		return
	}
	engine.accumulator.Enqueue(message)
}

// Flush drains all currently queued messages as one batch regardless of the size threshold
//
// The returned channel receives the delivery result, nil immediately if nothing was queued
func (engine *Engine) Flush() <-chan error {
	return engine.accumulator.Flush()
}

// Errors surfaces batches given up after delivery attempts were exhausted; each failure is
// reported exactly once. Reports are dropped with a warning if nobody drains the channel. The
// channel is closed by Shutdown.
func (engine *Engine) Errors() <-chan *base.ExhaustedBatchError {
	return engine.errorChan
}

// Shutdown flushes remaining queued messages, stops the workers and closes the upstream writer
// and the error channel. Safe to call more than once.
func (engine *Engine) Shutdown() {
	engine.stateMutex.Lock()
	alreadyStopped := engine.stopped
	engine.stopped = true
	engine.stateMutex.Unlock()
	if alreadyStopped {
		return
	}
	// holding the write lock above implies no write is still in flight
	engine.accumulator.Close()
	if !engine.accumulator.Stopped().Wait(defs.SinkShutDownTimeout) {
		engine.logger.Error("timeout waiting for accumulator to stop")
	}
	engine.dispatcher.Close()
	if !engine.dispatcher.Stopped().Wait(defs.SinkShutDownTimeout) {
		engine.logger.Error("timeout waiting for dispatcher to stop")
	}
	engine.writer.Close()
	close(engine.errorChan)
	engine.logger.Info("stopped")
}

func (engine *Engine) onBatchExhausted(exhausted *base.ExhaustedBatchError) {
	engine.logger.Error(exhausted.Error())
	select {
	case engine.errorChan <- exhausted:
	default:
		engine.logger.Warnf("error channel full, dropped report of batch %s", exhausted.Batch)
	}
}

func decodeJSONValue(data []byte) (interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if decoder.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return value, nil
}
