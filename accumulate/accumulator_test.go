package accumulate

import (
	"testing"
	"time"

	"github.com/relex/bulksink/base"
	"github.com/relex/bulksink/defs"
	"github.com/relex/gotils/logger"
	"github.com/relex/gotils/promexporter/promreg"
	"github.com/stretchr/testify/assert"
)

func newTestDispatch() (DispatchFunc, chan base.Batch) {
	batchChan := make(chan base.Batch, 100)
	return func(batch base.Batch) <-chan error {
		batchChan <- batch
		done := make(chan error, 1)
		done <- nil
		return done
	}, batchChan
}

func launchTestAccumulator(t *testing.T, config base.BufferConfig) (*Accumulator, chan base.Batch) {
	dispatch, batchChan := newTestDispatch()
	mfactory := promreg.NewMetricFactory("testaccumulate_", nil, nil)
	acc := NewAccumulator(logger.WithField("test", t.Name()), config, dispatch, mfactory)
	acc.Launch()
	return acc, batchChan
}

func receiveBatch(t *testing.T, batchChan chan base.Batch) (base.Batch, bool) {
	select {
	case batch := <-batchChan:
		return batch, true
	case <-time.After(defs.TestReadTimeout):
		t.Log("no batch received in time")
		return base.Batch{}, false
	}
}

func TestAccumulatorFlushBySize(t *testing.T) {
	acc, batchChan := launchTestAccumulator(t, base.BufferConfig{
		SizeThreshold: 3,
		FlushInterval: time.Hour,
		MaxRetries:    0,
	})
	for i := 0; i < 7; i++ {
		acc.Enqueue(base.Message{Value: i})
	}

	first, ok := receiveBatch(t, batchChan)
	assert.True(t, ok)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, []base.Message{{Value: 0}, {Value: 1}, {Value: 2}}, first.Messages)

	second, ok := receiveBatch(t, batchChan)
	assert.True(t, ok)
	assert.Equal(t, []base.Message{{Value: 3}, {Value: 4}, {Value: 5}}, second.Messages)
	assert.NotEqual(t, first.ID, second.ID)

	// 7th message is below the threshold and stays queued until shutdown
	assert.Equal(t, 0, len(batchChan))
	acc.Close()
	assert.True(t, acc.Stopped().Wait(defs.TestReadTimeout))

	last, ok := receiveBatch(t, batchChan)
	assert.True(t, ok)
	assert.Equal(t, []base.Message{{Value: 6}}, last.Messages)
}

func TestAccumulatorFlushByTimer(t *testing.T) {
	acc, batchChan := launchTestAccumulator(t, base.BufferConfig{
		SizeThreshold: 100,
		FlushInterval: 100 * time.Millisecond,
		MaxRetries:    0,
	})
	acc.Enqueue(base.Message{Value: "a"})
	acc.Enqueue(base.Message{Value: "b"})

	batch, ok := receiveBatch(t, batchChan)
	assert.True(t, ok)
	assert.Equal(t, []base.Message{{Value: "a"}, {Value: "b"}}, batch.Messages)

	// the fired timer stays disarmed while the queue is empty
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 0, len(batchChan))

	// the timer re-arms for the next incomplete batch
	acc.Enqueue(base.Message{Value: "c"})
	batch, ok = receiveBatch(t, batchChan)
	assert.True(t, ok)
	assert.Equal(t, []base.Message{{Value: "c"}}, batch.Messages)

	acc.Close()
	assert.True(t, acc.Stopped().Wait(defs.TestReadTimeout))
	assert.Equal(t, 0, len(batchChan))
}

func TestAccumulatorSizePreemptsTimer(t *testing.T) {
	acc, batchChan := launchTestAccumulator(t, base.BufferConfig{
		SizeThreshold: 2,
		FlushInterval: 150 * time.Millisecond,
		MaxRetries:    0,
	})
	acc.Enqueue(base.Message{Value: 1})
	acc.Enqueue(base.Message{Value: 2})

	batch, ok := receiveBatch(t, batchChan)
	assert.True(t, ok)
	assert.Equal(t, 2, len(batch.Messages))

	// the timer armed by the first message was cancelled by the size flush and must not fire
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 0, len(batchChan))

	acc.Close()
	assert.True(t, acc.Stopped().Wait(defs.TestReadTimeout))
	assert.Equal(t, 0, len(batchChan))
}

func TestAccumulatorManualFlush(t *testing.T) {
	acc, batchChan := launchTestAccumulator(t, base.BufferConfig{
		SizeThreshold: 100,
		FlushInterval: time.Hour,
		MaxRetries:    0,
	})
	acc.Enqueue(base.Message{Value: "x"})
	acc.Enqueue(base.Message{Value: "y"})

	done := acc.Flush()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(defs.TestReadTimeout):
		assert.Fail(t, "no flush result in time")
	}
	batch, ok := receiveBatch(t, batchChan)
	assert.True(t, ok)
	assert.Equal(t, []base.Message{{Value: "x"}, {Value: "y"}}, batch.Messages)

	// flushing an empty queue still passes an empty batch through for delivery confirmation
	done = acc.Flush()
	batch, ok = receiveBatch(t, batchChan)
	assert.True(t, ok)
	assert.True(t, batch.IsEmpty())
	assert.NoError(t, <-done)

	acc.Close()
	assert.True(t, acc.Stopped().Wait(defs.TestReadTimeout))
}

func TestAccumulatorThresholdOne(t *testing.T) {
	acc, batchChan := launchTestAccumulator(t, base.BufferConfig{
		SizeThreshold: 1,
		FlushInterval: 100 * time.Millisecond,
		MaxRetries:    0,
	})
	acc.Enqueue(base.Message{Value: "solo"})

	batch, ok := receiveBatch(t, batchChan)
	assert.True(t, ok)
	assert.Equal(t, []base.Message{{Value: "solo"}}, batch.Messages)

	// threshold 1 never arms the timer; nothing else may arrive
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, len(batchChan))

	acc.Close()
	assert.True(t, acc.Stopped().Wait(defs.TestReadTimeout))
	assert.Equal(t, 0, len(batchChan))
}
