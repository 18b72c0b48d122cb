package dispatch

import (
	"errors"
	"testing"
	"time"

	"github.com/relex/bulksink/base"
	"github.com/relex/bulksink/base/btest"
	"github.com/relex/bulksink/defs"
	"github.com/relex/bulksink/safejson"
	"github.com/relex/gotils/logger"
	"github.com/relex/gotils/promexporter/promreg"
	"github.com/stretchr/testify/assert"
)

func launchTestDispatcher(t *testing.T, writer base.BulkWriter, keySource base.PartitionKeySource,
	maxRetries int, onExhausted func(*base.ExhaustedBatchError)) *Dispatcher {
	mfactory := promreg.NewMetricFactory("testdispatch_", nil, nil)
	disp := NewDispatcher(logger.WithField("test", t.Name()), writer, safejson.Encoder{},
		keySource, maxRetries, onExhausted, mfactory)
	disp.Launch()
	return disp
}

func waitResult(t *testing.T, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-time.After(defs.TestReadTimeout):
		assert.Fail(t, "no dispatch result in time")
		return nil
	}
}

func TestDispatcherDeliversBatch(t *testing.T) {
	writer := btest.NewScriptedBulkWriter()
	disp := launchTestDispatcher(t, writer, base.FixedPartitionKey("pk"), 0, nil)

	batch := base.NewBatch([]base.Message{
		{Value: map[string]interface{}{"n": 1}},
		{Value: map[string]interface{}{"n": 2}},
	})
	assert.NoError(t, waitResult(t, disp.Dispatch(batch)))

	records, ok := writer.NextCall(defs.TestReadTimeout)
	assert.True(t, ok)
	assert.Equal(t, []base.BulkRecord{
		{PartitionKey: "pk", Data: []byte(`{"n":1}`)},
		{PartitionKey: "pk", Data: []byte(`{"n":2}`)},
	}, records)

	disp.Close()
	assert.True(t, disp.Stopped().Wait(defs.TestReadTimeout))
	assert.Equal(t, 1, writer.NumCalls())
}

func TestDispatcherEmptyBatchSkipsUpstream(t *testing.T) {
	writer := btest.NewScriptedBulkWriter()
	disp := launchTestDispatcher(t, writer, base.GeneratedPartitionKey{}, 2, nil)

	assert.NoError(t, waitResult(t, disp.Dispatch(base.NewBatch(nil))))

	disp.Close()
	assert.True(t, disp.Stopped().Wait(defs.TestReadTimeout))
	assert.Equal(t, 0, writer.NumCalls())
}

func TestDispatcherRetriesUntilSuccess(t *testing.T) {
	writer := btest.NewScriptedBulkWriter(errors.New("brief outage"), errors.New("still down"), nil)
	disp := launchTestDispatcher(t, writer, base.GeneratedPartitionKey{}, 2, nil)

	batch := base.NewBatch([]base.Message{{Value: "a"}, {Value: "b"}})
	assert.NoError(t, waitResult(t, disp.Dispatch(batch)))
	assert.Equal(t, 3, writer.NumCalls())

	// records are built once per batch: retries resend the identical records, generated
	// partition keys included
	first, ok := writer.NextCall(defs.TestReadTimeout)
	assert.True(t, ok)
	assert.NotEmpty(t, first[0].PartitionKey)
	assert.NotEqual(t, first[0].PartitionKey, first[1].PartitionKey)
	for i := 0; i < 2; i++ {
		retried, ok := writer.NextCall(defs.TestReadTimeout)
		assert.True(t, ok)
		assert.Equal(t, first, retried)
	}

	disp.Close()
	assert.True(t, disp.Stopped().Wait(defs.TestReadTimeout))
}

func TestDispatcherExhaustsRetries(t *testing.T) {
	writer := btest.NewFailingBulkWriter(errors.New("connection refused"))
	observed := make(chan *base.ExhaustedBatchError, 10)
	disp := launchTestDispatcher(t, writer, base.FixedPartitionKey("pk"), 2, func(exhausted *base.ExhaustedBatchError) {
		observed <- exhausted
	})

	batch := base.NewBatch([]base.Message{{Value: "a"}, {Value: "b"}})
	err := waitResult(t, disp.Dispatch(batch))
	assert.Error(t, err)
	assert.ErrorContains(t, err, "connection refused")

	var exhausted *base.ExhaustedBatchError
	assert.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, batch.ID, exhausted.Batch.ID)
	assert.Equal(t, batch.Messages, exhausted.Records())
	assert.Same(t, &batch.Messages[0], &exhausted.Records()[0])
	assert.Equal(t, 3, writer.NumCalls())

	// the observer sees the same failure exactly once
	select {
	case fromObserver := <-observed:
		assert.Same(t, exhausted, fromObserver)
	case <-time.After(defs.TestReadTimeout):
		assert.Fail(t, "exhaustion not observed in time")
	}
	disp.Close()
	assert.True(t, disp.Stopped().Wait(defs.TestReadTimeout))
	assert.Equal(t, 0, len(observed))
}

func TestDispatcherNoRetryWhenDisabled(t *testing.T) {
	writer := btest.NewFailingBulkWriter(errors.New("rejected"))
	disp := launchTestDispatcher(t, writer, base.FixedPartitionKey("pk"), 0, nil)

	err := waitResult(t, disp.Dispatch(base.NewBatch([]base.Message{{Value: "only"}})))
	var exhausted *base.ExhaustedBatchError
	assert.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 1, exhausted.Attempts)
	assert.Equal(t, 1, writer.NumCalls())

	disp.Close()
	assert.True(t, disp.Stopped().Wait(defs.TestReadTimeout))
}

func TestDispatcherDerivedPartitionKeys(t *testing.T) {
	writer := btest.NewScriptedBulkWriter()
	keySource := base.DerivedPartitionKey(func(message base.Message) string {
		return message.Value.(map[string]interface{})["tenant"].(string)
	})
	disp := launchTestDispatcher(t, writer, keySource, 0, nil)

	batch := base.NewBatch([]base.Message{
		{Value: map[string]interface{}{"tenant": "acme"}},
		{Value: map[string]interface{}{"tenant": "umbrella"}},
	})
	assert.NoError(t, waitResult(t, disp.Dispatch(batch)))

	records, ok := writer.NextCall(defs.TestReadTimeout)
	assert.True(t, ok)
	assert.Equal(t, "acme", records[0].PartitionKey)
	assert.Equal(t, "umbrella", records[1].PartitionKey)

	disp.Close()
	assert.True(t, disp.Stopped().Wait(defs.TestReadTimeout))
}
