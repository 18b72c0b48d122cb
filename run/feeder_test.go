package run

import (
	"strings"
	"testing"
	"time"

	"github.com/relex/bulksink/base"
	"github.com/relex/bulksink/base/btest"
	"github.com/relex/bulksink/defs"
	"github.com/relex/bulksink/sink"
	"github.com/relex/gotils/logger"
	"github.com/relex/gotils/promexporter/promreg"
	"github.com/stretchr/testify/assert"
)

func newFeederTestEngine(t *testing.T, metricPrefix string, sizeThreshold int) (*sink.Engine, *btest.ScriptedBulkWriter) {
	writer := btest.NewScriptedBulkWriter()
	config := sink.Config{
		StreamName: "feedtest",
		Buffer: base.BufferConfig{
			SizeThreshold: sizeThreshold,
			FlushInterval: time.Second,
			MaxRetries:    0,
		},
	}
	engine, err := config.NewEngineWithWriter(logger.WithField("test", t.Name()), writer,
		promreg.NewMetricFactory(metricPrefix, nil, nil))
	assert.Nil(t, err)
	return engine, writer
}

func TestFeederWritesAllLines(t *testing.T) {
	engine, writer := newFeederTestEngine(t, "testfeeder1_", 3)

	// blank lines are skipped and a malformed line is rejected without stopping the loop
	input := "{\"n\":1}\r\n\n{\"n\":2}\nnot json\n{\"n\":3}\n"
	feeder := NewFeeder(logger.WithField("test", t.Name()), strings.NewReader(input), engine)
	feeder.Launch()

	records, ok := writer.NextCall(defs.TestReadTimeout)
	assert.True(t, ok)
	assert.Equal(t, 3, len(records))
	assert.Equal(t, `{"n":1}`, string(records[0].Data))
	assert.Equal(t, `{"n":2}`, string(records[1].Data))
	assert.Equal(t, `{"n":3}`, string(records[2].Data))

	assert.True(t, feeder.Stopped().Wait(defs.TestReadTimeout))
	engine.Shutdown()
	assert.True(t, writer.Closed())
}

func TestFeederSkipsOversizedLine(t *testing.T) {
	engine, writer := newFeederTestEngine(t, "testfeeder2_", 1)

	oversized := "{\"pad\":\"" + strings.Repeat("x", 2*defs.InputMaxRecordBytes) + "\"}\n"
	feeder := NewFeeder(logger.WithField("test", t.Name()), strings.NewReader(oversized+"{\"ok\":true}\n"), engine)
	feeder.Launch()

	records, ok := writer.NextCall(defs.TestReadTimeout)
	assert.True(t, ok)
	assert.Equal(t, 1, len(records))
	assert.Equal(t, `{"ok":true}`, string(records[0].Data))

	assert.True(t, feeder.Stopped().Wait(defs.TestReadTimeout))
	engine.Shutdown()
	assert.Equal(t, 1, writer.NumCalls())
}
