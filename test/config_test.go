package test

import (
	"testing"

	"github.com/relex/bulksink/run"
	"github.com/relex/bulksink/testdata"
	"github.com/relex/bulksink/util"
	"github.com/stretchr/testify/assert"
)

func TestConfigDump(t *testing.T) {
	config, cerr := run.LoadConfigFile(testdata.GetConfigPath())
	assert.Nil(t, cerr)

	dump, derr := util.MarshalYaml(config)
	assert.Nil(t, derr)

	// the dump is readable but not reversible; spot-check the effective values
	assert.Contains(t, dump, "streamName: events-main")
	assert.Contains(t, dump, "partitionKey: $tenant")
	assert.Contains(t, dump, "flushInterval: 1s")
	assert.Contains(t, dump, "type: fluentdForward")
	assert.Contains(t, dump, "critical")
}
