package fluentforward

import (
	"os"
	"testing"
	"time"

	"github.com/relex/bulksink/base"
	"github.com/relex/bulksink/defs"
	"github.com/relex/fluentlib/protocol/forwardprotocol"
	"github.com/relex/fluentlib/server"
	"github.com/relex/fluentlib/server/receivers"
	"github.com/relex/gotils/logger"
	"github.com/relex/gotils/promexporter/promreg"
	"github.com/stretchr/testify/assert"
)

func TestWriterForwardsBatches(t *testing.T) {
	recv, msgChannel := receivers.NewMessageCollector(defs.TestReadTimeout)

	srvConf := server.Config{}
	srvConf.Address = "localhost:0"
	srv, srvAddr := server.LaunchServer(logger.WithField("test", t.Name()), srvConf, recv)
	defer srv.Shutdown()

	config := Config{}
	config.Address = srvAddr.String()
	writer, werr := config.NewBulkWriter(logger.WithField("test", t.Name()), "events-main",
		promreg.NewMetricFactory("testffwriter_", nil, nil))
	assert.NoError(t, werr)
	defer writer.Close()

	assert.NoError(t, writer.BulkPut([]base.BulkRecord{
		{PartitionKey: "pk-1", Data: []byte(`{"n":1}`)},
		{PartitionKey: "pk-2", Data: []byte(`{"n":2}`)},
	}, time.Now().Add(defs.TestReadTimeout)))

	message := <-msgChannel
	assert.Equal(t, "events-main", message.Tag)
	if assert.Equal(t, 2, len(message.Entries)) {
		assert.Equal(t, "pk-1", message.Entries[0].Record["partitionKey"])
		assert.Equal(t, `{"n":1}`, message.Entries[0].Record["data"])
		assert.Equal(t, "pk-2", message.Entries[1].Record["partitionKey"])
		assert.Equal(t, `{"n":2}`, message.Entries[1].Record["data"])
	}

	// second batch reuses the established connection
	assert.NoError(t, writer.BulkPut([]base.BulkRecord{
		{PartitionKey: "pk-3", Data: []byte(`{"n":3}`)},
	}, time.Now().Add(defs.TestReadTimeout)))

	message = <-msgChannel
	if assert.Equal(t, 1, len(message.Entries)) {
		assert.Equal(t, `{"n":3}`, message.Entries[0].Record["data"])
	}
}

func TestWriterForwardsCompressedBatch(t *testing.T) {
	recv, msgChannel := receivers.NewMessageCollector(defs.TestReadTimeout)

	srvConf := server.Config{}
	srvConf.Address = "localhost:0"
	srv, srvAddr := server.LaunchServer(logger.WithField("test", t.Name()), srvConf, recv)
	defer srv.Shutdown()

	config := Config{}
	config.Address = srvAddr.String()
	config.MessageMode = forwardprotocol.ModeCompressedPackedForward
	writer, werr := config.NewBulkWriter(logger.WithField("test", t.Name()), "events-gz",
		promreg.NewMetricFactory("testffgzwriter_", nil, nil))
	assert.NoError(t, werr)
	defer writer.Close()

	assert.NoError(t, writer.BulkPut([]base.BulkRecord{
		{PartitionKey: "pk-1", Data: []byte(`{"compressed":true}`)},
	}, time.Now().Add(defs.TestReadTimeout)))

	message := <-msgChannel
	assert.Equal(t, "events-gz", message.Tag)
	if assert.Equal(t, 1, len(message.Entries)) {
		assert.Equal(t, `{"compressed":true}`, message.Entries[0].Record["data"])
	}
}

func TestOpenWriterConnection(t *testing.T) {
	recv := receivers.NewMessageWriter(os.Stdout)

	t.Run("connect fails on protocol mismatch", func(t *testing.T) {
		srvCfg := server.Config{Address: "localhost:0", TLS: false}
		srv, srvAddr := server.LaunchServer(logger.WithField("test", t.Name()), srvCfg, recv)
		defer srv.Shutdown()

		// TLS handshake against a plaintext server
		clientCfg := Config{Address: srvAddr.String(), TLS: true}
		_, err := openForwardConnection(logger.Root(), clientCfg)
		assert.ErrorContains(t, err, "failed to connect:")
	})

	t.Run("login fails on wrong secret", func(t *testing.T) {
		srvCfg := server.Config{Address: "localhost:0", Secret: "real pass", TLS: false}
		srv, srvAddr := server.LaunchServer(logger.WithField("test", t.Name()), srvCfg, recv)
		defer srv.Shutdown()

		clientCfg := Config{Address: srvAddr.String(), Secret: "wrong pass"}
		_, err := openForwardConnection(logger.Root(), clientCfg)
		assert.ErrorContains(t, err, "login rejected:")
	})
}

func TestWriterConfigErrors(t *testing.T) {
	config := Config{}
	assert.ErrorContains(t, config.VerifyConfig(), ".address is unspecified")

	config.Address = "localhost"
	assert.ErrorContains(t, config.VerifyConfig(), ".address is invalid:")

	config.Address = "localhost:24224"
	config.TLS = true
	assert.ErrorContains(t, config.VerifyConfig(), ".secret is unspecified when tls=true")

	config.Secret = "pass"
	config.MessageMode = "TripleForward"
	assert.ErrorContains(t, config.VerifyConfig(), ".messageMode: 'TripleForward' is not a valid mode")

	config.MessageMode = forwardprotocol.ModePackedForward
	assert.NoError(t, config.VerifyConfig())
}
