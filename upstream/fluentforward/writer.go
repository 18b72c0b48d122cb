package fluentforward

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/relex/bulksink/base"
	"github.com/relex/bulksink/defs"
	"github.com/relex/bulksink/upstream/baseupstream"
	"github.com/relex/gotils/logger"
	"github.com/relex/gotils/promexporter/promreg"
)

// bulkWriter delivers batches over a single connection, reopened on demand after failures
//
// Calls are made from a single dispatcher goroutine; delivery is confirmed by chunk
// acknowledgement before BulkPut returns.
type bulkWriter struct {
	logger  logger.Logger
	config  Config
	encoder *messageEncoder
	conn    *forwardConnection
	metrics baseupstream.WriterMetrics
}

func newBulkWriter(parentLogger logger.Logger, config Config, streamName string, metricCreator promreg.MetricCreator) *bulkWriter {
	return &bulkWriter{
		logger:  parentLogger.WithField(defs.LabelComponent, "FluentForwardWriter"),
		config:  config,
		encoder: newMessageEncoder(streamName, config.MessageMode),
		conn:    nil,
		metrics: baseupstream.NewWriterMetrics(metricCreator, "fluentdForward"),
	}
}

// BulkPut forwards all records as one message and waits for its acknowledgement
func (writer *bulkWriter) BulkPut(records []base.BulkRecord, deadline time.Time) error {
	fconn, cerr := writer.ensureConnection()
	if cerr != nil {
		writer.metrics.OnError(cerr)
		return cerr
	}

	chunkID := uuid.NewString()
	packet, perr := writer.encoder.EncodeBatchAsMessage(chunkID, records)
	if perr != nil {
		writer.metrics.OnError(perr)
		return fmt.Errorf("failed to encode message: %w", perr)
	}

	writer.metrics.OnPut()
	if err := writer.deliver(fconn, packet, chunkID, deadline); err != nil {
		// the stream state is undefined after an error, reopen on the next call
		writer.dropConnection()
		writer.metrics.OnError(err)
		return err
	}

	writer.metrics.OnDelivered(len(records), len(packet))
	return nil
}

// Close drops the connection; batches are confirmed or reported failed before this point
func (writer *bulkWriter) Close() {
	writer.dropConnection()
	writer.logger.Info("closed")
}

func (writer *bulkWriter) deliver(fconn *forwardConnection, packet []byte, chunkID string, deadline time.Time) error {
	if err := fconn.SendMessage(packet, deadline); err != nil {
		return err
	}

	ack, aerr := fconn.ReadChunkAck(time.Now().Add(defs.UpstreamAckTimeout))
	if aerr != nil {
		return aerr
	}
	if ack != chunkID {
		return fmt.Errorf("received unknown ACK '%s' for chunk %s", ack, chunkID)
	}
	return nil
}

func (writer *bulkWriter) ensureConnection() (*forwardConnection, error) {
	if writer.conn != nil {
		return writer.conn, nil
	}

	fconn, err := openForwardConnection(writer.logger, writer.config)
	if err != nil {
		return nil, err
	}
	writer.metrics.OnOpening()
	writer.conn = fconn
	return fconn, nil
}

func (writer *bulkWriter) dropConnection() {
	if writer.conn == nil {
		return
	}
	writer.conn.Close()
	writer.conn = nil
}
