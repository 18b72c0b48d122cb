package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/relex/bulksink/base"
	"github.com/relex/bulksink/defs"
	"github.com/relex/bulksink/upstream/baseupstream"
	"github.com/relex/gotils/logger"
	"github.com/relex/gotils/promexporter/promreg"
	"github.com/segmentio/kafka-go"
)

// bulkWriter produces batches to one topic, partitioned by record key
//
// Calls are made from a single dispatcher goroutine; the underlying producer connects lazily
// and reconnects on its own.
type bulkWriter struct {
	logger   logger.Logger
	producer *kafka.Writer
	metrics  baseupstream.WriterMetrics
}

func newBulkWriter(parentLogger logger.Logger, config Config, streamName string, metricCreator promreg.MetricCreator) *bulkWriter {
	topic := config.Topic
	if len(topic) == 0 {
		topic = streamName
	}
	batchTimeout := config.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = defaultBatchTimeout
	}

	writer := &bulkWriter{
		logger: parentLogger.WithField(defs.LabelComponent, "KafkaWriter"),
		producer: &kafka.Writer{
			Addr:         kafka.TCP(config.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: batchTimeout,
		},
		metrics: baseupstream.NewWriterMetrics(metricCreator, "kafka"),
	}
	writer.metrics.OnOpening()
	return writer
}

// BulkPut produces all records in one write; the whole batch is confirmed or failed together
func (writer *bulkWriter) BulkPut(records []base.BulkRecord, deadline time.Time) error {
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	writer.metrics.OnPut()
	if err := writer.producer.WriteMessages(ctx, buildMessages(records)...); err != nil {
		writer.metrics.OnError(err)
		return fmt.Errorf("failed to produce batch: %w", err)
	}

	writer.metrics.OnDelivered(len(records), base.SumRecordDataLength(records))
	return nil
}

// Close shuts down the producer
func (writer *bulkWriter) Close() {
	if err := writer.producer.Close(); err != nil {
		writer.logger.Warnf("failed to close producer: %s", err.Error())
	}
	writer.logger.Info("closed")
}

func buildMessages(records []base.BulkRecord) []kafka.Message {
	timestamp := time.Now()
	messages := make([]kafka.Message, len(records))
	for i, record := range records {
		messages[i] = kafka.Message{
			Key:   []byte(record.PartitionKey),
			Value: record.Data,
			Time:  timestamp,
		}
	}
	return messages
}
