package httpbulk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/relex/bulksink/base"
	"github.com/relex/bulksink/defs"
	"github.com/relex/bulksink/upstream/baseupstream"
	"github.com/relex/gotils/logger"
	"github.com/relex/gotils/promexporter/promreg"
)

// bulkWriter posts batches to the configured endpoint, one request per batch
//
// Calls are made from a single dispatcher goroutine. The request template and body buffer are
// reused across calls.
type bulkWriter struct {
	logger           logger.Logger
	client           *http.Client
	request          *http.Request
	maxBodySize      int
	useCompression   bool
	reusedBodyBuffer *bytes.Buffer
	metrics          baseupstream.WriterMetrics
}

// httpRecord is one element of the posted JSON array
type httpRecord struct {
	PartitionKey string          `json:"partitionKey"`
	Data         json.RawMessage `json:"data"`
}

func newBulkWriter(parentLogger logger.Logger, config Config, streamName string, metricCreator promreg.MetricCreator) (*bulkWriter, error) {
	rq, rqErr := http.NewRequest(http.MethodPost, config.Address, nil)
	if rqErr != nil {
		return nil, fmt.Errorf("failed to prepare request: %w", rqErr)
	}
	rq.Header.Add("Content-Type", "application/json")
	rq.Header.Add("X-Stream-Name", streamName)
	if config.Compression {
		rq.Header.Add("Content-Encoding", "gzip")
	}
	if len(config.APIKeyEnv) > 0 {
		header := config.APIKeyHeader
		if len(header) == 0 {
			header = "X-API-Key"
		}
		rq.Header.Add(header, os.Getenv(config.APIKeyEnv))
	}

	maxBodySize := config.MaxBodySize
	if maxBodySize == 0 {
		maxBodySize = defaultMaxBodySize
	}

	return &bulkWriter{
		logger:           parentLogger.WithField(defs.LabelComponent, "HTTPBulkWriter"),
		client:           &http.Client{Timeout: config.HTTPTimeout},
		request:          rq,
		maxBodySize:      int(maxBodySize.Bytes()),
		useCompression:   config.Compression,
		reusedBodyBuffer: bytes.NewBuffer(make([]byte, 0, 64*1024)),
		metrics:          baseupstream.NewWriterMetrics(metricCreator, "httpBulk"),
	}, nil
}

// BulkPut posts all records as one JSON array; any status below 300 confirms the batch
func (writer *bulkWriter) BulkPut(records []base.BulkRecord, _ time.Time) error {
	body, berr := writer.encodeBody(records)
	if berr != nil {
		writer.metrics.OnError(berr)
		return berr
	}

	writer.metrics.OnPut()
	writer.request.Body = io.NopCloser(bytes.NewReader(body))
	defer func() { writer.request.Body = nil }()

	resp, err := writer.client.Do(writer.request)
	if err != nil {
		writer.metrics.OnError(err)
		return fmt.Errorf("failed to post batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, rerr := io.ReadAll(resp.Body)
		if rerr != nil {
			writer.metrics.OnError(rerr)
			return fmt.Errorf("couldn't read response body: %w", rerr)
		}
		serr := fmt.Errorf("got a status %d with body %s", resp.StatusCode, respBody)
		writer.metrics.OnError(serr)
		return serr
	}

	writer.metrics.OnDelivered(len(records), len(body))
	return nil
}

// Close is a no-op, http.Client needs no shutdown
func (writer *bulkWriter) Close() {
	writer.logger.Info("closed")
}

// encodeBody renders records as a JSON array, gzipped when compression is on
func (writer *bulkWriter) encodeBody(records []base.BulkRecord) ([]byte, error) {
	wrapped := make([]httpRecord, len(records))
	for i, record := range records {
		wrapped[i] = httpRecord{
			PartitionKey: record.PartitionKey,
			Data:         json.RawMessage(record.Data),
		}
	}

	plain, jerr := json.Marshal(wrapped)
	if jerr != nil {
		return nil, fmt.Errorf("failed to encode body: %w", jerr)
	}
	if len(plain) > writer.maxBodySize {
		return nil, fmt.Errorf("body size %d exceeds the limit of %d bytes", len(plain), writer.maxBodySize)
	}
	if !writer.useCompression {
		return plain, nil
	}

	writer.reusedBodyBuffer.Reset()
	gzipper, gzErr := gzip.NewWriterLevel(writer.reusedBodyBuffer, gzip.BestSpeed)
	if gzErr != nil {
		return nil, gzErr
	}
	if _, err := gzipper.Write(plain); err != nil {
		return nil, err
	}
	if err := gzipper.Close(); err != nil {
		return nil, err
	}
	return writer.reusedBodyBuffer.Bytes(), nil
}
