// Package kafka delivers batches to Kafka-compatible brokers
//
// Records become individual messages keyed by partition key, produced in one synchronous write
// per batch with full-ISR acknowledgement.
package kafka

import (
	"fmt"
	"net"
	"time"

	"github.com/relex/bulksink/base"
	"github.com/relex/bulksink/base/bconfig"
	"github.com/relex/gotils/logger"
	"github.com/relex/gotils/promexporter/promreg"
)

// defaultBatchTimeout flushes partial producer batches almost immediately, as batching is
// already done upstream of the writer
const defaultBatchTimeout = 10 * time.Millisecond

// Config defines configuration for Kafka upstream
type Config struct {
	bconfig.Header `yaml:",inline"`
	Brokers        []string      `yaml:"brokers"`
	Topic          string        `yaml:"topic"`        // destination topic, the stream name if unspecified
	BatchTimeout   time.Duration `yaml:"batchTimeout"` // producer-side flush interval, 10ms if unspecified
}

// NewBulkWriter creates the producing writer; brokers are not contacted until first delivery
func (cfg *Config) NewBulkWriter(parentLogger logger.Logger, streamName string, metricCreator promreg.MetricCreator) (base.BulkWriter, error) {
	return newBulkWriter(parentLogger, *cfg, streamName, metricCreator), nil
}

// VerifyConfig verifies the configuration
func (cfg *Config) VerifyConfig() error {
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf(".brokers is unspecified")
	}
	for i, broker := range cfg.Brokers {
		if _, _, err := net.SplitHostPort(broker); err != nil {
			return fmt.Errorf(".brokers[%d] is invalid: %w", i, err)
		}
	}
	return nil
}
