// Package httpbulk delivers batches to HTTP bulk-ingestion endpoints
//
// Each batch is posted as a single JSON array of record objects, optionally gzipped. A response
// status below 300 confirms the whole batch.
package httpbulk

import (
	"fmt"
	"net/url"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/relex/bulksink/base"
	"github.com/relex/bulksink/base/bconfig"
	"github.com/relex/gotils/logger"
	"github.com/relex/gotils/promexporter/promreg"
)

// defaultMaxBodySize caps the uncompressed request body, matching common ingestion API limits
const defaultMaxBodySize = 5 * datasize.MB

// Config defines configuration for HTTP bulk upstream
type Config struct {
	bconfig.Header `yaml:",inline"`
	Address        string            `yaml:"address"`
	HTTPTimeout    time.Duration     `yaml:"httpTimeout"`
	MaxBodySize    datasize.ByteSize `yaml:"maxBodySize"` // max uncompressed body size, 5MB if unspecified
	Compression    bool              `yaml:"compression"`
	APIKeyHeader   string            `yaml:"apiKeyHeader"` // header to carry the API key, X-API-Key if unspecified
	APIKeyEnv      string            `yaml:"apiKeyEnv"`    // environment variable holding the API key, no auth header if unspecified
}

// NewBulkWriter creates the posting writer; the endpoint is not probed until first delivery
func (cfg *Config) NewBulkWriter(parentLogger logger.Logger, streamName string, metricCreator promreg.MetricCreator) (base.BulkWriter, error) {
	return newBulkWriter(parentLogger, *cfg, streamName, metricCreator)
}

// VerifyConfig verifies the configuration
func (cfg *Config) VerifyConfig() error {
	if len(cfg.Address) == 0 {
		return fmt.Errorf(".address is unspecified")
	}
	parsed, perr := url.Parse(cfg.Address)
	if perr != nil {
		return fmt.Errorf(".address is invalid: %w", perr)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf(".address is invalid: unsupported scheme '%s'", parsed.Scheme)
	}

	if cfg.HTTPTimeout == 0 {
		return fmt.Errorf(".httpTimeout is unspecified")
	}
	return nil
}
