// Package fluentforward delivers batches to fluentd and compatible receivers via the Forward protocol
//
// Each batch is forwarded as a single tagged message carrying one event per record, with the
// stream name as the tag, and confirmed by chunk acknowledgement before BulkPut returns.
package fluentforward

import (
	"fmt"
	"net"

	"github.com/relex/bulksink/base"
	"github.com/relex/bulksink/base/bconfig"
	"github.com/relex/fluentlib/protocol/forwardprotocol"
	"github.com/relex/gotils/logger"
	"github.com/relex/gotils/promexporter/promreg"
)

// Config defines configuration for fluentd-forward upstream
type Config struct {
	bconfig.Header `yaml:",inline"`
	Address        string                      `yaml:"address"`
	TLS            bool                        `yaml:"tls"`
	Secret         string                      `yaml:"secret"`
	MessageMode    forwardprotocol.MessageMode `yaml:"messageMode"`
}

// NewBulkWriter creates the forwarding writer; the connection is opened on first delivery
func (cfg *Config) NewBulkWriter(parentLogger logger.Logger, streamName string, metricCreator promreg.MetricCreator) (base.BulkWriter, error) {
	return newBulkWriter(parentLogger, *cfg, streamName, metricCreator), nil
}

// VerifyConfig verifies the configuration
func (cfg *Config) VerifyConfig() error {
	if len(cfg.Address) == 0 {
		return fmt.Errorf(".address is unspecified")
	}
	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		return fmt.Errorf(".address is invalid: %w", err)
	}

	if cfg.TLS && len(cfg.Secret) == 0 {
		return fmt.Errorf(".secret is unspecified when tls=true")
	}

	switch cfg.MessageMode {
	case "": // forward mode by default
	case forwardprotocol.ModeForward:
	case forwardprotocol.ModePackedForward:
	case forwardprotocol.ModeCompressedPackedForward:
	default:
		return fmt.Errorf(".messageMode: '%s' is not a valid mode", cfg.MessageMode)
	}
	return nil
}
