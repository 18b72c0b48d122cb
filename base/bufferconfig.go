package base

import (
	"fmt"
	"time"

	"github.com/relex/bulksink/defs"
)

// BufferConfig defines the buffer section of sink configuration
//
// Size flush and time flush are both active once the queue is non-empty; whichever fires first
// wins and cancels the other
type BufferConfig struct {
	SizeThreshold int           `yaml:"sizeThreshold"` // Numbers of queued messages triggering a flush
	FlushInterval time.Duration `yaml:"flushInterval"` // Max time a non-empty queue may wait before a flush
	MaxRetries    int           `yaml:"maxRetries"`    // Numbers of additional delivery attempts after the first failure
}

// DefaultBufferConfig returns a BufferConfig with all fields at their defaults
//
// Used to pre-fill configuration before YAML unmarshalling, so that explicit zeros (e.g.
// maxRetries: 0) survive while omitted fields keep their defaults
func DefaultBufferConfig() BufferConfig {
	return BufferConfig{
		SizeThreshold: defs.BufferDefaultSizeThreshold,
		FlushInterval: defs.BufferDefaultFlushInterval,
		MaxRetries:    defs.BufferDefaultMaxRetries,
	}
}

// VerifyConfig verifies the buffer section
func (cfg BufferConfig) VerifyConfig() error {
	if cfg.SizeThreshold <= 0 {
		return fmt.Errorf(".sizeThreshold must be positive: %d", cfg.SizeThreshold)
	}
	if cfg.FlushInterval <= 0 {
		return fmt.Errorf(".flushInterval must be positive: %s", cfg.FlushInterval)
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf(".maxRetries must not be negative: %d", cfg.MaxRetries)
	}
	return nil
}
