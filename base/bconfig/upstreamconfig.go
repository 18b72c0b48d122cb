package bconfig

import (
	"github.com/relex/bulksink/base"
	"github.com/relex/gotils/logger"
	"github.com/relex/gotils/promexporter/promreg"
)

// BulkUpstreamConfig provides an interface for the configuration of BulkWriter implementations,
// selected by the "type" property of the upstream section
//
// All the implementations should support YAML unmarshalling and embed Header to answer GetType
type BulkUpstreamConfig interface {
	// GetType returns the type name under which this upstream is registered
	GetType() string

	// NewBulkWriter creates the writer delivering record lists to this upstream.
	// streamName identifies the destination stream, index or topic depending on the upstream type.
	NewBulkWriter(parentLogger logger.Logger, streamName string, metricCreator promreg.MetricCreator) (base.BulkWriter, error)

	VerifyConfig() error
}

// Header holds the type tag for embedding in BulkUpstreamConfig implementations
type Header struct {
	Type string `yaml:"type"`
}

// GetType returns the type name
func (header *Header) GetType() string {
	return header.Type
}
