// Package upstream registers the list of all upstream implementations
package upstream

import (
	"github.com/relex/bulksink/base/bconfig"
	"github.com/relex/bulksink/upstream/fluentforward"
	"github.com/relex/bulksink/upstream/httpbulk"
	"github.com/relex/bulksink/upstream/kafka"
)

func init() {
	bconfig.RegisterUpstreamTypes(bconfig.UpstreamCreatorTable{
		"fluentdForward": func() bconfig.BulkUpstreamConfig { return &fluentforward.Config{} },
		"httpBulk":       func() bconfig.BulkUpstreamConfig { return &httpbulk.Config{} },
		"kafka":          func() bconfig.BulkUpstreamConfig { return &kafka.Config{} },
	})
}

// Register registers all upstream config types
func Register() {
	// trigger init()
}
