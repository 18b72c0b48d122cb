// Package sink assembles the write-side engine: payload normalization, priority routing,
// batching and dispatching into one upstream stream
package sink

import (
	"fmt"
	"strings"

	"github.com/relex/bulksink/base"
	"github.com/relex/bulksink/base/bconfig"
	"github.com/relex/bulksink/route"
	"github.com/relex/bulksink/util/stringtemplate"
)

// Config defines one stream sink: where records go, how they are keyed and how they are batched
//
// Buffer left at zero value means base.DefaultBufferConfig; when loading from YAML the defaults
// must be pre-filled before unmarshalling so that partial buffer sections inherit them per field.
type Config struct {
	StreamName       string                           `yaml:"streamName"`
	ObjectMode       bool                             `yaml:"objectMode"`
	PartitionKey     string                           `yaml:"partitionKey"`
	Priority         route.RouterConfig               `yaml:"priority"`
	Buffer           base.BufferConfig                `yaml:"buffer"`
	Upstream         bconfig.BulkUpstreamConfigHolder `yaml:"upstream"`
	PriorityOverride base.PriorityRouter              `yaml:"-"` // nil or replace the priority section with a custom router
}

// VerifyConfig checks the configuration
//
// The upstream section is optional here: embedders providing their own BulkWriter via
// NewEngineWithWriter don't need one. NewEngine demands it.
func (config *Config) VerifyConfig() error {
	if config.StreamName == "" {
		return fmt.Errorf(".streamName is unspecified")
	}
	if config.Buffer != (base.BufferConfig{}) {
		if err := config.Buffer.VerifyConfig(); err != nil {
			return fmt.Errorf(".buffer%s", err.Error())
		}
	}
	if err := config.Priority.VerifyConfig(); err != nil {
		return err
	}
	if _, err := config.newPartitionKeySource(); err != nil {
		return fmt.Errorf(".partitionKey: %w", err)
	}
	if config.Upstream.Value != nil {
		if err := config.Upstream.Value.VerifyConfig(); err != nil {
			return fmt.Errorf(".upstream%s", err.Error())
		}
	}
	return nil
}

// bufferOrDefault substitutes the default batching parameters when none are configured
func (config *Config) bufferOrDefault() base.BufferConfig {
	if config.Buffer == (base.BufferConfig{}) {
		return base.DefaultBufferConfig()
	}
	return config.Buffer
}

// newPartitionKeySource resolves the partitionKey setting: empty means a generated key per
// message, a template with $variables derives keys from payload fields and anything else is a
// fixed key shared by all records
func (config *Config) newPartitionKeySource() (base.PartitionKeySource, error) {
	key := config.PartitionKey
	switch {
	case key == "":
		return base.GeneratedPartitionKey{}, nil
	case strings.ContainsRune(key, '$'):
		expander, err := stringtemplate.NewExpander(key, payloadVariableResolver)
		if err != nil {
			return nil, err
		}
		return base.DerivedPartitionKey(func(message base.Message) string {
			fields, _ := message.Value.(map[string]interface{})
			return expander.Run(fields)
		}), nil
	default:
		return base.FixedPartitionKey(key), nil
	}
}

func payloadVariableResolver(name string) (stringtemplate.PartProvider, error) {
	return func(source stringtemplate.RecordType) string {
		return base.FieldString(source[name])
	}, nil
}
