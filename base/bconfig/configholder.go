package bconfig

import (
	"fmt"

	"github.com/relex/bulksink/util"
	"github.com/relex/gotils/logger"
	"gopkg.in/yaml.v3"
)

// UpstreamCreatorTable maps upstream type names to constructors of their Config structs
type UpstreamCreatorTable map[string]func() BulkUpstreamConfig

var upstreamCreators = UpstreamCreatorTable{}

// RegisterUpstreamTypes registers constructors of upstream configurations, to be selected by the
// "type" property when an upstream section is unmarshalled
//
// Each type name may only be registered once
func RegisterUpstreamTypes(table UpstreamCreatorTable) {
	for name, create := range table {
		if _, exists := upstreamCreators[name]; exists {
			logger.Panicf("already registered upstream type '%s'", name)
		}
		upstreamCreators[name] = create
	}
}

// BulkUpstreamConfigHolder wraps the chosen BulkUpstreamConfig
//
// The medium is used to support YAML unmarshalling of interfaces: the "type" property must come
// first and selects the concrete Config to decode into
type BulkUpstreamConfigHolder struct {
	Location string `yaml:"-"`
	Value    BulkUpstreamConfig
}

func (holder BulkUpstreamConfigHolder) String() string {
	return fmt.Sprint(holder.Value)
}

// MarshalYAML provides custom marshalling to export readable document. The result is not reversible.
func (holder BulkUpstreamConfigHolder) MarshalYAML() (interface{}, error) {
	return holder.Value, nil
}

// UnmarshalYAML provides custom unmarshalling for the implementations of BulkUpstreamConfig
func (holder *BulkUpstreamConfigHolder) UnmarshalYAML(value *yaml.Node) error {
	// Find type
	if len(value.Content) < 2 {
		return util.NewYamlError(value, ".type is undefined")
	}
	if value.Content[0].Kind != yaml.ScalarNode || value.Content[0].Value != "type" {
		return util.NewYamlError(value, fmt.Sprintf(".type is not the first property, which is: %v", value.Content[0]))
	}
	typeName := value.Content[1].Value

	create, found := upstreamCreators[typeName]
	if !found {
		return util.NewYamlError(value, fmt.Sprintf(".type: unsupported '%s'", typeName))
	}
	holder.Value = create()

	if err := value.Decode(holder.Value); err != nil {
		return util.NewYamlError(value, err.Error())
	}
	holder.Location = util.GetYamlLocation(value)
	return nil
}
