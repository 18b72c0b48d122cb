package run

import (
	"fmt"

	"github.com/relex/bulksink/base"
	"github.com/relex/bulksink/sink"
	"github.com/relex/bulksink/upstream"
	"github.com/relex/bulksink/util"
	"gopkg.in/yaml.v3"
)

// Config defines the root of bulksink config file
type Config struct {
	Anchors AnchorsConfig `yaml:"anchors"`
	Sink    sink.Config   `yaml:"sink"`
}

// AnchorsConfig reserves the anchors section of the config file
//
// The section only exists to hold YAML anchors referenced from other sections, so
// its contents are skipped entirely.
type AnchorsConfig struct {
}

func init() {
	upstream.Register()
}

// LoadConfigFile loads config from the path and verifies all configurations
func LoadConfigFile(filepath string) (*Config, error) {
	cref := &Config{}
	// pre-fill defaults so that fields absent from the file keep them
	cref.Sink.Buffer = base.DefaultBufferConfig()
	if err := util.UnmarshalYamlFile(filepath, cref); err != nil {
		return nil, err
	}
	if err := cref.Sink.VerifyConfig(); err != nil {
		return nil, fmt.Errorf("sink%s", err.Error())
	}
	if cref.Sink.Upstream.Value == nil {
		return nil, fmt.Errorf("sink.upstream is unspecified")
	}
	return cref, nil
}

// MarshalYAML dumps the section as empty since anchors are expanded into their use sites
func (holder AnchorsConfig) MarshalYAML() (interface{}, error) {
	return []string(nil), nil
}

// UnmarshalYAML skips the anchors section
func (holder *AnchorsConfig) UnmarshalYAML(value *yaml.Node) error {
	return nil
}
