package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

type yamlSinkDoc struct {
	Stream string
	Mode   yamlModeType
}

type yamlModeType string

var yamlTestTempLocation string

func (ym *yamlModeType) UnmarshalYAML(node *yaml.Node) error {
	yamlTestTempLocation = GetYamlLocation(node)
	if node.Value == "bad" {
		return NewYamlError(node, "unsupported mode")
	}
	*ym = yamlModeType(node.Value)
	return nil
}

func TestYAMLMarshal(t *testing.T) {
	y, err := MarshalYaml(&yamlSinkDoc{
		Stream: "events",
		Mode:   yamlModeType("bulk"),
	})
	assert.Nil(t, err)
	assert.Equal(t, "stream: events\nmode: bulk\n", y)
}

func TestYAMLUnmarshal(t *testing.T) {
	var doc yamlSinkDoc

	assert.ErrorContains(t, UnmarshalYamlString(`
stream: events
mode: bad
`, &doc), "yaml line 3:7: unsupported mode")
	assert.Equal(t, "yaml line 3:7", yamlTestTempLocation)
}
