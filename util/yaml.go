package util

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// GetYamlLocation describes the position of a YAML node, with its head comment or anchor if present
func GetYamlLocation(node *yaml.Node) string {
	title := node.HeadComment
	if title == "" {
		title = node.Anchor
	}
	if title != "" {
		title = " " + title
	}
	return fmt.Sprintf("yaml line %d:%d%s", node.Line, node.Column, title)
}

// NewYamlError creates a new error carrying the position of the offending YAML node
func NewYamlError(node *yaml.Node, message string) error {
	return fmt.Errorf("yaml line %d:%d: %s", node.Line, node.Column, message)
}

// MarshalYaml marshals the given source to a YAML string
func MarshalYaml(source interface{}) (string, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(source); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// UnmarshalYamlFile unmarshals the YAML file at path into the given interface or struct pointer
func UnmarshalYamlFile(path string, output interface{}) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return UnmarshalYamlReader(bytes.NewReader(content), output)
}

// UnmarshalYamlReader unmarshals YAML from the reader into the given interface or struct pointer
func UnmarshalYamlReader(reader io.Reader, output interface{}) error {
	dec := yaml.NewDecoder(reader)
	dec.KnownFields(true) // not effective inside custom UnmarshalYAML implementations
	return dec.Decode(output)
}

// UnmarshalYamlString unmarshals the YAML string into the given interface or struct pointer
func UnmarshalYamlString(contents string, output interface{}) error {
	return UnmarshalYamlReader(strings.NewReader(contents), output)
}
