package stringtemplate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeFieldResolver(known ...string) VariableResolverCreator {
	return func(name string) (PartProvider, error) {
		for _, k := range known {
			if k == name {
				field := name
				return func(record RecordType) string {
					value, _ := record[field].(string)
					return value
				}, nil
			}
		}
		return nil, fmt.Errorf("no such field '%s'", name)
	}
}

func TestStringTemplate(t *testing.T) {
	resolveVariable := makeFieldResolver("tenant", "region", "level")

	if tmpl, err := NewExpander("stream-$tenant:${region}-p0", resolveVariable); assert.Nil(t, err) {
		result := tmpl.Run(RecordType{"tenant": "acme", "region": "eu", "level": "info"})
		assert.Equal(t, "stream-acme:eu-p0", result)
	}
	if tmpl, err := NewExpander("stream-${tenant[1:-1]}-", resolveVariable); assert.Nil(t, err) {
		result := tmpl.Run(RecordType{"tenant": "acme"})
		assert.Equal(t, "stream-cm-", result)
	}
	if tmpl, err := NewExpander("stream-${region[:3]}-", resolveVariable); assert.Nil(t, err) {
		result := tmpl.Run(RecordType{"region": "eu"})
		assert.Equal(t, "stream-eu-", result)
	}
}

func TestStringTemplateConstant(t *testing.T) {
	if tmpl, err := NewExpander("fixed-key", nil); assert.Nil(t, err) {
		assert.Equal(t, 1, len(tmpl.partProviders))
		result := tmpl.Run(nil)
		assert.Equal(t, "fixed-key", result)
	}

	resolveVariable := makeFieldResolver("host")
	if tmpl, err := NewExpander("${host[-2:]}", resolveVariable); assert.Nil(t, err) {
		assert.Equal(t, 1, len(tmpl.partProviders))
		result := tmpl.Run(RecordType{"host": "molten"})
		assert.Equal(t, "en", result)
	}
}

func TestStringTemplateMissingField(t *testing.T) {
	resolveVariable := makeFieldResolver("present")
	if tmpl, err := NewExpander("key-$present$absent", resolveVariable); assert.Error(t, err) {
		_ = tmpl
	}

	if tmpl, err := NewExpander("key-$present", resolveVariable); assert.Nil(t, err) {
		assert.Equal(t, "key-", tmpl.Run(RecordType{"other": "x"}))
	}
}

func TestStringTemplateError(t *testing.T) {
	resolveVariable := func(name string) (PartProvider, error) {
		return nil, nil
	}
	tmpl, err := NewExpander("tag-${tenant", resolveVariable)
	if !assert.EqualError(t, err, "unenclosed variable quotes: 'tag-${tenant'") {
		t.Error(tmpl)
	}
}
