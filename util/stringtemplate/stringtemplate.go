// Package stringtemplate provides string expansion by pre-compiled templates, for example:
//
//	vehicle1 := map[string]interface{}{"type": "Car", "color": "Red", "model": "X001"}
//	tmpl, _ := NewExpander("${color[:1]}-$type", resolver)
//	key := tmpl.Run(vehicle1)
//	// key == "R-Car"
//
// Only named fields are supported. How a field name resolves to a string is up to the
// VariableResolverCreator given by the caller.
package stringtemplate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// RecordType is the type of records as source of string expansion
type RecordType = map[string]interface{}

// Expander joins precompiled template parts, like an ahead-of-time regexp.Regexp.Expand()
// Expander instances contain no buffer and may be copied or concurrently used.
type Expander struct {
	partProviders []PartProvider
}

// VariableResolverCreator represents a function to create PartProvider from variable name
type VariableResolverCreator func(name string) (PartProvider, error)

// PartProvider represents a function to provide the value for a given part, from the source of template
type PartProvider func(source RecordType) string

// Empty is an empty template
var Empty = Expander{nil}

var partRegex = regexp.MustCompile(`(\$\w+|\$\{\w+[^}]*\}|[^$]+)`)

// variableExpressionRegex supports simple substring inside "${VARIABLE}", for example "name[-5:]"
var variableExpressionRegex = regexp.MustCompile(`^(?P<name>\w+)(\[(?P<start>-?[0-9]+)?:(?P<end>-?[0-9]+)?\])?$`)

var exprNameIndex = variableExpressionRegex.SubexpIndex("name")
var exprStartIndex = variableExpressionRegex.SubexpIndex("start")
var exprEndIndex = variableExpressionRegex.SubexpIndex("end")

// NewExpander compiles the template into an Expander. Variable parts are written as "$name" or
// "${name[start:end]}" with optional negative substring bounds counting from the end.
func NewExpander(template string, createVariableResolver VariableResolverCreator) (Expander, error) {
	if si := strings.Index(template, "$$"); si != -1 {
		return Empty, fmt.Errorf("escaping of $ at index %d of '%s' is unsupported", si, template)
	}
	parts := partRegex.FindAllString(template, -1)
	providers := make([]PartProvider, len(parts))
	matchedLen := 0
	for i, part := range parts {
		matchedLen += len(part)
		provider, err := compilePart(part, createVariableResolver)
		if err != nil {
			return Empty, err
		}
		providers[i] = provider
	}
	if matchedLen != len(template) {
		return Empty, fmt.Errorf("unenclosed variable quotes: '%s'", template)
	}
	return Expander{partProviders: providers}, nil
}

// Run expands the template with given fields
func (tmpl Expander) Run(fields RecordType) string {
	// single-part templates are the common case
	if len(tmpl.partProviders) == 1 {
		return tmpl.partProviders[0](fields)
	}
	buf := make([]byte, 0, 100)
	for _, provide := range tmpl.partProviders {
		buf = append(buf, provide(fields)...)
	}
	return string(buf)
}

func compilePart(part string, createVariableResolver VariableResolverCreator) (PartProvider, error) {
	switch {
	case part[0] != '$':
		literal := part
		return func(RecordType) string { return literal }, nil

	case part[1] == '{' && part[len(part)-1] == '}':
		expr := part[2 : len(part)-1]
		groups := variableExpressionRegex.FindStringSubmatch(expr)
		if groups == nil {
			return nil, fmt.Errorf("unrecognized variable expression '${%s}'", expr)
		}
		resolve, err := makeResolver(createVariableResolver, groups[exprNameIndex])
		if err != nil {
			return nil, err
		}
		startExpr, endExpr := groups[exprStartIndex], groups[exprEndIndex]
		if startExpr == "" && endExpr == "" {
			return resolve, nil
		}
		bounds, boundsErr := parseSubstringBounds(startExpr, endExpr)
		if boundsErr != nil {
			return nil, fmt.Errorf("unrecognized variable expression '${%s}': %w", expr, boundsErr)
		}
		return func(source RecordType) string {
			return bounds.cut(resolve(source))
		}, nil

	default:
		return makeResolver(createVariableResolver, part[1:])
	}
}

func makeResolver(createVariableResolver VariableResolverCreator, name string) (PartProvider, error) {
	resolve, err := createVariableResolver(name)
	if err != nil {
		return nil, fmt.Errorf("error creating resolver for $%s: %w", name, err)
	}
	return resolve, nil
}

type substringBounds struct {
	start int
	end   int
}

func parseSubstringBounds(startExpr, endExpr string) (substringBounds, error) {
	bounds := substringBounds{start: 0, end: math.MaxInt32}
	var err error
	if startExpr != "" {
		if bounds.start, err = strconv.Atoi(startExpr); err != nil {
			return bounds, err
		}
	}
	if endExpr != "" {
		if bounds.end, err = strconv.Atoi(endExpr); err != nil {
			return bounds, err
		}
	}
	return bounds, nil
}

// cut slices the value like Python slicing: a negative bound counts from the end of the value and
// the result is empty if the effective range is inverted or falls entirely outside
func (bounds substringBounds) cut(v string) string {
	start := bounds.start
	if start < 0 {
		start += len(v)
		if start < 0 {
			start = 0
		}
	}
	end := bounds.end
	if end < 0 {
		end += len(v)
	}
	if end > len(v) {
		end = len(v)
	}
	if start >= end {
		return ""
	}
	return v[start:end]
}
