package route

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	"github.com/relex/bulksink/util"
	"gopkg.in/yaml.v3"
)

// valueMatch configures how to match the rendered value of one payload field, without the field
// name itself; for example: equality to "audit"
type valueMatch struct {
	match       valueMatcher
	description string
	cost        int // relative cost used to decide which match should be checked first
}

type valueMatcher = func(value string) bool

var emptyValueMatch = valueMatch{}

// MarshalYAML provides custom marshalling to export readable document. The result is not reversible.
func (match valueMatch) MarshalYAML() (interface{}, error) {
	return match.description, nil
}

func (match valueMatch) String() string {
	return match.description
}

func (match *valueMatch) UnmarshalYAML(value *yaml.Node) error {
	m, err := buildValueMatch(value.Tag, value.Value)
	if err != nil {
		return util.NewYamlError(value, err.Error())
	}
	*match = m
	return nil
}

// buildValueMatch creates the matcher for one YAML tag and expression
//
// Cheap string comparisons get low costs and pattern matches high ones, so that a matcher
// checking several fields can order them, see NewMatcher
func buildValueMatch(tag string, expr string) (valueMatch, error) {
	switch tag {
	case "!!str-any":
		if expr != "" {
			return emptyValueMatch, fmt.Errorf("Failed value-match of tag %s: value must be empty", tag)
		}
		return valueMatch{func(v string) bool { return len(v) > 0 }, "not-nil", 0}, nil

	case "!!str", "!!str-eq", "!!str-not", "!!str-start", "!!str-end", "!!str-contain":
		if expr == "" {
			return emptyValueMatch, fmt.Errorf("Failed value-match of tag %s: value is empty", tag)
		}
		return stringValueMatch(tag, expr), nil

	case "!!len-gt", "!!len-lt", "!!num-gt", "!!num-lt":
		return numberValueMatch(tag, expr)

	case "!!glob":
		g, err := glob.Compile(expr)
		if err != nil {
			return emptyValueMatch, fmt.Errorf("Failed value-match of tag %s: %s", tag, err.Error())
		}
		return valueMatch{g.Match, "~= " + expr, 2000 + len(expr)}, nil

	case "!!regex":
		regex, err := regexp.Compile(expr)
		if err != nil {
			return emptyValueMatch, fmt.Errorf("Failed value-match of tag %s: %s", tag, err.Error())
		}
		return valueMatch{regex.MatchString, "~= " + expr, 20000 + len(expr)}, nil

	default:
		return emptyValueMatch, fmt.Errorf("Unsupported value-match tag: %s", tag)
	}
}

func stringValueMatch(tag string, expr string) valueMatch {
	cost := 1 + len(expr)/2
	switch tag {
	case "!!str-not":
		return valueMatch{func(v string) bool { return v != expr }, "!= " + expr, cost}
	case "!!str-start":
		return valueMatch{func(v string) bool { return strings.HasPrefix(v, expr) }, "ˆ= " + expr, cost}
	case "!!str-end":
		return valueMatch{func(v string) bool { return strings.HasSuffix(v, expr) }, "$= " + expr, cost}
	case "!!str-contain":
		return valueMatch{func(v string) bool { return strings.Contains(v, expr) }, "*= " + expr, 500 + len(expr)}
	default: // "!!str" or "!!str-eq"
		return valueMatch{func(v string) bool { return v == expr }, "== " + expr, cost}
	}
}

func numberValueMatch(tag string, expr string) (valueMatch, error) {
	switch tag {
	case "!!len-gt", "!!len-lt":
		target, err := strconv.Atoi(expr)
		if err != nil {
			return emptyValueMatch, fmt.Errorf("Failed value-match of tag %s: %s", tag, err.Error())
		}
		if tag == "!!len-gt" {
			return valueMatch{func(v string) bool { return len(v) > target }, "len > " + expr, 0}, nil
		}
		return valueMatch{func(v string) bool { return len(v) < target }, "len < " + expr, 0}, nil

	default: // "!!num-gt" or "!!num-lt"
		target, err := strconv.ParseFloat(expr, 64)
		if err != nil {
			return emptyValueMatch, fmt.Errorf("Failed value-match of tag %s: %s", tag, err.Error())
		}
		if tag == "!!num-gt" {
			return valueMatch{numberCompare(target, false), "num > " + expr, 100}, nil
		}
		return valueMatch{numberCompare(target, true), "num < " + expr, 100}, nil
	}
}

// numberCompare matches values parseable as numbers on one side of the target; anything
// non-numeric never matches
func numberCompare(target float64, lessThan bool) valueMatcher {
	return func(v string) bool {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return false
		}
		if lessThan {
			return n < target
		}
		return n > target
	}
}
