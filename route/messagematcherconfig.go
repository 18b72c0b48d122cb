package route

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// MessageMatcherConfig is the configuration for one MessageMatcher: field names mapped to value
// conditions which must all hold
type MessageMatcherConfig map[string]valueMatch

type fieldMatchCandidate struct {
	field string
	match valueMatch
}

// NewMatcher creates a MessageMatcher from a set of field names and value matches
func (cmap MessageMatcherConfig) NewMatcher() MessageMatcher {
	candidates := make([]fieldMatchCandidate, 0, len(cmap))
	for field, match := range cmap {
		candidates = append(candidates, fieldMatchCandidate{field: field, match: match})
	}
	// check cheap conditions first
	slices.SortStableFunc(candidates, func(a, b fieldMatchCandidate) bool {
		return a.match.cost < b.match.cost
	})

	fieldMatches := make([]fieldValueMatch, 0, len(candidates))
	for _, candidate := range candidates {
		fieldMatches = append(fieldMatches, fieldValueMatch{field: candidate.field, match: candidate.match.match})
	}
	return MessageMatcher{fieldMatches}
}

// VerifyConfig checks all field names and match values
func (cmap MessageMatcherConfig) VerifyConfig() error {
	for field, matcher := range cmap {
		if field == "" {
			return fmt.Errorf("empty match field name")
		}
		if matcher.match == nil { // extra check because empty value in map would NOT go through unmarshalling
			return fmt.Errorf("missing match value for '%s'", field)
		}
	}
	return nil
}
