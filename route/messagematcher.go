// Package route decides which messages bypass batching, by matching fields of structured payloads
package route

import (
	"github.com/relex/bulksink/base"
)

// MessageMatcher can match messages of certain conditions
//
// All field conditions must hold for a match; fields are looked up in the top level of the
// payload map and missing fields yield empty strings. Payloads that are not maps never match.
type MessageMatcher struct {
	fieldMatches []fieldValueMatch
}

type fieldValueMatch struct {
	field string
	match valueMatcher
}

// Match checks whether the given message matches the condition of this matcher
func (m MessageMatcher) Match(message base.Message) bool {
	fields, ok := message.Value.(map[string]interface{})
	if !ok {
		return false
	}
	for _, fm := range m.fieldMatches {
		if !fm.match(base.FieldString(fields[fm.field])) {
			return false
		}
	}
	return true
}
