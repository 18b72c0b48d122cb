package base

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FieldString renders one top-level payload field as a string, for condition matching and
// partition key derivation. Absent fields (nil) render empty; non-scalar values keep their fmt
// rendering so presence checks still work on them.
func FieldString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}
