// Package safejson encodes arbitrary values as JSON without ever failing
//
// Unlike encoding/json it is total: self-referential structures terminate with a marker in place
// of the repeated value, unsupported kinds become null, and NaN / infinities become null. Output
// is deterministic for a given input shape: struct fields appear in declaration order and map
// keys are sorted.
//
// Marshaller interfaces (json.Marshaler, encoding.TextMarshaler) are deliberately not consulted;
// encoding is purely structural so that no user code can raise or recurse during serialization.
package safejson

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/exp/slices"
)

// Marker is the literal substituted for any value already present on the current ancestor path
const Marker = "[Circular]"

// Encoder is a stateless PayloadEncoder backed by Encode
type Encoder struct{}

// EncodePayload serializes the given value, see Encode
func (Encoder) EncodePayload(value interface{}) []byte {
	return Encode(value)
}

// Encode serializes the given value to JSON bytes. It never fails: any input yields valid JSON.
func Encode(value interface{}) []byte {
	state := encodeState{
		buf:       make([]byte, 0, 256),
		ancestors: make(map[ancestorKey]struct{}, 8),
	}
	state.encodeValue(reflect.ValueOf(value))
	return state.buf
}

// ancestorKey identifies one container on the current traversal path by reference identity
//
// The type is included because e.g. a struct pointer and its first field share an address
type ancestorKey struct {
	pointer uintptr
	typ     reflect.Type
}

type encodeState struct {
	buf       []byte
	ancestors map[ancestorKey]struct{}
}

// enterContainer registers the given reference on the ancestor path, or returns false if it is
// already there and the caller must emit the circular marker instead of recursing
func (state *encodeState) enterContainer(v reflect.Value) (ancestorKey, bool) {
	key := ancestorKey{pointer: v.Pointer(), typ: v.Type()}
	if _, onPath := state.ancestors[key]; onPath {
		return key, false
	}
	state.ancestors[key] = struct{}{}
	return key, true
}

func (state *encodeState) leaveContainer(key ancestorKey) {
	delete(state.ancestors, key)
}

func (state *encodeState) encodeValue(v reflect.Value) {
	if !v.IsValid() {
		state.buf = append(state.buf, "null"...)
		return
	}

	switch v.Kind() {
	case reflect.Bool:
		state.buf = strconv.AppendBool(state.buf, v.Bool())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		state.buf = strconv.AppendInt(state.buf, v.Int(), 10)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		state.buf = strconv.AppendUint(state.buf, v.Uint(), 10)

	case reflect.Float32:
		state.appendFloat(v.Float(), 32)

	case reflect.Float64:
		state.appendFloat(v.Float(), 64)

	case reflect.String:
		if v.Type() == jsonNumberType {
			state.appendJSONNumber(v.String())
		} else {
			state.appendString(v.String())
		}

	case reflect.Interface, reflect.Pointer:
		state.encodeReference(v)

	case reflect.Map:
		state.encodeMap(v)

	case reflect.Slice:
		state.encodeSlice(v)

	case reflect.Array:
		state.encodeArrayElements(v)

	case reflect.Struct:
		state.encodeStruct(v)

	default:
		// Chan, Func, Complex, UnsafePointer have no JSON form
		state.buf = append(state.buf, "null"...)
	}
}

func (state *encodeState) encodeReference(v reflect.Value) {
	if v.IsNil() {
		state.buf = append(state.buf, "null"...)
		return
	}
	if v.Kind() == reflect.Interface {
		state.encodeValue(v.Elem())
		return
	}
	key, entered := state.enterContainer(v)
	if !entered {
		state.appendString(Marker)
		return
	}
	state.encodeValue(v.Elem())
	state.leaveContainer(key)
}

func (state *encodeState) encodeMap(v reflect.Value) {
	if v.IsNil() {
		state.buf = append(state.buf, "null"...)
		return
	}
	key, entered := state.enterContainer(v)
	if !entered {
		state.appendString(Marker)
		return
	}

	names := make([]string, 0, v.Len())
	valuesByName := make(map[string]reflect.Value, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		name := mapKeyString(iter.Key())
		if _, dup := valuesByName[name]; !dup {
			names = append(names, name)
		}
		valuesByName[name] = iter.Value()
	}
	slices.Sort(names)

	state.buf = append(state.buf, '{')
	for i, name := range names {
		if i > 0 {
			state.buf = append(state.buf, ',')
		}
		state.appendString(name)
		state.buf = append(state.buf, ':')
		state.encodeValue(valuesByName[name])
	}
	state.buf = append(state.buf, '}')
	state.leaveContainer(key)
}

func (state *encodeState) encodeSlice(v reflect.Value) {
	if v.IsNil() {
		state.buf = append(state.buf, "null"...)
		return
	}
	if v.Type().Elem().Kind() == reflect.Uint8 {
		// []byte encodes as base64, following the encoding/json convention
		state.buf = append(state.buf, '"')
		state.buf = append(state.buf, base64.StdEncoding.EncodeToString(v.Bytes())...)
		state.buf = append(state.buf, '"')
		return
	}
	if v.Len() == 0 {
		state.buf = append(state.buf, "[]"...)
		return
	}
	key, entered := state.enterContainer(v)
	if !entered {
		state.appendString(Marker)
		return
	}
	state.encodeArrayElements(v)
	state.leaveContainer(key)
}

func (state *encodeState) encodeArrayElements(v reflect.Value) {
	state.buf = append(state.buf, '[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			state.buf = append(state.buf, ',')
		}
		state.encodeValue(v.Index(i))
	}
	state.buf = append(state.buf, ']')
}

func (state *encodeState) encodeStruct(v reflect.Value) {
	state.buf = append(state.buf, '{')
	first := true
	state.encodeStructFields(v, &first)
	state.buf = append(state.buf, '}')
}

// encodeStructFields writes exported fields in declaration order, inlining anonymous embedded
// structs the way encoding/json does. The json tag is honored for naming and skipping.
func (state *encodeState) encodeStructFields(v reflect.Value, first *bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous {
			embedded := v.Field(i)
			if embedded.Kind() == reflect.Pointer {
				if embedded.IsNil() {
					continue
				}
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct && field.Tag.Get("json") == "" {
				state.encodeStructFields(embedded, first)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName := tag
			if comma := strings.IndexByte(tag, ','); comma != -1 {
				tagName = tag[:comma]
			}
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		if !*first {
			state.buf = append(state.buf, ',')
		}
		*first = false
		state.appendString(name)
		state.buf = append(state.buf, ':')
		state.encodeValue(v.Field(i))
	}
}

func (state *encodeState) appendFloat(f float64, bits int) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		state.buf = append(state.buf, "null"...)
		return
	}
	// format like encoding/json: fixed notation within a sane range, scientific outside
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	state.buf = strconv.AppendFloat(state.buf, f, format, -1, bits)
	if format == 'e' {
		if n := len(state.buf); n >= 4 && state.buf[n-4] == 'e' && state.buf[n-3] == '-' && state.buf[n-2] == '0' {
			state.buf[n-2] = state.buf[n-1]
			state.buf = state.buf[:n-1]
		}
	}
}

// appendJSONNumber passes a json.Number through unquoted when it satisfies the JSON number
// grammar; anything else is quoted so the output stays valid
func (state *encodeState) appendJSONNumber(number string) {
	if isJSONNumber(number) {
		state.buf = append(state.buf, number...)
	} else {
		state.appendString(number)
	}
}

// isJSONNumber checks the RFC 8259 number grammar; stricter than strconv.ParseFloat, which also
// accepts forms like "+5", "Inf" and "1_000" that are not valid in JSON
func isJSONNumber(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	switch {
	case i < len(s) && s[i] == '0':
		i++
	case i < len(s) && '1' <= s[i] && s[i] <= '9':
		for i < len(s) && '0' <= s[i] && s[i] <= '9' {
			i++
		}
	default:
		return false
	}
	if i < len(s) && s[i] == '.' {
		i++
		if i == len(s) || s[i] < '0' || s[i] > '9' {
			return false
		}
		for i < len(s) && '0' <= s[i] && s[i] <= '9' {
			i++
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		if i == len(s) || s[i] < '0' || s[i] > '9' {
			return false
		}
		for i < len(s) && '0' <= s[i] && s[i] <= '9' {
			i++
		}
	}
	return i == len(s)
}

const hexDigits = "0123456789abcdef"

func (state *encodeState) appendString(s string) {
	buf := append(state.buf, '"')
	start := 0
	for i := 0; i < len(s); {
		b := s[i]
		if b < utf8.RuneSelf {
			if b >= 0x20 && b != '"' && b != '\\' {
				i++
				continue
			}
			buf = append(buf, s[start:i]...)
			switch b {
			case '"':
				buf = append(buf, '\\', '"')
			case '\\':
				buf = append(buf, '\\', '\\')
			case '\n':
				buf = append(buf, '\\', 'n')
			case '\r':
				buf = append(buf, '\\', 'r')
			case '\t':
				buf = append(buf, '\\', 't')
			default:
				buf = append(buf, '\\', 'u', '0', '0', hexDigits[b>>4], hexDigits[b&0xF])
			}
			i++
			start = i
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			buf = append(buf, s[start:i]...)
			buf = append(buf, `�`...)
			i += size
			start = i
			continue
		}
		i += size
	}
	buf = append(buf, s[start:]...)
	state.buf = append(buf, '"')
}

var jsonNumberType = reflect.TypeOf(json.Number(""))

func mapKeyString(k reflect.Value) string {
	switch k.Kind() {
	case reflect.String:
		return k.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10)
	case reflect.Bool:
		return strconv.FormatBool(k.Bool())
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(k.Float(), 'g', -1, 64)
	default:
		return "?"
	}
}
