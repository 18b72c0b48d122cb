package safejson

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeScalars(t *testing.T) {
	assert.Equal(t, `null`, string(Encode(nil)))
	assert.Equal(t, `true`, string(Encode(true)))
	assert.Equal(t, `-30`, string(Encode(-30)))
	assert.Equal(t, `42`, string(Encode(uint16(42))))
	assert.Equal(t, `0.1`, string(Encode(0.1)))
	assert.Equal(t, `1e+21`, string(Encode(1e21)))
	assert.Equal(t, `1e-7`, string(Encode(1e-7)))
	assert.Equal(t, `"hello"`, string(Encode("hello")))
	assert.Equal(t, `"line\nbreak \"quoted\""`, string(Encode("line\nbreak \"quoted\"")))
	assert.Equal(t, `"ctrl\u0001"`, string(Encode("ctrl\x01")))
	assert.Equal(t, `"a�b"`, string(Encode("a\xffb")))
}

func TestEncodeNonFiniteNumbers(t *testing.T) {
	assert.Equal(t, `null`, string(Encode(math.NaN())))
	assert.Equal(t, `null`, string(Encode(math.Inf(1))))
	assert.Equal(t, `null`, string(Encode(math.Inf(-1))))
	assert.Equal(t, `[1,null,2]`, string(Encode([]interface{}{1, math.NaN(), 2})))
}

func TestEncodeJSONNumber(t *testing.T) {
	assert.Equal(t, `10.25`, string(Encode(json.Number("10.25"))))
	assert.Equal(t, `-0.5e2`, string(Encode(json.Number("-0.5e2"))))
	assert.Equal(t, `{"n":123456789012345678}`, string(Encode(map[string]interface{}{"n": json.Number("123456789012345678")})))
	assert.Equal(t, `"not-a-number"`, string(Encode(json.Number("not-a-number"))))
	// forms accepted by strconv but not by JSON must not pass through unquoted
	assert.Equal(t, `"Inf"`, string(Encode(json.Number("Inf"))))
	assert.Equal(t, `"+5"`, string(Encode(json.Number("+5"))))
	assert.Equal(t, `"05"`, string(Encode(json.Number("05"))))
	assert.Equal(t, `""`, string(Encode(json.Number(""))))
}

func TestEncodeSortsMapKeys(t *testing.T) {
	value := map[string]interface{}{
		"zeta":  1,
		"alpha": "x",
		"mid":   []interface{}{true},
	}
	assert.Equal(t, `{"alpha":"x","mid":[true],"zeta":1}`, string(Encode(value)))

	byInt := map[int]string{3: "c", 1: "a", 2: "b"}
	assert.Equal(t, `{"1":"a","2":"b","3":"c"}`, string(Encode(byInt)))
}

func TestEncodeSelfReferentialMap(t *testing.T) {
	value := map[string]interface{}{"hi": "hello"}
	value["message"] = value

	result := string(Encode(value))
	assert.Equal(t, `{"hi":"hello","message":"[Circular]"}`, result)
	assert.True(t, json.Valid([]byte(result)))
}

func TestEncodeMutualCycle(t *testing.T) {
	a := map[string]interface{}{}
	b := map[string]interface{}{"a": a}
	a["b"] = b

	assert.Equal(t, `{"b":{"a":"[Circular]"}}`, string(Encode(a)))
	assert.Equal(t, `{"a":{"b":"[Circular]"}}`, string(Encode(b)))
}

func TestEncodeSharedReferenceIsNotCircular(t *testing.T) {
	shared := map[string]interface{}{"x": 1}
	root := map[string]interface{}{
		"first":  shared,
		"second": shared,
	}
	// only ancestors count as cycles; siblings referencing the same value encode twice
	assert.Equal(t, `{"first":{"x":1},"second":{"x":1}}`, string(Encode(root)))
}

func TestEncodeSelfReferentialSlice(t *testing.T) {
	list := make([]interface{}, 2)
	list[0] = "head"
	list[1] = list

	assert.Equal(t, `["head","[Circular]"]`, string(Encode(list)))
}

func TestEncodeStruct(t *testing.T) {
	type inner struct {
		Flag bool `json:"flag"`
	}
	type outer struct {
		inner
		Name    string `json:"name"`
		Skipped string `json:"-"`
		Plain   int
		hidden  string
	}
	value := outer{
		inner:   inner{Flag: true},
		Name:    "x",
		Skipped: "no",
		Plain:   7,
		hidden:  "no",
	}
	assert.Equal(t, `{"flag":true,"name":"x","Plain":7}`, string(Encode(value)))
}

func TestEncodeStructPointerCycle(t *testing.T) {
	type node struct {
		Name string `json:"name"`
		Next *node  `json:"next"`
	}
	n := &node{Name: "loop"}
	n.Next = n

	assert.Equal(t, `{"name":"loop","next":"[Circular]"}`, string(Encode(n)))
}

func TestEncodeBytes(t *testing.T) {
	assert.Equal(t, `"aGk="`, string(Encode([]byte("hi"))))
}

func TestEncodeUnsupportedKinds(t *testing.T) {
	assert.Equal(t, `null`, string(Encode(make(chan int))))
	assert.Equal(t, `{"f":null}`, string(Encode(map[string]interface{}{"f": func() {}})))
}

func TestEncodeDeterministic(t *testing.T) {
	value := map[string]interface{}{
		"b": map[string]interface{}{"y": 2, "x": 1},
		"a": []interface{}{json.Number("1"), "s"},
	}
	first := string(Encode(value))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, string(Encode(value)))
	}
}

func TestEncoderMatchesEncode(t *testing.T) {
	value := map[string]interface{}{"k": "v"}
	assert.Equal(t, Encode(value), Encoder{}.EncodePayload(value))
}
