package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindOther Kind = iota
	KindText
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	default:
		return "other"
	}
}

// Value is a single field value: text, a number, or anything else carried
// through opaquely. The zero Value is Other(nil).
type Value struct {
	kind  Kind
	text  string
	num   float64
	other any
}

// Text returns a text Value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number returns a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int returns a numeric Value holding an integer.
func Int(i int64) Value { return Value{kind: KindNumber, num: float64(i)} }

// Other wraps a value the pipeline does not interpret.
func Other(v any) Value { return Value{kind: KindOther, other: v} }

// FromAny classifies a decoded Go value. Strings become text, every integer
// and float type (and json.Number) becomes a number, everything else,
// booleans included, is carried as other.
func FromAny(v any) Value {
	switch x := v.(type) {
	case Value:
		return x
	case string:
		return Text(x)
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return Number(float64(x))
	case uint8:
		return Number(float64(x))
	case uint16:
		return Number(float64(x))
	case uint32:
		return Number(float64(x))
	case uint64:
		return Number(float64(x))
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return Number(f)
		}
		return Text(x.String())
	default:
		return Other(v)
	}
}

func (v Value) Kind() Kind { return v.kind }

// Text reports the string held by a text Value.
func (v Value) Text() (string, bool) {
	return v.text, v.kind == KindText
}

// Number reports the float held by a numeric Value.
func (v Value) Number() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Any unwraps v into a plain Go value.
func (v Value) Any() any {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return v.num
	default:
		return v.other
	}
}

// String renders v for display and for use as a map key. Numbers use the
// shortest representation that round-trips; nil renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		if v.other == nil {
			return ""
		}
		return fmt.Sprint(v.other)
	}
}

// Equal reports whether v and o hold the same variant and payload. Other
// values are compared by their rendered form.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == o.text
	case KindNumber:
		return v.num == o.num || (math.IsNaN(v.num) && math.IsNaN(o.num))
	default:
		return fmt.Sprint(v.other) == fmt.Sprint(o.other)
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}
