package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Kind enumerates the variants of the Value tagged union.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the kind name as exposed by the type() builtin.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "null"
	}
}

// Value is the tagged union carried across the engine boundary. Every
// expression result and every context variable is a Value. Coercions
// between kinds are explicit (the type builtins); there is no implicit
// String<->Number conversion anywhere in the engine.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

// Null is the zero Value.
var Null = Value{}

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// NumberValue wraps a float64.
func NumberValue(n float64) Value { return Value{kind: KindNumber, n: n} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// ArrayValue wraps a slice of Values. The slice is not copied.
func ArrayValue(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

// ObjectValue wraps a map of Values. The map is not copied.
func ObjectValue(m map[string]Value) Value { return Value{kind: KindObject, obj: m} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is the Null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the bool payload. Only meaningful for KindBool.
func (v Value) Bool() bool { return v.b }

// Number returns the numeric payload. Only meaningful for KindNumber.
func (v Value) Number() float64 { return v.n }

// Str returns the string payload. Only meaningful for KindString.
func (v Value) Str() string { return v.s }

// Array returns the array payload. Only meaningful for KindArray.
func (v Value) Array() []Value { return v.arr }

// Object returns the object payload. Only meaningful for KindObject.
func (v Value) Object() map[string]Value { return v.obj }

// Truthy reports whether the value counts as true for a workflow decision:
// only the Bool variant holding true. Everything else, including non-zero
// numbers, is false; decisions are fail-closed.
func (v Value) Truthy() bool {
	return v.kind == KindBool && v.b
}

// Equal reports deep equality of two Values. Null equals only Null.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, vv := range v.obj {
			ov, ok := o.obj[k]
			if !ok || !vv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the value for diagnostics and catalog display.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindNumber:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v.n), "0"), ".")
	case KindString:
		return v.s
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.obj[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "null"
	}
}

// ToAny converts the Value into the plain Go representation used by the
// expression engines (bool, float64, string, []any, map[string]any, nil).
func (v Value) ToAny() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.ToAny()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.ToAny()
		}
		return out
	default:
		return nil
	}
}

// FromAny converts a plain Go value (as produced by encoding/json or an
// expression engine) into a Value. Integer types are widened to float64.
// Unsupported types collapse to Null.
func FromAny(v any) Value {
	switch val := v.(type) {
	case nil:
		return Null
	case bool:
		return BoolValue(val)
	case float64:
		return NumberValue(val)
	case float32:
		return NumberValue(float64(val))
	case int:
		return NumberValue(float64(val))
	case int32:
		return NumberValue(float64(val))
	case int64:
		return NumberValue(float64(val))
	case uint:
		return NumberValue(float64(val))
	case uint64:
		return NumberValue(float64(val))
	case string:
		return StringValue(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return Null
		}
		return NumberValue(f)
	case []any:
		arr := make([]Value, len(val))
		for i, e := range val {
			arr[i] = FromAny(e)
		}
		return ArrayValue(arr...)
	case map[string]any:
		obj := make(map[string]Value, len(val))
		for k, e := range val {
			obj[k] = FromAny(e)
		}
		return ObjectValue(obj)
	case Value:
		return val
	default:
		return Null
	}
}

// MarshalJSON encodes the Value as its plain JSON representation.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}

// UnmarshalJSON decodes a plain JSON value into the union.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}
