package attr

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the JSON type name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is an immutable JSON value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	s    string // string contents, or the literal text of a number
	arr  []Value
	obj  *Object
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int returns a number value for n.
func Int(n int64) Value {
	return Value{kind: KindNumber, s: strconv.FormatInt(n, 10)}
}

// Float returns a number value for f. NaN and infinities become null.
func Float(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: KindNumber, s: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Number returns a number value from its JSON literal. The literal is kept
// verbatim; invalid literals yield null.
func Number(literal string) Value {
	if _, err := strconv.ParseFloat(literal, 64); err != nil {
		return Null()
	}
	return Value{kind: KindNumber, s: literal}
}

// Array returns an array value holding vs.
func Array(vs ...Value) Value {
	out := make([]Value, len(vs))
	copy(out, vs)
	return Value{kind: KindArray, arr: out}
}

// ObjectValue wraps o. A nil object becomes an empty object.
func ObjectValue(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

// Kind returns the variant of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// AsFloat returns the number held by v as a float64.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	return f, err == nil
}

// AsInt returns the number held by v as an int64 when it is integral.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	if n, err := strconv.ParseInt(v.s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(v.s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// NumberLiteral returns the literal text of a number value.
func (v Value) NumberLiteral() (string, bool) {
	return v.s, v.kind == KindNumber
}

// AsArray returns the elements of an array value. The slice must not be
// modified.
func (v Value) AsArray() ([]Value, bool) {
	return v.arr, v.kind == KindArray
}

// AsObject returns the object held by v.
func (v Value) AsObject() (*Object, bool) {
	return v.obj, v.kind == KindObject
}

// Truthy reports whether v is considered set: null, false, "", "0", 0,
// and empty arrays or objects are falsy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		f, _ := v.AsFloat()
		return f != 0
	case KindString:
		return v.s != "" && v.s != "0"
	case KindArray:
		return len(v.arr) > 0
	case KindObject:
		return v.obj.Len() > 0
	default:
		return false
	}
}

// Text renders v the way it is written into an HTML attribute or style
// value: strings verbatim, numbers as their literal, booleans as
// "true"/"false", null as "", composites as JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindString, KindNumber:
		return v.s
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNull:
		return ""
	default:
		data, _ := json.Marshal(v)
		return string(data)
	}
}

// Equal reports deep equality. Numbers compare by numeric value.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.s == b.s
	case KindNumber:
		fa, _ := a.AsFloat()
		fb, _ := b.AsFloat()
		return fa == fb
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return a.obj.Equal(b.obj)
	}
	return false
}

// Interface converts v into the representation produced by encoding/json
// when decoding with UseNumber: nil, bool, json.Number, string, []any and
// map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return json.Number(v.s)
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, v.obj.Len())
		v.obj.Range(func(k string, e Value) bool {
			out[k] = e.Interface()
			return true
		})
		return out
	default:
		return nil
	}
}

// FromInterface converts a Go value into a Value. Maps are ordered by key
// since Go maps carry no order.
func FromInterface(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Object:
		return ObjectValue(t), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return Number(string(t)), nil
	case float64:
		return Float(t), nil
	case float32:
		return Float(float64(t)), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Number(strconv.FormatUint(uint64(t), 10)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return Number(strconv.FormatUint(t, 10)), nil
	case []string:
		out := make([]Value, len(t))
		for i, s := range t {
			out[i] = String(s)
		}
		return Value{kind: KindArray, arr: out}, nil
	case []any:
		out := make([]Value, len(t))
		for i, e := range t {
			v, err := FromInterface(e)
			if err != nil {
				return Value{}, err
			}
			out[i] = v
		}
		return Value{kind: KindArray, arr: out}, nil
	case map[string]string:
		o := NewObject()
		for _, k := range sortedKeys(t) {
			o.Set(k, String(t[k]))
		}
		return ObjectValue(o), nil
	case map[string]any:
		o := NewObject()
		for _, k := range sortedKeys(t) {
			v, err := FromInterface(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("attr: key %q: %w", k, err)
			}
			o.Set(k, v)
		}
		return ObjectValue(o), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, x)
	}
}

// MustFromInterface is FromInterface for literals known to be convertible.
func MustFromInterface(x any) Value {
	v, err := FromInterface(x)
	if err != nil {
		panic(err)
	}
	return v
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String implements fmt.Stringer with the delimiter encoding.
func (v Value) String() string {
	return Marshal(v)
}

// MarshalJSON encodes v as standard JSON, preserving object order.
func (v Value) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	if err := writeStandard(&b, v); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// UnmarshalJSON decodes JSON into v, preserving object order.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func writeStandard(b *strings.Builder, v Value) error {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindBool, KindNumber:
		b.WriteString(v.Text())
	case KindString:
		data, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		b.Write(data)
	case KindArray:
		b.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeStandard(b, e); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case KindObject:
		b.WriteByte('{')
		first := true
		var err error
		v.obj.Range(func(k string, e Value) bool {
			if !first {
				b.WriteByte(',')
			}
			first = false
			key, kerr := json.Marshal(k)
			if kerr != nil {
				err = kerr
				return false
			}
			b.Write(key)
			b.WriteByte(':')
			if err = writeStandard(b, e); err != nil {
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
		b.WriteByte('}')
	}
	return nil
}
