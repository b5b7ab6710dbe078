package attr

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is an insertion-ordered JSON object.
//
// A nil *Object behaves as an empty, read-only object. Objects are not safe
// for concurrent mutation.
type Object struct {
	m *orderedmap.OrderedMap[string, Value]
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{m: orderedmap.New[string, Value]()}
}

// ObjectOf builds an object from alternating key/value pairs. Values are
// converted with FromInterface; it panics on unsupported types.
func ObjectOf(kv ...any) *Object {
	o := NewObject()
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic("attr: ObjectOf keys must be strings")
		}
		o.Set(key, MustFromInterface(kv[i+1]))
	}
	return o
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil || o.m == nil {
		return 0
	}
	return o.m.Len()
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil || o.m == nil {
		return Value{}, false
	}
	return o.m.Get(key)
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores v under key. Existing keys keep their position.
func (o *Object) Set(key string, v Value) {
	if o.m == nil {
		o.m = orderedmap.New[string, Value]()
	}
	o.m.Set(key, v)
}

// Delete removes key and returns the removed value.
func (o *Object) Delete(key string) (Value, bool) {
	if o == nil || o.m == nil {
		return Value{}, false
	}
	return o.m.Delete(key)
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o.Len() == 0 {
		return nil
	}
	keys := make([]string, 0, o.m.Len())
	for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Range calls fn for each entry in order until fn returns false.
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o.Len() == 0 {
		return
	}
	for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Clone returns a deep copy of o.
func (o *Object) Clone() *Object {
	out := NewObject()
	o.Range(func(k string, v Value) bool {
		out.Set(k, cloneValue(v))
		return true
	})
	return out
}

func cloneValue(v Value) Value {
	switch v.kind {
	case KindArray:
		out := make([]Value, len(v.arr))
		for i, e := range v.arr {
			out[i] = cloneValue(e)
		}
		return Value{kind: KindArray, arr: out}
	case KindObject:
		return Value{kind: KindObject, obj: v.obj.Clone()}
	default:
		return v
	}
}

// Path walks nested objects by key, e.g. Path("style", "color", "text").
func (o *Object) Path(keys ...string) (Value, bool) {
	cur := o
	for i, k := range keys {
		v, ok := cur.Get(k)
		if !ok {
			return Value{}, false
		}
		if i == len(keys)-1 {
			return v, true
		}
		next, ok := v.AsObject()
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return ObjectValue(o), true
}

// StringAt returns the string found at the nested path, if any.
func (o *Object) StringAt(keys ...string) (string, bool) {
	v, ok := o.Path(keys...)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// Equal reports whether o and other hold equal entries, ignoring order.
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	equal := true
	o.Range(func(k string, v Value) bool {
		ov, ok := other.Get(k)
		if !ok || !Equal(v, ov) {
			equal = false
			return false
		}
		return true
	})
	return equal
}

// Merge deep-merges src into dst: nested objects merge recursively, any
// other value in src replaces the value in dst.
func Merge(dst, src *Object) {
	src.Range(func(k string, v Value) bool {
		if srcObj, ok := v.AsObject(); ok {
			if existing, ok := dst.Get(k); ok {
				if dstObj, ok := existing.AsObject(); ok {
					Merge(dstObj, srcObj)
					return true
				}
			}
			dst.Set(k, ObjectValue(srcObj.Clone()))
			return true
		}
		dst.Set(k, cloneValue(v))
		return true
	})
}

// Interface returns o as a map[string]any.
func (o *Object) Interface() map[string]any {
	out, _ := ObjectValue(o).Interface().(map[string]any)
	return out
}

// MarshalJSON encodes o as standard JSON in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	return ObjectValue(o).MarshalJSON()
}

// UnmarshalJSON decodes a JSON object into o.
func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := Parse(data)
	if err != nil {
		return err
	}
	obj, ok := v.AsObject()
	if !ok {
		return ErrNotObject
	}
	o.m = obj.m
	return nil
}
