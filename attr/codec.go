package attr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Sentinel errors for decoding.
var (
	ErrNotObject       = errors.New("attr: value is not an object")
	ErrTrailingData    = errors.New("attr: trailing data after value")
	ErrUnsupportedType = errors.New("attr: unsupported type")
)

// Parse decodes a single JSON document, preserving object key order and
// number literals. Duplicate keys keep the first position and the last value.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, ErrTrailingData
	}
	return v, nil
}

// ParseObject decodes data and requires the result to be an object.
func ParseObject(data []byte) (*Object, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("attr: unexpected object key %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return ObjectValue(obj), nil
		case '[':
			var elems []Value
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				elems = append(elems, val)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			if elems == nil {
				elems = []Value{}
			}
			return Value{kind: KindArray, arr: elems}, nil
		default:
			return Value{}, fmt.Errorf("attr: unexpected delimiter %q", t)
		}
	case bool:
		return Bool(t), nil
	case json.Number:
		return Value{kind: KindNumber, s: string(t)}, nil
	case string:
		return String(t), nil
	case nil:
		return Null(), nil
	default:
		return Value{}, fmt.Errorf("attr: unexpected token %v", tok)
	}
}

// Marshal encodes v for embedding in a block delimiter comment.
//
// Output is compact JSON with unescaped slashes and unicode, where the
// sequences that could terminate or confuse an HTML comment are escaped:
// "--", "<", ">", "&" and the double quote.
func Marshal(v Value) string {
	var b strings.Builder
	writeDelimiterJSON(&b, v)
	return strings.ReplaceAll(b.String(), "--", unicodeEscape('-')+unicodeEscape('-'))
}

// MarshalObject is Marshal for an object.
func MarshalObject(o *Object) string {
	return Marshal(ObjectValue(o))
}

func writeDelimiterJSON(b *strings.Builder, v Value) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindBool, KindNumber:
		b.WriteString(v.Text())
	case KindString:
		writeDelimiterString(b, v.s)
	case KindArray:
		b.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				b.WriteByte(',')
			}
			writeDelimiterJSON(b, e)
		}
		b.WriteByte(']')
	case KindObject:
		b.WriteByte('{')
		first := true
		v.obj.Range(func(k string, e Value) bool {
			if !first {
				b.WriteByte(',')
			}
			first = false
			writeDelimiterString(b, k)
			b.WriteByte(':')
			writeDelimiterJSON(b, e)
			return true
		})
		b.WriteByte('}')
	}
}

func writeDelimiterString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '"', r == '<', r == '>', r == '&':
			b.WriteString(unicodeEscape(r))
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\b':
			b.WriteString(`\b`)
		case r == '\f':
			b.WriteString(`\f`)
		case r < 0x20:
			b.WriteString(unicodeEscape(r))
		case r == utf8.RuneError && size == 1:
			b.WriteString(unicodeEscape(utf8.RuneError))
		default:
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	b.WriteByte('"')
}

// unicodeEscape returns the JSON \uXXXX form of a BMP rune.
func unicodeEscape(r rune) string {
	return fmt.Sprintf("\\u%04x", r)
}
