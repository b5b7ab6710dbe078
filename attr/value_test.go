package attr

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// esc builds a JSON unicode escape for use in expectations.
func esc(hex string) string { return `\` + "u" + hex }

func TestParse_PreservesOrderAndNumbers(t *testing.T) {
	v, err := Parse([]byte(`{"z":1.50,"a":{"y":true,"b":null},"m":[1,"x"]}`))
	require.NoError(t, err)

	obj, ok := v.AsObject()
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())

	z, _ := obj.Get("z")
	lit, ok := z.NumberLiteral()
	require.True(t, ok)
	assert.Equal(t, "1.50", lit)

	nested, ok := obj.Path("a", "y")
	require.True(t, ok)
	assert.True(t, nested.Truthy())

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1.50,"a":{"y":true,"b":null},"m":[1,"x"]}`, string(data))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ``},
		{"trailing", `{"a":1} {"b":2}`},
		{"unterminated", `{"a":`},
		{"bad literal", `{"a":tru}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestParseObject_RejectsNonObject(t *testing.T) {
	_, err := ParseObject([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestMarshal_DelimiterEscaping(t *testing.T) {
	obj := NewObject()
	obj.Set("content", String(`<b>"a" & b</b> -- done`))
	obj.Set("url", String("https://example.com/ü"))

	got := MarshalObject(obj)
	want := `{"content":"` +
		esc("003c") + `b` + esc("003e") +
		esc("0022") + `a` + esc("0022") + ` ` + esc("0026") + ` b` +
		esc("003c") + `/b` + esc("003e") + ` ` + esc("002d") + esc("002d") + ` done",` +
		`"url":"https://example.com/ü"}`
	assert.Equal(t, want, got)
}

func TestMarshal_RoundTrip(t *testing.T) {
	in := `{"level":2,"style":{"color":{"text":"#fff"}},"tags":["a","b"],"x":null}`
	v, err := Parse([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, in, Marshal(v))

	back, err := Parse([]byte(Marshal(v)))
	require.NoError(t, err)
	assert.True(t, Equal(v, back))
}

func TestValue_Truthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null(), false},
		{"false", Bool(false), false},
		{"true", Bool(true), true},
		{"empty string", String(""), false},
		{"zero string", String("0"), false},
		{"string", String("x"), true},
		{"zero", Int(0), false},
		{"float", Float(0.5), true},
		{"empty array", Array(), false},
		{"array", Array(Int(1)), true},
		{"empty object", ObjectValue(nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Truthy())
		})
	}
}

func TestValue_Text(t *testing.T) {
	assert.Equal(t, "", Null().Text())
	assert.Equal(t, "true", Bool(true).Text())
	assert.Equal(t, "12", Int(12).Text())
	assert.Equal(t, "1.5", Float(1.5).Text())
	assert.Equal(t, "red", String("red").Text())
	assert.Equal(t, `[1,"a"]`, Array(Int(1), String("a")).Text())
}

func TestEqual_NumbersByValue(t *testing.T) {
	assert.True(t, Equal(Number("1.0"), Int(1)))
	assert.False(t, Equal(Int(1), String("1")))
	assert.True(t, Equal(
		ObjectValue(ObjectOf("a", 1, "b", "x")),
		ObjectValue(ObjectOf("b", "x", "a", 1)),
	))
}

func TestFromInterface(t *testing.T) {
	v, err := FromInterface(map[string]any{"b": []any{1, "two"}, "a": true})
	require.NoError(t, err)
	obj, _ := v.AsObject()
	assert.Equal(t, []string{"a", "b"}, obj.Keys())

	_, err = FromInterface(struct{}{})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestMerge_Deep(t *testing.T) {
	dst := ObjectOf("style", map[string]any{"color": map[string]any{"text": "red"}}, "align", "wide")
	src := ObjectOf("style", map[string]any{"color": map[string]any{"background": "blue"}}, "align", "full")

	Merge(dst, src)

	text, _ := dst.StringAt("style", "color", "text")
	bg, _ := dst.StringAt("style", "color", "background")
	align, _ := dst.StringAt("align")
	assert.Equal(t, "red", text)
	assert.Equal(t, "blue", bg)
	assert.Equal(t, "full", align)
}

func TestObject_NilSafe(t *testing.T) {
	var o *Object
	assert.Equal(t, 0, o.Len())
	assert.False(t, o.Has("x"))
	assert.Nil(t, o.Keys())
	_, ok := o.Delete("x")
	assert.False(t, ok)
}

func TestObject_CloneIsDeep(t *testing.T) {
	orig := ObjectOf("inner", map[string]any{"k": "v"})
	clone := orig.Clone()
	inner, _ := clone.Path("inner")
	innerObj, _ := inner.AsObject()
	innerObj.Set("k", String("changed"))

	got, _ := orig.StringAt("inner", "k")
	assert.Equal(t, "v", got)
}
