package interactivity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/interactivity"
)

func TestMergeStyleProperty(t *testing.T) {
	tests := []struct {
		style string
		prop  string
		value attr.Value
		want  string
	}{
		{"color:red;margin:5px;", "color", attr.String(""), "margin:5px;"},
		{"color:red;margin:5px;", "color", attr.Null(), "margin:5px;"},
		{"color:red;margin:5px;", "color", attr.Bool(false), "margin:5px;"},
		{"color:red;margin:5px;", "color", attr.Int(0), "margin:5px;"},
		{"color:red;margin:5px;", "color", attr.String("blue"), "margin:5px;color:blue;"},
		{"color:red;margin:5px;", "padding", attr.String("1px"), "color:red;margin:5px;padding:1px;"},
		{"", "color", attr.String("red"), "color:red;"},
		{"color: red ; margin:5px", "margin", attr.Int(2), "color:red;margin:2;"},
		{"color:red;", "color", attr.String(""), ""},
	}
	for _, tt := range tests {
		t.Run(tt.style+"|"+tt.prop, func(t *testing.T) {
			assert.Equal(t, tt.want, interactivity.MergeStyleProperty(tt.style, tt.prop, tt.value))
		})
	}
}

func TestMergeStyleProperty_Idempotent(t *testing.T) {
	values := []attr.Value{attr.String("blue"), attr.String(""), attr.Null(), attr.Bool(false), attr.Int(3)}
	for _, style := range []string{"", "color:red;", "margin:5px;color:red;padding:0;"} {
		for _, v := range values {
			once := interactivity.MergeStyleProperty(style, "color", v)
			twice := interactivity.MergeStyleProperty(once, "color", v)
			assert.Equal(t, once, twice, "style %q value %v", style, v)
		}
	}
}

func TestMergeStyleProperty_MergeThenRemove(t *testing.T) {
	base := "margin:5px;padding:0;"
	merged := interactivity.MergeStyleProperty(base, "color", attr.String("red"))
	assert.Equal(t, base, interactivity.MergeStyleProperty(merged, "color", attr.Null()))
}
