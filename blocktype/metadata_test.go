package blocktype_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/blocktype"
	"github.com/jonwraymond/blockpress/observe"
)

const calloutJSON = `{
	"apiVersion": 3,
	"name": "acme/callout",
	"title": "Callout",
	"category": "text",
	"keywords": ["notice", "alert"],
	"attributes": {
		"content": { "type": "rich-text", "source": "rich-text", "selector": "p" },
		"tone": { "type": "string", "enum": ["info", "warning"], "default": "info" },
		"count": { "type": ["integer", "null"] }
	},
	"supports": { "color": { "text": true, "background": true }, "align": ["wide"] },
	"usesContext": ["postId"],
	"variations": [ { "name": "warning", "title": "Warning", "attributes": { "tone": "warning" } } ]
}`

func TestRegisterFromMetadata(t *testing.T) {
	fsys := fstest.MapFS{
		"blocks/callout/block.json": {Data: []byte(calloutJSON)},
	}
	reg := blocktype.NewRegistry()

	def, err := reg.RegisterFromMetadata(fsys, "blocks/callout",
		blocktype.WithRenderCallback(func(ctx context.Context, attrs *attr.Object, content string, inst blocktype.Instance) (string, error) {
			tone, _ := attrs.StringAt("tone")
			return `<div class="` + tone + `">` + content + `</div>`, nil
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, "acme/callout", def.Name)
	assert.Equal(t, "Callout", def.Title)
	assert.Equal(t, 3, def.APIVersion)
	assert.Equal(t, []string{"notice", "alert"}, def.Keywords)
	assert.Equal(t, []string{"postId"}, def.UsesContext)
	assert.True(t, def.HasSupport("color", "background"))
	assert.True(t, def.IsDynamic())
	assert.Equal(t, []string{"integer", "null"}, def.Attributes["count"].Type)

	vars := def.GetVariations(context.Background())
	require.Len(t, vars, 1)
	tone, _ := vars[0].Attributes.StringAt("tone")
	assert.Equal(t, "warning", tone)

	out, err := def.Render(context.Background(), attr.ObjectOf("tone", "loud"), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, `<div class="info">hi</div>`, out)
}

func TestRegisterFromMetadata_FilePath(t *testing.T) {
	fsys := fstest.MapFS{"callout/block.json": {Data: []byte(calloutJSON)}}
	def, err := blocktype.NewRegistry().RegisterFromMetadata(fsys, "callout/block.json")
	require.NoError(t, err)
	assert.False(t, def.IsDynamic())
}

func TestRegisterFromMetadata_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"missing title", `{"name":"acme/x"}`},
		{"bad name", `{"name":"Acme/X","title":"X"}`},
		{"bad attribute type", `{"name":"acme/x","title":"X","attributes":{"a":{"type":"decimal"}}}`},
		{"variation without name", `{"name":"acme/x","title":"X","variations":[{"title":"V"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := observe.NewRecorder()
			reg := blocktype.NewRegistry(blocktype.WithLogger(rec))
			fsys := fstest.MapFS{"x/block.json": {Data: []byte(tt.data)}}

			_, err := reg.RegisterFromMetadata(fsys, "x")
			require.ErrorIs(t, err, blocktype.ErrInvalidMetadata)
			assert.Empty(t, reg.Names())
			assert.Len(t, rec.Notices(), 1)
		})
	}
}

func TestRegisterFromMetadata_MissingFile(t *testing.T) {
	_, err := blocktype.NewRegistry().RegisterFromMetadata(fstest.MapFS{}, "nowhere")
	require.Error(t, err)
}

func TestRegisterFromMetadata_VariationCallbackIgnoredWhenExplicit(t *testing.T) {
	fsys := fstest.MapFS{"c/block.json": {Data: []byte(calloutJSON)}}
	called := false
	def, err := blocktype.NewRegistry().RegisterFromMetadata(fsys, "c",
		blocktype.WithVariationCallback(func() []blocktype.Variation {
			called = true
			return nil
		}))
	require.NoError(t, err)
	def.GetVariations(context.Background())
	assert.False(t, called)
}
