package library

import (
	"context"
	"html"
	"strings"

	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/blocktype"
	"github.com/jonwraymond/blockpress/interactivity"
)

// DisclosureNamespace is the interactivity namespace of core/disclosure.
const DisclosureNamespace = "core/disclosure"

type disclosure struct {
	deps Deps
}

// render wraps the inner blocks in a toggle. The open state lives in the
// block's directive context; the shared labels are seeded into the
// namespace's state.
func (d disclosure) render(ctx context.Context, attrs *attr.Object, content string, inst blocktype.Instance) (string, error) {
	if st := d.store(ctx); st != nil {
		st.State(DisclosureNamespace, attr.ObjectOf(
			"toggleTitle", "Toggle section",
		))
	}

	summary, _ := attrs.StringAt("summary")
	if strings.TrimSpace(summary) == "" {
		summary = "Details"
	}
	open := truthy(attrs, "open")

	ctxJSON, err := attr.ObjectOf("open", open).MarshalJSON()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("<div ")
	b.WriteString(wrapperAttributes(inst, map[string]string{
		"data-wp-interactive": DisclosureNamespace,
		"data-wp-context":     string(ctxJSON),
	}))
	b.WriteString(">")
	b.WriteString(`<button type="button" class="wp-block-disclosure__toggle"`)
	b.WriteString(` data-wp-bind--aria-expanded="context.open" data-wp-bind--title="state.toggleTitle">`)
	b.WriteString(html.EscapeString(summary))
	b.WriteString("</button>")
	b.WriteString(`<div class="wp-block-disclosure__content" data-wp-bind--hidden="!context.open" data-wp-class--is-open="context.open">`)
	b.WriteString(content)
	b.WriteString("</div></div>")
	return b.String(), nil
}

// store prefers the store of the document being rendered over the one
// given at registration.
func (d disclosure) store(ctx context.Context) *interactivity.Store {
	if st := interactivity.StoreFromContext(ctx); st != nil {
		return st
	}
	return d.deps.Interactivity
}
