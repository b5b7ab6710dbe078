package interactivity

import (
	"context"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/observe"
)

// Directive attribute names.
const (
	DirectivePrefix = "data-wp-"
	AttrInteractive = "data-wp-interactive"
	AttrContext     = "data-wp-context"
)

// noticeFunction names the processor in developer notices.
const noticeFunction = "Processor.Process"

// booleanAttributes are HTML attributes whose presence is their value.
var booleanAttributes = map[string]bool{
	"allowfullscreen": true, "async": true, "autofocus": true, "autoplay": true,
	"checked": true, "controls": true, "default": true, "defer": true,
	"disabled": true, "formnovalidate": true, "hidden": true, "inert": true,
	"ismap": true, "itemscope": true, "loop": true, "multiple": true,
	"muted": true, "nomodule": true, "novalidate": true, "open": true,
	"playsinline": true, "readonly": true, "required": true, "reversed": true,
	"selected": true,
}

// voidElements never have a closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// Processor applies directives to HTML.
//
// Contract:
// - Concurrency: safe for concurrent use; each Process call keeps its own
// namespace and context stacks.
// - Errors: never fails; invalid directives are skipped with a notice.
type Processor struct {
	store  *Store
	logger observe.Logger
}

// NewProcessor returns a processor reading state from store.
func NewProcessor(store *Store, logger observe.Logger) *Processor {
	if store == nil {
		store = NewStore(logger)
	}
	if logger == nil {
		logger = observe.NoopLogger()
	}
	return &Processor{store: store, logger: logger}
}

// Store returns the processor's state store.
func (p *Processor) Store() *Store { return p.store }

// frame is an open element.
type frame struct {
	name      string
	pushedNS  bool
	pushedCtx bool
}

type run struct {
	p          *Processor
	ctx        context.Context
	namespaces []string
	contexts   []*attr.Object
	elements   []frame
}

var errUnbalanced = errors.New("interactivity: unbalanced tags")

// Process applies the directives found in doc. When the document's tags
// are unbalanced it is returned unchanged.
func (p *Processor) Process(ctx context.Context, doc string) string {
	if !hasDirective(doc) {
		return doc
	}

	p.store.mu.RLock()
	defer p.store.mu.RUnlock()

	r := &run{p: p, ctx: ctx, contexts: []*attr.Object{attr.NewObject()}}
	out, err := r.process(doc)
	if err != nil {
		observe.DoingItWrong(ctx, p.logger, noticeFunction, err.Error())
		return doc
	}
	return out
}

// hasDirective reports whether s contains DirectivePrefix in any letter
// case. Attribute names are case-insensitive.
func hasDirective(s string) bool {
	n := len(DirectivePrefix)
	for i := 0; i+n <= len(s); i++ {
		if (s[i] == 'd' || s[i] == 'D') && strings.EqualFold(s[i:i+n], DirectivePrefix) {
			return true
		}
	}
	return false
}

func (r *run) process(doc string) (string, error) {
	var b strings.Builder
	b.Grow(len(doc))

	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		raw := string(z.Raw())

		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return "", z.Err()
			}
			b.WriteString(raw)
			if len(r.elements) > 0 {
				return "", errUnbalanced
			}
			return b.String(), nil

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			b.WriteString(r.startTag(raw, string(name), tt == html.SelfClosingTagToken))

		case html.EndTagToken:
			name, _ := z.TagName()
			if err := r.endTag(string(name)); err != nil {
				return "", err
			}
			b.WriteString(raw)

		default:
			b.WriteString(raw)
		}
	}
}

func (r *run) startTag(raw, name string, selfClosing bool) string {
	if !hasDirective(raw) {
		if !selfClosing && !voidElements[name] {
			r.elements = append(r.elements, frame{name: name})
		}
		return raw
	}

	t := parseTag(raw, name)
	f := frame{name: name}

	if a, ok := t.original(AttrInteractive); ok {
		r.namespaces = append(r.namespaces, interactiveNamespace(a.value, r.namespace()))
		f.pushedNS = true
	}
	if a, ok := t.original(AttrContext); ok {
		r.contexts = append(r.contexts, r.pushContext(a.value))
		f.pushedCtx = true
	}

	for _, kind := range []string{"bind", "class", "style"} {
		for _, attrName := range t.names() {
			suffix, ok := directiveSuffix(attrName, kind)
			if !ok {
				continue
			}
			a, _ := t.original(attrName)
			v, ok := r.evaluate(attrName, a)
			if !ok {
				continue
			}
			switch kind {
			case "bind":
				applyBind(t, suffix, v)
			case "class":
				applyClass(t, suffix, v)
			case "style":
				applyStyle(t, suffix, v)
			}
		}
	}

	if selfClosing || voidElements[name] {
		r.closeFrame(f)
	} else {
		r.elements = append(r.elements, f)
	}
	return t.String()
}

func (r *run) endTag(name string) error {
	if voidElements[name] {
		return nil
	}
	if len(r.elements) == 0 {
		return errUnbalanced
	}
	top := r.elements[len(r.elements)-1]
	if top.name != name {
		return errUnbalanced
	}
	r.elements = r.elements[:len(r.elements)-1]
	r.closeFrame(top)
	return nil
}

func (r *run) closeFrame(f frame) {
	if f.pushedNS {
		r.namespaces = r.namespaces[:len(r.namespaces)-1]
	}
	if f.pushedCtx {
		r.contexts = r.contexts[:len(r.contexts)-1]
	}
}

func (r *run) namespace() string {
	if len(r.namespaces) == 0 {
		return ""
	}
	return r.namespaces[len(r.namespaces)-1]
}

// interactiveNamespace reads a data-wp-interactive value: a namespace
// string or {"namespace":"..."}. Anything else inherits the parent.
func interactiveNamespace(value, parent string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "{") {
		if obj, err := attr.ParseObject([]byte(value)); err == nil {
			if ns, ok := obj.StringAt("namespace"); ok && ns != "" {
				return ns
			}
		}
		return parent
	}
	if value == "" {
		return parent
	}
	return value
}

// pushContext merges a data-wp-context value, optionally prefixed with
// "namespace::", into a copy of the current context.
func (r *run) pushContext(value string) *attr.Object {
	cur := r.contexts[len(r.contexts)-1].Clone()
	ns := r.namespace()
	value = strings.TrimSpace(value)
	if before, after, ok := strings.Cut(value, "::"); ok && !strings.HasPrefix(value, "{") {
		ns = strings.TrimSpace(before)
		value = strings.TrimSpace(after)
	}
	if ns == "" || value == "" {
		return cur
	}
	patch, err := attr.ParseObject([]byte(value))
	if err != nil {
		observe.DoingItWrong(r.ctx, r.p.logger, noticeFunction, "invalid data-wp-context value",
			observe.Field{Key: "value", Value: value})
		return cur
	}
	nsCtx := attr.NewObject()
	if existing, ok := cur.Get(ns); ok {
		if obj, isObj := existing.AsObject(); isObj {
			nsCtx = obj
		}
	}
	attr.Merge(nsCtx, patch)
	cur.Set(ns, attr.ObjectValue(nsCtx))
	return cur
}

// evaluate resolves a directive's expression. Missing references are
// skipped silently; empty or unqualified expressions produce a notice.
func (r *run) evaluate(attrName string, a rawAttr) (attr.Value, bool) {
	expr, err := ParseExpression(a.value, r.namespace())
	if err != nil {
		observe.DoingItWrong(r.ctx, r.p.logger, noticeFunction, err.Error(),
			observe.Field{Key: "directive", Value: attrName})
		return attr.Value{}, false
	}
	return expr.evaluate(scope{
		state:   r.p.store.lookup,
		context: r.contexts[len(r.contexts)-1],
	})
}

// directiveSuffix returns the suffix of data-wp-{kind}--{suffix}.
func directiveSuffix(attrName, kind string) (string, bool) {
	prefix := DirectivePrefix + kind + "--"
	if !strings.HasPrefix(attrName, prefix) {
		return "", false
	}
	suffix := strings.TrimPrefix(attrName, prefix)
	if suffix == "" {
		return "", false
	}
	return suffix, true
}

// applyBind sets or removes the bound attribute.
func applyBind(t *tag, name string, v attr.Value) {
	ariaOrData := strings.HasPrefix(name, "aria-") || strings.HasPrefix(name, "data-")

	switch {
	case booleanAttributes[name]:
		if v.Truthy() {
			t.setValueless(name)
		} else {
			t.remove(name)
		}
	case v.IsNull():
		t.remove(name)
	case v.Kind() == attr.KindBool:
		b, _ := v.AsBool()
		switch {
		case ariaOrData:
			t.set(name, v.Text())
		case b:
			t.setValueless(name)
		default:
			t.remove(name)
		}
	default:
		t.set(name, v.Text())
	}
}

// applyClass adds or removes one class. Removing the last class drops the
// attribute unless it was written empty.
func applyClass(t *tag, class string, v attr.Value) {
	value, present := t.get("class")
	classes := strings.Fields(value)

	if v.Truthy() {
		for _, c := range classes {
			if c == class {
				return
			}
		}
		t.set("class", strings.Join(append(classes, class), " "))
		return
	}

	if !present {
		return
	}
	kept := classes[:0]
	for _, c := range classes {
		if c != class {
			kept = append(kept, c)
		}
	}
	if len(kept) > 0 {
		t.set("class", strings.Join(kept, " "))
		return
	}
	if orig, ok := t.original("class"); ok && strings.TrimSpace(orig.value) == "" {
		t.restore("class")
		return
	}
	t.remove("class")
}

// applyStyle merges one property into the style attribute. A style that
// ends up empty is removed unless it was written empty.
func applyStyle(t *tag, prop string, v attr.Value) {
	value, _ := t.get("style")
	merged := MergeStyleProperty(value, prop, v)
	if merged != "" {
		t.set("style", merged)
		return
	}
	if orig, ok := t.original("style"); ok && strings.TrimSpace(orig.value) == "" {
		t.restore("style")
		return
	}
	if _, present := t.get("style"); present {
		t.remove("style")
	}
}
