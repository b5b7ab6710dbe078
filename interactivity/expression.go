package interactivity

import (
	"errors"
	"strings"

	"github.com/jonwraymond/blockpress/attr"
)

// Expression errors reported as developer notices.
var (
	ErrEmptyExpression = errors.New("interactivity: namespace or reference path cannot be empty")
	ErrNoNamespace     = errors.New("interactivity: expression has no namespace")
)

// Expression is a parsed directive value: [namespace::][!]path.
type Expression struct {
	Namespace string
	Path      []string
	Negate    bool
}

// ParseExpression parses value using ns when no namespace is given.
func ParseExpression(value, ns string) (Expression, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Expression{}, ErrEmptyExpression
	}
	if before, after, ok := strings.Cut(value, "::"); ok {
		ns = strings.TrimSpace(before)
		value = strings.TrimSpace(after)
	}
	var e Expression
	if strings.HasPrefix(value, "!") {
		e.Negate = true
		value = strings.TrimSpace(value[1:])
	}
	if value == "" {
		return Expression{}, ErrEmptyExpression
	}
	if ns == "" {
		return Expression{}, ErrNoNamespace
	}
	e.Namespace = ns
	e.Path = strings.Split(value, ".")
	for _, p := range e.Path {
		if p == "" {
			return Expression{}, ErrEmptyExpression
		}
	}
	return e, nil
}

// scope supplies the roots an expression may read.
type scope struct {
	state   func(ns string) *attr.Object
	context *attr.Object // namespace -> context object
}

// evaluate resolves e. ok is false when the path does not exist.
func (e Expression) evaluate(s scope) (attr.Value, bool) {
	var root *attr.Object
	switch e.Path[0] {
	case "state":
		root = s.state(e.Namespace)
	case "context":
		if v, ok := s.context.Get(e.Namespace); ok {
			root, _ = v.AsObject()
		}
	default:
		return attr.Value{}, false
	}

	v := attr.ObjectValue(root)
	if len(e.Path) > 1 {
		var ok bool
		v, ok = root.Path(e.Path[1:]...)
		if !ok {
			return attr.Value{}, false
		}
	} else if root == nil {
		return attr.Value{}, false
	}

	if e.Negate {
		return attr.Bool(!v.Truthy()), true
	}
	return v, true
}
