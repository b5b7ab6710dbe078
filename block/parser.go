package block

import (
	"strings"

	"github.com/jonwraymond/blockpress/attr"
)

type tokenKind uint8

const (
	tokenNone tokenKind = iota
	tokenOpener
	tokenCloser
	tokenVoid
)

// token is a lexed block delimiter spanning doc[start:end].
type token struct {
	kind     tokenKind
	name     string
	implicit bool
	attrs    *attr.Object
	start    int
	end      int
}

// lexState is a state of the delimiter lexer.
type lexState uint8

const (
	lexLeadingSpace lexState = iota
	lexCloserMark
	lexPrefix
	lexName
	lexNameSpace
	lexAttrs
	lexTerminator
	lexDone
)

const (
	commentOpen  = "<!--"
	commentClose = "-->"
	voidClose    = "/-->"
	delimPrefix  = "wp:"
)

// nextToken finds the first well-formed delimiter at or after from.
func nextToken(doc string, from int) token {
	for from < len(doc) {
		i := strings.Index(doc[from:], commentOpen)
		if i < 0 {
			return token{}
		}
		start := from + i
		if tok, ok := lexDelimiter(doc, start); ok {
			return tok
		}
		from = start + len(commentOpen)
	}
	return token{}
}

// lexDelimiter attempts to read a delimiter starting at doc[start], which
// holds "<!--".
func lexDelimiter(doc string, start int) (token, bool) {
	tok := token{kind: tokenOpener, start: start}
	pos := start + len(commentOpen)

	for state := lexLeadingSpace; state != lexDone; {
		switch state {
		case lexLeadingSpace:
			n := spaceRun(doc, pos)
			if n == 0 {
				return token{}, false
			}
			pos += n
			state = lexCloserMark

		case lexCloserMark:
			if pos < len(doc) && doc[pos] == '/' {
				tok.kind = tokenCloser
				pos++
			}
			state = lexPrefix

		case lexPrefix:
			if !strings.HasPrefix(doc[pos:], delimPrefix) {
				return token{}, false
			}
			pos += len(delimPrefix)
			state = lexName

		case lexName:
			name, ok := scanName(doc[pos:])
			if !ok {
				return token{}, false
			}
			tok.name = CanonicalName(name)
			tok.implicit = !strings.Contains(name, "/")
			pos += len(name)
			state = lexNameSpace

		case lexNameSpace:
			n := spaceRun(doc, pos)
			if n == 0 {
				return token{}, false
			}
			pos += n
			if pos < len(doc) && doc[pos] == '{' {
				state = lexAttrs
			} else {
				state = lexTerminator
			}

		case lexAttrs:
			end, attrs, ok := scanAttrs(doc, pos)
			if !ok {
				return token{}, false
			}
			tok.attrs = attrs
			pos = end
			state = lexTerminator

		case lexTerminator:
			switch {
			case strings.HasPrefix(doc[pos:], voidClose):
				if tok.kind == tokenOpener {
					tok.kind = tokenVoid
				}
				pos += len(voidClose)
			case strings.HasPrefix(doc[pos:], commentClose):
				pos += len(commentClose)
			default:
				return token{}, false
			}
			state = lexDone
		}
	}

	if tok.attrs == nil {
		tok.attrs = attr.NewObject()
	}
	tok.end = pos
	return tok, true
}

// scanAttrs reads a JSON object starting at doc[pos] == '{'. The object
// ends at the first '}' that is followed by whitespace and a terminator.
// It returns the offset just past the whitespace after the object.
func scanAttrs(doc string, pos int) (int, *attr.Object, bool) {
	for j := pos + 1; j < len(doc); j++ {
		if doc[j] != '}' {
			continue
		}
		n := spaceRun(doc, j+1)
		if n == 0 {
			continue
		}
		rest := doc[j+1+n:]
		if !strings.HasPrefix(rest, commentClose) && !strings.HasPrefix(rest, voidClose) {
			continue
		}
		obj, err := attr.ParseObject([]byte(doc[pos : j+1]))
		if err != nil {
			return 0, nil, false
		}
		return j + 1 + n, obj, true
	}
	return 0, nil, false
}

func spaceRun(doc string, pos int) int {
	n := 0
	for pos+n < len(doc) {
		switch doc[pos+n] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			n++
		default:
			return n
		}
	}
	return n
}

// frame is an open block awaiting its closer.
type frame struct {
	node *Node
	// start is the offset of the opener; prev is where unconsumed inner
	// HTML begins.
	start int
	prev  int
}

// parser holds the state of one Parse call.
type parser struct {
	doc    string
	output []*Node
	stack  []*frame
	// offset is where pending top-level freeform HTML begins.
	offset int
}

// Parse parses content into a sequence of nodes in document order.
//
// Parse never fails. Closers that do not match the innermost open block
// are kept as literal HTML, and blocks left open consume the rest of the
// document.
func Parse(content string) []*Node {
	p := &parser{doc: content}
	for scan := 0; ; {
		tok := nextToken(content, scan)
		if tok.kind == tokenNone {
			p.finish()
			return p.output
		}
		scan = tok.end
		p.handle(tok)
	}
}

func (p *parser) handle(tok token) {
	switch tok.kind {
	case tokenVoid:
		leaf := &Node{Name: tok.name, Attrs: tok.attrs, ImplicitNamespace: tok.implicit}
		if len(p.stack) == 0 {
			p.addFreeform(p.doc[p.offset:tok.start])
			p.output = append(p.output, leaf)
			p.offset = tok.end
			return
		}
		p.addInner(p.top(), leaf, tok.start, tok.end)

	case tokenOpener:
		if len(p.stack) == 0 {
			p.addFreeform(p.doc[p.offset:tok.start])
			p.offset = tok.end
		}
		p.stack = append(p.stack, &frame{
			node:  &Node{Name: tok.name, Attrs: tok.attrs, ImplicitNamespace: tok.implicit},
			start: tok.start,
			prev:  tok.end,
		})

	case tokenCloser:
		if len(p.stack) == 0 || p.top().node.Name != tok.name {
			// Stray closer: leave it in place as HTML.
			return
		}
		closed := p.pop()
		closed.node.appendHTML(p.doc[closed.prev:tok.start])
		if len(p.stack) == 0 {
			p.output = append(p.output, closed.node)
			p.offset = tok.end
			return
		}
		p.addInner(p.top(), closed.node, closed.start, tok.end)
	}
}

// addInner attaches child to parent. The child's delimiters span
// doc[start:end].
func (p *parser) addInner(parent *frame, child *Node, start, end int) {
	parent.node.appendHTML(p.doc[parent.prev:start])
	parent.node.appendBlock(child)
	parent.prev = end
}

// finish closes any blocks left open at end of input, innermost first.
func (p *parser) finish() {
	for len(p.stack) > 0 {
		open := p.pop()
		open.node.appendHTML(p.doc[open.prev:])
		if len(p.stack) == 0 {
			p.output = append(p.output, open.node)
			p.offset = len(p.doc)
			return
		}
		p.addInner(p.top(), open.node, open.start, len(p.doc))
	}
	p.addFreeform(p.doc[p.offset:])
	p.offset = len(p.doc)
}

func (p *parser) addFreeform(html string) {
	if html == "" {
		return
	}
	p.output = append(p.output, NewFreeform(html))
}

func (p *parser) top() *frame { return p.stack[len(p.stack)-1] }

func (p *parser) pop() *frame {
	f := p.top()
	p.stack = p.stack[:len(p.stack)-1]
	return f
}
