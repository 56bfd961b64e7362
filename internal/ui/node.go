// internal/ui/node.go
//
// Virtual node tree produced by component render functions.
// Responsibilities:
//   - Small builder API (El, Text, Class, Data, When, Each) for declarative trees.
//   - Serialization to markup through golang.org/x/net/html so text and attribute
//     values are always escaped.
//
// Nodes are plain values: building a tree has no side effects, and the same tree
// can be serialized any number of times with identical output.

package ui

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node is one element, text run, or fragment in a rendered tree.
type Node struct {
	Tag      string // element name; empty for text and fragments
	Text     string // text content when Tag is empty and fragment is false
	Attrs    []Attr
	Children []*Node
	fragment bool
}

// Attr is a single element attribute. An Attr with an empty Key is dropped.
type Attr struct {
	Key string
	Val string
}

// Item is anything El accepts after the tag: attributes, child nodes, or groups.
type Item interface {
	applyTo(n *Node)
}

func (a Attr) applyTo(n *Node) {
	if a.Key == "" {
		return
	}
	n.Attrs = append(n.Attrs, a)
}

func (c *Node) applyTo(n *Node) {
	if c == nil {
		return
	}
	n.Children = append(n.Children, c)
}

// Attrs groups several attributes into one Item.
type Attrs []Attr

func (as Attrs) applyTo(n *Node) {
	for _, a := range as {
		a.applyTo(n)
	}
}

// Group is a list of children added in order (nil entries are skipped).
type Group []*Node

func (g Group) applyTo(n *Node) {
	for _, c := range g {
		c.applyTo(n)
	}
}

// El builds an element.
func El(tag string, items ...Item) *Node {
	n := &Node{Tag: tag}
	for _, it := range items {
		if it != nil {
			it.applyTo(n)
		}
	}
	return n
}

// Text builds a text node; the content is escaped on output.
func Text(s string) *Node { return &Node{Text: s} }

// Fragment groups children without a wrapping element.
func Fragment(children ...*Node) *Node {
	n := &Node{fragment: true}
	Group(children).applyTo(n)
	return n
}

// A is a plain attribute.
func A(key, val string) Attr { return Attr{Key: key, Val: val} }

// Class joins the non-empty names into a class attribute.
func Class(names ...string) Attr {
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			kept = append(kept, n)
		}
	}
	if len(kept) == 0 {
		return Attr{}
	}
	return Attr{Key: "class", Val: strings.Join(kept, " ")}
}

// Data is a data-* attribute.
func Data(name, val string) Attr { return Attr{Key: "data-" + name, Val: val} }

// Bool emits a boolean attribute (e.g. disabled) only when on is true.
func Bool(key string, on bool) Attr {
	if !on {
		return Attr{}
	}
	return Attr{Key: key}
}

// When returns n if cond holds, nil otherwise.
func When(cond bool, n *Node) *Node {
	if !cond {
		return nil
	}
	return n
}

// Each maps items to nodes.
func Each[T any](items []T, fn func(i int, v T) *Node) Group {
	out := make(Group, 0, len(items))
	for i, v := range items {
		out = append(out, fn(i, v))
	}
	return out
}

// Placeholder is the benign node rendered in place of content that failed.
func Placeholder(kind, label string) *Node {
	return El("div", Class("placeholder", kind), Text(label))
}

// Render writes the markup for n to w.
func Render(w io.Writer, n *Node) error {
	if n == nil {
		return nil
	}
	if n.fragment {
		for _, c := range n.Children {
			if err := Render(w, c); err != nil {
				return err
			}
		}
		return nil
	}
	return html.Render(w, n.toHTML())
}

// Markup returns the markup for n, or the serialization error (a void
// element with children, for example).
func (n *Node) Markup() (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// String is Markup with errors rendered as "".
func (n *Node) String() string {
	s, _ := n.Markup()
	return s
}

// Find returns the first node in the tree (depth-first) for which match is true.
func (n *Node) Find(match func(*Node) bool) *Node {
	if n == nil {
		return nil
	}
	if match(n) {
		return n
	}
	for _, c := range n.Children {
		if f := c.Find(match); f != nil {
			return f
		}
	}
	return nil
}

// HasClass reports whether the element carries the given class.
func (n *Node) HasClass(name string) bool {
	for _, a := range n.Attrs {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == name {
				return true
			}
		}
	}
	return false
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func (n *Node) toHTML() *html.Node {
	if n.Tag == "" && !n.fragment {
		return &html.Node{Type: html.TextNode, Data: n.Text}
	}
	el := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Tag,
		DataAtom: atom.Lookup([]byte(n.Tag)),
	}
	for _, a := range n.Attrs {
		el.Attr = append(el.Attr, html.Attribute{Key: a.Key, Val: a.Val})
	}
	for _, c := range n.Children {
		appendHTML(el, c)
	}
	return el
}

func appendHTML(parent *html.Node, n *Node) {
	if n == nil {
		return
	}
	if n.fragment {
		for _, c := range n.Children {
			appendHTML(parent, c)
		}
		return
	}
	parent.AppendChild(n.toHTML())
}
