package parsing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapmapper/pkg/core"
)

// textNodeName is the name carried by text nodes.
const textNodeName = "#text"

// Attr is a raw (unsubstituted) attribute.
type Attr struct {
	Name  string
	Value string
}

// Node is an element or text node of a description tree.
type Node struct {
	name     string
	attrs    []Attr
	children []*Node
	text     string
	vars     *Variables
}

// newElement creates an element node bound to vars.
func newElement(name string, vars *Variables) *Node {
	return &Node{name: name, vars: vars}
}

func newText(text string, vars *Variables) *Node {
	return &Node{name: textNodeName, text: text, vars: vars}
}

// Name returns the element name, or "#text" for text nodes.
func (n *Node) Name() string { return n.name }

// IsText reports whether n is a text node.
func (n *Node) IsText() bool { return n.name == textNodeName }

// Text returns the substituted content of a text node.
func (n *Node) Text() string { return n.vars.Replace(n.text) }

func (n *Node) setAttr(name, value string) {
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs[i].Value = value
			return
		}
	}
	n.attrs = append(n.attrs, Attr{Name: name, Value: value})
}

func (n *Node) appendChild(c *Node) { n.children = append(n.children, c) }

// Attr returns the substituted value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.attrs {
		if a.Name == name {
			return n.vars.Replace(a.Value), true
		}
	}
	return "", false
}

// HasAttr reports whether the attribute is present, even if empty.
func (n *Node) HasAttr(name string) bool {
	_, ok := n.Attr(name)
	return ok
}

// StringAttr returns the attribute value or "" when absent.
func (n *Node) StringAttr(name string) string {
	v, _ := n.Attr(name)
	return v
}

// StringAttrOr returns the attribute value or def when absent.
func (n *Node) StringAttrOr(name, def string) string {
	if v, ok := n.Attr(name); ok {
		return v
	}
	return def
}

// BoolAttr parses the attribute as a boolean; absent yields def.
func (n *Node) BoolAttr(name string, def bool) (bool, error) {
	v, ok := n.Attr(name)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("attribute %s of <%s>: %w", name, n.name, err)
	}
	return b, nil
}

// IntAttr parses the attribute as an integer; absent yields nil.
func (n *Node) IntAttr(name string) (*int, error) {
	v, ok := n.Attr(name)
	if !ok || v == "" {
		return nil, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("attribute %s of <%s>: %w", name, n.name, err)
	}
	return &i, nil
}

// AttrNames returns the attribute names in document order.
func (n *Node) AttrNames() []string {
	names := make([]string, len(n.attrs))
	for i, a := range n.attrs {
		names[i] = a.Name
	}
	return names
}

// Child returns the first element child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Elements returns the element children in document order.
func (n *Node) Elements() []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		if !c.IsText() {
			out = append(out, c)
		}
	}
	return out
}

// Children returns all children, text nodes included, in document order.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	return n.children
}

// Body returns the concatenated, substituted text directly under n.
func (n *Node) Body() string {
	var b strings.Builder
	for _, c := range n.children {
		if c.IsText() {
			b.WriteString(c.Text())
		}
	}
	return b.String()
}

// ChildrenAsProperties collects the name/value attributes of every element
// child, e.g. <property name="k" value="v"/>.
func (n *Node) ChildrenAsProperties() core.Properties {
	props := core.Properties{}
	for _, c := range n.Elements() {
		name, hasName := c.Attr("name")
		value, hasValue := c.Attr("value")
		if hasName && hasValue {
			props[name] = value
		}
	}
	return props
}

func (n *Node) String() string {
	if n.IsText() {
		return strings.TrimSpace(n.Text())
	}
	var b strings.Builder
	b.WriteString("<" + n.name)
	for _, a := range n.attrs {
		fmt.Fprintf(&b, " %s=%q", a.Name, n.vars.Replace(a.Value))
	}
	b.WriteString(">")
	return b.String()
}
