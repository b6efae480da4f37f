package pptx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Any matches every element in a Path step.
var Any = xml.Name{Local: "*"}

// Name builds an element name for Path.
func Name(space, local string) xml.Name { return xml.Name{Space: space, Local: local} }

// Node is one element of a parsed XML part. Names carry the namespace URI,
// not the document prefix.
type Node struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Text     string
	Parent   *Node
	Children []*Node
}

// Parse reads a complete XML document into a Node tree. Nesting is tracked on
// an explicit stack, so document depth never grows the call stack.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var root *Node
	var stack []*Node
	var text []strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: el.Name, Attrs: append([]xml.Attr(nil), el.Attr...)}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				n.Parent = parent
				parent.Children = append(parent.Children, n)
			} else if root == nil {
				root = n
			} else {
				return nil, fmt.Errorf("multiple root elements: %s after %s", el.Name.Local, root.Name.Local)
			}
			stack = append(stack, n)
			text = append(text, strings.Builder{})

		case xml.EndElement:
			top := len(stack) - 1
			stack[top].Text = text[top].String()
			stack = stack[:top]
			text = text[:top]

		case xml.CharData:
			if len(stack) > 0 {
				text[len(text)-1].Write(el)
			}
		}
	}

	if root == nil {
		return nil, errors.New("no root element")
	}
	return root, nil
}

// Local returns the element name without namespace.
func (n *Node) Local() string { return n.Name.Local }

// Is reports whether the element has the given namespace and local name.
func (n *Node) Is(space, local string) bool {
	return n.Name.Space == space && n.Name.Local == local
}

// AttrValue looks up an attribute. Unprefixed attributes have an empty space.
func (n *Node) AttrValue(space, local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// AttrLocal looks up an attribute by local name in any namespace, preferring
// the unprefixed one.
func (n *Node) AttrLocal(local string) (string, bool) {
	if v, ok := n.AttrValue("", local); ok {
		return v, true
	}
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first child with the given name, or nil.
func (n *Node) Child(space, local string) *Node {
	for _, c := range n.Children {
		if c.Is(space, local) {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all children with the given name, in document order.
func (n *Node) ChildrenNamed(space, local string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Is(space, local) {
			out = append(out, c)
		}
	}
	return out
}

// Path follows a relative element path from n. Each step selects children of
// the previous step's matches; Any matches every child. Results keep document
// order.
func (n *Node) Path(steps ...xml.Name) []*Node {
	current := []*Node{n}
	for _, step := range steps {
		var next []*Node
		for _, c := range current {
			for _, child := range c.Children {
				if step.Local == Any.Local && step.Space == "" || child.Name == step {
					next = append(next, child)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// Walk visits n and all of its descendants in document order.
func (n *Node) Walk(fn func(*Node)) {
	stack := []*Node{n}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(top)
		for i := len(top.Children) - 1; i >= 0; i-- {
			stack = append(stack, top.Children[i])
		}
	}
}

// Descendants returns every element below n with the given name, in document
// order.
func (n *Node) Descendants(space, local string) []*Node {
	var out []*Node
	n.Walk(func(d *Node) {
		if d != n && d.Is(space, local) {
			out = append(out, d)
		}
	})
	return out
}
