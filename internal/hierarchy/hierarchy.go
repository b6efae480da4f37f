// Package hierarchy rebuilds the nested asset tree of a part from its flat
// records.
package hierarchy

import (
	"path"

	"github.com/gnemet/SlideGraph/internal/asset"
)

// Node is one rebuilt asset with its children keyed by asset id.
type Node struct {
	ID       string         `json:"asset_id" yaml:"asset_id"`
	Name     string         `json:"asset_name" yaml:"asset_name"`
	Type     asset.Type     `json:"asset_type" yaml:"asset_type"`
	Value    asset.Value    `json:"asset_value" yaml:"asset_value"`
	Children Ordered[*Node] `json:"children" yaml:"children"`
}

// Forest holds the top-level nodes of one part.
type Forest = Ordered[*Node]

// Document maps part names to their pruned forests.
type Document = Ordered[Forest]

type options struct {
	mediaBase string
}

// Option configures Build.
type Option func(*options)

// WithMediaBase rebases resolved Media values onto dir.
func WithMediaBase(dir string) Option {
	return func(o *options) { o.mediaBase = dir }
}

func (o options) value(r asset.Record) asset.Value {
	if o.mediaBase == "" || r.Type != asset.TypeMedia {
		return r.Value
	}
	if target, ok := r.Value.Get(); ok {
		return asset.Literal(path.Join(o.mediaBase, target))
	}
	return r.Value
}

// Build nests records in emission order. A record whose parent is an already
// placed node becomes that node's child; every other record, including ones
// whose parent was never seen, becomes a top-level node. A re-used id replaces
// the earlier node in the same container.
func Build(records []asset.Record, opts ...Option) Forest {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var forest Forest
	placed := make(map[string]*Node, len(records))
	for _, r := range records {
		n := &Node{ID: r.ID, Name: r.Name, Type: r.Type, Value: o.value(r)}
		if parent, ok := placed[r.ParentID]; ok && r.ParentID != asset.RootID {
			parent.Children.Set(r.ID, n)
		} else {
			forest.Set(r.ID, n)
		}
		placed[r.ID] = n
	}
	return forest
}

// Prune returns a new forest holding only nodes that have a value or a
// retained descendant. A value counts as absent when it serializes to the
// None sentinel, so a literal "None" text is dropped the same way whether
// the records come from extraction or from an exported table. The input is
// left untouched.
func Prune(f Forest) Forest {
	// Pre-order listing; walking it backwards decides children before parents.
	var order []*Node
	stack := reversed(f.Values())
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, n)
		stack = append(stack, reversed(n.Children.Values())...)
	}

	kept := make(map[*Node]*Node, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		c := &Node{ID: n.ID, Name: n.Name, Type: n.Type, Value: n.Value}
		for _, k := range n.Children.Keys() {
			child, _ := n.Children.Get(k)
			if p, ok := kept[child]; ok {
				c.Children.Set(k, p)
			}
		}
		if !absent(n.Value) || c.Children.Len() > 0 {
			kept[n] = c
		}
	}

	var out Forest
	for _, k := range f.Keys() {
		n, _ := f.Get(k)
		if p, ok := kept[n]; ok {
			out.Set(k, p)
		}
	}
	return out
}

// BuildDocument rebuilds and prunes every part of a package result.
func BuildDocument(res *asset.PackageResult, opts ...Option) Document {
	var doc Document
	for _, part := range res.Parts {
		doc.Set(part.Name, Prune(Build(part.Assets, opts...)))
	}
	return doc
}

func absent(v asset.Value) bool { return v.String() == asset.NoneValue }

func reversed(nodes []*Node) []*Node {
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return nodes
}
