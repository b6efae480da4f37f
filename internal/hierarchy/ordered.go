package hierarchy

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Ordered is a string-keyed map that remembers insertion order. Setting an
// existing key replaces its value in place.
type Ordered[V any] struct {
	keys []string
	vals map[string]V
}

// Set stores v under k.
func (o *Ordered[V]) Set(k string, v V) {
	if o.vals == nil {
		o.vals = make(map[string]V)
	}
	if _, ok := o.vals[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.vals[k] = v
}

// Get returns the value stored under k.
func (o Ordered[V]) Get(k string) (V, bool) {
	v, ok := o.vals[k]
	return v, ok
}

// Len returns the number of keys.
func (o Ordered[V]) Len() int { return len(o.keys) }

// Keys returns the keys in insertion order.
func (o Ordered[V]) Keys() []string { return append([]string(nil), o.keys...) }

// Values returns the values in insertion order.
func (o Ordered[V]) Values() []V {
	out := make([]V, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, o.vals[k])
	}
	return out
}

func (o Ordered[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(o.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o Ordered[V]) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range o.keys {
		var val yaml.Node
		if err := val.Encode(o.vals[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&val,
		)
	}
	return node, nil
}
