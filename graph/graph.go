// Package graph holds the loaded nodes/edges container. A Graph is built once
// by Normalize or New and never mutated afterwards; replacing the loaded graph
// means building a new one.
package graph

import (
	"bytes"
	"encoding/json"

	"github.com/teranos/graphex/errors"
)

// DefaultAttributeCount is how many attributes Attributes returns when asked
// for a non-positive maximum.
const DefaultAttributeCount = 3

// Graph is a validated, indexed nodes/edges container.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`

	index      map[string]int
	ids        []string
	duplicates []string
}

// Validate reports whether candidate is a JSON object whose nodes and edges
// fields are both arrays.
func Validate(candidate []byte) bool {
	_, _, err := split(candidate)
	return err == nil
}

// Normalize decodes candidate into a fresh Graph. It accepts exactly what
// Validate accepts; anything else is rejected with an error wrapping
// errors.ErrInvalidGraph. Array entries that are not objects become an
// id-less node or an unresolved edge, which lookups and adjacency skip.
func Normalize(candidate []byte) (*Graph, error) {
	rawNodes, rawEdges, err := split(candidate)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rawNodes, &items); err != nil {
		return nil, invalid(err, "nodes")
	}
	nodes := make([]Node, 0, len(items))
	for i, item := range items {
		var n Node
		if !isObject(item) {
			nodes = append(nodes, n)
			continue
		}
		if err := json.Unmarshal(item, &n); err != nil {
			return nil, invalid(err, "nodes[%d]", i)
		}
		nodes = append(nodes, n)
	}

	items = nil
	if err := json.Unmarshal(rawEdges, &items); err != nil {
		return nil, invalid(err, "edges")
	}
	edges := make([]Edge, 0, len(items))
	for i, item := range items {
		var e Edge
		if !isObject(item) {
			edges = append(edges, e)
			continue
		}
		if err := json.Unmarshal(item, &e); err != nil {
			return nil, invalid(err, "edges[%d]", i)
		}
		edges = append(edges, e)
	}

	return build(nodes, edges), nil
}

// New builds a Graph from Go values. The slices are copied.
func New(nodes []Node, edges []Edge) *Graph {
	return build(append([]Node(nil), nodes...), append([]Edge(nil), edges...))
}

func build(nodes []Node, edges []Edge) *Graph {
	g := &Graph{
		Nodes: nodes,
		Edges: edges,
		index: make(map[string]int, len(nodes)),
	}
	seenDup := make(map[string]bool)
	for i, n := range nodes {
		if n.ID == "" {
			continue
		}
		if _, ok := g.index[n.ID]; ok {
			if !seenDup[n.ID] {
				seenDup[n.ID] = true
				g.duplicates = append(g.duplicates, n.ID)
			}
			continue
		}
		g.index[n.ID] = i
		g.ids = append(g.ids, n.ID)
	}
	return g
}

// UnmarshalJSON normalizes data into g.
func (g *Graph) UnmarshalJSON(data []byte) error {
	ng, err := Normalize(data)
	if err != nil {
		return err
	}
	*g = *ng
	return nil
}

// Lookup returns the first node whose id equals id.
func (g *Graph) Lookup(id string) (*Node, bool) {
	if g == nil {
		return nil, false
	}
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return &g.Nodes[i], true
}

// Has reports whether a node with id exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.Lookup(id)
	return ok
}

// NodeIDs returns node ids deduplicated in first-seen order.
func (g *Graph) NodeIDs() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.ids...)
}

// Duplicates returns ids that appear on more than one node. Lookups resolve
// them to the first occurrence.
func (g *Graph) Duplicates() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.duplicates...)
}

// Len returns the number of nodes as given, duplicates included.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Nodes)
}

// EdgeCount returns the number of edges as given.
func (g *Graph) EdgeCount() int {
	if g == nil {
		return 0
	}
	return len(g.Edges)
}

// Attributes picks up to max display attributes of n: preferred keys first,
// then the remaining keys in input order. Null values are skipped.
func Attributes(n *Node, max int) []Attr {
	if n == nil {
		return nil
	}
	if max <= 0 {
		max = DefaultAttributeCount
	}

	attrs := make([]Attr, 0, max)
	used := make(map[string]bool, len(PreferredKeys))
	for _, key := range PreferredKeys {
		if len(attrs) >= max {
			break
		}
		if a, ok := n.Get(key); ok && !a.IsNull() {
			attrs = append(attrs, a)
			used[key] = true
		}
	}
	for _, a := range n.Attrs {
		if len(attrs) >= max {
			break
		}
		if used[a.Key] || a.IsNull() {
			continue
		}
		attrs = append(attrs, a)
	}
	return attrs
}

func split(candidate []byte) (json.RawMessage, json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(candidate, &obj); err != nil || obj == nil {
		return nil, nil, errors.WithDetail(errors.ErrInvalidGraph, "graph must be a JSON object")
	}
	nodes, ok := obj["nodes"]
	if !ok || !isArray(nodes) {
		return nil, nil, errors.WithDetail(errors.ErrInvalidGraph, "nodes must be an array")
	}
	edges, ok := obj["edges"]
	if !ok || !isArray(edges) {
		return nil, nil, errors.WithDetail(errors.ErrInvalidGraph, "edges must be an array")
	}
	return nodes, edges, nil
}

func isArray(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	return len(v) > 0 && v[0] == '['
}

func invalid(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), errors.ErrInvalidGraph)
}
