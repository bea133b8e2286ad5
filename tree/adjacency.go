package tree

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/teranos/graphex/graph"
)

// Adjacency is the ordered neighbor view of a graph.
type Adjacency struct {
	// Order holds node ids deduplicated and sorted with Compare.
	Order []string
	// Neighbors maps every id in Order to its sorted, deduplicated neighbors.
	Neighbors map[string][]string
}

// BuildAdjacency derives the neighbor view of g. Directed graphs record
// source to target only; undirected graphs record both directions. Edges whose
// endpoints are not nodes of g are skipped.
func BuildAdjacency(g *graph.Graph, directed bool) Adjacency {
	order := g.NodeIDs()
	Sort(order)

	adj := Adjacency{
		Order:     order,
		Neighbors: make(map[string][]string, len(order)),
	}
	seen := make(map[string]map[string]bool, len(order))
	for _, id := range order {
		adj.Neighbors[id] = []string{}
		seen[id] = make(map[string]bool)
	}

	link := func(from, to string) {
		if seen[from][to] {
			return
		}
		seen[from][to] = true
		adj.Neighbors[from] = append(adj.Neighbors[from], to)
	}

	if g != nil {
		for _, e := range g.Edges {
			if !g.Has(e.Source) || !g.Has(e.Target) {
				continue
			}
			link(e.Source, e.Target)
			if !directed {
				link(e.Target, e.Source)
			}
		}
	}

	for _, id := range order {
		Sort(adj.Neighbors[id])
	}
	return adj
}

// Signature is a content digest of g: the sorted node ids and the sorted
// "source->target" edge strings, hashed with SHA-256. Graph identity is not
// part of it.
func Signature(g *graph.Graph) string {
	ids := g.NodeIDs()
	sort.Strings(ids)

	var edges []string
	if g != nil {
		edges = make([]string, 0, len(g.Edges))
		for _, e := range g.Edges {
			edges = append(edges, e.Source+"->"+e.Target)
		}
	}
	sort.Strings(edges)

	h := sha256.New()
	h.Write([]byte(strings.Join(ids, "\x00")))
	h.Write([]byte("::"))
	h.Write([]byte(strings.Join(edges, "\x00")))
	return hex.EncodeToString(h.Sum(nil))
}
