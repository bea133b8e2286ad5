// Package tree derives the hierarchical view of the loaded graph and keeps
// per-node expansion state in step with graph replacements.
package tree

import (
	"go.uber.org/zap"

	"github.com/teranos/graphex/graph"
	"github.com/teranos/graphex/logger"
)

// Row is one top-level entry of the tree view.
type Row struct {
	ID         string       `json:"id"`
	Label      string       `json:"label,omitempty"`
	Attributes []graph.Attr `json:"attributes"`
	Neighbors  []string     `json:"neighbors"`
	Expanded   bool         `json:"expanded"`
	Expandable bool         `json:"expandable"`
}

// Engine owns the expansion set. Expansion is retained only while both the
// graph id and the content signature stay the same, and never references a
// node that is gone.
type Engine struct {
	graphID    string
	signature  string
	expanded   map[string]bool
	expandable map[string]bool
	log        *zap.SugaredLogger
}

// NewEngine returns an Engine with nothing expanded.
func NewEngine(log *zap.SugaredLogger) *Engine {
	return &Engine{
		expanded:   make(map[string]bool),
		expandable: make(map[string]bool),
		log:        logger.OrNop(log),
	}
}

// Sync recomputes the rows for g and applies the reset policy. A nil graph
// yields no rows and clears all state.
func (e *Engine) Sync(graphID string, g *graph.Graph, directed bool) []Row {
	if g == nil {
		e.graphID, e.signature = "", ""
		e.clear()
		e.expandable = make(map[string]bool)
		return nil
	}

	sig := Signature(g)
	if graphID != e.graphID || sig != e.signature || e.hasStale(g) {
		if len(e.expanded) > 0 {
			e.log.Debugw("tree expansion reset",
				logger.FieldGraphID, graphID,
				logger.FieldCount, len(e.expanded))
		}
		e.clear()
		e.graphID, e.signature = graphID, sig
	}

	adj := BuildAdjacency(g, directed)
	rows := make([]Row, 0, len(adj.Order))
	e.expandable = make(map[string]bool, len(adj.Order))
	for _, id := range adj.Order {
		node, _ := g.Lookup(id)
		attrs := graph.Attributes(node, graph.DefaultAttributeCount)
		neighbors := adj.Neighbors[id]
		expandable := len(attrs) > 0 || len(neighbors) > 0
		e.expandable[id] = expandable

		rows = append(rows, Row{
			ID:         id,
			Label:      node.Label(),
			Attributes: attrs,
			Neighbors:  neighbors,
			Expanded:   expandable && e.expanded[id],
			Expandable: expandable,
		})
	}
	return rows
}

// Toggle flips the expansion of id. It reports false, changing nothing, when
// id was not expandable in the last Sync.
func (e *Engine) Toggle(id string) bool {
	if !e.expandable[id] {
		return false
	}
	if e.expanded[id] {
		delete(e.expanded, id)
	} else {
		e.expanded[id] = true
	}
	return true
}

// IsExpanded reports whether id is expanded.
func (e *Engine) IsExpanded(id string) bool {
	return e.expanded[id]
}

// Expanded returns the expanded ids in tree order.
func (e *Engine) Expanded() []string {
	ids := make([]string, 0, len(e.expanded))
	for id := range e.expanded {
		ids = append(ids, id)
	}
	Sort(ids)
	return ids
}

// Signature returns the signature observed by the last Sync.
func (e *Engine) Signature() string {
	return e.signature
}

func (e *Engine) hasStale(g *graph.Graph) bool {
	for id := range e.expanded {
		if !g.Has(id) {
			return true
		}
	}
	return false
}

func (e *Engine) clear() {
	e.expanded = make(map[string]bool)
}
