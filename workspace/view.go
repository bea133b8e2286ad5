package workspace

import (
	"fmt"
	"strings"

	"github.com/teranos/graphex/graph"
	"github.com/teranos/graphex/query"
	"github.com/teranos/graphex/status"
	"github.com/teranos/graphex/tree"
)

// summaryAttributes is how many attributes the summary shows for the
// selected node.
const summaryAttributes = 2

// View is a snapshot of everything presentation needs. It is recomputed after
// every handled event and must be treated as read-only.
type View struct {
	GraphID       string        `json:"graph_id"`
	Banner        status.Banner `json:"banner"`
	CanRetry      bool          `json:"can_retry"`
	RetryDisabled bool          `json:"retry_disabled"`
	Upload        string        `json:"upload"`
	FileStatus    string        `json:"file_status"`

	Visualizer     string   `json:"visualizer"`
	Directed       bool     `json:"directed"`
	VisualizerNote string   `json:"visualizer_note"`
	RenderStatus   string   `json:"render_status,omitempty"`
	RenderError    string   `json:"render_error,omitempty"`
	Document       Document `json:"document"`

	Tree     []TreeRow `json:"tree"`
	Summary  *Summary  `json:"summary,omitempty"`
	Selected string    `json:"selected,omitempty"`

	Draft         query.Draft  `json:"draft"`
	Chips         []query.Chip `json:"chips"`
	ChipCount     string       `json:"chip_count"`
	SearchPreview string       `json:"search_preview"`

	Console ConsoleView `json:"console"`
}

// Document is the visualizer output that is valid for the current graph,
// visualizer and directedness. Version changes whenever a new document is
// installed; zero means there is none.
type Document struct {
	HTML       string `json:"-"`
	Version    uint64 `json:"version"`
	GraphID    string `json:"graph_id,omitempty"`
	Visualizer string `json:"visualizer,omitempty"`
	Directed   bool   `json:"directed"`
}

// Ready reports whether there is a document to show.
func (d Document) Ready() bool {
	return d.Version != 0 && d.HTML != ""
}

// TreeRow is a tree row with its selection marker.
type TreeRow struct {
	tree.Row
	Selected bool `json:"selected"`
}

// Marker is the row bullet.
func (r TreeRow) Marker() string {
	if r.Selected {
		return "●"
	}
	return "○"
}

// Text is the row caption: id, then the label when there is one.
func (r TreeRow) Text() string {
	if r.Label == "" {
		return r.ID
	}
	return r.ID + " - " + r.Label
}

// Summary is the bird's-eye panel.
type Summary struct {
	GraphID  string           `json:"graph_id"`
	Nodes    int              `json:"nodes"`
	Edges    int              `json:"edges"`
	Selected *SelectedSummary `json:"selected,omitempty"`
}

// SelectedSummary describes the selected node.
type SelectedSummary struct {
	ID         string       `json:"id"`
	Attributes []graph.Attr `json:"attributes"`
}

// AttributeLine renders the attributes as "k=v, k=v".
func (s SelectedSummary) AttributeLine() string {
	if len(s.Attributes) == 0 {
		return "No additional attributes"
	}
	parts := make([]string, 0, len(s.Attributes))
	for _, a := range s.Attributes {
		parts = append(parts, a.Key+"="+a.Text())
	}
	return strings.Join(parts, ", ")
}

// ConsoleView holds console lists, newest first.
type ConsoleView struct {
	History []string `json:"history"`
	Output  []string `json:"output"`
	// Printed counts lines ever printed.
	Printed uint64 `json:"printed"`
}

func (w *Workspace) computeView() View {
	hasGraph := w.hasGraph()
	counts := status.Counts{Nodes: w.graph.Len(), Edges: w.graph.EdgeCount()}

	v := View{
		GraphID:        w.graphID,
		Banner:         w.status.Banner(hasGraph, counts),
		CanRetry:       w.status.CanRetryLoad(w.upload != nil) || w.status.CanRetryRender(hasGraph),
		RetryDisabled:  w.status.RetryDisabled(),
		FileStatus:     w.fileStatus(),
		Visualizer:     w.visualizer,
		Directed:       w.directed,
		VisualizerNote: fmt.Sprintf("Active visualizer: %s (%s)", w.visualizer, directedness(w.directed)),
		Document:       w.currentDocument(),
		Selected:       w.selection.Selected(),
		Draft:          w.draft,
		Chips:          w.chips.Chips(),
		ChipCount:      w.chips.CountLabel(),
		SearchPreview:  w.draft.SearchPreview(),
		Console: ConsoleView{
			History: w.console.History(),
			Output:  w.console.Output(),
			Printed: w.console.Printed(),
		},
	}
	if w.upload != nil {
		v.Upload = w.upload.Name
	}

	render := w.status.Render()
	if render.State == status.Loading {
		v.RenderStatus = "Rendering..."
	}
	if render.State == status.Error {
		v.RenderError = render.Message
	}

	if !hasGraph {
		w.tree.Sync("", nil, w.directed)
		return v
	}

	rows := w.tree.Sync(w.graphID, w.graph, w.directed)
	v.Tree = make([]TreeRow, 0, len(rows))
	for _, r := range rows {
		v.Tree = append(v.Tree, TreeRow{Row: r, Selected: r.ID == v.Selected})
	}

	v.Summary = &Summary{GraphID: w.graphID, Nodes: counts.Nodes, Edges: counts.Edges}
	if node, ok := w.graph.Lookup(v.Selected); ok && v.Selected != "" {
		v.Summary.Selected = &SelectedSummary{
			ID:         node.ID,
			Attributes: graph.Attributes(node, summaryAttributes),
		}
	}
	return v
}

// currentDocument exposes the rendered document only while it matches what
// would be rendered now.
func (w *Workspace) currentDocument() Document {
	d := w.doc
	if !w.hasGraph() || w.status.Render().State != status.Success ||
		d.graphID != w.graphID || d.visualizer != w.visualizer || d.directed != w.directed || d.html == "" {
		return Document{}
	}
	return Document{
		HTML:       d.html,
		Version:    d.version,
		GraphID:    d.graphID,
		Visualizer: d.visualizer,
		Directed:   d.directed,
	}
}

func (w *Workspace) fileStatus() string {
	if w.upload == nil {
		return "Select a JSON or CSV file to load."
	}
	fetch := w.status.Fetch()
	switch fetch.State {
	case status.Loading:
		return fmt.Sprintf("Uploading %s...", w.upload.Name)
	case status.Success:
		id := "graph loaded"
		if w.graphID != "" {
			id = "graph_id " + w.graphID
		}
		return fmt.Sprintf("Loaded %s (%s).", w.upload.Name, id)
	case status.Error:
		if fetch.Message != "" {
			return fetch.Message
		}
		return "Failed to load graph."
	}
	return "Selected file: " + w.upload.Name
}

func directedness(directed bool) string {
	if directed {
		return "directed"
	}
	return "undirected"
}
