package workspace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/graphex/backend"
	"github.com/teranos/graphex/errors"
	"github.com/teranos/graphex/graph"
	grapherror "github.com/teranos/graphex/graph/error"
	"github.com/teranos/graphex/query"
	"github.com/teranos/graphex/selection"
	"github.com/teranos/graphex/status"
)

func TestLoad_InstallsGraphAndRenders(t *testing.T) {
	h := newHarness(t)

	h.do(func(w *Workspace) {
		w.SelectUpload("g.json", []byte(`{"nodes":[]}`))
	})
	assert.Equal(t, "Selected file: g.json", h.view().FileStatus)

	h.do(func(w *Workspace) { w.Load() })
	v := h.view()
	assert.Equal(t, status.Banner{Label: "Uploading and parsing graph...", Tone: status.ToneLoading}, v.Banner)
	assert.Equal(t, "Uploading g.json...", v.FileStatus)
	assert.True(t, v.RetryDisabled)

	load := h.next("load")
	assert.Equal(t, []string{"g.json", `{"nodes":[]}`}, load.args)
	load.answer(result{load: &backend.LoadResult{
		GraphID: "g1",
		Graph:   chainGraph(),
		Meta:    backend.LoadMeta{Filename: "g.json"},
	}})

	render := h.next("render")
	assert.Equal(t, []string{"simple", "1", "g1"}, render.args)
	h.settle(1)

	v = h.view()
	assert.Equal(t, "g1", v.GraphID)
	assert.Equal(t, "Rendering graph...", v.Banner.Label)
	assert.Equal(t, "Rendering...", v.RenderStatus)
	assert.Equal(t, "Loaded g.json (graph_id g1).", v.FileStatus)
	assert.False(t, v.Document.Ready())
	require.Len(t, v.Tree, 3)
	assert.Equal(t, []string{"n2"}, v.Tree[0].Neighbors)
	require.NotNil(t, v.Summary)
	assert.Equal(t, 3, v.Summary.Nodes)
	assert.Equal(t, 2, v.Summary.Edges)

	render.answer(result{html: "<html>g1</html>"})
	h.settle(0)

	v = h.view()
	assert.Equal(t, status.Banner{Label: "Graph loaded from g.json (3 nodes, 2 edges at 09:30:00).", Tone: status.ToneSuccess}, v.Banner)
	assert.True(t, v.Document.Ready())
	assert.Equal(t, "<html>g1</html>", v.Document.HTML)
	assert.Equal(t, "Active visualizer: simple (directed)", v.VisualizerNote)
}

func TestLoad_AutoHideDemotesSuccess(t *testing.T) {
	h := newHarness(t)
	h.loadChain()

	h.do(func(w *Workspace) { h.clock.Advance(4 * time.Second) })
	assert.Equal(t, status.ToneSuccess, h.view().Banner.Tone)

	h.do(func(w *Workspace) { h.clock.Advance(time.Second) })
	v := h.view()
	assert.False(t, v.Banner.Visible())
	assert.Equal(t, "Selected file: g.json", v.FileStatus)
}

func TestLoad_WithoutUpload(t *testing.T) {
	h := newHarness(t)

	h.do(func(w *Workspace) { w.Load() })
	v := h.view()
	assert.Equal(t, status.Banner{Label: MsgNoUpload, Tone: status.ToneError}, v.Banner)
	assert.False(t, v.CanRetry)
	h.noCalls()
}

func TestLoad_FailureClearsGraphAndOffersRetry(t *testing.T) {
	h := newHarness(t)
	h.loadChain()

	h.do(func(w *Workspace) { w.Load() })
	v := h.view()
	assert.Empty(t, v.GraphID, "graph is cleared as soon as a load starts")
	assert.Empty(t, v.Tree)

	h.next("load").answer(result{err: grapherror.New(grapherror.CategoryTransport, errors.New("boom"), "HTTP 500")})
	h.settle(0)

	v = h.view()
	assert.Equal(t, status.Banner{Label: "Failed to load graph (HTTP 500)", Tone: status.ToneError}, v.Banner)
	assert.Equal(t, "Failed to load graph (HTTP 500)", v.FileStatus)
	assert.True(t, v.CanRetry)
	assert.Nil(t, v.Summary)

	var retried bool
	h.do(func(w *Workspace) { retried = w.Retry() })
	assert.True(t, retried)
	h.next("load")
}

func TestLoad_EmptyErrorMessage(t *testing.T) {
	h := newHarness(t)
	h.do(func(w *Workspace) {
		w.SelectUpload("g.json", nil)
		w.Load()
	})
	h.next("load").answer(result{err: errors.New("  ")})
	h.settle(0)

	assert.Equal(t, "Failed to load graph (Unexpected error.)", h.view().Banner.Label)
}

func TestLoad_SupersededLoadIsDropped(t *testing.T) {
	h := newHarness(t)
	h.do(func(w *Workspace) {
		w.SelectUpload("a.json", nil)
		w.Load()
	})
	first := h.next("load")

	h.do(func(w *Workspace) {
		w.SelectUpload("b.json", nil)
		w.Load()
	})
	second := h.next("load")

	second.answer(result{load: &backend.LoadResult{GraphID: "b", Graph: chainGraph()}})
	h.next("render")
	first.answer(result{load: &backend.LoadResult{GraphID: "a", Graph: chainGraph()}})
	h.settle(1)

	assert.Equal(t, "b", h.view().GraphID)
	h.noCalls()
}

func TestRender_LatestRequestWins(t *testing.T) {
	h := newHarness(t)
	h.loadChain()

	h.do(func(w *Workspace) { assert.NoError(t, w.SetVisualizer(VisualizerBlock)) })
	r1 := h.next("render")
	assert.Equal(t, []string{"block", "1", "g1"}, r1.args)

	h.do(func(w *Workspace) { w.SetDirected(false) })
	r2 := h.next("render")
	assert.Equal(t, []string{"block", "0", "g1"}, r2.args)
	assert.False(t, h.view().Document.Ready(), "old document no longer matches")

	r2.answer(result{html: "<html>R2</html>"})
	h.settle(1)
	r1.answer(result{html: "<html>R1</html>"})
	h.settle(0)

	v := h.view()
	assert.Equal(t, "<html>R2</html>", v.Document.HTML)
	assert.False(t, v.Document.Directed)
	assert.Equal(t, "Active visualizer: block (undirected)", v.VisualizerNote)
}

func TestRender_StaleErrorIgnored(t *testing.T) {
	h := newHarness(t)
	h.loadChain()

	h.do(func(w *Workspace) { w.Render() })
	r1 := h.next("render")
	h.do(func(w *Workspace) { w.Render() })
	r2 := h.next("render")

	r1.answer(result{err: errors.New("late failure")})
	h.settle(1)
	h.do(func(w *Workspace) { assert.Equal(t, status.Loading, w.status.Render().State) })

	r2.answer(result{html: "<html>ok</html>"})
	h.settle(0)
	assert.True(t, h.view().Document.Ready())
}

func TestRender_FailureOffersRetry(t *testing.T) {
	h := newHarness(t)
	h.loadChain()

	h.do(func(w *Workspace) { w.Render() })
	h.next("render").answer(result{err: grapherror.New(grapherror.CategoryTransport, nil, "plugin crashed")})
	h.settle(0)

	v := h.view()
	assert.Equal(t, status.Banner{Label: "Failed to render simple visualizer (plugin crashed)", Tone: status.ToneError}, v.Banner)
	assert.Equal(t, "Failed to render simple visualizer (plugin crashed)", v.RenderError)
	assert.True(t, v.CanRetry)

	h.do(func(w *Workspace) { assert.True(t, w.Retry()) })
	h.next("render")
}

func TestSetVisualizer(t *testing.T) {
	h := newHarness(t)

	h.do(func(w *Workspace) {
		assert.True(t, errors.Is(w.SetVisualizer("radial"), errors.ErrInvalidRequest))
		assert.NoError(t, w.SetVisualizer(VisualizerSimple))
		assert.NoError(t, w.SetVisualizer(VisualizerBlock))
	})
	assert.Equal(t, VisualizerBlock, h.view().Visualizer)
	h.noCalls()
}

func TestSearch_WithoutGraph(t *testing.T) {
	h := newHarness(t)
	h.do(func(w *Workspace) {
		w.SetDraft(query.Draft{SearchText: "db"})
		w.Search()
	})
	assert.Equal(t, []string{MsgLoadGraphFirst}, h.view().Console.Output)
	h.noCalls()
}

func TestSearch_ReplacesGraphAndReconcilesSelection(t *testing.T) {
	h := newHarness(t)
	h.loadChain()
	ch := &channel{}
	h.do(func(w *Workspace) {
		h.surface.ch = ch
		require.True(t, w.Select("n3"))
		require.True(t, w.ToggleExpanded("n1"))
	})

	h.do(func(w *Workspace) {
		w.SetDraft(query.Draft{SearchText: " proc ", Operator: "=="})
		w.Search()
	})
	search := h.next("search")
	assert.Equal(t, []string{"g1", "proc"}, search.args)

	filtered := graph.New([]graph.Node{graph.NewNode("n1"), graph.NewNode("n2", graph.A("label", "Processor"))},
		[]graph.Edge{{Source: "n1", Target: "n2"}})
	search.answer(result{reply: &backend.Reply{OK: true, Message: "Found 2 nodes", Graph: filtered}})
	render := h.next("render")
	assert.Equal(t, []string{"simple", "1", "g1"}, render.args)
	h.settle(1)

	v := h.view()
	assert.Equal(t, "", v.Selected, "n3 vanished")
	assert.Equal(t, []string{"Found 2 nodes"}, v.Console.Output)
	assert.Len(t, v.Tree, 2)
	for _, r := range v.Tree {
		assert.False(t, r.Expanded, "signature changed")
	}

	msgs := ch.messages()
	for _, m := range msgs {
		assert.NotEqual(t, selection.SelectNode(""), m, "no clear is sent for a vanished node")
	}
}

func TestSearch_SameContentKeepsExpansion(t *testing.T) {
	h := newHarness(t)
	h.loadChain()
	h.do(func(w *Workspace) {
		require.True(t, w.ToggleExpanded("n2"))
		w.SetDraft(query.Draft{SearchText: "all"})
		w.Search()
	})
	h.next("search").answer(result{reply: &backend.Reply{OK: true, Message: "ok", Graph: chainGraph()}})
	h.next("render")
	h.settle(1)

	v := h.view()
	require.Len(t, v.Tree, 3)
	assert.True(t, v.Tree[1].Expanded)
}

func TestSearch_FailurePrintsMessageKeepsGraph(t *testing.T) {
	h := newHarness(t)
	h.loadChain()
	h.do(func(w *Workspace) {
		w.SetDraft(query.Draft{SearchText: "x"})
		w.Search()
	})
	h.next("search").answer(result{
		reply: &backend.Reply{Message: "Request failed (HTTP 500)."},
		err:   errors.New("HTTP 500"),
	})
	h.settle(0)

	v := h.view()
	assert.Equal(t, "g1", v.GraphID)
	assert.Equal(t, []string{"Request failed (HTTP 500)."}, v.Console.Output)
	h.noCalls()
}

func TestSearch_DroppedWhenGraphReplaced(t *testing.T) {
	h := newHarness(t)
	h.loadChain()
	h.do(func(w *Workspace) {
		w.SetDraft(query.Draft{SearchText: "x"})
		w.Search()
	})
	search := h.next("search")

	h.do(func(w *Workspace) { w.Load() })
	load := h.next("load")

	search.answer(result{reply: &backend.Reply{OK: true, Message: "stale", Graph: chainGraph()}})
	h.settle(1)
	v := h.view()
	assert.Empty(t, v.GraphID)
	assert.Empty(t, v.Console.Output)

	load.answer(result{load: &backend.LoadResult{GraphID: "g2", Graph: chainGraph()}})
	h.next("render")
	h.settle(1)
	assert.Equal(t, "g2", h.view().GraphID)
}

func TestSearch_EmptyTextResets(t *testing.T) {
	h := newHarness(t)
	h.loadChain()
	h.do(func(w *Workspace) {
		w.SetDraft(query.Draft{SearchText: "  ", Attribute: "type"})
		w.Search()
	})
	h.next("reset")

	assert.Equal(t, query.NewDraft(), h.view().Draft)
}

func TestFilter_Validation(t *testing.T) {
	h := newHarness(t)
	h.loadChain()
	h.do(func(w *Workspace) {
		w.SetDraft(query.Draft{Attribute: "type", Operator: "=="})
		w.Filter()
	})
	assert.Equal(t, []string{MsgFilterIncomplete}, h.view().Console.Output)
	h.noCalls()
}

func TestApplyQuery_ChipsThenSearchThenFilter(t *testing.T) {
	h := newHarness(t)
	h.loadChain()
	h.do(func(w *Workspace) {
		w.SetDraft(query.Draft{SearchText: "proc", Attribute: "type", Operator: "!=", Value: "sink"})
		w.ApplyQuery()
	})

	v := h.view()
	require.Len(t, v.Chips, 2)
	assert.Equal(t, "search: proc", v.Chips[0].Label)
	assert.Equal(t, "type != sink", v.Chips[1].Label)
	assert.Equal(t, "2 applied", v.ChipCount)
	assert.Equal(t, "Current search: proc", v.SearchPreview)

	h.next("search").answer(result{reply: &backend.Reply{OK: true, Message: "searched"}})
	filter := h.next("filter")
	assert.Equal(t, []string{"g1", "type", "!=", "sink"}, filter.args)
	filter.answer(result{reply: &backend.Reply{OK: true, Message: "filtered"}})
	h.settle(0)

	assert.Equal(t, []string{"filtered", "searched"}, h.view().Console.Output)

	h.do(func(w *Workspace) {
		assert.True(t, w.RemoveChip(1))
		assert.False(t, w.RemoveChip(1))
	})
	assert.Equal(t, "1 applied", h.view().ChipCount)
}

func TestResetQuery_InstallsOriginalGraph(t *testing.T) {
	h := newHarness(t)
	h.loadChain()
	h.do(func(w *Workspace) {
		w.SetDraft(query.Draft{SearchText: "x"})
		w.ApplyQuery()
	})
	h.next("search").answer(result{reply: &backend.Reply{OK: true, Message: "1 node",
		Graph: graph.New([]graph.Node{graph.NewNode("n1")}, nil)}})
	h.next("render")
	h.settle(1)

	h.do(func(w *Workspace) { w.ResetQuery() })
	v := h.view()
	assert.Empty(t, v.Chips)
	assert.Equal(t, query.NewDraft(), v.Draft)

	reset := h.next("reset")
	assert.Equal(t, []string{"g1"}, reset.args)
	reset.answer(result{reply: &backend.Reply{OK: true, Graph: chainGraph()}})
	h.next("render")
	h.settle(2)

	assert.Len(t, h.view().Tree, 3)
	h.do(func(w *Workspace) {
		assert.Equal(t, 1, w.chips.Add("again", query.KindSearch, query.Payload{}).ID, "chip ids restart")
	})
}

func TestResetQuery_WithoutGraphIsLocal(t *testing.T) {
	h := newHarness(t)
	h.do(func(w *Workspace) {
		w.SetDraft(query.Draft{SearchText: "x", Attribute: "a", Operator: ">", Value: "1"})
		w.ApplyQuery()
		w.ResetQuery()
	})
	v := h.view()
	assert.Empty(t, v.Chips)
	assert.Equal(t, []string{MsgLoadGraphFirst}, v.Console.Output)
	h.noCalls()
}

func TestSelection_SurfaceProtocol(t *testing.T) {
	h := newHarness(t)
	h.loadChain()
	mounted := &channel{}
	stale := &channel{}
	h.do(func(w *Workspace) { h.surface.ch = mounted })

	h.do(func(w *Workspace) { w.HandleSurfaceMessage(stale, selection.NodeSelected("n2")) })
	assert.Equal(t, "", h.view().Selected)

	h.do(func(w *Workspace) { w.HandleSurfaceMessage(mounted, selection.NodeSelected("n2")) })
	v := h.view()
	assert.Equal(t, "n2", v.Selected)
	require.NotNil(t, v.Summary.Selected)
	assert.Equal(t, "label=Processor, type=compute", v.Summary.Selected.AttributeLine())
	assert.True(t, v.Tree[1].Selected)
	assert.Equal(t, "●", v.Tree[1].Marker())
	assert.Equal(t, "n2 - Processor", v.Tree[1].Text())

	assert.Equal(t, []selection.Msg{selection.SelectNode("n2"), selection.FocusNode("n2")}, mounted.messages())
	h.do(func(w *Workspace) { h.clock.Advance(selection.DefaultResendDelay) })
	assert.Len(t, mounted.messages(), 4)
	assert.Empty(t, stale.messages())

	h.do(func(w *Workspace) { w.SurfaceMounted() })
	assert.Len(t, mounted.messages(), 6)
}

func TestSelection_RejectsUnknownAndClears(t *testing.T) {
	h := newHarness(t)
	h.loadChain()

	h.do(func(w *Workspace) {
		assert.False(t, w.Select("ghost"))
		assert.True(t, w.Select("n1"))
		assert.True(t, w.Select(""))
	})
	assert.Equal(t, "", h.view().Selected)
	assert.Nil(t, h.view().Summary.Selected)
}

func TestConsole(t *testing.T) {
	h := newHarness(t)

	h.do(func(w *Workspace) {
		w.RunConsole("   ")
		w.RunConsole(" stats ")
	})
	assert.Equal(t, []string{"> stats"}, h.view().Console.Output)

	exec := h.next("execute")
	assert.Equal(t, []string{"", "stats"}, exec.args)
	exec.answer(result{reply: &backend.Reply{OK: true, Message: "0 graphs"}})
	h.settle(0)

	v := h.view()
	assert.Equal(t, []string{"0 graphs", "> stats"}, v.Console.Output)
	assert.Equal(t, []string{"stats"}, v.Console.History)

	h.do(func(w *Workspace) { w.ClearConsole() })
	v = h.view()
	assert.Empty(t, v.Console.Output)
	assert.Empty(t, v.Console.History)
}

func TestConsole_NilReplyPrintsFailure(t *testing.T) {
	h := newHarness(t)
	h.loadChain()
	h.do(func(w *Workspace) { w.RunConsole("help") })

	exec := h.next("execute")
	assert.Equal(t, []string{"g1", "help"}, exec.args)
	exec.answer(result{err: errors.New("dial")})
	h.settle(0)

	assert.Equal(t, backend.MsgRequestFailed, h.view().Console.Output[0])
}

func TestSubscribe(t *testing.T) {
	h := newHarness(t)
	var seen []string
	h.do(func(w *Workspace) {
		w.Subscribe(func(v View) { seen = append(seen, v.FileStatus) })
		w.SelectUpload("g.csv", nil)
	})
	h.do(func(w *Workspace) {
		assert.Equal(t, []string{"Select a JSON or CSV file to load.", "Selected file: g.csv"}, seen)
	})
}

func TestTune(t *testing.T) {
	h := newHarness(t)
	h.do(func(w *Workspace) {
		w.Tune(time.Second, 0, 0, 2)
		for _, c := range []string{"a", "b", "c"} {
			w.console.Print(c)
		}
	})
	h.loadChain()
	h.do(func(w *Workspace) { h.clock.Advance(time.Second) })

	v := h.view()
	assert.False(t, v.Banner.Visible())
	assert.Len(t, v.Console.Output, 2)
}
