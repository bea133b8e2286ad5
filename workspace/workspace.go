// Package workspace owns the explorer state: the loaded graph, the upload,
// the visualizer document, the query chips, the selection and the console.
// All of it is mutated on a single Loop goroutine; backend calls run in their
// own goroutines and post their continuation back to the loop, where epoch
// guards decide whether the result still applies.
package workspace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/graphex/backend"
	"github.com/teranos/graphex/console"
	"github.com/teranos/graphex/epoch"
	"github.com/teranos/graphex/errors"
	"github.com/teranos/graphex/graph"
	grapherror "github.com/teranos/graphex/graph/error"
	"github.com/teranos/graphex/internal/clock"
	"github.com/teranos/graphex/logger"
	"github.com/teranos/graphex/query"
	"github.com/teranos/graphex/selection"
	"github.com/teranos/graphex/status"
	"github.com/teranos/graphex/tree"
)

// Visualizers the backend can render.
const (
	VisualizerSimple = "simple"
	VisualizerBlock  = "block"
)

// Visualizers lists the known visualizer ids.
var Visualizers = []string{VisualizerSimple, VisualizerBlock}

// User-facing messages.
const (
	MsgNoUpload         = "Please choose a JSON or CSV file before loading."
	MsgLoadGraphFirst   = "Load a graph first."
	MsgFilterIncomplete = "Please enter attribute, operator and value to filter."
	msgUnexpected       = "Unexpected error."
)

// Backend is what the workspace needs from the graph platform.
type Backend interface {
	Load(ctx context.Context, filename string, data []byte) (*backend.LoadResult, error)
	Search(ctx context.Context, graphID, query string) (*backend.Reply, error)
	Filter(ctx context.Context, graphID, attribute, operator, value string) (*backend.Reply, error)
	Reset(ctx context.Context, graphID string) (*backend.Reply, error)
	Render(ctx context.Context, visualizer string, directed bool, graphID string) (string, error)
	Execute(ctx context.Context, graphID, command string) (*backend.Reply, error)
}

// Options configure a Workspace. Zero values use defaults.
type Options struct {
	Visualizer string
	// Undirected starts in undirected mode; the default is directed.
	Undirected     bool
	AutoHide       time.Duration
	ResendDelay    time.Duration
	MaxHistory     int
	MaxOutputLines int
	// Scheduler delivers timers; the default posts them to the loop.
	Scheduler clock.Scheduler
	// Surface resolves the mounted visual surface; nil means none.
	Surface selection.Surface
	// Now stamps successful loads; defaults to time.Now.
	Now    func() time.Time
	Logger *zap.SugaredLogger
}

// Upload is the selected graph file.
type Upload struct {
	Name string
	Data []byte
}

// document is a rendered visualizer output and what it was rendered for.
type document struct {
	html       string
	graphID    string
	visualizer string
	directed   bool
	version    uint64
}

// Workspace is the explorer state. Every method must run on its Loop.
type Workspace struct {
	loop *Loop
	api  Backend
	ctx  context.Context
	log  *zap.SugaredLogger
	now  func() time.Time

	graphID    string
	graph      *graph.Graph
	upload     *Upload
	visualizer string
	directed   bool

	status      *status.Machine
	loadGuard   epoch.Guard
	queryGuard  epoch.Guard
	renderGuard epoch.Guard
	doc         document
	docVersion  uint64

	tree      *tree.Engine
	selection *selection.Synchronizer
	chips     *query.Store
	draft     query.Draft
	console   *console.Buffer

	subscribers []func(View)
	view        View
	inflight    int
}

// New returns a Workspace bound to loop. Backend calls use ctx.
func New(ctx context.Context, loop *Loop, api Backend, opts Options) *Workspace {
	log := logger.OrNop(opts.Logger)
	sched := opts.Scheduler
	if sched == nil {
		sched = clock.NewReal(loop)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	vis := opts.Visualizer
	if !isVisualizer(vis) {
		vis = VisualizerSimple
	}

	w := &Workspace{
		loop:       loop,
		api:        api,
		ctx:        ctx,
		log:        log,
		now:        now,
		visualizer: vis,
		directed:   !opts.Undirected,
		tree:       tree.NewEngine(log.Named("tree")),
		chips:      query.NewStore(),
		draft:      query.NewDraft(),
		console:    console.NewBuffer(opts.MaxHistory, opts.MaxOutputLines),
	}
	w.status = status.New(sched, status.Options{
		AutoHide: opts.AutoHide,
		OnChange: w.publish,
		Logger:   log.Named("status"),
	})
	w.selection = selection.New(opts.Surface, sched, selection.Options{
		ResendDelay: opts.ResendDelay,
		Logger:      log.Named("selection"),
	})
	w.view = w.computeView()
	return w
}

// Subscribe registers f to receive every new View, starting with the current
// one. f runs on the loop and must not block.
func (w *Workspace) Subscribe(f func(View)) {
	w.subscribers = append(w.subscribers, f)
	f(w.view)
}

// View returns the last published View.
func (w *Workspace) View() View {
	return w.view
}

// Tune applies timing and bound options to a running workspace.
func (w *Workspace) Tune(autoHide, resendDelay time.Duration, maxHistory, maxOutputLines int) {
	w.status.SetAutoHide(autoHide)
	w.selection.SetResendDelay(resendDelay)
	w.console.SetLimits(maxHistory, maxOutputLines)
	w.publish()
}

// SelectUpload chooses the file Load sends. An empty name clears it.
func (w *Workspace) SelectUpload(name string, data []byte) {
	if name == "" {
		w.upload = nil
	} else {
		w.upload = &Upload{Name: name, Data: data}
	}
	w.status.ResetFetch()
	w.publish()
}

// Load uploads the selected file and installs the returned graph. The
// current graph is cleared immediately.
func (w *Workspace) Load() {
	w.clearGraph()
	if w.upload == nil {
		w.loadGuard.Invalidate()
		w.status.FetchFailed(MsgNoUpload)
		w.publish()
		return
	}

	upload := *w.upload
	token := w.loadGuard.Begin()
	w.status.StartFetch()
	w.log.Infow("loading graph", logger.FieldFile, upload.Name, logger.FieldSize, len(upload.Data), logger.FieldEpoch, token)
	w.publish()

	w.async(func(ctx context.Context) func() {
		res, err := w.api.Load(ctx, upload.Name, upload.Data)
		return func() {
			if !w.loadGuard.IsCurrent(token) {
				w.log.Debugw("stale load dropped", logger.FieldEpoch, token)
				return
			}
			if err != nil {
				w.logFailure("load failed", err)
				w.clearGraph()
				w.status.FetchFailed(fmt.Sprintf("Failed to load graph (%s)", messageOf(err)))
				return
			}
			w.installGraph(res.GraphID, res.Graph)
			w.status.FetchSucceeded(status.LoadMeta{
				Filename:  res.Meta.Filename,
				NodeCount: res.Meta.NodeCount,
				EdgeCount: res.Meta.EdgeCount,
				LoadedAt:  w.now(),
			})
			w.log.Infow("graph loaded",
				logger.FieldGraphID, res.GraphID,
				logger.FieldNodes, res.Graph.Len(),
				logger.FieldEdges, res.Graph.EdgeCount())
			w.startRender()
		}
	})
}

// Retry repeats the failed load, or else the failed render. It reports
// whether anything was retried.
func (w *Workspace) Retry() bool {
	switch {
	case w.status.CanRetryLoad(w.upload != nil):
		w.Load()
		return true
	case w.status.CanRetryRender(w.hasGraph()):
		w.Render()
		return true
	}
	return false
}

// SetVisualizer switches the visualizer and re-renders.
func (w *Workspace) SetVisualizer(id string) error {
	if !isVisualizer(id) {
		return errors.Wrapf(errors.ErrInvalidRequest, "unknown visualizer %q", id)
	}
	if id == w.visualizer {
		return nil
	}
	w.visualizer = id
	w.Render()
	return nil
}

// SetDirected switches directedness and re-renders.
func (w *Workspace) SetDirected(directed bool) {
	if directed == w.directed {
		return
	}
	w.directed = directed
	w.Render()
}

// Render requests a fresh visualizer document for the current graph.
func (w *Workspace) Render() {
	w.startRender()
	w.publish()
}

func (w *Workspace) startRender() {
	w.doc = document{}
	if !w.hasGraph() {
		w.renderGuard.Invalidate()
		w.status.ResetRender()
		return
	}

	vis, directed, graphID := w.visualizer, w.directed, w.graphID
	token := w.renderGuard.Begin()
	w.status.StartRender()

	w.async(func(ctx context.Context) func() {
		html, err := w.api.Render(ctx, vis, directed, graphID)
		return func() {
			if !w.renderGuard.IsCurrent(token) {
				w.log.Debugw("stale render dropped", logger.FieldEpoch, token, logger.FieldVisualizer, vis)
				return
			}
			if err != nil {
				w.logFailure("render failed", err)
				w.status.RenderFailed(fmt.Sprintf("Failed to render %s visualizer (%s)", vis, messageOf(err)))
				w.doc = document{}
				return
			}
			w.status.RenderSucceeded()
			w.docVersion++
			w.doc = document{
				html:       html,
				graphID:    graphID,
				visualizer: vis,
				directed:   directed,
				version:    w.docVersion,
			}
		}
	})
}

// SetDraft replaces the query input.
func (w *Workspace) SetDraft(d query.Draft) {
	w.draft = d
	w.publish()
}

// Search runs the draft's search text server-side. Empty text resets the
// query state instead.
func (w *Workspace) Search() {
	w.search(w.draft.Trimmed(), nil)
	w.publish()
}

// Filter runs the draft's filter server-side.
func (w *Workspace) Filter() {
	w.filter(w.draft.Trimmed(), nil)
	w.publish()
}

// ApplyQuery records chips for the draft, then runs its search followed by
// its filter.
func (w *Workspace) ApplyQuery() {
	d := w.draft.Trimmed()
	w.chips.Apply(d)

	switch {
	case d.HasSearch() && d.HasFilter():
		w.search(d, func() { w.filter(d, nil) })
	case d.HasSearch():
		w.search(d, nil)
	case d.HasFilter():
		w.filter(d, nil)
	}
	w.publish()
}

func (w *Workspace) search(d query.Draft, next func()) {
	if !w.hasGraph() {
		w.console.Print(MsgLoadGraphFirst)
		return
	}
	if d.SearchText == "" {
		w.resetQuery()
		return
	}

	graphID := w.graphID
	w.runQuery("search", func(ctx context.Context) (*backend.Reply, error) {
		return w.api.Search(ctx, graphID, d.SearchText)
	}, next)
}

func (w *Workspace) filter(d query.Draft, next func()) {
	if !w.hasGraph() {
		w.console.Print(MsgLoadGraphFirst)
		return
	}
	if !d.HasFilter() {
		w.console.Print(MsgFilterIncomplete)
		return
	}

	graphID := w.graphID
	w.runQuery("filter", func(ctx context.Context) (*backend.Reply, error) {
		return w.api.Filter(ctx, graphID, d.Attribute, d.Operator, d.Value)
	}, next)
}

// runQuery issues a query-class request. Only the latest one may print its
// reply and install its graph; next runs after it completes.
func (w *Workspace) runQuery(op string, call func(ctx context.Context) (*backend.Reply, error), next func()) {
	graphID := w.graphID
	token := w.queryGuard.Begin()
	w.log.Debugw("query started", logger.FieldOperation, op, logger.FieldGraphID, graphID, logger.FieldEpoch, token)

	w.async(func(ctx context.Context) func() {
		reply, err := call(ctx)
		reply = orFailed(reply)
		return func() {
			if !w.queryGuard.IsCurrent(token) {
				w.log.Debugw("stale query dropped", logger.FieldOperation, op, logger.FieldEpoch, token)
				return
			}
			if err != nil {
				w.logFailure(op+" failed", err)
			}
			w.console.Print(reply.Message)
			if reply.OK && reply.Graph != nil {
				w.installGraph(graphID, reply.Graph)
				w.startRender()
			}
			if next != nil {
				next()
			}
		}
	})
}

// RemoveChip removes an applied chip. It reports whether one was removed.
func (w *Workspace) RemoveChip(id int) bool {
	removed := w.chips.Remove(id)
	if removed {
		w.publish()
	}
	return removed
}

// ResetQuery clears the draft and chips and, with a graph loaded, asks the
// backend for the unfiltered graph.
func (w *Workspace) ResetQuery() {
	w.resetQuery()
	w.publish()
}

func (w *Workspace) resetQuery() {
	w.draft = query.NewDraft()
	w.chips.Reset()
	if !w.hasGraph() {
		w.queryGuard.Invalidate()
		return
	}

	graphID := w.graphID
	token := w.queryGuard.Begin()
	w.log.Debugw("workspace reset", logger.FieldGraphID, graphID, logger.FieldEpoch, token)

	w.async(func(ctx context.Context) func() {
		reply, err := w.api.Reset(ctx, graphID)
		reply = orFailed(reply)
		return func() {
			if !w.queryGuard.IsCurrent(token) {
				w.log.Debugw("stale reset dropped", logger.FieldEpoch, token)
				return
			}
			if err != nil {
				w.logFailure("reset failed", err)
				return
			}
			if reply.OK && reply.Graph != nil {
				w.installGraph(graphID, reply.Graph)
				w.startRender()
			}
		}
	})
}

// Select changes the selected node. An empty id clears.
func (w *Workspace) Select(id string) bool {
	changed := w.selection.Select(id)
	if changed {
		w.publish()
	}
	return changed
}

// ToggleExpanded flips a tree node's expansion.
func (w *Workspace) ToggleExpanded(id string) bool {
	toggled := w.tree.Toggle(id)
	if toggled {
		w.publish()
	}
	return toggled
}

// RunConsole echoes command, executes it against the active graph and prints
// the reply.
func (w *Workspace) RunConsole(command string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return
	}
	w.console.Record(command)
	w.console.Print("> " + command)
	w.publish()

	graphID := w.graphID
	w.async(func(ctx context.Context) func() {
		reply, err := w.api.Execute(ctx, graphID, command)
		reply = orFailed(reply)
		return func() {
			if err != nil {
				w.logFailure("console command failed", err)
			}
			w.console.Print(reply.Message)
		}
	})
}

// ClearConsole drops console history and output.
func (w *Workspace) ClearConsole() {
	w.console.Reset()
	w.publish()
}

// SurfaceMounted tells the workspace a surface finished loading the current
// document.
func (w *Workspace) SurfaceMounted() {
	w.selection.SurfaceMounted()
}

// HandleSurfaceMessage applies a message received from source.
func (w *Workspace) HandleSurfaceMessage(source selection.Channel, msg selection.Msg) {
	if w.selection.HandleInbound(source, msg) {
		w.publish()
	}
}

// Close stops pending timers.
func (w *Workspace) Close() {
	w.selection.Stop()
	w.status.Stop()
}

// installGraph is the only way a graph becomes current.
func (w *Workspace) installGraph(graphID string, g *graph.Graph) {
	w.graphID = graphID
	w.graph = g
	if dups := g.Duplicates(); len(dups) > 0 {
		w.log.Warnw("graph has duplicate node ids, first occurrence wins",
			logger.FieldGraphID, graphID,
			logger.FieldCount, len(dups),
			"ids", dups)
	}
	w.selection.Reconcile(g)
}

// clearGraph drops the graph and everything derived from it. In-flight query
// and render results become stale.
func (w *Workspace) clearGraph() {
	w.graphID = ""
	w.graph = nil
	w.selection.Reconcile(nil)
	w.queryGuard.Invalidate()
	w.renderGuard.Invalidate()
	w.status.ResetRender()
	w.doc = document{}
}

func (w *Workspace) hasGraph() bool {
	return w.graphID != "" && w.graph != nil
}

// async runs call off the loop and posts the continuation it returns.
func (w *Workspace) async(call func(ctx context.Context) func()) {
	w.inflight++
	go func() {
		cont := call(w.ctx)
		w.loop.Post(func() {
			w.inflight--
			cont()
			w.publish()
		})
	}()
}

// Pending returns the number of backend calls whose continuation has not run.
func (w *Workspace) Pending() int {
	return w.inflight
}

func (w *Workspace) publish() {
	w.view = w.computeView()
	for _, f := range w.subscribers {
		f(w.view)
	}
}

func (w *Workspace) logFailure(msg string, err error) {
	fields := []interface{}{logger.FieldGraphID, w.graphID}
	if ge, ok := grapherror.From(err); ok {
		fields = append(fields, ge.ToLogFields()...)
	} else {
		fields = append(fields, logger.FieldError, err)
	}
	w.log.Warnw(msg, fields...)
}

func orFailed(reply *backend.Reply) *backend.Reply {
	if reply == nil {
		return &backend.Reply{Message: backend.MsgRequestFailed}
	}
	return reply
}

func messageOf(err error) string {
	if msg := strings.TrimSpace(grapherror.Message(err)); msg != "" {
		return msg
	}
	return msgUnexpected
}

func isVisualizer(id string) bool {
	for _, v := range Visualizers {
		if v == id {
			return true
		}
	}
	return false
}
