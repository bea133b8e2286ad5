package workspace

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teranos/graphex/backend"
	"github.com/teranos/graphex/graph"
	"github.com/teranos/graphex/internal/clock"
	"github.com/teranos/graphex/internal/util"
	"github.com/teranos/graphex/selection"
)

// call is one request held by gatedBackend until the test answers it.
type call struct {
	op   string
	args []string
	resp chan result
}

type result struct {
	load  *backend.LoadResult
	reply *backend.Reply
	html  string
	err   error
}

func (c *call) answer(r result) { c.resp <- r }

// gatedBackend hands every request to the test and blocks until answered, so
// tests choose the completion order.
type gatedBackend struct {
	calls chan *call
}

func newGatedBackend() *gatedBackend {
	return &gatedBackend{calls: make(chan *call, 16)}
}

func (b *gatedBackend) wait(op string, args ...string) result {
	c := &call{op: op, args: args, resp: make(chan result, 1)}
	b.calls <- c
	return <-c.resp
}

func (b *gatedBackend) Load(_ context.Context, filename string, data []byte) (*backend.LoadResult, error) {
	r := b.wait("load", filename, string(data))
	return r.load, r.err
}

func (b *gatedBackend) Search(_ context.Context, graphID, q string) (*backend.Reply, error) {
	r := b.wait("search", graphID, q)
	return r.reply, r.err
}

func (b *gatedBackend) Filter(_ context.Context, graphID, attribute, operator, value string) (*backend.Reply, error) {
	r := b.wait("filter", graphID, attribute, operator, value)
	return r.reply, r.err
}

func (b *gatedBackend) Reset(_ context.Context, graphID string) (*backend.Reply, error) {
	r := b.wait("reset", graphID)
	return r.reply, r.err
}

func (b *gatedBackend) Render(_ context.Context, visualizer string, directed bool, graphID string) (string, error) {
	d := "0"
	if directed {
		d = "1"
	}
	r := b.wait("render", visualizer, d, graphID)
	return r.html, r.err
}

func (b *gatedBackend) Execute(_ context.Context, graphID, command string) (*backend.Reply, error) {
	r := b.wait("execute", graphID, command)
	return r.reply, r.err
}

// channel records surface messages.
type channel struct {
	mu   sync.Mutex
	sent []selection.Msg
}

func (c *channel) Send(m selection.Msg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, m)
	return nil
}

func (c *channel) messages() []selection.Msg {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]selection.Msg(nil), c.sent...)
}

// surface is read on the loop only.
type surface struct {
	ch selection.Channel
}

func (s *surface) Current() selection.Channel { return s.ch }

type harness struct {
	t       *testing.T
	ctx     context.Context
	loop    *Loop
	api     *gatedBackend
	clock   *clock.Fake
	surface *surface
	ws      *Workspace
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	h := &harness{
		t:       t,
		ctx:     ctx,
		loop:    NewLoop(),
		api:     newGatedBackend(),
		clock:   clock.NewFake(),
		surface: &surface{},
	}
	h.ws = New(ctx, h.loop, h.api, Options{
		Scheduler: h.clock,
		Surface:   h.surface,
		Now:       func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local) },
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

// do runs f on the loop.
func (h *harness) do(f func(w *Workspace)) {
	h.t.Helper()
	require.NoError(h.t, h.loop.Do(h.ctx, func() { f(h.ws) }))
}

func (h *harness) view() View {
	var v View
	h.do(func(w *Workspace) { v = w.View() })
	return v
}

// next returns the next backend request, which must be op.
func (h *harness) next(op string) *call {
	h.t.Helper()
	select {
	case c := <-h.api.calls:
		require.Equal(h.t, op, c.op, "unexpected backend call %v", c.args)
		return c
	case <-time.After(2 * time.Second):
		h.t.Fatalf("no %s request", op)
		return nil
	}
}

// settle waits until only n backend calls are outstanding.
func (h *harness) settle(n int) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		pending := -1
		h.do(func(w *Workspace) { pending = w.Pending() })
		return pending == n
	}, 2*time.Second, time.Millisecond)
}

func (h *harness) noCalls() {
	h.t.Helper()
	select {
	case c := <-h.api.calls:
		h.t.Fatalf("unexpected %s request %v", c.op, c.args)
	case <-time.After(20 * time.Millisecond):
	}
}

func chainGraph() *graph.Graph {
	return graph.New(
		[]graph.Node{
			graph.NewNode("n1", graph.A("label", "Input")),
			graph.NewNode("n2", graph.A("label", "Processor"), graph.A("type", "compute")),
			graph.NewNode("n3"),
		},
		[]graph.Edge{{Source: "n1", Target: "n2"}, {Source: "n2", Target: "n3"}},
	)
}

// loadChain selects an upload, loads it as graph g1 and completes the first
// render.
func (h *harness) loadChain() {
	h.t.Helper()
	h.do(func(w *Workspace) {
		w.SelectUpload("g.json", []byte(`{}`))
		w.Load()
	})
	h.next("load").answer(result{load: &backend.LoadResult{
		GraphID: "g1",
		Graph:   chainGraph(),
		Meta:    backend.LoadMeta{Filename: "g.json", NodeCount: util.Ptr(3), EdgeCount: util.Ptr(2)},
	}})
	h.next("render").answer(result{html: "<html>g1</html>"})
	h.settle(0)
}
