// Package status tracks the two long-running pipelines of the workspace, graph
// fetch and visualizer render, and derives the single status banner and the
// retry affordance from them.
package status

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/graphex/internal/clock"
	"github.com/teranos/graphex/logger"
)

// DefaultAutoHide is how long a fetch success stays on the banner.
const DefaultAutoHide = 5000 * time.Millisecond

// State of one pipeline.
type State string

const (
	Idle    State = "idle"
	Loading State = "loading"
	Success State = "success"
	Error   State = "error"
)

// Tone classifies the banner for presentation.
type Tone string

const (
	ToneIdle    Tone = "idle"
	ToneLoading Tone = "loading"
	ToneSuccess Tone = "success"
	ToneError   Tone = "error"
)

// Pipeline is the state of fetch or render. Message is set only in Error.
type Pipeline struct {
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`
}

// LoadMeta describes the last successful fetch. Nil counts fall back to the
// counts of the loaded graph.
type LoadMeta struct {
	Filename  string
	NodeCount *int
	EdgeCount *int
	LoadedAt  time.Time
}

// Counts of the loaded graph.
type Counts struct {
	Nodes int
	Edges int
}

// Banner is the composite status line.
type Banner struct {
	Label string `json:"label"`
	Tone  Tone   `json:"tone"`
}

// Visible reports whether the banner has anything to show.
func (b Banner) Visible() bool {
	return b.Label != ""
}

// Options configure a Machine.
type Options struct {
	// AutoHide is the fetch success dismissal delay. Zero means DefaultAutoHide.
	AutoHide time.Duration
	// OnChange is called after the auto-dismiss timer demotes fetch success.
	OnChange func()
	Logger   *zap.SugaredLogger
}

// Machine holds both pipelines. It is owned by one goroutine; the scheduler
// must deliver timer callbacks on that goroutine.
type Machine struct {
	fetch  Pipeline
	render Pipeline
	meta   LoadMeta

	sched    clock.Scheduler
	autoHide time.Duration
	onChange func()
	log      *zap.SugaredLogger

	timer clock.Timer
	gen   uint64
}

// New returns a Machine with both pipelines idle.
func New(sched clock.Scheduler, opts Options) *Machine {
	m := &Machine{
		fetch:    Pipeline{State: Idle},
		render:   Pipeline{State: Idle},
		sched:    sched,
		autoHide: opts.AutoHide,
		onChange: opts.OnChange,
		log:      logger.OrNop(opts.Logger),
	}
	if m.autoHide <= 0 {
		m.autoHide = DefaultAutoHide
	}
	return m
}

// Fetch returns the fetch pipeline.
func (m *Machine) Fetch() Pipeline { return m.fetch }

// Render returns the render pipeline.
func (m *Machine) Render() Pipeline { return m.render }

// Meta returns the metadata of the last successful fetch.
func (m *Machine) Meta() LoadMeta { return m.meta }

// SetAutoHide changes the dismissal delay for future successes.
func (m *Machine) SetAutoHide(d time.Duration) {
	if d <= 0 {
		d = DefaultAutoHide
	}
	m.autoHide = d
}

// StartFetch enters loading and cancels any pending dismissal.
func (m *Machine) StartFetch() {
	m.cancelAutoHide()
	m.fetch = Pipeline{State: Loading}
	m.meta = LoadMeta{}
	m.log.Debugw("fetch started", logger.FieldPipeline, "fetch")
}

// FetchSucceeded enters success and schedules the dismissal.
func (m *Machine) FetchSucceeded(meta LoadMeta) {
	m.cancelAutoHide()
	m.fetch = Pipeline{State: Success}
	m.meta = meta

	gen := m.gen
	m.timer = m.sched.AfterFunc(m.autoHide, func() { m.autoHideFired(gen) })
	m.log.Debugw("fetch succeeded", logger.FieldPipeline, "fetch", logger.FieldFile, meta.Filename)
}

// FetchFailed enters error with message.
func (m *Machine) FetchFailed(message string) {
	m.cancelAutoHide()
	m.fetch = Pipeline{State: Error, Message: message}
	m.meta = LoadMeta{}
	m.log.Debugw("fetch failed", logger.FieldPipeline, "fetch", logger.FieldError, message)
}

// ResetFetch returns fetch to idle and cancels any pending dismissal.
func (m *Machine) ResetFetch() {
	m.cancelAutoHide()
	m.fetch = Pipeline{State: Idle}
	m.meta = LoadMeta{}
}

// Stop cancels a pending dismissal without changing state.
func (m *Machine) Stop() {
	m.cancelAutoHide()
}

// StartRender enters render loading.
func (m *Machine) StartRender() {
	m.render = Pipeline{State: Loading}
}

// RenderSucceeded enters render success.
func (m *Machine) RenderSucceeded() {
	m.render = Pipeline{State: Success}
}

// RenderFailed enters render error with message.
func (m *Machine) RenderFailed(message string) {
	m.render = Pipeline{State: Error, Message: message}
	m.log.Debugw("render failed", logger.FieldPipeline, "render", logger.FieldError, message)
}

// ResetRender returns render to idle.
func (m *Machine) ResetRender() {
	m.render = Pipeline{State: Idle}
}

// Banner composes the status line. Priority: fetch loading, fetch error,
// render loading, render error, fetch success, idle. Render states only show
// while a graph is loaded.
func (m *Machine) Banner(hasGraph bool, counts Counts) Banner {
	switch {
	case m.fetch.State == Loading:
		return Banner{Label: "Uploading and parsing graph...", Tone: ToneLoading}
	case m.fetch.State == Error:
		return Banner{Label: orDefault(m.fetch.Message, "Failed to load graph."), Tone: ToneError}
	case hasGraph && m.render.State == Loading:
		return Banner{Label: "Rendering graph...", Tone: ToneLoading}
	case hasGraph && m.render.State == Error:
		return Banner{Label: orDefault(m.render.Message, "Failed to render graph."), Tone: ToneError}
	case m.fetch.State == Success:
		return Banner{Label: m.successLabel(counts), Tone: ToneSuccess}
	}
	return Banner{Tone: ToneIdle}
}

// CanRetryLoad reports whether retrying the fetch makes sense: it failed and
// an upload is still selected.
func (m *Machine) CanRetryLoad(hasInput bool) bool {
	return m.fetch.State == Error && hasInput
}

// CanRetryRender reports whether retrying the render makes sense.
func (m *Machine) CanRetryRender(hasGraph bool) bool {
	return m.fetch.State != Loading && m.render.State == Error && hasGraph
}

// RetryDisabled reports whether the retry control must be inert.
func (m *Machine) RetryDisabled() bool {
	return m.fetch.State == Loading
}

func (m *Machine) successLabel(counts Counts) string {
	nodes, edges := counts.Nodes, counts.Edges
	if m.meta.NodeCount != nil {
		nodes = *m.meta.NodeCount
	}
	if m.meta.EdgeCount != nil {
		edges = *m.meta.EdgeCount
	}
	from := ""
	if m.meta.Filename != "" {
		from = " from " + m.meta.Filename
	}
	if m.meta.LoadedAt.IsZero() {
		return fmt.Sprintf("Graph loaded%s (%d nodes, %d edges).", from, nodes, edges)
	}
	return fmt.Sprintf("Graph loaded%s (%d nodes, %d edges at %s).",
		from, nodes, edges, m.meta.LoadedAt.Format("15:04:05"))
}

// autoHideFired runs on the owner goroutine. A timer cancelled after it was
// already queued carries an old generation and does nothing.
func (m *Machine) autoHideFired(gen uint64) {
	if gen != m.gen {
		return
	}
	m.timer = nil
	if m.fetch.State != Success {
		return
	}
	m.fetch = Pipeline{State: Idle}
	m.log.Debugw("fetch success dismissed", logger.FieldPipeline, "fetch")
	if m.onChange != nil {
		m.onChange()
	}
}

func (m *Machine) cancelAutoHide() {
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
