// Package selection keeps the single selected node id valid against the loaded
// graph and mirrors it into the embedded visual surface.
package selection

import (
	"time"

	"go.uber.org/zap"

	"github.com/teranos/graphex/graph"
	"github.com/teranos/graphex/internal/clock"
	"github.com/teranos/graphex/logger"
)

// DefaultResendDelay is how long after a send the same batch is sent again,
// covering a surface that was still loading the first time.
const DefaultResendDelay = 120 * time.Millisecond

// Options configure a Synchronizer.
type Options struct {
	ResendDelay time.Duration
	Logger      *zap.SugaredLogger
}

// Synchronizer owns the selection. It is used from a single goroutine; the
// scheduler must deliver timer callbacks on that goroutine.
type Synchronizer struct {
	selected string
	graph    *graph.Graph

	surface     Surface
	sched       clock.Scheduler
	resendDelay time.Duration
	resend      clock.Timer
	gen         uint64
	log         *zap.SugaredLogger
}

// New returns a Synchronizer with nothing selected. surface may be nil.
func New(surface Surface, sched clock.Scheduler, opts Options) *Synchronizer {
	s := &Synchronizer{
		surface:     surface,
		sched:       sched,
		resendDelay: opts.ResendDelay,
		log:         logger.OrNop(opts.Logger),
	}
	if s.resendDelay <= 0 {
		s.resendDelay = DefaultResendDelay
	}
	return s
}

// Selected returns the selected node id, "" when none.
func (s *Synchronizer) Selected() string {
	return s.selected
}

// SetResendDelay changes the delay for future batches.
func (s *Synchronizer) SetResendDelay(d time.Duration) {
	if d <= 0 {
		d = DefaultResendDelay
	}
	s.resendDelay = d
}

// Select changes the selection and announces it to the surface. An empty id
// clears. It reports whether the selection changed; an unchanged id or an id
// that is not a node of the current graph changes nothing.
func (s *Synchronizer) Select(id string) bool {
	if id == s.selected {
		return false
	}
	if id != "" && !s.graph.Has(id) {
		s.log.Debugw("selection rejected, unknown node", logger.FieldNodeID, id)
		return false
	}
	s.selected = id
	s.announce()
	return true
}

// Reconcile installs g as the graph selections are validated against. A
// selection whose node is gone is cleared without telling the surface; the
// surface shows the new graph's document anyway. It reports whether the
// selection was cleared.
func (s *Synchronizer) Reconcile(g *graph.Graph) bool {
	s.graph = g
	if s.selected == "" || g.Has(s.selected) {
		return false
	}
	s.log.Debugw("selection cleared, node vanished", logger.FieldNodeID, s.selected)
	s.selected = ""
	return true
}

// HandleInbound applies a message from the surface. Only nodeSelected
// messages with a node id, arriving on the currently mounted channel, are
// honored. It reports whether the selection changed.
func (s *Synchronizer) HandleInbound(source Channel, msg Msg) bool {
	if msg.Type != MsgNodeSelected || msg.NodeID == nil {
		return false
	}
	current := s.current()
	if current == nil || source != current {
		s.log.Debugw("surface message from stale channel ignored", logger.FieldNodeID, msg.ID())
		return false
	}
	return s.Select(*msg.NodeID)
}

// SurfaceMounted re-announces the selection to a freshly mounted surface.
func (s *Synchronizer) SurfaceMounted() {
	s.announce()
}

// Stop cancels a pending resend.
func (s *Synchronizer) Stop() {
	s.gen++
	if s.resend != nil {
		s.resend.Stop()
		s.resend = nil
	}
}

func (s *Synchronizer) announce() {
	batch := []Msg{SelectNode(s.selected)}
	if s.selected != "" {
		batch = append(batch, FocusNode(s.selected))
	}

	s.Stop()
	s.send(batch)

	gen := s.gen
	s.resend = s.sched.AfterFunc(s.resendDelay, func() {
		if gen != s.gen {
			return
		}
		s.resend = nil
		s.send(batch)
	})
}

// send resolves the channel at call time so a resend reaches a surface that
// was remounted in between.
func (s *Synchronizer) send(batch []Msg) {
	ch := s.current()
	if ch == nil {
		return
	}
	for _, msg := range batch {
		if err := ch.Send(msg); err != nil {
			s.log.Debugw("surface send failed", "type", msg.Type, logger.FieldError, err)
			return
		}
	}
}

func (s *Synchronizer) current() Channel {
	if s.surface == nil {
		return nil
	}
	return s.surface.Current()
}
