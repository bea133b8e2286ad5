// Package server hosts the rendered visualizer document for a browser and
// carries selection messages between that page and the workspace.
package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/graphex/errors"
	"github.com/teranos/graphex/logger"
	"github.com/teranos/graphex/selection"
	"github.com/teranos/graphex/version"
	"github.com/teranos/graphex/workspace"
)

// Defaults for Options.
const (
	DefaultAddr                = "127.0.0.1:8765"
	DefaultMaxInboundPerSecond = 20.0

	shutdownTimeout = 5 * time.Second
)

// Options configure a Server.
type Options struct {
	Addr string
	// AllowedOrigins are origin prefixes accepted for websocket upgrades.
	AllowedOrigins []string
	// MaxInboundPerSecond bounds messages accepted from one mount.
	MaxInboundPerSecond float64
	Logger              *zap.SugaredLogger
}

// Server is the surface host.
type Server struct {
	loop     *workspace.Loop
	ws       *workspace.Workspace
	mounts   *Mounts
	opts     Options
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader

	mu  sync.RWMutex
	doc workspace.Document

	httpServer *http.Server
}

// New returns a Server for ws. mounts must be the selection.Surface ws was
// created with. The loop must be running.
func New(ctx context.Context, loop *workspace.Loop, ws *workspace.Workspace, mounts *Mounts, opts Options) (*Server, error) {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.MaxInboundPerSecond <= 0 {
		opts.MaxInboundPerSecond = DefaultMaxInboundPerSecond
	}
	s := &Server{
		loop:     loop,
		ws:       ws,
		mounts:   mounts,
		opts:     opts,
		log:      logger.OrNop(opts.Logger),
		upgrader: surfaceUpgrader(opts.AllowedOrigins),
	}
	if err := loop.Do(ctx, func() { ws.Subscribe(s.observe) }); err != nil {
		return nil, errors.Wrap(err, "subscribe to workspace")
	}
	return s, nil
}

// observe runs on the loop for every published view.
func (s *Server) observe(v workspace.View) {
	s.mu.Lock()
	changed := v.Document.Version != s.doc.Version
	s.doc = v.Document
	s.mu.Unlock()

	if !changed {
		return
	}
	if m := s.mounts.closeStale(v.Document.Version); m != nil {
		s.log.Debugw("Surface mount closed, document changed",
			logger.FieldMountID, shortID(m.ID()),
			"document_version", v.Document.Version)
	}
}

func (s *Server) document() workspace.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Handler returns the HTTP handler serving every surface route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.setupHTTPRoutes(mux)
	return mux
}

// Start listens on the configured address and serves until ctx is done or
// Shutdown is called. It returns the bound address.
func (s *Server) Start(ctx context.Context) (string, error) {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return "", errors.Wrapf(err, "listen on %s", s.opts.Addr)
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Errorw("Surface server stopped", logger.FieldError, err)
		}
	}()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()

	addr := ln.Addr().String()
	s.log.Infow("Surface server listening", logger.FieldAddress, addr)
	return addr, nil
}

// Shutdown closes the current mount and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if m, ok := s.mounts.Current().(*Mount); ok {
		m.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// HandleSurface serves the current document with the bridge injected.
func (s *Server) HandleSurface(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethods(w, r, http.MethodGet) {
		return
	}
	doc := s.document()
	html := placeholderDocument
	if doc.Ready() {
		html = doc.HTML
	}
	s.writeDocument(w, injectBridge(html, doc.Version))
}

// HandleSurfaceWebSocket mounts a page. A page served for an older document
// is closed straight away so it reloads.
func (s *Server) HandleSurfaceWebSocket(w http.ResponseWriter, r *http.Request) {
	served, err := strconv.ParseUint(r.URL.Query().Get("v"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing or invalid document version")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("Surface WebSocket upgrade failed", logger.FieldError, err)
		return
	}

	m := newMount(uuid.NewString(), served, conn,
		rate.NewLimiter(rate.Limit(s.opts.MaxInboundPerSecond), burst(s.opts.MaxInboundPerSecond)),
		s.log)

	if current := s.document().Version; served != current {
		s.refuseStale(m, current)
		return
	}

	prev, ok := s.mounts.attachCurrent(m)
	if !ok {
		s.refuseStale(m, s.document().Version)
		return
	}
	if prev != nil {
		s.log.Debugw("Surface mount superseded", logger.FieldMountID, shortID(prev.ID()))
	}
	s.log.Infow("Surface mounted", logger.FieldMountID, shortID(m.ID()), "document_version", served)

	go m.writePump()
	go func() {
		m.readPump(s.deliver)
		if s.mounts.detach(m) {
			s.log.Debugw("Surface unmounted", logger.FieldMountID, shortID(m.ID()))
		}
	}()

	s.loop.Post(s.ws.SurfaceMounted)
}

// refuseStale closes a mount whose page shows an older document. The write
// pump still runs so the close frame reaches the page.
func (s *Server) refuseStale(m *Mount, current uint64) {
	m.log.Debugw("Surface mount refused, stale document", "served", m.version, "current", current)
	m.Close()
	go m.writePump()
}

// deliver hands an inbound message to the workspace with its source mount.
func (s *Server) deliver(m *Mount, msg selection.Msg) {
	s.loop.Post(func() { s.ws.HandleSurfaceMessage(m, msg) })
}

// HandleView returns the current workspace View.
func (s *Server) HandleView(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethods(w, r, http.MethodGet) {
		return
	}
	var v workspace.View
	if err := s.loop.Do(r.Context(), func() { v = s.ws.View() }); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "workspace unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

// HandleHealth reports liveness and surface state.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethods(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, healthBody{
		Status:          "ok",
		Version:         version.Get().Version,
		DocumentVersion: s.document().Version,
		Mounted:         s.mounts.Current() != nil,
	})
}

func burst(perSecond float64) int {
	if perSecond < 1 {
		return 1
	}
	return int(perSecond)
}
