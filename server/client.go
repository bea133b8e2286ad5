package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/graphex/errors"
	grapherror "github.com/teranos/graphex/graph/error"
	"github.com/teranos/graphex/logger"
	"github.com/teranos/graphex/selection"
)

// WebSocket timeouts, as in the gorilla chat example
// See: https://github.com/gorilla/websocket/blob/master/examples/chat/client.go
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Surface messages are tiny; anything larger is not ours
	maxMessageSize = 4096

	// Outbound messages buffered per mount before Send reports the mount busy
	sendBuffer = 32
)

var (
	errMountClosed = errors.New("surface mount closed")
	errMountBusy   = errors.New("surface mount send buffer full")
)

// Mount is one live connection from a page showing the surface document. It
// is the selection.Channel for that page; a remount is a different Mount.
type Mount struct {
	id      string
	version uint64
	conn    *websocket.Conn
	send    chan selection.Msg
	done    chan struct{}
	limiter *rate.Limiter
	log     *zap.SugaredLogger

	closeOnce sync.Once
}

func newMount(id string, version uint64, conn *websocket.Conn, limiter *rate.Limiter, log *zap.SugaredLogger) *Mount {
	return &Mount{
		id:      id,
		version: version,
		conn:    conn,
		send:    make(chan selection.Msg, sendBuffer),
		done:    make(chan struct{}),
		limiter: limiter,
		log:     log.With(logger.FieldMountID, shortID(id)),
	}
}

// ID returns the mount identity.
func (m *Mount) ID() string { return m.id }

// Version is the document version the page was served with.
func (m *Mount) Version() uint64 { return m.version }

// Send queues msg for the page. It never blocks.
func (m *Mount) Send(msg selection.Msg) error {
	select {
	case <-m.done:
		return errMountClosed
	default:
	}
	select {
	case m.send <- msg:
		if logger.Tracing() {
			m.log.Debugw("Surface message queued", "type", msg.Type, logger.FieldNodeID, msg.ID())
		}
		return nil
	default:
		return errMountBusy
	}
}

// Close ends the mount. The page reloads when its socket closes.
func (m *Mount) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

// Closed reports whether Close was called.
func (m *Mount) Closed() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// readPump decodes surface messages and hands them to deliver until the
// connection fails.
func (m *Mount) readPump(deliver func(*Mount, selection.Msg)) {
	defer m.Close()

	// Pongs extend the read deadline
	m.conn.SetReadLimit(maxMessageSize)
	m.conn.SetReadDeadline(time.Now().Add(pongWait))
	m.conn.SetPongHandler(func(string) error {
		m.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	m.log.Debugw("Read pump started")

	for {
		_, data, err := m.conn.ReadMessage()
		if err != nil {
			m.handleReadError(err)
			return
		}

		var msg selection.Msg
		if err := json.Unmarshal(data, &msg); err != nil {
			m.log.Warnw("Surface message rejected", logger.FieldError, err.Error(), logger.FieldSize, len(data))
			continue
		}
		if !m.limiter.Allow() {
			m.log.Debugw("Surface message dropped, rate limit", "type", msg.Type)
			continue
		}
		if logger.Tracing() {
			m.log.Debugw("Surface message received", "type", msg.Type, logger.FieldNodeID, msg.ID())
		}
		deliver(m, msg)
	}
}

// handleReadError logs unexpected WebSocket read errors.
// Expected closure codes (going away, abnormal, no status) are silently ignored.
func (m *Mount) handleReadError(err error) {
	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived,
		websocket.CloseNormalClosure,
	) {
		ge := grapherror.New(
			grapherror.CategoryTransport,
			err,
			"Surface connection closed unexpectedly",
		).WithSubcategory(grapherror.SubcategoryTransportNetwork)

		m.log.Warnw("Surface read error", ge.ToLogFields()...)
	}
}

// writePump writes queued messages and pings until the mount closes.
func (m *Mount) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		m.conn.Close()
	}()

	m.log.Debugw("Write pump started")

	for {
		select {
		case <-m.done:
			m.conn.SetWriteDeadline(time.Now().Add(writeWait))
			m.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "document changed"))
			return

		case msg := <-m.send:
			m.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := m.conn.WriteJSON(msg); err != nil {
				m.log.Debugw("Surface write error", logger.FieldError, err.Error())
				m.Close()
				return
			}

		case <-ticker.C:
			m.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := m.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				m.Close()
				return
			}
		}
	}
}
