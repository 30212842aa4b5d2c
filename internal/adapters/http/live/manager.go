// Package live pushes change notifications to display views over websockets.
//
// Views receive {type, updatedAt} only and reload the state over HTTP.
package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/mq/notify"
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
	"github.com/soyingpang/sportsday-race-mvp/pkg/metrics"
)

// Source hands out change notification streams.
type Source interface {
	Subscribe(ctx context.Context) (<-chan notify.Event, func())
}

// Manager tracks the open view connections.
type Manager struct {
	cfg      Config
	upgrader websocket.Upgrader
	log      logger.Logger

	mu    sync.RWMutex
	conns map[*Connection]struct{}
}

// Connection is one open view.
type Connection struct {
	ID          string
	ConnectedAt time.Time

	conn    *websocket.Conn
	manager *Manager

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewManager creates a connection manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		cfg:   DefaultConfig(),
		log:   logger.Nop(),
		conns: make(map[*Connection]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.Named("live")
	m.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     m.cfg.CheckOrigin,
	}
	return m
}

// Run forwards every notification of src to the open views until ctx ends,
// then closes them.
func (m *Manager) Run(ctx context.Context, src Source) {
	events, cancel := src.Subscribe(ctx)
	defer cancel()
	defer m.Close()

	m.log.Info(ctx, "live feed started")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.Broadcast(ctx, ev)
		}
	}
}

// Broadcast sends ev to every open view. A view that cannot keep up is dropped.
func (m *Manager) Broadcast(ctx context.Context, ev notify.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		m.log.Error(ctx, "marshal live event", logger.Error(err))
		return
	}

	m.mu.RLock()
	targets := make([]*Connection, 0, len(m.conns))
	for c := range m.conns {
		targets = append(targets, c)
	}
	m.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(data) {
			m.log.Warn(ctx, "view send buffer full, closing connection", logger.String("connection_id", c.ID))
			c.close()
		}
	}
}

// ServeHTTP upgrades the request to a websocket view connection.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already answered the request
		m.log.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	c := &Connection{
		ID:          uuid.New().String(),
		ConnectedAt: time.Now(),
		conn:        ws,
		send:        make(chan []byte, m.cfg.SendBuffer),
		manager:     m,
	}
	m.register(c)
	go c.writePump()
	go c.readPump()
	m.log.Debug(r.Context(), "view connected", logger.String("connection_id", c.ID))
}

// Len returns the number of open views.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// Close disconnects every view.
func (m *Manager) Close() {
	m.mu.RLock()
	targets := make([]*Connection, 0, len(m.conns))
	for c := range m.conns {
		targets = append(targets, c)
	}
	m.mu.RUnlock()
	for _, c := range targets {
		c.close()
	}
}

func (m *Manager) register(c *Connection) {
	m.mu.Lock()
	m.conns[c] = struct{}{}
	n := len(m.conns)
	m.mu.Unlock()
	metrics.UpdateWebsocketConnections(n)
}

func (m *Manager) unregister(c *Connection) {
	m.mu.Lock()
	delete(m.conns, c)
	n := len(m.conns)
	m.mu.Unlock()
	metrics.UpdateWebsocketConnections(n)
}

// enqueue reports false when the send buffer is full.
func (c *Connection) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close unregisters c and ends its write pump. Safe to call repeatedly.
func (c *Connection) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	c.manager.unregister(c)
}

func (c *Connection) writePump() {
	cfg := c.manager.cfg
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection so control frames are handled. Views never
// send data.
func (c *Connection) readPump() {
	cfg := c.manager.cfg
	defer c.close()

	c.conn.SetReadLimit(cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.manager.log.Debug(context.Background(), "view closed", logger.String("connection_id", c.ID), logger.Error(err))
			}
			return
		}
	}
}
