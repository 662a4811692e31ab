package hub

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/livemark/livemark/internal/metrics"
)

const (
	// defaultSendBuffer is the per-subscriber outgoing message queue depth.
	defaultSendBuffer = 16

	// readLimit caps inbound frames; clients are not expected to send anything.
	readLimit = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub manages live-update subscribers and broadcasts rendered markup to them.
type Hub struct {
	log        *slog.Logger
	metrics    *metrics.Metrics
	sendBuffer int
	replay     bool

	mu      sync.RWMutex
	clients map[*client]struct{}

	// dispatchMu serializes Dispatch calls and guards last.
	dispatchMu sync.Mutex
	last       *string
}

// client is one connected subscriber.
type client struct {
	conn *websocket.Conn
	addr string
	send chan string

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.log = l }
}

// WithMetrics sets the collectors the hub updates.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithSendBuffer sets the per-subscriber queue depth.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithReplay makes the hub queue the last dispatched message for every new
// subscriber before any later dispatch.
func WithReplay() Option {
	return func(h *Hub) { h.replay = true }
}

// New creates an empty Hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		log:        slog.Default(),
		sendBuffer: defaultSendBuffer,
		clients:    make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = metrics.Nop()
	}
	return h
}

// Run blocks until ctx is cancelled, then closes all active subscribers.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ServeHTTP upgrades the connection to WebSocket and registers the subscriber.
// Blocks until the connection closes, then deregisters it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		h.log.Debug("hub: upgrade failed", "client", r.RemoteAddr, "err", err)
		return
	}

	c := &client{
		conn: conn,
		addr: r.RemoteAddr,
		send: make(chan string, h.sendBuffer),
		done: make(chan struct{}),
	}

	h.dispatchMu.Lock()
	if h.replay && h.last != nil {
		c.send <- *h.last
	}
	h.register(c)
	h.dispatchMu.Unlock()
	defer h.unregister(c)

	h.log.Debug("hub: subscriber connected", "client", r.RemoteAddr)

	go c.writePump(h)
	c.readPump() // blocks until connection closes

	h.log.Debug("hub: subscriber disconnected", "client", r.RemoteAddr)
}

// Dispatch sends msg to every currently registered subscriber and returns
// the number of subscribers it was queued for. Subscribers that cannot take
// the message are removed; the rest are unaffected.
func (h *Hub) Dispatch(msg string) int {
	h.dispatchMu.Lock()
	defer h.dispatchMu.Unlock()

	if h.replay {
		h.last = &msg
	}
	h.metrics.Dispatches.Inc()

	queued := 0
	for _, c := range h.snapshot() {
		if c.enqueue(msg) {
			queued++
			h.metrics.Deliveries.WithLabelValues("queued").Inc()
			continue
		}
		h.metrics.Deliveries.WithLabelValues("dropped").Inc()
		h.log.Debug("hub: dropping subscriber", "client", c.addr)
		h.unregister(c)
	}
	return queued
}

// Count returns the number of currently connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.metrics.Subscribers.Set(float64(len(h.clients)))
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.metrics.Subscribers.Set(float64(len(h.clients)))
	}
	h.mu.Unlock()
	c.close()
}

// snapshot copies the subscriber set so a fan-out never iterates the live map.
func (h *Hub) snapshot() []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	return targets
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
	h.metrics.Subscribers.Set(0)
}

// enqueue hands msg to the writer without blocking. It reports false when the
// subscriber is already closed or its queue is full.
func (c *client) enqueue(msg string) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writePump drains the send queue into the connection. It is the only writer
// for c.conn. Runs in its own goroutine per subscriber.
func (c *client) writePump(h *Hub) {
	defer c.conn.Close()

	for {
		select {
		case <-c.done:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			c.conn.WriteMessage(websocket.CloseMessage, msg) //nolint:errcheck
			return

		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				h.metrics.Deliveries.WithLabelValues("failed").Inc()
				h.log.Debug("hub: write failed", "client", c.addr, "err", err)
				h.unregister(c)
				return
			}
		}
	}
}

// readPump reads frames to process control messages and detect disconnects.
// Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(readLimit)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
