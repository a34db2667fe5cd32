package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 64

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 4

	// DefaultBroadcastInterval is how often frame stats are pushed.
	DefaultBroadcastInterval = 100 * time.Millisecond

	writeWait = 2 * time.Second
)

// wsMessage is the envelope for every pushed message.
type wsMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// wsClient tracks a connection with its source IP and outbound queue.
type wsClient struct {
	conn *websocket.Conn
	ip   string
	send chan []byte
}

// Hub fans frame statistics out to WebSocket clients. Slow clients drop
// messages instead of stalling the broadcast.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*wsClient]struct{}
	pending    int // upgrades in flight, counted against maxClients
	maxClients int
	closed     bool
	limiter    *ConnLimiter

	upgrader websocket.Upgrader
	log      *logrus.Entry

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewHub creates a hub accepting upgrades from the given origins.
func NewHub(origins []string, log *logrus.Entry) *Hub {
	h := &Hub{
		clients:    make(map[*wsClient]struct{}),
		maxClients: MaxWSConnectionsTotal,
		limiter:    NewConnLimiter(MaxWSConnectionsPerIP),
		log:        log.WithField("component", "ws"),
		stopChan:   make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// non-browser clients send no origin
			if origin == "" || originAllowed(origin, origins) {
				return true
			}
			h.log.WithField("origin", origin).Warn("websocket origin rejected")
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Broadcast queues an event for every client.
func (h *Hub) Broadcast(event string, data any) {
	msg, err := json.Marshal(wsMessage{Event: event, Data: data})
	if err != nil {
		h.log.WithError(err).Error("marshal broadcast")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Client queue full, skip (backpressure)
		}
	}
	IncrementWSMessages()
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop pushes the engine's frame stats every interval while
// at least one client is connected. It returns immediately.
func (h *Hub) StartBroadcastLoop(engine Engine, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultBroadcastInterval
	}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-h.stopChan:
				return
			case <-ticker.C:
				if h.ClientCount() == 0 {
					continue
				}
				h.Broadcast("frame:stats", statsOf(engine))
			}
		}
	}()
}

// Stop ends the broadcast loop and closes every client. Upgrades after Stop
// are refused.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)

		h.mu.Lock()
		h.closed = true
		for c := range h.clients {
			c.conn.Close()
		}
		h.mu.Unlock()
	})
}

// HandleWebSocket upgrades the request and streams broadcasts to it.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	switch h.reserve() {
	case reserveStopped:
		RecordConnectionRejected("ws_stopped")
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	case reserveFull:
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.limiter.Acquire(ip) {
		h.release()
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
		h.release()
		h.limiter.Release(ip)
		return
	}

	c := &wsClient{conn: conn, ip: ip, send: make(chan []byte, 16)}
	if !h.register(c) {
		// the hub stopped during the handshake
		RecordConnectionRejected("ws_stopped")
		h.limiter.Release(ip)
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

type reservation int

const (
	reserved reservation = iota
	reserveFull
	reserveStopped
)

// reserve claims a connection slot before the upgrade so concurrent
// handshakes cannot overshoot maxClients. A successful reserve is followed
// by exactly one register or release.
func (h *Hub) reserve() reservation {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return reserveStopped
	}
	if len(h.clients)+h.pending >= h.maxClients {
		return reserveFull
	}
	h.pending++
	return reserved
}

// release gives back a reserved slot that never became a client.
func (h *Hub) release() {
	h.mu.Lock()
	h.pending--
	h.mu.Unlock()
}

// register turns a reservation into a client. It fails once the hub has
// stopped; the caller then owns the connection.
func (h *Hub) register(c *wsClient) bool {
	h.mu.Lock()
	h.pending--
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	UpdateWSConnections(count)
	h.log.WithFields(logrus.Fields{"ip": c.ip, "clients": count}).Info("client connected")
	return true
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.limiter.Release(c.ip)
	c.conn.Close()

	UpdateWSConnections(count)
	h.log.WithField("clients", count).Info("client disconnected")
}

func (h *Hub) writePump(c *wsClient) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.unregister(c)
			return
		}
	}
}

// readPump drains client messages until the connection closes. Clients
// only listen; anything they send is discarded.
func (h *Hub) readPump(c *wsClient) {
	defer h.unregister(c)

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
