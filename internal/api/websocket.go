package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"arena-core/internal/logging"
	"arena-core/internal/profiler"
	"arena-core/internal/sim"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// MaxWSConnectionsTotal caps all WebSocket clients.
	MaxWSConnectionsTotal = 200

	// MaxWSConnectionsPerIP caps clients from one address.
	MaxWSConnectionsPerIP = 10

	// BroadcastInterval is the perf:snapshot cadence (10 Hz).
	BroadcastInterval = 100 * time.Millisecond

	wsWriteTimeout = 2 * time.Second
	wsSendBuffer   = 16
)

// Event names broadcast by the hub.
const (
	EventPerfSnapshot = "perf:snapshot"
	EventSessionState = "session:state"
)

type wsClient struct {
	conn *websocket.Conn
	ip   string
	send chan []byte
}

// WebSocketHub fans broadcasts out to connected dashboards.
type WebSocketHub struct {
	mu       sync.RWMutex
	clients  map[*wsClient]struct{}
	limiter  *ConnLimiter
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

// NewWebSocketHub creates a hub that accepts browser origins matching
// origins.
func NewWebSocketHub(origins []string) *WebSocketHub {
	if origins == nil {
		origins = DefaultCORSOrigins
	}
	checker := NewOriginChecker(origins)
	h := &WebSocketHub{
		clients: make(map[*wsClient]struct{}),
		limiter: NewConnLimiter(MaxWSConnectionsPerIP),
		log:     logging.For("api"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if checker.Allowed(origin) {
				return true
			}
			h.log.WithField("origin", origin).Warn("⚠️ WebSocket connection rejected")
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues an event for every client. Slow clients miss messages
// instead of blocking the hub.
func (h *WebSocketHub) Broadcast(event string, data any) {
	msg, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		h.log.WithError(err).WithField("event", event).Warn("⚠️ Broadcast encode failed")
		return
	}

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
	h.mu.RUnlock()
	IncrementWSMessages()
}

// sessionState is the light per-tick summary; entity lists go through
// GET /api/state.
type sessionState struct {
	Frame     uint32     `json:"frame"`
	GameTime  float64    `json:"gameTime"`
	Source    string     `json:"source"`
	Player    sim.Player `json:"player"`
	Totals    sim.Totals `json:"totals"`
	Counts    sim.Counts `json:"counts"`
	Synergies []string   `json:"synergies"`
	Replay    string     `json:"replay"`
	Finished  bool       `json:"finished"`
}

// RunBroadcastLoop sends perf:snapshot and session:state at 10 Hz until
// ctx is cancelled. Ticks with no clients are skipped.
func (h *WebSocketHub) RunBroadcastLoop(ctx context.Context, sessions Provider) {
	ticker := time.NewTicker(BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			if h.ClientCount() == 0 {
				continue
			}
			h.broadcastTick(sessions.Current())
		}
	}
}

func (h *WebSocketHub) broadcastTick(s SessionInterface) {
	h.Broadcast(EventPerfSnapshot, perfMessage{
		Snapshot: s.Profiler().Snapshot(),
		Warnings: s.Profiler().Warnings(),
	})

	v := s.View()
	h.Broadcast(EventSessionState, sessionState{
		Frame:     v.Frame,
		GameTime:  v.GameTime,
		Source:    v.Source.String(),
		Player:    v.Player,
		Totals:    v.Totals,
		Counts:    v.Counts,
		Synergies: v.Synergies,
		Replay:    v.Replay,
		Finished:  v.Finished,
	})
}

type perfMessage struct {
	Snapshot profiler.PerformanceSnapshot `json:"snapshot"`
	Warnings []string                     `json:"warnings"`
}

// HandleWebSocket upgrades the request and registers the client.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if total := h.ClientCount(); total >= MaxWSConnectionsTotal {
		h.log.WithField("total", total).Warn("⚠️ WebSocket connection rejected: total limit reached")
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.limiter.Allow(ip) {
		h.log.WithField("ip", ip).Warn("⚠️ WebSocket connection rejected: per-IP limit reached")
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("WebSocket upgrade failed")
		h.limiter.Release(ip)
		return
	}

	c := &wsClient{conn: conn, ip: ip, send: make(chan []byte, wsSendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	UpdateWSConnections(count)
	h.log.WithFields(logrus.Fields{"ip": ip, "total": count}).Info("📱 Client connected")

	go h.writePump(c)
	go h.readPump(c)
}

// readPump discards client messages and unregisters on close.
func (h *WebSocketHub) readPump(c *wsClient) {
	defer h.unregister(c)
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WebSocketHub) writePump(c *wsClient) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.conn.Close()
			// drain until unregister closes send
			for range c.send {
			}
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
}

func (h *WebSocketHub) unregister(c *wsClient) {
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
	h.log.WithField("remaining", count).Info("📱 Client disconnected")
}

func (h *WebSocketHub) closeAll() {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		h.unregister(c)
	}
}
