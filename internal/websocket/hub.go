package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// writeWait is how long a single write may take before the client
	// is considered gone
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong before dropping the client
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait
	pingPeriod = 50 * time.Second

	// sendBufferSize is the per-client outbound buffer. A client that
	// falls this far behind is dropped rather than allowed to stall
	// the broadcast.
	sendBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard is served from a different origin in development
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one connected dashboard socket
type client struct {
	conn         *websocket.Conn
	send         chan []byte
	userID       int64
	tournamentID int64

	// gone is set under the hub mutex by the first unregister; it is
	// what makes unregister idempotent when readPump's deferred call
	// races Broadcast's slow-client drop or Close
	gone bool
}

// Hub tracks which clients are watching which tournament and fans
// events out to them
type Hub struct {
	logger            *zap.Logger
	enabled           bool
	maxClientsPerUser int

	mu          sync.RWMutex
	subscribers map[int64]map[*client]struct{}
	userCounts  map[int64]int
	closed      bool
}

// NewHub creates a new hub
func NewHub(logger *zap.Logger, maxClientsPerUser int, enabled bool) *Hub {
	return &Hub{
		logger:            logger,
		enabled:           enabled,
		maxClientsPerUser: maxClientsPerUser,
		subscribers:       make(map[int64]map[*client]struct{}),
		userCounts:        make(map[int64]int),
	}
}

// IsEnabled returns whether the live feed is enabled
func (h *Hub) IsEnabled() bool {
	return h.enabled
}

// HandleConnection upgrades the request to a websocket and subscribes
// it to a tournament's events. It returns once the client is
// registered; reads and writes run on their own goroutines.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request, userID, tournamentID int64) error {
	if !h.enabled {
		http.Error(w, "live updates are not enabled", http.StatusServiceUnavailable)
		return fmt.Errorf("websocket support is not enabled")
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return fmt.Errorf("hub is closed")
	}
	if h.userCounts[userID] >= h.maxClientsPerUser {
		h.mu.Unlock()
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return fmt.Errorf("user %d exceeded connection limit", userID)
	}
	h.userCounts[userID]++
	h.mu.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.decrementUser(userID)
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &client{
		conn:         conn,
		send:         make(chan []byte, sendBufferSize),
		userID:       userID,
		tournamentID: tournamentID,
	}

	h.mu.Lock()
	if h.subscribers[tournamentID] == nil {
		h.subscribers[tournamentID] = make(map[*client]struct{})
	}
	h.subscribers[tournamentID][c] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("client subscribed",
		zap.Int64("user_id", userID),
		zap.Int64("tournament_id", tournamentID),
	)

	go h.writePump(c)
	go h.readPump(c)

	return nil
}

// Broadcast sends an event to every client watching the tournament.
// Clients whose buffers are full are dropped.
func (h *Hub) Broadcast(tournamentID int64, event *Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode event", zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.subscribers[tournamentID]))
	for c := range h.subscribers[tournamentID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	var dropped []*client
	for _, c := range clients {
		select {
		case c.send <- payload:
		default:
			dropped = append(dropped, c)
		}
	}

	for _, c := range dropped {
		h.logger.Warn("dropping slow client",
			zap.Int64("user_id", c.userID),
			zap.Int64("tournament_id", c.tournamentID),
		)
		h.unregister(c)
	}

	h.logger.Debug("event broadcast",
		zap.String("type", string(event.Type)),
		zap.Int64("tournament_id", tournamentID),
		zap.Int("clients", len(clients)-len(dropped)),
	)
}

// ActiveTournaments returns the tournaments that currently have at
// least one subscriber
func (h *Hub) ActiveTournaments() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]int64, 0, len(h.subscribers))
	for id, clients := range h.subscribers {
		if len(clients) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// SubscriberCount returns the number of clients watching a tournament
func (h *Hub) SubscriberCount(tournamentID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[tournamentID])
}

// Close drops every client and stops accepting new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*client
	for _, clients := range h.subscribers {
		for c := range clients {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		h.unregister(c)
	}

	h.logger.Info("websocket hub closed")
}

// writePump forwards queued events to the socket and keeps the
// connection alive with pings
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the socket so pings/pongs and close frames are
// processed, unregistering the client when it goes away
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// unregister removes a client and closes its connection. Safe to call
// more than once per client.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if c.gone {
		h.mu.Unlock()
		return
	}
	c.gone = true
	if clients, ok := h.subscribers[c.tournamentID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.subscribers, c.tournamentID)
		}
	}
	h.userCounts[c.userID]--
	if h.userCounts[c.userID] <= 0 {
		delete(h.userCounts, c.userID)
	}
	h.mu.Unlock()

	close(c.send)
	_ = c.conn.Close()

	h.logger.Debug("client unregistered",
		zap.Int64("user_id", c.userID),
		zap.Int64("tournament_id", c.tournamentID),
	)
}

// decrementUser rolls back a reserved connection slot after a failed
// upgrade
func (h *Hub) decrementUser(userID int64) {
	h.mu.Lock()
	h.userCounts[userID]--
	if h.userCounts[userID] <= 0 {
		delete(h.userCounts, userID)
	}
	h.mu.Unlock()
}
