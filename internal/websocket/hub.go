// Package websocket pushes cache invalidation notices to connected browsers.
// When a mutation changes shared team state, every member's client drops the
// affected cache key and refetches on its next read.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Message tells a client to drop a cache entry.
type Message struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

// Invalidation builds the message for a cache key.
func Invalidation(key string) Message {
	return Message{Type: "invalidate", Key: key}
}

// Hub tracks connected clients grouped by team and delivers invalidation
// messages to a team's members.
type Hub struct {
	mu     sync.RWMutex
	teams  map[int64]map[*Client]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		teams:  make(map[int64]map[*Client]struct{}),
		logger: logger,
	}
}

// Register adds a client under its team.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	clients, ok := h.teams[c.teamID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.teams[c.teamID] = clients
	}
	clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if clients, ok := h.teams[c.teamID]; ok {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.send)
		}
		if len(clients) == 0 {
			delete(h.teams, c.teamID)
		}
	}
	h.mu.Unlock()
}

// BroadcastTeam sends a message to every client connected for the team.
func (h *Hub) BroadcastTeam(teamID int64, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.teams[teamID] {
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop rather than block the mutation path.
		}
	}
}

// ClientCount returns the number of clients connected for the team.
func (h *Hub) ClientCount(teamID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.teams[teamID])
}
