package ws

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub tracks the live connection for each user and the room membership used
// to scope signaling relay to one matched pair. It satisfies the matching
// engine's Notifier.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Conn
	rooms map[string]map[string]bool // roomID -> set of userIDs
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*Conn),
		rooms: make(map[string]map[string]bool),
	}
}

// Register installs the connection as the user's live one. A user holds at
// most one connection; a newer connection supersedes and closes the old one.
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	prev := h.conns[c.UserID]
	h.conns[c.UserID] = c
	h.mu.Unlock()

	if prev != nil {
		log.Info().Str("userId", c.UserID).Msg("superseding existing connection")
		prev.Close()
	}

	log.Info().Str("userId", c.UserID).Msg("websocket client registered")
}

// Unregister removes the connection if it is still the user's current one.
// It reports whether the user went offline (a superseded connection leaves
// the newer one in place).
func (h *Hub) Unregister(c *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[c.UserID] != c {
		return false
	}
	delete(h.conns, c.UserID)

	log.Info().Str("userId", c.UserID).Msg("websocket client unregistered")
	return true
}

func (h *Hub) IsConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[userID]
	return ok
}

// Send delivers an event to the user's live connection. Events for offline
// users are dropped; matching notifications are ephemeral.
func (h *Hub) Send(userID string, event Event) {
	h.mu.RLock()
	c := h.conns[userID]
	h.mu.RUnlock()

	if c != nil {
		c.Send(event)
	}
}

func (h *Hub) JoinRoom(roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]bool)
	}
	h.rooms[roomID][userID] = true
}

func (h *Hub) LeaveRoom(roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[roomID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// SendRoom delivers an event to every room member except the sender.
func (h *Hub) SendRoom(roomID, excludeUserID string, event Event) {
	h.mu.RLock()
	var targets []*Conn
	for userID := range h.rooms[roomID] {
		if userID == excludeUserID {
			continue
		}
		if c := h.conns[userID]; c != nil {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Send(event)
	}
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close tears down every live connection, used at shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[string]*Conn)
	h.rooms = make(map[string]map[string]bool)
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
