package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// Event is the wire envelope for every named event in both directions
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomGroup names the broadcast group of a room's live connections
func RoomGroup(roomID uint) string {
	return fmt.Sprintf("room:%d", roomID)
}

// UserGroup names a user's personal broadcast group, shared by all of
// that user's connected devices.
func UserGroup(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// Hub is the in-process broadcast group registry. Groups are sets of
// live clients keyed by name; subscribe, unsubscribe and publish are
// safe to call concurrently and never touch the persistent store.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		groups: make(map[string]map[*Client]struct{}),
	}
}

// Subscribe adds a client to a group, creating the group on first use
func (h *Hub) Subscribe(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.groups[group] == nil {
		h.groups[group] = make(map[*Client]struct{})
	}
	h.groups[group][c] = struct{}{}
}

// Unsubscribe removes a client from a group, dropping the group when it
// becomes empty.
func (h *Hub) Unsubscribe(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(group, c)
}

// UnsubscribeAll removes a client from every group (connection teardown)
func (h *Hub) UnsubscribeAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for group := range h.groups {
		h.removeLocked(group, c)
	}
}

// UnsubscribeUser removes every connection of the given user from a
// group. Used when a user is evicted from a room while connected on one
// or more devices.
func (h *Hub) UnsubscribeUser(group string, userID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.groups[group] {
		if c.principal.UserID == userID {
			h.removeLocked(group, c)
		}
	}
}

func (h *Hub) removeLocked(group string, c *Client) {
	clients, ok := h.groups[group]
	if !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.groups, group)
	}
}

// Publish sends a named event to every client in the group. The payload
// is encoded once; clients whose send queue is full are disconnected so
// one slow consumer cannot stall the group.
func (h *Hub) Publish(group, event string, data interface{}) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("ws: failed to encode %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.groups[group]))
	for c := range h.groups[group] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(payload) {
			h.UnsubscribeAll(c)
			c.close()
		}
	}
}

// GroupSize returns the number of live clients in a group
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.groups[group])
}

func encodeEvent(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Event: event, Data: raw})
}
