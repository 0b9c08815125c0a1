package sse

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType defines the SSE event name.
type EventType string

const (
	EventImportCompleted EventType = "import.completed"
	EventStockUpdated    EventType = "stock.updated"
	EventStrategyChanged EventType = "stock.strategy_changed"
)

// ParseEventTypes parses a comma-separated event list. Unknown names are
// reported so a typo does not silently subscribe to nothing.
func ParseEventTypes(raw string) ([]EventType, error) {
	var out []EventType
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		switch t := EventType(name); t {
		case EventImportCompleted, EventStockUpdated, EventStrategyChanged:
			out = append(out, t)
		default:
			return nil, fmt.Errorf("unknown event %q", name)
		}
	}
	return out, nil
}

// Event is the payload broadcast to admin SSE clients.
type Event struct {
	Event     EventType `json:"event"`
	ProductID int       `json:"productId,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscription narrows what a client receives. Zero values mean everything.
type Subscription struct {
	Types     []EventType
	ProductID int
}

func (s Subscription) wants(e *Event) bool {
	if s.ProductID != 0 && e.ProductID != s.ProductID && e.Event != EventImportCompleted {
		return false
	}
	if len(s.Types) == 0 {
		return true
	}
	for _, t := range s.Types {
		if t == e.Event {
			return true
		}
	}
	return false
}

// Client is a connected admin dashboard.
type Client struct {
	ID     string
	Events chan []byte
	sub    Subscription
}

// Hub manages SSE client connections and broadcasts.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a new SSE hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a client with its subscription and returns it for streaming.
func (h *Hub) Register(clientID string, sub Subscription) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &Client{
		ID:     clientID,
		Events: make(chan []byte, 64),
		sub:    sub,
	}
	h.clients[clientID] = c
	log.Info().
		Str("client_id", clientID).
		Int("product_id", sub.ProductID).
		Int("total_clients", len(h.clients)).
		Msg("SSE client connected")
	return c
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.Events)
		delete(h.clients, clientID)
		log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("SSE client disconnected")
	}
}

// Broadcast sends an event to every client subscribed to it. A client whose
// buffer is full misses the event.
func (h *Hub) Broadcast(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event", string(event.Event)).Msg("Failed to marshal SSE event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if !c.sub.wants(event) {
			continue
		}
		select {
		case c.Events <- data:
		default:
			log.Warn().Str("client_id", c.ID).Msg("SSE client buffer full, dropping event")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
