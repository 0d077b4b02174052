// Package hub provides a thread-safe websocket broadcast hub using
// the channel-based fan-out pattern. Clients subscribe to one cooking
// session and receive its progress events as JSON.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// envelope pairs a payload with the session it belongs to.
type envelope struct {
	sessionID string
	data      []byte
}

// Hub maintains the set of active clients and fans session events out
// to the clients watching that session.
type Hub struct {
	logger *slog.Logger

	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client

	// done closes when Run exits, so client goroutines returning after
	// shutdown do not block on the register/unregister channels.
	done chan struct{}

	mu      sync.RWMutex
	running bool
}

// New creates a new Hub.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:     logger.With("component", "hub"),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. Call it in a goroutine; it returns
// when the context ends.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.running = false
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", "session_id", client.sessionID, "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", "session_id", client.sessionID, "remaining", count)

		case env := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.sessionID != env.sessionID {
					continue
				}
				select {
				case client.send <- env.data:
				default:
					// Client's buffer is full - they're too slow.
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("dropped slow client", "session_id", client.sessionID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast encodes v as JSON and sends it to every client watching
// the session.
func (h *Hub) Broadcast(sessionID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- envelope{sessionID: sessionID, data: data}:
	default:
		h.logger.Warn("broadcast channel full, dropping event", "session_id", sessionID)
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning returns whether the hub loop is active.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}
