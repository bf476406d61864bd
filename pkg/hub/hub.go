package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Hub tracks the connected clients of one feed and fans broadcasts out
// to them. Slow clients are dropped rather than allowed to stall the
// pipeline.
type Hub struct {
	name   string
	logger *slog.Logger

	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}

	// mu guards clients for reads from outside the Run goroutine.
	mu sync.RWMutex

	running  atomic.Bool
	stopOnce sync.Once
	dropped  atomic.Int64
}

// New creates a hub for the named feed. Run must be started in its own
// goroutine before clients attach.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		logger:     slog.Default().With("component", "hub", "feed", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It owns the client set; all mutation
// happens here. Returns after Stop.
func (h *Hub) Run() {
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", "client", client.id, "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", "client", client.id, "remaining", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client cannot keep up with the feed.
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("dropped slow client", "client", client.id)
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop shuts the hub down and disconnects every client. Safe to call
// more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Broadcast queues a message for every connected client. When the
// queue is full the message is dropped; frames are disposable and the
// next one is always coming.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	case <-h.quit:
	default:
		h.dropped.Add(1)
		h.logger.Debug("broadcast queue full, dropping message")
	}
}

// BroadcastJSON encodes v and broadcasts it as a text frame.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// BroadcastEvent envelopes data as a dashboard event and broadcasts it.
func (h *Hub) BroadcastEvent(eventType string, data any) error {
	return h.BroadcastJSON(NewEvent(eventType, data))
}

// BroadcastBinary broadcasts raw bytes as a binary frame.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many broadcasts were discarded because the queue
// was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// IsRunning reports whether Run is active.
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}
