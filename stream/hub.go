package stream

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Hub fans count statistics out to the connected websocket clients
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	stop       sync.Once
	mu         sync.RWMutex
	log        *logrus.Logger
}

// NewHub returns a Hub ready to have Run started
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run services client registration and message broadcasting until Stop is
// called, then closes all client connections
func (h *Hub) Run() {

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()

			h.log.Infof("websocket client connected, total %d", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.log.Infof("websocket client disconnected, total %d", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				err := client.WriteMessage(websocket.TextMessage, message)

				if err != nil {
					h.log.Errorf("websocket write failed: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mu.Unlock()

			return
		}
	}
}

// Stop ends Run.  Registrations arriving afterwards are closed instead of
// queued, so handler goroutines never block on a stopped hub.
func (h *Hub) Stop() {
	h.stop.Do(func() {
		close(h.done)
	})
}

// Register adds a client connection to the hub
func (h *Hub) Register(client *websocket.Conn) {

	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes a client connection from the hub
func (h *Hub) Unregister(client *websocket.Conn) {

	select {
	case h.unregister <- client:
	case <-h.done:
		client.Close()
	}
}

// Broadcast queues a message for delivery to all connected clients,
// dropping it once the hub has stopped
func (h *Hub) Broadcast(message []byte) {

	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {

	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
