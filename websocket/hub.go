package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"incident-reporter/models"

	"github.com/apex/log"
)

// Hub manages the process-wide set of open push channels and
// broadcasting. Every event is written to every open channel; recipients
// filter client-side by inspecting the event payload.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Serialized frames pending delivery to all clients
	broadcast chan []byte

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Keep-alive frame interval for idle channels
	heartbeatInterval time.Duration

	// Shutdown signal
	stop chan struct{}

	// Mutex for thread-safe operations
	mutex sync.RWMutex

	// Statistics
	eventsBroadcast  int
	connectedClients int
}

// NewHub creates a new push hub. The heartbeat interval bounds how long
// an idle channel goes without a keep-alive frame.
func NewHub(heartbeatInterval time.Duration) *Hub {
	return &Hub{
		clients:           make(map[*Client]bool),
		broadcast:         make(chan []byte, 256),
		Register:          make(chan *Client),
		Unregister:        make(chan *Client),
		heartbeatInterval: heartbeatInterval,
		stop:              make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-h.stop:
			h.mutex.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.connectedClients = 0
			h.mutex.Unlock()
			return

		case client := <-h.Register:
			h.mutex.Lock()
			h.clients[client] = true
			h.connectedClients = len(h.clients)
			h.mutex.Unlock()
			log.Infof("Client connected. Total clients: %d", h.connectedClients)

		case client := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.connectedClients = len(h.clients)
			}
			h.mutex.Unlock()
			log.Infof("Client disconnected. Total clients: %d", h.connectedClients)

		case message := <-h.broadcast:
			h.deliver(message)

		case <-heartbeat.C:
			frame, err := json.Marshal(models.Event{
				Type:      models.EventKeepAlive,
				Timestamp: time.Now().UTC(),
			})
			if err != nil {
				log.Errorf("Failed to marshal keep-alive frame: %v", err)
				continue
			}
			h.deliver(frame)
		}
	}
}

// Stop shuts the hub down and closes every open channel.
func (h *Hub) Stop() {
	close(h.stop)
}

// deliver writes one serialized frame to every open channel. A client
// whose send buffer is full is dropped; partial delivery is expected
// and tolerated.
func (h *Hub) deliver(message []byte) {
	h.mutex.Lock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
	h.connectedClients = len(h.clients)
	h.mutex.Unlock()
}

// BroadcastEvent serializes an event once and queues it for delivery to
// every currently-open channel. It never blocks the caller's write path.
func (h *Hub) BroadcastEvent(event models.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Errorf("Failed to marshal broadcast event: %v", err)
		return
	}

	select {
	case h.broadcast <- data:
		h.mutex.Lock()
		h.eventsBroadcast++
		h.mutex.Unlock()
	default:
		log.Warnf("Broadcast queue full, dropping %s event", event.Type)
	}
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() (int, int) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.connectedClients, h.eventsBroadcast
}
