package handlers

import (
	"net/http"

	ws "incident-reporter/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamEvents handles GET /events: a long-lived response carrying
// newline-delimited JSON event frames. Keep-alive frames arrive on the
// hub's heartbeat; parsers that only look at the type field ignore them.
func (h *Handlers) StreamEvents(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := ws.NewStreamClient(h.hub)
	h.hub.Register <- client

	log.Info("Event stream established")

	for {
		select {
		case frame, ok := <-client.Send():
			if !ok {
				// Dropped by the hub (slow consumer or shutdown).
				return
			}
			if _, err := c.Writer.Write(append(frame, '\n')); err != nil {
				h.hub.Unregister <- client
				return
			}
			flusher.Flush()

		case <-c.Request.Context().Done():
			h.hub.Unregister <- client
			return
		}
	}
}

// ListenEvents handles GET /events/ws, the WebSocket variant of the
// push channel.
func (h *Handlers) ListenEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorf("Failed to upgrade connection to WebSocket: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	log.Info("WebSocket connection established")
}
