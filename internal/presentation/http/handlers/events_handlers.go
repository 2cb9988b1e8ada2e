package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/messaging"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from the dashboard origin; auth happens via
	// the admin middleware before the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsHandlers serves the websocket endpoint for externally pushed events.
type EventsHandlers struct {
	hub    *messaging.EventsHub
	logger *logging.ChanneledLogger
}

// NewEventsHandlers creates events handlers with injected dependencies.
func NewEventsHandlers(hub *messaging.EventsHub, logger *logging.ChanneledLogger) *EventsHandlers {
	return &EventsHandlers{
		hub:    hub,
		logger: logger,
	}
}

// GetEventsWS handles GET /api/v1/events/ws - upgrades to a websocket over
// which peers push ExternalEvent payloads and receive every merged event.
func (h *EventsHandlers) GetEventsWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.SSE().Error("Websocket upgrade failed", "error", err.Error())
		return
	}

	client := &messaging.EventsClient{
		Conn: conn,
		Send: make(chan []byte, 64),
	}
	h.hub.Register(client)

	go h.writeLoop(client)
	h.readLoop(client)
}

// readLoop consumes inbound event payloads until the peer disconnects.
func (h *EventsHandlers) readLoop(client *messaging.EventsClient) {
	defer func() {
		h.hub.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(64 * 1024)
	client.Conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, payload, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.SSE().Warn("Events websocket closed unexpectedly", "error", err.Error())
			}
			return
		}

		var event deletion.ExternalEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			h.logger.SSE().Warn("Dropping malformed external event", "error", err.Error())
			continue
		}
		h.hub.Submit(event)
	}
}

// writeLoop pushes merged events and pings to the peer.
func (h *EventsHandlers) writeLoop(client *messaging.EventsClient) {
	ping := time.NewTicker(45 * time.Second)
	defer func() {
		ping.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ping.C:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
