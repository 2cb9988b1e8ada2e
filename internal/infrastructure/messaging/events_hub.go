package messaging

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/caching/manager"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/gorilla/websocket"
)

// EventsClient represents a single connected websocket peer pushing or
// observing integrity events.
type EventsClient struct {
	Conn *websocket.Conn
	Send chan []byte
}

// EventsHub manages websocket peers. Inbound messages are ExternalEvent
// payloads merged into cached state; every merged event is echoed to all
// connected peers.
type EventsHub struct {
	clients      map[*EventsClient]bool
	register     chan *EventsClient
	unregister   chan *EventsClient
	inbound      chan deletion.ExternalEvent
	cacheManager *manager.Manager
	logger       *logging.ChanneledLogger
	mu           sync.RWMutex
}

// NewEventsHub creates a new hub instance.
func NewEventsHub(cm *manager.Manager, logger *logging.ChanneledLogger) *EventsHub {
	return &EventsHub{
		clients:      make(map[*EventsClient]bool),
		register:     make(chan *EventsClient),
		unregister:   make(chan *EventsClient),
		inbound:      make(chan deletion.ExternalEvent, 64),
		cacheManager: cm,
		logger:       logger,
	}
}

// Run starts the hub's main loop. This should be run as a goroutine.
func (h *EventsHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.SSE().Info("Events client registered", "clients", h.clientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			h.logger.SSE().Info("Events client unregistered", "clients", h.clientCount())

		case event := <-h.inbound:
			h.merge(event)
		}
	}
}

// Register queues a client for registration.
func (h *EventsHub) Register(client *EventsClient) {
	h.register <- client
}

// Unregister queues a client for unregistration.
func (h *EventsHub) Unregister(client *EventsClient) {
	h.unregister <- client
}

// Submit hands an inbound external event to the hub without blocking the
// reader; events are dropped under extreme backpressure.
func (h *EventsHub) Submit(event deletion.ExternalEvent) {
	select {
	case h.inbound <- event:
	default:
		h.logger.SSE().Warn("Events hub inbound queue full, event dropped")
	}
}

// merge folds one external event into cached state and echoes it to peers.
func (h *EventsHub) merge(event deletion.ExternalEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if event.Collection != "" {
		h.cacheManager.Integrity.RecordEvent(event)
	}
	if event.OperationID != "" && event.Percentage != nil {
		h.cacheManager.Operations.SetProgress(deletion.DeletionProgress{
			OperationID: event.OperationID,
			Phase:       event.Phase,
			Percentage:  *event.Percentage,
		})
	}

	message, err := json.Marshal(event)
	if err != nil {
		h.logger.SSE().Error("Failed to marshal external event", "error", err.Error())
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.Send <- message:
		default:
		}
	}
}

func (h *EventsHub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
