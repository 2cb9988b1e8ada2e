// Package messaging provides the concrete implementation of the SSE broadcaster.
package messaging

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
)

// firehoseKey subscribes a client to every operation's events.
const firehoseKey = ""

// SSEBroadcaster manages operation-scoped SSE connections.
type SSEBroadcaster struct {
	operationClients map[string][]chan string // operationId -> channels; "" receives everything
	mu               sync.Mutex
	logger           *logging.ChanneledLogger
}

var (
	globalBroadcaster *SSEBroadcaster
	once              sync.Once
)

// NewSSEBroadcaster creates the singleton SSEBroadcaster instance.
func NewSSEBroadcaster(logger *logging.ChanneledLogger) *SSEBroadcaster {
	once.Do(func() {
		globalBroadcaster = &SSEBroadcaster{
			operationClients: make(map[string][]chan string),
			logger:           logger,
		}
	})
	return globalBroadcaster
}

// AddClient registers a new SSE client. An empty operation id subscribes to
// all operations.
func (b *SSEBroadcaster) AddClient(operationID string) chan string {
	ch := make(chan string, 10)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.operationClients[operationID] = append(b.operationClients[operationID], ch)

	b.logger.SSE().Debug("SSE client registered", "operationId", operationID)
	return ch
}

// RemoveClient removes an SSE client.
func (b *SSEBroadcaster) RemoveClient(ch chan string, operationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, exists := b.operationClients[operationID]; exists {
		remaining := make([]chan string, 0, len(clients)-1)
		for _, client := range clients {
			if client != ch {
				remaining = append(remaining, client)
			}
		}
		if len(remaining) == 0 {
			delete(b.operationClients, operationID)
		} else {
			b.operationClients[operationID] = remaining
		}
	}
	b.logger.SSE().Debug("SSE client unregistered", "operationId", operationID)
}

// ConnectionCount returns the connection count for one operation.
func (b *SSEBroadcaster) ConnectionCount(operationID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.operationClients[operationID])
}

// BroadcastProgress sends a progress report to the operation's clients and
// the firehose.
func (b *SSEBroadcaster) BroadcastProgress(progress deletion.DeletionProgress) {
	b.send("deletion_progress", progress.OperationID, progress)
}

// BroadcastOperation sends an operation lifecycle update to the operation's
// clients and the firehose.
func (b *SSEBroadcaster) BroadcastOperation(op deletion.DeletionOperation) {
	b.send("deletion_operation", op.ID, op)
}

func (b *SSEBroadcaster) send(event, operationID string, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.SSE().Error("Panic recovered in SSE broadcast", "error", r, "operationId", operationID)
		}
	}()

	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.SSE().Error("Failed to marshal SSE payload", "error", err.Error(), "event", event)
		return
	}
	message := fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)

	b.mu.Lock()
	defer b.mu.Unlock()

	keys := []string{operationID}
	if operationID != firehoseKey {
		keys = append(keys, firehoseKey)
	}
	for _, key := range keys {
		for _, ch := range b.operationClients[key] {
			select {
			case ch <- message:
			default:
				b.logger.SSE().Warn("SSE channel full, message dropped", "operationId", operationID)
			}
		}
	}
}
