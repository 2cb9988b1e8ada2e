// Package messaging defines interfaces for real-time communication.
package messaging

import "github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"

// Broadcaster defines the interface for managing SSE client connections and
// broadcasting deletion progress.
type Broadcaster interface {
	AddClient(operationID string) chan string
	RemoveClient(ch chan string, operationID string)
	ConnectionCount(operationID string) int
	BroadcastProgress(progress deletion.DeletionProgress)
	BroadcastOperation(op deletion.DeletionOperation)
}
