// Package stores provides concrete cache store implementations
package stores

import (
	"fmt"
	"sync"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/catalog"
	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
)

// OperationsStore tracks deletion operation state in memory. It enforces the
// exclusivity rule: at most one non-terminal operation per (kind, id), and
// fans progress out to subscribers only when a report materially differs from
// the previous one.
type OperationsStore struct {
	mu          sync.RWMutex
	operations  map[string]*deletion.DeletionOperation
	progress    map[string]deletion.DeletionProgress
	active      map[string]string // kind/id -> non-terminal operation id
	subscribers map[string]map[int]chan deletion.DeletionProgress
	nextSubID   int
	logger      *logging.ChanneledLogger
}

// NewOperationsStore creates a new operation state store
func NewOperationsStore(logger *logging.ChanneledLogger) *OperationsStore {
	if logger != nil {
		logger.Cache().Info("Initializing operations store")
	}
	return &OperationsStore{
		operations:  make(map[string]*deletion.DeletionOperation),
		progress:    make(map[string]deletion.DeletionProgress),
		active:      make(map[string]string),
		subscribers: make(map[string]map[int]chan deletion.DeletionProgress),
		logger:      logger,
	}
}

func entityKey(kind catalog.Kind, id string) string {
	return fmt.Sprintf("%s/%s", kind, id)
}

// Begin registers a new operation. Fails with DELETE_IN_PROGRESS when a
// non-terminal operation already exists for the same entity.
func (os *OperationsStore) Begin(op *deletion.DeletionOperation) error {
	os.mu.Lock()
	defer os.mu.Unlock()

	key := entityKey(op.EntityKind, op.EntityID)
	if existing, busy := os.active[key]; busy {
		return deletion.NewError(deletion.CodeDeleteInProgress,
			fmt.Sprintf("deletion %s already running for %s", existing, key))
	}

	os.operations[op.ID] = op
	os.active[key] = op.ID

	if os.logger != nil {
		os.logger.Cache().Debug("Operation registered", "operationId", op.ID, "entity", key)
	}
	return nil
}

// Get returns a copy of the operation, if known.
func (os *OperationsStore) Get(operationID string) (deletion.DeletionOperation, bool) {
	os.mu.RLock()
	defer os.mu.RUnlock()

	op, exists := os.operations[operationID]
	if !exists {
		return deletion.DeletionOperation{}, false
	}
	return *op, true
}

// ActiveFor returns the id of the non-terminal operation for an entity.
func (os *OperationsStore) ActiveFor(kind catalog.Kind, id string) (string, bool) {
	os.mu.RLock()
	defer os.mu.RUnlock()

	opID, busy := os.active[entityKey(kind, id)]
	return opID, busy
}

// SetStatus transitions an operation's lifecycle state. Terminal transitions
// release the entity exclusivity slot.
func (os *OperationsStore) SetStatus(operationID string, status deletion.OperationStatus, procErr *deletion.ProcessedError) bool {
	os.mu.Lock()
	defer os.mu.Unlock()

	op, exists := os.operations[operationID]
	if !exists {
		return false
	}

	now := time.Now().UTC()
	op.Status = status
	op.UpdatedAt = now
	if procErr != nil {
		op.Error = procErr
	}
	if status.IsTerminal() {
		op.EndedAt = &now
		delete(os.active, entityKey(op.EntityKind, op.EntityID))
	}

	if os.logger != nil {
		os.logger.Cache().Debug("Operation status updated", "operationId", operationID, "status", string(status))
	}
	return true
}

// SetProgress records a progress report and notifies subscribers when it
// materially differs from the previous one. Identical consecutive reports
// are absorbed. Percentage is monotonic non-decreasing per operation: a
// non-terminal report below the stored percentage is a stale or out-of-order
// duplicate and is ignored.
func (os *OperationsStore) SetProgress(report deletion.DeletionProgress) {
	os.mu.Lock()

	previous, had := os.progress[report.OperationID]
	if had && report.Percentage < previous.Percentage && !report.Phase.IsTerminal() {
		os.mu.Unlock()
		return
	}
	material := !had ||
		previous.Phase != report.Phase ||
		previous.Percentage != report.Percentage ||
		previous.Processed != report.Processed ||
		len(previous.Errors) != len(report.Errors)
	os.progress[report.OperationID] = report

	var targets []chan deletion.DeletionProgress
	if material {
		for _, ch := range os.subscribers[report.OperationID] {
			targets = append(targets, ch)
		}
	}
	os.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- report:
		default:
			// Slow subscriber; drop rather than stall the operation.
		}
	}
}

// Progress returns the latest progress report for an operation.
func (os *OperationsStore) Progress(operationID string) (deletion.DeletionProgress, bool) {
	os.mu.RLock()
	defer os.mu.RUnlock()

	report, exists := os.progress[operationID]
	return report, exists
}

// Subscribe registers for material progress updates of one operation. The
// returned cancel func must be called when the consumer disconnects.
func (os *OperationsStore) Subscribe(operationID string) (<-chan deletion.DeletionProgress, func()) {
	os.mu.Lock()
	defer os.mu.Unlock()

	ch := make(chan deletion.DeletionProgress, 16)
	if os.subscribers[operationID] == nil {
		os.subscribers[operationID] = make(map[int]chan deletion.DeletionProgress)
	}
	id := os.nextSubID
	os.nextSubID++
	os.subscribers[operationID][id] = ch

	cancel := func() {
		os.mu.Lock()
		defer os.mu.Unlock()
		if subs, ok := os.subscribers[operationID]; ok {
			if sub, ok := subs[id]; ok {
				delete(subs, id)
				close(sub)
			}
			if len(subs) == 0 {
				delete(os.subscribers, operationID)
			}
		}
	}
	return ch, cancel
}

// List returns copies of every tracked operation.
func (os *OperationsStore) List() []deletion.DeletionOperation {
	os.mu.RLock()
	defer os.mu.RUnlock()

	ops := make([]deletion.DeletionOperation, 0, len(os.operations))
	for _, op := range os.operations {
		ops = append(ops, *op)
	}
	return ops
}

// PurgeTerminal drops terminal operations older than the retention window and
// returns how many were removed.
func (os *OperationsStore) PurgeTerminal(retention time.Duration) int {
	os.mu.Lock()
	defer os.mu.Unlock()

	cutoff := time.Now().UTC().Add(-retention)
	purged := 0
	for id, op := range os.operations {
		if op.Status.IsTerminal() && op.EndedAt != nil && op.EndedAt.Before(cutoff) {
			delete(os.operations, id)
			delete(os.progress, id)
			purged++
		}
	}
	return purged
}

// Stats reports store occupancy for diagnostics.
func (os *OperationsStore) Stats() map[string]any {
	os.mu.RLock()
	defer os.mu.RUnlock()

	return map[string]any{
		"operations":  len(os.operations),
		"active":      len(os.active),
		"subscribers": len(os.subscribers),
	}
}
