// Package manager aggregates the in-memory state stores behind one facade.
package manager

import (
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/caching/stores"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
)

// Manager owns the operation and integrity stores and exposes them to the
// application layer.
type Manager struct {
	Operations *stores.OperationsStore
	Integrity  *stores.IntegrityStore
	logger     *logging.ChanneledLogger
}

// NewManager creates a manager with freshly initialized stores.
func NewManager(logger *logging.ChanneledLogger) *Manager {
	return &Manager{
		Operations: stores.NewOperationsStore(logger),
		Integrity:  stores.NewIntegrityStore(logger),
		logger:     logger,
	}
}

// Stats aggregates occupancy across stores for the health endpoint.
func (m *Manager) Stats() map[string]any {
	return map[string]any{
		"operations": m.Operations.Stats(),
		"integrity":  m.Integrity.Stats(),
	}
}
