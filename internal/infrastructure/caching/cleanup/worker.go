package cleanup

import (
	"context"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/caching/manager"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
)

// Worker sweeps the state stores on a fixed interval, dropping terminal
// operations and stale notifications past their retention windows.
type Worker struct {
	cache  *manager.Manager
	config *Config
	logger *logging.ChanneledLogger
}

// NewWorker creates a new retention worker with injected configuration
func NewWorker(cache *manager.Manager, config *Config, logger *logging.ChanneledLogger) *Worker {
	return &Worker{
		cache:  cache,
		config: config,
		logger: logger,
	}
}

// Start begins the sweep routine, using the configured interval. Blocks until
// the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	w.logger.Cleanup().Info("Retention worker started",
		"interval", w.config.SweepInterval,
		"operationRetention", w.config.OperationRetention,
		"notificationRetention", w.config.NotificationRetention,
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Cleanup().Info("Retention worker stopping")
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep runs one retention pass.
func (w *Worker) sweep() {
	start := time.Now()

	operations := w.cache.Operations.PurgeTerminal(w.config.OperationRetention)
	events := w.cache.Integrity.PurgeEvents(w.config.NotificationRetention)

	total := operations + events
	if total > 0 {
		w.logger.Cleanup().Info("Retention sweep finished",
			"operations", operations,
			"events", events,
			"duration", time.Since(start),
		)
	} else if w.config.VerboseReporting {
		w.logger.Cleanup().Debug("Retention sweep completed, nothing expired", "duration", time.Since(start))
	}
}
