package handlers

import (
	"net/http"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/caching/manager"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/performance"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/persistence/database"
	"github.com/gin-gonic/gin"
)

// HealthHandlers serves liveness and diagnostic endpoints.
type HealthHandlers struct {
	db          *database.DB
	cache       *manager.Manager
	perfTracker *performance.Tracker
	logger      *logging.ChanneledLogger
	startedAt   time.Time
}

// NewHealthHandlers creates health handlers with injected dependencies.
func NewHealthHandlers(db *database.DB, cache *manager.Manager, perfTracker *performance.Tracker, logger *logging.ChanneledLogger) *HealthHandlers {
	return &HealthHandlers{
		db:          db,
		cache:       cache,
		perfTracker: perfTracker,
		logger:      logger,
		startedAt:   time.Now().UTC(),
	}
}

// GetHealth handles GET /api/v1/health
func (h *HealthHandlers) GetHealth(c *gin.Context) {
	dbHealthy := true
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		h.logger.System().Error("Health check database ping failed", "error", err.Error())
		dbHealthy = false
	}

	status := http.StatusOK
	if !dbHealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   map[bool]string{true: "ok", false: "degraded"}[dbHealthy],
		"database": dbHealthy,
		"uptime":   time.Since(h.startedAt).String(),
	})
}

// GetStats handles GET /api/v1/health/stats - cache occupancy and a recent
// performance snapshot.
func (h *HealthHandlers) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"cache":       h.cache.Stats(),
		"performance": h.perfTracker.TakeSnapshot(),
	})
}
