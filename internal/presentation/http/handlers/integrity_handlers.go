package handlers

import (
	"net/http"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/application/services"
	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

// IntegrityHandlers contains the integrity validation and repair HTTP handlers.
type IntegrityHandlers struct {
	integrityService *services.IntegrityService
	logger           *logging.ChanneledLogger
	perfTracker      *performance.Tracker
}

// NewIntegrityHandlers creates integrity handlers with injected dependencies.
func NewIntegrityHandlers(integrityService *services.IntegrityService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *IntegrityHandlers {
	return &IntegrityHandlers{
		integrityService: integrityService,
		logger:           logger,
		perfTracker:      perfTracker,
	}
}

// PostValidate handles POST /api/v1/integrity/validate
func (h *IntegrityHandlers) PostValidate(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("integrity_validate_request", "")
	defer marker.Complete()

	result, err := h.integrityService.Validate(c.Request.Context())
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	h.logger.Integrity().Debug("Validation request served",
		"status", string(result.OverallStatus), "duration", time.Since(start))
	c.JSON(http.StatusOK, result)
}

// GetValidation handles GET /api/v1/integrity/validation - the cached result.
func (h *IntegrityHandlers) GetValidation(c *gin.Context) {
	result, ok := h.integrityService.LastValidation()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"validation": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"validation": result})
}

// PostRepair handles POST /api/v1/integrity/repair
func (h *IntegrityHandlers) PostRepair(c *gin.Context) {
	marker := h.perfTracker.StartOperation("integrity_repair_request", "")
	defer marker.Complete()

	var opts deletion.RepairOptions
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			respondError(c, deletion.NewError(deletion.CodeValidationError, "invalid request body"))
			return
		}
	}

	result, err := h.integrityService.Repair(c.Request.Context(), opts)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, result)
}

// GetEvents handles GET /api/v1/integrity/events - merged external events.
func (h *IntegrityHandlers) GetEvents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"events": h.integrityService.Events()})
}

// GetErrorLog handles GET /api/v1/integrity/errors - the diagnostic log.
func (h *IntegrityHandlers) GetErrorLog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"errors": h.integrityService.ErrorLog()})
}
