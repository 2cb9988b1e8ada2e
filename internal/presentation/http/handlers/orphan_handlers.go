package handlers

import (
	"net/http"

	"github.com/JonathanYesh279/tenuto-go/internal/application/services"
	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

// OrphanHandlers contains the orphaned-reference HTTP handlers.
type OrphanHandlers struct {
	orphanService *services.OrphanService
	logger        *logging.ChanneledLogger
	perfTracker   *performance.Tracker
}

// NewOrphanHandlers creates orphan cleanup handlers with injected dependencies.
func NewOrphanHandlers(orphanService *services.OrphanService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *OrphanHandlers {
	return &OrphanHandlers{
		orphanService: orphanService,
		logger:        logger,
		perfTracker:   perfTracker,
	}
}

// PostPreview handles POST /api/v1/orphans/preview
func (h *OrphanHandlers) PostPreview(c *gin.Context) {
	marker := h.perfTracker.StartOperation("orphan_preview_request", "")
	defer marker.Complete()

	var opts deletion.CleanupOptions
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			respondError(c, deletion.NewError(deletion.CodeValidationError, "invalid request body"))
			return
		}
	}

	preview, err := h.orphanService.Preview(c.Request.Context(), opts)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, preview)
}

// PostCleanup handles POST /api/v1/orphans/cleanup
func (h *OrphanHandlers) PostCleanup(c *gin.Context) {
	marker := h.perfTracker.StartOperation("orphan_cleanup_request", "")
	defer marker.Complete()

	var opts deletion.CleanupOptions
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			respondError(c, deletion.NewError(deletion.CodeValidationError, "invalid request body"))
			return
		}
	}

	result, err := h.orphanService.Cleanup(c.Request.Context(), opts)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	h.logger.Cleanup().Info("Orphan cleanup request served",
		"operationId", result.OperationID, "cleaned", result.Cleaned)
	c.JSON(http.StatusOK, result)
}
