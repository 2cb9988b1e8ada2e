package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/application/services"
	"github.com/JonathanYesh279/tenuto-go/internal/domain/catalog"
	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

// DeletionHandlers contains the cascade deletion HTTP handlers.
type DeletionHandlers struct {
	deletionService *services.DeletionService
	logger          *logging.ChanneledLogger
	perfTracker     *performance.Tracker
}

// NewDeletionHandlers creates deletion handlers with injected dependencies.
func NewDeletionHandlers(deletionService *services.DeletionService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *DeletionHandlers {
	return &DeletionHandlers{
		deletionService: deletionService,
		logger:          logger,
		perfTracker:     perfTracker,
	}
}

// entityRefFromPath reads and validates the :kind/:id path parameters.
func entityRefFromPath(c *gin.Context) (deletion.EntityRef, bool) {
	kind := catalog.Kind(c.Param("kind"))
	id := c.Param("id")
	if !catalog.IsKnown(kind) {
		respondError(c, deletion.NewError(deletion.CodeValidationError, "unknown entity type "+c.Param("kind")))
		return deletion.EntityRef{}, false
	}
	if id == "" {
		respondError(c, deletion.NewError(deletion.CodeInvalidReferenceID, "entity id is required"))
		return deletion.EntityRef{}, false
	}
	return deletion.EntityRef{Kind: kind, ID: id}, true
}

// GetPreview handles GET /api/v1/deletion/preview/:kind/:id
func (h *DeletionHandlers) GetPreview(c *gin.Context) {
	ref, ok := entityRefFromPath(c)
	if !ok {
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("deletion_preview_request", "")
	defer marker.Complete()

	opts := services.PreviewOptions{IncludeIndirect: true}
	if raw := c.Query("maxDepth"); raw != "" {
		depth, err := strconv.Atoi(raw)
		if err != nil || depth < 1 {
			respondError(c, deletion.NewError(deletion.CodeValidationError, "maxDepth must be a positive integer"))
			return
		}
		opts.MaxDepth = depth
	}
	if raw := c.Query("includeIndirect"); raw != "" {
		opts.IncludeIndirect = raw != "false"
	}

	impact, err := h.deletionService.Preview(c.Request.Context(), ref, opts)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	h.logger.Deletion().Debug("Preview request served",
		"kind", string(ref.Kind), "id", ref.ID, "duration", time.Since(start))
	c.JSON(http.StatusOK, impact)
}

// PostExecute handles POST /api/v1/deletion/execute/:kind/:id
func (h *DeletionHandlers) PostExecute(c *gin.Context) {
	ref, ok := entityRefFromPath(c)
	if !ok {
		return
	}

	marker := h.perfTracker.StartOperation("deletion_execute_request", "")
	defer marker.Complete()

	var opts deletion.ExecuteOptions
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			respondError(c, deletion.NewError(deletion.CodeValidationError, "invalid request body"))
			return
		}
	}

	op, err := h.deletionService.Execute(c.Request.Context(), ref, opts)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusAccepted, op)
}

// GetOperation handles GET /api/v1/deletion/operations/:id
func (h *DeletionHandlers) GetOperation(c *gin.Context) {
	operationID := c.Param("id")
	op, ok := h.deletionService.Operation(operationID)
	if !ok {
		respondError(c, deletion.NewError(deletion.CodeInvalidReferenceID, "unknown operation "+operationID))
		return
	}

	response := gin.H{"operation": op}
	if progress, ok := h.deletionService.Progress(operationID); ok {
		response["progress"] = progress
	}
	c.JSON(http.StatusOK, response)
}

// GetOperations handles GET /api/v1/deletion/operations
func (h *DeletionHandlers) GetOperations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"operations": h.deletionService.Operations()})
}

// PostCancel handles POST /api/v1/deletion/operations/:id/cancel
func (h *DeletionHandlers) PostCancel(c *gin.Context) {
	operationID := c.Param("id")
	if err := h.deletionService.Cancel(operationID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"operationId": operationID, "cancelRequested": true})
}
