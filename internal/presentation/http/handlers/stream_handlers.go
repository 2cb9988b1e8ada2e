package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/messaging"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
)

const maxSSEConnections = 200

var activeSSEConnections int64

// StreamHandlers serves the real-time SSE endpoints: operation progress and
// log streaming.
type StreamHandlers struct {
	broadcaster messaging.Broadcaster
	logger      *logging.ChanneledLogger
}

// NewStreamHandlers creates stream handlers with injected dependencies.
func NewStreamHandlers(broadcaster messaging.Broadcaster, logger *logging.ChanneledLogger) *StreamHandlers {
	return &StreamHandlers{
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// GetOperationStream handles GET /api/v1/deletion/operations/:id/stream -
// streams progress and lifecycle events for one operation over SSE. An id of
// "all" subscribes to every operation.
func (h *StreamHandlers) GetOperationStream(c *gin.Context) {
	operationID := c.Param("id")
	if operationID == "all" {
		operationID = ""
	}

	if atomic.LoadInt64(&activeSSEConnections) >= maxSSEConnections {
		h.logger.SSE().Warn("SSE connection limit reached", "operationId", operationID)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "SSE connection limit reached. Please try again later."})
		return
	}

	setSSEHeaders(c)

	ch := h.broadcaster.AddClient(operationID)
	atomic.AddInt64(&activeSSEConnections, 1)
	defer func() {
		atomic.AddInt64(&activeSSEConnections, -1)
		h.broadcaster.RemoveClient(ch, operationID)
	}()

	h.logger.LogSSEEvent("connected", operationID, h.broadcaster.ConnectionCount(operationID))
	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"operationId\":%q,\"timestamp\":%q}\n\n",
		operationID, time.Now().UTC().Format(time.RFC3339))
	c.Writer.Flush()

	clientCtx := c.Request.Context()
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-clientCtx.Done():
			h.logger.LogSSEEvent("disconnected", operationID, h.broadcaster.ConnectionCount(operationID)-1)
			return
		case message, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprint(c.Writer, message)
			c.Writer.Flush()
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": heartbeat\n\n")
			c.Writer.Flush()
		}
	}
}

// GetLogStream handles GET /api/v1/logs/stream - streams structured log
// entries over SSE, filtered by channel and level query parameters.
func (h *StreamHandlers) GetLogStream(c *gin.Context) {
	filters := logging.AppliedFilters{
		Channel: logging.Channel(c.DefaultQuery("channel", "all")),
		Level:   parseLevel(c.DefaultQuery("level", "INFO")),
	}

	broadcaster := logging.GetBroadcaster()
	client := broadcaster.NewClient(filters)
	broadcaster.RegisterClient(client)
	defer broadcaster.UnregisterClient(client)

	setSSEHeaders(c)

	clientCtx := c.Request.Context()
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-clientCtx.Done():
			return
		case message, ok := <-client.Channel:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", message)
			c.Writer.Flush()
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": heartbeat\n\n")
			c.Writer.Flush()
		}
	}
}

// GetLogLevels handles GET /api/v1/logs/levels
func (h *StreamHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"levels": h.logger.GetChannelLevels()})
}

// SetLogLevel handles POST /api/v1/logs/levels
func (h *StreamHandlers) SetLogLevel(c *gin.Context) {
	var request struct {
		Channel string `json:"channel" binding:"required"`
		Level   string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel and level are required"})
		return
	}

	if err := h.logger.SetChannelLevel(logging.Channel(request.Channel), parseLevel(request.Level)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": request.Channel, "level": request.Level})
}

func setSSEHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

func parseLevel(raw string) slog.Level {
	switch raw {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "warn":
		return slog.LevelWarn
	case "ERROR", "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
