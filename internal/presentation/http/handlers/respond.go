// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"errors"
	"net/http"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/gin-gonic/gin"
)

// statusFor maps the engine's error taxonomy onto HTTP status codes.
func statusFor(code deletion.ErrorCode) int {
	switch code {
	case deletion.CodeValidationError:
		return http.StatusBadRequest
	case deletion.CodeUnauthorized:
		return http.StatusUnauthorized
	case deletion.CodeForbidden:
		return http.StatusForbidden
	case deletion.CodeInvalidReferenceID:
		return http.StatusNotFound
	case deletion.CodeDeleteInProgress, deletion.CodeDependenciesExist:
		return http.StatusConflict
	case deletion.CodeOperationTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a classified error as JSON. Unclassified errors are run
// through the classifier first so raw messages never leak.
func respondError(c *gin.Context, err error) {
	var processed *deletion.ProcessedError
	if !errors.As(err, &processed) {
		processed = deletion.Classify(err, c.FullPath())
	}
	c.JSON(statusFor(processed.Code), gin.H{"error": processed})
}
