package deletion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrorCode is the typed taxonomy for failures surfaced by the engine.
type ErrorCode string

const (
	CodeNetworkError         ErrorCode = "NETWORK_ERROR"
	CodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	CodeForbidden            ErrorCode = "FORBIDDEN"
	CodeValidationError      ErrorCode = "VALIDATION_ERROR"
	CodeInvalidReferenceID   ErrorCode = "INVALID_REFERENCE_ID"
	CodeDeleteInProgress     ErrorCode = "DELETE_IN_PROGRESS"
	CodeOperationTimeout     ErrorCode = "OPERATION_TIMEOUT"
	CodeIntegrityViolation   ErrorCode = "INTEGRITY_VIOLATION"
	CodeDependenciesExist    ErrorCode = "DEPENDENCIES_EXIST"
	CodeRollbackNotAvailable ErrorCode = "ROLLBACK_NOT_AVAILABLE"
	CodeBackupFailed         ErrorCode = "BACKUP_FAILED"
	CodeServerError          ErrorCode = "SERVER_ERROR"
	CodePartialSuccess       ErrorCode = "PARTIAL_SUCCESS"
	CodeUnknownError         ErrorCode = "UNKNOWN_ERROR"
)

// ProcessedError is a classified failure with recoverability semantics and
// ordered remediation suggestions. Raw transport errors never reach callers
// unclassified.
type ProcessedError struct {
	ID          string    `json:"id"`
	Code        ErrorCode `json:"code"`
	Severity    Severity  `json:"severity"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Suggestions []string  `json:"suggestions"`
	Recoverable bool      `json:"recoverable"`
	Retryable   bool      `json:"retryable"`
	Timestamp   time.Time `json:"timestamp"`
	Context     string    `json:"context,omitempty"`
	Original    string    `json:"original,omitempty"`
}

// Error satisfies the error interface.
func (e *ProcessedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type errorProfile struct {
	severity    Severity
	title       string
	recoverable bool
	retryable   bool
	suggestions []string
}

// profiles is the fixed classification table. Recoverable is false for
// SERVER_ERROR, INTEGRITY_VIOLATION and BACKUP_FAILED; retryable is true only
// for NETWORK_ERROR, OPERATION_TIMEOUT and SERVER_ERROR.
var profiles = map[ErrorCode]errorProfile{
	CodeNetworkError: {
		severity: SeverityMedium, title: "Network error",
		recoverable: true, retryable: true,
		suggestions: []string{"Check your connection", "Retry the request"},
	},
	CodeUnauthorized: {
		severity: SeverityMedium, title: "Not authenticated",
		recoverable: true, retryable: false,
		suggestions: []string{"Sign in again", "Verify your session has not expired"},
	},
	CodeForbidden: {
		severity: SeverityMedium, title: "Not permitted",
		recoverable: true, retryable: false,
		suggestions: []string{"Request admin access for destructive operations"},
	},
	CodeValidationError: {
		severity: SeverityLow, title: "Invalid request",
		recoverable: true, retryable: false,
		suggestions: []string{"Correct the highlighted fields and resubmit"},
	},
	CodeInvalidReferenceID: {
		severity: SeverityMedium, title: "Invalid reference",
		recoverable: true, retryable: false,
		suggestions: []string{"Verify the entity still exists", "Refresh the entity list"},
	},
	CodeDeleteInProgress: {
		severity: SeverityMedium, title: "Deletion already running",
		recoverable: true, retryable: false,
		suggestions: []string{"Wait for the current operation to finish", "Check operation progress"},
	},
	CodeOperationTimeout: {
		severity: SeverityHigh, title: "Operation timed out",
		recoverable: true, retryable: true,
		suggestions: []string{"Fetch the operation status to reconcile true state", "Retry if the operation did not complete"},
	},
	CodeIntegrityViolation: {
		severity: SeverityCritical, title: "Integrity violation",
		recoverable: false, retryable: false,
		suggestions: []string{"Run an integrity validation", "Contact an administrator before retrying"},
	},
	CodeDependenciesExist: {
		severity: SeverityHigh, title: "Dependent records block deletion",
		recoverable: true, retryable: false,
		suggestions: []string{"Review the deletion preview", "Remove or reassign blocking records first"},
	},
	CodeRollbackNotAvailable: {
		severity: SeverityHigh, title: "Rollback unavailable",
		recoverable: true, retryable: false,
		suggestions: []string{"Restore from the most recent backup"},
	},
	CodeBackupFailed: {
		severity: SeverityCritical, title: "Backup failed",
		recoverable: false, retryable: false,
		suggestions: []string{"Check storage capacity", "Resolve backup errors before repairing"},
	},
	CodeServerError: {
		severity: SeverityHigh, title: "Server error",
		recoverable: false, retryable: true,
		suggestions: []string{"Retry shortly", "Check the service logs"},
	},
	CodePartialSuccess: {
		severity: SeverityMedium, title: "Partially completed",
		recoverable: true, retryable: false,
		suggestions: []string{"Review per-item errors", "Re-run for the remaining items"},
	},
	CodeUnknownError: {
		severity: SeverityMedium, title: "Unexpected error",
		recoverable: true, retryable: false,
		suggestions: []string{"Retry the operation", "Check the diagnostic log"},
	},
}

// NewError builds a ProcessedError for a known code.
func NewError(code ErrorCode, message string) *ProcessedError {
	profile, ok := profiles[code]
	if !ok {
		profile = profiles[CodeUnknownError]
		code = CodeUnknownError
	}
	return &ProcessedError{
		ID:          newErrorID(),
		Code:        code,
		Severity:    profile.severity,
		Title:       profile.title,
		Message:     message,
		Suggestions: profile.suggestions,
		Recoverable: profile.recoverable,
		Retryable:   profile.retryable,
		Timestamp:   time.Now().UTC(),
	}
}

// Classify maps a raw error to the taxonomy. Already-classified errors pass
// through unchanged.
func Classify(err error, opContext string) *ProcessedError {
	if err == nil {
		return nil
	}

	var processed *ProcessedError
	if errors.As(err, &processed) {
		return processed
	}

	code := CodeUnknownError
	var netErr net.Error
	switch {
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			code = CodeOperationTimeout
		} else {
			code = CodeNetworkError
		}
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeOperationTimeout
	case errors.Is(err, sql.ErrNoRows):
		code = CodeInvalidReferenceID
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, sql.ErrTxDone):
		code = CodeServerError
	}

	result := NewError(code, err.Error())
	result.Context = opContext
	result.Original = err.Error()
	return result
}
