package deletion_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError(t *testing.T) {
	procErr := deletion.NewError(deletion.CodeDeleteInProgress, "deletion del_x already running")

	assert.Equal(t, deletion.CodeDeleteInProgress, procErr.Code)
	assert.Equal(t, deletion.SeverityMedium, procErr.Severity)
	assert.True(t, procErr.Recoverable)
	assert.False(t, procErr.Retryable)
	assert.NotEmpty(t, procErr.Suggestions)
	assert.NotEmpty(t, procErr.ID)
	assert.False(t, procErr.Timestamp.IsZero())
}

func TestNewErrorUnknownCodeFallsBack(t *testing.T) {
	procErr := deletion.NewError(deletion.ErrorCode("NO_SUCH_CODE"), "boom")
	assert.Equal(t, deletion.CodeUnknownError, procErr.Code)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want deletion.ErrorCode
	}{
		{name: "missing row", err: sql.ErrNoRows, want: deletion.CodeInvalidReferenceID},
		{name: "wrapped missing row", err: fmt.Errorf("lookup: %w", sql.ErrNoRows), want: deletion.CodeInvalidReferenceID},
		{name: "deadline", err: context.DeadlineExceeded, want: deletion.CodeOperationTimeout},
		{name: "closed connection", err: sql.ErrConnDone, want: deletion.CodeServerError},
		{name: "finished transaction", err: sql.ErrTxDone, want: deletion.CodeServerError},
		{name: "anything else", err: errors.New("disk on fire"), want: deletion.CodeUnknownError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			procErr := deletion.Classify(tt.err, "test")
			require.NotNil(t, procErr)
			assert.Equal(t, tt.want, procErr.Code)
			assert.Equal(t, "test", procErr.Context)
			assert.Equal(t, tt.err.Error(), procErr.Original)
		})
	}
}

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, deletion.Classify(nil, "test"))
}

func TestClassifyPassesThroughProcessedErrors(t *testing.T) {
	original := deletion.NewError(deletion.CodeBackupFailed, "no space left")
	wrapped := fmt.Errorf("repair: %w", original)

	classified := deletion.Classify(wrapped, "other context")
	assert.Same(t, original, classified)
}

func TestRetryableAndRecoverableProfiles(t *testing.T) {
	assert.True(t, deletion.NewError(deletion.CodeNetworkError, "x").Retryable)
	assert.True(t, deletion.NewError(deletion.CodeOperationTimeout, "x").Retryable)
	assert.True(t, deletion.NewError(deletion.CodeServerError, "x").Retryable)

	assert.False(t, deletion.NewError(deletion.CodeServerError, "x").Recoverable)
	assert.False(t, deletion.NewError(deletion.CodeIntegrityViolation, "x").Recoverable)
	assert.False(t, deletion.NewError(deletion.CodeBackupFailed, "x").Recoverable)
}

func TestOperationStatusIsTerminal(t *testing.T) {
	assert.False(t, deletion.StatusPending.IsTerminal())
	assert.False(t, deletion.StatusInProgress.IsTerminal())
	assert.True(t, deletion.StatusCompleted.IsTerminal())
	assert.True(t, deletion.StatusFailed.IsTerminal())
	assert.True(t, deletion.StatusCancelled.IsTerminal())
}
