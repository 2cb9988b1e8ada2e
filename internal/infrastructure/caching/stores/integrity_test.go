package stores

import (
	"fmt"
	"testing"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationSupersedes(t *testing.T) {
	store := NewIntegrityStore(nil)

	_, ok := store.Validation()
	assert.False(t, ok)

	store.SetValidation(&deletion.ValidationResult{OverallStatus: deletion.ValidationErrors, Failed: 2})
	store.SetValidation(&deletion.ValidationResult{OverallStatus: deletion.ValidationHealthy, Passed: 8})

	result, ok := store.Validation()
	require.True(t, ok)
	assert.Equal(t, deletion.ValidationHealthy, result.OverallStatus)
	assert.Zero(t, result.Failed)
}

func TestRecordEventMergesByCollection(t *testing.T) {
	store := NewIntegrityStore(nil)

	store.RecordEvent(deletion.ExternalEvent{Collection: "grades", Count: 3, Severity: deletion.SeverityHigh})
	store.RecordEvent(deletion.ExternalEvent{Collection: "lessons", Count: 1, Severity: deletion.SeverityLow})
	store.RecordEvent(deletion.ExternalEvent{Collection: "grades", Count: 9, Severity: deletion.SeverityCritical})

	events := store.Events()
	require.Len(t, events, 2)

	byCollection := make(map[string]deletion.ExternalEvent)
	for _, event := range events {
		byCollection[event.Collection] = event
	}
	assert.Equal(t, 9, byCollection["grades"].Count)
	assert.Equal(t, deletion.SeverityCritical, byCollection["grades"].Severity)
}

func TestRecordEventFoldsIntoValidation(t *testing.T) {
	store := NewIntegrityStore(nil)
	store.SetValidation(&deletion.ValidationResult{
		OverallStatus: deletion.ValidationHealthy,
		Passed:        18,
	})

	store.RecordEvent(deletion.ExternalEvent{Collection: "grades", Count: 3, Severity: deletion.SeverityHigh, Details: "pushed by monitor"})

	result, ok := store.Validation()
	require.True(t, ok)
	assert.Equal(t, deletion.ValidationErrors, result.OverallStatus)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, externalIssueType, result.Issues[0].Type)
	assert.Equal(t, 3, result.Issues[0].AffectedRecords)
	assert.Equal(t, "pushed by monitor", result.Issues[0].Description)

	// A newer event for the same collection supersedes the folded issue
	// instead of stacking counters.
	store.RecordEvent(deletion.ExternalEvent{Collection: "grades", Count: 5, Severity: deletion.SeverityMedium})

	result, _ = store.Validation()
	assert.Equal(t, deletion.ValidationWarnings, result.OverallStatus)
	assert.Zero(t, result.Failed)
	assert.Equal(t, 1, result.Warnings)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, 5, result.Issues[0].AffectedRecords)
}

func TestRecordEventWithoutValidation(t *testing.T) {
	store := NewIntegrityStore(nil)

	// No cached result to fold into; the event list alone carries it.
	store.RecordEvent(deletion.ExternalEvent{Collection: "grades", Count: 2, Severity: deletion.SeverityHigh})

	_, ok := store.Validation()
	assert.False(t, ok)
	assert.Len(t, store.Events(), 1)
}

func TestRecordEventFillsTimestamp(t *testing.T) {
	store := NewIntegrityStore(nil)
	store.RecordEvent(deletion.ExternalEvent{Collection: "grades"})

	events := store.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPurgeEvents(t *testing.T) {
	store := NewIntegrityStore(nil)

	store.RecordEvent(deletion.ExternalEvent{Collection: "grades", Timestamp: time.Now().UTC().Add(-time.Hour)})
	store.RecordEvent(deletion.ExternalEvent{Collection: "lessons", Timestamp: time.Now().UTC()})

	assert.Equal(t, 1, store.PurgeEvents(10*time.Minute))

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "lessons", events[0].Collection)
}

func TestErrorLogIsCapped(t *testing.T) {
	store := NewIntegrityStore(nil)

	for i := 0; i < errorLogCap+10; i++ {
		store.LogError(deletion.ProcessedError{
			ID:      fmt.Sprintf("err_%d", i),
			Code:    deletion.CodeServerError,
			Message: "boom",
		})
	}

	log := store.ErrorLog()
	require.Len(t, log, errorLogCap)
	// Oldest entries were evicted.
	assert.Equal(t, "err_10", log[0].ID)
	assert.Equal(t, fmt.Sprintf("err_%d", errorLogCap+9), log[len(log)-1].ID)
}
