package stores

import (
	"fmt"
	"sync"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
)

// errorLogCap bounds the diagnostic error log.
const errorLogCap = 100

// externalIssueType marks synthetic issues folded in from pushed events.
const externalIssueType = "external_report"

// IntegrityStore caches the latest validation outcome, merges externally
// pushed integrity events, and keeps a capped diagnostic error log.
type IntegrityStore struct {
	mu             sync.RWMutex
	lastValidation *deletion.ValidationResult
	events         []deletion.ExternalEvent
	errorLog       []deletion.ProcessedError
	logger         *logging.ChanneledLogger
}

// NewIntegrityStore creates a new integrity state store
func NewIntegrityStore(logger *logging.ChanneledLogger) *IntegrityStore {
	if logger != nil {
		logger.Cache().Info("Initializing integrity store")
	}
	return &IntegrityStore{logger: logger}
}

// SetValidation stores the latest validation result, superseding any previous
// one.
func (is *IntegrityStore) SetValidation(result *deletion.ValidationResult) {
	is.mu.Lock()
	defer is.mu.Unlock()
	is.lastValidation = result
}

// Validation returns the most recent validation result, if any.
func (is *IntegrityStore) Validation() (*deletion.ValidationResult, bool) {
	is.mu.RLock()
	defer is.mu.RUnlock()

	if is.lastValidation == nil {
		return nil, false
	}
	copied := *is.lastValidation
	return &copied, true
}

// RecordEvent merges one externally pushed integrity event. Events for the
// same collection supersede each other; the newest wins. The event is also
// folded into the last cached validation result's counters so status reads
// reflect it without re-running the full battery.
func (is *IntegrityStore) RecordEvent(event deletion.ExternalEvent) {
	is.mu.Lock()
	defer is.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	replaced := false
	for i, existing := range is.events {
		if existing.Collection != "" && existing.Collection == event.Collection {
			is.events[i] = event
			replaced = true
			break
		}
	}
	if !replaced {
		is.events = append(is.events, event)
	}
	is.foldIntoValidation(event)
}

// foldIntoValidation applies one event to the cached validation result: the
// previous synthetic issue for the collection (if any) is retracted, the new
// one appended, and the counters and overall grade updated.
func (is *IntegrityStore) foldIntoValidation(event deletion.ExternalEvent) {
	v := is.lastValidation
	if v == nil || event.Collection == "" {
		return
	}

	issues := make([]deletion.IntegrityIssue, 0, len(v.Issues)+1)
	for _, issue := range v.Issues {
		if issue.Type == externalIssueType && issue.Collection == event.Collection {
			if issue.Severity == deletion.SeverityCritical || issue.Severity == deletion.SeverityHigh {
				v.Failed--
			} else {
				v.Warnings--
			}
			continue
		}
		issues = append(issues, issue)
	}

	description := event.Details
	if description == "" {
		description = fmt.Sprintf("%d records reported in %s", event.Count, event.Collection)
	}
	issues = append(issues, deletion.IntegrityIssue{
		ID:              deletion.NewIssueID(),
		Type:            externalIssueType,
		Severity:        event.Severity,
		Collection:      event.Collection,
		Description:     description,
		AffectedRecords: event.Count,
		Fixable:         event.Fixable,
	})
	if event.Severity == deletion.SeverityCritical || event.Severity == deletion.SeverityHigh {
		v.Failed++
	} else {
		v.Warnings++
	}
	v.Issues = issues

	hasCritical := false
	for _, issue := range v.Issues {
		if issue.Severity == deletion.SeverityCritical {
			hasCritical = true
			break
		}
	}
	switch {
	case hasCritical:
		v.OverallStatus = deletion.ValidationCritical
	case v.Failed > 0:
		v.OverallStatus = deletion.ValidationErrors
	case v.Warnings > 0:
		v.OverallStatus = deletion.ValidationWarnings
	default:
		v.OverallStatus = deletion.ValidationHealthy
	}
}

// Events returns the merged external event list.
func (is *IntegrityStore) Events() []deletion.ExternalEvent {
	is.mu.RLock()
	defer is.mu.RUnlock()

	events := make([]deletion.ExternalEvent, len(is.events))
	copy(events, is.events)
	return events
}

// PurgeEvents drops events older than the retention window and returns how
// many were removed.
func (is *IntegrityStore) PurgeEvents(retention time.Duration) int {
	is.mu.Lock()
	defer is.mu.Unlock()

	cutoff := time.Now().UTC().Add(-retention)
	kept := is.events[:0]
	purged := 0
	for _, event := range is.events {
		if event.Timestamp.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, event)
	}
	is.events = kept
	return purged
}

// LogError appends to the capped diagnostic error log, evicting the oldest
// entry when full.
func (is *IntegrityStore) LogError(procErr deletion.ProcessedError) {
	is.mu.Lock()
	defer is.mu.Unlock()

	if len(is.errorLog) >= errorLogCap {
		is.errorLog = is.errorLog[1:]
	}
	is.errorLog = append(is.errorLog, procErr)
}

// ErrorLog returns the diagnostic error log, oldest first.
func (is *IntegrityStore) ErrorLog() []deletion.ProcessedError {
	is.mu.RLock()
	defer is.mu.RUnlock()

	log := make([]deletion.ProcessedError, len(is.errorLog))
	copy(log, is.errorLog)
	return log
}

// Stats reports store occupancy for diagnostics.
func (is *IntegrityStore) Stats() map[string]any {
	is.mu.RLock()
	defer is.mu.RUnlock()

	return map[string]any{
		"events":        len(is.events),
		"errorLog":      len(is.errorLog),
		"hasValidation": is.lastValidation != nil,
	}
}
