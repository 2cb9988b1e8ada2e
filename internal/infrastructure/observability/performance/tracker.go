// Package performance provides performance tracking and monitoring
// capabilities for deletion service operations with real-time metrics.
package performance

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Tracker manages performance markers and provides metrics aggregation
type Tracker struct {
	markers    map[string]*Marker     // Active and completed markers by unique ID
	snapshots  []*PerformanceSnapshot // Historical performance snapshots
	alerts     []*PerformanceAlert    // Active performance alerts
	thresholds *AlertThresholds       // Configurable alert thresholds
	mu         sync.RWMutex           // Protects concurrent access
	started    time.Time              // When tracking started
	config     *TrackerConfig         // Tracker configuration
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	MaxMarkers       int           `json:"maxMarkers"`       // Maximum number of markers to retain
	MaxSnapshots     int           `json:"maxSnapshots"`     // Maximum number of snapshots to retain
	MaxAlerts        int           `json:"maxAlerts"`        // Maximum number of alerts to retain
	SnapshotInterval time.Duration `json:"snapshotInterval"` // How often to take performance snapshots
	CleanupInterval  time.Duration `json:"cleanupInterval"`  // How often to clean up old data
	EnableAlerts     bool          `json:"enableAlerts"`     // Whether to generate performance alerts
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxMarkers:       10000,
		MaxSnapshots:     100,
		MaxAlerts:        500,
		SnapshotInterval: time.Minute * 5,
		CleanupInterval:  time.Minute * 10,
		EnableAlerts:     true,
	}
}

// AlertThresholds defines performance thresholds for generating alerts
type AlertThresholds struct {
	// Response time thresholds
	SlowResponseThreshold     time.Duration `json:"slowResponseThreshold"`     // 500ms
	VerySlowResponseThreshold time.Duration `json:"verySlowResponseThreshold"` // 2s
	CriticalResponseThreshold time.Duration `json:"criticalResponseThreshold"` // 5s

	// Cache performance thresholds
	LowCacheHitRatio      float64 `json:"lowCacheHitRatio"`      // 0.85 (85%)
	CriticalCacheHitRatio float64 `json:"criticalCacheHitRatio"` // 0.70 (70%)

	// Memory thresholds (in bytes)
	HighMemoryUsage     int64 `json:"highMemoryUsage"`     // 500MB
	CriticalMemoryUsage int64 `json:"criticalMemoryUsage"` // 1GB

	// Operation-specific thresholds
	ResolveThreshold       time.Duration `json:"resolveThreshold"`       // 1s
	BatchThreshold         time.Duration `json:"batchThreshold"`         // 2s
	IntegrityScanThreshold time.Duration `json:"integrityScanThreshold"` // 5s
	DatabaseQueryThreshold time.Duration `json:"databaseQueryThreshold"` // 50ms
}

// DefaultAlertThresholds returns sensible default alert thresholds
func DefaultAlertThresholds() *AlertThresholds {
	return &AlertThresholds{
		SlowResponseThreshold:     time.Millisecond * 500,
		VerySlowResponseThreshold: time.Second * 2,
		CriticalResponseThreshold: time.Second * 5,
		LowCacheHitRatio:          0.85,
		CriticalCacheHitRatio:     0.70,
		HighMemoryUsage:           500 * 1024 * 1024,  // 500MB
		CriticalMemoryUsage:       1024 * 1024 * 1024, // 1GB
		ResolveThreshold:          time.Second * 1,
		BatchThreshold:            time.Second * 2,
		IntegrityScanThreshold:    time.Second * 5,
		DatabaseQueryThreshold:    time.Millisecond * 50,
	}
}

// NewTracker creates a new performance tracker with the given configuration
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}

	return &Tracker{
		markers:    make(map[string]*Marker),
		snapshots:  make([]*PerformanceSnapshot, 0),
		alerts:     make([]*PerformanceAlert, 0),
		thresholds: DefaultAlertThresholds(),
		started:    time.Now(),
		config:     config,
	}
}

// StartOperation creates and tracks a new performance marker for an operation
func (t *Tracker) StartOperation(operation, operationID string) *Marker {
	marker := &Marker{
		Operation:   operation,
		OperationID: operationID,
		StartTime:   time.Now(),
		Metadata:    make(map[string]any),
		Success:     true, // Assume success until proven otherwise
	}

	markerID := fmt.Sprintf("%s_%s_%d", operationID, operation, time.Now().UnixNano())

	t.mu.Lock()
	t.markers[markerID] = marker
	t.mu.Unlock()

	return marker
}

// StartOperationWithContext creates a performance marker with context cancellation support
func (t *Tracker) StartOperationWithContext(ctx context.Context, operation, operationID string) *Marker {
	marker := t.StartOperation(operation, operationID)

	go func() {
		<-ctx.Done()
		if !marker.Completed {
			marker.SetError(ctx.Err())
			marker.Complete()
		}
	}()

	return marker
}

// CompleteOperation manually completes an operation and checks for alerts
func (t *Tracker) CompleteOperation(marker *Marker) {
	if marker == nil || marker.Completed {
		return
	}

	marker.Complete()

	if t.config.EnableAlerts {
		t.checkForAlerts(marker)
	}
}

// checkForAlerts evaluates a completed marker against alert thresholds
func (t *Tracker) checkForAlerts(marker *Marker) {
	if marker == nil || !marker.Completed {
		return
	}

	alerts := t.evaluateThresholds(marker)

	t.mu.Lock()
	for _, alert := range alerts {
		t.alerts = append(t.alerts, alert)

		if len(t.alerts) > t.config.MaxAlerts {
			t.alerts = t.alerts[len(t.alerts)-t.config.MaxAlerts:]
		}
	}
	t.mu.Unlock()
}

// evaluateThresholds checks a marker against all relevant thresholds
func (t *Tracker) evaluateThresholds(marker *Marker) []*PerformanceAlert {
	var alerts []*PerformanceAlert

	if marker.Duration > t.thresholds.CriticalResponseThreshold {
		alerts = append(alerts, t.createAlert(marker, AlertCritical,
			"Operation exceeded critical response time threshold"))
	} else if marker.Duration > t.thresholds.VerySlowResponseThreshold {
		alerts = append(alerts, t.createAlert(marker, AlertWarning,
			"Operation exceeded slow response time threshold"))
	}

	switch {
	case strings.Contains(marker.Operation, "resolve"):
		if marker.Duration > t.thresholds.ResolveThreshold {
			alerts = append(alerts, t.createAlert(marker, AlertWarning,
				"Dependency resolution exceeded threshold"))
		}
	case strings.Contains(marker.Operation, "batch"):
		if marker.Duration > t.thresholds.BatchThreshold {
			alerts = append(alerts, t.createAlert(marker, AlertWarning,
				"Batch execution exceeded threshold"))
		}
	case strings.Contains(marker.Operation, "integrity"), strings.Contains(marker.Operation, "orphan"):
		if marker.Duration > t.thresholds.IntegrityScanThreshold {
			alerts = append(alerts, t.createAlert(marker, AlertWarning,
				"Integrity scan exceeded threshold"))
		}
	}

	if marker.CacheHits+marker.CacheMisses > 0 {
		hitRatio := marker.GetCacheHitRatio()
		if hitRatio < t.thresholds.CriticalCacheHitRatio {
			alerts = append(alerts, t.createAlert(marker, AlertCritical,
				"Cache hit ratio critically low"))
		} else if hitRatio < t.thresholds.LowCacheHitRatio {
			alerts = append(alerts, t.createAlert(marker, AlertWarning,
				"Cache hit ratio below optimal"))
		}
	}

	memoryMB := marker.MemoryUsage / (1024 * 1024)
	if marker.MemoryUsage > t.thresholds.CriticalMemoryUsage {
		alerts = append(alerts, t.createAlert(marker, AlertCritical,
			fmt.Sprintf("Critical memory usage: %d MB", memoryMB)))
	} else if marker.MemoryUsage > t.thresholds.HighMemoryUsage {
		alerts = append(alerts, t.createAlert(marker, AlertWarning,
			fmt.Sprintf("High memory usage: %d MB", memoryMB)))
	}

	return alerts
}

// createAlert creates a new performance alert
func (t *Tracker) createAlert(marker *Marker, severity AlertSeverity, message string) *PerformanceAlert {
	return &PerformanceAlert{
		ID:          fmt.Sprintf("alert_%d", time.Now().UnixNano()),
		Timestamp:   time.Now(),
		OperationID: marker.OperationID,
		Severity:    severity,
		Operation:   marker.Operation,
		Actual:      marker.Duration,
		Message:     message,
		Metadata: map[string]any{
			"cacheHitRatio": marker.GetCacheHitRatio(),
			"memoryUsageMB": marker.MemoryUsage / (1024 * 1024),
			"success":       marker.Success,
		},
	}
}

// GetMetrics returns all completed performance metrics
func (t *Tracker) GetMetrics() []Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var metrics []Marker
	for _, marker := range t.markers {
		if marker.Completed {
			metrics = append(metrics, *marker)
		}
	}
	return metrics
}

// GetRecentMetrics returns metrics for operations completed within the specified duration
func (t *Tracker) GetRecentMetrics(within time.Duration) []Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cutoff := time.Now().Add(-within)
	var metrics []Marker

	for _, marker := range t.markers {
		if marker.Completed && marker.EndTime.After(cutoff) {
			metrics = append(metrics, *marker)
		}
	}
	return metrics
}

// GetActiveOperations returns currently running operations
func (t *Tracker) GetActiveOperations() []Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var active []Marker
	for _, marker := range t.markers {
		if !marker.Completed {
			current := *marker
			// Calculate current duration for active operations
			current.Duration = time.Since(marker.StartTime)
			active = append(active, current)
		}
	}
	return active
}

// GetAlerts returns performance alerts for a specific deletion operation
func (t *Tracker) GetAlerts(operationID string) []*PerformanceAlert {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var alerts []*PerformanceAlert
	for _, alert := range t.alerts {
		if operationID == "" || alert.OperationID == operationID {
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

// TakeSnapshot creates a performance snapshot of recent activity
func (t *Tracker) TakeSnapshot() *PerformanceSnapshot {
	metrics := t.GetRecentMetrics(time.Minute * 5)
	activeOps := t.GetActiveOperations()

	snapshot := &PerformanceSnapshot{
		Timestamp:           time.Now(),
		ActiveOperations:    len(activeOps),
		CompletedOperations: len(metrics),
		OverallHealth:       t.calculateHealth(metrics, activeOps),
	}

	snapshot.Resolution = t.extractResolutionMetrics(metrics)
	snapshot.Execution = t.extractExecutionMetrics(metrics)
	snapshot.Integrity = t.extractIntegrityMetrics(metrics)

	t.mu.Lock()
	t.snapshots = append(t.snapshots, snapshot)

	if len(t.snapshots) > t.config.MaxSnapshots {
		t.snapshots = t.snapshots[len(t.snapshots)-t.config.MaxSnapshots:]
	}
	t.mu.Unlock()

	return snapshot
}

// calculateHealth determines overall system health based on recent metrics
func (t *Tracker) calculateHealth(metrics, activeOps []Marker) HealthStatus {
	if len(metrics) == 0 && len(activeOps) == 0 {
		return HealthUnknown
	}

	criticalIssues := 0
	warningIssues := 0
	totalOps := len(metrics) + len(activeOps)

	allOps := append(metrics, activeOps...)

	for _, op := range allOps {
		duration := op.Duration
		if !op.Completed {
			duration = time.Since(op.StartTime)
		}

		if duration > t.thresholds.CriticalResponseThreshold || !op.Success {
			criticalIssues++
		} else if duration > t.thresholds.VerySlowResponseThreshold {
			warningIssues++
		}
	}

	criticalRatio := float64(criticalIssues) / float64(totalOps)
	warningRatio := float64(warningIssues) / float64(totalOps)

	if criticalRatio > 0.1 { // More than 10% critical issues
		return HealthUnhealthy
	} else if criticalRatio > 0.05 || warningRatio > 0.2 { // More than 5% critical or 20% warning
		return HealthDegraded
	}

	return HealthHealthy
}

// extractResolutionMetrics filters metrics for dependency resolution operations
func (t *Tracker) extractResolutionMetrics(metrics []Marker) *ResolutionPerformanceTracker {
	tracker := &ResolutionPerformanceTracker{}

	for _, metric := range metrics {
		switch {
		case strings.Contains(metric.Operation, "resolve"):
			tracker.DependencyTraversal = latestOf(tracker.DependencyTraversal, metric)
		case strings.Contains(metric.Operation, "impact"):
			tracker.ImpactAnalysis = latestOf(tracker.ImpactAnalysis, metric)
		case strings.Contains(metric.Operation, "cache"):
			tracker.CacheLookup = latestOf(tracker.CacheLookup, metric)
		}
	}

	return tracker
}

// extractExecutionMetrics filters metrics for cascade execution operations
func (t *Tracker) extractExecutionMetrics(metrics []Marker) *ExecutionPerformanceTracker {
	tracker := &ExecutionPerformanceTracker{}

	for _, metric := range metrics {
		switch {
		case strings.Contains(metric.Operation, "batch"):
			tracker.BatchDeletion = latestOf(tracker.BatchDeletion, metric)
		case strings.Contains(metric.Operation, "nullify"):
			tracker.ReferenceNullify = latestOf(tracker.ReferenceNullify, metric)
		case strings.Contains(metric.Operation, "verify"):
			tracker.Verification = latestOf(tracker.Verification, metric)
		case strings.Contains(metric.Operation, "backup"):
			tracker.BackupCreation = latestOf(tracker.BackupCreation, metric)
		case strings.Contains(metric.Operation, "sse"):
			tracker.ProgressBroadcast = latestOf(tracker.ProgressBroadcast, metric)
		}
	}

	return tracker
}

// extractIntegrityMetrics filters metrics for validation and cleanup operations
func (t *Tracker) extractIntegrityMetrics(metrics []Marker) *IntegrityPerformanceTracker {
	tracker := &IntegrityPerformanceTracker{}

	for _, metric := range metrics {
		switch {
		case strings.Contains(metric.Operation, "validate"):
			tracker.ValidationPass = latestOf(tracker.ValidationPass, metric)
		case strings.Contains(metric.Operation, "repair"):
			tracker.RepairRun = latestOf(tracker.RepairRun, metric)
		case strings.Contains(metric.Operation, "orphan:scan"):
			tracker.OrphanScan = latestOf(tracker.OrphanScan, metric)
		case strings.Contains(metric.Operation, "orphan:cleanup"):
			tracker.OrphanCleanup = latestOf(tracker.OrphanCleanup, metric)
		}
	}

	return tracker
}

// latestOf keeps the marker with the most recent end time.
func latestOf(current *Marker, candidate Marker) *Marker {
	if current == nil || candidate.EndTime.After(current.EndTime) {
		m := candidate
		return &m
	}
	return current
}

// Cleanup removes old markers and snapshots to prevent memory leaks
func (t *Tracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Keep the last hour of completed markers
	cutoff := time.Now().Add(-time.Hour)
	for id, marker := range t.markers {
		if marker.Completed && marker.EndTime.Before(cutoff) {
			delete(t.markers, id)
		}
	}

	if len(t.markers) > t.config.MaxMarkers {
		count := 0
		for id := range t.markers {
			if count > t.config.MaxMarkers/2 {
				delete(t.markers, id)
			}
			count++
		}
	}
}

// GetOverallStats returns overall tracker statistics
func (t *Tracker) GetOverallStats() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	activeCount := 0
	completedCount := 0

	for _, marker := range t.markers {
		if marker.Completed {
			completedCount++
		} else {
			activeCount++
		}
	}

	return map[string]any{
		"trackerUptime":       time.Since(t.started),
		"totalMarkers":        len(t.markers),
		"activeOperations":    activeCount,
		"completedOperations": completedCount,
		"totalSnapshots":      len(t.snapshots),
		"totalAlerts":         len(t.alerts),
		"memoryUsageMB":       memStats.Alloc / (1024 * 1024),
		"systemMemoryMB":      memStats.Sys / (1024 * 1024),
	}
}
