// Package deletion defines the value objects produced and consumed by the
// cascade deletion engine.
package deletion

import (
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/catalog"
)

// DependentEntity is a single node in the dependency tree computed for a
// deletion preview. Immutable once produced by the resolver.
type DependentEntity struct {
	ID               string               `json:"id"`
	Kind             catalog.Kind         `json:"type"`
	Name             string               `json:"name"`
	RelationshipType catalog.Relationship `json:"relationshipType"`
	CascadeAction    catalog.Action       `json:"cascadeAction"`
	AffectedCount    int                  `json:"affectedCount"`
	Children         []*DependentEntity   `json:"children,omitempty"`
	Metadata         DependentMetadata    `json:"metadata"`
}

// DependentMetadata records where a dependent was discovered.
type DependentMetadata struct {
	SourceTable string `json:"sourceTable"`
	ForeignKey  string `json:"foreignKey"`
	Constraint  string `json:"constraint,omitempty"`
	ParentID    string `json:"parentId,omitempty"`
	Depth       int    `json:"depth"`
}

// WarningType classifies a deletion warning.
type WarningType string

const (
	WarningDataLoss           WarningType = "data_loss"
	WarningIntegrityRisk      WarningType = "integrity_risk"
	WarningActiveDependencies WarningType = "active_dependencies"
)

// Severity is shared by warnings, integrity issues and processed errors.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// DeletionWarning flags a risk discovered during impact analysis.
type DeletionWarning struct {
	Type           WarningType `json:"type"`
	Severity       Severity    `json:"severity"`
	Message        string      `json:"message"`
	AffectedEntity EntityRef   `json:"affectedEntity"`
}

// EntityRef is a lightweight reference to a domain entity.
type EntityRef struct {
	Kind catalog.Kind `json:"type"`
	ID   string       `json:"id"`
}

// DeletionImpact is the derived verdict for a preview. Never mutated after
// creation.
type DeletionImpact struct {
	EntityKind           catalog.Kind       `json:"entityType"`
	EntityID             string             `json:"entityId"`
	Dependents           []*DependentEntity `json:"dependents"`
	TotalAffectedCount   int                `json:"totalAffectedCount"`
	CascadeDepth         int                `json:"cascadeDepth"`
	Warnings             []DeletionWarning  `json:"warnings"`
	CanDelete            bool               `json:"canDelete"`
	RequiresConfirmation bool               `json:"requiresConfirmation"`
	Incomplete           bool               `json:"incomplete,omitempty"`
}

// OperationStatus is the lifecycle state of a deletion operation.
type OperationStatus string

const (
	StatusPending    OperationStatus = "pending"
	StatusInProgress OperationStatus = "in_progress"
	StatusCompleted  OperationStatus = "completed"
	StatusFailed     OperationStatus = "failed"
	StatusCancelled  OperationStatus = "cancelled"
)

// IsTerminal reports whether the status is final.
func (s OperationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// DeletionOperation tracks a single cascade deletion run. At most one
// non-terminal operation may exist per (entityType, entityId).
type DeletionOperation struct {
	ID         string          `json:"id"`
	EntityKind catalog.Kind    `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Status     OperationStatus `json:"status"`
	StartedAt  time.Time       `json:"startedAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	EndedAt    *time.Time      `json:"endedAt,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	Error      *ProcessedError `json:"error,omitempty"`
}

// Phase describes where an operation is in its lifecycle.
type Phase string

const (
	PhasePreparing  Phase = "preparing"
	PhaseProcessing Phase = "processing"
	PhaseVerifying  Phase = "verifying"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// IsTerminal reports whether the phase is final.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// DeletionProgress is a point-in-time progress report for one operation.
// Percentage is monotonic non-decreasing within an operation.
type DeletionProgress struct {
	OperationID string   `json:"operationId"`
	Phase       Phase    `json:"phase"`
	Percentage  int      `json:"percentage"`
	Processed   int      `json:"processed"`
	Total       int      `json:"total"`
	Errors      []string `json:"errors,omitempty"`
}

// ExecuteOptions controls a deletion run.
type ExecuteOptions struct {
	UserID    string `json:"userId,omitempty"`
	BatchSize int    `json:"batchSize,omitempty"`
	MaxDepth  int    `json:"maxDepth,omitempty"`
}

// IntegrityIssue is a detected consistency violation, independent of any
// specific deletion. Persists until repaired or superseded by re-validation.
type IntegrityIssue struct {
	ID               string        `json:"id"`
	Type             string        `json:"type"`
	Severity         Severity      `json:"severity"`
	Collection       string        `json:"collection"`
	Description      string        `json:"description"`
	AffectedRecords  int           `json:"affectedRecords"`
	Fixable          bool          `json:"fixable"`
	EstimatedFixTime time.Duration `json:"estimatedFixTime"`
}

// ValidationStatus summarizes an integrity validation run.
type ValidationStatus string

const (
	ValidationHealthy  ValidationStatus = "healthy"
	ValidationWarnings ValidationStatus = "warnings"
	ValidationErrors   ValidationStatus = "errors"
	ValidationCritical ValidationStatus = "critical"
)

// ValidationResult is the outcome of the full integrity check battery.
type ValidationResult struct {
	Passed          int              `json:"passed"`
	Failed          int              `json:"failed"`
	Warnings        int              `json:"warnings"`
	Issues          []IntegrityIssue `json:"issues"`
	Recommendations []string         `json:"recommendations"`
	OverallStatus   ValidationStatus `json:"overallStatus"`
	ValidatedAt     time.Time        `json:"validatedAt"`
}

// RepairOutcome is the per-issue result of a repair pass.
type RepairOutcome string

const (
	RepairRepaired RepairOutcome = "repaired"
	RepairFailed   RepairOutcome = "failed"
	RepairSkipped  RepairOutcome = "skipped"
)

// RepairItem records the outcome for one issue in a repair run.
type RepairItem struct {
	IssueID string        `json:"issueId"`
	Outcome RepairOutcome `json:"outcome"`
	Detail  string        `json:"detail,omitempty"`
}

// RepairOptions controls a repair run. DryRun never mutates data. Non-dry
// runs require a successful backup first unless ForceRepair is set;
// CreateBackup restores the backup even under ForceRepair.
type RepairOptions struct {
	Issues       []string `json:"issues,omitempty"`
	CreateBackup bool     `json:"createBackup"`
	DryRun       bool     `json:"dryRun"`
	ForceRepair  bool     `json:"forceRepair"`
}

// RepairResult summarizes a repair run. The run is successful even when some
// per-issue repairs failed; those are reported, not fatal.
type RepairResult struct {
	OperationID string       `json:"operationId"`
	BackupID    string       `json:"backupId,omitempty"`
	DryRun      bool         `json:"dryRun"`
	Attempted   int          `json:"attempted"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	Skipped     int          `json:"skipped"`
	Items       []RepairItem `json:"items"`
	Warnings    []string     `json:"warnings,omitempty"`
	StartedAt   time.Time    `json:"startedAt"`
	EndedAt     time.Time    `json:"endedAt"`
}

// OrphanedReference is a stored reference to a parent record that no longer
// exists. Transient, recomputed on each preview.
type OrphanedReference struct {
	Collection       string `json:"collection"`
	OrphanedID       string `json:"orphanedId"`
	ParentCollection string `json:"parentCollection"`
	ParentID         string `json:"parentId"`
	Reason           string `json:"reason"`
}

// RiskLevel grades the danger of an orphan cleanup run.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskAssessment is derived from the total orphan count.
type RiskAssessment struct {
	Level                RiskLevel `json:"level"`
	TotalOrphaned        int       `json:"totalOrphaned"`
	RecommendedBatchSize int       `json:"recommendedBatchSize"`
}

// CollectionScan is the per-collection slice of an orphan preview or cleanup.
type CollectionScan struct {
	Collection string   `json:"collection"`
	Scanned    int      `json:"scanned"`
	Orphaned   int      `json:"orphaned"`
	Cleaned    int      `json:"cleaned,omitempty"`
	Skipped    int      `json:"skipped,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// CleanupOptions controls an orphan preview or cleanup run.
type CleanupOptions struct {
	Collections []string `json:"collections,omitempty"`
	BatchSize   int      `json:"batchSize,omitempty"`
}

// CleanupPreview is the dry-run scan result for orphaned references.
type CleanupPreview struct {
	Collections    []CollectionScan    `json:"collections"`
	Orphans        []OrphanedReference `json:"orphans"`
	RiskAssessment RiskAssessment      `json:"riskAssessment"`
	ScannedAt      time.Time           `json:"scannedAt"`
}

// CleanupResult summarizes an executed orphan cleanup.
type CleanupResult struct {
	OperationID string           `json:"operationId"`
	Collections []CollectionScan `json:"collections"`
	Cleaned     int              `json:"cleaned"`
	Skipped     int              `json:"skipped"`
	Errors      []string         `json:"errors,omitempty"`
	StartedAt   time.Time        `json:"startedAt"`
	EndedAt     time.Time        `json:"endedAt"`
}

// ExternalEvent is the shape of an inbound real-time event pushed by an
// external transport and merged into cached state.
type ExternalEvent struct {
	OperationID string    `json:"operationId,omitempty"`
	Collection  string    `json:"collection,omitempty"`
	Severity    Severity  `json:"severity"`
	Count       int       `json:"count"`
	Fixable     bool      `json:"fixable"`
	Details     string    `json:"details,omitempty"`
	Percentage  *int      `json:"percentage,omitempty"`
	Phase       Phase     `json:"phase,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
