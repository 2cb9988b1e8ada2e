package services

import (
	"context"
	"fmt"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/caching/manager"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/email"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/performance"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/persistence/school"
)

// IntegrityChecker runs the consistency check battery and its repair
// routines. Implemented by school.IntegrityChecker.
type IntegrityChecker interface {
	CheckCount() int
	RunChecks(ctx context.Context) ([]deletion.IntegrityIssue, error)
	RepairOrphanedReferences(ctx context.Context, collection string) (int64, error)
	RepairDuplicateMembers(ctx context.Context) (int64, error)
	RepairInvalidScheduleSlots(ctx context.Context) (int64, error)
}

// BackupCreator snapshots the database before destructive repairs.
// Implemented by school.BackupManager.
type BackupCreator interface {
	Create(ctx context.Context) (string, error)
}

// IntegrityService runs validation batteries and repair passes. Validation is
// read-only; repairs back up first unless explicitly forced.
type IntegrityService struct {
	checker IntegrityChecker
	backups BackupCreator
	cache   *manager.Manager
	perf    *performance.Tracker
	mailer  *email.Client
	alertTo string
	logger  *logging.ChanneledLogger
}

// NewIntegrityService wires the integrity coordinator. mailer and alertTo may
// be empty; critical-issue alerts are then skipped.
func NewIntegrityService(
	checker IntegrityChecker,
	backups BackupCreator,
	cache *manager.Manager,
	perf *performance.Tracker,
	mailer *email.Client,
	alertTo string,
	logger *logging.ChanneledLogger,
) *IntegrityService {
	return &IntegrityService{
		checker: checker,
		backups: backups,
		cache:   cache,
		perf:    perf,
		mailer:  mailer,
		alertTo: alertTo,
		logger:  logger,
	}
}

// Validate runs the full check battery and caches the outcome. The previous
// cached result is superseded, never merged.
func (s *IntegrityService) Validate(ctx context.Context) (*deletion.ValidationResult, error) {
	marker := s.perf.StartOperation("integrity:validate", "")
	issues, err := s.checker.RunChecks(ctx)
	marker.SetError(err)
	s.perf.CompleteOperation(marker)
	if err != nil {
		return nil, deletion.Classify(err, "validate")
	}

	result := buildValidationResult(s.checker.CheckCount(), issues)
	s.cache.Integrity.SetValidation(result)

	if result.OverallStatus == deletion.ValidationCritical {
		s.alertCritical(result)
	}

	s.logger.Integrity().Info("Validation completed",
		"status", string(result.OverallStatus), "passed", result.Passed, "failed", result.Failed)
	return result, nil
}

// LastValidation returns the cached validation result, if one exists.
func (s *IntegrityService) LastValidation() (*deletion.ValidationResult, bool) {
	return s.cache.Integrity.Validation()
}

// Events returns the merged externally pushed integrity events.
func (s *IntegrityService) Events() []deletion.ExternalEvent {
	return s.cache.Integrity.Events()
}

// ErrorLog returns the capped diagnostic error log.
func (s *IntegrityService) ErrorLog() []deletion.ProcessedError {
	return s.cache.Integrity.ErrorLog()
}

// Repair fixes fixable issues. Dry runs never mutate data. Non-dry runs
// create a backup first; a failed backup aborts the whole pass with nothing
// repaired unless ForceRepair skips the backup outright.
func (s *IntegrityService) Repair(ctx context.Context, opts deletion.RepairOptions) (*deletion.RepairResult, error) {
	result := &deletion.RepairResult{
		OperationID: deletion.NewRepairID(),
		DryRun:      opts.DryRun,
		StartedAt:   time.Now().UTC(),
	}
	logger := s.logger.WithOperation("integrity", result.OperationID)

	issues, err := s.checker.RunChecks(ctx)
	if err != nil {
		return nil, deletion.Classify(err, "repair")
	}
	targets := selectIssues(issues, opts.Issues)

	if opts.DryRun {
		for _, issue := range targets {
			item := deletion.RepairItem{IssueID: issue.ID}
			if issue.Fixable {
				item.Outcome = deletion.RepairRepaired
				item.Detail = fmt.Sprintf("would repair %d %s records", issue.AffectedRecords, issue.Collection)
				result.Succeeded++
			} else {
				item.Outcome = deletion.RepairSkipped
				item.Detail = "not automatically fixable"
				result.Skipped++
			}
			result.Attempted++
			result.Items = append(result.Items, item)
		}
		result.EndedAt = time.Now().UTC()
		logger.Info("Repair dry run completed", "issues", len(targets))
		return result, nil
	}

	if !opts.ForceRepair || opts.CreateBackup {
		marker := s.perf.StartOperation("integrity:repair:backup", result.OperationID)
		backupID, err := s.backups.Create(ctx)
		marker.SetError(err)
		s.perf.CompleteOperation(marker)
		if err != nil {
			procErr := deletion.Classify(err, "repair backup")
			s.cache.Integrity.LogError(*procErr)
			logger.Error("Backup failed, repair aborted", "error", procErr.Message)
			return nil, procErr
		}
		result.BackupID = backupID
	} else {
		result.Warnings = append(result.Warnings, "repair forced without backup")
	}

	marker := s.perf.StartOperation("integrity:repair", result.OperationID)
	defer s.perf.CompleteOperation(marker)

	for _, issue := range targets {
		if err := ctx.Err(); err != nil {
			result.EndedAt = time.Now().UTC()
			return result, deletion.Classify(err, "repair")
		}

		item := deletion.RepairItem{IssueID: issue.ID}
		result.Attempted++

		if !issue.Fixable {
			item.Outcome = deletion.RepairSkipped
			item.Detail = "not automatically fixable"
			result.Skipped++
			result.Items = append(result.Items, item)
			continue
		}

		affected, err := s.repairIssue(ctx, issue)
		if err != nil {
			item.Outcome = deletion.RepairFailed
			item.Detail = err.Error()
			result.Failed++
			procErr := deletion.Classify(err, fmt.Sprintf("repair %s", issue.Type))
			s.cache.Integrity.LogError(*procErr)
		} else {
			item.Outcome = deletion.RepairRepaired
			item.Detail = fmt.Sprintf("%d records repaired", affected)
			result.Succeeded++
		}
		result.Items = append(result.Items, item)
	}

	result.EndedAt = time.Now().UTC()
	logger.Info("Repair completed",
		"attempted", result.Attempted, "succeeded", result.Succeeded,
		"failed", result.Failed, "skipped", result.Skipped)
	return result, nil
}

func (s *IntegrityService) repairIssue(ctx context.Context, issue deletion.IntegrityIssue) (int64, error) {
	switch issue.Type {
	case school.IssueOrphanedReference:
		return s.checker.RepairOrphanedReferences(ctx, issue.Collection)
	case school.IssueDuplicateMembership:
		return s.checker.RepairDuplicateMembers(ctx)
	case school.IssueInvalidScheduleSlot:
		return s.checker.RepairInvalidScheduleSlots(ctx)
	default:
		return 0, deletion.NewError(deletion.CodeValidationError,
			fmt.Sprintf("no repair routine for issue type %q", issue.Type))
	}
}

// alertCritical emails the configured recipient about a critical validation
// outcome. Failures are logged, never propagated.
func (s *IntegrityService) alertCritical(result *deletion.ValidationResult) {
	if s.mailer == nil || s.alertTo == "" {
		return
	}
	if err := s.mailer.SendIntegrityAlert(s.alertTo, result); err != nil {
		s.logger.Alert().Error("Failed to send integrity alert", "error", err.Error())
		return
	}
	s.logger.Alert().Info("Integrity alert sent", "to", s.alertTo, "failed", result.Failed)
}

// buildValidationResult grades the battery outcome. Critical-severity issues
// dominate, then any failure, then warnings.
func buildValidationResult(checkCount int, issues []deletion.IntegrityIssue) *deletion.ValidationResult {
	result := &deletion.ValidationResult{
		Issues:      issues,
		ValidatedAt: time.Now().UTC(),
	}

	hasCritical := false
	for _, issue := range issues {
		switch issue.Severity {
		case deletion.SeverityCritical:
			hasCritical = true
			result.Failed++
		case deletion.SeverityHigh:
			result.Failed++
		default:
			result.Warnings++
		}

		if issue.Fixable {
			result.Recommendations = append(result.Recommendations,
				fmt.Sprintf("run a repair to fix %d %s records in %s", issue.AffectedRecords, issue.Type, issue.Collection))
		} else {
			result.Recommendations = append(result.Recommendations,
				fmt.Sprintf("review %d %s records in %s manually", issue.AffectedRecords, issue.Type, issue.Collection))
		}
	}
	result.Passed = checkCount - len(issues)

	switch {
	case hasCritical:
		result.OverallStatus = deletion.ValidationCritical
	case result.Failed > 0:
		result.OverallStatus = deletion.ValidationErrors
	case result.Warnings > 0:
		result.OverallStatus = deletion.ValidationWarnings
	default:
		result.OverallStatus = deletion.ValidationHealthy
	}
	return result
}

// selectIssues filters the detected issues to the requested ids; an empty
// request selects everything.
func selectIssues(issues []deletion.IntegrityIssue, ids []string) []deletion.IntegrityIssue {
	if len(ids) == 0 {
		return issues
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var selected []deletion.IntegrityIssue
	for _, issue := range issues {
		if wanted[issue.ID] || wanted[issue.Type] {
			selected = append(selected, issue)
		}
	}
	return selected
}
