package services

import (
	"context"
	"testing"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/caching/manager"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/performance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubChecker serves a fixed issue list and counts repair invocations.
type stubChecker struct {
	issues  []deletion.IntegrityIssue
	repairs int
}

func (s *stubChecker) CheckCount() int { return 18 }

func (s *stubChecker) RunChecks(context.Context) ([]deletion.IntegrityIssue, error) {
	return s.issues, nil
}

func (s *stubChecker) RepairOrphanedReferences(context.Context, string) (int64, error) {
	s.repairs++
	return 3, nil
}

func (s *stubChecker) RepairDuplicateMembers(context.Context) (int64, error) {
	s.repairs++
	return 1, nil
}

func (s *stubChecker) RepairInvalidScheduleSlots(context.Context) (int64, error) {
	s.repairs++
	return 1, nil
}

type stubBackups struct {
	id  string
	err error
}

func (s *stubBackups) Create(context.Context) (string, error) {
	return s.id, s.err
}

func testIntegrityService(t *testing.T, checker IntegrityChecker, backups BackupCreator) *IntegrityService {
	t.Helper()
	logger := silentLogger(t)
	return NewIntegrityService(checker, backups, manager.NewManager(logger),
		performance.NewTracker(nil), nil, "", logger)
}

func TestRepairAbortsWhenBackupFails(t *testing.T) {
	checker := &stubChecker{issues: []deletion.IntegrityIssue{
		issue("iss_1", "orphaned_reference", deletion.SeverityHigh, true),
	}}
	backups := &stubBackups{err: deletion.NewError(deletion.CodeBackupFailed, "disk full")}
	svc := testIntegrityService(t, checker, backups)

	result, err := svc.Repair(context.Background(), deletion.RepairOptions{})
	require.Error(t, err)
	assert.Nil(t, result)

	var procErr *deletion.ProcessedError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, deletion.CodeBackupFailed, procErr.Code)

	// Nothing was repaired and the failure landed in the diagnostic log.
	assert.Zero(t, checker.repairs)
	require.Len(t, svc.ErrorLog(), 1)
	assert.Equal(t, deletion.CodeBackupFailed, svc.ErrorLog()[0].Code)
}

func TestRepairBacksUpThenFixes(t *testing.T) {
	checker := &stubChecker{issues: []deletion.IntegrityIssue{
		issue("iss_1", "orphaned_reference", deletion.SeverityHigh, true),
	}}
	svc := testIntegrityService(t, checker, &stubBackups{id: "bak_1"})

	result, err := svc.Repair(context.Background(), deletion.RepairOptions{})
	require.NoError(t, err)
	assert.Equal(t, "bak_1", result.BackupID)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, checker.repairs)
}

func TestRepairCreateBackupOverridesForce(t *testing.T) {
	checker := &stubChecker{issues: []deletion.IntegrityIssue{
		issue("iss_1", "orphaned_reference", deletion.SeverityHigh, true),
	}}

	// ForceRepair alone skips the backup entirely; a failing backup manager
	// is never invoked.
	svc := testIntegrityService(t, checker, &stubBackups{err: deletion.NewError(deletion.CodeBackupFailed, "disk full")})
	result, err := svc.Repair(context.Background(), deletion.RepairOptions{ForceRepair: true})
	require.NoError(t, err)
	assert.Empty(t, result.BackupID)
	assert.Contains(t, result.Warnings, "repair forced without backup")

	// CreateBackup reinstates the backup even under ForceRepair.
	svc = testIntegrityService(t, checker, &stubBackups{id: "bak_2"})
	result, err = svc.Repair(context.Background(), deletion.RepairOptions{ForceRepair: true, CreateBackup: true})
	require.NoError(t, err)
	assert.Equal(t, "bak_2", result.BackupID)
}

func TestValidateGradesCriticalOutcome(t *testing.T) {
	checker := &stubChecker{issues: []deletion.IntegrityIssue{
		issue("iss_1", "orphaned_reference", deletion.SeverityCritical, true),
	}}
	svc := testIntegrityService(t, checker, &stubBackups{id: "bak_1"})

	result, err := svc.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, deletion.ValidationCritical, result.OverallStatus)

	cached, ok := svc.LastValidation()
	require.True(t, ok)
	assert.Equal(t, deletion.ValidationCritical, cached.OverallStatus)
}

func issue(id, issueType string, severity deletion.Severity, fixable bool) deletion.IntegrityIssue {
	return deletion.IntegrityIssue{
		ID:              id,
		Type:            issueType,
		Severity:        severity,
		Collection:      "grades",
		AffectedRecords: 3,
		Fixable:         fixable,
	}
}

func TestBuildValidationResultHealthy(t *testing.T) {
	result := buildValidationResult(8, nil)
	assert.Equal(t, deletion.ValidationHealthy, result.OverallStatus)
	assert.Equal(t, 8, result.Passed)
	assert.Zero(t, result.Failed)
	assert.Zero(t, result.Warnings)
	assert.Empty(t, result.Recommendations)
}

func TestBuildValidationResultGrading(t *testing.T) {
	tests := []struct {
		name       string
		issues     []deletion.IntegrityIssue
		wantStatus deletion.ValidationStatus
		wantFailed int
		wantWarns  int
	}{
		{
			name:       "critical dominates",
			issues:     []deletion.IntegrityIssue{issue("iss_1", "orphaned_reference", deletion.SeverityCritical, true), issue("iss_2", "duplicate_membership", deletion.SeverityHigh, true)},
			wantStatus: deletion.ValidationCritical,
			wantFailed: 2,
		},
		{
			name:       "high counts as failure",
			issues:     []deletion.IntegrityIssue{issue("iss_1", "orphaned_reference", deletion.SeverityHigh, true)},
			wantStatus: deletion.ValidationErrors,
			wantFailed: 1,
		},
		{
			name:       "medium is a warning",
			issues:     []deletion.IntegrityIssue{issue("iss_1", "invalid_schedule_slot", deletion.SeverityMedium, false)},
			wantStatus: deletion.ValidationWarnings,
			wantWarns:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := buildValidationResult(8, tt.issues)
			assert.Equal(t, tt.wantStatus, result.OverallStatus)
			assert.Equal(t, tt.wantFailed, result.Failed)
			assert.Equal(t, tt.wantWarns, result.Warnings)
			assert.Equal(t, 8-len(tt.issues), result.Passed)
			assert.Len(t, result.Recommendations, len(tt.issues))
		})
	}
}

func TestBuildValidationResultRecommendations(t *testing.T) {
	result := buildValidationResult(8, []deletion.IntegrityIssue{
		issue("iss_1", "orphaned_reference", deletion.SeverityHigh, true),
		issue("iss_2", "stale_snapshot", deletion.SeverityLow, false),
	})

	require.Len(t, result.Recommendations, 2)
	assert.Contains(t, result.Recommendations[0], "run a repair")
	assert.Contains(t, result.Recommendations[1], "manually")
}

func TestSelectIssues(t *testing.T) {
	issues := []deletion.IntegrityIssue{
		issue("iss_1", "orphaned_reference", deletion.SeverityHigh, true),
		issue("iss_2", "duplicate_membership", deletion.SeverityMedium, true),
		issue("iss_3", "orphaned_reference", deletion.SeverityLow, true),
	}

	assert.Equal(t, issues, selectIssues(issues, nil))

	byID := selectIssues(issues, []string{"iss_2"})
	require.Len(t, byID, 1)
	assert.Equal(t, "iss_2", byID[0].ID)

	// Selecting by type picks every issue of that type.
	byType := selectIssues(issues, []string{"orphaned_reference"})
	require.Len(t, byType, 2)

	assert.Empty(t, selectIssues(issues, []string{"iss_404"}))
}
