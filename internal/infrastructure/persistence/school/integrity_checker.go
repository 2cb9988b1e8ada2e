package school

import (
	"context"
	"fmt"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/persistence/database"
)

// Issue type identifiers produced by the check battery.
const (
	IssueOrphanedReference   = "orphaned_reference"
	IssueDuplicateMembership = "duplicate_membership"
	IssueInvalidGradeScore   = "invalid_grade_score"
	IssueInvalidScheduleSlot = "invalid_schedule_slot"
)

// IntegrityChecker runs the consistency check battery against the database.
// Validation is strictly read-only; repairs are explicit separate calls.
type IntegrityChecker struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

func NewIntegrityChecker(db *database.DB, logger *logging.ChanneledLogger) *IntegrityChecker {
	return &IntegrityChecker{
		db:     db,
		logger: logger,
	}
}

// CheckCount is how many distinct checks RunChecks performs.
func (c *IntegrityChecker) CheckCount() int {
	return len(relations) + 3
}

// RunChecks executes the full battery and returns one issue per violated
// check. A clean database yields an empty slice.
func (c *IntegrityChecker) RunChecks(ctx context.Context) ([]deletion.IntegrityIssue, error) {
	start := time.Now()
	c.logger.Integrity().Debug("Starting integrity check battery")

	var issues []deletion.IntegrityIssue

	for _, rel := range relations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		count, err := c.countDanglingRefs(ctx, rel)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			continue
		}

		issues = append(issues, deletion.IntegrityIssue{
			ID:               deletion.NewIssueID(),
			Type:             IssueOrphanedReference,
			Severity:         orphanSeverity(rel),
			Collection:       rel.collection,
			Description:      fmt.Sprintf("%d %s rows reference missing %s records via %s", count, rel.collection, rel.parentTable, rel.field),
			AffectedRecords:  count,
			Fixable:          true,
			EstimatedFixTime: estimateFixTime(count),
		})
	}

	if issue, err := c.checkDuplicateMembers(ctx); err != nil {
		return nil, err
	} else if issue != nil {
		issues = append(issues, *issue)
	}

	if issue, err := c.checkGradeScores(ctx); err != nil {
		return nil, err
	} else if issue != nil {
		issues = append(issues, *issue)
	}

	if issue, err := c.checkScheduleSlots(ctx); err != nil {
		return nil, err
	} else if issue != nil {
		issues = append(issues, *issue)
	}

	c.logger.Integrity().Info("Integrity check battery completed", "issues", len(issues), "duration", time.Since(start))
	return issues, nil
}

// orphanSeverity grades a dangling-reference finding. Grade records losing a
// required parent is irrecoverable academic data, so it outranks every other
// orphan class; nullable references are repairable by clearing and stay
// medium.
func orphanSeverity(rel relation) deletion.Severity {
	switch {
	case rel.collection == "grades" && !rel.nullable:
		return deletion.SeverityCritical
	case rel.nullable:
		return deletion.SeverityMedium
	default:
		return deletion.SeverityHigh
	}
}

func (c *IntegrityChecker) countDanglingRefs(ctx context.Context, rel relation) (int, error) {
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM %s c LEFT JOIN %s p ON c.%s = p.id WHERE c.%s IS NOT NULL AND p.id IS NULL",
		rel.collection, rel.parentTable, rel.field, rel.field,
	)
	args := []any{}
	if rel.sessionType != "" {
		query += " AND c.session_type = ?"
		args = append(args, rel.sessionType)
	}

	start := time.Now()
	var count int
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		c.logger.Integrity().Error("Dangling reference check failed", "error", err.Error(), "query", query)
		return 0, err
	}
	database.CheckAndLogSlowQuery(c.logger, query, time.Since(start))
	return count, nil
}

func (c *IntegrityChecker) checkDuplicateMembers(ctx context.Context) (*deletion.IntegrityIssue, error) {
	query := `SELECT COUNT(*) FROM orchestra_members WHERE rowid NOT IN (
		SELECT MIN(rowid) FROM orchestra_members GROUP BY orchestra_id, student_id)`

	var count int
	if err := c.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	return &deletion.IntegrityIssue{
		ID:               deletion.NewIssueID(),
		Type:             IssueDuplicateMembership,
		Severity:         deletion.SeverityMedium,
		Collection:       "orchestra_members",
		Description:      fmt.Sprintf("%d duplicate orchestra membership rows", count),
		AffectedRecords:  count,
		Fixable:          true,
		EstimatedFixTime: estimateFixTime(count),
	}, nil
}

func (c *IntegrityChecker) checkGradeScores(ctx context.Context) (*deletion.IntegrityIssue, error) {
	query := "SELECT COUNT(*) FROM grades WHERE score < 0 OR score > 100"

	var count int
	if err := c.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	// Grade values need human review, never an automated rewrite.
	return &deletion.IntegrityIssue{
		ID:              deletion.NewIssueID(),
		Type:            IssueInvalidGradeScore,
		Severity:        deletion.SeverityHigh,
		Collection:      "grades",
		Description:     fmt.Sprintf("%d grade rows with score outside 0-100", count),
		AffectedRecords: count,
		Fixable:         false,
	}, nil
}

func (c *IntegrityChecker) checkScheduleSlots(ctx context.Context) (*deletion.IntegrityIssue, error) {
	query := "SELECT COUNT(*) FROM schedule_slots WHERE end_minute <= start_minute"

	var count int
	if err := c.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	return &deletion.IntegrityIssue{
		ID:               deletion.NewIssueID(),
		Type:             IssueInvalidScheduleSlot,
		Severity:         deletion.SeverityLow,
		Collection:       "schedule_slots",
		Description:      fmt.Sprintf("%d schedule slots with non-positive duration", count),
		AffectedRecords:  count,
		Fixable:          true,
		EstimatedFixTime: estimateFixTime(count),
	}, nil
}

// RepairOrphanedReferences fixes every dangling reference in one collection:
// nullable references are cleared, the rest deleted. Returns rows touched.
func (c *IntegrityChecker) RepairOrphanedReferences(ctx context.Context, collection string) (int64, error) {
	var total int64
	for _, rel := range relations {
		if rel.collection != collection {
			continue
		}

		sub := fmt.Sprintf("SELECT id FROM %s", rel.parentTable)
		where := fmt.Sprintf("%s IS NOT NULL AND %s NOT IN (%s)", rel.field, rel.field, sub)
		if rel.sessionType != "" {
			where += fmt.Sprintf(" AND session_type = '%s'", rel.sessionType)
		}

		var query string
		if rel.nullable {
			query = fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s", rel.collection, rel.field, where)
		} else {
			query = fmt.Sprintf("DELETE FROM %s WHERE %s", rel.collection, where)
		}

		affected, err := c.execRepair(ctx, query)
		if err != nil {
			return total, err
		}
		total += affected
	}
	return total, nil
}

// RepairDuplicateMembers deletes duplicate membership rows, keeping the
// earliest row of each (orchestra, student) pair.
func (c *IntegrityChecker) RepairDuplicateMembers(ctx context.Context) (int64, error) {
	query := `DELETE FROM orchestra_members WHERE rowid NOT IN (
		SELECT MIN(rowid) FROM orchestra_members GROUP BY orchestra_id, student_id)`
	return c.execRepair(ctx, query)
}

// RepairInvalidScheduleSlots deletes slots whose end does not follow start.
func (c *IntegrityChecker) RepairInvalidScheduleSlots(ctx context.Context) (int64, error) {
	return c.execRepair(ctx, "DELETE FROM schedule_slots WHERE end_minute <= start_minute")
}

func (c *IntegrityChecker) execRepair(ctx context.Context, query string) (int64, error) {
	start := time.Now()
	result, err := c.db.ExecContext(ctx, query)
	if err != nil {
		c.logger.Integrity().Error("Repair statement failed", "error", err.Error(), "query", query)
		return 0, err
	}
	database.CheckAndLogSlowQuery(c.logger, query, time.Since(start))

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	c.logger.Integrity().Info("Repair statement completed", "query", query, "affected", affected)
	return affected, nil
}

// estimateFixTime is a rough per-row projection used in issue reports.
func estimateFixTime(records int) time.Duration {
	return time.Duration(records) * 2 * time.Millisecond
}
