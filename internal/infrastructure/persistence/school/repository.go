// Package school provides the persistence layer for the conservatory domain:
// dependent counting for traversal, cascade mutations, orphan scanning and
// integrity checking.
package school

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/catalog"
	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/persistence/database"
)

type Repository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

func NewRepository(db *database.DB, logger *logging.ChanneledLogger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// edge describes how rows of a child kind are selected for a given parent
// kind: the referencing column, an optional session_type discriminator for
// polymorphic attendance rows, and an optional intermediate kind when the
// parent is reached through another table.
type edge struct {
	column      string
	sessionType string
	via         catalog.Kind
}

var edges = map[catalog.Kind]map[catalog.Kind]edge{
	catalog.KindRehearsals: {
		catalog.KindOrchestras: {column: "orchestra_id"},
		catalog.KindTeachers:   {column: "teacher_id"},
	},
	catalog.KindLessons: {
		catalog.KindStudents: {column: "student_id"},
		catalog.KindTeachers: {column: "teacher_id"},
	},
	catalog.KindPerformances: {
		catalog.KindOrchestras: {column: "orchestra_id"},
	},
	catalog.KindMembers: {
		catalog.KindOrchestras: {column: "orchestra_id"},
		catalog.KindStudents:   {column: "student_id"},
	},
	catalog.KindGrades: {
		catalog.KindStudents: {column: "student_id"},
	},
	catalog.KindAttendanceRecords: {
		catalog.KindRehearsals: {column: "session_id", sessionType: "rehearsal"},
		catalog.KindLessons:    {column: "session_id", sessionType: "lesson"},
		catalog.KindStudents:   {column: "student_id"},
		catalog.KindOrchestras: {column: "session_id", sessionType: "rehearsal", via: catalog.KindRehearsals},
	},
	catalog.KindRepertoire: {
		catalog.KindPerformances: {column: "performance_id"},
		catalog.KindOrchestras:   {column: "performance_id", via: catalog.KindPerformances},
	},
	catalog.KindScheduleSlots: {
		catalog.KindTeachers: {column: "teacher_id"},
	},
}

// parseParentRef decodes a traversal parent reference. A plain id denotes a
// real entity; a placeholder id encodes its ancestor chain as
// kind@...@kind@rootID.
func parseParentRef(parent deletion.EntityRef) ([]catalog.Kind, string, error) {
	if !strings.Contains(parent.ID, "@") {
		return []catalog.Kind{parent.Kind}, parent.ID, nil
	}

	segments := strings.Split(parent.ID, "@")
	if len(segments) < 3 {
		return nil, "", deletion.NewError(deletion.CodeValidationError, fmt.Sprintf("malformed dependent reference %q", parent.ID))
	}

	rootID := segments[len(segments)-1]
	kinds := make([]catalog.Kind, 0, len(segments)-1)
	for _, segment := range segments[:len(segments)-1] {
		kind := catalog.Kind(segment)
		if !catalog.IsKnown(kind) {
			return nil, "", deletion.NewError(deletion.CodeValidationError, fmt.Sprintf("unknown kind %q in dependent reference %q", segment, parent.ID))
		}
		kinds = append(kinds, kind)
	}
	if kinds[0] != parent.Kind {
		return nil, "", deletion.NewError(deletion.CodeValidationError, fmt.Sprintf("dependent reference %q does not match kind %q", parent.ID, parent.Kind))
	}
	return kinds, rootID, nil
}

// predicate builds the WHERE clause selecting rows of child that descend from
// the root entity through the given ancestor kind chain. The clause carries
// exactly one placeholder for the root id.
func predicate(child catalog.Kind, chain []catalog.Kind) (string, error) {
	e, ok := edges[child][chain[0]]
	if !ok {
		return "", deletion.NewError(deletion.CodeValidationError, fmt.Sprintf("no relationship from %s to %s", chain[0], child))
	}

	var clause string
	switch {
	case len(chain) > 1:
		inner, err := predicate(chain[0], chain[1:])
		if err != nil {
			return "", err
		}
		clause = fmt.Sprintf("%s IN (SELECT id FROM %s WHERE %s)", e.column, catalog.TableFor(chain[0]), inner)
	case e.via != "":
		inner, err := predicate(e.via, chain)
		if err != nil {
			return "", err
		}
		clause = fmt.Sprintf("%s IN (SELECT id FROM %s WHERE %s)", e.column, catalog.TableFor(e.via), inner)
	default:
		clause = fmt.Sprintf("%s = ?", e.column)
	}

	if e.sessionType != "" {
		clause = fmt.Sprintf("%s AND session_type = '%s'", clause, e.sessionType)
	}
	return clause, nil
}

// CountDependents returns how many rows of the child kind descend from the
// given parent. The parent may be a placeholder produced by a previous
// traversal level.
func (r *Repository) CountDependents(ctx context.Context, child catalog.Kind, parent deletion.EntityRef) (int, error) {
	chain, rootID, err := parseParentRef(parent)
	if err != nil {
		return 0, err
	}
	clause, err := predicate(child, chain)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", catalog.TableFor(child), clause)

	start := time.Now()
	var count int
	if err := r.db.QueryRowContext(ctx, query, rootID).Scan(&count); err != nil {
		r.logger.Database().Error("Dependent count query failed", "error", err.Error(), "query", query)
		return 0, err
	}
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))

	return count, nil
}

// DeleteDependents removes every row of the child kind descending from the
// parent and returns how many were deleted.
func (r *Repository) DeleteDependents(ctx context.Context, child catalog.Kind, parent deletion.EntityRef) (int64, error) {
	chain, rootID, err := parseParentRef(parent)
	if err != nil {
		return 0, err
	}
	clause, err := predicate(child, chain)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s", catalog.TableFor(child), clause)
	return r.execCascade(ctx, "BULK_DELETE", query, rootID)
}

// NullifyDependents detaches rows of the child kind from the parent by
// clearing the referencing column.
func (r *Repository) NullifyDependents(ctx context.Context, child catalog.Kind, parent deletion.EntityRef) (int64, error) {
	chain, rootID, err := parseParentRef(parent)
	if err != nil {
		return 0, err
	}
	e, ok := edges[child][chain[0]]
	if !ok {
		return 0, deletion.NewError(deletion.CodeValidationError, fmt.Sprintf("no relationship from %s to %s", chain[0], child))
	}
	clause, err := predicate(child, chain)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s", catalog.TableFor(child), e.column, clause)
	return r.execCascade(ctx, "BULK_NULLIFY", query, rootID)
}

// SetDefaultDependents rewrites the referencing column of descending rows to
// the given replacement value.
func (r *Repository) SetDefaultDependents(ctx context.Context, child catalog.Kind, parent deletion.EntityRef, value string) (int64, error) {
	chain, rootID, err := parseParentRef(parent)
	if err != nil {
		return 0, err
	}
	e, ok := edges[child][chain[0]]
	if !ok {
		return 0, deletion.NewError(deletion.CodeValidationError, fmt.Sprintf("no relationship from %s to %s", chain[0], child))
	}
	clause, err := predicate(child, chain)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s", catalog.TableFor(child), e.column, clause)

	start := time.Now()
	result, err := r.db.ExecContext(ctx, query, value, rootID)
	if err != nil {
		r.logger.Database().Error("Cascade set-default failed", "error", err.Error(), "query", query)
		return 0, err
	}
	database.CheckAndLogSlowQuery(r.logger, "BULK_SET_DEFAULT "+query, time.Since(start))

	return result.RowsAffected()
}

// DeleteEntity removes the root entity row itself.
func (r *Repository) DeleteEntity(ctx context.Context, kind catalog.Kind, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", catalog.TableFor(kind))

	start := time.Now()
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		r.logger.Database().Error("Entity delete failed", "error", err.Error(), "kind", string(kind), "id", id)
		return err
	}
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return nil
}

// EntityExists reports whether the entity row is present.
func (r *Repository) EntityExists(ctx context.Context, kind catalog.Kind, id string) (bool, error) {
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = ?)", catalog.TableFor(kind))

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// nameColumns maps kinds to a human-readable display column.
var nameColumns = map[catalog.Kind]string{
	catalog.KindStudents:   "name",
	catalog.KindTeachers:   "name",
	catalog.KindOrchestras: "name",
}

// EntityName returns a display name for the entity, falling back to its id
// for kinds without one.
func (r *Repository) EntityName(ctx context.Context, kind catalog.Kind, id string) (string, error) {
	column, ok := nameColumns[kind]
	if !ok {
		return id, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", column, catalog.TableFor(kind))
	var name string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&name)
	if err == sql.ErrNoRows {
		return id, nil
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

func (r *Repository) execCascade(ctx context.Context, label, query, rootID string) (int64, error) {
	start := time.Now()
	result, err := r.db.ExecContext(ctx, query, rootID)
	if err != nil {
		r.logger.Database().Error("Cascade mutation failed", "error", err.Error(), "query", query)
		return 0, err
	}
	database.CheckAndLogSlowQuery(r.logger, label+" "+query, time.Since(start))

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	r.logger.Database().Debug("Cascade mutation completed", "query", query, "affected", affected, "duration", time.Since(start))
	return affected, nil
}
