package school

import (
	"context"
	"fmt"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/persistence/database"
)

// OrphanScanner finds stored references whose parent record no longer exists.
type OrphanScanner struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

func NewOrphanScanner(db *database.DB, logger *logging.ChanneledLogger) *OrphanScanner {
	return &OrphanScanner{
		db:     db,
		logger: logger,
	}
}

// Scan walks the relation table and returns every dangling reference, with a
// per-collection tally. Read-only.
func (s *OrphanScanner) Scan(ctx context.Context, collections []string) ([]deletion.CollectionScan, []deletion.OrphanedReference, error) {
	start := time.Now()
	s.logger.Cleanup().Debug("Starting orphan scan", "collections", collections)

	tallies := make(map[string]*deletion.CollectionScan)
	var orphans []deletion.OrphanedReference

	for _, rel := range relationsFor(collections) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		tally, ok := tallies[rel.collection]
		if !ok {
			scanned, err := s.countRows(ctx, rel.collection)
			if err != nil {
				return nil, nil, err
			}
			tally = &deletion.CollectionScan{Collection: rel.collection, Scanned: scanned}
			tallies[rel.collection] = tally
		}

		found, err := s.scanRelation(ctx, rel)
		if err != nil {
			return nil, nil, err
		}
		tally.Orphaned += len(found)
		orphans = append(orphans, found...)
	}

	scans := make([]deletion.CollectionScan, 0, len(tallies))
	for _, rel := range relationsFor(collections) {
		if tally, ok := tallies[rel.collection]; ok {
			scans = append(scans, *tally)
			delete(tallies, rel.collection)
		}
	}

	s.logger.Cleanup().Info("Orphan scan completed", "orphans", len(orphans), "duration", time.Since(start))
	return scans, orphans, nil
}

// scanRelation finds rows of one relation whose referenced parent is missing.
func (s *OrphanScanner) scanRelation(ctx context.Context, rel relation) ([]deletion.OrphanedReference, error) {
	query := fmt.Sprintf(
		"SELECT c.id, c.%s FROM %s c LEFT JOIN %s p ON c.%s = p.id WHERE c.%s IS NOT NULL AND p.id IS NULL",
		rel.field, rel.collection, rel.parentTable, rel.field, rel.field,
	)
	args := []any{}
	if rel.sessionType != "" {
		query += " AND c.session_type = ?"
		args = append(args, rel.sessionType)
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Cleanup().Error("Orphan relation query failed", "error", err.Error(), "query", query)
		return nil, err
	}
	defer rows.Close()

	var orphans []deletion.OrphanedReference
	for rows.Next() {
		var id, parentID string
		if err := rows.Scan(&id, &parentID); err != nil {
			return nil, err
		}
		orphans = append(orphans, deletion.OrphanedReference{
			Collection:       rel.collection,
			OrphanedID:       id,
			ParentCollection: rel.parentTable,
			ParentID:         parentID,
			Reason:           fmt.Sprintf("%s.%s references missing %s row", rel.collection, rel.field, rel.parentTable),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	database.CheckAndLogSlowQuery(s.logger, query, time.Since(start))

	return orphans, nil
}

// Remove resolves one orphaned reference: nullable references are detached,
// the rest are deleted outright.
func (s *OrphanScanner) Remove(ctx context.Context, orphan deletion.OrphanedReference) error {
	rel, ok := findRelation(orphan.Collection, orphan.ParentCollection)
	if !ok {
		return deletion.NewError(deletion.CodeValidationError,
			fmt.Sprintf("no known relation from %s to %s", orphan.Collection, orphan.ParentCollection))
	}

	var query string
	if rel.nullable {
		query = fmt.Sprintf("UPDATE %s SET %s = NULL WHERE id = ?", rel.collection, rel.field)
	} else {
		query = fmt.Sprintf("DELETE FROM %s WHERE id = ?", rel.collection)
	}

	start := time.Now()
	if _, err := s.db.ExecContext(ctx, query, orphan.OrphanedID); err != nil {
		s.logger.Cleanup().Error("Orphan removal failed", "error", err.Error(), "collection", orphan.Collection, "id", orphan.OrphanedID)
		return err
	}
	database.CheckAndLogSlowQuery(s.logger, query, time.Since(start))
	return nil
}

func (s *OrphanScanner) countRows(ctx context.Context, table string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	return count, err
}
