package services

import (
	"context"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	domainservices "github.com/JonathanYesh279/tenuto-go/internal/domain/services"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/batch"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/caching/manager"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/performance"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/persistence/school"
	"github.com/JonathanYesh279/tenuto-go/pkg/config"
)

// OrphanService previews and cleans up orphaned references. Previews are
// strictly read-only; cleanups are best-effort batch runs.
type OrphanService struct {
	scanner  *school.OrphanScanner
	checker  *school.IntegrityChecker
	resolver *domainservices.DependencyResolver
	cache    *manager.Manager
	perf     *performance.Tracker
	logger   *logging.ChanneledLogger
}

// NewOrphanService wires the orphan cleanup coordinator.
func NewOrphanService(
	scanner *school.OrphanScanner,
	checker *school.IntegrityChecker,
	resolver *domainservices.DependencyResolver,
	cache *manager.Manager,
	perf *performance.Tracker,
	logger *logging.ChanneledLogger,
) *OrphanService {
	return &OrphanService{
		scanner:  scanner,
		checker:  checker,
		resolver: resolver,
		cache:    cache,
		perf:     perf,
		logger:   logger,
	}
}

// Preview scans for orphaned references and grades the cleanup risk without
// touching any data.
func (s *OrphanService) Preview(ctx context.Context, opts deletion.CleanupOptions) (*deletion.CleanupPreview, error) {
	marker := s.perf.StartOperation("orphan:scan", "")
	scans, orphans, err := s.scanner.Scan(ctx, opts.Collections)
	marker.SetError(err)
	s.perf.CompleteOperation(marker)
	if err != nil {
		return nil, deletion.Classify(err, "orphan preview")
	}

	return &deletion.CleanupPreview{
		Collections:    scans,
		Orphans:        orphans,
		RiskAssessment: assessRisk(len(orphans)),
		ScannedAt:      time.Now().UTC(),
	}, nil
}

// Cleanup removes orphaned references in batches. Per-orphan failures are
// recorded and the run continues; afterwards the resolver cache is dropped and
// the affected collections re-checked.
func (s *OrphanService) Cleanup(ctx context.Context, opts deletion.CleanupOptions) (*deletion.CleanupResult, error) {
	result := &deletion.CleanupResult{
		OperationID: deletion.NewCleanupID(),
		StartedAt:   time.Now().UTC(),
	}
	logger := s.logger.WithOperation("cleanup", result.OperationID)

	scans, orphans, err := s.scanner.Scan(ctx, opts.Collections)
	if err != nil {
		return nil, deletion.Classify(err, "orphan cleanup")
	}
	if len(orphans) == 0 {
		result.Collections = scans
		result.EndedAt = time.Now().UTC()
		logger.Info("Orphan cleanup found nothing to remove")
		return result, nil
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = assessRisk(len(orphans)).RecommendedBatchSize
	}

	tallies := make(map[string]*deletion.CollectionScan, len(scans))
	for i := range scans {
		tallies[scans[i].Collection] = &scans[i]
	}

	marker := s.perf.StartOperation("orphan:cleanup", result.OperationID)
	outcome := batch.Process(ctx, orphans, func(ctx context.Context, orphan deletion.OrphanedReference) error {
		return s.scanner.Remove(ctx, orphan)
	}, batch.Options{
		ChunkSize:   batchSize,
		Concurrency: 1,
	})
	s.perf.CompleteOperation(marker)

	for i, orphan := range orphans[:outcome.Processed] {
		tally, ok := tallies[orphan.Collection]
		if !ok {
			continue
		}
		if failedAt(outcome.Errors, i) {
			tally.Skipped++
		} else {
			tally.Cleaned++
		}
	}
	for _, itemErr := range outcome.Errors {
		result.Errors = append(result.Errors, itemErr.Error)
		if itemErr.Index < len(orphans) {
			if tally, ok := tallies[orphans[itemErr.Index].Collection]; ok {
				tally.Errors = append(tally.Errors, itemErr.Error)
			}
		}
	}

	result.Collections = scans
	result.Cleaned = outcome.Succeeded
	result.Skipped = outcome.Failed + (len(orphans) - outcome.Processed)
	result.EndedAt = time.Now().UTC()

	// Cached traversals may now be stale.
	s.resolver.InvalidateCache()

	if outcome.Succeeded > 0 {
		s.recheck(ctx)
	}

	logger.Info("Orphan cleanup completed",
		"cleaned", result.Cleaned, "skipped", result.Skipped,
		"cancelled", outcome.Cancelled)
	return result, nil
}

// recheck refreshes the cached validation picture after a mutation. Failures
// only get logged; the cleanup result stands on its own.
func (s *OrphanService) recheck(ctx context.Context) {
	issues, err := s.checker.RunChecks(ctx)
	if err != nil {
		s.logger.Cleanup().Warn("Post-cleanup integrity recheck failed", "error", err.Error())
		return
	}
	result := buildValidationResult(s.checker.CheckCount(), issues)
	s.cache.Integrity.SetValidation(result)
}

// assessRisk grades a cleanup by total orphan count and recommends a batch
// size of a tenth of the total, clamped to 10..100.
func assessRisk(total int) deletion.RiskAssessment {
	level := deletion.RiskLow
	switch {
	case total >= config.OrphanHighThreshold:
		level = deletion.RiskHigh
	case total >= config.OrphanMediumThreshold:
		level = deletion.RiskMedium
	}

	recommended := total / 10
	if recommended < 10 {
		recommended = 10
	}
	if recommended > 100 {
		recommended = 100
	}

	return deletion.RiskAssessment{
		Level:                level,
		TotalOrphaned:        total,
		RecommendedBatchSize: recommended,
	}
}

func failedAt(errs []batch.ItemError, index int) bool {
	for _, itemErr := range errs {
		if itemErr.Index == index {
			return true
		}
	}
	return false
}
