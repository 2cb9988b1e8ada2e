// Package services provides the application layer orchestrating domain
// services, persistence and cached state.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/catalog"
	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	domainservices "github.com/JonathanYesh279/tenuto-go/internal/domain/services"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/batch"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/caching/manager"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/messaging"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/performance"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/persistence/school"
	"github.com/JonathanYesh279/tenuto-go/pkg/config"
)

// cascadeStep is one unit of work in a deletion run: apply the cascade action
// of a resolved dependent node.
type cascadeStep struct {
	node *deletion.DependentEntity
	root deletion.EntityRef
}

// DeletionService coordinates previews and cascade deletion runs. Previews for
// the same entity coalesce; executions are exclusive per entity.
type DeletionService struct {
	repo        *school.Repository
	resolver    *domainservices.DependencyResolver
	analyzer    *domainservices.ImpactAnalyzer
	cache       *manager.Manager
	broadcaster messaging.Broadcaster
	perf        *performance.Tracker
	logger      *logging.ChanneledLogger

	mu       sync.Mutex
	inflight map[string]chan struct{} // coalesced previews by cache key
	cancels  map[string]context.CancelFunc
}

// NewDeletionService wires the deletion coordinator.
func NewDeletionService(
	repo *school.Repository,
	resolver *domainservices.DependencyResolver,
	analyzer *domainservices.ImpactAnalyzer,
	cache *manager.Manager,
	broadcaster messaging.Broadcaster,
	perf *performance.Tracker,
	logger *logging.ChanneledLogger,
) *DeletionService {
	return &DeletionService{
		repo:        repo,
		resolver:    resolver,
		analyzer:    analyzer,
		cache:       cache,
		broadcaster: broadcaster,
		perf:        perf,
		logger:      logger,
		inflight:    make(map[string]chan struct{}),
		cancels:     make(map[string]context.CancelFunc),
	}
}

// PreviewOptions controls a deletion preview.
type PreviewOptions struct {
	MaxDepth        int
	IncludeIndirect bool
}

// Preview computes the deletion impact for an entity without mutating
// anything. Concurrent previews of the same entity wait for the first one and
// then hit the resolver cache.
func (s *DeletionService) Preview(ctx context.Context, ref deletion.EntityRef, opts PreviewOptions) (*deletion.DeletionImpact, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = config.ResolverMaxDepth
	}

	exists, err := s.repo.EntityExists(ctx, ref.Kind, ref.ID)
	if err != nil {
		return nil, deletion.Classify(err, "preview")
	}
	if !exists {
		return nil, deletion.NewError(deletion.CodeInvalidReferenceID,
			fmt.Sprintf("%s %s does not exist", ref.Kind, ref.ID))
	}

	release, err := s.coalesce(ctx, fmt.Sprintf("%s/%s/%d/%t", ref.Kind, ref.ID, opts.MaxDepth, opts.IncludeIndirect))
	if err != nil {
		return nil, err
	}
	defer release()

	marker := s.perf.StartOperation("deletion:resolve", "")
	result, err := s.resolver.Resolve(ctx, ref, domainservices.ResolveOptions{
		MaxDepth:        opts.MaxDepth,
		IncludeIndirect: opts.IncludeIndirect,
		BatchSize:       config.ResolverBatchSize,
	}, nil)
	marker.SetError(err)
	s.perf.CompleteOperation(marker)
	if err != nil {
		return nil, deletion.Classify(err, "preview")
	}

	impact := s.analyzer.Analyze(ref, result)
	s.logger.Deletion().Debug("Deletion preview computed",
		"kind", string(ref.Kind), "id", ref.ID,
		"affected", impact.TotalAffectedCount, "canDelete", impact.CanDelete)
	return impact, nil
}

// coalesce serializes identical concurrent previews. The first caller gets the
// slot immediately; followers wait until it releases, then proceed (and hit
// the resolver cache).
func (s *DeletionService) coalesce(ctx context.Context, key string) (func(), error) {
	for {
		s.mu.Lock()
		waiter, busy := s.inflight[key]
		if !busy {
			done := make(chan struct{})
			s.inflight[key] = done
			s.mu.Unlock()
			return func() {
				s.mu.Lock()
				delete(s.inflight, key)
				s.mu.Unlock()
				close(done)
			}, nil
		}
		s.mu.Unlock()

		select {
		case <-waiter:
		case <-ctx.Done():
			return nil, deletion.Classify(ctx.Err(), "preview")
		}
	}
}

// Execute starts a cascade deletion run. It validates the entity and its
// impact synchronously, registers the operation, then processes the cascade in
// a background worker. The returned operation is in pending state.
func (s *DeletionService) Execute(ctx context.Context, ref deletion.EntityRef, opts deletion.ExecuteOptions) (*deletion.DeletionOperation, error) {
	exists, err := s.repo.EntityExists(ctx, ref.Kind, ref.ID)
	if err != nil {
		return nil, deletion.Classify(err, "execute")
	}
	if !exists {
		return nil, deletion.NewError(deletion.CodeInvalidReferenceID,
			fmt.Sprintf("%s %s does not exist", ref.Kind, ref.ID))
	}

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = config.ResolverMaxDepth
	}
	result, err := s.resolver.Resolve(ctx, ref, domainservices.ResolveOptions{
		MaxDepth:        maxDepth,
		IncludeIndirect: true,
		BatchSize:       config.ResolverBatchSize,
	}, nil)
	if err != nil {
		return nil, deletion.Classify(err, "execute")
	}

	impact := s.analyzer.Analyze(ref, result)
	if !impact.CanDelete {
		return nil, deletion.NewError(deletion.CodeDependenciesExist,
			fmt.Sprintf("%s %s has blocking dependents", ref.Kind, ref.ID))
	}

	now := time.Now().UTC()
	op := &deletion.DeletionOperation{
		ID:         deletion.NewOperationID(),
		EntityKind: ref.Kind,
		EntityID:   ref.ID,
		Status:     deletion.StatusPending,
		StartedAt:  now,
		UpdatedAt:  now,
		UserID:     opts.UserID,
	}
	if err := s.cache.Operations.Begin(op); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[op.ID] = cancel
	s.mu.Unlock()

	s.logger.WithOperation("deletion", op.ID).Info("Deletion operation started",
		"kind", string(ref.Kind), "id", ref.ID, "dependents", len(result.Flat))
	s.broadcaster.BroadcastOperation(*op)

	go s.run(runCtx, op.ID, ref, result, opts)

	registered := *op
	return &registered, nil
}

// Cancel requests cancellation of a running operation. Takes effect at the
// worker's next cooperative checkpoint.
func (s *DeletionService) Cancel(operationID string) error {
	op, ok := s.cache.Operations.Get(operationID)
	if !ok {
		return deletion.NewError(deletion.CodeInvalidReferenceID,
			fmt.Sprintf("unknown operation %s", operationID))
	}
	if op.Status.IsTerminal() {
		return deletion.NewError(deletion.CodeValidationError,
			fmt.Sprintf("operation %s already %s", operationID, op.Status))
	}

	s.mu.Lock()
	cancel, ok := s.cancels[operationID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	s.logger.WithOperation("deletion", operationID).Info("Cancellation requested")
	return nil
}

// Operation returns the tracked state of one operation.
func (s *DeletionService) Operation(operationID string) (deletion.DeletionOperation, bool) {
	return s.cache.Operations.Get(operationID)
}

// Operations lists every tracked operation.
func (s *DeletionService) Operations() []deletion.DeletionOperation {
	return s.cache.Operations.List()
}

// Progress returns the latest progress report for one operation.
func (s *DeletionService) Progress(operationID string) (deletion.DeletionProgress, bool) {
	return s.cache.Operations.Progress(operationID)
}

// run executes the cascade in phases. Indirect dependents are nullified before
// direct subtrees are deleted deepest-first, then the root row itself goes and
// the removal is verified.
func (s *DeletionService) run(ctx context.Context, operationID string, ref deletion.EntityRef, result *domainservices.ResolveResult, opts deletion.ExecuteOptions) {
	logger := s.logger.WithOperation("deletion", operationID)
	marker := s.perf.StartOperation("deletion:batch", operationID)
	defer func() {
		s.perf.CompleteOperation(marker)
		s.mu.Lock()
		delete(s.cancels, operationID)
		s.mu.Unlock()
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Deletion worker panic", "panic", fmt.Sprintf("%v", r))
			s.fail(operationID, deletion.NewError(deletion.CodeServerError, fmt.Sprintf("worker panic: %v", r)))
		}
	}()

	s.transition(operationID, deletion.StatusInProgress, nil)
	s.report(deletion.DeletionProgress{
		OperationID: operationID,
		Phase:       deletion.PhasePreparing,
		Total:       len(result.Flat) + 1,
	})

	steps := orderSteps(ref, result.Flat)

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = config.ExecuteChunkSize
	}

	total := len(steps) + 1
	outcome := batch.Process(ctx, steps, func(ctx context.Context, step cascadeStep) error {
		return s.applyStep(ctx, step)
	}, batch.Options{
		ChunkSize: batchSize,
		// Cascade statements against one sqlite file do not benefit from
		// statement-level parallelism.
		Concurrency: 1,
		OnProgress: func(percentage, processed, _ int) {
			// Processing tops out at 99; the final percent belongs to the
			// verification phase.
			s.report(deletion.DeletionProgress{
				OperationID: operationID,
				Phase:       deletion.PhaseProcessing,
				Percentage:  processed * 99 / total,
				Processed:   processed,
				Total:       total,
			})
		},
	})

	if outcome.Cancelled {
		logger.Info("Deletion cancelled", "processed", outcome.Processed)
		s.resolver.InvalidateCache()
		s.transition(operationID, deletion.StatusCancelled, nil)
		return
	}
	if outcome.Failed > 0 {
		errs := make([]string, 0, len(outcome.Errors))
		for _, itemErr := range outcome.Errors {
			errs = append(errs, itemErr.Error)
		}
		logger.Error("Cascade steps failed", "failed", outcome.Failed)
		s.resolver.InvalidateCache()
		s.report(deletion.DeletionProgress{
			OperationID: operationID,
			Phase:       deletion.PhaseFailed,
			Processed:   outcome.Processed,
			Total:       total,
			Errors:      errs,
		})
		s.fail(operationID, deletion.NewError(deletion.CodePartialSuccess,
			fmt.Sprintf("%d of %d cascade steps failed", outcome.Failed, len(steps))))
		return
	}

	if err := s.repo.DeleteEntity(ctx, ref.Kind, ref.ID); err != nil {
		s.resolver.InvalidateCache()
		s.fail(operationID, deletion.Classify(err, "delete root"))
		return
	}
	s.resolver.InvalidateCache()

	s.report(deletion.DeletionProgress{
		OperationID: operationID,
		Phase:       deletion.PhaseVerifying,
		Percentage:  99,
		Processed:   total,
		Total:       total,
	})

	verify := s.perf.StartOperation("deletion:verify", operationID)
	exists, err := s.repo.EntityExists(ctx, ref.Kind, ref.ID)
	verify.SetError(err)
	s.perf.CompleteOperation(verify)
	if err != nil {
		s.fail(operationID, deletion.Classify(err, "verify"))
		return
	}
	if exists {
		s.fail(operationID, deletion.NewError(deletion.CodeIntegrityViolation,
			fmt.Sprintf("%s %s still present after deletion", ref.Kind, ref.ID)))
		return
	}

	s.report(deletion.DeletionProgress{
		OperationID: operationID,
		Phase:       deletion.PhaseCompleted,
		Percentage:  100,
		Processed:   total,
		Total:       total,
	})
	s.transition(operationID, deletion.StatusCompleted, nil)
	logger.Info("Deletion completed", "kind", string(ref.Kind), "id", ref.ID, "steps", len(steps))
}

// applyStep executes one dependent node's cascade action.
func (s *DeletionService) applyStep(ctx context.Context, step cascadeStep) error {
	parent := parentRefFor(step.node, step.root)

	switch step.node.CascadeAction {
	case catalog.ActionDelete:
		_, err := s.repo.DeleteDependents(ctx, step.node.Kind, parent)
		return err
	case catalog.ActionNullify:
		_, err := s.repo.NullifyDependents(ctx, step.node.Kind, parent)
		return err
	case catalog.ActionSetDefault:
		_, err := s.repo.SetDefaultDependents(ctx, step.node.Kind, parent, "")
		return err
	case catalog.ActionRestrict:
		if step.node.AffectedCount > 0 {
			return deletion.NewError(deletion.CodeDependenciesExist,
				fmt.Sprintf("%s records block deletion", step.node.Kind))
		}
		return nil
	default:
		return deletion.NewError(deletion.CodeValidationError,
			fmt.Sprintf("unknown cascade action %q", step.node.CascadeAction))
	}
}

// orderSteps sequences cascade work deepest-first so child rows are handled
// before the parents they reference.
func orderSteps(root deletion.EntityRef, flat []*deletion.DependentEntity) []cascadeStep {
	steps := make([]cascadeStep, 0, len(flat))
	maxDepth := 0
	for _, node := range flat {
		if node.Metadata.Depth > maxDepth {
			maxDepth = node.Metadata.Depth
		}
	}
	for depth := maxDepth; depth >= 1; depth-- {
		for _, node := range flat {
			if node.Metadata.Depth == depth {
				steps = append(steps, cascadeStep{node: node, root: root})
			}
		}
	}
	return steps
}

// parentRefFor rebuilds the traversal parent reference a node was discovered
// under: the root for first-level nodes, the placeholder chain above the node
// for deeper ones. A placeholder id is kind@...@kind@rootID, so stripping the
// node's own kind yields its parent's reference.
func parentRefFor(node *deletion.DependentEntity, root deletion.EntityRef) deletion.EntityRef {
	if node.Metadata.Depth <= 1 {
		return root
	}
	rest := strings.SplitN(node.ID, "@", 2)[1]
	parentKind := catalog.Kind(strings.SplitN(rest, "@", 2)[0])
	return deletion.EntityRef{Kind: parentKind, ID: rest}
}

func (s *DeletionService) transition(operationID string, status deletion.OperationStatus, procErr *deletion.ProcessedError) {
	s.cache.Operations.SetStatus(operationID, status, procErr)
	if op, ok := s.cache.Operations.Get(operationID); ok {
		s.broadcaster.BroadcastOperation(op)
	}
}

func (s *DeletionService) fail(operationID string, procErr *deletion.ProcessedError) {
	s.cache.Integrity.LogError(*procErr)
	s.transition(operationID, deletion.StatusFailed, procErr)
}

func (s *DeletionService) report(progress deletion.DeletionProgress) {
	s.cache.Operations.SetProgress(progress)
	s.broadcaster.BroadcastProgress(progress)
}
