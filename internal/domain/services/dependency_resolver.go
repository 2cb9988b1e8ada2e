// Package services provides the pure domain services of the cascade deletion
// engine: dependency resolution and impact analysis.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/catalog"
	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
)

// DependencySource supplies dependent counts and display names from the
// persistence boundary.
type DependencySource interface {
	// CountDependents returns how many rows of the child kind reference the
	// given parent. The parent may be a synthetic placeholder produced by a
	// previous traversal level.
	CountDependents(ctx context.Context, child catalog.Kind, parent deletion.EntityRef) (int, error)
}

// ResolveOptions controls a traversal run.
type ResolveOptions struct {
	MaxDepth        int
	IncludeIndirect bool
	BatchSize       int
}

// ResolveResult is the outcome of one traversal. Flat lists every discovered
// node; Roots carries the same nodes nested by their true parent.
type ResolveResult struct {
	Flat       []*deletion.DependentEntity
	Roots      []*deletion.DependentEntity
	Processed  int
	Incomplete bool
}

// Progress receives traversal progress as processed/estimated-total counts.
type Progress func(processed, estimatedTotal int)

const (
	// defaultBatchSize bounds how many frontier nodes expand between
	// cooperative checkpoints.
	defaultBatchSize = 50
	// safetyCap guarantees termination against a malformed or cyclic
	// catalog; traversal past the cap returns a partial, flagged result.
	safetyCap = 10000
)

// DependencyResolver walks the entity catalog breadth-first to compute the
// transitive dependents of a deletion root. Results are cached by
// (kind, id, maxDepth, includeIndirect) in a bounded FIFO cache.
type DependencyResolver struct {
	source    DependencySource
	cacheMu   sync.Mutex
	cache     map[string]*ResolveResult
	cacheKeys []string
	cacheCap  int

	// safetyLimit overrides safetyCap when positive; tests lower it to
	// exercise the cap without a ten-thousand-node fixture.
	safetyLimit int
}

// NewDependencyResolver creates a resolver over the given source with a
// bounded result cache.
func NewDependencyResolver(source DependencySource, cacheCap int) *DependencyResolver {
	if cacheCap <= 0 {
		cacheCap = 1000
	}
	return &DependencyResolver{
		source:   source,
		cache:    make(map[string]*ResolveResult),
		cacheCap: cacheCap,
	}
}

type frontierNode struct {
	entity *deletion.DependentEntity
	depth  int
}

// Resolve computes the dependents of root. Cancellation is cooperative: the
// context is checked between frontier batches and a partial result flagged
// incomplete is returned when it fires.
func (r *DependencyResolver) Resolve(ctx context.Context, root deletion.EntityRef, opts ResolveOptions, progress Progress) (*ResolveResult, error) {
	if !catalog.IsKnown(root.Kind) {
		return nil, deletion.NewError(deletion.CodeValidationError, fmt.Sprintf("unknown entity type %q", root.Kind))
	}
	if root.ID == "" {
		return nil, deletion.NewError(deletion.CodeInvalidReferenceID, "entity id is required")
	}
	if opts.MaxDepth < 1 {
		opts.MaxDepth = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	key := cacheKey(root, opts)
	if cached := r.cacheGet(key); cached != nil {
		return cached, nil
	}

	limit := r.safetyLimit
	if limit <= 0 {
		limit = safetyCap
	}

	result := &ResolveResult{}
	visited := map[string]bool{fmt.Sprintf("%s@%s", root.Kind, root.ID): true}

	frontier, err := r.seed(ctx, root, opts.IncludeIndirect, visited)
	if err != nil {
		return nil, err
	}
	for _, node := range frontier {
		result.Roots = append(result.Roots, node.entity)
	}

	// An indirect seed already aggregates every row of its kind reachable
	// through intermediates, so deeper expansion must not produce the same
	// kind again under one of those intermediates.
	seeded := make(map[catalog.Kind]bool)
	if opts.IncludeIndirect {
		entry, _ := catalog.Lookup(root.Kind)
		for _, kind := range entry.IndirectChildren {
			seeded[kind] = true
		}
	}

	estimated := len(frontier)
	for len(frontier) > 0 {
		batch := frontier
		if len(batch) > opts.BatchSize {
			batch = batch[:opts.BatchSize]
		}
		frontier = frontier[len(batch):]

		for _, node := range batch {
			result.Flat = append(result.Flat, node.entity)
			result.Processed++

			if result.Processed >= limit {
				result.Incomplete = true
				frontier = nil
				break
			}
			if node.depth >= opts.MaxDepth {
				continue
			}

			children, err := r.expand(ctx, node, visited, seeded)
			if err != nil {
				return nil, err
			}
			node.entity.Children = childEntities(children)
			frontier = append(frontier, children...)
			estimated += len(children)
		}

		if progress != nil {
			progress(result.Processed, estimated)
		}

		// Cooperative checkpoint between batches.
		if err := ctx.Err(); err != nil {
			result.Incomplete = true
			return result, nil
		}
	}

	if !result.Incomplete {
		r.cachePut(key, result)
	}
	return result, nil
}

// InvalidateCache drops every cached traversal result. Called after a
// deletion or cleanup mutates the underlying tables.
func (r *DependencyResolver) InvalidateCache() {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	r.cache = make(map[string]*ResolveResult)
	r.cacheKeys = nil
}

// seed builds the first frontier level from the root's configured direct and,
// when requested, indirect child kinds.
func (r *DependencyResolver) seed(ctx context.Context, root deletion.EntityRef, includeIndirect bool, visited map[string]bool) ([]*frontierNode, error) {
	entry, _ := catalog.Lookup(root.Kind)

	var frontier []*frontierNode
	add := func(child catalog.Kind, rel catalog.Relationship) error {
		node, err := r.makeNode(ctx, child, rel, root, 1)
		if err != nil {
			return err
		}
		if node == nil || visited[node.entity.ID] {
			return nil
		}
		visited[node.entity.ID] = true
		frontier = append(frontier, node)
		return nil
	}

	for _, child := range entry.DirectChildren {
		if err := add(child, catalog.Direct); err != nil {
			return nil, err
		}
	}
	if includeIndirect {
		for _, child := range entry.IndirectChildren {
			if err := add(child, catalog.Indirect); err != nil {
				return nil, err
			}
		}
	}
	return frontier, nil
}

// expand produces the next-level frontier nodes below one dependent. Children
// of a dependent are always direct relative to it. Kinds in seeded are
// already covered by an indirect seed and are skipped.
func (r *DependencyResolver) expand(ctx context.Context, parent *frontierNode, visited map[string]bool, seeded map[catalog.Kind]bool) ([]*frontierNode, error) {
	entry, ok := catalog.Lookup(parent.entity.Kind)
	if !ok {
		return nil, nil
	}

	parentRef := deletion.EntityRef{Kind: parent.entity.Kind, ID: parent.entity.ID}
	var children []*frontierNode
	for _, child := range entry.DirectChildren {
		if seeded[child] {
			continue
		}
		node, err := r.makeNode(ctx, child, catalog.Direct, parentRef, parent.depth+1)
		if err != nil {
			return nil, err
		}
		if node == nil || visited[node.entity.ID] {
			continue
		}
		visited[node.entity.ID] = true
		children = append(children, node)
	}
	return children, nil
}

func (r *DependencyResolver) makeNode(ctx context.Context, child catalog.Kind, rel catalog.Relationship, parent deletion.EntityRef, depth int) (*frontierNode, error) {
	count, err := r.source.CountDependents(ctx, child, parent)
	if err != nil {
		return nil, deletion.Classify(err, fmt.Sprintf("count %s of %s/%s", child, parent.Kind, parent.ID))
	}

	entry, _ := catalog.Lookup(child)
	entity := &deletion.DependentEntity{
		ID:               placeholderID(child, parent),
		Kind:             child,
		Name:             fmt.Sprintf("%s of %s", child, parent.ID),
		RelationshipType: rel,
		CascadeAction:    catalog.CascadeActionFor(child, rel),
		AffectedCount:    count,
		Metadata: deletion.DependentMetadata{
			SourceTable: entry.Table,
			ForeignKey:  entry.ParentColumn,
			ParentID:    parent.ID,
			Depth:       depth,
		},
	}
	return &frontierNode{entity: entity, depth: depth}, nil
}

func (r *DependencyResolver) cacheGet(key string) *ResolveResult {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	return r.cache[key]
}

// cachePut stores a result, evicting the oldest entry FIFO when full.
func (r *DependencyResolver) cachePut(key string, result *ResolveResult) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if _, exists := r.cache[key]; exists {
		return
	}
	if len(r.cacheKeys) >= r.cacheCap {
		oldest := r.cacheKeys[0]
		r.cacheKeys = r.cacheKeys[1:]
		delete(r.cache, oldest)
	}
	r.cache[key] = result
	r.cacheKeys = append(r.cacheKeys, key)
}

func childEntities(nodes []*frontierNode) []*deletion.DependentEntity {
	if len(nodes) == 0 {
		return nil
	}
	entities := make([]*deletion.DependentEntity, 0, len(nodes))
	for _, node := range nodes {
		entities = append(entities, node.entity)
	}
	return entities
}

func cacheKey(root deletion.EntityRef, opts ResolveOptions) string {
	return fmt.Sprintf("%s:%s:%d:%t", root.Kind, root.ID, opts.MaxDepth, opts.IncludeIndirect)
}

// placeholderID derives a stable synthetic id for a dependent placeholder.
// The id encodes the ancestor chain as kind@...@kind@rootID so both the
// visited set and the persistence layer can reconstruct the path. A parent
// with a plain id is a real entity and contributes its kind; a parent that is
// itself a placeholder already starts with its own kind.
func placeholderID(kind catalog.Kind, parent deletion.EntityRef) string {
	if strings.Contains(parent.ID, "@") {
		return fmt.Sprintf("%s@%s", kind, parent.ID)
	}
	return fmt.Sprintf("%s@%s@%s", kind, parent.Kind, parent.ID)
}
