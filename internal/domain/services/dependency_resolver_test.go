package services_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/catalog"
	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/domain/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves dependent counts from a fixed table keyed by child kind.
type fakeSource struct {
	counts map[catalog.Kind]int
	calls  atomic.Int64
}

func (f *fakeSource) CountDependents(_ context.Context, child catalog.Kind, _ deletion.EntityRef) (int, error) {
	f.calls.Add(1)
	return f.counts[child], nil
}

func orchestraSource() *fakeSource {
	return &fakeSource{counts: map[catalog.Kind]int{
		catalog.KindRehearsals:        4,
		catalog.KindPerformances:      2,
		catalog.KindMembers:           12,
		catalog.KindAttendanceRecords: 30,
		catalog.KindRepertoire:        8,
	}}
}

func TestResolveDirectOnly(t *testing.T) {
	resolver := services.NewDependencyResolver(orchestraSource(), 10)
	root := deletion.EntityRef{Kind: catalog.KindOrchestras, ID: "orc1"}

	result, err := resolver.Resolve(context.Background(), root, services.ResolveOptions{MaxDepth: 1}, nil)
	require.NoError(t, err)

	assert.Len(t, result.Flat, 3)
	assert.False(t, result.Incomplete)

	kinds := make(map[catalog.Kind]*deletion.DependentEntity)
	for _, dep := range result.Flat {
		kinds[dep.Kind] = dep
	}
	require.Contains(t, kinds, catalog.KindRehearsals)
	require.Contains(t, kinds, catalog.KindPerformances)
	require.Contains(t, kinds, catalog.KindMembers)

	rehearsals := kinds[catalog.KindRehearsals]
	assert.Equal(t, "rehearsals@orchestras@orc1", rehearsals.ID)
	assert.Equal(t, catalog.Direct, rehearsals.RelationshipType)
	assert.Equal(t, catalog.ActionDelete, rehearsals.CascadeAction)
	assert.Equal(t, 4, rehearsals.AffectedCount)
	assert.Equal(t, 1, rehearsals.Metadata.Depth)
	assert.Equal(t, "rehearsals", rehearsals.Metadata.SourceTable)
}

func TestResolveIncludesIndirect(t *testing.T) {
	resolver := services.NewDependencyResolver(orchestraSource(), 10)
	root := deletion.EntityRef{Kind: catalog.KindOrchestras, ID: "orc1"}

	result, err := resolver.Resolve(context.Background(), root, services.ResolveOptions{MaxDepth: 1, IncludeIndirect: true}, nil)
	require.NoError(t, err)

	assert.Len(t, result.Flat, 5)

	var indirect []catalog.Kind
	for _, dep := range result.Flat {
		if dep.RelationshipType == catalog.Indirect {
			indirect = append(indirect, dep.Kind)
			assert.Equal(t, catalog.ActionNullify, dep.CascadeAction)
		}
	}
	assert.ElementsMatch(t, []catalog.Kind{catalog.KindAttendanceRecords, catalog.KindRepertoire}, indirect)
}

func TestResolveIndirectNotDoubleCounted(t *testing.T) {
	resolver := services.NewDependencyResolver(orchestraSource(), 10)
	root := deletion.EntityRef{Kind: catalog.KindOrchestras, ID: "orc1"}

	result, err := resolver.Resolve(context.Background(), root, services.ResolveOptions{MaxDepth: 2, IncludeIndirect: true}, nil)
	require.NoError(t, err)

	// The indirect seeds already cover attendance via rehearsals and
	// repertoire via performances; depth-2 expansion must not produce the
	// same rows again under the intermediates.
	assert.Len(t, result.Flat, 5)

	perKind := make(map[catalog.Kind]int)
	total := 0
	for _, dep := range result.Flat {
		perKind[dep.Kind]++
		total += dep.AffectedCount
	}
	assert.Equal(t, 1, perKind[catalog.KindAttendanceRecords])
	assert.Equal(t, 1, perKind[catalog.KindRepertoire])
	assert.Equal(t, 4+2+12+30+8, total)
}

func TestResolveNestsDeeperLevels(t *testing.T) {
	resolver := services.NewDependencyResolver(orchestraSource(), 10)
	root := deletion.EntityRef{Kind: catalog.KindOrchestras, ID: "orc1"}

	result, err := resolver.Resolve(context.Background(), root, services.ResolveOptions{MaxDepth: 2}, nil)
	require.NoError(t, err)

	// rehearsals, performances, members plus attendance under rehearsals and
	// repertoire under performances.
	assert.Len(t, result.Flat, 5)
	assert.Len(t, result.Roots, 3)

	var attendance *deletion.DependentEntity
	for _, dep := range result.Flat {
		if dep.Kind == catalog.KindAttendanceRecords {
			attendance = dep
		}
	}
	require.NotNil(t, attendance)
	assert.Equal(t, "attendance_records@rehearsals@orchestras@orc1", attendance.ID)
	assert.Equal(t, 2, attendance.Metadata.Depth)
	assert.Equal(t, "rehearsals@orchestras@orc1", attendance.Metadata.ParentID)

	for _, node := range result.Roots {
		if node.Kind == catalog.KindRehearsals {
			require.Len(t, node.Children, 1)
			assert.Equal(t, attendance, node.Children[0])
		}
	}
}

func TestResolveValidatesRoot(t *testing.T) {
	resolver := services.NewDependencyResolver(orchestraSource(), 10)

	_, err := resolver.Resolve(context.Background(), deletion.EntityRef{Kind: "conductors", ID: "x"}, services.ResolveOptions{}, nil)
	require.Error(t, err)
	var procErr *deletion.ProcessedError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, deletion.CodeValidationError, procErr.Code)

	_, err = resolver.Resolve(context.Background(), deletion.EntityRef{Kind: catalog.KindStudents}, services.ResolveOptions{}, nil)
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, deletion.CodeInvalidReferenceID, procErr.Code)
}

func TestResolveCancellationReturnsPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := services.NewDependencyResolver(orchestraSource(), 10)
	root := deletion.EntityRef{Kind: catalog.KindOrchestras, ID: "orc1"}

	result, err := resolver.Resolve(ctx, root, services.ResolveOptions{MaxDepth: 3}, nil)
	require.NoError(t, err)
	assert.True(t, result.Incomplete)
}

func TestResolveCachesResults(t *testing.T) {
	source := orchestraSource()
	resolver := services.NewDependencyResolver(source, 10)
	root := deletion.EntityRef{Kind: catalog.KindOrchestras, ID: "orc1"}
	opts := services.ResolveOptions{MaxDepth: 1}

	_, err := resolver.Resolve(context.Background(), root, opts, nil)
	require.NoError(t, err)
	after := source.calls.Load()

	_, err = resolver.Resolve(context.Background(), root, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, after, source.calls.Load(), "second identical resolve should hit the cache")

	// Different options miss the cache.
	_, err = resolver.Resolve(context.Background(), root, services.ResolveOptions{MaxDepth: 1, IncludeIndirect: true}, nil)
	require.NoError(t, err)
	assert.Greater(t, source.calls.Load(), after)
}

func TestResolveCacheEvictsFIFO(t *testing.T) {
	source := orchestraSource()
	resolver := services.NewDependencyResolver(source, 1)
	opts := services.ResolveOptions{MaxDepth: 1}

	first := deletion.EntityRef{Kind: catalog.KindOrchestras, ID: "orc1"}
	second := deletion.EntityRef{Kind: catalog.KindOrchestras, ID: "orc2"}

	_, err := resolver.Resolve(context.Background(), first, opts, nil)
	require.NoError(t, err)

	// Fills the single slot, evicting the first entry.
	_, err = resolver.Resolve(context.Background(), second, opts, nil)
	require.NoError(t, err)

	before := source.calls.Load()
	_, err = resolver.Resolve(context.Background(), first, opts, nil)
	require.NoError(t, err)
	assert.Greater(t, source.calls.Load(), before, "evicted entry should recompute")
}

func TestInvalidateCache(t *testing.T) {
	source := orchestraSource()
	resolver := services.NewDependencyResolver(source, 10)
	root := deletion.EntityRef{Kind: catalog.KindOrchestras, ID: "orc1"}
	opts := services.ResolveOptions{MaxDepth: 1}

	_, err := resolver.Resolve(context.Background(), root, opts, nil)
	require.NoError(t, err)

	resolver.InvalidateCache()

	before := source.calls.Load()
	_, err = resolver.Resolve(context.Background(), root, opts, nil)
	require.NoError(t, err)
	assert.Greater(t, source.calls.Load(), before)
}

func TestResolveReportsProgress(t *testing.T) {
	resolver := services.NewDependencyResolver(orchestraSource(), 10)
	root := deletion.EntityRef{Kind: catalog.KindOrchestras, ID: "orc1"}

	var processed int
	_, err := resolver.Resolve(context.Background(), root, services.ResolveOptions{MaxDepth: 2}, func(p, _ int) {
		processed = p
	})
	require.NoError(t, err)
	assert.Equal(t, 5, processed)
}
