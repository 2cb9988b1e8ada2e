package services

import (
	"context"
	"testing"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/catalog"
	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constantSource struct{}

func (constantSource) CountDependents(context.Context, catalog.Kind, deletion.EntityRef) (int, error) {
	return 1, nil
}

func TestResolveStopsAtSafetyLimit(t *testing.T) {
	resolver := NewDependencyResolver(constantSource{}, 10)
	resolver.safetyLimit = 3

	root := deletion.EntityRef{Kind: catalog.KindOrchestras, ID: "orc1"}
	result, err := resolver.Resolve(context.Background(), root, ResolveOptions{MaxDepth: 5}, nil)
	require.NoError(t, err)

	assert.True(t, result.Incomplete)
	assert.Equal(t, 3, result.Processed)
	assert.Len(t, result.Flat, 3)

	// A capped traversal is partial and must never be served from cache.
	_, err = resolver.Resolve(context.Background(), root, ResolveOptions{MaxDepth: 5}, nil)
	require.NoError(t, err)
	assert.Empty(t, resolver.cache)
}
