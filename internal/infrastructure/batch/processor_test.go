package batch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessEachItemOnce(t *testing.T) {
	items := make([]int, 97)
	for i := range items {
		items[i] = i
	}

	var mu sync.Mutex
	seen := make(map[int]int)

	result := Process(context.Background(), items, func(_ context.Context, item int) error {
		mu.Lock()
		seen[item]++
		mu.Unlock()
		return nil
	}, Options{ChunkSize: 10, Concurrency: 3})

	assert.Equal(t, 97, result.Processed)
	assert.Equal(t, 97, result.Succeeded)
	assert.Zero(t, result.Failed)
	assert.False(t, result.Cancelled)

	require.Len(t, seen, 97)
	for item, count := range seen {
		assert.Equal(t, 1, count, "item %d processed more than once", item)
	}
}

func TestProcessRecordsFailuresAndContinues(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5}

	result := Process(context.Background(), items, func(_ context.Context, item int) error {
		if item%2 == 1 {
			return errors.New("odd item")
		}
		return nil
	}, Options{ChunkSize: 2, Concurrency: 1})

	assert.Equal(t, 6, result.Processed)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 3, result.Failed)
	require.Len(t, result.Errors, 3)

	indexes := make([]int, 0, 3)
	for _, itemErr := range result.Errors {
		indexes = append(indexes, itemErr.Index)
	}
	assert.ElementsMatch(t, []int{1, 3, 5}, indexes)
}

func TestProcessPanicCountsAsFailure(t *testing.T) {
	items := []string{"ok", "boom", "ok"}

	result := Process(context.Background(), items, func(_ context.Context, item string) error {
		if item == "boom" {
			panic("processor exploded")
		}
		return nil
	}, Options{ChunkSize: 5, Concurrency: 1})

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error, "panic")
}

func TestProcessProgressReachesHundredOnce(t *testing.T) {
	items := make([]int, 50)

	var reports []int
	Process(context.Background(), items, func(_ context.Context, _ int) error {
		return nil
	}, Options{
		ChunkSize:   10,
		Concurrency: 1,
		OnProgress: func(percentage, _, _ int) {
			reports = append(reports, percentage)
		},
	})

	require.NotEmpty(t, reports)
	assert.Equal(t, 100, reports[len(reports)-1])

	hundreds := 0
	for _, p := range reports {
		assert.LessOrEqual(t, p, 100)
		if p == 100 {
			hundreds++
		}
	}
	assert.Equal(t, 1, hundreds)
}

func TestProcessEmptyInput(t *testing.T) {
	called := false
	result := Process(context.Background(), nil, func(_ context.Context, _ int) error {
		t.Fatal("processor must not run for empty input")
		return nil
	}, Options{OnProgress: func(percentage, processed, total int) {
		called = true
		assert.Equal(t, 100, percentage)
		assert.Zero(t, processed)
		assert.Zero(t, total)
	}})

	assert.True(t, called)
	assert.Zero(t, result.Processed)
}

func TestProcessCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := make([]int, 20)
	result := Process(ctx, items, func(_ context.Context, _ int) error {
		return nil
	}, Options{ChunkSize: 5, Concurrency: 1})

	assert.True(t, result.Cancelled)
	assert.Zero(t, result.Processed)
}

func TestProcessCancellationMidChunk(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	result := Process(ctx, items, func(_ context.Context, item int) error {
		if item == 3 {
			cancel()
		}
		return nil
	}, Options{ChunkSize: 100, Concurrency: 1, checkpointEvery: 2})

	assert.True(t, result.Cancelled)
	assert.Less(t, result.Processed, 100)
	assert.Greater(t, result.Processed, 0)
}
