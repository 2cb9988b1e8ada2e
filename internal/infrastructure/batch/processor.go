// Package batch provides a concurrency-bounded chunked executor for
// best-effort bulk operations.
package batch

import (
	"context"
	"fmt"
	"sync"
)

// Options tunes a batch run.
type Options struct {
	// ChunkSize is the number of items per chunk. Defaults to 25.
	ChunkSize int
	// Concurrency is how many chunks of one group run at the same time.
	// Groups advance sequentially. Defaults to 3.
	Concurrency int
	// OnProgress, when set, is called after each chunk group with the
	// recomputed percentage. Reaches exactly 100 once, at the end.
	OnProgress func(percentage, processed, total int)
	// checkpointEvery is how many items process between cooperative
	// cancellation checks inside a chunk.
	checkpointEvery int
}

// ItemError records one failed item. Failures never abort the batch.
type ItemError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// Result summarizes a batch run. Succeeded+Failed equals the number of items
// attempted; when the run is cancelled the remainder is never attempted.
type Result struct {
	Processed int
	Succeeded int
	Failed    int
	Errors    []ItemError
	Cancelled bool
}

// Process splits items into chunks and executes them with bounded
// concurrency. Within a chunk, items run sequentially with a cooperative
// yield every few items; cancellation takes effect at the next yield point,
// after the in-flight item completes. Best-effort, not atomic: per-item
// failures are recorded and the batch continues. Retry is a caller concern.
func Process[T any](ctx context.Context, items []T, fn func(ctx context.Context, item T) error, opts Options) Result {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 25
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	if opts.checkpointEvery <= 0 {
		opts.checkpointEvery = 10
	}

	total := len(items)
	result := Result{}
	if total == 0 {
		if opts.OnProgress != nil {
			opts.OnProgress(100, 0, 0)
		}
		return result
	}

	chunks := split(items, opts.ChunkSize)

	for group := 0; group < len(chunks); group += opts.Concurrency {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		end := group + opts.Concurrency
		if end > len(chunks) {
			end = len(chunks)
		}

		var (
			wg sync.WaitGroup
			mu sync.Mutex
		)
		for i := group; i < end; i++ {
			wg.Add(1)
			go func(chunkIndex int, chunk []T) {
				defer wg.Done()
				partial := runChunk(ctx, chunkIndex*opts.ChunkSize, chunk, fn, opts.checkpointEvery)
				mu.Lock()
				result.Processed += partial.Processed
				result.Succeeded += partial.Succeeded
				result.Failed += partial.Failed
				result.Errors = append(result.Errors, partial.Errors...)
				result.Cancelled = result.Cancelled || partial.Cancelled
				mu.Unlock()
			}(i, chunks[i])
		}
		wg.Wait()

		if opts.OnProgress != nil && !result.Cancelled {
			opts.OnProgress(result.Processed*100/total, result.Processed, total)
		}
	}

	return result
}

// runChunk processes one chunk sequentially, yielding every checkpointEvery
// items.
func runChunk[T any](ctx context.Context, offset int, chunk []T, fn func(ctx context.Context, item T) error, checkpointEvery int) Result {
	partial := Result{}
	for i, item := range chunk {
		if i%checkpointEvery == 0 && i > 0 && ctx.Err() != nil {
			partial.Cancelled = true
			return partial
		}

		if err := runItem(ctx, item, fn); err != nil {
			partial.Failed++
			partial.Errors = append(partial.Errors, ItemError{Index: offset + i, Error: err.Error()})
		} else {
			partial.Succeeded++
		}
		partial.Processed++
	}
	return partial
}

// runItem isolates one item so a panicking processor counts as a failure
// instead of tearing down the batch.
func runItem[T any](ctx context.Context, item T, fn func(ctx context.Context, item T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()
	return fn(ctx, item)
}

func split[T any](items []T, size int) [][]T {
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
