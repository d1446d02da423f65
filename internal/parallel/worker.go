// Package parallel provides the worker pool used by the compute-heavy
// training stages: fitting the trees of a forest, the nearest-neighbour
// search of SMOTE and the candidate × fold jobs of a grid search.
//
// Key features:
//   - Fixed-size pool sized from runtime.NumCPU() by default
//   - Fan-out/fan-in with results returned in input order
//   - Context-aware variant that stops handing out work on the first error
//     or on cancellation
//
// Workers share nothing but the read-only inputs they are given; each job
// writes only its own result slot.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// WorkerPool manages a pool of goroutines for parallel processing
type WorkerPool struct {
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool creates a new worker pool. A non-positive size means one
// worker per CPU.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Size returns the number of workers
func (wp *WorkerPool) Size() int {
	return wp.numWorkers
}

// Map runs worker over items and returns the results in input order. The
// first error cancels the jobs not yet started and is returned; a canceled
// ctx is reported as ctx.Err().
func Map[T, R any](
	ctx context.Context,
	wp *WorkerPool,
	items []T,
	worker func(context.Context, int, T) (R, error),
) ([]R, error) {
	if err := wp.ctx.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(wp.ctx, cancel)
	defer stop()

	itemCh := make(chan indexedItem[T], len(items))
	for i, item := range items {
		itemCh <- indexedItem[T]{index: i, value: item}
	}
	close(itemCh)

	results := make([]R, len(items))
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for i := 0; i < wp.workersFor(len(items)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				if ctx.Err() != nil {
					return
				}
				result, err := worker(ctx, item.index, item.value)
				if err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
					return
				}
				results[item.index] = result
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Close shuts down the worker pool. Later Map calls return context.Canceled.
func (wp *WorkerPool) Close() {
	wp.cancel()
}

func (wp *WorkerPool) workersFor(items int) int {
	if items < wp.numWorkers {
		return items
	}
	return wp.numWorkers
}

// indexedItem holds an item with its index
type indexedItem[T any] struct {
	index int
	value T
}
