// Package search finds the lowest index satisfying a predicate, either in
// order on the calling goroutine or sharded across worker goroutines.
package search

import (
	"context"
	"sync"
)

// Predicate evaluates candidate idx. Worker identifies the goroutine calling
// it, so that a predicate can use per-worker scratch state.
type Predicate func(worker, idx int) bool

// A Searcher returns the lowest index in [0, n) for which pred holds.
type Searcher interface {
	Workers() int
	Find(n int, pred Predicate) (int, bool)
}

// New returns a sequential searcher for workers <= 1 and a parallel one
// otherwise.
func New(workers int) Searcher {
	if workers <= 1 {
		return Sequential{}
	}

	return NewParallel(workers)
}

// Sequential evaluates candidates one by one on worker 0.
type Sequential struct{}

// Workers returns 1.
func (Sequential) Workers() int {
	return 1
}

// Find returns the first index for which pred holds.
func (Sequential) Find(n int, pred Predicate) (int, bool) {
	for i := 0; i < n; i++ {
		if pred(0, i) {
			return i, true
		}
	}

	return -1, false
}

// Parallel shards the index range into chunks handed to a fixed number of
// workers. A chunk reports its first success. The search ends once a success
// is known and every chunk before it has reported, so the result equals the
// sequential one.
type Parallel struct {
	workers int
	chunk   int
}

// NewParallel creates a parallel searcher with the given number of workers.
func NewParallel(workers int) *Parallel {
	return &Parallel{workers: workers, chunk: 8}
}

// WithChunkSize sets how many consecutive indices one job covers.
func (p *Parallel) WithChunkSize(chunk int) *Parallel {
	if chunk <= 0 {
		panic("chunk size must be positive")
	}

	p.chunk = chunk

	return p
}

// Workers returns the number of worker goroutines.
func (p *Parallel) Workers() int {
	return p.workers
}

type chunkResult struct {
	chunk int
	found int
}

// Find returns the lowest index for which pred holds.
func (p *Parallel) Find(n int, pred Predicate) (int, bool) {
	if n <= 0 {
		return -1, false
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobs := make(chan int)
	results := make(chan chunkResult, p.workers)

	go p.dispatch(ctx, n, jobs)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)

		go func(worker int) {
			defer wg.Done()
			p.work(ctx, worker, n, pred, jobs, results)
		}(w)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	best := -1
	reported := make(map[int]bool)
	contiguous := 0

	for res := range results {
		reported[res.chunk] = true
		if res.found >= 0 && (best < 0 || res.found < best) {
			best = res.found
		}

		for reported[contiguous] {
			contiguous++
		}

		if best >= 0 && contiguous*p.chunk > best {
			break
		}
	}

	return best, best >= 0
}

func (p *Parallel) dispatch(ctx context.Context, n int, jobs chan<- int) {
	defer close(jobs)

	for c := 0; c*p.chunk < n; c++ {
		select {
		case jobs <- c:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Parallel) work(
	ctx context.Context,
	worker, n int,
	pred Predicate,
	jobs <-chan int,
	results chan<- chunkResult,
) {
	for c := range jobs {
		res := chunkResult{chunk: c, found: -1}

		end := min((c+1)*p.chunk, n)
		for i := c * p.chunk; i < end; i++ {
			if ctx.Err() != nil {
				return
			}

			if pred(worker, i) {
				res.found = i
				break
			}
		}

		select {
		case results <- res:
		case <-ctx.Done():
			return
		}
	}
}
