// Package scheduler runs a fixed-size worker pool over an ordered list of
// tasks, compressing each concurrently while guaranteeing that the
// consumer observes results in the original submission order.
//
// It knows nothing about the 7z format or the sink; it only reorders.
package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// CompressFunc produces the compressed bytes for the task at index i.
type CompressFunc func(i int) ([]byte, error)

// ConsumeFunc observes the compressed bytes for task i, in strictly
// increasing index order.
type ConsumeFunc func(i int, data []byte) error

// Scheduler owns a worker pool of fixed size.
type Scheduler struct {
	workers int
}

// New returns a Scheduler with the given worker count. A count <= 0 is
// replaced by runtime.NumCPU.
func New(workers int) *Scheduler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scheduler{workers: workers}
}

// Workers reports the pool size this Scheduler was constructed with.
func (s *Scheduler) Workers() int {
	return s.workers
}

// taskError is one worker's failure, tagged with its submission index so
// concurrent failures can be ranked after the pool drains.
type taskError struct {
	index int
	err   error
}

// Run dispatches n tasks (indices 0..n-1), bounding concurrency to the
// pool size with a weighted semaphore and running each task's compress
// call inside an errgroup.Group so the group's context is cancelled as
// soon as the first task fails. consume is invoked for every task in
// strictly increasing index order as results become available, via a
// reorder buffer keyed by submission index: a finishing task stashes its
// result and, while holding the buffer lock, drains every contiguous
// result starting at the next expected index.
//
// On failure, Run stops dispatching new tasks once the semaphore acquire
// observes the cancelled context, lets already-dispatched work drain, and
// records every failing task. Results completed after the first recorded
// failure are discarded even when their own task succeeded. The returned
// error's primary cause is the failing task with the LOWEST submission
// index, not whichever failing goroutine happened to finish first;
// failures from the other workers stay reachable through Unwrap so
// errors.Is and errors.As still see all of them.
func (s *Scheduler) Run(ctx context.Context, n int, compress CompressFunc, consume ConsumeFunc) error {
	if n == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(s.workers))

	var (
		mu       sync.Mutex
		pending  = make(map[int][]byte, s.workers)
		next     int
		draining bool
		failures []taskError
	)

	// drainLocked consumes every contiguous pending result starting at
	// next. It must be called with mu held, and releases it around each
	// consume call so other tasks can stash their own results while one
	// is being consumed. The draining flag ensures at most one goroutine
	// is ever inside a consume call at a time: a task that finds
	// draining already true just stashes its result in pending and
	// returns, trusting the active drainer to pick it up on its next
	// loop iteration. next only advances after consume returns, so two
	// consume calls can never race over the same or adjacent indices.
	//
	// Each drained index releases its semaphore slot here, not when its
	// compress goroutine returns: a slot represents a block that is
	// either being compressed or sitting compressed-but-unconsumed in
	// pending, so it must stay held across that whole span. Releasing it
	// early would let later blocks race ahead of a slow head-of-line
	// block and pile up in pending with no bound.
	drainLocked := func() error {
		if draining {
			return nil
		}
		draining = true
		defer func() { draining = false }()

		for {
			data, ok := pending[next]
			if !ok {
				return nil
			}
			delete(pending, next)
			idx := next

			mu.Unlock()
			err := consume(idx, data)
			mu.Lock()

			if err != nil {
				sem.Release(1)
				ferr := fmt.Errorf("scheduler: consume task %d: %w", idx, err)
				failures = append(failures, taskError{index: idx, err: ferr})
				return ferr
			}
			next++
			sem.Release(1)
		}
	}

	for i := 0; i < n; i++ {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}

		i := i
		g.Go(func() error {
			data, cerr := compress(i)

			mu.Lock()
			defer mu.Unlock()

			if cerr != nil {
				// Record rather than decide here: whichever failing
				// goroutine reaches this lock first is completion
				// order, and the surfaced error must be ranked by
				// submission index after everything drains.
				sem.Release(1)
				ferr := fmt.Errorf("scheduler: task %d: %w", i, cerr)
				failures = append(failures, taskError{index: i, err: ferr})
				return ferr
			}
			if len(failures) > 0 {
				// Another task already failed; discard this result
				// and release its slot immediately since it will never
				// reach drainLocked.
				sem.Release(1)
				return nil
			}

			pending[i] = data
			return drainLocked()
		})
	}

	_ = g.Wait()

	if len(failures) > 0 {
		sort.Slice(failures, func(a, b int) bool { return failures[a].index < failures[b].index })
		return chain(failures)
	}
	if next < n {
		return fmt.Errorf("scheduler: pipeline ended after consuming %d of %d tasks", next, n)
	}
	return nil
}

// chain folds the ranked failures into a single error whose primary cause
// is the lowest-index failure; a single failure is returned as-is.
func chain(failures []taskError) error {
	err := failures[len(failures)-1].err
	for i := len(failures) - 2; i >= 0; i-- {
		err = &chainedError{cause: failures[i].err, next: err}
	}
	return err
}
