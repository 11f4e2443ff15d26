// Package actorpool provides the bounded execution substrate the reasoner
// actor graph runs on: a fixed-size pool of worker goroutines draining a
// shared task channel, and a per-actor Driver that serializes the handlers
// of a single node while sharing goroutines with every other node in the
// graph.
//
// This is adapted from the teacher's internal/parallel.WorkerPool: the
// dynamic scaling and deadlock-detection machinery of that pool is dropped
// (the reasoner actor graph calls for a fixed-size pool, not elastic
// scaling), leaving the bounded task-channel/worker-goroutine shape.
package actorpool

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool is a fixed-size pool of worker goroutines executing closures
// submitted by Drivers. Workers never run two closures belonging to the
// same Driver concurrently; see Driver.Execute.
type Pool struct {
	tasks chan func()
	sem   *semaphore.Weighted

	wg     sync.WaitGroup
	closed chan struct{}
	once   sync.Once

	submitted atomic.Int64
	executed  atomic.Int64
	inFlight  atomic.Int64
}

// Stats reports pool-level counters, primarily useful for tests and metrics.
type Stats struct {
	Submitted int64
	Executed  int64
	InFlight  int64
}

// readerMultiplier is how many channel-draining goroutines run per unit of
// concurrent-execution capacity. It must be > 1: with exactly one reader
// goroutine per semaphore slot, every reader always acquires immediately
// and run's Acquire call can never actually block, making the semaphore a
// decorative second bound on top of the goroutine count. Oversubscribing
// readers lets the pool keep draining the task channel (so Submit doesn't
// back up) while capping how many closures actually execute concurrently,
// which is the bound that matters for CPU-bound drain work.
const readerMultiplier = 2

// NewPool creates a pool whose worker goroutines run at most workers
// closures concurrently. If workers is <= 0, it defaults to
// runtime.GOMAXPROCS(0).
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		tasks:  make(chan func(), workers*4),
		sem:    semaphore.NewWeighted(int64(workers)),
		closed: make(chan struct{}),
	}
	readers := workers * readerMultiplier
	for i := 0; i < readers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.closed:
			// Run whatever is still queued before exiting, so Shutdown
			// waits for queued tasks as well as in-flight ones.
			for {
				select {
				case fn := <-p.tasks:
					p.run(fn)
				default:
					return
				}
			}
		case fn, ok := <-p.tasks:
			if !ok {
				return
			}
			p.run(fn)
		}
	}
}

func (p *Pool) run(fn func()) {
	_ = p.sem.Acquire(context.Background(), 1)
	p.inFlight.Add(1)
	defer func() {
		p.inFlight.Add(-1)
		p.sem.Release(1)
		p.executed.Add(1)
	}()
	fn()
}

// Submit enqueues fn for execution by some worker goroutine. Submit panics
// if the pool has been shut down; a Driver never submits after its node
// has been torn down, so this indicates a programming error upstream.
func (p *Pool) Submit(fn func()) {
	p.submitted.Add(1)
	select {
	case <-p.closed:
		panic(fmt.Errorf("actorpool: submit after shutdown"))
	case p.tasks <- fn:
	}
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Executed:  p.executed.Load(),
		InFlight:  p.inFlight.Load(),
	}
}

// Shutdown stops accepting new tasks and waits for in-flight and queued
// tasks to complete, or for ctx to be done, whichever comes first.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.once.Do(func() {
		close(p.closed)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
