package actorpool

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDriverFIFO(t *testing.T) {
	pool := NewPool(4)
	defer pool.Shutdown(context.Background())

	d := NewDriver(pool, nil)

	var mu sync.Mutex
	var seen []int
	var wg sync.WaitGroup

	const n = 200
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		d.Execute(func() {
			defer wg.Done()
			mu.Lock()
			seen = append(seen, i)
			mu.Unlock()
		})
	}
	wg.Wait()

	require.Len(t, seen, n)
	for i := 0; i < n; i++ {
		require.Equal(t, i, seen[i], "driver must run closures in submission order")
	}
}

func TestPoolBoundedConcurrency(t *testing.T) {
	const workers = 3
	pool := NewPool(workers)
	defer pool.Shutdown(context.Background())

	var inFlight atomic.Int64
	var maxSeen atomic.Int64
	var wg sync.WaitGroup

	const tasks = 30
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		d := NewDriver(pool, nil)
		d.Execute(func() {
			defer wg.Done()
			cur := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				prev := maxSeen.Load()
				if cur <= prev || maxSeen.CompareAndSwap(prev, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
		})
	}
	wg.Wait()

	require.LessOrEqual(t, maxSeen.Load(), int64(workers))
}

func TestDriverRecoversPanic(t *testing.T) {
	pool := NewPool(2)
	defer pool.Shutdown(context.Background())

	var recovered atomic.Value
	done := make(chan struct{})
	d := NewDriver(pool, func(r any) {
		recovered.Store(r)
		close(done)
	})

	d.Execute(func() {
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onPanic was not called")
	}
	require.Equal(t, "boom", recovered.Load())

	// The driver must still be usable after a recovered panic.
	ran := make(chan struct{})
	d.Execute(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("driver did not keep running after a panic")
	}
}

// TestPoolOversubscribesReadersBeyondConcurrencyCap asserts the semaphore
// actually gates: NewPool must start more channel-draining goroutines than
// the concurrency cap it enforces, otherwise every reader always acquires
// immediately and sem.Acquire can never block (see readerMultiplier's doc
// comment).
func TestPoolOversubscribesReadersBeyondConcurrencyCap(t *testing.T) {
	const workers = 3
	before := runtime.NumGoroutine()
	pool := NewPool(workers)
	defer pool.Shutdown(context.Background())

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine()-before >= workers*readerMultiplier
	}, time.Second, time.Millisecond, "expected at least %d reader goroutines, only goroutine count can observe oversubscription", workers*readerMultiplier)
}

// TestPoolSemaphoreBlocksExcessReaders drives more concurrently-runnable
// tasks through the pool than its concurrency cap while readers outnumber
// that cap: the extra readers must park on sem.Acquire inside run(), not
// merely sit unclaimed in the task channel, and the cap must still hold.
func TestPoolSemaphoreBlocksExcessReaders(t *testing.T) {
	const workers = 2
	pool := NewPool(workers)
	defer pool.Shutdown(context.Background())

	release := make(chan struct{})
	var inFlight atomic.Int64
	var maxSeen atomic.Int64
	var wg sync.WaitGroup

	const tasks = workers*readerMultiplier + 1
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		d := NewDriver(pool, nil)
		d.Execute(func() {
			defer wg.Done()
			cur := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				prev := maxSeen.Load()
				if cur <= prev || maxSeen.CompareAndSwap(prev, cur) {
					break
				}
			}
			<-release
		})
	}

	require.Eventually(t, func() bool {
		return inFlight.Load() == workers
	}, time.Second, time.Millisecond, "exactly workers tasks should be running concurrently")

	close(release)
	wg.Wait()
	require.LessOrEqual(t, maxSeen.Load(), int64(workers))
}

func TestPoolStats(t *testing.T) {
	pool := NewPool(2)
	defer pool.Shutdown(context.Background())

	d := NewDriver(pool, nil)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		d.Execute(func() { wg.Done() })
	}
	wg.Wait()

	// Allow the drain loop to settle and report InFlight == 0.
	require.Eventually(t, func() bool {
		return pool.Stats().InFlight == 0
	}, time.Second, time.Millisecond)
	require.GreaterOrEqual(t, pool.Stats().Executed, int64(1))
}
