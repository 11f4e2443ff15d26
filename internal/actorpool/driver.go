package actorpool

import "sync"

// Driver serializes the handlers of a single actor node while sharing
// worker goroutines with every other node's Driver through a common Pool.
// Execute appends a closure to the driver's private FIFO mailbox; if the
// driver is not already scheduled on the pool, it submits a drain task.
// The drain task repeatedly pops and runs whatever is in the mailbox,
// re-checking for newly arrived entries before giving up its scheduled
// slot, which keeps exactly one drain active per driver at any time and
// preserves strict per-node message ordering.
type Driver struct {
	pool *Pool

	mu        sync.Mutex
	mailbox   []func()
	scheduled bool

	// onPanic receives the recovered value of any closure that panics
	// while running on this driver. It must not itself panic or block.
	onPanic func(recovered any)
}

// NewDriver creates a Driver bound to pool. onPanic, if non-nil, is invoked
// (on a pool worker goroutine) whenever a closure scheduled on this driver
// panics; the panic is otherwise contained and does not crash the worker.
func NewDriver(pool *Pool, onPanic func(recovered any)) *Driver {
	return &Driver{pool: pool, onPanic: onPanic}
}

// Execute schedules fn to run on this driver's single logical thread of
// execution. Closures submitted by concurrent callers run in the order
// Execute was called, matching the FIFO delivery guarantee actors depend
// on for cross-node messaging.
func (d *Driver) Execute(fn func()) {
	d.mu.Lock()
	d.mailbox = append(d.mailbox, fn)
	alreadyScheduled := d.scheduled
	d.scheduled = true
	d.mu.Unlock()

	if !alreadyScheduled {
		d.pool.Submit(d.drain)
	}
}

func (d *Driver) drain() {
	for {
		d.mu.Lock()
		if len(d.mailbox) == 0 {
			d.scheduled = false
			d.mu.Unlock()
			return
		}
		batch := d.mailbox
		d.mailbox = nil
		d.mu.Unlock()

		for _, fn := range batch {
			d.runOne(fn)
		}
	}
}

func (d *Driver) runOne(fn func()) {
	defer func() {
		if r := recover(); r != nil && d.onPanic != nil {
			d.onPanic(r)
		}
	}()
	fn()
}

// Pending reports the number of closures currently queued but not yet run.
// Intended for tests and diagnostics only.
func (d *Driver) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.mailbox)
}
