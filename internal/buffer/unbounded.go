// Package buffer provides the unbounded buffer backing event subscriptions.
package buffer

import (
	"sync"
)

// Unbounded provides non-blocking sends with unlimited buffering. Hardware
// callbacks and the trial control thread publish events through it, so a
// slow or absent subscriber can never stall them.
//
// Usage:
//
//	buf := buffer.NewUnbounded[rig.TrialEvent]()
//	go func() {
//	    for ev := range buf.Receive() {
//	        // Process event
//	    }
//	}()
//	buf.Send(ev)   // Never blocks
//	buf.Close()    // Closes the receive channel once drained
type Unbounded[T any] struct {
	mu     sync.Mutex
	items  []T
	cond   *sync.Cond
	closed bool
	out    chan T
}

// NewUnbounded creates a new unbounded buffer, ready to accept Send calls.
func NewUnbounded[T any]() *Unbounded[T] {
	b := &Unbounded[T]{
		items: make([]T, 0, 16),
		out:   make(chan T, 1),
	}
	b.cond = sync.NewCond(&b.mu)
	go b.drainLoop()
	return b
}

// drainLoop moves items from the internal queue to the output channel until
// the buffer is closed and empty.
func (b *Unbounded[T]) drainLoop() {
	for {
		item, ok := b.dequeue()
		if !ok {
			close(b.out)
			return
		}
		b.out <- item
	}
}

// dequeue blocks until an item is available or the buffer is closed.
// Returns (zero, false) only when closed and empty.
func (b *Unbounded[T]) dequeue() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.items) == 0 && !b.closed {
		b.cond.Wait()
	}

	if len(b.items) == 0 {
		var zero T
		return zero, false
	}

	item := b.items[0]
	b.items = b.items[1:]
	return item, true
}

// Send enqueues an item. It never blocks and is safe to call from any
// goroutine. Items sent after Close are silently dropped.
func (b *Unbounded[T]) Send(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.items = append(b.items, item)
	b.cond.Signal()
}

// Receive returns the channel delivering buffered items in order. The
// channel closes after Close once all pending items are drained.
func (b *Unbounded[T]) Receive() <-chan T {
	return b.out
}

// Close marks the buffer closed. Safe to call multiple times.
func (b *Unbounded[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.cond.Signal()
}

// Len returns the number of undelivered items, for tests.
func (b *Unbounded[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
