// Package tablebuffer implements the single-producer, single-consumer
// row queue that sits between the stream demultiplexer and one table's
// consumer. One mutex guards a small set of fields touched from both
// the producer and the consumer side, and a channel (rather than a
// condition variable) is used to wake a blocked consumer.
package tablebuffer

import (
	"sync"

	"github.com/FlorentATo/pixie/schema"
)

// Buffer is the FIFO row queue for one table. The zero value is not
// usable; construct with New.
type Buffer struct {
	mu     sync.Mutex
	rows   []schema.Row
	closed bool
	err    error

	// signal is sent to whenever state changes (a push, a close) so a
	// blocked Pull wakes up. It is buffered to size 1 so a producer
	// never blocks handing off the wakeup itself; only the data queue
	// itself provides backpressure.
	signal chan struct{}

	// draining is closed the first time Pull is called, so Push can apply
	// the "one batch ahead" backpressure rule only once a consumer has
	// actually started draining.
	draining   chan struct{}
	drainOnce  sync.Once
	maxAheadOf int // number of batches Push may stage before blocking
	pending    int // non-empty batches pushed, less one per row pulled
	pushWake   chan struct{}
}

// New creates an empty, open buffer.
func New() *Buffer {
	return &Buffer{
		signal:     make(chan struct{}, 1),
		draining:   make(chan struct{}),
		pushWake:   make(chan struct{}, 1),
		maxAheadOf: 1,
	}
}

func (b *Buffer) wake() {
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// PushRows enqueues a decoded row batch in arrival order. Pushing after
// Close is a silent no-op, keeping shutdown races simple for callers.
func (b *Buffer) PushRows(rows []schema.Row) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.rows = append(b.rows, rows...)
	if len(rows) > 0 {
		b.pending++
	}
	b.mu.Unlock()

	b.wake()

	// Once a consumer has been observed draining, block while more than
	// maxAheadOf batches are staged ahead of it; this keeps the buffer
	// from growing unboundedly ahead of a slow consumer while never
	// blocking before any consumer exists. A close releases a blocked push.
	select {
	case <-b.draining:
	default:
		return
	}
	for {
		b.mu.Lock()
		blocked := !b.closed && b.pending > b.maxAheadOf
		b.mu.Unlock()
		if !blocked {
			return
		}
		<-b.pushWake
	}
}

// markDrained lets Pull signal the producer that it consumed a row,
// releasing a blocked PushRows.
func (b *Buffer) markDrained() {
	b.mu.Lock()
	if b.pending > 0 {
		b.pending--
	}
	b.mu.Unlock()
	select {
	case b.pushWake <- struct{}{}:
	default:
	}
}

// CloseOK closes the buffer after a clean end-of-stream. Pending rows
// remain available to drain.
func (b *Buffer) CloseOK() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wake()
}

// CloseErr closes the buffer with a terminal error, discarding any rows
// pushed before the error: once an error is set, pending rows are
// dropped and the error surfaces on the next pull.
func (b *Buffer) CloseErr(err error) {
	b.mu.Lock()
	b.closed = true
	b.err = err
	b.rows = nil
	b.mu.Unlock()
	b.wake()
	select {
	case b.pushWake <- struct{}{}:
	default:
	}
}

// Result is what Pull returns: exactly one of a row, end-of-stream, or
// an error.
type Result struct {
	Row schema.Row
	End bool
	Err error
}

// Pull blocks until a row is available, the buffer closes cleanly, or
// it closes with an error. It never returns more than one row per call.
func (b *Buffer) Pull() Result {
	for {
		b.mu.Lock()
		b.drainOnce.Do(func() { close(b.draining) })
		if b.err != nil {
			err := b.err
			b.mu.Unlock()
			return Result{Err: err}
		}
		if len(b.rows) > 0 {
			row := b.rows[0]
			b.rows = b.rows[1:]
			b.mu.Unlock()
			b.markDrained()
			return Result{Row: row}
		}
		if b.closed {
			b.mu.Unlock()
			return Result{End: true}
		}
		b.mu.Unlock()

		<-b.signal
	}
}

// Len reports the number of rows currently queued (for tests and
// diagnostics only).
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows)
}
