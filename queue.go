package relay

import (
	"context"
	"sync"
)

// Queue is a bounded FIFO of envelopes with any number of producers and a
// single consumer. Enqueue blocks while the queue is full.
type Queue struct {
	items     chan Envelope
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue creates a queue holding at most capacity envelopes
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		items: make(chan Envelope, capacity),
		done:  make(chan struct{}),
	}
}

// Enqueue adds env, waiting for space. It fails with ErrQueueClosed once the
// queue is closed and with ctx.Err() if ctx ends first.
func (q *Queue) Enqueue(ctx context.Context, env Envelope) error {
	// A closed queue must refuse even when there is room
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.items <- env:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue removes the oldest envelope, waiting while the queue is empty.
// After Close it drains what is left and then returns ErrQueueClosed.
func (q *Queue) Dequeue(ctx context.Context) (Envelope, error) {
	select {
	case env := <-q.items:
		return env, nil
	default:
	}

	select {
	case env := <-q.items:
		return env, nil
	case <-q.done:
		select {
		case env := <-q.items:
			return env, nil
		default:
			return Envelope{}, ErrQueueClosed
		}
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

// Close stops further enqueues. It is safe to call more than once.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Len returns the number of queued envelopes
func (q *Queue) Len() int {
	return len(q.items)
}

// Cap returns the queue capacity
func (q *Queue) Cap() int {
	return cap(q.items)
}
