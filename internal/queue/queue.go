// Package queue provides a bounded FIFO for passing values between tasks.
// Blocking operations suspend the calling task on a signal instead of
// spinning: producers wait for notFull, consumers for notEmpty.
package queue

import (
	"github.com/emirpasic/gods/queues/circularbuffer"

	"tickexec/internal/irq"
	"tickexec/internal/sched"
)

// Raiser sets a signal flag.
type Raiser interface {
	Raise(id irq.SignalID)
}

// Queue is a bounded FIFO owned by the executor's tasks. It is not safe for
// use from interrupt context.
type Queue[T any] struct {
	buf      *circularbuffer.Queue
	capacity int
	signals  Raiser
	notEmpty irq.SignalID
	notFull  irq.SignalID
}

// New creates a queue holding at most capacity values. Pushing raises
// notEmpty and popping raises notFull on signals.
func New[T any](capacity int, signals Raiser, notEmpty, notFull irq.SignalID) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		buf:      circularbuffer.New(capacity),
		capacity: capacity,
		signals:  signals,
		notEmpty: notEmpty,
		notFull:  notFull,
	}
}

// TryPush appends v unless the queue is full.
func (q *Queue[T]) TryPush(v T) bool {
	if q.Full() {
		return false
	}
	q.buf.Enqueue(v)
	q.signals.Raise(q.notEmpty)
	return true
}

// TryPop removes the oldest value, if any.
func (q *Queue[T]) TryPop() (T, bool) {
	var zero T
	v, ok := q.buf.Dequeue()
	if !ok {
		return zero, false
	}
	q.signals.Raise(q.notFull)
	return v.(T), true
}

// Push appends v, or suspends the task until there is room. A task that
// gets Pending must call Push again with the same value when it resumes.
func (q *Queue[T]) Push(cx *sched.Context, v T) sched.Poll {
	if q.TryPush(v) {
		return sched.Done
	}
	return cx.Wait(q.notFull)
}

// Pop removes the oldest value, or suspends the task until one arrives. A
// task that gets Pending must call Pop again when it resumes.
func (q *Queue[T]) Pop(cx *sched.Context) (T, sched.Poll) {
	if v, ok := q.TryPop(); ok {
		return v, sched.Done
	}
	var zero T
	return zero, cx.Wait(q.notEmpty)
}

// Len returns the number of queued values.
func (q *Queue[T]) Len() int { return q.buf.Size() }

// Cap returns the queue's capacity.
func (q *Queue[T]) Cap() int { return q.capacity }

// Full reports whether a push would block.
func (q *Queue[T]) Full() bool { return q.buf.Size() >= q.capacity }

// Empty reports whether a pop would block.
func (q *Queue[T]) Empty() bool { return q.buf.Empty() }
