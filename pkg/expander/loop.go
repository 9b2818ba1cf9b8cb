package expander

import "context"

// Loop runs functions on the goroutine that owns a field. Controllers
// only touch their field from that goroutine; provider results are
// posted back through it.
type Loop interface {
	Post(fn func())
}

// LoopFunc adapts a function to Loop, e.g. a bubbletea program's Send.
type LoopFunc func(fn func())

func (l LoopFunc) Post(fn func()) { l(fn) }

// Queue is a Loop for hosts without an event loop of their own.
type Queue struct {
	ch chan func()
}

// NewQueue returns a queue buffering up to size posted functions.
func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan func(), max(size, 1))}
}

// Post enqueues fn. It blocks while the queue is full.
func (q *Queue) Post(fn func()) {
	q.ch <- fn
}

// Run executes posted functions until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case fn := <-q.ch:
			fn()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Step waits for one posted function and runs it. It returns false if
// ctx ends first.
func (q *Queue) Step(ctx context.Context) bool {
	select {
	case fn := <-q.ch:
		fn()
		return true
	case <-ctx.Done():
		return false
	}
}

// Drain runs whatever is queued without waiting and returns the count.
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case fn := <-q.ch:
			fn()
			n++
		default:
			return n
		}
	}
}

// C exposes the queue for hosts that multiplex it with other channels.
func (q *Queue) C() <-chan func() {
	return q.ch
}
