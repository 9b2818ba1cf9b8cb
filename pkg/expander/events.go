package expander

import (
	"context"
	"sync"
)

// Result is a provider's answer to a ChangeEvent.
type Result struct {
	Matched  bool
	Fragment Popup
}

// Resolver produces a Result off the event loop. ctx is canceled once the
// match it was asked about is superseded.
type Resolver func(ctx context.Context) (Result, error)

// ChangeEvent announces a new match to providers.
type ChangeEvent struct {
	Text string
	Key  string

	ctx       context.Context
	resolvers []Resolver
	canceled  bool
}

// Context is canceled when the match is superseded or dropped.
func (e *ChangeEvent) Context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

// Provide registers a resolver. Results are ranked by the order of the
// Provide calls, not by which resolves first.
func (e *ChangeEvent) Provide(r Resolver) {
	if r != nil {
		e.resolvers = append(e.resolvers, r)
	}
}

// Cancel declines the match. No popup is shown for it.
func (e *ChangeEvent) Cancel() {
	e.canceled = true
}

func (e *ChangeEvent) Canceled() bool {
	return e.canceled
}

// ValueEvent asks for the text that replaces a match when item is
// committed. Leaving Value empty or canceling inserts nothing.
type ValueEvent struct {
	Item  any
	Key   string
	Value string

	canceled bool
}

func (e *ValueEvent) Cancel() {
	e.canceled = true
}

func (e *ValueEvent) Canceled() bool {
	return e.canceled
}

// CommittedEvent reports an applied commit.
type CommittedEvent struct {
	Field Field
	Item  any
	Key   string
	Value string
}

type listener[E any] struct {
	id int
	fn func(E)
}

// listeners is an ordered listener list. Removal funcs are idempotent.
type listeners[E any] struct {
	mu   sync.Mutex
	next int
	list []listener[E]
}

func (l *listeners[E]) add(fn func(E)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.next++
	id := l.next
	l.list = append(l.list, listener[E]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *listeners[E]) remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, ln := range l.list {
		if ln.id == id {
			l.list = append(l.list[:i:i], l.list[i+1:]...)
			return
		}
	}
}

func (l *listeners[E]) snapshot() []func(E) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fns := make([]func(E), len(l.list))
	for i, ln := range l.list {
		fns[i] = ln.fn
	}
	return fns
}

func (l *listeners[E]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.list)
}

func (l *listeners[E]) emit(e E) {
	for _, fn := range l.snapshot() {
		fn(e)
	}
}
