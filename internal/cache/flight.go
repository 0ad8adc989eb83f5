package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// State is the outcome of a GetOrStart call.
type State int

const (
	Pending State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Factory produces the value for a key. It runs on its own goroutine.
type Factory[T any] func(ctx context.Context) (T, error)

// Flight caches a single value for the current key. Asking for a new key
// supersedes the previous one: a fetch still in flight for the old key is
// not cancelled, its result is just dropped.
type Flight[T any] struct {
	ctx   context.Context
	group singleflight.Group

	mu     sync.Mutex
	active bool
	key    string
	state  State
	val    T
	err    error
	gen    uint64

	onDone func(key string, err error)
}

// NewFlight returns a cache whose factories run under ctx. onDone, if
// non-nil, is called after every fetch that completes for a current key.
func NewFlight[T any](ctx context.Context, onDone func(key string, err error)) *Flight[T] {
	return &Flight[T]{ctx: ctx, state: Pending, onDone: onDone}
}

// GetOrStart returns the cached value for key, starting factory if nothing
// for key is cached or in flight. It never blocks on the factory.
func (f *Flight[T]) GetOrStart(key string, factory Factory[T]) (T, State, error) {
	f.mu.Lock()
	if f.active && key == f.key {
		v, st, err := f.val, f.state, f.err
		f.mu.Unlock()
		return v, st, err
	}
	var zero T
	f.gen++
	gen := f.gen
	f.active = true
	f.key, f.state, f.val, f.err = key, Pending, zero, nil
	f.mu.Unlock()

	ch := f.group.DoChan(key, func() (any, error) {
		return factory(f.ctx)
	})
	go f.await(key, gen, ch)
	return zero, Pending, nil
}

func (f *Flight[T]) await(key string, gen uint64, ch <-chan singleflight.Result) {
	res := <-ch
	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return
	}
	if res.Err != nil {
		f.state, f.err = Failed, res.Err
	} else {
		v, _ := res.Val.(T)
		f.state, f.val = Ready, v
	}
	f.mu.Unlock()
	if f.onDone != nil {
		f.onDone(key, res.Err)
	}
}

// Key returns the key currently being tracked.
func (f *Flight[T]) Key() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.key
}

// Forget drops the current entry so the next GetOrStart refetches.
func (f *Flight[T]) Forget() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	var zero T
	f.active = false
	f.key, f.state, f.val, f.err = "", Pending, zero, nil
}
