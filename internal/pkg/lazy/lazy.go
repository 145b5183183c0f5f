// Package lazy builds expensive clients on first use.
package lazy

import (
	"context"
	"sync"
)

// Value holds a T built by an init function on the first Get. A successful
// result is cached for the lifetime of the Value. A failed init is not cached
// and the next Get tries again.
type Value[T any] struct {
	init func(ctx context.Context) (T, error)

	mu       sync.Mutex
	value    T
	ready    bool
	inflight chan struct{}
}

func New[T any](init func(ctx context.Context) (T, error)) *Value[T] {
	return &Value[T]{init: init}
}

// Get returns the cached value or runs init. Concurrent callers wait for a
// single in-flight init, each bounded by its own ctx. The lock is never held
// while init runs.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	for {
		v.mu.Lock()
		if v.ready {
			value := v.value
			v.mu.Unlock()
			return value, nil
		}

		if wait := v.inflight; wait != nil {
			v.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				var zero T
				return zero, ctx.Err()
			}
		}

		done := make(chan struct{})
		v.inflight = done
		v.mu.Unlock()

		value, err := v.init(ctx)

		v.mu.Lock()
		if err == nil {
			v.value = value
			v.ready = true
		}
		v.inflight = nil
		v.mu.Unlock()
		close(done)

		if err != nil {
			var zero T
			return zero, err
		}
		return value, nil
	}
}

// Peek returns the value only if it was already built.
func (v *Value[T]) Peek() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value, v.ready
}
