package pending

import (
	"context"
	"sync"
	"time"
)

// Result is a one-shot cell resolved with either a value or an error.
type Result[T any] struct {
	seq     int64
	created time.Time

	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func newResult[T any](seq int64, now time.Time) *Result[T] {
	return &Result[T]{seq: seq, created: now, done: make(chan struct{})}
}

// Seq returns the sequence number the result was registered under.
func (r *Result[T]) Seq() int64 { return r.seq }

// CreatedAt returns the registration time.
func (r *Result[T]) CreatedAt() time.Time { return r.created }

// Done is closed once the result is resolved.
func (r *Result[T]) Done() <-chan struct{} { return r.done }

// Wait blocks until the result resolves or ctx ends. A context error does
// not resolve the result.
func (r *Result[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (r *Result[T]) resolve(val T, err error) bool {
	resolved := false
	r.once.Do(func() {
		r.val, r.err = val, err
		close(r.done)
		resolved = true
	})
	return resolved
}
