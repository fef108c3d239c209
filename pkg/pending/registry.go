package pending

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrDuplicate is returned when a sequence number is registered twice.
	ErrDuplicate = errors.New("pending: sequence number already registered")

	// ErrExpired resolves results dropped by Expire.
	ErrExpired = errors.New("pending: request expired")

	// ErrAbandoned resolves results dropped by Abandon.
	ErrAbandoned = errors.New("pending: request abandoned")
)

// Registry maps sequence numbers to unresolved results. It is safe for
// concurrent use.
type Registry[T any] struct {
	mu      sync.Mutex
	entries map[int64]*Result[T]
	now     func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		entries: make(map[int64]*Result[T]),
		now:     time.Now,
	}
}

// Register creates a result for seq.
func (r *Registry[T]) Register(seq int64) (*Result[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[seq]; ok {
		return nil, fmt.Errorf("%w: %d", ErrDuplicate, seq)
	}
	res := newResult[T](seq, r.now())
	r.entries[seq] = res
	return res, nil
}

// Complete resolves seq with val. It returns false if seq was not pending.
func (r *Registry[T]) Complete(seq int64, val T) bool {
	res := r.take(seq)
	if res == nil {
		return false
	}
	return res.resolve(val, nil)
}

// CompleteWithError resolves seq with err. It returns false if seq was not
// pending.
func (r *Registry[T]) CompleteWithError(seq int64, err error) bool {
	res := r.take(seq)
	if res == nil {
		return false
	}
	var zero T
	return res.resolve(zero, err)
}

// Has reports whether seq is pending.
func (r *Registry[T]) Has(seq int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[seq]
	return ok
}

// Len returns the number of unresolved results.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Expire resolves every result older than maxAge with ErrExpired and
// returns their sequence numbers.
func (r *Registry[T]) Expire(maxAge time.Duration) []int64 {
	cutoff := r.now().Add(-maxAge)

	r.mu.Lock()
	var stale []*Result[T]
	for seq, res := range r.entries {
		if res.created.Before(cutoff) {
			stale = append(stale, res)
			delete(r.entries, seq)
		}
	}
	r.mu.Unlock()

	seqs := make([]int64, 0, len(stale))
	var zero T
	for _, res := range stale {
		res.resolve(zero, fmt.Errorf("%w: seq %d", ErrExpired, res.seq))
		seqs = append(seqs, res.seq)
	}
	return seqs
}

// Abandon drops every entry, resolving each with ErrAbandoned, and returns
// how many were dropped.
func (r *Registry[T]) Abandon() int {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[int64]*Result[T])
	r.mu.Unlock()

	var zero T
	for _, res := range entries {
		res.resolve(zero, ErrAbandoned)
	}
	return len(entries)
}

func (r *Registry[T]) take(seq int64) *Result[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.entries[seq]
	if !ok {
		return nil
	}
	delete(r.entries, seq)
	return res
}
