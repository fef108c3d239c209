package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
	"github.com/Jaydccq/mini-ups-sub001/internal/ports"
)

// ShutdownTimeout is the maximum time to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// State is the lifecycle state of a world connection.
type State int

const (
	StateInit State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateReconnecting
	StateShutdown
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateDisconnected:
		return "DISCONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// transitions lists the allowed next states. SHUTDOWN is reachable from
// everywhere and leads nowhere.
var transitions = map[State][]State{
	StateInit:         {StateConnecting},
	StateConnecting:   {StateConnected, StateDisconnected},
	StateConnected:    {StateDisconnected},
	StateDisconnected: {StateReconnecting, StateConnecting},
	StateReconnecting: {StateConnected, StateDisconnected},
}

func allowed(from, to State) bool {
	if from == StateShutdown {
		return false
	}
	if to == StateShutdown {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Lifecycle is the state machine of one connection. Transitions are
// serialized and listeners see them in the same order, notified outside
// the lock.
type Lifecycle struct {
	mu      sync.RWMutex
	state   State
	wg      sync.WaitGroup
	logger  ports.Logger
	emitter EventEmitter

	// changes waits to be emitted; one goroutine drains it at a time.
	changes  []stateChange
	draining bool
}

type stateChange struct {
	from, to State
	reason   string
}

// NewLifecycle creates a lifecycle in StateInit.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:   StateInit,
		logger:  logger,
		emitter: emitter,
	}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to newState. It returns ErrShutdown once the
// connection is terminal and ErrInvalidTransition for any other move the
// state machine does not allow.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state
	if oldState == StateShutdown {
		l.mu.Unlock()
		return domain.ErrShutdown
	}
	if !allowed(oldState, newState) {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, oldState, newState)
	}
	drain := l.commit(oldState, newState, reason)
	l.mu.Unlock()

	if drain {
		l.drain()
	}
	return nil
}

// CompareAndTransition moves to newState only if the current state is from.
// It reports whether the transition happened.
func (l *Lifecycle) CompareAndTransition(from, newState State, reason string) bool {
	l.mu.Lock()
	if l.state != from || !allowed(from, newState) {
		l.mu.Unlock()
		return false
	}
	drain := l.commit(from, newState, reason)
	l.mu.Unlock()

	if drain {
		l.drain()
	}
	return true
}

// commit applies a transition and queues its notification. Caller holds
// l.mu. It reports whether the caller must drain the queue.
func (l *Lifecycle) commit(from, to State, reason string) bool {
	l.state = to
	l.changes = append(l.changes, stateChange{from: from, to: to, reason: reason})
	if l.draining {
		return false
	}
	l.draining = true
	return true
}

// drain notifies listeners until the queue is empty. Transitions made by a
// listener are queued and delivered after it returns.
func (l *Lifecycle) drain() {
	for {
		l.mu.Lock()
		if len(l.changes) == 0 {
			l.draining = false
			l.mu.Unlock()
			return
		}
		ch := l.changes[0]
		l.changes = l.changes[1:]
		l.mu.Unlock()

		if l.emitter != nil {
			l.emitter.OnStateChange(ch.from, ch.to, ch.reason)
		}
		l.logger.Info("state transition",
			ports.String("from", ch.from.String()),
			ports.String("to", ch.to.String()),
			ports.String("reason", ch.reason),
		)
	}
}

// IsShutdown reports whether the connection is terminal.
func (l *Lifecycle) IsShutdown() bool {
	return l.State() == StateShutdown
}

// AddWorker increments the worker count.
func (l *Lifecycle) AddWorker() {
	l.wg.Add(1)
}

// WorkerDone decrements the worker count.
func (l *Lifecycle) WorkerDone() {
	l.wg.Done()
}

// WaitWithTimeout waits for all workers to finish with a timeout.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, forcing exit",
			ports.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
