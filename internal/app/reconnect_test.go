package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScheduler records delays and fires callbacks on demand.
type fakeScheduler struct {
	mu      sync.Mutex
	delays  []time.Duration
	pending []*fakeTimer
}

type fakeTimer struct {
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{f: f}
	s.delays = append(s.delays, d)
	s.pending = append(s.pending, t)
	return t
}

// fire runs the oldest scheduled callback. It reports false if none is due.
func (s *fakeScheduler) fire() bool {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return false
	}
	t := s.pending[0]
	s.pending = s.pending[1:]
	s.mu.Unlock()

	if t.stopped {
		return false
	}
	t.fired = true
	t.f()
	return true
}

func (s *fakeScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration{}, s.delays...)
}

func newTestPolicy(attempt AttemptFunc) (*ReconnectPolicy, *fakeScheduler, *mockEmitter) {
	sched := &fakeScheduler{}
	emitter := &mockEmitter{}
	p := NewReconnectPolicy(DefaultReconnectConfig(), attempt, &mockLogger{}, emitter)
	p.SetScheduler(sched)
	return p, sched, emitter
}

func TestReconnectPolicy_BackoffSchedule(t *testing.T) {
	calls := 0
	p, sched, emitter := newTestPolicy(func(ctx context.Context) error {
		calls++
		return errors.New("connection refused")
	})
	p.OnFailure(func(error) { p.OnDisconnected() })

	require.True(t, p.OnDisconnected())
	for sched.fire() {
	}

	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
		30000 * time.Millisecond,
		30000 * time.Millisecond,
		30000 * time.Millisecond,
		30000 * time.Millisecond,
		30000 * time.Millisecond,
	}
	assert.Equal(t, want, sched.Delays())
	assert.Equal(t, 10, calls)
	assert.True(t, p.Exhausted())
	assert.Equal(t, []int{10}, emitter.Exhausted())

	// No eleventh attempt, even on a fresh disconnect.
	assert.False(t, p.OnDisconnected())
	assert.Len(t, sched.Delays(), 10)
}

func TestReconnectPolicy_ExhaustedHookRunsOnce(t *testing.T) {
	p, sched, _ := newTestPolicy(func(ctx context.Context) error {
		return errors.New("refused")
	})
	hooks := 0
	p.OnExhausted(func(attempts int) {
		hooks++
		assert.Equal(t, 10, attempts)
	})
	p.OnFailure(func(error) { p.OnDisconnected() })

	p.OnDisconnected()
	for sched.fire() {
	}
	assert.Equal(t, 1, hooks)
}

func TestReconnectPolicy_SuccessResets(t *testing.T) {
	fail := 3
	p, sched, _ := newTestPolicy(func(ctx context.Context) error {
		if fail > 0 {
			fail--
			return errors.New("refused")
		}
		return nil
	})
	p.OnFailure(func(error) { p.OnDisconnected() })

	p.OnDisconnected()
	for sched.fire() {
	}
	assert.Equal(t, 0, p.Attempts())
	assert.False(t, p.InProgress())

	// The next disconnect starts over at the initial delay.
	require.True(t, p.OnDisconnected())
	delays := sched.Delays()
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, time.Second}, delays)
}

func TestReconnectPolicy_OneInFlight(t *testing.T) {
	p, sched, _ := newTestPolicy(func(ctx context.Context) error { return nil })

	assert.True(t, p.OnDisconnected())
	assert.False(t, p.OnDisconnected())
	assert.False(t, p.OnDisconnected())
	assert.True(t, p.InProgress())
	assert.Len(t, sched.Delays(), 1)
	assert.Equal(t, 1, p.Attempts())
}

func TestReconnectPolicy_DisconnectDuringAttempt(t *testing.T) {
	tests := []struct {
		name      string
		down      func() bool
		wantDelay int
	}{
		{name: "no down check", down: nil, wantDelay: 2},
		{name: "still down", down: func() bool { return true }, wantDelay: 2},
		{name: "connected again", down: func() bool { return false }, wantDelay: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p *ReconnectPolicy
			calls := 0
			p, sched, _ := newTestPolicy(func(ctx context.Context) error {
				calls++
				if calls == 1 {
					// The fresh socket drops before the attempt returns.
					assert.False(t, p.OnDisconnected())
				}
				return nil
			})
			if tt.down != nil {
				p.DownCheck(tt.down)
			}

			require.True(t, p.OnDisconnected())
			require.True(t, sched.fire())
			assert.Len(t, sched.Delays(), tt.wantDelay)
			assert.Equal(t, tt.wantDelay == 2, p.InProgress())
		})
	}
}

func TestReconnectPolicy_StopSuppresses(t *testing.T) {
	calls := 0
	p, sched, _ := newTestPolicy(func(ctx context.Context) error {
		calls++
		return nil
	})

	p.OnDisconnected()
	p.Stop()
	assert.False(t, sched.fire())
	assert.Equal(t, 0, calls)
	assert.False(t, p.OnDisconnected())
}

func TestReconnectPolicy_StopDuringAttempt(t *testing.T) {
	p, sched, _ := newTestPolicy(nil)
	failures := 0
	p.attempt = func(ctx context.Context) error {
		p.Stop()
		return ctx.Err()
	}
	p.OnFailure(func(error) {
		failures++
		p.OnDisconnected()
	})

	p.OnDisconnected()
	require.True(t, sched.fire())
	assert.Equal(t, 1, failures)
	assert.False(t, p.Exhausted())
	assert.Len(t, sched.Delays(), 1)
}

func TestReconnectPolicy_ResetAfterExhaustion(t *testing.T) {
	cfg := DefaultReconnectConfig()
	cfg.MaxAttempts = 2
	sched := &fakeScheduler{}
	p := NewReconnectPolicy(cfg, func(ctx context.Context) error { return errors.New("down") }, &mockLogger{}, nil)
	p.SetScheduler(sched)
	p.OnFailure(func(error) { p.OnDisconnected() })

	p.OnDisconnected()
	for sched.fire() {
	}
	require.True(t, p.Exhausted())

	p.Reset()
	assert.False(t, p.Exhausted())
	assert.True(t, p.OnDisconnected())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, time.Second}, sched.Delays())
}

func TestReconnectPolicy_CustomSchedule(t *testing.T) {
	cfg := ReconnectConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     3,
		MaxAttempts:    4,
	}
	sched := &fakeScheduler{}
	p := NewReconnectPolicy(cfg, func(ctx context.Context) error { return errors.New("down") }, &mockLogger{}, nil)
	p.SetScheduler(sched)
	p.OnFailure(func(error) { p.OnDisconnected() })

	p.OnDisconnected()
	for sched.fire() {
	}

	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		300 * time.Millisecond,
		900 * time.Millisecond,
		time.Second,
	}, sched.Delays())
}
