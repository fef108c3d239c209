package app

import (
	"sync"
	"time"

	"github.com/Jaydccq/mini-ups-sub001/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct {
	mu    sync.Mutex
	warns []string
	errs  []string
}

func (*mockLogger) Debug(msg string, fields ...ports.Field) {}
func (*mockLogger) Info(msg string, fields ...ports.Field)  {}

func (m *mockLogger) Warn(msg string, fields ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}

func (m *mockLogger) Error(msg string, fields ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, msg)
}

func (m *mockLogger) With(fields ...ports.Field) ports.Logger { return m }

func (m *mockLogger) Warnings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.warns...)
}

func (m *mockLogger) Errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.errs...)
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

// mockEmitter records events for testing.
type mockEmitter struct {
	NopEmitter

	mu        sync.Mutex
	events    []stateChangeEvent
	scheduled []time.Duration
	exhausted []int
	batches   []DispatchStats
	idles     int
}

func (m *mockEmitter) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockEmitter) OnReconnectScheduled(attempt int, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduled = append(m.scheduled, delay)
}

func (m *mockEmitter) OnReconnectExhausted(attempts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exhausted = append(m.exhausted, attempts)
}

func (m *mockEmitter) OnBatch(stats DispatchStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, stats)
}

func (m *mockEmitter) OnIdle(idle time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idles++
}

func (m *mockEmitter) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

func (m *mockEmitter) States() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]State, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.current)
	}
	return out
}

func (m *mockEmitter) Exhausted() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int{}, m.exhausted...)
}

func (m *mockEmitter) Idles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idles
}
