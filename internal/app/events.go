package app

import "time"

// EventEmitter receives connection events. Implementations must not block;
// they are called from the receive path and the reconnection timer.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
	OnBatch(stats DispatchStats)
	OnReconnectScheduled(attempt int, delay time.Duration)
	OnReconnectExhausted(attempts int)
	OnIdle(idle time.Duration)
	OnBridgeError(kind string, err error)
}

// NopEmitter ignores every event. Embed it to implement a subset.
type NopEmitter struct{}

func (NopEmitter) OnStateChange(previous, current State, reason string)  {}
func (NopEmitter) OnBatch(stats DispatchStats)                           {}
func (NopEmitter) OnReconnectScheduled(attempt int, delay time.Duration) {}
func (NopEmitter) OnReconnectExhausted(attempts int)                     {}
func (NopEmitter) OnIdle(idle time.Duration)                             {}
func (NopEmitter) OnBridgeError(kind string, err error)                  {}

// MultiEmitter fans every event out to each emitter in order.
type MultiEmitter []EventEmitter

func (m MultiEmitter) OnStateChange(previous, current State, reason string) {
	for _, e := range m {
		e.OnStateChange(previous, current, reason)
	}
}

func (m MultiEmitter) OnBatch(stats DispatchStats) {
	for _, e := range m {
		e.OnBatch(stats)
	}
}

func (m MultiEmitter) OnReconnectScheduled(attempt int, delay time.Duration) {
	for _, e := range m {
		e.OnReconnectScheduled(attempt, delay)
	}
}

func (m MultiEmitter) OnReconnectExhausted(attempts int) {
	for _, e := range m {
		e.OnReconnectExhausted(attempts)
	}
}

func (m MultiEmitter) OnIdle(idle time.Duration) {
	for _, e := range m {
		e.OnIdle(idle)
	}
}

func (m MultiEmitter) OnBridgeError(kind string, err error) {
	for _, e := range m {
		e.OnBridgeError(kind, err)
	}
}
