package app

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
	"github.com/Jaydccq/mini-ups-sub001/internal/ports"
)

// Default reconnection settings.
const (
	DefaultInitialBackoff       = time.Second
	DefaultMaxBackoff           = 30 * time.Second
	DefaultBackoffMultiplier    = 2.0
	DefaultMaxReconnectAttempts = 10
)

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ReconnectConfig holds the backoff schedule.
type ReconnectConfig struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	MaxAttempts    int
}

// DefaultReconnectConfig returns the default schedule:
// 1s, 2s, 4s, 8s, 16s, then 30s, ten attempts in total.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		Multiplier:     DefaultBackoffMultiplier,
		MaxAttempts:    DefaultMaxReconnectAttempts,
	}
}

// AttemptFunc re-establishes the connection. A nil error means connected.
type AttemptFunc func(ctx context.Context) error

// ReconnectPolicy schedules reconnection attempts with exponential backoff.
// At most one attempt is scheduled or running at a time.
type ReconnectPolicy struct {
	cfg       ReconnectConfig
	attempt   AttemptFunc
	scheduler Scheduler
	logger    ports.Logger
	emitter   EventEmitter

	// onFailure runs after a failed attempt, outside the lock.
	onFailure func(err error)
	// onExhausted runs once when the attempt budget is spent.
	onExhausted func(attempts int)
	// isDown reports whether the connection is down again. Consulted after a
	// successful attempt that raced with a disconnect.
	isDown func() bool

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	b          *backoff.ExponentialBackOff
	attempts   int
	inProgress bool
	missed     bool
	exhausted  bool
	stopped    bool
	timer      Timer
}

// NewReconnectPolicy creates a policy that calls attempt for each retry.
func NewReconnectPolicy(cfg ReconnectConfig, attempt AttemptFunc, logger ports.Logger, emitter EventEmitter) *ReconnectPolicy {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ReconnectPolicy{
		cfg:       cfg,
		attempt:   attempt,
		scheduler: timeScheduler{},
		logger:    logger,
		emitter:   emitter,
		ctx:       ctx,
		cancel:    cancel,
		b:         newExponentialBackOff(cfg),
	}
}

func newExponentialBackOff(cfg ReconnectConfig) *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     cfg.InitialBackoff,
		RandomizationFactor: 0,
		Multiplier:          cfg.Multiplier,
		MaxInterval:         cfg.MaxBackoff,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

// SetScheduler replaces the timer source. Call before the first disconnect.
func (p *ReconnectPolicy) SetScheduler(s Scheduler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scheduler = s
}

// OnFailure sets the hook run after every failed attempt.
func (p *ReconnectPolicy) OnFailure(fn func(err error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFailure = fn
}

// OnExhausted sets the hook run when the policy gives up.
func (p *ReconnectPolicy) OnExhausted(fn func(attempts int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onExhausted = fn
}

// DownCheck sets the function that reports whether the connection is down.
// Without one, a disconnect seen during an attempt always reschedules.
func (p *ReconnectPolicy) DownCheck(fn func() bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isDown = fn
}

// OnDisconnected schedules the next attempt. It reports whether one was
// scheduled. After Stop or once the policy is exhausted it does nothing.
// While an attempt is pending the disconnect is remembered and rechecked
// when that attempt succeeds.
func (p *ReconnectPolicy) OnDisconnected() bool {
	p.mu.Lock()
	if p.stopped || p.exhausted {
		p.mu.Unlock()
		return false
	}
	if p.inProgress {
		p.missed = true
		p.mu.Unlock()
		return false
	}
	p.attempts++
	attempt := p.attempts
	delay := p.b.NextBackOff()
	p.inProgress = true
	p.timer = p.scheduler.AfterFunc(delay, p.run)
	p.mu.Unlock()

	p.logger.Info("reconnect scheduled",
		ports.Int("attempt", attempt),
		ports.Int("max_attempts", p.cfg.MaxAttempts),
		ports.Duration("delay", delay),
	)
	p.emitter.OnReconnectScheduled(attempt, delay)
	return true
}

// OnConnected resets the policy after any successful connection.
func (p *ReconnectPolicy) OnConnected() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts = 0
	p.b.Reset()
}

func (p *ReconnectPolicy) run() {
	p.mu.Lock()
	if p.stopped {
		p.inProgress = false
		p.mu.Unlock()
		return
	}
	attempt := p.attempts
	p.mu.Unlock()

	err := p.attempt(p.ctx)

	p.mu.Lock()
	p.inProgress = false
	missed := p.missed
	p.missed = false
	if err == nil {
		p.attempts = 0
		p.b.Reset()
		isDown := p.isDown
		p.mu.Unlock()
		p.logger.Info("reconnected", ports.Int("attempt", attempt))

		// The new socket may have died before this attempt was marked done.
		if missed && (isDown == nil || isDown()) {
			p.logger.Warn("connection lost during reconnect, rescheduling")
			p.OnDisconnected()
		}
		return
	}
	exhausted := !p.stopped && p.attempts >= p.cfg.MaxAttempts
	if exhausted {
		p.exhausted = true
	}
	onFailure, onExhausted := p.onFailure, p.onExhausted
	p.mu.Unlock()

	p.logger.Warn("reconnect attempt failed",
		ports.Int("attempt", attempt),
		ports.Err(err),
	)

	if exhausted {
		p.logger.Error("reconnect attempts exhausted",
			ports.Int("attempts", attempt),
			ports.Err(domain.ErrReconnectExhausted),
		)
		p.emitter.OnReconnectExhausted(attempt)
		if onExhausted != nil {
			onExhausted(attempt)
		}
	}
	if onFailure != nil {
		onFailure(err)
	}
}

// Reset clears the attempt count and the exhausted flag so that the next
// disconnect schedules again.
func (p *ReconnectPolicy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts = 0
	p.exhausted = false
	p.b.Reset()
}

// Stop cancels any scheduled attempt and suppresses future ones.
func (p *ReconnectPolicy) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.missed = false
	if p.timer != nil && p.timer.Stop() {
		p.inProgress = false
	}
	p.mu.Unlock()
	p.cancel()
}

// Attempts returns the number of attempts since the last success.
func (p *ReconnectPolicy) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

// InProgress reports whether an attempt is scheduled or running.
func (p *ReconnectPolicy) InProgress() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inProgress
}

// Exhausted reports whether the policy gave up.
func (p *ReconnectPolicy) Exhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exhausted
}
