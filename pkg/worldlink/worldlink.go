package worldlink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Jaydccq/mini-ups-sub001/internal/adapters/fs"
	logAdapter "github.com/Jaydccq/mini-ups-sub001/internal/adapters/log"
	"github.com/Jaydccq/mini-ups-sub001/internal/adapters/memory"
	"github.com/Jaydccq/mini-ups-sub001/internal/adapters/metrics"
	"github.com/Jaydccq/mini-ups-sub001/internal/app"
	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
	"github.com/Jaydccq/mini-ups-sub001/internal/ports"
	"github.com/Jaydccq/mini-ups-sub001/pkg/pending"
)

// Worldlink is a world simulator connection that can be embedded in other
// applications. Use New() to create an instance, then Start() to connect.
// An instance is single use: after Stop() create a new one.
type Worldlink struct {
	config   Config
	opts     options
	logger   ports.Logger
	bridge   ports.Bridge
	sessions ports.SessionRepository
	emitter  app.EventEmitter
	plugins  []Plugin

	mu      sync.RWMutex
	conn    *app.Connector
	stopped bool
	cancel  context.CancelFunc
}

// New creates a new Worldlink with the given configuration.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Worldlink, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var logger ports.Logger = logAdapter.NewNoopLogger()
	if o.logger != nil {
		logger = o.logger
	}

	bridge := o.bridge
	if bridge == nil {
		bridge = app.NewBridge(memory.NewStore(), nil)
	}

	sessions := o.sessions
	if sessions == nil && cfg.StateDir != "" {
		sessions = fs.NewSessionFileRepository(cfg.StateDir)
	}

	var emitters app.MultiEmitter
	if o.eventHandler != nil {
		emitters = append(emitters, &eventEmitterWrapper{handler: o.eventHandler})
	}
	if o.registerer != nil {
		emitters = append(emitters, metrics.New(o.registerer))
	}

	return &Worldlink{
		config:   cfg,
		opts:     o,
		logger:   logger,
		bridge:   bridge,
		sessions: sessions,
		emitter:  emitters,
		plugins:  o.plugins,
	}, nil
}

// Start connects to the world and initializes plugins.
//
// If the first attempt fails its error is returned, but the reconnection
// policy keeps trying in the background; call Stop to give up. A plugin
// failure shuts the connection down and is reported as ErrPluginInit.
// Start may only be called once.
func (w *Worldlink) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn != nil {
		return domain.ErrAlreadyRunning
	}

	cc := w.config.connectorConfig()
	seq := w.opts.sequencer
	if seq == nil {
		seq = pending.NewSequencer(0)
	}
	w.restoreSession(ctx, &cc, seq)

	conn := app.NewConnector(cc, app.ConnectorDeps{
		Bridge:    w.bridge,
		Logger:    w.logger,
		Emitter:   w.emitter,
		Dialer:    w.opts.dialer,
		Sequencer: seq,
		Sessions:  w.sessions,
	})
	w.conn = conn

	runCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	connectErr := conn.Connect(ctx)
	if connectErr != nil {
		w.logger.Warn("first connection attempt failed", ports.Err(connectErr))
	}

	pluginCfg := PluginConfig{
		Address:  cc.Address(),
		WorldID:  conn.WorldID(),
		StateDir: w.config.StateDir,
		Logger:   w.logger,
		Resume:   conn.Resume,
	}
	for _, p := range w.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			w.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			conn.Shutdown()
			w.stopped = true
			return fmt.Errorf("%w: %s: %w", domain.ErrPluginInit, p.Name(), err)
		}
		w.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	return connectErr
}

// restoreSession rejoins the saved world and skips used sequence numbers.
func (w *Worldlink) restoreSession(ctx context.Context, cc *app.ConnectorConfig, seq *pending.Sequencer) {
	if w.sessions == nil {
		return
	}
	sess, err := w.sessions.Load(ctx)
	if err != nil {
		w.logger.Warn("failed to load session, starting fresh", ports.Err(err))
		return
	}
	if cc.WorldID == 0 && sess.WorldID > 0 {
		cc.WorldID = sess.WorldID
		w.logger.Info("rejoining saved world", ports.Int64("world_id", sess.WorldID))
	}
	if sess.NextSeq > 0 {
		seq.Advance(sess.NextSeq - 1)
	}
}

// Stop closes the connection, fails every pending request with
// pending.ErrAbandoned, persists the session and shuts plugins down.
// Waits up to 30 seconds for connection goroutines to exit.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (w *Worldlink) Stop() error {
	w.mu.Lock()
	conn := w.conn
	if conn == nil || w.stopped {
		w.mu.Unlock()
		return domain.ErrNotRunning
	}
	w.stopped = true
	w.mu.Unlock()

	conn.Shutdown()
	err := conn.Wait(app.ShutdownTimeout)

	if w.cancel != nil {
		w.cancel()
	}

	shutdownCtx := context.Background()
	for i := len(w.plugins) - 1; i >= 0; i-- {
		p := w.plugins[i]
		if shutdownErr := p.Shutdown(shutdownCtx); shutdownErr != nil {
			w.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(shutdownErr))
		} else {
			w.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}

	return err
}

// Status returns the current connection state.
// Safe to call concurrently from any goroutine.
func (w *Worldlink) Status() State {
	conn := w.connector()
	if conn == nil {
		return StateStopped
	}
	return convertState(conn.State())
}

// WorldID returns the world id, which is only known for a new world after
// the first successful handshake.
func (w *Worldlink) WorldID() int64 {
	if conn := w.connector(); conn != nil {
		return conn.WorldID()
	}
	return w.config.WorldID
}

// Pending returns the number of requests waiting for an answer.
func (w *Worldlink) Pending() int {
	if conn := w.connector(); conn != nil {
		return conn.Pending()
	}
	return 0
}

// Fatal delivers ErrReconnectExhausted once the reconnection policy gives
// up. Returns nil before Start.
func (w *Worldlink) Fatal() <-chan error {
	if conn := w.connector(); conn != nil {
		return conn.Fatal()
	}
	return nil
}

// Resume resets the reconnection policy and schedules a new attempt if the
// connection is down. Used after the operator fixed whatever made the
// policy give up.
func (w *Worldlink) Resume() bool {
	if conn := w.connector(); conn != nil {
		return conn.Resume()
	}
	return false
}

// Pickup sends a truck to a warehouse.
func (w *Worldlink) Pickup(ctx context.Context, truckID, warehouseID int32) (*Result, error) {
	conn, err := w.running()
	if err != nil {
		return nil, err
	}
	return conn.Pickup(ctx, truckID, warehouseID)
}

// Deliver sends a loaded truck to drop off packages.
func (w *Worldlink) Deliver(ctx context.Context, truckID int32, packages []DeliveryLocation) (*Result, error) {
	conn, err := w.running()
	if err != nil {
		return nil, err
	}
	return conn.Deliver(ctx, truckID, packages)
}

// Query asks for a truck's current status.
func (w *Worldlink) Query(ctx context.Context, truckID int32) (*Result, error) {
	conn, err := w.running()
	if err != nil {
		return nil, err
	}
	return conn.Query(ctx, truckID)
}

// SetSimSpeed changes the simulation speed. It is not correlated.
func (w *Worldlink) SetSimSpeed(ctx context.Context, speed uint32) error {
	conn, err := w.running()
	if err != nil {
		return err
	}
	return conn.SetSimSpeed(ctx, speed)
}

func (w *Worldlink) connector() *app.Connector {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.conn
}

func (w *Worldlink) running() (*app.Connector, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.conn == nil || w.stopped {
		return nil, domain.ErrNotRunning
	}
	return w.conn, nil
}

// IsExhausted reports whether err means the connection gave up reconnecting.
func IsExhausted(err error) bool {
	return errors.Is(err, domain.ErrReconnectExhausted)
}

// IsPluginFailure reports whether err means Start shut the connection down
// because a plugin could not be initialized.
func IsPluginFailure(err error) bool {
	return errors.Is(err, domain.ErrPluginInit)
}

// eventEmitterWrapper adapts EventHandler to app.EventEmitter.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnBatch(stats app.DispatchStats) {
	e.handler.OnBatch(BatchEvent{
		Entries:  stats.Entries(),
		Failures: stats.Failures,
		Duration: stats.Duration,
	})
}

func (e *eventEmitterWrapper) OnReconnectScheduled(attempt int, delay time.Duration) {
	e.handler.OnReconnect(ReconnectEvent{Attempt: attempt, Delay: delay})
}

func (e *eventEmitterWrapper) OnReconnectExhausted(attempts int) {
	e.handler.OnReconnect(ReconnectEvent{Attempt: attempts, Exhausted: true})
}

func (e *eventEmitterWrapper) OnIdle(idle time.Duration) {
	e.handler.OnIdle(IdleEvent{Idle: idle})
}

func (e *eventEmitterWrapper) OnBridgeError(kind string, err error) {
	e.handler.OnBridgeError(BridgeErrorEvent{Kind: kind, Error: err})
}

func convertState(s app.State) State {
	switch s {
	case app.StateConnecting:
		return StateConnecting
	case app.StateConnected:
		return StateConnected
	case app.StateDisconnected:
		return StateDisconnected
	case app.StateReconnecting:
		return StateReconnecting
	case app.StateShutdown:
		return StateShutdown
	default:
		return StateStopped
	}
}
