package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/tomb.v2"

	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
	"github.com/Jaydccq/mini-ups-sub001/internal/ports"
	"github.com/Jaydccq/mini-ups-sub001/internal/world"
	"github.com/Jaydccq/mini-ups-sub001/pkg/frame"
	"github.com/Jaydccq/mini-ups-sub001/pkg/pending"
)

// Default connection settings.
const (
	DefaultConnectTimeout  = 5 * time.Second
	DefaultReadIdleTimeout = 60 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
)

// errPeerClosed is the close reason when the world ends the stream.
var errPeerClosed = errors.New("peer closed connection")

// ConnectorConfig configures a Connector.
type ConnectorConfig struct {
	Host    string
	Port    int
	WorldID int64

	ConnectTimeout  time.Duration
	ReadIdleTimeout time.Duration
	WriteTimeout    time.Duration

	// PendingTimeout expires unanswered requests. Zero disables expiry.
	PendingTimeout time.Duration

	// AutoAck acknowledges every inbound entry after dispatch.
	AutoAck bool

	// Trucks are placed when WorldID is zero and a new world is created.
	Trucks []world.InitTruck

	Reconnect ReconnectConfig
	Limits    frame.Limits
}

// DefaultConnectorConfig returns the default configuration.
func DefaultConnectorConfig() ConnectorConfig {
	return ConnectorConfig{
		Host:            "127.0.0.1",
		Port:            12345,
		ConnectTimeout:  DefaultConnectTimeout,
		ReadIdleTimeout: DefaultReadIdleTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		AutoAck:         true,
		Reconnect:       DefaultReconnectConfig(),
		Limits:          frame.DefaultLimits(),
	}
}

// Address returns host:port.
func (c ConnectorConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ConnectorDeps are the collaborators of a Connector. Bridge is required.
type ConnectorDeps struct {
	Bridge    ports.Bridge
	Logger    ports.Logger
	Emitter   EventEmitter
	Dialer    ports.Dialer
	Sequencer *pending.Sequencer
	Sessions  ports.SessionRepository
	Scheduler Scheduler

	// IdleHook runs when the read watchdog fires, after the warning is logged.
	IdleHook func(idle time.Duration)
}

// socket is one established stream and the goroutines that serve it.
type socket struct {
	conn     net.Conn
	reader   *frame.Reader
	t        tomb.Tomb
	lastRead atomic.Int64
}

func (s *socket) touch() { s.lastRead.Store(time.Now().UnixNano()) }

func (s *socket) lastActivity() time.Time { return time.Unix(0, s.lastRead.Load()) }

// activityReader records when bytes last arrived.
type activityReader struct {
	s *socket
}

func (r activityReader) Read(p []byte) (int, error) {
	n, err := r.s.conn.Read(p)
	if n > 0 {
		r.s.touch()
	}
	return n, err
}

// Connector owns the connection to the world simulator: the socket, its
// state machine, request correlation and reconnection.
type Connector struct {
	cfg        ConnectorConfig
	logger     ports.Logger
	emitter    EventEmitter
	dialer     ports.Dialer
	sessions   ports.SessionRepository
	idleHook   func(time.Duration)
	lifecycle  *Lifecycle
	policy     *ReconnectPolicy
	registry   *pending.Registry[domain.Reply]
	seq        *pending.Sequencer
	dispatcher *Dispatcher

	mu      sync.Mutex
	sock    *socket
	worldID int64

	writeMu sync.Mutex

	fatal        chan error
	done         chan struct{}
	shutdownOnce sync.Once
	expiryOnce   sync.Once
}

// NewConnector creates a connector in state INIT.
func NewConnector(cfg ConnectorConfig, deps ConnectorDeps) *Connector {
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	logger = logger.With(ports.String("world", cfg.Address()))

	emitter := deps.Emitter
	if emitter == nil {
		emitter = NopEmitter{}
	}
	dialer := deps.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	seq := deps.Sequencer
	if seq == nil {
		seq = pending.NewSequencer(0)
	}
	if cfg.Limits.MaxPayloadBytes == 0 {
		cfg.Limits = frame.DefaultLimits()
	}

	registry := pending.NewRegistry[domain.Reply]()
	c := &Connector{
		cfg:        cfg,
		logger:     logger,
		emitter:    emitter,
		dialer:     dialer,
		sessions:   deps.Sessions,
		idleHook:   deps.IdleHook,
		lifecycle:  NewLifecycle(logger, emitter),
		registry:   registry,
		seq:        seq,
		dispatcher: NewDispatcher(deps.Bridge, registry, logger, emitter),
		worldID:    cfg.WorldID,
		fatal:      make(chan error, 1),
		done:       make(chan struct{}),
	}

	c.policy = NewReconnectPolicy(cfg.Reconnect, c.reconnect, logger, emitter)
	if deps.Scheduler != nil {
		c.policy.SetScheduler(deps.Scheduler)
	}
	c.policy.OnFailure(c.reconnectFailed)
	c.policy.DownCheck(func() bool { return c.lifecycle.State() == StateDisconnected })
	c.policy.OnExhausted(func(attempts int) {
		select {
		case c.fatal <- fmt.Errorf("%w after %d attempts", domain.ErrReconnectExhausted, attempts):
		default:
		}
	})
	return c
}

// Connect dials the world and completes the identification exchange. If it
// fails the reconnection policy takes over in the background.
func (c *Connector) Connect(ctx context.Context) error {
	if err := c.lifecycle.TransitionTo(StateConnecting, "connect"); err != nil {
		return err
	}
	c.startExpiry()

	if err := c.establish(ctx, StateConnecting); err != nil {
		if c.lifecycle.CompareAndTransition(StateConnecting, StateDisconnected, err.Error()) {
			c.policy.OnDisconnected()
		}
		return err
	}
	return nil
}

// establish dials, handshakes and starts the socket goroutines. from is the
// state the connection must still be in once the handshake completes.
func (c *Connector) establish(ctx context.Context, from State) error {
	dialCtx := ctx
	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}

	conn, err := c.dialer.DialContext(dialCtx, "tcp", c.cfg.Address())
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.Address(), err)
	}

	s := &socket{conn: conn}
	s.reader = frame.NewReader(activityReader{s: s}, c.cfg.Limits)

	worldID, err := c.handshake(dialCtx, s)
	if err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	if !c.lifecycle.CompareAndTransition(from, StateConnected, "handshake complete") {
		c.mu.Unlock()
		conn.Close()
		return domain.ErrShutdown
	}
	c.worldID = worldID
	c.sock = s
	s.touch()
	c.startSocket(s)
	c.mu.Unlock()

	c.policy.OnConnected()
	c.logger.Info("connected to world", ports.Int64("world_id", worldID))
	c.saveSession(ctx)
	return nil
}

func (c *Connector) handshake(ctx context.Context, s *socket) (int64, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetDeadline(deadline)
		defer s.conn.SetDeadline(time.Time{})
	}

	c.mu.Lock()
	msg := world.Connect{WorldID: c.worldID}
	c.mu.Unlock()
	if msg.WorldID == 0 {
		msg.Trucks = c.cfg.Trucks
	}
	if err := frame.WriteFrame(s.conn, msg.Marshal(), c.cfg.Limits); err != nil {
		return 0, fmt.Errorf("send connect: %w", err)
	}

	payload, err := s.reader.ReadFrame()
	if err != nil {
		return 0, fmt.Errorf("read connected: %w", err)
	}
	reply, err := world.UnmarshalConnected(payload)
	if err != nil {
		return 0, fmt.Errorf("decode connected: %w", err)
	}
	if reply.Result != world.ConnectedOK {
		return 0, fmt.Errorf("%w: %s", domain.ErrHandshakeRejected, reply.Result)
	}
	return reply.WorldID, nil
}

// startSocket runs the per-socket goroutines. Caller holds c.mu.
func (c *Connector) startSocket(s *socket) {
	// The closer goes first so the tomb stays alive while the rest are added.
	s.t.Go(func() error {
		<-s.t.Dying()
		return s.conn.Close()
	})
	s.t.Go(func() error { return c.watchdog(s) })
	s.t.Go(func() error { return c.readLoop(s) })

	c.lifecycle.AddWorker()
	go func() {
		defer c.lifecycle.WorkerDone()
		err := s.t.Wait()
		c.socketClosed(s, err)
	}()
}

func (c *Connector) readLoop(s *socket) error {
	ctx := s.t.Context(nil)
	for {
		payload, err := s.reader.ReadFrame()
		if err != nil {
			if !s.t.Alive() {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return errPeerClosed
			}
			return fmt.Errorf("read: %w", err)
		}

		resp, err := world.UnmarshalResponses(payload)
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		batch := resp.Batch()
		stats := c.dispatcher.Dispatch(ctx, batch)
		c.logger.Debug("batch dispatched",
			ports.Int("entries", stats.Entries()),
			ports.Int("failures", stats.Failures),
		)

		if c.cfg.AutoAck {
			if seqs := batch.EntrySeqs(); len(seqs) > 0 {
				if err := c.write(ctx, s, world.Commands{Acks: seqs}); err != nil {
					return fmt.Errorf("ack: %w", err)
				}
			}
		}
		if batch.Finished {
			return domain.ErrWorldFinished
		}
	}
}

func (c *Connector) watchdog(s *socket) error {
	timeout := c.cfg.ReadIdleTimeout
	if timeout <= 0 {
		<-s.t.Dying()
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	var lastFire time.Time
	for {
		select {
		case <-s.t.Dying():
			return nil
		case now := <-timer.C:
			last := s.lastActivity()
			if lastFire.After(last) {
				last = lastFire
			}
			idle := now.Sub(last)
			if idle < timeout {
				timer.Reset(timeout - idle)
				continue
			}
			c.logger.Warn("no data from world", ports.Duration("idle", idle))
			c.emitter.OnIdle(idle)
			if c.idleHook != nil {
				c.idleHook(idle)
			}
			lastFire = now
			timer.Reset(timeout)
		}
	}
}

func (c *Connector) socketClosed(s *socket, err error) {
	c.mu.Lock()
	if c.sock == s {
		c.sock = nil
	}
	c.mu.Unlock()

	if c.lifecycle.IsShutdown() {
		return
	}
	reason := "connection closed"
	if err != nil {
		reason = err.Error()
	}
	c.logger.Warn("connection lost", ports.String("reason", reason))
	if c.lifecycle.CompareAndTransition(StateConnected, StateDisconnected, reason) {
		c.policy.OnDisconnected()
	}
}

func (c *Connector) reconnect(ctx context.Context) error {
	if err := c.lifecycle.TransitionTo(StateReconnecting, "reconnect attempt"); err != nil {
		return err
	}
	return c.establish(ctx, StateReconnecting)
}

func (c *Connector) reconnectFailed(err error) {
	if c.lifecycle.CompareAndTransition(StateReconnecting, StateDisconnected, err.Error()) {
		c.policy.OnDisconnected()
	}
}

// Resume clears an exhausted reconnection policy and, if disconnected,
// schedules a new attempt. It reports whether an attempt was scheduled.
func (c *Connector) Resume() bool {
	c.policy.Reset()
	if c.lifecycle.State() != StateDisconnected {
		return false
	}
	c.logger.Info("resuming reconnection")
	return c.policy.OnDisconnected()
}

// Shutdown closes the connection for good. It is idempotent and safe to
// call from any goroutine. Pending requests resolve with
// pending.ErrAbandoned.
func (c *Connector) Shutdown() {
	c.shutdownOnce.Do(func() {
		_ = c.lifecycle.TransitionTo(StateShutdown, "shutdown")
		c.policy.Stop()
		close(c.done)

		c.mu.Lock()
		s := c.sock
		c.sock = nil
		c.mu.Unlock()

		if s != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			if err := c.write(ctx, s, world.Commands{Disconnect: true}); err != nil {
				c.logger.Debug("disconnect notice not sent", ports.Err(err))
			}
			cancel()
			s.t.Kill(nil)
		}

		if n := c.registry.Abandon(); n > 0 {
			c.logger.Info("abandoned pending requests", ports.Int("count", n))
		}
		c.saveSession(context.Background())
	})
}

// Wait blocks until every connection goroutine has exited or timeout passes.
func (c *Connector) Wait(timeout time.Duration) error {
	return c.lifecycle.WaitWithTimeout(timeout)
}

// Pickup sends a truck to a warehouse.
func (c *Connector) Pickup(ctx context.Context, truckID, warehouseID int32) (*pending.Result[domain.Reply], error) {
	seq := c.seq.Next()
	return c.request(ctx, seq, world.Commands{
		Pickups: []world.GoPickup{{TruckID: truckID, WarehouseID: warehouseID, Seq: seq}},
	})
}

// Deliver sends a loaded truck to drop off packages.
func (c *Connector) Deliver(ctx context.Context, truckID int32, packages []world.DeliveryLocation) (*pending.Result[domain.Reply], error) {
	seq := c.seq.Next()
	return c.request(ctx, seq, world.Commands{
		Deliveries: []world.GoDeliver{{TruckID: truckID, Packages: packages, Seq: seq}},
	})
}

// Query asks the world for a truck's status.
func (c *Connector) Query(ctx context.Context, truckID int32) (*pending.Result[domain.Reply], error) {
	seq := c.seq.Next()
	return c.request(ctx, seq, world.Commands{
		Queries: []world.Query{{TruckID: truckID, Seq: seq}},
	})
}

// SetSimSpeed changes the simulation speed. The world does not reply.
func (c *Connector) SetSimSpeed(ctx context.Context, speed uint32) error {
	return c.send(ctx, world.Commands{SimSpeed: speed})
}

// Expect registers interest in an inbound sequence number, such as the own
// sequence number of an error entry.
func (c *Connector) Expect(seq int64) (*pending.Result[domain.Reply], error) {
	return c.registry.Register(seq)
}

func (c *Connector) request(ctx context.Context, seq int64, cmds world.Commands) (*pending.Result[domain.Reply], error) {
	res, err := c.registry.Register(seq)
	if err != nil {
		return nil, err
	}
	if err := c.send(ctx, cmds); err != nil {
		c.registry.CompleteWithError(seq, err)
		return nil, err
	}
	return res, nil
}

func (c *Connector) send(ctx context.Context, cmds world.Commands) error {
	if c.lifecycle.IsShutdown() {
		return domain.ErrShutdown
	}
	c.mu.Lock()
	s := c.sock
	c.mu.Unlock()
	if s == nil {
		return domain.ErrNotConnected
	}
	return c.write(ctx, s, cmds)
}

// write frames cmds onto s. A failed write is a transport fault and closes s.
func (c *Connector) write(ctx context.Context, s *socket, cmds world.Commands) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Time{}
	if c.cfg.WriteTimeout > 0 {
		deadline = time.Now().Add(c.cfg.WriteTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	_ = s.conn.SetWriteDeadline(deadline)
	defer s.conn.SetWriteDeadline(time.Time{})

	if err := frame.WriteFrame(s.conn, cmds.Marshal(), c.cfg.Limits); err != nil {
		s.t.Kill(fmt.Errorf("write: %w", err))
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (c *Connector) startExpiry() {
	if c.cfg.PendingTimeout <= 0 {
		return
	}
	c.expiryOnce.Do(func() {
		interval := c.cfg.PendingTimeout / 2
		if interval < 10*time.Millisecond {
			interval = 10 * time.Millisecond
		}
		c.lifecycle.AddWorker()
		go func() {
			defer c.lifecycle.WorkerDone()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-c.done:
					return
				case <-ticker.C:
					if seqs := c.registry.Expire(c.cfg.PendingTimeout); len(seqs) > 0 {
						c.logger.Warn("pending requests expired",
							ports.Int("count", len(seqs)),
							ports.Duration("timeout", c.cfg.PendingTimeout),
						)
					}
				}
			}
		}()
	})
}

func (c *Connector) saveSession(ctx context.Context) {
	if c.sessions == nil {
		return
	}
	sess := domain.Session{
		WorldID:         c.WorldID(),
		NextSeq:         c.seq.Current() + 1,
		LastConnectedAt: time.Now().UTC(),
	}
	if err := c.sessions.Save(ctx, sess); err != nil {
		c.logger.Warn("failed to save session", ports.Err(err))
	}
}

// State returns the connection state.
func (c *Connector) State() State { return c.lifecycle.State() }

// WorldID returns the session id assigned by the world.
func (c *Connector) WorldID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.worldID
}

// Pending returns the number of unanswered requests.
func (c *Connector) Pending() int { return c.registry.Len() }

// ReconnectAttempts returns the attempts made since the last connection.
func (c *Connector) ReconnectAttempts() int { return c.policy.Attempts() }

// Fatal delivers domain.ErrReconnectExhausted when the policy gives up.
func (c *Connector) Fatal() <-chan error { return c.fatal }

// Done is closed by Shutdown.
func (c *Connector) Done() <-chan struct{} { return c.done }

type nopLogger struct{}

func (nopLogger) Debug(string, ...ports.Field)       {}
func (nopLogger) Info(string, ...ports.Field)        {}
func (nopLogger) Warn(string, ...ports.Field)        {}
func (nopLogger) Error(string, ...ports.Field)       {}
func (n nopLogger) With(...ports.Field) ports.Logger { return n }
