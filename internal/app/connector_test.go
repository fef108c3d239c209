package app

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
	"github.com/Jaydccq/mini-ups-sub001/internal/world"
	"github.com/Jaydccq/mini-ups-sub001/pkg/frame"
	"github.com/Jaydccq/mini-ups-sub001/pkg/pending"
)

const stubTimeout = 2 * time.Second

// stubWorld is an in-process world simulator that completes the handshake
// and hands each accepted connection to the test.
type stubWorld struct {
	t       *testing.T
	ln      net.Listener
	worldID int64
	result  string
	conns   chan *stubConn

	mu  sync.Mutex
	all []net.Conn
}

type stubConn struct {
	t       *testing.T
	conn    net.Conn
	reader  *frame.Reader
	connect world.Connect
}

func newStubWorld(t *testing.T) *stubWorld {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	w := &stubWorld{t: t, ln: ln, worldID: 42, result: world.ConnectedOK, conns: make(chan *stubConn, 8)}
	go w.serve()
	t.Cleanup(func() {
		ln.Close()
		w.mu.Lock()
		defer w.mu.Unlock()
		for _, c := range w.all {
			c.Close()
		}
	})
	return w
}

func (w *stubWorld) serve() {
	for {
		conn, err := w.ln.Accept()
		if err != nil {
			return
		}
		w.mu.Lock()
		w.all = append(w.all, conn)
		w.mu.Unlock()

		sc := &stubConn{t: w.t, conn: conn, reader: frame.NewReader(conn, frame.DefaultLimits())}
		payload, err := sc.reader.ReadFrame()
		if err != nil {
			conn.Close()
			continue
		}
		sc.connect, err = world.UnmarshalConnect(payload)
		if err != nil {
			conn.Close()
			continue
		}
		reply := world.Connected{WorldID: w.worldID, Result: w.result}
		if err := frame.WriteFrame(conn, reply.Marshal(), frame.DefaultLimits()); err != nil {
			conn.Close()
			continue
		}
		w.conns <- sc
	}
}

func (w *stubWorld) port() int {
	return w.ln.Addr().(*net.TCPAddr).Port
}

func (w *stubWorld) accept() *stubConn {
	w.t.Helper()
	select {
	case sc := <-w.conns:
		return sc
	case <-time.After(stubTimeout):
		w.t.Fatal("no connection from connector")
		return nil
	}
}

func (sc *stubConn) read() world.Commands {
	sc.t.Helper()
	require.NoError(sc.t, sc.conn.SetReadDeadline(time.Now().Add(stubTimeout)))
	payload, err := sc.reader.ReadFrame()
	require.NoError(sc.t, err)
	cmds, err := world.UnmarshalCommands(payload)
	require.NoError(sc.t, err)
	return cmds
}

func (sc *stubConn) send(r world.Responses) {
	sc.t.Helper()
	require.NoError(sc.t, frame.WriteFrame(sc.conn, r.Marshal(), frame.DefaultLimits()))
}

func testConnectorConfig(port int) ConnectorConfig {
	cfg := DefaultConnectorConfig()
	cfg.Port = port
	cfg.ConnectTimeout = stubTimeout
	cfg.Reconnect.InitialBackoff = 10 * time.Millisecond
	cfg.Reconnect.MaxBackoff = 50 * time.Millisecond
	return cfg
}

func newTestConnector(t *testing.T, cfg ConnectorConfig, bridge *fakeBridge, emitter *mockEmitter) *Connector {
	t.Helper()
	deps := ConnectorDeps{
		Bridge:    bridge,
		Logger:    &mockLogger{},
		Sequencer: pending.NewSequencer(1000),
	}
	if emitter != nil {
		deps.Emitter = emitter
	}
	c := NewConnector(cfg, deps)
	t.Cleanup(c.Shutdown)
	return c
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), stubTimeout)
	t.Cleanup(cancel)
	return ctx
}

func TestConnector_PickupEndToEnd(t *testing.T) {
	w := newStubWorld(t)
	cfg := testConnectorConfig(w.port())
	cfg.Trucks = []world.InitTruck{{ID: 7, X: 0, Y: 0}}
	bridge := &fakeBridge{}
	c := newTestConnector(t, cfg, bridge, nil)
	ctx := waitCtx(t)

	require.NoError(t, c.Connect(ctx))
	sc := w.accept()
	assert.Equal(t, int64(0), sc.connect.WorldID)
	assert.Equal(t, cfg.Trucks, sc.connect.Trucks)
	assert.Equal(t, StateConnected, c.State())
	assert.Equal(t, int64(42), c.WorldID())

	res, err := c.Pickup(ctx, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), res.Seq())

	cmds := sc.read()
	require.Len(t, cmds.Pickups, 1)
	assert.Equal(t, world.GoPickup{TruckID: 7, WarehouseID: 3, Seq: 1001}, cmds.Pickups[0])

	sc.send(world.Responses{
		Completions: []world.Finished{{TruckID: 7, X: 12, Y: 30, Status: "arrive warehouse", Seq: 1001}},
	})

	got, err := res.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Completion{TruckID: 7, X: 12, Y: 30, StatusTag: "arrive warehouse", Seq: 1001}, got)
	assert.Contains(t, bridge.Calls(), "position(7,12,30,AT_WAREHOUSE)")

	ack := sc.read()
	assert.Equal(t, []int64{1001}, ack.Acks)

	c.Shutdown()
	bye := sc.read()
	assert.True(t, bye.Disconnect)
	assert.NoError(t, c.Wait(stubTimeout))
}

func TestConnector_WorldErrorRejectsCommand(t *testing.T) {
	w := newStubWorld(t)
	c := newTestConnector(t, testConnectorConfig(w.port()), &fakeBridge{}, nil)
	ctx := waitCtx(t)

	require.NoError(t, c.Connect(ctx))
	sc := w.accept()

	res, err := c.Pickup(ctx, 1, 99)
	require.NoError(t, err)
	errStream, err := c.Expect(5000)
	require.NoError(t, err)
	sc.read()

	sc.send(world.Responses{Errors: []world.Err{{Message: "unknown warehouse id", OriginSeq: res.Seq(), Seq: 5000}}})

	_, err = res.Wait(ctx)
	var werr *domain.WorldError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "unknown warehouse id", werr.Message)

	entry, err := errStream.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), entry.Sequence())
	assert.Equal(t, StateConnected, c.State())
}

func TestConnector_ReconnectsAfterDrop(t *testing.T) {
	w := newStubWorld(t)
	emitter := &mockEmitter{}
	c := newTestConnector(t, testConnectorConfig(w.port()), &fakeBridge{}, emitter)
	ctx := waitCtx(t)

	require.NoError(t, c.Connect(ctx))
	first := w.accept()
	first.conn.Close()

	second := w.accept()
	assert.Equal(t, int64(42), second.connect.WorldID, "reconnect must rejoin the same world")

	require.Eventually(t, func() bool {
		return len(emitter.States()) == 5 && c.ReconnectAttempts() == 0
	}, stubTimeout, 5*time.Millisecond)
	assert.Equal(t, StateConnected, c.State())

	assert.Equal(t, []State{
		StateConnecting,
		StateConnected,
		StateDisconnected,
		StateReconnecting,
		StateConnected,
	}, emitter.States())
}

// slowSessions delays every save, which widens the gap between a reconnect
// handshake and the policy marking the attempt done.
type slowSessions struct {
	delay time.Duration
}

func (s slowSessions) Load(ctx context.Context) (domain.Session, error) {
	return domain.Session{}, nil
}

func (s slowSessions) Save(ctx context.Context, sess domain.Session) error {
	time.Sleep(s.delay)
	return nil
}

func TestConnector_DropRightAfterReconnect(t *testing.T) {
	w := newStubWorld(t)
	c := NewConnector(testConnectorConfig(w.port()), ConnectorDeps{
		Bridge:   &fakeBridge{},
		Logger:   &mockLogger{},
		Sessions: slowSessions{delay: 200 * time.Millisecond},
	})
	t.Cleanup(c.Shutdown)

	require.NoError(t, c.Connect(waitCtx(t)))
	first := w.accept()
	first.conn.Close()

	// The reconnected socket dies while the attempt is still saving the session.
	second := w.accept()
	second.conn.Close()

	third := w.accept()
	assert.Equal(t, int64(42), third.connect.WorldID)
	require.Eventually(t, func() bool {
		return c.State() == StateConnected
	}, stubTimeout, 5*time.Millisecond)
}

func TestConnector_FinishedClosesSocket(t *testing.T) {
	w := newStubWorld(t)
	c := newTestConnector(t, testConnectorConfig(w.port()), &fakeBridge{}, nil)
	ctx := waitCtx(t)

	require.NoError(t, c.Connect(ctx))
	sc := w.accept()
	sc.send(world.Responses{Finished: true})

	// The world closed the session; the connector rejoins it.
	w.accept()
}

func TestConnector_ReconnectExhausted(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	cfg := testConnectorConfig(port)
	cfg.Reconnect = ReconnectConfig{
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
		MaxAttempts:    3,
	}
	emitter := &mockEmitter{}
	c := newTestConnector(t, cfg, &fakeBridge{}, emitter)

	err = c.Connect(waitCtx(t))
	require.Error(t, err)

	select {
	case err := <-c.Fatal():
		assert.ErrorIs(t, err, domain.ErrReconnectExhausted)
	case <-time.After(stubTimeout):
		t.Fatal("policy never gave up")
	}
	assert.Equal(t, []int{3}, emitter.Exhausted())
	require.Eventually(t, func() bool { return c.State() == StateDisconnected }, stubTimeout, 5*time.Millisecond)

	assert.True(t, c.Resume())
}

func TestConnector_HandshakeRejected(t *testing.T) {
	w := newStubWorld(t)
	w.result = "error: invalid world id"
	c := newTestConnector(t, testConnectorConfig(w.port()), &fakeBridge{}, nil)

	err := c.Connect(waitCtx(t))
	assert.ErrorIs(t, err, domain.ErrHandshakeRejected)
	c.Shutdown()
	assert.Equal(t, StateShutdown, c.State())
}

func TestConnector_ShutdownIdempotent(t *testing.T) {
	w := newStubWorld(t)
	c := newTestConnector(t, testConnectorConfig(w.port()), &fakeBridge{}, nil)
	ctx := waitCtx(t)

	require.NoError(t, c.Connect(ctx))
	w.accept()
	res, err := c.Query(ctx, 3)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Shutdown()
		}()
	}
	wg.Wait()

	assert.Equal(t, StateShutdown, c.State())
	_, err = res.Wait(ctx)
	assert.ErrorIs(t, err, pending.ErrAbandoned)

	_, err = c.Pickup(ctx, 1, 1)
	assert.ErrorIs(t, err, domain.ErrShutdown)
	assert.ErrorIs(t, c.Connect(ctx), domain.ErrShutdown)
	assert.NoError(t, c.Wait(stubTimeout))
	assert.Equal(t, 0, c.Pending())
}

func TestConnector_NotConnected(t *testing.T) {
	c := newTestConnector(t, DefaultConnectorConfig(), &fakeBridge{}, nil)

	_, err := c.Pickup(context.Background(), 1, 1)
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	assert.Equal(t, 0, c.Pending())
	assert.True(t, errors.Is(c.SetSimSpeed(context.Background(), 100), domain.ErrNotConnected))
}

func TestConnector_IdleWatchdog(t *testing.T) {
	w := newStubWorld(t)
	cfg := testConnectorConfig(w.port())
	cfg.ReadIdleTimeout = 20 * time.Millisecond

	var idles atomic.Int32
	emitter := &mockEmitter{}
	c := NewConnector(cfg, ConnectorDeps{
		Bridge:   &fakeBridge{},
		Logger:   &mockLogger{},
		Emitter:  emitter,
		IdleHook: func(time.Duration) { idles.Add(1) },
	})
	t.Cleanup(c.Shutdown)

	require.NoError(t, c.Connect(waitCtx(t)))
	w.accept()

	require.Eventually(t, func() bool { return idles.Load() >= 2 }, stubTimeout, 5*time.Millisecond)
	assert.GreaterOrEqual(t, emitter.Idles(), 2)
	assert.Equal(t, StateConnected, c.State(), "idle watchdog must not disconnect")
}

func TestConnector_PendingTimeout(t *testing.T) {
	w := newStubWorld(t)
	cfg := testConnectorConfig(w.port())
	cfg.PendingTimeout = 30 * time.Millisecond
	c := newTestConnector(t, cfg, &fakeBridge{}, nil)
	ctx := waitCtx(t)

	require.NoError(t, c.Connect(ctx))
	w.accept()

	res, err := c.Deliver(ctx, 7, []world.DeliveryLocation{{PackageID: 1, X: 2, Y: 3}})
	require.NoError(t, err)

	_, err = res.Wait(ctx)
	assert.ErrorIs(t, err, pending.ErrExpired)
}
