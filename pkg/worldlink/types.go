package worldlink

import (
	"context"
	"time"

	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
	"github.com/Jaydccq/mini-ups-sub001/internal/ports"
	"github.com/Jaydccq/mini-ups-sub001/internal/world"
	"github.com/Jaydccq/mini-ups-sub001/pkg/pending"
)

// State is the connection state of a Worldlink.
type State int

const (
	// StateStopped means Start has not been called yet.
	StateStopped State = iota
	// StateConnecting is the first connection attempt.
	StateConnecting
	// StateConnected means the handshake succeeded and the socket is live.
	StateConnected
	// StateDisconnected means the socket is gone and a retry may be pending.
	StateDisconnected
	// StateReconnecting is a retry in progress.
	StateReconnecting
	// StateShutdown is terminal.
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateReconnecting:
		return "reconnecting"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Re-exported types so callers never import internal packages.
type (
	// Bridge receives decoded world events.
	Bridge = ports.Bridge

	// Logger is the structured logging interface.
	Logger = ports.Logger

	// LogField is a structured log field.
	LogField = ports.Field

	// Dialer opens the TCP stream. *net.Dialer satisfies it.
	Dialer = ports.Dialer

	// SessionRepository persists the world id and next sequence number.
	SessionRepository = ports.SessionRepository

	// Session is what a SessionRepository stores.
	Session = domain.Session

	// Reply is the value a request resolves to.
	Reply = domain.Reply

	// Result is the handle of an in-flight request.
	Result = pending.Result[domain.Reply]

	// DeliveryLocation is one package drop-off of a delivery command.
	DeliveryLocation = world.DeliveryLocation

	// WorldError is the failure of a command the world rejected.
	WorldError = domain.WorldError
)

// EventHandler observes a running Worldlink.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnBatch(BatchEvent)
	OnReconnect(ReconnectEvent)
	OnIdle(IdleEvent)
	OnBridgeError(BridgeErrorEvent)
}

// StateChangeEvent reports a connection state transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// BatchEvent summarizes one dispatched inbound frame.
type BatchEvent struct {
	Entries  int
	Failures int
	Duration time.Duration
}

// ReconnectEvent reports a scheduled retry, or the end of retries when
// Exhausted is set.
type ReconnectEvent struct {
	Attempt   int
	Delay     time.Duration
	Exhausted bool
}

// IdleEvent reports that nothing was read from the world for Idle.
type IdleEvent struct {
	Idle time.Duration
}

// BridgeErrorEvent reports a failed bridge call.
type BridgeErrorEvent struct {
	Kind  string
	Error error
}

// Plugin extends a Worldlink with optional background behavior.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to plugins on Initialize.
type PluginConfig struct {
	Address  string
	WorldID  int64
	StateDir string
	Logger   Logger

	// Resume re-arms an exhausted reconnection policy. It reports whether
	// a new attempt was scheduled.
	Resume func() bool
}
