package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions of the connector.
// They are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("worldlink: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("worldlink: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("worldlink: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("worldlink: invalid configuration")

	// ErrInvalidTransition is returned when a connection state change is not allowed.
	ErrInvalidTransition = errors.New("worldlink: invalid state transition")

	// ErrShutdown is returned by operations attempted after Shutdown().
	ErrShutdown = errors.New("worldlink: connection shut down")

	// ErrNotConnected is returned when a command is sent without a live socket.
	ErrNotConnected = errors.New("worldlink: not connected")

	// ErrHandshakeRejected is returned when the world refuses the identification exchange.
	ErrHandshakeRejected = errors.New("worldlink: handshake rejected")

	// ErrWorldFinished is the close reason when the world reports the session as finished.
	ErrWorldFinished = errors.New("worldlink: world finished session")

	// ErrReconnectExhausted is reported when the reconnection policy gives up.
	ErrReconnectExhausted = errors.New("worldlink: reconnect attempts exhausted")

	// ErrPluginInit is returned by Start() when a plugin fails to initialize.
	// The connection has been shut down by then.
	ErrPluginInit = errors.New("worldlink: plugin initialization failed")
)

// WorldError is the failure delivered to a command the world rejected.
type WorldError struct {
	Message   string
	OriginSeq int64
	Seq       int64
}

func (e *WorldError) Error() string {
	return fmt.Sprintf("world rejected seq %d: %s", e.OriginSeq, e.Message)
}
