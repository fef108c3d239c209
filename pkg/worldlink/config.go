package worldlink

import (
	"fmt"
	"time"

	"github.com/Jaydccq/mini-ups-sub001/internal/app"
	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
	"github.com/Jaydccq/mini-ups-sub001/internal/world"
)

// Config holds the connection settings of a Worldlink.
type Config struct {
	// Host and Port locate the world simulator.
	Host string
	Port int

	// WorldID joins an existing world. Zero creates a new one, or reuses
	// the id from the saved session if there is one.
	WorldID int64

	// Trucks are placed when a new world is created.
	Trucks []DeliveryTruck

	ConnectTimeout time.Duration
	WriteTimeout   time.Duration

	// ReadIdleTimeout is how long the connection may stay silent before a
	// warning is logged. Zero means the default.
	ReadIdleTimeout time.Duration

	// DisableIdleWatchdog turns the silent-connection warning off.
	DisableIdleWatchdog bool

	// PendingTimeout fails requests that get no answer in time.
	// Zero disables it.
	PendingTimeout time.Duration

	MaxReconnectAttempts int
	InitialBackoff       time.Duration
	MaxBackoff           time.Duration
	BackoffMultiplier    float64

	// DisableAutoAck stops the connector from acknowledging inbound entries.
	// The simulator resends unacknowledged entries.
	DisableAutoAck bool

	// StateDir holds session.json. Empty disables persistence unless a
	// repository is passed with WithSessionRepository.
	StateDir string
}

// DeliveryTruck is the initial placement of one truck in a new world.
type DeliveryTruck = world.InitTruck

// SetDefaults fills zero fields.
func (c *Config) SetDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 12345
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = app.DefaultConnectTimeout
	}
	if c.ReadIdleTimeout == 0 {
		c.ReadIdleTimeout = app.DefaultReadIdleTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = app.DefaultWriteTimeout
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = app.DefaultMaxReconnectAttempts
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = app.DefaultInitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = app.DefaultMaxBackoff
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = app.DefaultBackoffMultiplier
	}
}

// Validate checks the configuration. Call SetDefaults first.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", domain.ErrInvalidConfig, c.Port)
	}
	if c.WorldID < 0 {
		return fmt.Errorf("%w: world id must not be negative", domain.ErrInvalidConfig)
	}
	if c.ConnectTimeout < 0 || c.ReadIdleTimeout < 0 || c.WriteTimeout < 0 || c.PendingTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", domain.ErrInvalidConfig)
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("%w: max reconnect attempts must not be negative", domain.ErrInvalidConfig)
	}
	if c.InitialBackoff < 0 || c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("%w: backoff range %v..%v", domain.ErrInvalidConfig, c.InitialBackoff, c.MaxBackoff)
	}
	if c.BackoffMultiplier < 1 {
		return fmt.Errorf("%w: backoff multiplier must be at least 1", domain.ErrInvalidConfig)
	}
	return nil
}

func (c *Config) connectorConfig() app.ConnectorConfig {
	cc := app.DefaultConnectorConfig()
	cc.Host = c.Host
	cc.Port = c.Port
	cc.WorldID = c.WorldID
	cc.Trucks = c.Trucks
	cc.ConnectTimeout = c.ConnectTimeout
	cc.ReadIdleTimeout = c.ReadIdleTimeout
	if c.DisableIdleWatchdog {
		cc.ReadIdleTimeout = 0
	}
	cc.WriteTimeout = c.WriteTimeout
	cc.PendingTimeout = c.PendingTimeout
	cc.AutoAck = !c.DisableAutoAck
	cc.Reconnect = app.ReconnectConfig{
		InitialBackoff: c.InitialBackoff,
		MaxBackoff:     c.MaxBackoff,
		Multiplier:     c.BackoffMultiplier,
		MaxAttempts:    c.MaxReconnectAttempts,
	}
	return cc
}
