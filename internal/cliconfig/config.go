package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Jaydccq/mini-ups-sub001/internal/app"
	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
	"github.com/Jaydccq/mini-ups-sub001/pkg/worldlink"
)

// DefaultRedisChannel is the channel events are published on.
const DefaultRedisChannel = "ups.events"

// Config holds CLI configuration for worldlink.
type Config struct {
	Host    string
	Port    int
	WorldID int64

	ConnectTimeout  time.Duration
	ReadIdleTimeout time.Duration
	WriteTimeout    time.Duration
	PendingTimeout  time.Duration

	MaxReconnectAttempts int
	InitialBackoff       time.Duration
	MaxBackoff           time.Duration
	BackoffMultiplier    float64

	AutoAck bool
	Trucks  int

	DatabaseURL   string
	NotifyURL     string
	NotifyAuthKey string
	RedisAddr     string
	RedisChannel  string
	MetricsAddr   string
	StateDir      string
	LogLevel      string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Host:                 "127.0.0.1",
		Port:                 12345,
		ConnectTimeout:       app.DefaultConnectTimeout,
		ReadIdleTimeout:      app.DefaultReadIdleTimeout,
		WriteTimeout:         app.DefaultWriteTimeout,
		MaxReconnectAttempts: app.DefaultMaxReconnectAttempts,
		InitialBackoff:       app.DefaultInitialBackoff,
		MaxBackoff:           app.DefaultMaxBackoff,
		BackoffMultiplier:    app.DefaultBackoffMultiplier,
		AutoAck:              true,
		RedisChannel:         DefaultRedisChannel,
		LogLevel:             "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", domain.ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", domain.ErrInvalidConfig, c.Port)
	}
	if c.WorldID < 0 {
		return fmt.Errorf("%w: world id must not be negative", domain.ErrInvalidConfig)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("%w: connect timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.ReadIdleTimeout < 0 || c.WriteTimeout < 0 || c.PendingTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", domain.ErrInvalidConfig)
	}
	if c.MaxReconnectAttempts <= 0 {
		return fmt.Errorf("%w: max reconnect attempts must be positive", domain.ErrInvalidConfig)
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("%w: initial backoff must be positive", domain.ErrInvalidConfig)
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("%w: max backoff %v is below initial backoff %v", domain.ErrInvalidConfig, c.MaxBackoff, c.InitialBackoff)
	}
	if c.BackoffMultiplier < 1 {
		return fmt.Errorf("%w: backoff multiplier must be at least 1", domain.ErrInvalidConfig)
	}
	if c.Trucks < 0 {
		return fmt.Errorf("%w: trucks must not be negative", domain.ErrInvalidConfig)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level %q", domain.ErrInvalidConfig, c.LogLevel)
	}
	if c.RedisChannel == "" {
		c.RedisChannel = DefaultRedisChannel
	}
	return nil
}

// WorldlinkConfig converts the CLI configuration for the library.
func (c *Config) WorldlinkConfig() worldlink.Config {
	wc := worldlink.Config{
		Host:                 c.Host,
		Port:                 c.Port,
		WorldID:              c.WorldID,
		ConnectTimeout:       c.ConnectTimeout,
		ReadIdleTimeout:      c.ReadIdleTimeout,
		DisableIdleWatchdog:  c.ReadIdleTimeout == 0,
		WriteTimeout:         c.WriteTimeout,
		PendingTimeout:       c.PendingTimeout,
		MaxReconnectAttempts: c.MaxReconnectAttempts,
		InitialBackoff:       c.InitialBackoff,
		MaxBackoff:           c.MaxBackoff,
		BackoffMultiplier:    c.BackoffMultiplier,
		DisableAutoAck:       !c.AutoAck,
		StateDir:             c.StateDir,
	}
	for i := 0; i < c.Trucks; i++ {
		wc.Trucks = append(wc.Trucks, worldlink.DeliveryTruck{ID: int32(i + 1)})
	}
	return wc
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt64 sets an int64 value if positive and flag not changed.
func (s *configSetter) setInt64(flag string, value int64, dst *int64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setInt64FromString is setIntFromString for int64 values.
func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
