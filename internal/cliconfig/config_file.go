package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Host                 string  `toml:"host"`
	Port                 int     `toml:"port"`
	WorldID              int64   `toml:"world_id"`
	ConnectTimeout       string  `toml:"connect_timeout"`
	ReadIdleTimeout      string  `toml:"read_idle_timeout"`
	WriteTimeout         string  `toml:"write_timeout"`
	PendingTimeout       string  `toml:"pending_timeout"`
	MaxReconnectAttempts int     `toml:"max_reconnect_attempts"`
	InitialBackoff       string  `toml:"initial_backoff"`
	MaxBackoff           string  `toml:"max_backoff"`
	BackoffMultiplier    float64 `toml:"backoff_multiplier"`
	AutoAck              *bool   `toml:"auto_ack"`
	Trucks               int     `toml:"trucks"`
	DatabaseURL          string  `toml:"database_url"`
	NotifyURL            string  `toml:"notify_url"`
	NotifyAuthKey        string  `toml:"notify_auth_key"`
	RedisAddr            string  `toml:"redis_addr"`
	RedisChannel         string  `toml:"redis_channel"`
	MetricsAddr          string  `toml:"metrics_addr"`
	StateDir             string  `toml:"state_dir"`
	LogLevel             string  `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.worldlink/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".worldlink", "config.toml")
	}
	return ""
}

// DefaultStateDir returns ~/.worldlink, or "" if the home directory is unknown.
func DefaultStateDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".worldlink")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", fc.Host, &cfg.Host)
	s.setString("database-url", fc.DatabaseURL, &cfg.DatabaseURL)
	s.setString("notify-url", fc.NotifyURL, &cfg.NotifyURL)
	s.setString("notify-auth-key", fc.NotifyAuthKey, &cfg.NotifyAuthKey)
	s.setString("redis-addr", fc.RedisAddr, &cfg.RedisAddr)
	s.setString("redis-channel", fc.RedisChannel, &cfg.RedisChannel)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"connect-timeout", fc.ConnectTimeout, &cfg.ConnectTimeout},
		{"read-idle-timeout", fc.ReadIdleTimeout, &cfg.ReadIdleTimeout},
		{"write-timeout", fc.WriteTimeout, &cfg.WriteTimeout},
		{"pending-timeout", fc.PendingTimeout, &cfg.PendingTimeout},
		{"initial-backoff", fc.InitialBackoff, &cfg.InitialBackoff},
		{"max-backoff", fc.MaxBackoff, &cfg.MaxBackoff},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("port", fc.Port, &cfg.Port)
	s.setInt64("world-id", fc.WorldID, &cfg.WorldID)
	s.setInt("max-reconnect-attempts", fc.MaxReconnectAttempts, &cfg.MaxReconnectAttempts)
	s.setInt("trucks", fc.Trucks, &cfg.Trucks)
	s.setFloat("backoff-multiplier", fc.BackoffMultiplier, &cfg.BackoffMultiplier)
	s.setBool("auto-ack", fc.AutoAck, &cfg.AutoAck)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
