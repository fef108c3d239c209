package cliconfig

import (
	"os"
	"time"
)

// EnvPrefix prefixes every environment variable worldlink reads.
const EnvPrefix = "WORLDLINK_"

// ApplyEnvConfig applies configuration from environment variables (WORLDLINK_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("host", env("HOST"), &cfg.Host)
	s.setString("database-url", env("DATABASE_URL"), &cfg.DatabaseURL)
	s.setString("notify-url", env("NOTIFY_URL"), &cfg.NotifyURL)
	s.setString("notify-auth-key", env("NOTIFY_AUTH_KEY"), &cfg.NotifyAuthKey)
	s.setString("redis-addr", env("REDIS_ADDR"), &cfg.RedisAddr)
	s.setString("redis-channel", env("REDIS_CHANNEL"), &cfg.RedisChannel)
	s.setString("metrics-addr", env("METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	durations := []struct {
		flag string
		name string
		dst  *time.Duration
	}{
		{"connect-timeout", "CONNECT_TIMEOUT", &cfg.ConnectTimeout},
		{"read-idle-timeout", "READ_IDLE_TIMEOUT", &cfg.ReadIdleTimeout},
		{"write-timeout", "WRITE_TIMEOUT", &cfg.WriteTimeout},
		{"pending-timeout", "PENDING_TIMEOUT", &cfg.PendingTimeout},
		{"initial-backoff", "INITIAL_BACKOFF", &cfg.InitialBackoff},
		{"max-backoff", "MAX_BACKOFF", &cfg.MaxBackoff},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, env(d.name), d.dst); err != nil {
			return err
		}
	}

	if err := s.setIntFromString("port", env("PORT"), &cfg.Port); err != nil {
		return err
	}
	if err := s.setInt64FromString("world-id", env("WORLD_ID"), &cfg.WorldID); err != nil {
		return err
	}
	if err := s.setIntFromString("max-reconnect-attempts", env("MAX_RECONNECT_ATTEMPTS"), &cfg.MaxReconnectAttempts); err != nil {
		return err
	}
	if err := s.setIntFromString("trucks", env("TRUCKS"), &cfg.Trucks); err != nil {
		return err
	}
	if err := s.setFloatFromString("backoff-multiplier", env("BACKOFF_MULTIPLIER"), &cfg.BackoffMultiplier); err != nil {
		return err
	}

	s.setBoolFromString("auto-ack", env("AUTO_ACK"), &cfg.AutoAck)

	return nil
}
