package worldlink

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Jaydccq/mini-ups-sub001/pkg/pending"
)

// Option configures optional behavior of Worldlink.
type Option func(*options)

type options struct {
	logger       Logger
	bridge       Bridge
	eventHandler EventHandler
	dialer       Dialer
	sequencer    *pending.Sequencer
	sessions     SessionRepository
	registerer   prometheus.Registerer
	plugins      []Plugin
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBridge sets where world events go. Without it, truck positions and
// deliveries are kept in memory and notifications are dropped.
func WithBridge(bridge Bridge) Option {
	return func(o *options) {
		o.bridge = bridge
	}
}

// WithEventHandler sets a handler for connection events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithDialer replaces the default *net.Dialer.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithSequencer shares a sequence number source with other components.
func WithSequencer(seq *pending.Sequencer) Option {
	return func(o *options) {
		o.sequencer = seq
	}
}

// WithSessionRepository overrides the session file in Config.StateDir.
func WithSessionRepository(repo SessionRepository) Option {
	return func(o *options) {
		o.sessions = repo
	}
}

// WithMetrics registers worldlink_* collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithPlugin registers a plugin. Plugins are initialized in registration
// order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
