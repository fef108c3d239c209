package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	httpAdapter "github.com/Jaydccq/mini-ups-sub001/internal/adapters/http"
	logAdapter "github.com/Jaydccq/mini-ups-sub001/internal/adapters/log"
	"github.com/Jaydccq/mini-ups-sub001/internal/adapters/memory"
	"github.com/Jaydccq/mini-ups-sub001/internal/adapters/notify"
	"github.com/Jaydccq/mini-ups-sub001/internal/adapters/postgres"
	redisAdapter "github.com/Jaydccq/mini-ups-sub001/internal/adapters/redis"
	"github.com/Jaydccq/mini-ups-sub001/internal/app"
	"github.com/Jaydccq/mini-ups-sub001/internal/cliconfig"
	"github.com/Jaydccq/mini-ups-sub001/internal/ports"
	"github.com/Jaydccq/mini-ups-sub001/pkg/worldlink"
	"github.com/Jaydccq/mini-ups-sub001/plugins/configwatcher"
)

const helpDescription = `
Keep the UPS backend connected to the world simulator.

worldlink holds one TCP session with the simulator, sends truck commands,
matches every reply to the command that caused it, stores truck positions
and deliveries, and publishes business events for the Amazon side.

Configuration is read from $HOME/.worldlink/config.toml, then WORLDLINK_*
environment variables, then flags. Send SIGHUP (or edit the config file)
to retry after reconnection gave up.
`

var exampleUsage = strings.TrimSpace(`
  worldlink --host vcm-1.example.edu --port 12345 --trucks 20
  worldlink --world-id 42 --database-url postgres://ups@localhost/ups --redis-addr localhost:6379
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	cfg.StateDir = cliconfig.DefaultStateDir()
	var cfgPath string

	zl := logAdapter.NewConsoleLogger(os.Stderr)

	root := &cobra.Command{
		Use:          "worldlink",
		Short:        "Connect the UPS backend to the world simulator",
		Long:         strings.TrimSpace(helpDescription),
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// WORLDLINK_* override the file but not explicit flags.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return fmt.Errorf("environment: %w", err)
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := logAdapter.SetLevel(cfg.LogLevel); err != nil {
				return err
			}

			logCfg := cfg
			if logCfg.NotifyAuthKey != "" {
				logCfg.NotifyAuthKey = "*****"
			}
			if logCfg.DatabaseURL != "" {
				logCfg.DatabaseURL = "*****"
			}
			zl.Info().Interface("config", logCfg).Msg("configuration")

			return run(cmd.Context(), cfg, cfgFile, logAdapter.NewZerologAdapterWithLogger(zl))
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.worldlink/config.toml)")

	root.Flags().StringVar(&cfg.Host, "host", cfg.Host, "world simulator host")
	root.Flags().IntVar(&cfg.Port, "port", cfg.Port, "world simulator port")
	root.Flags().Int64Var(&cfg.WorldID, "world-id", cfg.WorldID, "world to join (0 creates a new one)")
	root.Flags().IntVar(&cfg.Trucks, "trucks", cfg.Trucks, "trucks to place when creating a world")

	root.Flags().DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "TCP connect and handshake timeout")
	root.Flags().DurationVar(&cfg.ReadIdleTimeout, "read-idle-timeout", cfg.ReadIdleTimeout, "warn when nothing is read for this long (0 disables)")
	root.Flags().DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "write deadline per command")
	root.Flags().DurationVar(&cfg.PendingTimeout, "pending-timeout", cfg.PendingTimeout, "fail unanswered commands after this long (0 disables)")

	root.Flags().IntVar(&cfg.MaxReconnectAttempts, "max-reconnect-attempts", cfg.MaxReconnectAttempts, "reconnect attempts before giving up")
	root.Flags().DurationVar(&cfg.InitialBackoff, "initial-backoff", cfg.InitialBackoff, "first reconnect delay")
	root.Flags().DurationVar(&cfg.MaxBackoff, "max-backoff", cfg.MaxBackoff, "reconnect delay cap")
	root.Flags().Float64Var(&cfg.BackoffMultiplier, "backoff-multiplier", cfg.BackoffMultiplier, "reconnect delay growth factor")
	root.Flags().BoolVar(&cfg.AutoAck, "auto-ack", cfg.AutoAck, "acknowledge every inbound entry")

	root.Flags().StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "PostgreSQL DSN for fleet state (default: in memory)")
	root.Flags().StringVar(&cfg.NotifyURL, "notify-url", cfg.NotifyURL, "webhook receiving business events")
	root.Flags().StringVar(&cfg.NotifyAuthKey, "notify-auth-key", cfg.NotifyAuthKey, "bearer token for the webhook")
	root.Flags().StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for event publishing")
	root.Flags().StringVar(&cfg.RedisChannel, "redis-channel", cfg.RedisChannel, "Redis channel for events")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")

	root.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for session.json")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	if err := root.Execute(); err != nil {
		zl.Error().Err(err).Msg("worldlink")
		os.Exit(1)
	}
}

func run(parent context.Context, cfg cliconfig.Config, cfgFile string, logger ports.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var store ports.FleetStore = memory.NewStore()
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		store = pg
	}

	notifiers := notify.Multi{notify.NewLog(logger)}
	if cfg.NotifyURL != "" {
		client := &http.Client{Timeout: 10 * time.Second}
		notifiers = append(notifiers, httpAdapter.NewNotifier(client, cfg.NotifyURL, cfg.NotifyAuthKey, logger))
	}
	if cfg.RedisAddr != "" {
		rdb, err := redisAdapter.Dial(ctx, cfg.RedisAddr, "", 0)
		if err != nil {
			return err
		}
		defer rdb.Close()
		notifiers = append(notifiers, redisAdapter.NewNotifier(rdb, cfg.RedisChannel))
	}

	opts := []worldlink.Option{
		worldlink.WithLogger(logger),
		worldlink.WithBridge(app.NewBridge(store, notifiers)),
		configwatcher.WithConfigWatcher(configwatcher.Config{
			Path: cfgFile,
			OnReload: func(fc configwatcher.FileConfig) {
				if err := logAdapter.SetLevel(fc.LogLevel); err != nil {
					logger.Warn("ignoring invalid log level", ports.String("log_level", fc.LogLevel))
				}
			},
		}),
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, worldlink.WithMetrics(reg))

		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", ports.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", ports.String("addr", cfg.MetricsAddr))
	}

	w, err := worldlink.New(cfg.WorldlinkConfig(), opts...)
	if err != nil {
		return fmt.Errorf("create worldlink: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	// A failed first attempt is retried in the background.
	if err := w.Start(ctx); err != nil {
		if startIsFatal(err, w.Status()) {
			return fmt.Errorf("start worldlink: %w", err)
		}
		logger.Warn("world not reachable yet", ports.Err(err))
	}

	var fatal error
loop:
	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				if w.Resume() {
					logger.Info("reconnection resumed")
				}
				continue
			}
			logger.Info("received signal, stopping", ports.String("signal", sig.String()))
			break loop
		case err := <-w.Fatal():
			fatal = err
			logger.Error("reconnection gave up; send SIGHUP or edit the config file to retry", ports.Err(err))
		case <-ctx.Done():
			break loop
		}
	}

	// Exit non-zero if the connection was still given up at shutdown.
	var runErr error
	if fatal != nil && w.Status() != worldlink.StateConnected {
		runErr = fatal
	}
	if err := w.Stop(); err != nil {
		return errors.Join(runErr, fmt.Errorf("stop worldlink: %w", err))
	}
	return runErr
}

// startIsFatal reports whether a Start error left nothing running to retry.
func startIsFatal(err error, status worldlink.State) bool {
	if err == nil {
		return false
	}
	return worldlink.IsPluginFailure(err) || status == worldlink.StateShutdown
}
