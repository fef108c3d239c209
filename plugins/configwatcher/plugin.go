// Package configwatcher reloads the worldlink config file while the
// connection runs. On every change it hands the new file to a callback and
// re-arms the reconnection policy if it had given up.
package configwatcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Jaydccq/mini-ups-sub001/internal/cliconfig"
	"github.com/Jaydccq/mini-ups-sub001/pkg/worldlink"
)

// FileConfig is the parsed config file passed to OnReload.
type FileConfig = cliconfig.FileConfig

// Plugin implements worldlink.Plugin.
type Plugin struct {
	path          string
	debounceDelay time.Duration
	onReload      func(FileConfig)

	mu      sync.Mutex
	logger  worldlink.Logger
	resume  func() bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	reloads int
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the TOML file to watch.
	Path string

	// DebounceDelay is the quiet period after a change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// OnReload runs with each successfully parsed file, before the
	// connection is resumed. Optional.
	OnReload func(FileConfig)
}

// DefaultConfig watches the default config path.
func DefaultConfig() Config {
	return Config{
		Path:          cliconfig.DefaultConfigPath(),
		DebounceDelay: cliconfig.DefaultDebounce,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = cliconfig.DefaultDebounce
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		onReload:      cfg.OnReload,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching. A missing path disables the plugin.
func (p *Plugin) Initialize(ctx context.Context, cfg worldlink.PluginConfig) error {
	p.mu.Lock()
	p.logger = cfg.Logger
	p.resume = cfg.Resume
	p.mu.Unlock()

	if p.path == "" || !cliconfig.FileExists(p.path) {
		p.logger.Warn("config watcher disabled: no config file")
		return nil
	}

	w := cliconfig.NewWatcher(p.path, p.reload, p.logger)
	w.SetDebounce(p.debounceDelay)

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	errCh := make(chan error, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := w.Run(watchCtx); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-w.Ready():
		return nil
	case err := <-errCh:
		cancel()
		return err
	case <-ctx.Done():
		return errors.Join(ctx.Err(), errors.New("config watcher not ready"))
	}
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// Reloads returns how many times the file was reloaded.
func (p *Plugin) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

func (p *Plugin) reload(fc FileConfig) {
	p.mu.Lock()
	p.reloads++
	resume := p.resume
	p.mu.Unlock()

	if p.onReload != nil {
		p.onReload(fc)
	}
	if resume != nil && resume() {
		p.logger.Info("config changed, reconnecting")
	}
}

var _ worldlink.Plugin = (*Plugin)(nil)
