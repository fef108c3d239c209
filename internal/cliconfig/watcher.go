package cliconfig

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Jaydccq/mini-ups-sub001/internal/ports"
)

// DefaultDebounce is how long the watcher waits after the last change
// before reloading the file. Editors tend to write in several steps.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads the TOML config file whenever it changes on disk.
// The directory is watched rather than the file so that atomic
// replace-by-rename saves are seen.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(FileConfig)
	logger   ports.Logger

	ready chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for path. onChange receives every
// successfully parsed version of the file; parse failures are logged and
// the previous configuration stays in effect.
func NewWatcher(path string, onChange func(FileConfig), logger ports.Logger) *Watcher {
	return &Watcher{
		path:     path,
		debounce: DefaultDebounce,
		onChange: onChange,
		logger:   logger.With(ports.String("config", path)),
		ready:    make(chan struct{}),
	}
}

// SetDebounce overrides DefaultDebounce. Must be called before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Ready is closed once the directory watch is installed.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.path == "" {
		return errors.New("config watcher: empty path")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: create: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config watcher: watch %s: %w", dir, err)
	}
	close(w.ready)
	w.logger.Debug("watching config file")

	defer w.stopTimer()

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", ports.Err(err))
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		w.reload()
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload() {
	fc, err := LoadFileConfig(w.path)
	if err != nil {
		// A rename-away save leaves a short window with no file.
		w.logger.Warn("config reload failed", ports.Err(err))
		return
	}
	w.logger.Info("config file changed, reloading")
	if w.onChange != nil {
		w.onChange(fc)
	}
}
