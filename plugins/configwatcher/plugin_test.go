package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	logAdapter "github.com/Jaydccq/mini-ups-sub001/internal/adapters/log"
	"github.com/Jaydccq/mini-ups-sub001/pkg/worldlink"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestPlugin_ReloadResumes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `log_level = "info"`)

	var mu sync.Mutex
	var levels []string
	var resumed int

	p := New(Config{
		Path:          path,
		DebounceDelay: 10 * time.Millisecond,
		OnReload: func(fc FileConfig) {
			mu.Lock()
			levels = append(levels, fc.LogLevel)
			mu.Unlock()
		},
	})

	err := p.Initialize(context.Background(), worldlink.PluginConfig{
		Logger: logAdapter.NewNoopLogger(),
		Resume: func() bool {
			mu.Lock()
			defer mu.Unlock()
			resumed++
			return true
		},
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer p.Shutdown(context.Background())

	writeFile(t, path, `log_level = "debug"`)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := resumed > 0 && len(levels) > 0 && levels[len(levels)-1] == "debug"
		mu.Unlock()
		if done {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("reload not observed: levels=%v resumed=%d", levels, resumed)
}

func TestPlugin_DisabledWithoutFile(t *testing.T) {
	p := New(Config{Path: filepath.Join(t.TempDir(), "missing.toml")})

	err := p.Initialize(context.Background(), worldlink.PluginConfig{Logger: logAdapter.NewNoopLogger()})
	if err != nil {
		t.Fatalf("Initialize() error = %v, want nil", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if p.Reloads() != 0 {
		t.Errorf("Reloads() = %d, want 0", p.Reloads())
	}
}

func TestPlugin_ShutdownStopsReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `port = 1`)

	p := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})
	if err := p.Initialize(context.Background(), worldlink.PluginConfig{Logger: logAdapter.NewNoopLogger()}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	writeFile(t, path, `port = 2`)
	time.Sleep(100 * time.Millisecond)

	if p.Reloads() != 0 {
		t.Errorf("Reloads() = %d after shutdown, want 0", p.Reloads())
	}
}

func TestPlugin_Name(t *testing.T) {
	if got := New(DefaultConfig()).Name(); got != "configwatcher" {
		t.Errorf("Name() = %q", got)
	}
}
