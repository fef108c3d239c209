package worldlink

import (
	"testing"
	"time"
)

func TestConfig_ConnectorIdleTimeout(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want time.Duration
	}{
		{name: "default", cfg: Config{}, want: 60 * time.Second},
		{name: "custom", cfg: Config{ReadIdleTimeout: 5 * time.Second}, want: 5 * time.Second},
		{name: "disabled", cfg: Config{DisableIdleWatchdog: true}, want: 0},
		{name: "disabled wins over timeout", cfg: Config{ReadIdleTimeout: 5 * time.Second, DisableIdleWatchdog: true}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			if got := cfg.connectorConfig().ReadIdleTimeout; got != tt.want {
				t.Errorf("ReadIdleTimeout = %v, want %v", got, tt.want)
			}
		})
	}
}
