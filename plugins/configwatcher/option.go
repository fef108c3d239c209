package configwatcher

import "github.com/Jaydccq/mini-ups-sub001/pkg/worldlink"

// WithConfigWatcher returns a worldlink Option that reloads the config
// file on change.
//
// Usage:
//
//	w, err := worldlink.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:     "/etc/worldlink/config.toml",
//	        OnReload: func(fc configwatcher.FileConfig) { ... },
//	    }),
//	)
func WithConfigWatcher(cfg Config) worldlink.Option {
	return worldlink.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher watches $HOME/.worldlink/config.toml.
func WithDefaultConfigWatcher() worldlink.Option {
	return WithConfigWatcher(DefaultConfig())
}
