package testsupport

import (
	"path/filepath"
	"testing"

	"stwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Syncthing.APIKey = "test-key"
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Logging.Format = "json"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithSyncthingURL points the test config at a daemon address.
func WithSyncthingURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Syncthing.URL = url
	}
}

// WithHandler sets the handler executable and its leading arguments.
func WithHandler(path string, args ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Handler.Path = path
		b.cfg.Handler.Args = args
	}
}

// WithHistory toggles the history store.
func WithHistory(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = enabled
	}
}
