package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"stwatch/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Syncthing contains connection settings for the daemon REST API.
type Syncthing struct {
	URL       string `toml:"url"`
	APIKey    string `toml:"api_key"`
	EventType string `toml:"event_type"`
}

// Handler describes the optional external process invoked for each activity.
type Handler struct {
	Path   string   `toml:"path"`
	Args   []string `toml:"args"`
	DryRun bool     `toml:"dry_run"`

	// PassThrough holds arguments given after "--" on the command line.
	PassThrough []string `toml:"-"`
}

// Watcher contains poll loop timing, all values in seconds.
type Watcher struct {
	PollInterval    int `toml:"poll_interval"`
	BackoffInterval int `toml:"backoff_interval"`
	RestartGrace    int `toml:"restart_grace"`
	SeedTimeout     int `toml:"seed_timeout"`
	ProbeTimeout    int `toml:"probe_timeout"`
}

// Paths contains directories used for runtime state and logs.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	MaxSizeMB     int    `toml:"max_size_mb"`
	MaxBackups    int    `toml:"max_backups"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	ErrorsOnly     bool   `toml:"errors_only"`
}

// History controls the local activity history database.
type History struct {
	Enabled    bool `toml:"enabled"`
	MaxEntries int  `toml:"max_entries"`
}

// Config encapsulates all configuration values for stwatch.
//
// Configuration sections by subsystem:
//   - Syncthing: daemon URL, API key, and the event type to follow
//   - Handler: external process invoked per activity
//   - Watcher: poll, backoff, and probe timing
//   - Paths: state and log directories
//   - Logging: log format, level, and file rotation
//   - Notifications: ntfy push notification settings
//   - History: local activity history retention
type Config struct {
	Syncthing     Syncthing     `toml:"syncthing"`
	Handler       Handler       `toml:"handler"`
	Watcher       Watcher       `toml:"watcher"`
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
	History       History       `toml:"history"`
}

// Override mutates a loaded configuration before normalization. Command line
// flags are applied this way so they win over the file and the environment.
type Override func(*Config)

// DefaultConfigPath returns the absolute path of the per-user configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load builds the effective configuration: defaults, then the TOML file,
// then environment variables, then overrides. It returns the file path that
// was consulted and whether that file existed. Every failure is tagged with
// services.ErrConfiguration.
func Load(path string, overrides ...Override) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := locate(path)
	if err != nil {
		return nil, "", false, configError(err)
	}
	if exists {
		if err := cfg.decodeFile(resolved); err != nil {
			return nil, "", false, configError(err)
		}
	}

	cfg.applyEnv()
	for _, apply := range overrides {
		if apply != nil {
			apply(&cfg)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, configError(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, configError(err)
	}
	return &cfg, resolved, exists, nil
}

func configError(err error) error {
	if errors.Is(err, services.ErrConfiguration) {
		return err
	}
	return fmt.Errorf("%w: %w", services.ErrConfiguration, err)
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("parse %s:%d:%d: %w\n%s", path, row, col, err, derr.String())
		}
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// locate resolves an explicit path as given. Without one it tries the
// per-user file, then stwatch.toml in the working directory, and reports the
// per-user location when neither exists.
func locate(explicit string) (string, bool, error) {
	var candidates []string
	if explicit != "" {
		candidates = []string{explicit}
	} else {
		candidates = []string{defaultConfigPath, projectConfigName}
	}

	var first string
	for _, candidate := range candidates {
		abs, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if first == "" {
			first = abs
		}
		info, err := os.Stat(abs)
		switch {
		case err == nil && !info.IsDir():
			return abs, true, nil
		case err == nil:
			if explicit != "" {
				return "", false, fmt.Errorf("config path %s is a directory", abs)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return first, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Enabled reports whether an external handler process is configured. An empty
// path or the literal "None" disables it.
func (h Handler) Enabled() bool {
	path := strings.TrimSpace(h.Path)
	return path != "" && path != handlerDisabledMarker
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "stwatch.lock")
}

// PIDPath returns the pid file location written while the watcher runs.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "stwatch.pid")
}

// HistoryPath returns the activity history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LogPath returns the rotating log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "stwatch.log")
}

// expandPath resolves a leading ~ to the home directory and makes the result absolute.
func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		p = home + p[1:]
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", p, err)
	}
	return abs, nil
}

// ExpandPath applies the same ~ and relative path rules used for config values.
func ExpandPath(p string) (string, error) {
	return expandPath(p)
}

// CreateSample writes the commented sample configuration to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}
