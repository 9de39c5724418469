package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"stwatch/internal/services"
)

// ErrMissingAPIKey reports that no Syncthing API key was configured.
var ErrMissingAPIKey = fmt.Errorf("%w: syncthing api key is required", services.ErrConfiguration)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSyncthing(); err != nil {
		return err
	}
	if err := c.validateWatcher(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.History.Enabled && c.History.MaxEntries < 0 {
		return errors.New("history.max_entries must be >= 0")
	}
	return nil
}

func (c *Config) validateSyncthing() error {
	if c.Syncthing.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("%w. Set %s or pass --api, or edit %s (create with 'stwatch config init')", ErrMissingAPIKey, EnvAPIKey, defaultPath)
	}
	parsed, err := url.Parse(c.Syncthing.URL)
	if err != nil {
		return fmt.Errorf("syncthing.url: %w", err)
	}
	if parsed.Scheme != "" && parsed.Host == "" {
		return fmt.Errorf("syncthing.url %q has no host", c.Syncthing.URL)
	}
	if strings.ContainsAny(c.Syncthing.EventType, " ,") {
		return fmt.Errorf("syncthing.event_type %q must name a single event type", c.Syncthing.EventType)
	}
	return nil
}

func (c *Config) validateWatcher() error {
	return ensurePositiveMap(map[string]int{
		"watcher.poll_interval":         c.Watcher.PollInterval,
		"watcher.backoff_interval":      c.Watcher.BackoffInterval,
		"watcher.restart_grace":         c.Watcher.RestartGrace,
		"watcher.seed_timeout":          c.Watcher.SeedTimeout,
		"watcher.probe_timeout":         c.Watcher.ProbeTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
