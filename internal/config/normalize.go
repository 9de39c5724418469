package config

import (
	"fmt"
	"os"
	"strings"
)

// applyEnv lets the environment win over values read from the file.
func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv(EnvSyncthingURL); ok && strings.TrimSpace(value) != "" {
		c.Syncthing.URL = value
	}
	if value, ok := os.LookupEnv(EnvAPIKey); ok && strings.TrimSpace(value) != "" {
		c.Syncthing.APIKey = value
	}
	if value, ok := os.LookupEnv(EnvEventType); ok && strings.TrimSpace(value) != "" {
		c.Syncthing.EventType = value
	}
}

func (c *Config) normalize() error {
	c.normalizeSyncthing()
	c.normalizeHandler()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWatcher()
	c.normalizeLogging()
	c.normalizeNotifications()
	if c.History.MaxEntries < 0 {
		c.History.MaxEntries = 0
	}
	return nil
}

func (c *Config) normalizeSyncthing() {
	c.Syncthing.URL = strings.TrimRight(strings.TrimSpace(c.Syncthing.URL), "/")
	if c.Syncthing.URL == "" {
		c.Syncthing.URL = defaultSyncthingURL
	}
	c.Syncthing.APIKey = strings.TrimSpace(c.Syncthing.APIKey)
	c.Syncthing.EventType = strings.TrimSpace(c.Syncthing.EventType)
	if c.Syncthing.EventType == "" {
		c.Syncthing.EventType = defaultEventType
	}
}

func (c *Config) normalizeHandler() {
	c.Handler.Path = strings.TrimSpace(c.Handler.Path)
	if c.Handler.Path == handlerDisabledMarker {
		c.Handler.Path = ""
	}
	args := make([]string, 0, len(c.Handler.Args))
	for _, arg := range c.Handler.Args {
		if arg == "" {
			continue
		}
		args = append(args, arg)
	}
	c.Handler.Args = args
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatcher() {
	if c.Watcher.ProbeTimeout <= 0 {
		c.Watcher.ProbeTimeout = defaultProbeTimeout
	}
	if c.Watcher.SeedTimeout <= 0 {
		c.Watcher.SeedTimeout = defaultSeedTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}
