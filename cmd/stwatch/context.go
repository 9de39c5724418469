package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"stwatch/internal/config"
)

// watchFlags holds the persistent flags that override configuration.
type watchFlags struct {
	configPath string
	url        string
	apiKey     string
	event      string
	script     string
	dryRun     bool
	quiet      bool
	logLevel   string
}

type commandContext struct {
	flags *watchFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *watchFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(c.flags.configPath)
		cfg, _, _, err := config.Load(path, c.overrides()...)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// overrides turns non-empty flags into config overrides applied after the
// environment.
func (c *commandContext) overrides() []config.Override {
	f := c.flags
	var out []config.Override
	if v := strings.TrimSpace(f.url); v != "" {
		out = append(out, func(cfg *config.Config) { cfg.Syncthing.URL = v })
	}
	if v := strings.TrimSpace(f.apiKey); v != "" {
		out = append(out, func(cfg *config.Config) { cfg.Syncthing.APIKey = v })
	}
	if v := strings.TrimSpace(f.event); v != "" {
		out = append(out, func(cfg *config.Config) { cfg.Syncthing.EventType = v })
	}
	if fields := strings.Fields(f.script); len(fields) > 0 {
		out = append(out, func(cfg *config.Config) {
			cfg.Handler.Path = fields[0]
			cfg.Handler.Args = append([]string(nil), fields[1:]...)
		})
	}
	if f.dryRun {
		out = append(out, func(cfg *config.Config) { cfg.Handler.DryRun = true })
	}
	return out
}

// logLevel resolves the effective level flag; --quiet wins over --log-level.
func (c *commandContext) logLevel() string {
	if c.flags.quiet {
		return "warn"
	}
	return strings.TrimSpace(c.flags.logLevel)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
