package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"stwatch/internal/config"
	"stwatch/internal/services"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.fake.URL())

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestMissingAPIKeyIsConfigurationError(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Syncthing.APIKey = ""
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if !errors.Is(err, config.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if services.ExitCode(err) != services.ExitConfiguration {
		t.Fatalf("expected exit status 2, got %d", services.ExitCode(err))
	}

	// the watcher itself fails the same way before touching the daemon
	_, _, err = runCLI(t, nil, env.configPath)
	if services.ExitCode(err) != services.ExitConfiguration {
		t.Fatalf("expected exit status 2 from watch, got %d (%v)", services.ExitCode(err), err)
	}

	// --api supplies the key
	if _, _, err := runCLI(t, []string{"--api", "flag-key", "config", "validate"}, env.configPath); err != nil {
		t.Fatalf("expected --api to satisfy validation, got %v", err)
	}
}
