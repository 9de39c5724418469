// Package config loads, normalizes, and validates stwatch configuration.
//
// It merges defaults with the TOML file, the SYNCTHING_* environment variables,
// and command line overrides, expands user paths, and exposes helpers such as
// EnsureDirectories and CreateSample that the CLI uses during setup.
//
// All other packages should depend on the normalized Config rather than
// reading the environment directly.
package config
