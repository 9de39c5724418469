package config

const (
	defaultConfigPath      = "~/.config/stwatch/config.toml"
	projectConfigName      = "stwatch.toml"
	defaultSyncthingURL    = "http://localhost:8384"
	defaultEventType       = "ItemFinished"
	handlerDisabledMarker  = "None"
	defaultStateDir        = "~/.local/share/stwatch"
	defaultLogDir          = "~/.local/share/stwatch/logs"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultLogMaxSizeMB    = 20
	defaultLogMaxBackups   = 5
	defaultLogRetention    = 30
	defaultPollInterval    = 10
	defaultBackoffInterval = 60
	defaultRestartGrace    = 10
	defaultSeedTimeout     = 5
	defaultProbeTimeout    = 5
	defaultNotifyTimeout   = 10
	defaultHistoryEntries  = 5000
)

// Environment variables consulted after the config file is read.
const (
	EnvSyncthingURL = "SYNCTHING_URL"
	EnvAPIKey       = "SYNCTHING_API"
	EnvEventType    = "STWATCH_EVENT"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Syncthing: Syncthing{
			URL:       defaultSyncthingURL,
			EventType: defaultEventType,
		},
		Watcher: Watcher{
			PollInterval:    defaultPollInterval,
			BackoffInterval: defaultBackoffInterval,
			RestartGrace:    defaultRestartGrace,
			SeedTimeout:     defaultSeedTimeout,
			ProbeTimeout:    defaultProbeTimeout,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			MaxSizeMB:     defaultLogMaxSizeMB,
			MaxBackups:    defaultLogMaxBackups,
			RetentionDays: defaultLogRetention,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		History: History{
			Enabled:    true,
			MaxEntries: defaultHistoryEntries,
		},
	}
}
