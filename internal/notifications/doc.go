// Package notifications delivers watcher events via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and degrades to a no-op when no topic is set. ActivityDispatcher
// lets the watcher push one notification per synced item (or only for items
// that failed), and the runtime publishes EventWatcherStopped when the daemon
// disappears.
package notifications
