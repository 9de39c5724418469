// Package history persists dispatched activity and the watcher's last event
// cursor in a SQLite database under the state directory.
//
// The store is append-mostly: every payload that reaches the dispatch chain is
// recorded with the daemon event id and the watcher session id, and the table
// is pruned to a configured number of rows. The cursor row is informational
// only; the watcher always re-seeds from the daemon on start.
package history
