// Package watcher follows a Syncthing daemon's event stream.
//
// A Watcher probes the daemon, seeds its cursor from the events the daemon
// still buffers, then polls for newer events one request at a time. Events of
// the configured type are resolved against the folder directory, turned into
// activity payloads, and handed to a dispatcher synchronously. Non-success
// responses put the loop into backoff; a dropped stream triggers a liveness
// re-probe that either resumes polling or stops the watcher with
// services.ErrUnreachable.
//
// The cursor is the highest event id seen for the configured type. It never
// decreases, and it advances for unresolvable events too, so a skipped event
// is never retried.
package watcher
