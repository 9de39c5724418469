// Package syncthing is a small client for the Syncthing daemon REST API.
//
// It covers the two endpoints the watcher consumes: the system configuration
// (for folder metadata) and the event stream. Responses are classified so the
// poll loop can tell "nothing new" (ErrNotModified) from a bad status
// (*StatusError, transient) and from a dropped connection
// (services.ErrStreamInterrupted, see IsTransportError).
package syncthing
