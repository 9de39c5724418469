// Package dispatch delivers activity payloads to their consumers.
//
// Every consumer implements Dispatcher. The watcher always logs each activity
// through LogDispatcher and, when a handler path is configured, also runs the
// handler through ScriptDispatcher. Multi fans one payload out to several
// dispatchers in order without letting one failure hide another.
package dispatch
