// Command stwatch follows a Syncthing daemon's event stream, logs every
// synced item, and optionally hands each one to an external handler.
//
// Running stwatch with no subcommand starts the watcher. Arguments after "--"
// are appended to every handler invocation. The status, folders, and history
// subcommands inspect the daemon and the local history database without
// starting a watcher.
package main
