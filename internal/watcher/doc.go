// Package watcher polls the watched document and pushes fresh renderings.
//
// Poller.Run records the document's current modification time, then wakes
// every interval (default 1s), compares the modification time against the
// stored value and, when it differs, reads the file, renders it and hands the
// markup to a Dispatcher. An unchanged modification time never dispatches.
//
// A missing document ends Run with an error wrapping document.ErrMissing.
// Other stat, read or render failures are logged and retried on the next
// cycle.
//
// With WithNotify, fsnotify events for the document's directory trigger an
// extra poll between ticks. This handles the rename-and-create pattern used
// by atomic-save editors (vim, VS Code) since the directory, not the file
// inode, is watched.
package watcher
