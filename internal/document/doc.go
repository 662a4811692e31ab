// Package document holds the single Markdown file livemark watches.
//
// A Document is identified by its absolute path and caches the last observed
// modification time and content. Only the watcher writes the cache (Observe);
// HTTP handlers read the file fresh through Read. A missing file is reported
// as ErrMissing so callers can tell it apart from transient I/O failures.
package document
