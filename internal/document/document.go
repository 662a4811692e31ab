package document

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrMissing is returned when the document file does not exist.
var ErrMissing = errors.New("document: file does not exist")

// Document is the watched file and its last observed state.
type Document struct {
	path string

	mu      sync.RWMutex
	modTime time.Time
	content []byte
}

// New creates a Document for path, resolved to an absolute path.
// The file does not need to exist yet.
func New(path string) (*Document, error) {
	if path == "" {
		return nil, fmt.Errorf("document: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("document: resolve %q: %w", path, err)
	}
	return &Document{path: abs}, nil
}

// Path returns the absolute file path.
func (d *Document) Path() string { return d.path }

// Name returns the file's base name, e.g. "note.md".
func (d *Document) Name() string { return filepath.Base(d.path) }

// Ext returns the file extension including the dot, e.g. ".md".
func (d *Document) Ext() string { return filepath.Ext(d.path) }

// Dir returns the directory containing the file.
func (d *Document) Dir() string { return filepath.Dir(d.path) }

// Matches reports whether a requested name refers to this document.
// The comparison is case-insensitive and against the base name only, so
// "NOTE.MD" matches note.md while "docs/note.md" does not.
func (d *Document) Matches(name string) bool {
	return strings.EqualFold(name, d.Name())
}

// ModTime stats the file and returns its current modification time.
func (d *Document) ModTime() (time.Time, error) {
	info, err := os.Stat(d.path)
	if err != nil {
		return time.Time{}, wrap("stat", d.path, err)
	}
	return info.ModTime(), nil
}

// Read returns the full current content of the file.
func (d *Document) Read() ([]byte, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, wrap("read", d.path, err)
	}
	return data, nil
}

// Exists reports whether the file is currently present.
func (d *Document) Exists() bool {
	_, err := d.ModTime()
	return err == nil
}

// Observe records the modification time and content seen by the watcher.
// Callers must not modify content after calling Observe.
func (d *Document) Observe(modTime time.Time, content []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modTime = modTime
	d.content = content
}

// Last returns the most recently observed modification time and content.
// Both are zero until the first Observe.
func (d *Document) Last() (time.Time, []byte) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.modTime, d.content
}

func wrap(op, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrMissing, path)
	}
	return fmt.Errorf("document: %s %q: %w", op, path, err)
}
