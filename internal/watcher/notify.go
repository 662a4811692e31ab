package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long the directory must stay quiet after an event for
// the document before a poll is signalled. Editors typically emit several
// events per save (truncate, write, chmod, rename).
const settleDelay = 50 * time.Millisecond

// watchEvents watches the document's directory and signals on the returned
// channel once a burst of events naming the document has settled. Signals
// coalesce: at most one is pending at a time. The watch stops when ctx is
// cancelled.
func (p *Poller) watchEvents(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(p.doc.Dir()); err != nil {
		w.Close()
		return nil, err
	}

	out := make(chan struct{}, 1)
	signal := func() {
		select {
		case out <- struct{}{}:
		default:
		}
	}
	settle := debounce.New(settleDelay)

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != p.doc.Path() {
					continue
				}
				settle(signal)

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				p.log.Error("watcher: fsnotify error", "err", err)
			}
		}
	}()
	return out, nil
}
