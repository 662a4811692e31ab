package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/livemark/livemark/internal/document"
	"github.com/livemark/livemark/internal/metrics"
	"github.com/livemark/livemark/internal/render"
)

// DefaultInterval is the delay between polls.
const DefaultInterval = time.Second

// Dispatcher receives rendered markup, e.g. *hub.Hub.
type Dispatcher interface {
	Dispatch(msg string) int
}

// Poller watches one document by polling its modification time.
type Poller struct {
	doc        *document.Document
	renderer   render.Renderer
	dispatcher Dispatcher

	interval time.Duration
	clock    clockwork.Clock
	notify   bool
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the poll interval. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClock replaces the real clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(p *Poller) { p.clock = c }
}

// WithNotify enables fsnotify-triggered polls in addition to the ticker.
func WithNotify(enabled bool) Option {
	return func(p *Poller) { p.notify = enabled }
}

// WithLogger sets the poller's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) { p.log = l }
}

// WithMetrics sets the collectors the poller updates.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// New creates a Poller for doc that renders with r and dispatches to d.
func New(doc *document.Document, r render.Renderer, d Dispatcher, opts ...Option) *Poller {
	p := &Poller{
		doc:        doc,
		renderer:   r,
		dispatcher: d,
		interval:   DefaultInterval,
		clock:      clockwork.NewRealClock(),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = metrics.Nop()
	}
	return p
}

// Run polls until ctx is cancelled, returning nil, or until the document
// disappears, returning an error wrapping document.ErrMissing.
func (p *Poller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := p.prime(); err != nil {
		return err
	}

	var events <-chan struct{}
	if p.notify {
		ch, err := p.watchEvents(ctx)
		if err != nil {
			p.log.Warn("watcher: filesystem notifications unavailable, polling only",
				"path", p.doc.Path(), "err", err)
		} else {
			events = ch
		}
	}

	p.log.Info("watcher: polling document", "path", p.doc.Path(), "interval", p.interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.clock.After(p.interval):
		case <-events:
			p.log.Debug("watcher: filesystem event", "path", p.doc.Path())
		}

		if _, err := p.Poll(); err != nil {
			if errors.Is(err, document.ErrMissing) {
				return fmt.Errorf("watcher: %w", err)
			}
			p.log.Warn("watcher: poll failed, retrying next cycle", "path", p.doc.Path(), "err", err)
		}
	}
}

// Poll runs one cycle. It reports whether the document changed and was
// dispatched. A read or render failure leaves the stored modification time
// untouched so the next cycle retries.
func (p *Poller) Poll() (bool, error) {
	modTime, err := p.doc.ModTime()
	if err != nil {
		p.metrics.Polls.WithLabelValues("error").Inc()
		return false, err
	}

	last, _ := p.doc.Last()
	if modTime.Equal(last) {
		p.metrics.Polls.WithLabelValues("unchanged").Inc()
		return false, nil
	}

	content, err := p.doc.Read()
	if err != nil {
		p.metrics.Polls.WithLabelValues("error").Inc()
		return false, err
	}

	markup, err := p.renderer.Render(content)
	if err != nil {
		p.metrics.Polls.WithLabelValues("error").Inc()
		p.metrics.Renders.WithLabelValues("watcher", "error").Inc()
		return false, err
	}
	p.doc.Observe(modTime, content)
	p.metrics.Polls.WithLabelValues("changed").Inc()
	p.metrics.Renders.WithLabelValues("watcher", "ok").Inc()

	n := p.dispatcher.Dispatch(markup)
	p.log.Info("watcher: document updated", "path", p.doc.Path(), "subscribers", n)
	return true, nil
}

// prime records the starting state so the first cycle only dispatches on a
// real change.
func (p *Poller) prime() error {
	modTime, err := p.doc.ModTime()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	content, err := p.doc.Read()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	p.doc.Observe(modTime, content)
	return nil
}
