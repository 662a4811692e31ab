package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/livemark/livemark/internal/config"
	"github.com/livemark/livemark/internal/document"
	"github.com/livemark/livemark/internal/hub"
	"github.com/livemark/livemark/internal/metrics"
	"github.com/livemark/livemark/internal/render"
	"github.com/livemark/livemark/internal/responder"
	"github.com/livemark/livemark/internal/watcher"
)

// Supervisor owns the listeners and the watcher for one document.
type Supervisor struct {
	cfg      *config.Config
	doc      *document.Document
	renderer render.Renderer
	log      *slog.Logger
	clock    clockwork.Clock

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	hub       *hub.Hub
	responder *responder.Handler
	poller    *watcher.Poller

	pageLn, hubLn, metricsLn net.Listener
	ready                    chan struct{}
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger passed to every component.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) { s.log = l }
}

// WithClock replaces the watcher's clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Supervisor) { s.clock = c }
}

// New wires the hub and watcher for doc from cfg. The responder is built by
// Run once the listeners are bound.
func New(cfg *config.Config, doc *document.Document, r render.Renderer, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:      cfg,
		doc:      doc,
		renderer: r,
		log:      slog.Default(),
		clock:    clockwork.NewRealClock(),
		registry: prometheus.NewRegistry(),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = metrics.New(s.registry)

	hubOpts := []hub.Option{
		hub.WithLogger(s.log),
		hub.WithMetrics(s.metrics),
		hub.WithSendBuffer(cfg.Hub.SendBuffer),
	}
	if cfg.Hub.ReplayLast {
		hubOpts = append(hubOpts, hub.WithReplay())
	}
	s.hub = hub.New(hubOpts...)

	s.poller = watcher.New(doc, r, s.hub,
		watcher.WithInterval(cfg.Watch.Interval),
		watcher.WithNotify(cfg.Watch.Notify),
		watcher.WithClock(s.clock),
		watcher.WithLogger(s.log),
		watcher.WithMetrics(s.metrics),
	)
	return s
}

// Hub returns the live-update hub.
func (s *Supervisor) Hub() *hub.Hub { return s.hub }

// Registry returns the Prometheus registry holding livemark's collectors.
func (s *Supervisor) Registry() *prometheus.Registry { return s.registry }

// Ready is closed once every listener is bound.
func (s *Supervisor) Ready() <-chan struct{} { return s.ready }

// PageAddr returns the bound page listener address. Valid after Ready.
func (s *Supervisor) PageAddr() net.Addr { return s.pageLn.Addr() }

// HubAddr returns the bound hub listener address. Valid after Ready.
func (s *Supervisor) HubAddr() net.Addr { return s.hubLn.Addr() }

// MetricsAddr returns the bound metrics listener address, or nil when the
// metrics listener is disabled. Valid after Ready.
func (s *Supervisor) MetricsAddr() net.Addr {
	if s.metricsLn == nil {
		return nil
	}
	return s.metricsLn.Addr()
}

// Run serves until ctx is cancelled. It returns an error only when a
// listener cannot be bound or a server fails.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.listen(); err != nil {
		return err
	}

	// The page must point at the hub's bound port, which differs from the
	// configured one when an ephemeral port was requested.
	s.responder = responder.New(s.doc, s.renderer,
		responder.WithStylesheet(s.cfg.Render.Stylesheet),
		responder.WithLivePort(boundPort(s.hubLn, s.cfg.Server.WSPort)),
		responder.WithLogger(s.log),
		responder.WithMetrics(s.metrics),
	)

	servers := []*namedServer{
		{name: "page", ln: s.pageLn, srv: &http.Server{Handler: s.responder, ReadHeaderTimeout: 10 * time.Second}},
		{name: "hub", ln: s.hubLn, srv: &http.Server{Handler: s.hub, ReadHeaderTimeout: 10 * time.Second}},
	}
	if s.metricsLn != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(s.registry))
		servers = append(servers, &namedServer{name: "metrics", ln: s.metricsLn, srv: &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}})
	}
	close(s.ready)

	g, gctx := errgroup.WithContext(ctx)

	for _, ns := range servers {
		ns := ns
		g.Go(func() error {
			s.log.Info("supervisor: listening", "listener", ns.name, "addr", ns.ln.Addr().String())
			if err := ns.srv.Serve(ns.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("supervisor: %s server: %w", ns.name, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		s.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		if err := s.poller.Run(gctx); err != nil {
			// Only the watcher stops; the listeners keep serving the last state.
			s.log.Error("supervisor: watcher stopped", "path", s.doc.Path(), "err", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.shutdown(servers)
		return nil
	})

	err := g.Wait()
	s.logSummary()
	return err
}

// namedServer pairs an http.Server with its bound listener.
type namedServer struct {
	name string
	ln   net.Listener
	srv  *http.Server
}

// listen binds every enabled listener, closing already-bound ones on failure.
func (s *Supervisor) listen() error {
	bind := s.cfg.Server.Bind

	var err error
	if s.pageLn, err = net.Listen("tcp", net.JoinHostPort(bind, strconv.Itoa(s.cfg.Server.HTTPPort))); err != nil {
		return fmt.Errorf("supervisor: listen on page port %d: %w", s.cfg.Server.HTTPPort, err)
	}
	if s.hubLn, err = net.Listen("tcp", net.JoinHostPort(bind, strconv.Itoa(s.cfg.Server.WSPort))); err != nil {
		s.pageLn.Close()
		return fmt.Errorf("supervisor: listen on live-update port %d: %w", s.cfg.Server.WSPort, err)
	}
	if s.cfg.Server.MetricsPort > 0 {
		if s.metricsLn, err = net.Listen("tcp", net.JoinHostPort(bind, strconv.Itoa(s.cfg.Server.MetricsPort))); err != nil {
			s.pageLn.Close()
			s.hubLn.Close()
			return fmt.Errorf("supervisor: listen on metrics port %d: %w", s.cfg.Server.MetricsPort, err)
		}
	}
	return nil
}

func boundPort(ln net.Listener, configured int) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return configured
}

// shutdown stops accepting connections and waits for in-flight responses.
func (s *Supervisor) shutdown(servers []*namedServer) {
	s.log.Info("supervisor: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	for _, ns := range servers {
		if err := ns.srv.Shutdown(ctx); err != nil {
			s.log.Warn("supervisor: shutdown incomplete", "listener", ns.name, "err", err)
		}
	}
}

func (s *Supervisor) logSummary() {
	sum, err := metrics.Summary(s.registry)
	if err != nil {
		s.log.Debug("supervisor: metrics summary unavailable", "err", err)
		return
	}
	keys := make([]string, 0, len(sum))
	for k := range sum {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, k, sum[k])
	}
	s.log.Debug("supervisor: final metrics", args...)
}
