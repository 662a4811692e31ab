package main

import (
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/livemark/livemark/internal/config"
	"github.com/livemark/livemark/internal/document"
	"github.com/livemark/livemark/internal/logging"
	"github.com/livemark/livemark/internal/render"
	"github.com/livemark/livemark/internal/supervisor"
)

// flags holds command-line overrides for config values.
type flags struct {
	configPath  string
	verbose     int
	quiet       bool
	bind        string
	httpPort    int
	wsPort      int
	metricsPort int
	interval    time.Duration
	notify      bool
	stylesheet  string
	style       string
	replay      bool
	logFormat   string
}

func newRootCmd() *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:   "livemark [flags] <document.md>",
		Short: "Live preview of a Markdown document in the browser",
		Long: `livemark renders a Markdown document to HTML, serves it on one port and
pushes a fresh rendering to every open browser over WebSocket whenever the
file changes.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return run(cmd, cfg, args[0], verbosity(&f))
		},
	}

	bindFlags(root.Flags(), &f)
	root.AddCommand(newStylesheetCmd())
	return root
}

func bindFlags(fl *pflag.FlagSet, f *flags) {
	fl.StringVar(&f.configPath, "config", "", "YAML config file")
	fl.CountVarP(&f.verbose, "verbose", "v", "increase verbosity (-v debug)")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "log errors only")
	fl.StringVar(&f.bind, "bind", config.DefaultBind, "listen address")
	fl.IntVar(&f.httpPort, "http-port", config.DefaultHTTPPort, "port serving the rendered page")
	fl.IntVar(&f.wsPort, "ws-port", config.DefaultWSPort, "port serving live updates")
	fl.IntVar(&f.metricsPort, "metrics-port", 0, "port serving Prometheus metrics (0 disables)")
	fl.DurationVar(&f.interval, "interval", config.DefaultInterval, "document poll interval")
	fl.BoolVar(&f.notify, "notify", false, "also poll on filesystem events")
	fl.StringVar(&f.stylesheet, "stylesheet", "", "file served as /pygments.css (default: next to the document)")
	fl.StringVar(&f.style, "style", config.DefaultStyle, "chroma style for code blocks")
	fl.BoolVar(&f.replay, "replay", false, "send the latest rendering to newly connected browsers")
	fl.StringVar(&f.logFormat, "log-format", config.DefaultLogFormat, "log format: text|json")
}

// verbosity maps -q/-v to a logging level. Info is the default; each -v
// raises it.
func verbosity(f *flags) int {
	if f.quiet {
		return logging.VerbosityError
	}
	return logging.VerbosityInfo + f.verbose
}

// loadConfig reads the optional config file and applies explicitly set flags.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("bind") {
		cfg.Server.Bind = f.bind
	}
	if changed("http-port") {
		cfg.Server.HTTPPort = f.httpPort
	}
	if changed("ws-port") {
		cfg.Server.WSPort = f.wsPort
	}
	if changed("metrics-port") {
		cfg.Server.MetricsPort = f.metricsPort
	}
	if changed("interval") {
		cfg.Watch.Interval = f.interval
	}
	if changed("notify") {
		cfg.Watch.Notify = f.notify
	}
	if changed("stylesheet") {
		cfg.Render.Stylesheet = f.stylesheet
	}
	if changed("style") {
		cfg.Render.Style = f.style
	}
	if changed("replay") {
		cfg.Hub.ReplayLast = f.replay
	}
	if changed("log-format") {
		cfg.Log.Format = f.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, cfg *config.Config, path string, verbosity int) error {
	logger := logging.Init(verbosity, cfg.Log.Format)

	doc, err := document.New(path)
	if err != nil {
		return err
	}
	if !doc.Exists() {
		return fmt.Errorf("markdown file %q not found", doc.Path())
	}

	logger.Info("livemark starting",
		"document", doc.Path(),
		"http_port", cfg.Server.HTTPPort,
		"ws_port", cfg.Server.WSPort,
		"interval", cfg.Watch.Interval,
	)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	renderer := render.New(render.WithStyle(cfg.Render.Style))
	sup := supervisor.New(cfg, doc, renderer, supervisor.WithLogger(logger))

	go func() {
		select {
		case <-sup.Ready():
			fmt.Fprintf(cmd.OutOrStdout(), "livemark is running: http://localhost:%d/%s\n",
				pagePort(sup, cfg.Server.HTTPPort), doc.Name())
		case <-ctx.Done():
		}
	}()

	if err := sup.Run(ctx); err != nil {
		logger.Error("livemark stopped", "err", err)
		return err
	}
	logger.Info("livemark stopped")
	return nil
}

// pagePort returns the bound page port, which differs from the configured
// one when an ephemeral port was requested.
func pagePort(sup *supervisor.Supervisor, configured int) int {
	if addr, ok := sup.PageAddr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return configured
}
