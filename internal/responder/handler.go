package responder

import (
	"bytes"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/felixge/httpsnoop"

	"github.com/livemark/livemark/internal/document"
	"github.com/livemark/livemark/internal/metrics"
	"github.com/livemark/livemark/internal/render"
)

const (
	// StylesheetName is the asset name pages link to.
	StylesheetName = "pygments.css"

	// DefaultLivePort is the hub port embedded in pages when none is configured.
	DefaultLivePort = 8765
)

// Route labels used for logging and metrics.
const (
	routeStylesheet = "stylesheet"
	routeDocument   = "document"
	routeOther      = "other"
)

// Handler serves the document page and the stylesheet asset.
type Handler struct {
	doc        *document.Document
	renderer   render.Renderer
	stylesheet string
	livePort   int
	log        *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Handler.
type Option func(*Handler)

// WithStylesheet sets the file served as /pygments.css. Defaults to
// pygments.css in the document's directory.
func WithStylesheet(path string) Option {
	return func(h *Handler) {
		if path != "" {
			h.stylesheet = path
		}
	}
}

// WithLivePort sets the hub port the page's bootstrap script connects to.
func WithLivePort(port int) Option {
	return func(h *Handler) { h.livePort = port }
}

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// WithMetrics sets the collectors the handler updates.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// New creates a Handler for doc rendered with r.
func New(doc *document.Document, r render.Renderer, opts ...Option) *Handler {
	h := &Handler{
		doc:        doc,
		renderer:   r,
		stylesheet: filepath.Join(doc.Dir(), StylesheetName),
		livePort:   DefaultLivePort,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = metrics.Nop()
	}
	return h
}

// ServeHTTP routes the request and logs the outcome.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var route string
	m := httpsnoop.CaptureMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route = h.route(w, r)
	}), w, r)

	h.metrics.Requests.WithLabelValues(route, strconv.Itoa(m.Code)).Inc()
	h.log.Info("responder: request",
		"client", r.RemoteAddr,
		"method", r.Method,
		"path", r.URL.Path,
		"status", m.Code,
		"bytes", m.Written,
		"duration", m.Duration,
	)
}

// --- route handlers ---------------------------------------------------------

// route dispatches to the matching handler and returns its route label.
func (h *Handler) route(w http.ResponseWriter, r *http.Request) string {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		notFound(w)
		return routeOther
	}

	path := strings.Trim(r.URL.Path, "/")
	switch {
	case strings.HasSuffix(path, StylesheetName):
		h.serveStylesheet(w)
		return routeStylesheet
	case h.isDocumentPath(path):
		h.serveDocument(w, path)
		return routeDocument
	default:
		notFound(w)
		return routeOther
	}
}

// isDocumentPath reports whether path ends with ".md" or with the document's
// own extension, ignoring case.
func (h *Handler) isDocumentPath(path string) bool {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".md") {
		return true
	}
	ext := strings.ToLower(h.doc.Ext())
	return ext != "" && strings.HasSuffix(lower, ext)
}

// serveStylesheet returns the stylesheet bytes as text/css.
func (h *Handler) serveStylesheet(w http.ResponseWriter) {
	data, err := os.ReadFile(h.stylesheet)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			h.log.Debug("responder: stylesheet missing", "path", h.stylesheet)
			notFound(w)
			return
		}
		h.log.Error("responder: read stylesheet", "path", h.stylesheet, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/css")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// serveDocument renders the document fresh and wraps it in the page template.
func (h *Handler) serveDocument(w http.ResponseWriter, name string) {
	if !h.doc.Matches(name) {
		h.log.Debug("responder: requested document differs from watched document",
			"requested", name, "watched", h.doc.Name())
		notFound(w)
		return
	}

	src, err := h.doc.Read()
	if err != nil {
		if errors.Is(err, document.ErrMissing) {
			h.log.Debug("responder: document missing", "path", h.doc.Path())
			notFound(w)
			return
		}
		h.log.Error("responder: read document", "path", h.doc.Path(), "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	markup, err := h.renderer.Render(src)
	if err != nil {
		h.metrics.Renders.WithLabelValues("request", "error").Inc()
		h.log.Error("responder: render document", "path", h.doc.Path(), "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.metrics.Renders.WithLabelValues("request", "ok").Inc()

	var buf bytes.Buffer
	err = pageTemplate.Execute(&buf, pageData{
		Title:      h.doc.Name(),
		Stylesheet: StylesheetName,
		LivePort:   h.livePort,
		Content:    template.HTML(markup), //nolint:gosec // rendered from the user's own document
	})
	if err != nil {
		h.log.Error("responder: execute page template", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

func notFound(w http.ResponseWriter) {
	http.Error(w, "404 file not found", http.StatusNotFound)
}
