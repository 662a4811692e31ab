package responder_test

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/livemark/livemark/internal/document"
	"github.com/livemark/livemark/internal/metrics"
	"github.com/livemark/livemark/internal/render"
	"github.com/livemark/livemark/internal/responder"
)

// --- test helpers -----------------------------------------------------------

const css = ".chroma { background-color: #fff }\n"

type fixture struct {
	dir string
	doc *document.Document
	h   http.Handler
}

// newFixture writes note.md (and optionally pygments.css) into a temp dir
// and returns a handler for it.
func newFixture(t *testing.T, content string, withCSS bool, opts ...responder.Option) *fixture {
	t.Helper()
	dir := t.TempDir()
	write(t, filepath.Join(dir, "note.md"), content)
	if withCSS {
		write(t, filepath.Join(dir, "pygments.css"), css)
	}
	doc, err := document.New(filepath.Join(dir, "note.md"))
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	return &fixture{dir: dir, doc: doc, h: responder.New(doc, render.New(), opts...)}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, http.MethodGet, path)
}

// --- /pygments.css ----------------------------------------------------------

func TestStylesheet_Served(t *testing.T) {
	f := newFixture(t, "# Hi", true)
	rr := get(t, f.h, "/pygments.css")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/css" {
		t.Errorf("content-type: got %q, want text/css", ct)
	}
	if rr.Body.String() != css {
		t.Errorf("body: got %q, want %q", rr.Body.String(), css)
	}
}

func TestStylesheet_Missing(t *testing.T) {
	f := newFixture(t, "# Hi", false)
	if rr := get(t, f.h, "/pygments.css"); rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestStylesheet_SuffixMatch(t *testing.T) {
	f := newFixture(t, "# Hi", true)
	if rr := get(t, f.h, "/assets/pygments.css"); rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
}

func TestStylesheet_CustomPath(t *testing.T) {
	other := filepath.Join(t.TempDir(), "theme.css")
	write(t, other, "body{}")
	f := newFixture(t, "# Hi", false, responder.WithStylesheet(other))

	rr := get(t, f.h, "/pygments.css")
	if rr.Code != http.StatusOK || rr.Body.String() != "body{}" {
		t.Errorf("got %d %q, want 200 body{}", rr.Code, rr.Body.String())
	}
}

// --- /<name>.md -------------------------------------------------------------

func TestDocument_RenderedPage(t *testing.T) {
	f := newFixture(t, "# Hi", false)
	rr := get(t, f.h, "/note.md")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content-type: got %q, want text/html", ct)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		`<div class="content"><h1>Hi</h1>`,
		`<link href="pygments.css" rel="stylesheet">`,
		"new WebSocket(",
		"innerHTML = event.data",
		"<title>note.md</title>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestDocument_CaseInsensitiveName(t *testing.T) {
	f := newFixture(t, "# Hi", false)
	lower := get(t, f.h, "/note.md")
	upper := get(t, f.h, "/NOTE.MD")

	if upper.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", upper.Code)
	}
	if lower.Body.String() != upper.Body.String() {
		t.Error("case variant returned a different body")
	}
}

func TestDocument_NotFound(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"other name", "/other.md"},
		{"subdirectory", "/docs/note.md"},
		{"root", "/"},
		{"html", "/note.html"},
		{"favicon", "/favicon.ico"},
	}
	f := newFixture(t, "# Hi", true)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if rr := get(t, f.h, tc.path); rr.Code != http.StatusNotFound {
				t.Errorf("GET %s: got %d, want 404", tc.path, rr.Code)
			}
		})
	}
}

func TestDocument_MismatchedNameIs404EvenIfFileExists(t *testing.T) {
	f := newFixture(t, "# Hi", false)
	write(t, filepath.Join(f.dir, "other.md"), "# Other")
	if rr := get(t, f.h, "/other.md"); rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestDocument_MissingFile(t *testing.T) {
	f := newFixture(t, "# Hi", false)
	os.Remove(f.doc.Path())
	if rr := get(t, f.h, "/note.md"); rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestDocument_ReadsFreshContent(t *testing.T) {
	f := newFixture(t, "# Hi", false)
	get(t, f.h, "/note.md")

	write(t, f.doc.Path(), "# Bye")
	body := get(t, f.h, "/note.md").Body.String()
	if !strings.Contains(body, "<h1>Bye</h1>") {
		t.Errorf("body does not reflect new content:\n%s", body)
	}
}

func TestDocument_OwnExtension(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "notes.markdown"), "# Hi")
	doc, _ := document.New(filepath.Join(dir, "notes.markdown"))
	h := responder.New(doc, render.New())

	if rr := get(t, h, "/notes.markdown"); rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
}

func TestDocument_LivePortEmbedded(t *testing.T) {
	f := newFixture(t, "# Hi", false, responder.WithLivePort(9999))
	body := get(t, f.h, "/note.md").Body.String()
	if !strings.Contains(body, "9999") {
		t.Errorf("body does not reference live port 9999")
	}
}

func TestDocument_RenderError(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "note.md"), "# Hi")
	doc, _ := document.New(filepath.Join(dir, "note.md"))
	failing := render.Func(func([]byte) (string, error) { return "", errors.New("boom") })

	rr := get(t, responder.New(doc, failing), "/note.md")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rr.Code)
	}
}

// --- methods, logging, metrics ----------------------------------------------

func TestUnsupportedMethod(t *testing.T) {
	f := newFixture(t, "# Hi", true)
	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		if rr := do(t, f.h, m, "/note.md"); rr.Code != http.StatusNotFound {
			t.Errorf("%s: got %d, want 404", m, rr.Code)
		}
	}
}

func TestHead(t *testing.T) {
	f := newFixture(t, "# Hi", true)
	if rr := do(t, f.h, http.MethodHead, "/note.md"); rr.Code != http.StatusOK {
		t.Errorf("HEAD: got %d, want 200", rr.Code)
	}
}

func TestRequestsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := newFixture(t, "# Hi", false, responder.WithLogger(log))

	get(t, f.h, "/other.md")
	out := buf.String()
	for _, want := range []string{"client=", "path=/other.md", "status=404", "requested=other.md"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestRequestMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	f := newFixture(t, "# Hi", false, responder.WithMetrics(m))

	get(t, f.h, "/note.md")
	get(t, f.h, "/nope")

	if got := testutil.ToFloat64(m.Requests.WithLabelValues("document", "200")); got != 1 {
		t.Errorf("document 200: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("other", "404")); got != 1 {
		t.Errorf("other 404: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Renders.WithLabelValues("request", "ok")); got != 1 {
		t.Errorf("request renders: got %v, want 1", got)
	}
}
