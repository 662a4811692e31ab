package render

import (
	"bytes"
	"fmt"
	"io"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// DefaultStyle is the chroma style used for code highlighting.
const DefaultStyle = "colorful"

// Renderer converts document source to display markup.
type Renderer interface {
	Render(src []byte) (string, error)
}

// Func adapts a plain function to the Renderer interface.
type Func func(src []byte) (string, error)

// Render calls f(src).
func (f Func) Render(src []byte) (string, error) {
	return f(src)
}

// Markdown renders CommonMark + GFM to HTML.
type Markdown struct {
	style string
	md    goldmark.Markdown
}

// Option configures a Markdown renderer.
type Option func(*Markdown)

// WithStyle selects the chroma style for fenced code blocks.
// Unknown names fall back to DefaultStyle.
func WithStyle(name string) Option {
	return func(m *Markdown) {
		if ValidStyle(name) {
			m.style = name
		}
	}
}

// New creates a Markdown renderer.
func New(opts ...Option) *Markdown {
	m := &Markdown{style: DefaultStyle}
	for _, opt := range opts {
		opt(m)
	}
	m.md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(m.style),
				highlighting.WithFormatOptions(chromahtml.WithClasses(false)),
			),
		),
		// Documents are local files owned by the user, so raw HTML passes through.
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return m
}

// Style returns the chroma style name in use.
func (m *Markdown) Style() string {
	return m.style
}

// Render converts src to an HTML fragment.
func (m *Markdown) Render(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("render: convert markdown: %w", err)
	}
	return buf.String(), nil
}

// ValidStyle reports whether name is a registered chroma style.
func ValidStyle(name string) bool {
	_, ok := styles.Registry[name]
	return ok
}

// WriteStylesheet writes class-based highlighting CSS for style to w.
func WriteStylesheet(w io.Writer, style string) error {
	if !ValidStyle(style) {
		return fmt.Errorf("render: unknown style %q", style)
	}
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(w, styles.Get(style)); err != nil {
		return fmt.Errorf("render: write stylesheet: %w", err)
	}
	return nil
}
