// Package markdown converts Markdown documents to HTML.
//
// Served content is trusted local documentation, so raw HTML blocks, inline
// scripts and arbitrary link and image targets pass through untouched. Fenced
// code blocks with a known language are highlighted with inline styles.
package markdown

import (
	"bytes"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"github.com/conneroisu/docsman/internal/errors"
)

// DefaultStyle is the chroma style used for fenced code blocks.
const DefaultStyle = "github"

// Renderer converts Markdown source to HTML. It is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

type options struct {
	highlight bool
	style     string
}

// Option configures a Renderer.
type Option func(*options)

// WithStyle selects the chroma style for code highlighting.
func WithStyle(name string) Option {
	return func(o *options) {
		o.style = name
	}
}

// WithoutHighlighting renders fenced code as plain <pre><code> blocks.
func WithoutHighlighting() Option {
	return func(o *options) {
		o.highlight = false
	}
}

// New creates a Renderer with GFM tables, strikethrough, task lists and
// autolinks enabled.
func New(opts ...Option) *Renderer {
	o := &options{highlight: true, style: DefaultStyle}
	for _, opt := range opts {
		opt(o)
	}

	rendererOptions := []renderer.Option{
		html.WithUnsafe(),
	}
	if o.highlight {
		rendererOptions = append(rendererOptions,
			renderer.WithNodeRenderers(util.Prioritized(newCodeBlockRenderer(o.style), 200)),
		)
	}

	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.DefinitionList,
				extension.Footnote,
			),
			goldmark.WithRendererOptions(rendererOptions...),
		),
	}
}

var (
	defaultRenderer     *Renderer
	defaultRendererOnce sync.Once
)

// Default returns a shared Renderer with the default configuration.
func Default() *Renderer {
	defaultRendererOnce.Do(func() {
		defaultRenderer = New()
	})
	return defaultRenderer
}

// Render converts source to HTML.
func (r *Renderer) Render(source []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf); err != nil {
		return "", errors.NewRenderError("ERR_MARKDOWN", "failed to parse markdown", err)
	}

	return buf.String(), nil
}
