// Package page turns a request path into a rendered documentation page.
//
// The pipeline resolves the request through the sandbox, renders the file's
// Markdown, attaches the legend and hands the result to the layout component.
package page

import (
	"context"

	"github.com/conneroisu/docsman/internal/errors"
	"github.com/conneroisu/docsman/internal/legend"
	"github.com/conneroisu/docsman/internal/logging"
	"github.com/conneroisu/docsman/internal/sandbox"
)

// IndexDocument is served for the root request.
const IndexDocument = "index.md"

// MarkdownRenderer is the external text to HTML conversion.
type MarkdownRenderer interface {
	Render(source []byte) (string, error)
}

// LegendLister produces the current legend.
type LegendLister interface {
	List() (legend.Legend, error)
}

// Page is the payload embedded in the layout.
type Page struct {
	// Title is the file's base name.
	Title string
	// Content is the rendered HTML.
	Content string
	// Path is the request path the page was rendered for. Browsers compare
	// it against pageupdate events.
	Path string
	// Legend is nil when the legend feature is off.
	Legend legend.Legend

	LegendEnabled bool
	AutoReload    bool
}

// Options toggles optional page features.
type Options struct {
	Legend     bool
	AutoReload bool
}

// Pipeline renders requests against a single sandbox root.
type Pipeline struct {
	root     sandbox.Root
	renderer MarkdownRenderer
	legend   LegendLister
	options  Options
	logger   logging.Logger
}

// NewPipeline creates a content pipeline. lister may be nil when the legend
// feature is disabled.
func NewPipeline(root sandbox.Root, renderer MarkdownRenderer, lister LegendLister, options Options, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Pipeline{
		root:     root,
		renderer: renderer,
		legend:   lister,
		options:  options,
		logger:   logger.WithComponent("page"),
	}
}

// Render builds the page for request, a path relative to the root. The empty
// request is an alias for index.md.
func (p *Pipeline) Render(ctx context.Context, request string) (*Page, error) {
	if request == "" {
		request = IndexDocument
	}

	resolved, err := p.root.Resolve(request)
	if err != nil {
		return nil, err
	}

	source, err := resolved.ReadFile()
	if err != nil {
		return nil, errors.NewNotFoundError("ERR_READ", "failed to read file", err).
			WithContext("page", request)
	}

	content, err := p.renderer.Render(source)
	if err != nil {
		if errors.IsRender(err) {
			return nil, err
		}
		return nil, errors.NewRenderError("ERR_MARKDOWN", "failed to parse markdown", err).
			WithContext("page", request)
	}

	page := &Page{
		Title:         resolved.Base(),
		Content:       content,
		Path:          request,
		LegendEnabled: p.options.Legend,
		AutoReload:    p.options.AutoReload,
	}

	if p.options.Legend && p.legend != nil {
		entries, err := p.legend.List()
		if err != nil {
			// A page is still useful without navigation.
			p.logger.Warn(ctx, err, "Failed to build legend", "page", request)
			entries = legend.Legend{}
		}
		page.Legend = entries
	}

	return page, nil
}
