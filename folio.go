package folio

import (
	"context"

	"github.com/goliatone/go-folio/internal/di"
	"github.com/goliatone/go-folio/internal/gallery"
	"github.com/goliatone/go-folio/internal/generator"
	folhttp "github.com/goliatone/go-folio/internal/http"
	"github.com/goliatone/go-folio/internal/markdown"
	"github.com/goliatone/go-folio/internal/posts"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

// Post is a parsed and rendered blog entry.
type Post = posts.Post

// Collection is an immutable, ordered set of posts.
type Collection = posts.Collection

// Photo is a gallery entry derived from an image file name.
type Photo = gallery.Photo

// GeneratorService exports the static generator contract.
type GeneratorService = generator.Service

// BuildResult summarises a generator run.
type BuildResult = generator.BuildResult

// RenderResult carries rendered HTML and any degraded-rule diagnostics.
type RenderResult = markdown.Result

// Module is the top level folio runtime facade.
type Module struct {
	container *di.Container
}

// New constructs a Module from cfg and optional container overrides.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// LoggerProvider returns the provider shared by every service.
func (m *Module) LoggerProvider() interfaces.LoggerProvider {
	return m.container.LoggerProvider()
}

// Markdown returns the loader, parser and renderer facade.
func (m *Module) Markdown() *markdown.Service {
	return m.container.MarkdownService()
}

// Posts returns the current post collection.
func (m *Module) Posts() *Collection {
	return m.container.PostStore().Current()
}

// Reload re-reads the content directory and swaps in the new collection.
func (m *Module) Reload(ctx context.Context) (*Collection, error) {
	return m.container.PostStore().Reload(ctx)
}

// Gallery returns nil when the gallery is disabled.
func (m *Module) Gallery() *gallery.Scanner {
	return m.container.GalleryScanner()
}

// Generator returns the static site generator.
func (m *Module) Generator() GeneratorService {
	return m.container.GeneratorService()
}

// API returns the JSON API.
func (m *Module) API() *folhttp.API {
	return m.container.API()
}

// Render renders a standalone markdown body with the configured rule table.
func (m *Module) Render(body []byte) RenderResult {
	return m.container.MarkdownService().Renderer().Render(body)
}
