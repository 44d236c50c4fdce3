package markdown

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

// Config controls how the service discovers, parses and renders documents.
type Config struct {
	BasePath    string
	Pattern     string
	Recursive   bool
	FrontMatter FrontMatterMode
	Highlight   HighlightConfig
	// DisableRawHTML strips raw HTML from rendered output.
	DisableRawHTML bool
	// DisableTypographer keeps straight quotes and plain dashes.
	DisableTypographer bool
	// DisableLinkify stops bare URLs from becoming links.
	DisableLinkify bool
}

// ServiceOption customises a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	filesystem fs.FS
	logger     interfaces.Logger
	rules      []Registration
}

// WithFilesystem replaces the os.DirFS(BasePath) filesystem, mainly for tests.
func WithFilesystem(filesystem fs.FS) ServiceOption {
	return func(o *serviceOptions) {
		o.filesystem = filesystem
	}
}

// WithServiceLogger sets the logger shared by the renderer.
func WithServiceLogger(logger interfaces.Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithServiceRules appends rule registrations after the defaults.
func WithServiceRules(regs ...Registration) ServiceOption {
	return func(o *serviceOptions) {
		o.rules = append(o.rules, regs...)
	}
}

// Service bundles the loader, frontmatter parser and renderer behind one
// configuration.
type Service struct {
	cfg         Config
	loader      *Loader
	frontMatter FrontMatterParser
	renderer    *Renderer
	highlighter *Highlighter
}

// NewService constructs a Service. Without WithFilesystem the base path must
// exist on disk.
func NewService(cfg Config, opts ...ServiceOption) (*Service, error) {
	options := serviceOptions{logger: logging.NoOp()}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	filesystem := options.filesystem
	if filesystem == nil {
		var err error
		if filesystem, err = prepareFilesystem(cfg.BasePath); err != nil {
			return nil, err
		}
	}

	highlighter := NewHighlighter(cfg.Highlight)
	renderer := NewRenderer(
		WithHighlighter(highlighter),
		WithLogger(options.logger),
		WithUnsafeHTML(!cfg.DisableRawHTML),
		WithTypographer(!cfg.DisableTypographer),
		WithLinkify(!cfg.DisableLinkify),
		WithRules(options.rules...),
	)

	return &Service{
		cfg: cfg,
		loader: NewLoader(filesystem, LoaderConfig{
			BasePath:  cfg.BasePath,
			Pattern:   cfg.Pattern,
			Recursive: cfg.Recursive,
		}),
		frontMatter: NewFrontMatterParser(cfg.FrontMatter),
		renderer:    renderer,
		highlighter: highlighter,
	}, nil
}

// LoadDirectory returns every matching source below the base path.
func (s *Service) LoadDirectory(ctx context.Context) ([]Source, error) {
	return s.loader.LoadDirectory(ctx, ".")
}

// LoadFile reads one source relative to the base path.
func (s *Service) LoadFile(ctx context.Context, name string) (Source, error) {
	return s.loader.LoadFile(ctx, name)
}

// Render renders a markdown body. The context is only checked up front.
func (s *Service) Render(ctx context.Context, body []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return s.renderer.Render(body), nil
}

// Renderer exposes the frozen renderer.
func (s *Service) Renderer() *Renderer {
	return s.renderer
}

// Highlighter exposes the highlighter, which the generator uses for CSS.
func (s *Service) Highlighter() *Highlighter {
	return s.highlighter
}

// FrontMatter exposes the configured frontmatter parser.
func (s *Service) FrontMatter() FrontMatterParser {
	return s.frontMatter
}

// Config returns the configuration the service was built with.
func (s *Service) Config() Config {
	return s.cfg
}

func prepareFilesystem(basePath string) (fs.FS, error) {
	if strings.TrimSpace(basePath) == "" {
		basePath = "."
	}
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("markdown service: stat base path %s: %w", basePath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("markdown service: base path %s is not a directory", basePath)
	}
	return os.DirFS(basePath), nil
}
