package di

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goliatone/go-folio/internal/gallery"
	"github.com/goliatone/go-folio/internal/generator"
	folhttp "github.com/goliatone/go-folio/internal/http"
	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/internal/logging/console"
	"github.com/goliatone/go-folio/internal/logging/gologger"
	"github.com/goliatone/go-folio/internal/markdown"
	"github.com/goliatone/go-folio/internal/posts"
	"github.com/goliatone/go-folio/internal/runtimeconfig"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

// Container wires the folio services from a runtime configuration.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider   interfaces.LoggerProvider
	contentFS        fs.FS
	galleryFS        fs.FS
	generatorStorage generator.Storage
	rules            []markdown.Registration

	markdownSvc  *markdown.Service
	postStore    *posts.Store
	galleryScan  *gallery.Scanner
	generatorSvc generator.Service
	api          *folhttp.API
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithLoggerProvider overrides the provider selected by Config.Logging.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		if provider != nil {
			c.loggerProvider = provider
		}
	}
}

// WithContentFilesystem reads posts from filesystem instead of Content.Dir.
func WithContentFilesystem(filesystem fs.FS) Option {
	return func(c *Container) {
		c.contentFS = filesystem
	}
}

// WithGalleryFilesystem reads photos from filesystem instead of Gallery.Dir.
func WithGalleryFilesystem(filesystem fs.FS) Option {
	return func(c *Container) {
		c.galleryFS = filesystem
	}
}

// WithGeneratorStorage overrides the filesystem storage rooted at
// Generator.OutputDir.
func WithGeneratorStorage(storage generator.Storage) Option {
	return func(c *Container) {
		c.generatorStorage = storage
	}
}

// WithMarkdownRules overrides or extends the default render rule table.
func WithMarkdownRules(regs ...markdown.Registration) Option {
	return func(c *Container) {
		c.rules = append(c.rules, regs...)
	}
}

// NewContainer validates cfg and builds every service it enables.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{Config: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.configureLoggerProvider(); err != nil {
		return nil, err
	}
	if err := c.configureMarkdown(); err != nil {
		return nil, err
	}
	c.configurePosts()
	c.configureGallery()
	c.configureGenerator()
	c.configureAPI()

	logging.ModuleLogger(c.loggerProvider, "folio").Debug("container.configured",
		"content_dir", cfg.Content.Dir,
		"gallery", c.galleryScan != nil,
		"generator", cfg.Generator.Enabled,
	)
	return c, nil
}

func (c *Container) configureLoggerProvider() error {
	if c.loggerProvider != nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(c.Config.Logging.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     c.Config.Logging.Level,
			Format:    c.Config.Logging.Format,
			AddSource: c.Config.Logging.AddSource,
			Focus:     c.Config.Logging.Focus,
		})
		if err != nil {
			return fmt.Errorf("configure go-logger provider: %w", err)
		}
		c.loggerProvider = provider
	default:
		level, err := console.ParseLevel(c.Config.Logging.Level)
		if err != nil {
			return err
		}
		c.loggerProvider = console.NewProvider(console.Options{
			Writer:   os.Stderr,
			MinLevel: level,
		})
	}
	return nil
}

func (c *Container) configureMarkdown() error {
	md := c.Config.Markdown
	opts := []markdown.ServiceOption{
		markdown.WithServiceLogger(logging.MarkdownLogger(c.loggerProvider)),
		markdown.WithServiceRules(c.rules...),
	}
	if c.contentFS != nil {
		opts = append(opts, markdown.WithFilesystem(c.contentFS))
	}

	svc, err := markdown.NewService(markdown.Config{
		BasePath:    c.Config.Content.Dir,
		Pattern:     c.Config.Content.Pattern,
		Recursive:   c.Config.Content.Recursive,
		FrontMatter: markdown.FrontMatterMode(md.FrontMatter),
		Highlight: markdown.HighlightConfig{
			Style:       md.HighlightStyle,
			Languages:   md.Languages,
			Aliases:     md.Aliases,
			ClassPrefix: md.ClassPrefix,
			TabWidth:    md.TabWidth,
		},
		DisableRawHTML:     md.DisableRawHTML,
		DisableTypographer: md.DisableTypographer,
		DisableLinkify:     md.DisableLinkify,
	}, opts...)
	if err != nil {
		return fmt.Errorf("configure markdown service: %w", err)
	}
	c.markdownSvc = svc
	return nil
}

func (c *Container) configurePosts() {
	c.postStore = posts.NewStore(c.markdownSvc, posts.BuildOptions{
		FrontMatter: c.markdownSvc.FrontMatter(),
		Renderer:    c.markdownSvc.Renderer(),
		Logger:      logging.PostsLogger(c.loggerProvider),
	})
}

func (c *Container) configureGallery() {
	cfg := c.Config.Gallery
	if !cfg.Enabled {
		return
	}
	filesystem := c.galleryFS
	if filesystem == nil {
		filesystem = os.DirFS(cfg.Dir)
	}
	c.galleryScan = gallery.NewScanner(filesystem, gallery.Config{
		Dir:             ".",
		URLPrefix:       cfg.URLPrefix,
		Extensions:      cfg.Extensions,
		DefaultCategory: cfg.DefaultCategory,
	}, gallery.WithLogger(logging.GalleryLogger(c.loggerProvider)))
}

func (c *Container) configureGenerator() {
	cfg := c.Config.Generator
	if !cfg.Enabled {
		c.generatorSvc = generator.NewDisabledService()
		return
	}
	deps := generator.Dependencies{
		Posts:       c.postStore,
		Highlighter: c.markdownSvc.Highlighter(),
		Storage:     c.generatorStorage,
		Logger:      logging.GeneratorLogger(c.loggerProvider),
	}
	if c.galleryScan != nil {
		deps.Gallery = c.galleryScan
	}
	c.generatorSvc = generator.NewService(generator.Config{
		OutputDir:       cfg.OutputDir,
		BaseURL:         cfg.BaseURL,
		Title:           cfg.Title,
		Description:     cfg.Description,
		Incremental:     cfg.Incremental,
		GenerateSitemap: cfg.GenerateSitemap,
		GenerateRobots:  cfg.GenerateRobots,
		GenerateFeeds:   cfg.GenerateFeeds,
		GenerateCSS:     cfg.GenerateCSS,
		Workers:         cfg.Workers,
	}, deps)
}

func (c *Container) configureAPI() {
	opts := []folhttp.Option{
		folhttp.WithBasePath(c.Config.Server.BasePath),
		folhttp.WithPosts(c.postStore),
		folhttp.WithRenderer(c.markdownSvc.Renderer()),
		folhttp.WithLogger(logging.HTTPLogger(c.loggerProvider)),
	}
	if c.galleryScan != nil {
		opts = append(opts, folhttp.WithGallery(c.galleryScan))
	}
	c.api = folhttp.NewAPI(opts...)
}

// LoggerProvider returns the provider shared by every service.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// MarkdownService returns the loader, parser and renderer facade.
func (c *Container) MarkdownService() *markdown.Service {
	return c.markdownSvc
}

// PostStore returns the live post collection. It is empty until the first
// Reload.
func (c *Container) PostStore() *posts.Store {
	return c.postStore
}

// GalleryScanner returns nil when the gallery is disabled.
func (c *Container) GalleryScanner() *gallery.Scanner {
	return c.galleryScan
}

// GeneratorService returns the static generator, or a disabled service.
func (c *Container) GeneratorService() generator.Service {
	return c.generatorSvc
}

// API returns the JSON API.
func (c *Container) API() *folhttp.API {
	return c.api
}
