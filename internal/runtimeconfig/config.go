package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

var ErrContentDirRequired = errors.New("folio config: content directory is required")
var ErrContentPatternInvalid = errors.New("folio config: content pattern is invalid")
var ErrFrontMatterModeInvalid = errors.New("folio config: frontmatter mode must be simple or yaml")
var ErrHighlightTabWidthInvalid = errors.New("folio config: highlight tab width must be zero or positive")

// ErrGalleryDirRequired indicates the gallery is enabled without a directory.
var ErrGalleryDirRequired = errors.New("folio config: gallery directory is required when gallery is enabled")

var ErrGeneratorOutputDirRequired = errors.New("folio config: generator output directory is required when generator is enabled")
var ErrGeneratorWorkersInvalid = errors.New("folio config: generator workers must be zero or positive")

// ErrServerAddrRequired indicates an empty listen address.
var ErrServerAddrRequired = errors.New("folio config: server address is required")
var ErrServerTimeoutInvalid = errors.New("folio config: server timeouts must be zero or positive")

var ErrLoggingProviderRequired = errors.New("folio config: logging provider is required")
var ErrLoggingProviderUnknown = errors.New("folio config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("folio config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("folio config: logging format is invalid")

// Config aggregates every setting the folio CLI reads. Keys follow the
// mapstructure tags so the same names work in folio.yaml, FOLIO_ env vars and
// flags.
type Config struct {
	Content   ContentConfig   `mapstructure:"content"`
	Markdown  MarkdownConfig  `mapstructure:"markdown"`
	Gallery   GalleryConfig   `mapstructure:"gallery"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ContentConfig locates the markdown posts.
type ContentConfig struct {
	Dir       string `mapstructure:"dir"`
	Pattern   string `mapstructure:"pattern"`
	Recursive bool   `mapstructure:"recursive"`
}

// MarkdownConfig captures parser and renderer behaviour.
type MarkdownConfig struct {
	FrontMatter        string            `mapstructure:"frontmatter"`
	HighlightStyle     string            `mapstructure:"highlight_style"`
	Languages          []string          `mapstructure:"languages"`
	Aliases            map[string]string `mapstructure:"aliases"`
	ClassPrefix        string            `mapstructure:"class_prefix"`
	TabWidth           int               `mapstructure:"tab_width"`
	DisableRawHTML     bool              `mapstructure:"disable_raw_html"`
	DisableTypographer bool              `mapstructure:"disable_typographer"`
	DisableLinkify     bool              `mapstructure:"disable_linkify"`
}

// GalleryConfig configures the photo listing.
type GalleryConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	Dir             string   `mapstructure:"dir"`
	URLPrefix       string   `mapstructure:"url_prefix"`
	Extensions      []string `mapstructure:"extensions"`
	DefaultCategory string   `mapstructure:"default_category"`
}

// GeneratorConfig captures behaviour for the static site generator.
type GeneratorConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	OutputDir       string `mapstructure:"output_dir"`
	BaseURL         string `mapstructure:"base_url"`
	Title           string `mapstructure:"title"`
	Description     string `mapstructure:"description"`
	Incremental     bool   `mapstructure:"incremental"`
	GenerateSitemap bool   `mapstructure:"generate_sitemap"`
	GenerateRobots  bool   `mapstructure:"generate_robots"`
	GenerateFeeds   bool   `mapstructure:"generate_feeds"`
	GenerateCSS     bool   `mapstructure:"generate_css"`
	Workers         int    `mapstructure:"workers"`
}

// ServerConfig configures `folio serve`.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	BasePath          string        `mapstructure:"base_path"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	Watch             bool          `mapstructure:"watch"`
	WatchDebounce     time.Duration `mapstructure:"watch_debounce"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `mapstructure:"provider"`
	Level     string   `mapstructure:"level"`
	Format    string   `mapstructure:"format"`
	AddSource bool     `mapstructure:"add_source"`
	Focus     []string `mapstructure:"focus"`
}

// DefaultConfig returns the settings used when no config file is present.
func DefaultConfig() Config {
	return Config{
		Content: ContentConfig{
			Dir:       "content/posts",
			Pattern:   "*.md",
			Recursive: true,
		},
		Markdown: MarkdownConfig{
			FrontMatter:    "simple",
			HighlightStyle: "github",
			Aliases:        map[string]string{},
		},
		Gallery: GalleryConfig{
			Dir:             "public/images/gallery",
			URLPrefix:       "/images/gallery",
			Extensions:      []string{".jpg", ".jpeg", ".png", ".webp", ".gif"},
			DefaultCategory: "life",
		},
		Generator: GeneratorConfig{
			Enabled:         true,
			OutputDir:       "dist",
			Incremental:     true,
			GenerateSitemap: true,
			GenerateRobots:  true,
			GenerateFeeds:   true,
			GenerateCSS:     true,
		},
		Server: ServerConfig{
			Addr:              ":8080",
			BasePath:          "/api",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			WatchDebounce:     200 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Content.Dir) == "" {
		return ErrContentDirRequired
	}
	if pattern := strings.TrimSpace(cfg.Content.Pattern); pattern != "" && !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("%w: %s", ErrContentPatternInvalid, pattern)
	}
	if mode := normalize(cfg.Markdown.FrontMatter); mode != "" && !isSupportedFrontMatter(mode) {
		return fmt.Errorf("%w: %s", ErrFrontMatterModeInvalid, mode)
	}
	if cfg.Markdown.TabWidth < 0 {
		return ErrHighlightTabWidthInvalid
	}
	if cfg.Gallery.Enabled && strings.TrimSpace(cfg.Gallery.Dir) == "" {
		return ErrGalleryDirRequired
	}
	if cfg.Generator.Enabled {
		if strings.TrimSpace(cfg.Generator.OutputDir) == "" {
			return ErrGeneratorOutputDirRequired
		}
		if cfg.Generator.Workers < 0 {
			return ErrGeneratorWorkersInvalid
		}
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return ErrServerAddrRequired
	}
	if cfg.Server.ReadHeaderTimeout < 0 {
		return fmt.Errorf("%w: read_header_timeout", ErrServerTimeoutInvalid)
	}
	if cfg.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: shutdown_timeout", ErrServerTimeoutInvalid)
	}
	if cfg.Server.WatchDebounce < 0 {
		return fmt.Errorf("%w: watch_debounce", ErrServerTimeoutInvalid)
	}

	provider := normalize(cfg.Logging.Provider)
	if provider == "" {
		return ErrLoggingProviderRequired
	}
	if !isSupportedProvider(provider) {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func isSupportedFrontMatter(mode string) bool {
	switch mode {
	case "simple", "yaml":
		return true
	default:
		return false
	}
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch normalize(level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch normalize(format) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
