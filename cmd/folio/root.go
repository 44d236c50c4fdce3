package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	folio "github.com/goliatone/go-folio"
	"github.com/goliatone/go-folio/commands"
	"github.com/goliatone/go-folio/internal/di"
	"github.com/goliatone/go-folio/internal/runtimeconfig"
)

const (
	envPrefix      = "FOLIO"
	configBaseName = "folio"

	// commandRetries covers reloads racing an editor's partial write.
	commandRetries = 1
)

// app carries state shared by every subcommand.
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     runtimeconfig.Config
	diOpts  []di.Option
}

func newRootCommand(opts ...di.Option) *cobra.Command {
	a := &app{v: viper.New(), diOpts: opts}

	root := &cobra.Command{
		Use:           "folio",
		Short:         "Markdown blog and portfolio pipeline",
		Long:          "folio parses markdown posts with frontmatter, renders them to HTML and serves or exports the result.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./folio.yaml)")
	flags.String("content-dir", "", "directory holding markdown posts")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.String("log-provider", "", "log provider (console, gologger)")
	_ = a.v.BindPFlag("content.dir", flags.Lookup("content-dir"))
	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.provider", flags.Lookup("log-provider"))

	root.AddCommand(
		newServeCommand(a),
		newBuildCommand(a),
		newRenderCommand(a),
		newPostsCommand(a),
	)
	return root
}

func (a *app) loadConfig() error {
	setDefaults(a.v, runtimeconfig.DefaultConfig())

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName(configBaseName)
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || a.cfgFile != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}

	cfg := runtimeconfig.DefaultConfig()
	if err := a.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// module builds the runtime and loads the post collection.
func (a *app) module(ctx context.Context) (*folio.Module, error) {
	module, err := folio.New(a.cfg, a.diOpts...)
	if err != nil {
		return nil, err
	}
	if _, err := module.Reload(ctx); err != nil {
		return nil, err
	}
	return module, nil
}

// subscribe wires the command handlers into the go-command dispatcher.
func (a *app) subscribe(module *folio.Module) (*commands.RegistrationResult, error) {
	return commands.RegisterContainerCommands(module.Container(), commands.RegistrationOptions{
		Dispatcher: commands.GlobalDispatcher{Retries: commandRetries},
	})
}

func setDefaults(v *viper.Viper, cfg runtimeconfig.Config) {
	v.SetDefault("content.dir", cfg.Content.Dir)
	v.SetDefault("content.pattern", cfg.Content.Pattern)
	v.SetDefault("content.recursive", cfg.Content.Recursive)

	v.SetDefault("markdown.frontmatter", cfg.Markdown.FrontMatter)
	v.SetDefault("markdown.highlight_style", cfg.Markdown.HighlightStyle)
	v.SetDefault("markdown.languages", cfg.Markdown.Languages)
	v.SetDefault("markdown.aliases", cfg.Markdown.Aliases)
	v.SetDefault("markdown.class_prefix", cfg.Markdown.ClassPrefix)
	v.SetDefault("markdown.tab_width", cfg.Markdown.TabWidth)
	v.SetDefault("markdown.disable_raw_html", cfg.Markdown.DisableRawHTML)
	v.SetDefault("markdown.disable_typographer", cfg.Markdown.DisableTypographer)
	v.SetDefault("markdown.disable_linkify", cfg.Markdown.DisableLinkify)

	v.SetDefault("gallery.enabled", cfg.Gallery.Enabled)
	v.SetDefault("gallery.dir", cfg.Gallery.Dir)
	v.SetDefault("gallery.url_prefix", cfg.Gallery.URLPrefix)
	v.SetDefault("gallery.extensions", cfg.Gallery.Extensions)
	v.SetDefault("gallery.default_category", cfg.Gallery.DefaultCategory)

	v.SetDefault("generator.enabled", cfg.Generator.Enabled)
	v.SetDefault("generator.output_dir", cfg.Generator.OutputDir)
	v.SetDefault("generator.base_url", cfg.Generator.BaseURL)
	v.SetDefault("generator.title", cfg.Generator.Title)
	v.SetDefault("generator.description", cfg.Generator.Description)
	v.SetDefault("generator.incremental", cfg.Generator.Incremental)
	v.SetDefault("generator.generate_sitemap", cfg.Generator.GenerateSitemap)
	v.SetDefault("generator.generate_robots", cfg.Generator.GenerateRobots)
	v.SetDefault("generator.generate_feeds", cfg.Generator.GenerateFeeds)
	v.SetDefault("generator.generate_css", cfg.Generator.GenerateCSS)
	v.SetDefault("generator.workers", cfg.Generator.Workers)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.base_path", cfg.Server.BasePath)
	v.SetDefault("server.read_header_timeout", cfg.Server.ReadHeaderTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.watch", cfg.Server.Watch)
	v.SetDefault("server.watch_debounce", cfg.Server.WatchDebounce)

	v.SetDefault("logging.provider", cfg.Logging.Provider)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.add_source", cfg.Logging.AddSource)
	v.SetDefault("logging.focus", cfg.Logging.Focus)
}
