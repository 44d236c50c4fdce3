package sitecmd

import (
	"context"
	"errors"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-folio/internal/commands"
	"github.com/goliatone/go-folio/internal/generator"
	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/internal/posts"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

const (
	buildOperation  = "site.build"
	reloadOperation = "site.reload_posts"
)

var (
	// ErrGeneratorRequired is returned when a build handler has no generator.
	ErrGeneratorRequired = errors.New("site command: generator is required")
	// ErrStoreRequired is returned when a reload handler has no post store.
	ErrStoreRequired = errors.New("site command: post store is required")
)

var (
	_ command.Commander[BuildSiteCommand]   = (*BuildSiteHandler)(nil)
	_ command.Commander[ReloadPostsCommand] = (*ReloadPostsHandler)(nil)
)

// Reloader rebuilds the post collection. *posts.Store satisfies it.
type Reloader interface {
	Reload(ctx context.Context) (*posts.Collection, error)
}

// BuildSiteHandler runs generator builds through the shared command handler.
type BuildSiteHandler struct {
	inner *commands.Handler[BuildSiteCommand]
}

// NewBuildSiteHandler creates a handler bound to the supplied generator.
func NewBuildSiteHandler(gen generator.Service, logger interfaces.Logger, opts ...commands.HandlerOption[BuildSiteCommand]) *BuildSiteHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg BuildSiteCommand) error {
		if gen == nil {
			return ErrGeneratorRequired
		}
		result, err := gen.Build(ctx, generator.BuildOptions{DryRun: msg.DryRun, Force: msg.Force})
		if result != nil {
			if msg.ResultCallback != nil {
				msg.ResultCallback(result)
			}
			logging.WithFields(baseLogger, map[string]any{
				"posts_built":   result.PostsBuilt,
				"posts_skipped": result.PostsSkipped,
				"artifacts":     len(result.Artifacts),
				"errors":        len(result.Errors),
				"dry_run":       result.DryRun,
			}).Info("site.command.build.completed")
		}
		return err
	}

	handlerOpts := []commands.HandlerOption[BuildSiteCommand]{
		commands.WithLogger[BuildSiteCommand](baseLogger),
		commands.WithOperation[BuildSiteCommand](buildOperation),
		commands.WithMessageFields(func(msg BuildSiteCommand) map[string]any {
			fields := map[string]any{}
			if msg.DryRun {
				fields["dry_run"] = true
			}
			if msg.Force {
				fields["force"] = true
			}
			if msg.Reason != "" {
				fields["reason"] = msg.Reason
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[BuildSiteCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &BuildSiteHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[BuildSiteCommand].
func (h *BuildSiteHandler) Execute(ctx context.Context, msg BuildSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CLIHandler exposes the build handler to CLI integrations.
func (h *BuildSiteHandler) CLIHandler() any {
	return h
}

// CLIOptions describes the CLI metadata for site builds.
func (h *BuildSiteHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"site", "build"},
		Group:       "site",
		Description: "Generate the static JSON, HTML and feed artifacts",
	}
}

// ReloadPostsHandler swaps in a freshly built post collection.
type ReloadPostsHandler struct {
	inner *commands.Handler[ReloadPostsCommand]
}

// NewReloadPostsHandler creates a handler bound to the supplied store.
func NewReloadPostsHandler(store Reloader, logger interfaces.Logger, opts ...commands.HandlerOption[ReloadPostsCommand]) *ReloadPostsHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg ReloadPostsCommand) error {
		if store == nil {
			return ErrStoreRequired
		}
		collection, err := store.Reload(ctx)
		if err != nil {
			return err
		}
		logging.WithFields(baseLogger, map[string]any{
			"posts":  collection.Len(),
			"tags":   len(collection.Tags()),
			"reason": msg.Reason,
		}).Info("site.command.reload.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[ReloadPostsCommand]{
		commands.WithLogger[ReloadPostsCommand](baseLogger),
		commands.WithOperation[ReloadPostsCommand](reloadOperation),
		commands.WithMessageFields(func(msg ReloadPostsCommand) map[string]any {
			return map[string]any{"reason": msg.Reason}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[ReloadPostsCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ReloadPostsHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[ReloadPostsCommand].
func (h *ReloadPostsHandler) Execute(ctx context.Context, msg ReloadPostsCommand) error {
	return h.inner.Execute(ctx, msg)
}
