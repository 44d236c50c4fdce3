package commands

import (
	"errors"
	"fmt"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"

	internalcommands "github.com/goliatone/go-folio/internal/commands"
	sitecmd "github.com/goliatone/go-folio/internal/commands/site"
	"github.com/goliatone/go-folio/internal/di"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

type (
	// BuildSiteCommand runs the static generator.
	BuildSiteCommand = sitecmd.BuildSiteCommand
	// ReloadPostsCommand rebuilds the in-memory post collection.
	ReloadPostsCommand = sitecmd.ReloadPostsCommand
)

// CommandRegistry records command handlers so hosts can expose them via CLI.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CommandDispatcher subscribes command handlers to a dispatcher implementation.
type CommandDispatcher interface {
	RegisterCommand(handler any) (CommandSubscription, error)
}

// CommandSubscription allows hosts to tear down dispatcher subscriptions.
type CommandSubscription interface {
	Unsubscribe()
}

// RegistrationOptions configures how handlers are registered during construction.
type RegistrationOptions struct {
	Registry       CommandRegistry
	Dispatcher     CommandDispatcher
	LoggerProvider interfaces.LoggerProvider
}

// RegistrationResult captures the constructed command handlers and any dispatcher subscriptions.
type RegistrationResult struct {
	Handlers      []any
	Subscriptions []CommandSubscription
}

// Unsubscribe tears down every dispatcher subscription.
func (r *RegistrationResult) Unsubscribe() {
	if r == nil {
		return
	}
	for _, sub := range r.Subscriptions {
		sub.Unsubscribe()
	}
	r.Subscriptions = nil
}

// RegisterContainerCommands builds the command handlers exposed by the provided container and
// optionally registers them with registry and dispatcher integrations.
func RegisterContainerCommands(container *di.Container, opts RegistrationOptions) (*RegistrationResult, error) {
	if container == nil {
		return &RegistrationResult{}, nil
	}

	provider := opts.LoggerProvider
	if provider == nil {
		provider = container.LoggerProvider()
	}

	result := &RegistrationResult{
		Handlers:      make([]any, 0),
		Subscriptions: make([]CommandSubscription, 0),
	}

	var errs error

	register := func(handler any) {
		if handler == nil {
			return
		}
		result.Handlers = append(result.Handlers, handler)

		if opts.Registry != nil {
			if err := opts.Registry.RegisterCommand(handler); err != nil {
				errs = errors.Join(errs, err)
			}
		}

		if opts.Dispatcher != nil {
			subscription, err := opts.Dispatcher.RegisterCommand(handler)
			if err != nil {
				errs = errors.Join(errs, err)
			} else if subscription != nil {
				result.Subscriptions = append(result.Subscriptions, subscription)
			}
		}
	}

	deps := sitecmd.Dependencies{Store: container.PostStore()}
	if container.Config.Generator.Enabled {
		deps.Generator = container.GeneratorService()
	}
	set, err := sitecmd.RegisterSiteCommands(nil, deps, provider)
	if err != nil {
		return result, err
	}
	if set.Build != nil {
		register(set.Build)
	}
	if set.Reload != nil {
		register(set.Reload)
	}

	if len(result.Handlers) == 0 {
		return result, errors.New("no command handlers registered; ensure services are configured")
	}
	return result, errs
}

// GlobalDispatcher subscribes handlers to the go-command process dispatcher.
// Retries is the number of extra attempts the runner makes after a failed
// execution.
type GlobalDispatcher struct {
	Retries int
}

// RegisterCommand satisfies CommandDispatcher.
func (d GlobalDispatcher) RegisterCommand(handler any) (CommandSubscription, error) {
	switch h := handler.(type) {
	case *sitecmd.BuildSiteHandler:
		return subscribe[sitecmd.BuildSiteCommand](h, d.Retries), nil
	case *sitecmd.ReloadPostsHandler:
		return subscribe[sitecmd.ReloadPostsCommand](h, d.Retries), nil
	default:
		return nil, fmt.Errorf("commands: unsupported handler %T", handler)
	}
}

func subscribe[T any](h command.Commander[T], retries int) CommandSubscription {
	if retries > 0 {
		return dispatcher.SubscribeCommand(h, runner.WithMaxRetries(retries))
	}
	return dispatcher.SubscribeCommand(h)
}

// CommandLogger exposes the command logger namespace to hosts.
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	return internalcommands.CommandLogger(provider, module)
}
