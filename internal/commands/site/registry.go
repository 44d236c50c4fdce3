package sitecmd

import (
	"github.com/goliatone/go-folio/internal/commands"
	"github.com/goliatone/go-folio/internal/generator"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

// CommandRegistry is the minimal registration contract expected when wiring command handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// HandlerSet groups the site command handlers.
type HandlerSet struct {
	Build  *BuildSiteHandler
	Reload *ReloadPostsHandler
}

// Dependencies lists the services the site handlers operate on. Either may be
// nil, in which case the matching handler is not created.
type Dependencies struct {
	Generator generator.Service
	Store     Reloader
}

// RegisterSiteCommands builds the site handlers and registers them with reg
// when it is non-nil.
func RegisterSiteCommands(reg CommandRegistry, deps Dependencies, provider interfaces.LoggerProvider) (*HandlerSet, error) {
	logger := commands.CommandLogger(provider, "site")
	set := &HandlerSet{}
	if deps.Generator != nil {
		set.Build = NewBuildSiteHandler(deps.Generator, logger)
	}
	if deps.Store != nil {
		set.Reload = NewReloadPostsHandler(deps.Store, logger)
	}
	if reg == nil {
		return set, nil
	}
	if set.Build != nil {
		if err := reg.RegisterCommand(set.Build); err != nil {
			return nil, err
		}
	}
	if set.Reload != nil {
		if err := reg.RegisterCommand(set.Reload); err != nil {
			return nil, err
		}
	}
	return set, nil
}
