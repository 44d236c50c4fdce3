package sitecmd

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-folio/internal/generator"
)

const (
	buildSiteMessageType   = "folio.site.build"
	reloadPostsMessageType = "folio.site.reload_posts"

	maxReasonLength = 256
)

// BuildSiteCommand runs the static generator.
type BuildSiteCommand struct {
	// DryRun reports the planned artifacts without writing them.
	DryRun bool `json:"dry_run,omitempty"`
	// Force rewrites every post regardless of the build manifest.
	Force bool `json:"force,omitempty"`
	// Reason is recorded with the build logs.
	Reason string `json:"reason,omitempty"`
	// ResultCallback receives the build result, including partial results of
	// failed builds.
	ResultCallback func(*generator.BuildResult) `json:"-"`
}

// Type implements command.Message.
func (BuildSiteCommand) Type() string { return buildSiteMessageType }

// Validate implements command.Message.
func (cmd BuildSiteCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Reason, validation.Length(0, maxReasonLength)),
	)
}

// ReloadPostsCommand rebuilds the in-memory post collection from disk.
type ReloadPostsCommand struct {
	// Reason describes the trigger, for example a watched file path.
	Reason string `json:"reason"`
}

// Type implements command.Message.
func (ReloadPostsCommand) Type() string { return reloadPostsMessageType }

// Validate implements command.Message.
func (cmd ReloadPostsCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Reason, validation.Required, validation.Length(1, maxReasonLength)),
	)
}
