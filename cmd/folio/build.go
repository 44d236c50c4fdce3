package main

import (
	"fmt"
	"io"
	"time"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-folio/commands"
	"github.com/goliatone/go-folio/internal/generator"
)

func newBuildCommand(a *app) *cobra.Command {
	var opts struct {
		dryRun bool
		force  bool
	}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate static JSON, HTML and feed artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			module, err := a.module(ctx)
			if err != nil {
				return err
			}
			registration, err := a.subscribe(module)
			if err != nil {
				return err
			}
			defer registration.Unsubscribe()

			var result *generator.BuildResult
			err = dispatcher.Dispatch(ctx, commands.BuildSiteCommand{
				DryRun:         opts.dryRun,
				Force:          opts.force,
				Reason:         "cli",
				ResultCallback: func(r *generator.BuildResult) { result = r },
			})
			if result != nil {
				printBuildResult(cmd.OutOrStdout(), result)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "report planned artifacts without writing them")
	cmd.Flags().BoolVar(&opts.force, "force", false, "rewrite every post regardless of the build manifest")
	cmd.Flags().String("output", "", "output directory (default dist)")
	_ = a.v.BindPFlag("generator.output_dir", cmd.Flags().Lookup("output"))
	return cmd
}

func printBuildResult(w io.Writer, result *generator.BuildResult) {
	mode := "build"
	if result.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(w, "%s: %d built, %d skipped, %d artifacts in %s\n",
		mode, result.PostsBuilt, result.PostsSkipped, len(result.Artifacts), result.Duration.Round(time.Millisecond))
	for _, artifact := range result.Artifacts {
		fmt.Fprintf(w, "  %-8s %s\n", artifact.Category, artifact.Path)
	}
	for _, diag := range result.Diagnostics {
		for _, render := range diag.Render {
			fmt.Fprintf(w, "  warn     %s: %s\n", diag.PostID, render.String())
		}
	}
	for _, err := range result.Errors {
		fmt.Fprintf(w, "  error    %v\n", err)
	}
}
