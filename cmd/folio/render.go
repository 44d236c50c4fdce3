package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	folio "github.com/goliatone/go-folio"
	"github.com/goliatone/go-folio/internal/di"
)

type renderOutput struct {
	FrontMatter map[string]any `json:"frontmatter"`
	HTML        string         `json:"html"`
	Diagnostics []string       `json:"diagnostics"`
}

func newRenderCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render one markdown file to HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			// The file may live outside the content directory.
			opts := append([]di.Option{di.WithContentFilesystem(os.DirFS(filepath.Dir(args[0])))}, a.diOpts...)
			module, err := folio.New(a.cfg, opts...)
			if err != nil {
				return err
			}

			fm, body := module.Markdown().FrontMatter().Parse(data)
			result := module.Render(body)

			diagnostics := make([]string, 0, len(result.Diagnostics))
			for _, diag := range result.Diagnostics {
				diagnostics = append(diagnostics, diag.String())
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				header := make(map[string]any, len(fm))
				for key, value := range fm {
					if value.IsList {
						header[key] = value.List
					} else {
						header[key] = value.Scalar
					}
				}
				return enc.Encode(renderOutput{
					FrontMatter: header,
					HTML:        result.HTML,
					Diagnostics: diagnostics,
				})
			}
			fmt.Fprint(out, result.HTML)
			for _, line := range diagnostics {
				fmt.Fprintln(cmd.ErrOrStderr(), "warn:", line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print frontmatter, html and diagnostics as JSON")
	return cmd
}
