package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-folio/internal/posts"
)

func newPostsCommand(a *app) *cobra.Command {
	var (
		tag    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List posts newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			module, err := a.module(cmd.Context())
			if err != nil {
				return err
			}
			collection := module.Posts()
			list := collection.All()
			if tag != "" {
				list = collection.ByTag(tag)
			}

			summaries := make([]posts.Post, 0, len(list))
			for _, post := range list {
				summaries = append(summaries, post.Summary())
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summaries)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tID\tTITLE\tTAGS")
			for _, post := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", post.Date, post.ID, post.Title, strings.Join(post.Tags, ","))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "only list posts carrying this tag")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print summaries as JSON")
	return cmd
}
