package posts

import (
	"context"
	"time"

	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/internal/markdown"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

// BuildOptions wires the parser, renderer and logger used by Build.
type BuildOptions struct {
	FrontMatter markdown.FrontMatterParser
	Renderer    *markdown.Renderer
	Logger      interfaces.Logger
	// Now supplies the fallback date for posts without a usable one.
	Now func() time.Time
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.FrontMatter == nil {
		o.FrontMatter = markdown.SimpleFrontMatter{}
	}
	if o.Renderer == nil {
		o.Renderer = markdown.NewRenderer(markdown.WithLogger(o.Logger))
	}
	if o.Logger == nil {
		o.Logger = logging.NoOp()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Build parses, assembles and renders every source into a Collection.
// Unreadable sources and repeated ids are skipped with a warning. Render
// diagnostics are kept on the post. Only context cancellation fails a build.
func Build(ctx context.Context, sources []markdown.Source, opts BuildOptions) (*Collection, error) {
	opts = opts.withDefaults()
	now := opts.Now()

	built := make([]Post, 0, len(sources))
	seen := make(map[string]string, len(sources))

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger := logging.WithSourceContext(opts.Logger, src.Path, src.ID)

		if src.Err != nil {
			logger.Warn("posts.load.skipped", "reason", "read_failed", "error", src.Err)
			continue
		}
		if first, dup := seen[src.ID]; dup {
			logger.Warn("posts.load.skipped", "reason", "duplicate_id", "first_path", first)
			continue
		}
		seen[src.ID] = src.Path

		post := assembleSource(src, opts, now)
		for _, diag := range post.Diagnostics {
			logger.Warn("posts.render.degraded", "rule", string(diag.Rule), "line", diag.Line, "error", diag.Err)
		}
		built = append(built, post)
	}

	collection := NewCollection(built)
	opts.Logger.Debug("posts.build.completed", "count", collection.Len(), "tags", len(collection.Tags()))
	return collection, nil
}

func assembleSource(src markdown.Source, opts BuildOptions, now time.Time) Post {
	fm, body := opts.FrontMatter.Parse(src.Data)
	post := Assemble(src.ID, fm, string(body), now)

	result := opts.Renderer.Render(body)
	post.HTML = result.HTML
	post.Diagnostics = result.Diagnostics
	post.Path = src.Path
	post.Checksum = src.Checksum
	if post.Checksum == "" {
		post.Checksum = markdown.Checksum(src.Data)
	}
	return post
}
