package generator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-folio/internal/gallery"
	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/internal/markdown"
	"github.com/goliatone/go-folio/internal/posts"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

var (
	// ErrServiceDisabled indicates the generator feature is disabled.
	ErrServiceDisabled = errors.New("generator: service disabled")
	errPostsRequired   = errors.New("generator: post source is required")
	errOutputRequired  = errors.New("generator: output dir is required")
)

// Service describes the static site generator contract.
type Service interface {
	Build(ctx context.Context, opts BuildOptions) (*BuildResult, error)
	BuildPost(ctx context.Context, id string) error
	BuildAssets(ctx context.Context) error
}

// Config captures runtime behaviour toggles for the generator.
type Config struct {
	OutputDir       string
	BaseURL         string
	Title           string
	Description     string
	Incremental     bool
	GenerateSitemap bool
	GenerateRobots  bool
	GenerateFeeds   bool
	GenerateCSS     bool
	Workers         int
}

// BuildOptions narrows a generator run.
type BuildOptions struct {
	// DryRun renders everything and reports the planned artifacts without
	// writing them.
	DryRun bool
	// Force ignores the manifest and rewrites every post.
	Force bool
}

// Artifact is one file produced (or planned, for dry runs) by a build.
type Artifact struct {
	Path     string   `json:"path"`
	Category Category `json:"category"`
	Size     int64    `json:"size"`
	Checksum string   `json:"checksum"`
}

// BuildDiagnostic reports the outcome for one post.
type BuildDiagnostic struct {
	PostID   string
	Outputs  []string
	Duration time.Duration
	Skipped  bool
	// Render holds the markdown diagnostics carried by the post.
	Render []markdown.Diagnostic
	Err    error
}

// BuildResult reports aggregated build metadata.
type BuildResult struct {
	PostsBuilt   int
	PostsSkipped int
	Artifacts    []Artifact
	Duration     time.Duration
	Diagnostics  []BuildDiagnostic
	Errors       []error
	DryRun       bool
}

// PostSource exposes the current post collection. *posts.Store satisfies it.
type PostSource interface {
	Current() *posts.Collection
}

// PhotoLister lists gallery photos. *gallery.Scanner satisfies it.
type PhotoLister interface {
	List(ctx context.Context) ([]gallery.Photo, error)
}

// Dependencies lists the collaborators used by the generator.
type Dependencies struct {
	Posts       PostSource
	Gallery     PhotoLister
	Highlighter *markdown.Highlighter
	Storage     Storage
	Logger      interfaces.Logger
}

// NewService wires a generator implementation with the provided configuration
// and dependencies. Storage defaults to the local filesystem rooted at
// Config.OutputDir.
func NewService(cfg Config, deps Dependencies) Service {
	if deps.Storage == nil {
		deps.Storage = NewFileStorage(cfg.OutputDir)
	}
	if deps.Logger == nil {
		deps.Logger = logging.NoOp()
	}
	return &service{
		cfg:  cfg,
		deps: deps,
		now:  time.Now,
	}
}

// NewDisabledService returns a Service that fails all operations with ErrServiceDisabled.
func NewDisabledService() Service {
	return disabledService{}
}

type service struct {
	cfg  Config
	deps Dependencies
	now  func() time.Time
}

type disabledService struct{}

// pendingFile is an artifact rendered in memory and not yet written.
type pendingFile struct {
	Path        string
	Data        []byte
	Category    Category
	ContentType string
}

type postOutcome struct {
	files      []pendingFile
	hash       string
	skipped    bool
	diagnostic BuildDiagnostic
	err        error
}

func (s *service) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.deps.Posts == nil {
		return nil, errPostsRequired
	}
	if s.baseDir() == "" {
		return nil, errOutputRequired
	}

	start := time.Now()
	generatedAt := s.now()
	collection := s.deps.Posts.Current()
	list := collection.All()

	result := &BuildResult{DryRun: opts.DryRun}
	writer := &recordingWriter{next: newArtifactWriter(s.deps.Storage, opts.DryRun)}

	manifest := newBuildManifest()
	if s.cfg.Incremental && !opts.Force {
		loaded, err := s.loadManifest(ctx)
		if err != nil {
			s.deps.Logger.Warn("generator.manifest.invalid", "error", err)
		} else {
			manifest = loaded
		}
	}

	outcomes := make([]postOutcome, len(list))
	workerCount := s.effectiveWorkerCount(len(list))
	if workerCount <= 1 {
		for i := range list {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			outcomes[i] = s.renderPost(ctx, list[i], manifest, !opts.Force)
		}
	} else if err := s.renderConcurrently(ctx, list, workerCount, manifest, !opts.Force, outcomes); err != nil {
		return result, err
	}

	var errorsSlice []error
	keep := make(map[string]struct{}, len(list))
	for _, outcome := range outcomes {
		result.Diagnostics = append(result.Diagnostics, outcome.diagnostic)
		keep[manifestKey(outcome.diagnostic.PostID)] = struct{}{}
		if outcome.err != nil {
			errorsSlice = append(errorsSlice, outcome.err)
			continue
		}
		if outcome.skipped {
			result.PostsSkipped++
			continue
		}
		if err := s.persistFiles(ctx, writer, outcome.files); err != nil {
			errorsSlice = append(errorsSlice, err)
			continue
		}
		result.PostsBuilt++
		manifest.setPost(manifestPost{
			PostID:     outcome.diagnostic.PostID,
			Hash:       outcome.hash,
			Outputs:    outcome.diagnostic.Outputs,
			RenderedAt: generatedAt,
		})
	}

	indexFiles, err := s.indexFiles(ctx, collection, generatedAt)
	if err != nil {
		errorsSlice = append(errorsSlice, err)
	}
	if err := s.persistFiles(ctx, writer, indexFiles); err != nil {
		errorsSlice = append(errorsSlice, err)
	}

	if !opts.DryRun && len(errorsSlice) == 0 {
		manifest.GeneratedAt = generatedAt
		manifest.prunePosts(keep)
		if err := s.persistManifest(ctx, writer, manifest); err != nil {
			errorsSlice = append(errorsSlice, err)
		}
	}

	result.Artifacts = writer.artifacts()
	result.Duration = time.Since(start)
	s.deps.Logger.Info("generator.build.completed",
		"posts_built", result.PostsBuilt,
		"posts_skipped", result.PostsSkipped,
		"artifacts", len(result.Artifacts),
		"dry_run", opts.DryRun,
		"duration", result.Duration,
	)
	if len(errorsSlice) > 0 {
		result.Errors = append(result.Errors, errorsSlice...)
		return result, errors.Join(errorsSlice...)
	}
	return result, nil
}

func (s *service) renderConcurrently(
	ctx context.Context,
	list []posts.Post,
	workers int,
	manifest *buildManifest,
	allowSkip bool,
	outcomes []postOutcome,
) error {
	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				// Each worker owns a distinct index, so no locking is needed.
				outcomes[idx] = s.renderPost(ctx, list[idx], manifest, allowSkip)
			}
		}()
	}

	for idx := range list {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()
	return nil
}

// renderPost serialises the post artifacts. The manifest is only read here.
func (s *service) renderPost(ctx context.Context, post posts.Post, manifest *buildManifest, allowSkip bool) postOutcome {
	outputs := []string{postJSONPath(post.ID), postHTMLPath(post.ID)}
	outcome := postOutcome{
		diagnostic: BuildDiagnostic{
			PostID:  post.ID,
			Outputs: outputs,
			Render:  post.Diagnostics,
		},
	}
	if err := ctx.Err(); err != nil {
		outcome.err = err
		outcome.diagnostic.Err = err
		return outcome
	}

	start := time.Now()
	data, err := marshalJSON(post)
	if err != nil {
		err = fmt.Errorf("generator: encode post %s: %w", post.ID, err)
		outcome.err = err
		outcome.diagnostic.Err = err
		return outcome
	}
	outcome.hash = computeHash(data)
	if allowSkip && s.cfg.Incremental && manifest.shouldSkipPost(post.ID, outcome.hash, outputs) {
		outcome.skipped = true
		outcome.diagnostic.Skipped = true
		return outcome
	}

	outcome.files = []pendingFile{
		{Path: outputs[0], Data: data, Category: CategoryPost, ContentType: "application/json"},
		{Path: outputs[1], Data: []byte(post.HTML), Category: CategoryPost, ContentType: "text/html; charset=utf-8"},
	}
	outcome.diagnostic.Duration = time.Since(start)
	for _, diag := range post.Diagnostics {
		s.deps.Logger.Warn("generator.post.degraded", "post_id", post.ID, "rule", diag.Rule, "language", diag.Language, "line", diag.Line)
	}
	return outcome
}

type tagEntry struct {
	Tag   string `json:"tag"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

type tagPage struct {
	Tag   string       `json:"tag"`
	Slug  string       `json:"slug"`
	Posts []posts.Post `json:"posts"`
}

type galleryPage struct {
	Photos []gallery.Photo `json:"photos"`
}

// indexFiles renders the collection wide artifacts: list views, tag pages,
// the gallery, the highlight stylesheet, the sitemap and the feeds.
func (s *service) indexFiles(ctx context.Context, collection *posts.Collection, generatedAt time.Time) ([]pendingFile, error) {
	list := collection.All()
	summaries := make([]posts.Post, len(list))
	for i, post := range list {
		summaries[i] = post.Summary()
	}

	var files []pendingFile
	addJSON := func(rel string, category Category, v any) error {
		data, err := marshalJSON(v)
		if err != nil {
			return fmt.Errorf("generator: encode %s: %w", rel, err)
		}
		files = append(files, pendingFile{
			Path:        rel,
			Data:        data,
			Category:    category,
			ContentType: "application/json",
		})
		return nil
	}
	addText := func(rel string, category Category, contentType, content string) {
		files = append(files, pendingFile{
			Path:        rel,
			Data:        []byte(content),
			Category:    category,
			ContentType: contentType,
		})
	}

	if err := addJSON(postsIndexFile, CategoryIndex, summaries); err != nil {
		return files, err
	}

	tags := collection.Tags()
	counts := collection.TagCounts()
	slugByTag := tagSlugs(tags)
	entries := make([]tagEntry, 0, len(tags))
	for _, tag := range tags {
		entries = append(entries, tagEntry{Tag: tag, Slug: slugByTag[tag], Count: counts[tag]})
	}
	if err := addJSON(tagsIndexFile, CategoryIndex, entries); err != nil {
		return files, err
	}
	for _, tag := range tags {
		tagged := collection.ByTag(tag)
		page := tagPage{Tag: tag, Slug: slugByTag[tag], Posts: make([]posts.Post, len(tagged))}
		for i, post := range tagged {
			page.Posts[i] = post.Summary()
		}
		if err := addJSON(tagJSONPath(page.Slug), CategoryTag, page); err != nil {
			return files, err
		}
	}

	if s.deps.Gallery != nil {
		photos, err := s.deps.Gallery.List(ctx)
		if err != nil {
			return files, fmt.Errorf("generator: list gallery: %w", err)
		}
		if photos == nil {
			photos = []gallery.Photo{}
		}
		if err := addJSON(galleryIndexFile, CategoryGallery, galleryPage{Photos: photos}); err != nil {
			return files, err
		}
	}

	if s.cfg.GenerateCSS && s.deps.Highlighter != nil {
		css, err := s.highlightCSS()
		if err != nil {
			return files, err
		}
		addText(highlightCSSFile, CategoryAsset, "text/css; charset=utf-8", css)
	}

	site := siteMetadata{BaseURL: s.cfg.BaseURL, Title: s.cfg.Title, Description: s.cfg.Description}
	if s.cfg.GenerateSitemap {
		routes := []sitemapEntry{{Location: "/", LastMod: generatedAt}}
		for _, post := range list {
			routes = append(routes, sitemapEntry{Location: postRoute(post.ID), LastMod: post.Time()})
		}
		for _, tag := range tags {
			routes = append(routes, sitemapEntry{Location: tagRoute(slugByTag[tag])})
		}
		addText(sitemapFile, CategorySitemap, "application/xml", buildSitemap(site.BaseURL, routes, generatedAt))
	}
	if s.cfg.GenerateRobots {
		addText(robotsFile, CategoryRobots, "text/plain; charset=utf-8", buildRobots(site.BaseURL, s.cfg.GenerateSitemap))
	}
	if s.cfg.GenerateFeeds {
		items := buildFeedItems(site.BaseURL, list, generatedAt)
		addText(rssFeedFile, CategoryFeed, "application/rss+xml", buildRSSFeed(site, items, generatedAt))
		addText(atomFeedFile, CategoryFeed, "application/atom+xml", buildAtomFeed(site, items, generatedAt))
	}
	return files, nil
}

func (s *service) highlightCSS() (string, error) {
	var buf bytes.Buffer
	if err := s.deps.Highlighter.WriteCSS(&buf); err != nil {
		return "", fmt.Errorf("generator: highlight css: %w", err)
	}
	return buf.String(), nil
}

func (s *service) persistFiles(ctx context.Context, writer artifactWriter, files []pendingFile) error {
	dirCache := map[string]struct{}{}
	for _, file := range files {
		if err := ensureDir(ctx, writer, dirCache, path.Dir(file.Path)); err != nil {
			return err
		}
		req := WriteRequest{
			Path:        file.Path,
			Content:     bytes.NewReader(file.Data),
			Size:        int64(len(file.Data)),
			Category:    file.Category,
			ContentType: file.ContentType,
			Checksum:    computeHash(file.Data),
		}
		if s.cfg.Incremental {
			req.Metadata = map[string]string{"incremental": "true"}
		}
		if err := writer.WriteFile(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) loadManifest(ctx context.Context) (*buildManifest, error) {
	data, err := s.deps.Storage.ReadFile(ctx, manifestFileName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newBuildManifest(), nil
		}
		return nil, fmt.Errorf("generator: read manifest: %w", err)
	}
	return parseManifest(data)
}

func (s *service) persistManifest(ctx context.Context, writer artifactWriter, manifest *buildManifest) error {
	data, err := manifest.marshal()
	if err != nil {
		return err
	}
	target := manifestFileName
	metadata := map[string]string{
		"version": strconv.Itoa(manifest.Version),
	}
	if !manifest.GeneratedAt.IsZero() {
		metadata["generated_at"] = manifest.GeneratedAt.UTC().Format(time.RFC3339)
	}
	return writer.WriteFile(ctx, WriteRequest{
		Path:        target,
		Content:     bytes.NewReader(data),
		Size:        int64(len(data)),
		Category:    CategoryManifest,
		ContentType: "application/json",
		Checksum:    computeHash(data),
		Metadata:    metadata,
	})
}

// BuildPost rewrites the artifacts of a single post. Collection wide indexes
// are left untouched.
func (s *service) BuildPost(ctx context.Context, id string) error {
	if s.deps.Posts == nil {
		return errPostsRequired
	}
	if s.baseDir() == "" {
		return errOutputRequired
	}
	post, err := s.deps.Posts.Current().Get(id)
	if err != nil {
		return err
	}
	outcome := s.renderPost(ctx, post, nil, false)
	if outcome.err != nil {
		return outcome.err
	}
	return s.persistFiles(ctx, s.deps.Storage, outcome.files)
}

// BuildAssets writes the highlight stylesheet.
func (s *service) BuildAssets(ctx context.Context) error {
	if s.baseDir() == "" {
		return errOutputRequired
	}
	if s.deps.Highlighter == nil {
		return nil
	}
	css, err := s.highlightCSS()
	if err != nil {
		return err
	}
	return s.persistFiles(ctx, s.deps.Storage, []pendingFile{{
		Path:        highlightCSSFile,
		Data:        []byte(css),
		Category:    CategoryAsset,
		ContentType: "text/css; charset=utf-8",
	}})
}

func (s *service) baseDir() string {
	return strings.TrimSpace(s.cfg.OutputDir)
}

func (s *service) effectiveWorkerCount(postCount int) int {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}
	if postCount > 0 && workers > postCount {
		return postCount
	}
	return workers
}

// recordingWriter forwards writes and remembers every artifact, so dry runs
// still report what would have been written.
type recordingWriter struct {
	next artifactWriter

	mu      sync.Mutex
	written []Artifact
}

func (w *recordingWriter) EnsureDir(ctx context.Context, dir string) error {
	return w.next.EnsureDir(ctx, dir)
}

func (w *recordingWriter) WriteFile(ctx context.Context, req WriteRequest) error {
	artifact := Artifact{Path: req.Path, Category: req.Category, Size: req.Size, Checksum: req.Checksum}
	if err := w.next.WriteFile(ctx, req); err != nil {
		return err
	}
	w.mu.Lock()
	w.written = append(w.written, artifact)
	w.mu.Unlock()
	return nil
}

func (w *recordingWriter) artifacts() []Artifact {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := append([]Artifact(nil), w.written...)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func ensureDir(ctx context.Context, writer artifactWriter, cache map[string]struct{}, dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" || dir == "." {
		return nil
	}
	if cache != nil {
		if _, ok := cache[dir]; ok {
			return nil
		}
		cache[dir] = struct{}{}
	}
	return writer.EnsureDir(ctx, dir)
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func computeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (disabledService) Build(context.Context, BuildOptions) (*BuildResult, error) {
	return nil, ErrServiceDisabled
}

func (disabledService) BuildPost(context.Context, string) error {
	return ErrServiceDisabled
}

func (disabledService) BuildAssets(context.Context) error {
	return ErrServiceDisabled
}
