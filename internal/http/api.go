package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-folio/internal/gallery"
	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/internal/markdown"
	"github.com/goliatone/go-folio/internal/posts"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

// DefaultBasePath is the mount point used when no base path is configured.
const DefaultBasePath = "/api"

// PostSource exposes the current post collection. *posts.Store satisfies it.
type PostSource interface {
	Current() *posts.Collection
}

// PhotoLister lists gallery photos. *gallery.Scanner satisfies it.
type PhotoLister interface {
	List(ctx context.Context) ([]gallery.Photo, error)
}

// MarkdownRenderer renders preview requests. *markdown.Renderer satisfies it.
type MarkdownRenderer interface {
	Render(source []byte) markdown.Result
}

// API serves the folio JSON endpoints.
type API struct {
	basePath string
	posts    PostSource
	gallery  PhotoLister
	renderer MarkdownRenderer
	logger   interfaces.Logger
}

// Option mutates the API configuration.
type Option func(*API)

// NewAPI constructs an API instance.
func NewAPI(opts ...Option) *API {
	api := &API{
		basePath: DefaultBasePath,
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(api)
		}
	}
	return api
}

// WithBasePath overrides the base API path (defaults to "/api").
func WithBasePath(path string) Option {
	return func(api *API) {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			api.basePath = trimmed
		}
	}
}

// WithPosts wires the post collection source.
func WithPosts(source PostSource) Option {
	return func(api *API) {
		api.posts = source
	}
}

// WithGallery wires the gallery scanner.
func WithGallery(lister PhotoLister) Option {
	return func(api *API) {
		api.gallery = lister
	}
}

// WithRenderer wires the renderer behind POST /render.
func WithRenderer(renderer MarkdownRenderer) Option {
	return func(api *API) {
		api.renderer = renderer
	}
}

// WithLogger sets the request and error logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(api *API) {
		if logger != nil {
			api.logger = logger
		}
	}
}

// Handler returns a router with the API, the health probe and the standard
// middleware stack mounted.
func (api *API) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(requestLogger(api.logger))
	router.Use(middleware.Recoverer)
	router.Get("/healthz", api.handleHealth)
	_ = api.Register(router)
	return router
}

// Register attaches the API endpoints to the provided router.
func (api *API) Register(router chi.Router) error {
	if router == nil {
		return fmt.Errorf("http: router is required")
	}
	router.Get(joinPath(api.basePath, "posts"), api.handlePostList)
	router.Get(joinPath(api.basePath, "posts/{id}"), api.handlePostGet)
	router.Get(joinPath(api.basePath, "tags"), api.handleTags)
	router.Get(joinPath(api.basePath, "gallery"), api.handleGallery)
	router.Post(joinPath(api.basePath, "render"), api.handleRender)
	return nil
}

func (api *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (api *API) handlePostList(w http.ResponseWriter, r *http.Request) {
	if api.posts == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
		return
	}
	collection := api.posts.Current()
	var list []posts.Post
	if tag := strings.TrimSpace(r.URL.Query().Get("tag")); tag != "" {
		list = collection.ByTag(tag)
	} else {
		list = collection.All()
	}
	summaries := make([]posts.Post, len(list))
	for i, post := range list {
		summaries[i] = post.Summary()
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (api *API) handlePostGet(w http.ResponseWriter, r *http.Request) {
	if api.posts == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
		return
	}
	post, err := api.posts.Current().Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

type tagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

func (api *API) handleTags(w http.ResponseWriter, _ *http.Request) {
	if api.posts == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
		return
	}
	collection := api.posts.Current()
	counts := collection.TagCounts()
	tags := collection.Tags()
	out := make([]tagCount, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tagCount{Tag: tag, Count: counts[tag]})
	}
	writeJSON(w, http.StatusOK, out)
}

type galleryResponse struct {
	Photos []gallery.Photo `json:"photos"`
}

func (api *API) handleGallery(w http.ResponseWriter, r *http.Request) {
	if api.gallery == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
		return
	}
	photos, err := api.gallery.List(r.Context())
	if err != nil {
		api.logger.WithContext(r.Context()).Error("http.gallery.failed", "error", err)
		writeError(w, err)
		return
	}
	if photos == nil {
		photos = []gallery.Photo{}
	}
	writeJSON(w, http.StatusOK, galleryResponse{Photos: photos})
}

type renderRequest struct {
	Markdown string `json:"markdown"`
}

func (req renderRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Markdown, validation.Required),
	)
}

type renderResponse struct {
	HTML        string                `json:"html"`
	Diagnostics []markdown.Diagnostic `json:"diagnostics"`
}

func (api *API) handleRender(w http.ResponseWriter, r *http.Request) {
	if api.renderer == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
		return
	}
	var req renderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, badRequest(err, "invalid render request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, goerrors.FromOzzoValidation(err, "invalid render request"))
		return
	}
	result := api.renderer.Render([]byte(req.Markdown))
	diagnostics := result.Diagnostics
	if diagnostics == nil {
		diagnostics = []markdown.Diagnostic{}
	}
	if result.Degraded() {
		api.logger.WithContext(r.Context()).Warn("http.render.degraded", "diagnostics", len(diagnostics))
	}
	writeJSON(w, http.StatusOK, renderResponse{HTML: result.HTML, Diagnostics: diagnostics})
}
