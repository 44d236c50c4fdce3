package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-folio/internal/gallery"
	"github.com/goliatone/go-folio/internal/markdown"
	"github.com/goliatone/go-folio/internal/posts"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

type staticPosts struct {
	collection *posts.Collection
}

func (s staticPosts) Current() *posts.Collection {
	return s.collection
}

type stubGallery struct {
	photos []gallery.Photo
	err    error
}

func (s stubGallery) List(context.Context) ([]gallery.Photo, error) {
	return s.photos, s.err
}

type panicRenderer struct{}

func (panicRenderer) Render([]byte) markdown.Result {
	panic("boom")
}

type recordingLogger struct {
	entries []string
}

func (l *recordingLogger) Trace(msg string, _ ...any)                    { l.entries = append(l.entries, msg) }
func (l *recordingLogger) Debug(msg string, _ ...any)                    { l.entries = append(l.entries, msg) }
func (l *recordingLogger) Info(msg string, _ ...any)                     { l.entries = append(l.entries, msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)                     { l.entries = append(l.entries, msg) }
func (l *recordingLogger) Error(msg string, _ ...any)                    { l.entries = append(l.entries, msg) }
func (l *recordingLogger) Fatal(msg string, _ ...any)                    { l.entries = append(l.entries, msg) }
func (l *recordingLogger) WithContext(context.Context) interfaces.Logger { return l }

func setupAPI(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	collection := posts.NewCollection([]posts.Post{
		{ID: "hello", Title: "Hello", Content: "# Hello", HTML: "<h1>Hello</h1>", Date: "2024-03-01", Tags: []string{"go", "web"}},
		{ID: "older", Title: "Older", Content: "old", HTML: "<p>old</p>", Date: "2023-01-01", Tags: []string{"go"}},
	})
	base := []Option{
		WithPosts(staticPosts{collection: collection}),
		WithGallery(stubGallery{photos: []gallery.Photo{{Src: "/images/gallery/cat.jpg", Title: "cat"}}}),
		WithRenderer(markdown.NewRenderer()),
	}
	return NewAPI(append(base, opts...)...).Handler()
}

func doJSONRequest(t *testing.T, handler http.Handler, method, path string, body any, expectedStatus int) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		payload, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, expectedStatus, rec.Code, rec.Body.String())
	return rec
}

func decodeJSONBody(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), target))
}

func TestListPosts(t *testing.T) {
	handler := setupAPI(t)

	rec := doJSONRequest(t, handler, http.MethodGet, "/api/posts", nil, http.StatusOK)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var list []posts.Post
	decodeJSONBody(t, rec, &list)
	require.Len(t, list, 2)
	assert.Equal(t, "hello", list[0].ID)
	assert.Empty(t, list[0].HTML)
	assert.Empty(t, list[0].Content)

	rec = doJSONRequest(t, handler, http.MethodGet, "/api/posts?tag=web", nil, http.StatusOK)
	decodeJSONBody(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "hello", list[0].ID)

	rec = doJSONRequest(t, handler, http.MethodGet, "/api/posts?tag=rust", nil, http.StatusOK)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestGetPost(t *testing.T) {
	handler := setupAPI(t)

	rec := doJSONRequest(t, handler, http.MethodGet, "/api/posts/hello", nil, http.StatusOK)
	var post posts.Post
	decodeJSONBody(t, rec, &post)
	assert.Equal(t, "<h1>Hello</h1>", post.HTML)

	rec = doJSONRequest(t, handler, http.MethodGet, "/api/posts/missing", nil, http.StatusNotFound)
	var payload errorResponse
	decodeJSONBody(t, rec, &payload)
	assert.Equal(t, "not_found", payload.Error)
	assert.Equal(t, posts.TextCodePostNotFound, payload.TextCode)
}

func TestTags(t *testing.T) {
	rec := doJSONRequest(t, setupAPI(t), http.MethodGet, "/api/tags", nil, http.StatusOK)
	var tags []tagCount
	decodeJSONBody(t, rec, &tags)
	assert.Equal(t, []tagCount{{Tag: "go", Count: 2}, {Tag: "web", Count: 1}}, tags)
}

func TestGallery(t *testing.T) {
	rec := doJSONRequest(t, setupAPI(t), http.MethodGet, "/api/gallery", nil, http.StatusOK)
	var payload galleryResponse
	decodeJSONBody(t, rec, &payload)
	require.Len(t, payload.Photos, 1)
	assert.Equal(t, "cat", payload.Photos[0].Title)

	empty := setupAPI(t, WithGallery(stubGallery{}))
	rec = doJSONRequest(t, empty, http.MethodGet, "/api/gallery", nil, http.StatusOK)
	assert.JSONEq(t, `{"photos": []}`, rec.Body.String())

	failing := setupAPI(t, WithGallery(stubGallery{err: errors.New("disk")}))
	doJSONRequest(t, failing, http.MethodGet, "/api/gallery", nil, http.StatusInternalServerError)
}

func TestRender(t *testing.T) {
	handler := setupAPI(t)

	rec := doJSONRequest(t, handler, http.MethodPost, "/api/render", map[string]string{"markdown": "## Title\n\n[x](https://example.com)"}, http.StatusOK)
	var payload renderResponse
	decodeJSONBody(t, rec, &payload)
	assert.Contains(t, payload.HTML, `<h2 id="title">Title</h2>`)
	assert.Contains(t, payload.HTML, `target="_blank"`)
	assert.NotNil(t, payload.Diagnostics)
	assert.Contains(t, rec.Body.String(), `"diagnostics":[]`)
}

func TestRenderRejectsBadInput(t *testing.T) {
	handler := setupAPI(t)

	rec := doJSONRequest(t, handler, http.MethodPost, "/api/render", "{not json", http.StatusBadRequest)
	var payload errorResponse
	decodeJSONBody(t, rec, &payload)
	assert.Equal(t, "bad_request", payload.Error)

	rec = doJSONRequest(t, handler, http.MethodPost, "/api/render", map[string]string{"markdown": ""}, http.StatusBadRequest)
	decodeJSONBody(t, rec, &payload)
	require.NotEmpty(t, payload.Issues)
	assert.Equal(t, "markdown", payload.Issues[0].Field)

	doJSONRequest(t, handler, http.MethodPost, "/api/render", map[string]string{"body": "x"}, http.StatusBadRequest)
}

func TestMissingServicesAreUnavailable(t *testing.T) {
	handler := NewAPI().Handler()
	for _, path := range []string{"/api/posts", "/api/posts/x", "/api/tags", "/api/gallery"} {
		doJSONRequest(t, handler, http.MethodGet, path, nil, http.StatusServiceUnavailable)
	}
	doJSONRequest(t, handler, http.MethodPost, "/api/render", map[string]string{"markdown": "x"}, http.StatusServiceUnavailable)
}

func TestHealthAndBasePath(t *testing.T) {
	handler := setupAPI(t, WithBasePath("/v1/"))
	doJSONRequest(t, handler, http.MethodGet, "/healthz", nil, http.StatusOK)
	doJSONRequest(t, handler, http.MethodGet, "/v1/posts", nil, http.StatusOK)
	doJSONRequest(t, handler, http.MethodGet, "/api/posts", nil, http.StatusNotFound)
}

func TestMiddlewareRecoversAndLogs(t *testing.T) {
	logger := &recordingLogger{}
	handler := setupAPI(t, WithRenderer(panicRenderer{}), WithLogger(logger))

	doJSONRequest(t, handler, http.MethodPost, "/api/render", map[string]string{"markdown": "x"}, http.StatusInternalServerError)
	assert.Contains(t, logger.entries, "http.request.failed")

	doJSONRequest(t, handler, http.MethodGet, "/healthz", nil, http.StatusOK)
	assert.Contains(t, logger.entries, "http.request.completed")
}

func TestRegisterOnExistingRouter(t *testing.T) {
	router := chi.NewRouter()
	api := NewAPI(WithPosts(staticPosts{collection: posts.NewCollection(nil)}))
	require.NoError(t, api.Register(router))
	rec := doJSONRequest(t, router, http.MethodGet, "/api/posts", nil, http.StatusOK)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "[]"))

	assert.Error(t, api.Register(nil))
}

func TestMapError(t *testing.T) {
	status, payload := mapError(nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "unknown_error", payload.Error)

	status, _ = mapError(badRequest(errors.New("x"), "bad"))
	assert.Equal(t, http.StatusBadRequest, status)

	status, payload = mapError(errors.New("plain"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "plain", payload.Message)
}
