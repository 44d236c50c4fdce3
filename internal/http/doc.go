// Package http exposes the post collection, the gallery and the markdown
// renderer as a read-mostly JSON API.
//
// Routes mount under a configurable base path (default /api):
//   - Posts: GET /posts (optional ?tag=), GET /posts/{id}
//   - Tags: GET /tags
//   - Gallery: GET /gallery
//   - Preview: POST /render
//
// A liveness probe is served at /healthz outside the base path. Host
// applications can mount the router returned by Handler or call Register on
// their own chi router.
package http
