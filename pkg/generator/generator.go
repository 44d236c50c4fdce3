// Package generator exposes the static site generation API for folio hosts.
// Use NewService with Config and Dependencies to export post JSON, HTML fragments, tag indexes, feeds and sitemaps.
package generator

import internal "github.com/goliatone/go-folio/internal/generator"

type (
	Service         = internal.Service
	Config          = internal.Config
	BuildOptions    = internal.BuildOptions
	BuildResult     = internal.BuildResult
	BuildDiagnostic = internal.BuildDiagnostic
	Artifact        = internal.Artifact
	Category        = internal.Category
	Dependencies    = internal.Dependencies
	PostSource      = internal.PostSource
	PhotoLister     = internal.PhotoLister
	Storage         = internal.Storage
	WriteRequest    = internal.WriteRequest
	FileStorage     = internal.FileStorage
	MemoryStorage   = internal.MemoryStorage
)

var (
	ErrServiceDisabled = internal.ErrServiceDisabled
)

// NewService wires a static site generator with the supplied configuration and dependencies.
func NewService(cfg Config, deps Dependencies) Service {
	return internal.NewService(cfg, deps)
}

// NewDisabledService returns a Service that fails all operations with ErrServiceDisabled.
func NewDisabledService() Service {
	return internal.NewDisabledService()
}

// NewFileStorage writes artifacts below root.
func NewFileStorage(root string) *FileStorage {
	return internal.NewFileStorage(root)
}

// NewMemoryStorage keeps artifacts in memory, mainly for tests and dry runs.
func NewMemoryStorage() *MemoryStorage {
	return internal.NewMemoryStorage()
}
