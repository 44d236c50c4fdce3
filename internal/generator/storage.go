package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Category groups written artifacts for reporting.
type Category string

const (
	CategoryPost     Category = "post"
	CategoryIndex    Category = "index"
	CategoryTag      Category = "tag"
	CategoryGallery  Category = "gallery"
	CategoryAsset    Category = "asset"
	CategorySitemap  Category = "sitemap"
	CategoryRobots   Category = "robots"
	CategoryFeed     Category = "feed"
	CategoryManifest Category = "manifest"
)

// WriteRequest describes a file write routed through Storage.
type WriteRequest struct {
	Path        string
	Content     io.Reader
	Size        int64
	Category    Category
	ContentType string
	Checksum    string
	Metadata    map[string]string
}

// Storage persists generator outputs. Paths are slash separated and relative
// to the output root.
type Storage interface {
	EnsureDir(ctx context.Context, path string) error
	WriteFile(ctx context.Context, req WriteRequest) error
	// ReadFile returns an error wrapping fs.ErrNotExist for missing files.
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// FileStorage writes artifacts below Root on the local filesystem.
type FileStorage struct {
	Root string
}

// NewFileStorage returns a Storage rooted at root, normally the configured
// output directory.
func NewFileStorage(root string) *FileStorage {
	return &FileStorage{Root: root}
}

func (s *FileStorage) resolve(path string) string {
	return filepath.Join(s.Root, filepath.FromSlash(path))
}

func (s *FileStorage) EnsureDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(path) == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(s.resolve(path), 0o755); err != nil {
		return fmt.Errorf("generator: ensure dir %s: %w", path, err)
	}
	return nil
}

// WriteFile writes through a temporary file and renames it so readers never
// observe a partial artifact.
func (s *FileStorage) WriteFile(ctx context.Context, req WriteRequest) error {
	if err := validateWrite(req); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	target := s.resolve(req.Path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("generator: write %s: %w", req.Path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".folio-*")
	if err != nil {
		return fmt.Errorf("generator: write %s: %w", req.Path, err)
	}
	if _, err := io.Copy(tmp, req.Content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("generator: write %s: %w", req.Path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("generator: write %s: %w", req.Path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("generator: write %s: %w", req.Path, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("generator: write %s: %w", req.Path, err)
	}
	return nil
}

func (s *FileStorage) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("generator: read %s: %w", path, err)
	}
	return data, nil
}

// MemoryStorage keeps artifacts in memory. It backs dry runs and tests.
type MemoryStorage struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		files: map[string][]byte{},
		dirs:  map[string]struct{}{},
	}
}

func (s *MemoryStorage) EnsureDir(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirs[path] = struct{}{}
	return nil
}

func (s *MemoryStorage) WriteFile(_ context.Context, req WriteRequest) error {
	if err := validateWrite(req); err != nil {
		return err
	}
	data, err := io.ReadAll(req.Content)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[req.Path] = data
	return nil
}

func (s *MemoryStorage) ReadFile(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("generator: read %s: %w", path, fs.ErrNotExist)
	}
	return bytes.Clone(data), nil
}

// Files lists the stored paths in order.
func (s *MemoryStorage) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func validateWrite(req WriteRequest) error {
	if req.Content == nil {
		return errors.New("generator: write requires content reader")
	}
	if strings.TrimSpace(req.Path) == "" {
		return errors.New("generator: write requires path")
	}
	return nil
}

// artifactWriter is the view of Storage used during a build.
type artifactWriter interface {
	EnsureDir(ctx context.Context, path string) error
	WriteFile(ctx context.Context, req WriteRequest) error
}

func newArtifactWriter(storage Storage, dryRun bool) artifactWriter {
	if dryRun || storage == nil {
		return noopWriter{}
	}
	return storage
}

type noopWriter struct{}

func (noopWriter) EnsureDir(context.Context, string) error { return nil }

func (noopWriter) WriteFile(context.Context, WriteRequest) error { return nil }
