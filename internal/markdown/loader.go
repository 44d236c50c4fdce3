package markdown

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern selects markdown files in any directory.
const DefaultPattern = "*.md"

// LoaderConfig configures how documents are discovered within a filesystem.
type LoaderConfig struct {
	// BasePath is the on-disk root backing the filesystem. It is only used to
	// turn absolute paths into filesystem relative ones.
	BasePath string
	// Pattern is a doublestar glob. Patterns without a slash are matched
	// against the file name, others against the path relative to the walk root.
	Pattern string
	// Recursive controls whether sub-directories are traversed.
	Recursive bool
}

// Source is one raw document read from the filesystem.
type Source struct {
	// Path is slash separated and relative to the filesystem root.
	Path string
	// ID is the file name without its extension.
	ID       string
	Data     []byte
	ModTime  time.Time
	Checksum string
	// Err is set when the file was matched but could not be read.
	Err error
}

// Loader turns filesystem paths into Sources.
type Loader struct {
	fs        fs.FS
	basePath  string
	pattern   string
	recursive bool
}

// NewLoader constructs a Loader using the provided filesystem and configuration.
func NewLoader(filesystem fs.FS, cfg LoaderConfig) *Loader {
	pattern := filepath.ToSlash(strings.TrimSpace(cfg.Pattern))
	if pattern == "" {
		pattern = DefaultPattern
	}
	basePath := strings.TrimSpace(cfg.BasePath)
	if basePath != "" {
		basePath = filepath.Clean(basePath)
	}
	return &Loader{
		fs:        filesystem,
		basePath:  basePath,
		pattern:   pattern,
		recursive: cfg.Recursive,
	}
}

// Pattern returns the effective glob.
func (l *Loader) Pattern() string {
	return l.pattern
}

// LoadFile reads a single document. Unlike LoadDirectory, read failures are
// returned as errors.
func (l *Loader) LoadFile(ctx context.Context, name string) (Source, error) {
	if err := ctx.Err(); err != nil {
		return Source{}, err
	}
	rel, err := l.makeRelative(name)
	if err != nil {
		return Source{}, err
	}
	src := l.read(rel)
	if src.Err != nil {
		return Source{}, src.Err
	}
	return src, nil
}

// LoadDirectory walks dir and returns every matching document ordered by path.
// Unreadable files are reported through Source.Err; only walk failures and
// context cancellation abort the call.
func (l *Loader) LoadDirectory(ctx context.Context, dir string) ([]Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, err := l.makeRelative(dir)
	if err != nil {
		return nil, err
	}

	var sources []Source
	walkErr := fs.WalkDir(l.fs, root, func(current string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if current == root {
				return walkErr
			}
			sources = append(sources, Source{
				Path: current,
				ID:   documentID(current),
				Err:  fmt.Errorf("markdown loader walk %s: %w", current, walkErr),
			})
			return nil
		}
		if d.IsDir() {
			if current != root && !l.recursive {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !l.matches(root, current) {
			return nil
		}
		sources = append(sources, l.read(current))
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Path < sources[j].Path
	})
	return sources, nil
}

func (l *Loader) read(rel string) Source {
	src := Source{Path: rel, ID: documentID(rel)}

	data, err := fs.ReadFile(l.fs, rel)
	if err != nil {
		src.Err = fmt.Errorf("markdown loader read %s: %w", rel, err)
		return src
	}
	info, err := fs.Stat(l.fs, rel)
	if err != nil {
		src.Err = fmt.Errorf("markdown loader stat %s: %w", rel, err)
		return src
	}

	src.Data = data
	src.ModTime = info.ModTime()
	src.Checksum = Checksum(data)
	return src
}

func (l *Loader) matches(root, current string) bool {
	target := path.Base(current)
	if strings.Contains(l.pattern, "/") {
		target = current
		if root != "." {
			target = strings.TrimPrefix(current, root+"/")
		}
	}
	ok, err := doublestar.Match(l.pattern, target)
	return err == nil && ok
}

func (l *Loader) makeRelative(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return ".", nil
	}
	clean := filepath.Clean(name)
	if !filepath.IsAbs(clean) {
		return filepath.ToSlash(clean), nil
	}
	if l.basePath == "" {
		return "", fmt.Errorf("markdown loader: absolute path %s provided without base path", name)
	}
	rel, err := filepath.Rel(l.basePath, clean)
	if err != nil {
		return "", fmt.Errorf("markdown loader: make relative %s: %w", name, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("markdown loader: %s is outside %s", name, l.basePath)
	}
	return filepath.ToSlash(rel), nil
}

// Checksum returns the hex encoded sha256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func documentID(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
