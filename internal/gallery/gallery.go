// Package gallery lists photos from a directory and derives their metadata
// from the file name.
package gallery

import (
	"context"
	"io/fs"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/internal/slugs"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

const (
	DefaultURLPrefix = "/images/gallery"
	DefaultCategory  = "life"
	dateLayout       = "2006-01-02"
)

// DefaultExtensions lists the image types picked up by a Scanner.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Photo is one gallery entry.
type Photo struct {
	Src         string `json:"src"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Slug        string `json:"slug"`
}

// Config tunes a Scanner.
type Config struct {
	// Dir is the photo directory inside the scanner filesystem.
	Dir             string
	URLPrefix       string
	Extensions      []string
	DefaultCategory string
}

// Option customises a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger used for directory read failures.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Scanner lists photos below a directory. File names follow
// title_category_date_description with every part after the title optional.
type Scanner struct {
	fs         fs.FS
	dir        string
	prefix     string
	category   string
	extensions map[string]struct{}
	logger     interfaces.Logger
}

// NewScanner builds a Scanner over filesystem.
func NewScanner(filesystem fs.FS, cfg Config, opts ...Option) *Scanner {
	dir := strings.Trim(path.Clean("/"+strings.TrimSpace(cfg.Dir)), "/")
	if dir == "" {
		dir = "."
	}
	prefix := strings.TrimRight(strings.TrimSpace(cfg.URLPrefix), "/")
	if prefix == "" {
		prefix = DefaultURLPrefix
	}
	category := strings.TrimSpace(cfg.DefaultCategory)
	if category == "" {
		category = DefaultCategory
	}
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	extensions := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = struct{}{}
	}

	s := &Scanner{
		fs:         filesystem,
		dir:        dir,
		prefix:     prefix,
		category:   category,
		extensions: extensions,
		logger:     logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// List returns the photos newest first. A missing or unreadable directory is
// logged and yields an empty list.
func (s *Scanner) List(ctx context.Context) ([]Photo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	photos := []Photo{}

	entries, err := fs.ReadDir(s.fs, s.dir)
	if err != nil {
		s.logger.Error("gallery.read.failed", "dir", s.dir, "error", err)
		return photos, nil
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(path.Ext(name))
		if _, ok := s.extensions[ext]; !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		modDate := ""
		if info, err := entry.Info(); err == nil {
			modDate = info.ModTime().UTC().Format(dateLayout)
		} else {
			s.logger.Warn("gallery.stat.failed", "file", name, "error", err)
		}
		photos = append(photos, s.photo(name, ext, modDate))
	}

	sort.SliceStable(photos, func(i, j int) bool {
		return photos[i].Date > photos[j].Date
	})
	return photos, nil
}

// photo maps a file name onto a Photo.
func (s *Scanner) photo(name, ext, modDate string) Photo {
	stem := norm.NFC.String(name[:len(name)-len(ext)])
	parts := strings.Split(stem, "_")

	p := Photo{
		Src:      s.prefix + "/" + name,
		Title:    stem,
		Category: s.category,
		Date:     modDate,
	}
	if len(parts) >= 2 {
		p.Title = parts[0]
		if parts[1] != "" {
			p.Category = parts[1]
		}
		if len(parts) > 2 && isoDate.MatchString(parts[2]) {
			p.Date = parts[2]
		}
		if len(parts) > 3 {
			p.Description = strings.Join(parts[3:], "_")
		}
	}

	p.Title = unescape(p.Title)
	p.Description = unescape(p.Description)
	p.Slug = slugs.Normalize(p.Title)
	if p.Slug == "" {
		p.Slug = slugs.Normalize(stem)
	}
	return p
}

func unescape(value string) string {
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}
