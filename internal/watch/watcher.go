// Package watch reloads content when markdown files change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

// DefaultDebounce is the quiet period used when Config.Debounce is zero.
const DefaultDebounce = 200 * time.Millisecond

// ErrTriggerRequired is returned by New when no trigger is supplied.
var ErrTriggerRequired = errors.New("watch: trigger is required")

// Trigger runs once per burst of changes. Reason is the last changed path.
type Trigger func(ctx context.Context, reason string) error

// Config selects what is watched.
type Config struct {
	// Root is walked recursively and every directory below it is watched.
	Root string
	// Pattern filters events with the same doublestar rules as the content
	// loader. Empty matches every file.
	Pattern  string
	Debounce time.Duration
}

// Option customises a Watcher.
type Option func(*Watcher)

// WithLogger sets the watcher logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

var skipDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
}

// Watcher coalesces fsnotify events and calls a Trigger after each quiet
// period. Triggers never overlap.
type Watcher struct {
	root     string
	pattern  string
	debounce time.Duration
	trigger  Trigger
	logger   interfaces.Logger
	notify   *fsnotify.Watcher
}

// New creates a watcher and registers every directory below cfg.Root.
func New(cfg Config, trigger Trigger, opts ...Option) (*Watcher, error) {
	if trigger == nil {
		return nil, ErrTriggerRequired
	}
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		root = "."
	}
	if cfg.Pattern != "" && !doublestar.ValidatePattern(cfg.Pattern) {
		return nil, fmt.Errorf("watch: invalid pattern %q", cfg.Pattern)
	}

	w := &Watcher{
		root:     filepath.Clean(root),
		pattern:  cfg.Pattern,
		debounce: cfg.Debounce,
		trigger:  trigger,
		logger:   logging.NoOp(),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}

	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	w.notify = notify
	if err := w.addTree(w.root); err != nil {
		notify.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is done. The underlying watcher is closed
// on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.notify.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	pending := ""
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.notify.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Warn("watch.add.failed", "path", event.Name, "error", err)
				}
				continue
			}
			if !isWatchEvent(event.Op) || !w.Matches(event.Name) {
				continue
			}
			w.logger.Debug("watch.change.detected", "path", event.Name, "op", event.Op.String())
			pending = event.Name
			timer.Reset(w.debounce)
		case err, ok := <-w.notify.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch.error", "error", err)
		case <-timer.C:
			reason := pending
			pending = ""
			if err := w.trigger(ctx, reason); err != nil {
				w.logger.Error("watch.trigger.failed", "path", reason, "error", err)
				continue
			}
			w.logger.Info("watch.trigger.completed", "path", reason)
		}
	}
}

// Matches reports whether name, an OS path below the root, passes the
// pattern filter.
func (w *Watcher) Matches(name string) bool {
	if w.pattern == "" {
		return true
	}
	rel, err := filepath.Rel(w.root, name)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	target := filepath.ToSlash(rel)
	if !strings.Contains(w.pattern, "/") {
		target = path.Base(target)
	}
	ok, err := doublestar.Match(w.pattern, target)
	return err == nil && ok
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return fmt.Errorf("watch: walk %s: %w", root, err)
			}
			w.logger.Warn("watch.walk.failed", "path", p, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if _, skip := skipDirs[d.Name()]; skip && p != root {
			return filepath.SkipDir
		}
		if err := w.notify.Add(p); err != nil {
			return fmt.Errorf("watch: add %s: %w", p, err)
		}
		return nil
	})
}

func isWatchEvent(op fsnotify.Op) bool {
	return op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

func isDir(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.IsDir()
}
