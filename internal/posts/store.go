package posts

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-folio/internal/markdown"
)

// SourceLoader lists the documents a Store rebuilds from. markdown.Service
// satisfies it.
type SourceLoader interface {
	LoadDirectory(ctx context.Context) ([]markdown.Source, error)
}

// Store holds the current Collection. Readers never block: Reload builds a
// new collection off to the side and swaps the pointer.
type Store struct {
	loader  SourceLoader
	opts    BuildOptions
	current atomic.Pointer[Collection]

	// reloadMu serialises reloads so a slow build cannot overwrite a newer one.
	reloadMu sync.Mutex
}

// NewStore creates a Store holding an empty collection until the first Reload.
func NewStore(loader SourceLoader, opts BuildOptions) *Store {
	s := &Store{loader: loader, opts: opts.withDefaults()}
	s.current.Store(NewCollection(nil))
	return s
}

// Current returns the active collection. It is never nil.
func (s *Store) Current() *Collection {
	return s.current.Load()
}

// Replace swaps in c. A nil collection is ignored.
func (s *Store) Replace(c *Collection) {
	if c != nil {
		s.current.Store(c)
	}
}

// Reload re-reads every source and swaps in the rebuilt collection. On error
// the previous collection stays active.
func (s *Store) Reload(ctx context.Context) (*Collection, error) {
	if s.loader == nil {
		return nil, fmt.Errorf("posts store: no source loader configured")
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	sources, err := s.loader.LoadDirectory(ctx)
	if err != nil {
		return nil, fmt.Errorf("posts store: load sources: %w", err)
	}
	collection, err := Build(ctx, sources, s.opts)
	if err != nil {
		return nil, fmt.Errorf("posts store: build collection: %w", err)
	}
	s.current.Store(collection)
	s.opts.Logger.Info("posts.store.reloaded", "count", collection.Len())
	return collection, nil
}
