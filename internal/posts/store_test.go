package posts

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/goliatone/go-folio/internal/markdown"
)

type stubLoader struct {
	mu      sync.Mutex
	sources []markdown.Source
	err     error
	calls   int
}

func (s *stubLoader) LoadDirectory(context.Context) ([]markdown.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]markdown.Source(nil), s.sources...), nil
}

func (s *stubLoader) set(sources ...markdown.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = sources
}

func TestStoreStartsEmpty(t *testing.T) {
	store := NewStore(&stubLoader{}, BuildOptions{})
	if store.Current() == nil || store.Current().Len() != 0 {
		t.Fatalf("expected empty collection before reload")
	}
}

func TestStoreReloadSwapsCollection(t *testing.T) {
	loader := &stubLoader{}
	loader.set(source("posts/one.md", "# One"))
	store := NewStore(loader, BuildOptions{})

	first, err := store.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if store.Current() != first || first.Len() != 1 {
		t.Fatalf("expected reloaded collection to be current")
	}

	loader.set(source("posts/one.md", "# One"), source("posts/two.md", "# Two"))
	if _, err := store.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if store.Current().Len() != 2 {
		t.Fatalf("expected two posts after reload, got %d", store.Current().Len())
	}
	if first.Len() != 1 {
		t.Fatalf("expected earlier snapshot to stay unchanged")
	}
}

func TestStoreReloadFailureKeepsPrevious(t *testing.T) {
	loader := &stubLoader{}
	loader.set(source("posts/one.md", "# One"))
	store := NewStore(loader, BuildOptions{})
	if _, err := store.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	loader.err = errors.New("disk gone")
	if _, err := store.Reload(context.Background()); err == nil {
		t.Fatalf("expected reload error")
	}
	if store.Current().Len() != 1 {
		t.Fatalf("expected previous collection to remain active")
	}
}

func TestStoreReplaceIgnoresNil(t *testing.T) {
	store := NewStore(nil, BuildOptions{})
	c := NewCollection([]Post{{ID: "a", Date: "2024-01-01"}})
	store.Replace(c)
	store.Replace(nil)
	if store.Current() != c {
		t.Fatalf("expected Replace(nil) to be ignored")
	}
	if _, err := store.Reload(context.Background()); err == nil {
		t.Fatalf("expected error without a loader")
	}
}

func TestStoreConcurrentReadsDuringReload(t *testing.T) {
	loader := &stubLoader{}
	loader.set(source("posts/one.md", "# One"))
	store := NewStore(loader, BuildOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.Reload(context.Background())
		}()
		go func() {
			defer wg.Done()
			_ = store.Current().All()
		}()
	}
	wg.Wait()
	if store.Current().Len() != 1 {
		t.Fatalf("expected one post, got %d", store.Current().Len())
	}
}
