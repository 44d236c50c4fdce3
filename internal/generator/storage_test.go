package generator

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorageWritesAtomically(t *testing.T) {
	root := t.TempDir()
	storage := NewFileStorage(root)
	ctx := context.Background()

	require.NoError(t, storage.WriteFile(ctx, WriteRequest{Path: "posts/a.json", Content: strings.NewReader(`{"id":"a"}`)}))
	data, err := os.ReadFile(filepath.Join(root, "posts", "a.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"id":"a"}`, string(data))

	entries, err := os.ReadDir(filepath.Join(root, "posts"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files remain")

	read, err := storage.ReadFile(ctx, "posts/a.json")
	require.NoError(t, err)
	assert.Equal(t, data, read)

	_, err = storage.ReadFile(ctx, "missing.json")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFileStorageRejectsIncompleteRequests(t *testing.T) {
	storage := NewFileStorage(t.TempDir())
	assert.Error(t, storage.WriteFile(context.Background(), WriteRequest{Path: "a"}))
	assert.Error(t, storage.WriteFile(context.Background(), WriteRequest{Content: strings.NewReader("x")}))
}

func TestBuildToFileStorage(t *testing.T) {
	root := t.TempDir()
	cfg := fullConfig()
	cfg.OutputDir = root
	svc := newTestService(cfg, nil, fixturePosts())
	svc.deps.Storage = NewFileStorage(root)

	_, err := svc.Build(context.Background(), BuildOptions{})
	require.NoError(t, err)

	for _, name := range []string{"posts.json", "posts/hello-world.html", "tags/go.json", ".folio-manifest.json", "feed.xml"} {
		_, err := os.Stat(filepath.Join(root, filepath.FromSlash(name)))
		assert.NoError(t, err, name)
	}

	result, err := svc.Build(context.Background(), BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.PostsSkipped)
}

func TestMemoryStorageMissingFile(t *testing.T) {
	_, err := NewMemoryStorage().ReadFile(context.Background(), "nope")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestTagSlugsResolveCollisions(t *testing.T) {
	got := tagSlugs([]string{"Go", "go", "C++", ""})
	assert.Equal(t, "go", got["Go"])
	assert.Equal(t, "go-2", got["go"])
	assert.NotEmpty(t, got["C++"])
	assert.Equal(t, "tag", got[""])
}
