package sitecmd

import (
	"context"
	"errors"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-folio/internal/generator"
	"github.com/goliatone/go-folio/internal/markdown"
	"github.com/goliatone/go-folio/internal/posts"
)

type stubGenerator struct {
	opts   []generator.BuildOptions
	result *generator.BuildResult
	err    error
}

func (s *stubGenerator) Build(_ context.Context, opts generator.BuildOptions) (*generator.BuildResult, error) {
	s.opts = append(s.opts, opts)
	return s.result, s.err
}

func (s *stubGenerator) BuildPost(context.Context, string) error { return nil }

func (s *stubGenerator) BuildAssets(context.Context) error { return nil }

type stubLoader struct {
	sources []markdown.Source
	err     error
}

func (l stubLoader) LoadDirectory(context.Context) ([]markdown.Source, error) {
	return l.sources, l.err
}

func TestBuildSiteHandlerPassesOptionsAndResult(t *testing.T) {
	gen := &stubGenerator{result: &generator.BuildResult{PostsBuilt: 2, DryRun: true}}
	handler := NewBuildSiteHandler(gen, nil)

	var got *generator.BuildResult
	err := handler.Execute(context.Background(), BuildSiteCommand{
		DryRun:         true,
		Force:          true,
		ResultCallback: func(r *generator.BuildResult) { got = r },
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(gen.opts) != 1 {
		t.Fatalf("expected one build, got %d", len(gen.opts))
	}
	if !gen.opts[0].DryRun || !gen.opts[0].Force {
		t.Fatalf("expected dry run and force forwarded, got %+v", gen.opts[0])
	}
	if got == nil || got.PostsBuilt != 2 {
		t.Fatalf("expected callback to receive result, got %+v", got)
	}
}

func TestBuildSiteHandlerReportsPartialResultOnFailure(t *testing.T) {
	buildErr := errors.New("disk full")
	gen := &stubGenerator{
		result: &generator.BuildResult{PostsBuilt: 1, Errors: []error{buildErr}},
		err:    buildErr,
	}
	handler := NewBuildSiteHandler(gen, nil)

	var got *generator.BuildResult
	err := handler.Execute(context.Background(), BuildSiteCommand{
		ResultCallback: func(r *generator.BuildResult) { got = r },
	})
	if err == nil {
		t.Fatal("expected build error")
	}
	if !errors.Is(err, buildErr) {
		t.Fatalf("expected wrapped build error, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if got == nil || len(got.Errors) != 1 {
		t.Fatalf("expected partial result delivered, got %+v", got)
	}
}

func TestBuildSiteHandlerRequiresGenerator(t *testing.T) {
	handler := NewBuildSiteHandler(nil, nil)
	err := handler.Execute(context.Background(), BuildSiteCommand{})
	if !errors.Is(err, ErrGeneratorRequired) {
		t.Fatalf("expected ErrGeneratorRequired, got %v", err)
	}
}

func TestBuildSiteHandlerRejectsLongReason(t *testing.T) {
	gen := &stubGenerator{result: &generator.BuildResult{}}
	handler := NewBuildSiteHandler(gen, nil)

	err := handler.Execute(context.Background(), BuildSiteCommand{Reason: strings.Repeat("x", maxReasonLength+1)})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if len(gen.opts) != 0 {
		t.Fatal("generator should not run for invalid messages")
	}
}

func TestBuildSiteHandlerCLIOptions(t *testing.T) {
	handler := NewBuildSiteHandler(&stubGenerator{}, nil)
	opts := handler.CLIOptions()
	if strings.Join(opts.Path, " ") != "site build" {
		t.Fatalf("unexpected CLI path %v", opts.Path)
	}
	if handler.CLIHandler() != handler {
		t.Fatal("expected CLI handler to be the build handler")
	}
}

func TestReloadPostsHandlerSwapsCollection(t *testing.T) {
	store := posts.NewStore(stubLoader{sources: []markdown.Source{
		{Path: "hello.md", ID: "hello", Data: []byte("---\ntitle: Hello\ntags: [go]\n---\nbody\n")},
	}}, posts.BuildOptions{})
	handler := NewReloadPostsHandler(store, nil)

	if err := handler.Execute(context.Background(), ReloadPostsCommand{Reason: "posts/hello.md"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if store.Current().Len() != 1 {
		t.Fatalf("expected one post after reload, got %d", store.Current().Len())
	}
}

func TestReloadPostsHandlerKeepsCollectionOnError(t *testing.T) {
	store := posts.NewStore(stubLoader{err: errors.New("permission denied")}, posts.BuildOptions{})
	handler := NewReloadPostsHandler(store, nil)

	err := handler.Execute(context.Background(), ReloadPostsCommand{Reason: "manual"})
	if err == nil {
		t.Fatal("expected reload error")
	}
	if store.Current() == nil || store.Current().Len() != 0 {
		t.Fatal("expected the empty collection to remain active")
	}
}

func TestReloadPostsHandlerRequiresReason(t *testing.T) {
	store := posts.NewStore(stubLoader{}, posts.BuildOptions{})
	handler := NewReloadPostsHandler(store, nil)

	err := handler.Execute(context.Background(), ReloadPostsCommand{})
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
}

func TestReloadPostsHandlerRequiresStore(t *testing.T) {
	handler := NewReloadPostsHandler(nil, nil)
	err := handler.Execute(context.Background(), ReloadPostsCommand{Reason: "manual"})
	if !errors.Is(err, ErrStoreRequired) {
		t.Fatalf("expected ErrStoreRequired, got %v", err)
	}
}
