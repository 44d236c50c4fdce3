package commands

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-command/dispatcher"

	"github.com/goliatone/go-folio/internal/di"
	"github.com/goliatone/go-folio/internal/generator"
	"github.com/goliatone/go-folio/internal/runtimeconfig"
)

func newContainer(t *testing.T, mutate func(*runtimeconfig.Config)) (*di.Container, *generator.MemoryStorage) {
	t.Helper()
	cfg := runtimeconfig.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	storage := generator.NewMemoryStorage()
	container, err := di.NewContainer(cfg,
		di.WithContentFilesystem(fstest.MapFS{
			"hello.md": {Data: []byte("---\ntitle: Hello\ntags: [go]\n---\nbody\n")},
		}),
		di.WithGeneratorStorage(storage),
	)
	if err != nil {
		t.Fatalf("new container: %v", err)
	}
	return container, storage
}

func TestRegisterContainerCommandsBuildsHandlers(t *testing.T) {
	container, _ := newContainer(t, nil)
	registry := &recordingRegistry{}
	recorder := &recordingDispatcher{}

	result, err := RegisterContainerCommands(container, RegistrationOptions{
		Registry:   registry,
		Dispatcher: recorder,
	})
	if err != nil {
		t.Fatalf("register commands: %v", err)
	}
	if len(result.Handlers) != 2 {
		t.Fatalf("expected build and reload handlers, got %d", len(result.Handlers))
	}
	if len(registry.handlers) != len(result.Handlers) {
		t.Fatalf("expected registry to record all handlers, got %d of %d", len(registry.handlers), len(result.Handlers))
	}
	if len(recorder.subscriptions) != 2 {
		t.Fatalf("expected dispatcher subscriptions, got %d", len(recorder.subscriptions))
	}

	result.Unsubscribe()
	for _, sub := range recorder.subscriptions {
		if !sub.unsubscribed {
			t.Fatal("expected every subscription torn down")
		}
	}
}

func TestRegisterContainerCommandsSkipsDisabledGenerator(t *testing.T) {
	container, _ := newContainer(t, func(cfg *runtimeconfig.Config) {
		cfg.Generator.Enabled = false
	})

	result, err := RegisterContainerCommands(container, RegistrationOptions{})
	if err != nil {
		t.Fatalf("register commands: %v", err)
	}
	if len(result.Handlers) != 1 {
		t.Fatalf("expected only the reload handler, got %d", len(result.Handlers))
	}
	if len(result.Subscriptions) != 0 {
		t.Fatalf("expected no dispatcher subscriptions without dispatcher, got %d", len(result.Subscriptions))
	}
}

func TestRegisterContainerCommandsNilContainer(t *testing.T) {
	result, err := RegisterContainerCommands(nil, RegistrationOptions{})
	if err != nil {
		t.Fatalf("register commands: %v", err)
	}
	if len(result.Handlers) != 0 {
		t.Fatalf("expected no handlers, got %d", len(result.Handlers))
	}
}

func TestGlobalDispatcherRoutesCommands(t *testing.T) {
	container, storage := newContainer(t, nil)

	result, err := RegisterContainerCommands(container, RegistrationOptions{Dispatcher: GlobalDispatcher{}})
	if err != nil {
		t.Fatalf("register commands: %v", err)
	}
	t.Cleanup(result.Unsubscribe)

	ctx := context.Background()
	if err := dispatcher.Dispatch(ctx, ReloadPostsCommand{Reason: "test"}); err != nil {
		t.Fatalf("dispatch reload: %v", err)
	}
	if container.PostStore().Current().Len() != 1 {
		t.Fatalf("expected one post after reload, got %d", container.PostStore().Current().Len())
	}

	var built *generator.BuildResult
	if err := dispatcher.Dispatch(ctx, BuildSiteCommand{
		ResultCallback: func(r *generator.BuildResult) { built = r },
	}); err != nil {
		t.Fatalf("dispatch build: %v", err)
	}
	if built == nil || built.PostsBuilt != 1 {
		t.Fatalf("expected one post built, got %+v", built)
	}
	if _, err := storage.ReadFile(ctx, "posts/hello.html"); err != nil {
		t.Fatalf("expected posts/hello.html written: %v", err)
	}
}

func TestGlobalDispatcherRejectsUnknownHandlers(t *testing.T) {
	if _, err := (GlobalDispatcher{}).RegisterCommand(struct{}{}); err == nil {
		t.Fatal("expected error for unsupported handler")
	}
}

type recordingRegistry struct {
	handlers []any
}

func (r *recordingRegistry) RegisterCommand(handler any) error {
	r.handlers = append(r.handlers, handler)
	return nil
}

type recordingDispatcher struct {
	handlers      []any
	subscriptions []*recordingSubscription
	err           error
}

func (d *recordingDispatcher) RegisterCommand(handler any) (CommandSubscription, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.handlers = append(d.handlers, handler)
	sub := &recordingSubscription{handler: handler}
	d.subscriptions = append(d.subscriptions, sub)
	return sub, nil
}

type recordingSubscription struct {
	handler      any
	unsubscribed bool
}

func (s *recordingSubscription) Unsubscribe() {
	s.unsubscribed = true
}
