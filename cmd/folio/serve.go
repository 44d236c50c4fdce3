package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-folio/commands"
	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/internal/watch"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `serve loads every post, then exposes them over the JSON API. With --watch
the collection is rebuilt whenever a markdown file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().Bool("watch", false, "reload posts when markdown files change")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = a.v.BindPFlag("server.watch", cmd.Flags().Lookup("watch"))
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	module, err := a.module(ctx)
	if err != nil {
		return err
	}
	logger := logging.HTTPLogger(module.LoggerProvider())

	registration, err := a.subscribe(module)
	if err != nil {
		return err
	}
	defer registration.Unsubscribe()

	if a.cfg.Server.Watch {
		watcher, err := watch.New(watch.Config{
			Root:     a.cfg.Content.Dir,
			Pattern:  a.cfg.Content.Pattern,
			Debounce: a.cfg.Server.WatchDebounce,
		}, func(ctx context.Context, reason string) error {
			return dispatcher.Dispatch(ctx, commands.ReloadPostsCommand{Reason: reason})
		}, watch.WithLogger(logging.WatchLogger(module.LoggerProvider())))
		if err != nil {
			return err
		}
		go func() {
			_ = watcher.Run(ctx)
		}()
	}

	server := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           module.API().Handler(),
		ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http.server.started", "addr", server.Addr, "posts", module.Posts().Len(), "watch", a.cfg.Server.Watch)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	logger.Info("http.server.stopping")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
