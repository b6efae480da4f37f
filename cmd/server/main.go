package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gnemet/SlideGraph/internal/app"
	"github.com/gnemet/SlideGraph/internal/config"
	"github.com/gnemet/SlideGraph/internal/logging"
	"github.com/gnemet/SlideGraph/internal/observer"
	"github.com/gnemet/SlideGraph/internal/server"
	"github.com/gnemet/SlideGraph/internal/store"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func main() {
	flags := config.Flags("server")
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if flags.NArg() > 0 {
		cfg.Input.Path = flags.Arg(0)
	}

	log := logging.Must(cfg.Logging)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fsys := afero.NewOsFs()
	a, err := app.New(ctx, cfg, fsys, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("failed to close outputs", zap.Error(err))
		}
	}()

	st := store.New(app.HierarchyOptions(cfg.Output)...)
	a.Pipeline.AddSink("store", st)

	// The observer's initial scan fills the store before new files are
	// picked up.
	obs := observer.NewObserver(fsys, cfg.Input.Path, a.Pipeline, observer.Options{
		Debounce: cfg.Watch.Debounce,
		Archive:  cfg.Watch.Archive,
		Logger:   log,
	})
	watchErr := make(chan error, 1)
	go func() { watchErr <- obs.Start(ctx) }()

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           server.New(st, a.Metrics.Registry, obs, log).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("SlideGraph server listening", zap.String("addr", srv.Addr), zap.String("stage", cfg.Input.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-watchErr:
		if err != nil {
			return fmt.Errorf("observer: %w", err)
		}
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
