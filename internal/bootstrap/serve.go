package bootstrap

import (
	"context"
	"fmt"

	"github.com/0xcro3dile/coursechat-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/coursechat-go/internal/domain/ports"
	apphttp "github.com/0xcro3dile/coursechat-go/internal/infrastructure/http"
)

// NewServer loads the catalog and builds the HTTP server around it.
func (a *App) NewServer(ctx context.Context) (*apphttp.Server, error) {
	cat, err := a.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	router, idx := a.newRouter(cat)
	a.warmIndex(ctx, idx)

	opts := apphttp.Options{
		Addr:            a.cfg.Server.Addr,
		ReadTimeout:     a.cfg.Server.ReadTimeout,
		WriteTimeout:    a.cfg.Server.WriteTimeout,
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
		AllowedOrigins:  a.cfg.Server.AllowedOrigins,
		OracleState:     a.oracle.State,
		IndexSize: func(ctx context.Context) (int, error) {
			return a.live.Load().ChunkCount(ctx)
		},
	}
	return apphttp.NewServer(router, a.metrics, opts, a.logger), nil
}

// Serve runs the HTTP API until ctx is cancelled, reloading the catalog on
// file changes when catalog.watch is set.
func (a *App) Serve(ctx context.Context) error {
	server, err := a.NewServer(ctx)
	if err != nil {
		return err
	}

	if a.cfg.Catalog.Watch {
		watcher, err := filewatcher.NewFSNotifyWatcher(0, a.logger)
		if err != nil {
			return fmt.Errorf("creating catalog watcher: %w", err)
		}
		a.closers = append(a.closers, watcher.Stop)
		if err := a.WatchCatalog(ctx, watcher, server); err != nil {
			return err
		}
	}

	return server.Start(ctx)
}

// WatchCatalog swaps server's router whenever the catalog file changes.
// A file that fails to load leaves the current router in place. The new
// router brings its own retrieval index, so queries still running on the
// old router keep searching the old one.
func (a *App) WatchCatalog(ctx context.Context, watcher ports.FileWatcher, server *apphttp.Server) error {
	events, err := watcher.Watch(ctx, a.cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("watching catalog: %w", err)
	}
	a.logger.Info().Str("path", a.cfg.Catalog.Path).Msg("watching catalog for changes")

	go func() {
		for event := range events {
			a.reloadCatalog(ctx, event, server)
		}
	}()
	return nil
}

func (a *App) reloadCatalog(ctx context.Context, event ports.FileEvent, server *apphttp.Server) {
	if event.Operation == ports.FileDeleted {
		a.logger.Warn().Str("path", event.Path).Msg("catalog file removed, keeping current catalog")
		return
	}

	cat, err := a.LoadCatalog(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("catalog reload failed, keeping current catalog")
		return
	}
	router, idx := a.newRouter(cat)
	a.warmIndex(ctx, idx)

	server.SetRouter(router)
	a.logger.Info().Int("courses", cat.Len()).Msg("catalog reloaded")
}
