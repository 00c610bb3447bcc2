package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pulseboard/dashboard/internal/cache"
	"pulseboard/dashboard/internal/command"
	"pulseboard/dashboard/internal/config"
	"pulseboard/dashboard/internal/db"
	"pulseboard/dashboard/internal/lifecycle"
	"pulseboard/dashboard/internal/logging"
	"pulseboard/dashboard/internal/realtime"
	"pulseboard/dashboard/internal/search"
	"pulseboard/dashboard/internal/state"
	"pulseboard/dashboard/internal/status"
	"pulseboard/dashboard/internal/syncer"
	"pulseboard/dashboard/internal/view"
)

var version = "dev"
var buildTime = "unknown"

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := command.BuildApp(command.Deps{
		LoadConfig: config.LoadConfig,
		RunDashboard: func(ctx context.Context, cfg config.Config) error {
			return runDashboard(ctx, os.Stdout, os.Stderr, cfg)
		},
		RunMigrateUp: runMigrateUp,
		RunExport:    runExport,
	})

	if err := app.RunContext(rootCtx, os.Args); err != nil {
		logging.NewLogger(logging.Options{Level: "error", Writer: os.Stderr, Component: "pulseboard"}).Error("pulseboard failed", "err", err)
		os.Exit(1)
	}
}

func runMigrateUp(_ context.Context, cfg config.Config) error {
	gdb, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func runExport(ctx context.Context, cfg config.Config, out string) error {
	logger := newRuntimeLogger(os.Stderr, cfg.LogLevel)
	fetcher := syncer.NewFetcher(cfg.CompanionBaseURL, syncer.WithFetchLogger(logger))
	coordinator := syncer.NewCoordinator(fetcher, cache.NewMemoryStore(), state.NewStore(),
		syncer.WithLogger(logger))
	path, err := coordinator.ExportSnapshot(ctx, out)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, path)
	return nil
}

func runDashboard(ctx context.Context, out io.Writer, errOut io.Writer, cfg config.Config) error {
	logger := newRuntimeLogger(errOut, cfg.LogLevel)
	fmt.Fprintf(out, "pulseboard %s (built %s)\n", version, buildTime)

	store, closeStore := openCacheStore(cfg, logger)

	memory := state.NewStore()
	statusStream := status.NewStream(
		status.WithLogger(logger.With("module", "status")),
		status.WithHideKeywords("heartbeat"),
	)
	index := search.NewIndex()
	renderer := view.NewTextRenderer(out, cfg.LinkThreshold, cfg.TimelineLimit)
	controller := view.NewController(renderer, index, memory.Snapshot,
		view.WithLogger(logger.With("module", "view")))

	render := func(snap state.Snapshot) {
		controller.IndexSnapshot(snap)
		controller.Render()
	}

	fetcher := syncer.NewFetcher(cfg.CompanionBaseURL,
		syncer.WithFetchLogger(logger.With("module", "fetcher")))
	coordinator := syncer.NewCoordinator(fetcher, store, memory,
		syncer.WithPageSize(cfg.PageSize),
		syncer.WithRefreshInterval(cfg.RefreshInterval),
		syncer.WithCacheCaps(cfg.CacheMaxEvents, cfg.CacheMaxPrompts),
		syncer.WithFetchOptions(syncer.Options{Timeout: cfg.FetchTimeout, Retries: cfg.FetchRetries}),
		syncer.WithStatusStream(statusStream),
		syncer.WithLogger(logger.With("module", "syncer")),
		syncer.WithRenderFunc(render),
	)
	channel := realtime.NewChannel(cfg.CompanionWSURL, realtime.RealDialer{}, store, memory,
		realtime.WithChannelLogger(logger.With("module", "realtime")),
		realtime.WithChannelStatus(statusStream),
		realtime.WithUpdateFunc(func() { render(memory.Snapshot()) }),
	)

	mgr := lifecycle.NewManager()
	mgr.AddRun("sync", func(runCtx context.Context) error {
		if err := coordinator.WarmStart(runCtx); err != nil {
			logger.Warn("warm start incomplete", "err", err)
		}
		return coordinator.RunRefreshLoop(runCtx)
	})
	mgr.AddRun("realtime", func(runCtx context.Context) error {
		for _, ch := range []string{"activity", "entries", "terminal"} {
			if err := channel.Subscribe(runCtx, ch); err != nil {
				logger.Warn("subscribe failed", "channel", ch, "err", err)
			}
		}
		if err := channel.Run(runCtx); err != nil && runCtx.Err() == nil {
			// Live updates are optional; the refresh loop keeps data current.
			logger.Warn("realtime channel stopped", "err", err)
		}
		return nil
	})
	mgr.AddRun("status-display", func(runCtx context.Context) error {
		sub := statusStream.Subscribe()
		for {
			select {
			case <-runCtx.Done():
				return runCtx.Err()
			case msg := <-sub:
				fmt.Fprintf(out, "[%s] %s\n", msg.Level, msg.Text)
			}
		}
	})
	mgr.AddShutdown("close-cache", func(context.Context) error {
		return closeStore()
	})
	return mgr.StartAndWait(ctx)
}

// openCacheStore opens the sqlite cache, falling back to the in-memory store
// when the database cannot be opened.
func openCacheStore(cfg config.Config, logger *slog.Logger) (cache.Store, func() error) {
	gdb, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Warn("cache database unavailable, running without persistence", "path", cfg.DBPath, "err", err)
		return cache.NewMemoryStore(), func() error { return nil }
	}
	sqlStore, err := cache.NewSQLStore(gdb)
	if err != nil {
		logger.Warn("cache store init failed, running without persistence", "err", err)
		return cache.NewMemoryStore(), func() error { return nil }
	}
	return sqlStore, func() error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
}

func newRuntimeLogger(writer io.Writer, level string) *slog.Logger {
	return logging.NewLogger(logging.Options{
		Level:     level,
		Writer:    writer,
		Component: "pulseboard",
	})
}
