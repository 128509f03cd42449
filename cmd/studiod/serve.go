package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/clipforge/clipforge/internal/api"
	"github.com/clipforge/clipforge/internal/catalog"
	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/db"
	"github.com/clipforge/clipforge/internal/detect"
	"github.com/clipforge/clipforge/internal/events"
	"github.com/clipforge/clipforge/internal/logging"
	"github.com/clipforge/clipforge/internal/media"
	"github.com/clipforge/clipforge/internal/pipeline"
	"github.com/clipforge/clipforge/internal/playback"
	"github.com/clipforge/clipforge/internal/providers"
	"github.com/clipforge/clipforge/internal/queue"
	"github.com/clipforge/clipforge/internal/render"
)

func runServe() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create data dirs: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("starting clipforge studio daemon", "version", config.Version, "data_dir", cfg.DataDir)

	// One daemon per data directory. A second instance would race the
	// worker on the same job table.
	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another instance is already running (lock %s)", cfg.LockPath())
	}
	defer lock.Unlock()

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	tool, err := media.NewTool(cfg.RenderTimeout, logger)
	if err != nil {
		return fmt.Errorf("media tooling unavailable: %w", err)
	}

	renderer := render.New(tool, cfg.Brand, logger)

	client := providers.NewClient(providers.Options{
		OpenAIKey:     cfg.OpenAIKey,
		ElevenLabsKey: cfg.ElevenLabsKey,
		ProcessingDir: cfg.ProcessingDir(),
		TmpDir:        cfg.TmpDir(),
		Timeout:       cfg.ProviderTimeout,
		Prober:        tool,
		Logger:        logger,
	})

	detector := detect.New(client, cfg.ProcessingDir(), logger)
	clipCatalog := catalog.New(cfg.ProcessingDir(),
		[]string{cfg.PublishedDir(), cfg.LibraryDir()}, logger)

	bus := events.NewBus()

	store := queue.NewStore(database.Conn())
	runner := queue.NewRunner(renderer, client, tool, queue.RunnerOptions{
		TmpDir:       cfg.TmpDir(),
		PublishedDir: cfg.PublishedDir(),
		UploadsDir:   cfg.UploadsDir(),
	}, bus, logger)
	renderQueue := queue.New(store, runner, bus, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := renderQueue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start render queue: %w", err)
	}

	orchestrator := pipeline.New(tool, client, detector, renderer,
		cfg.ProcessingDir(), cfg.LibraryDir(), bus, logger)

	apiServer := api.NewServer(api.ServerConfig{
		Port:         cfg.Port,
		Catalog:      clipCatalog,
		Queue:        renderQueue,
		Processor:    orchestrator,
		Speech:       client,
		Search:       client,
		Files:        playback.NewServer(logger),
		Bus:          bus,
		TmpDir:       cfg.TmpDir(),
		UploadsDir:   cfg.UploadsDir(),
		PublishedDir: cfg.PublishedDir(),
		DailyTarget:  cfg.DailyTarget,
		Logger:       logger,
		StartTime:    startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	renderQueue.Wait()
	logger.Info("shutdown complete")
	return nil
}
