package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/partygames/internal/api"
	"github.com/mcoot/partygames/internal/config"
	"github.com/mcoot/partygames/internal/factory"
	redisstorage "github.com/mcoot/partygames/internal/storage/redis"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	factoryCfg := factory.Config{
		Logger:         logger,
		StorageType:    cfg.StorageType,
		BoltPath:       cfg.BoltPath,
		Dispatcher:     cfg.Dispatcher(),
		Content:        cfg.Content(),
		Transfer:       cfg.Transfer(),
		Realtime:       cfg.Realtime(),
		ScrapeSources:  cfg.ScrapeSources(),
		ScrapeInterval: cfg.ScrapeInterval(),
	}
	if cfg.StorageType == config.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		factoryCfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(factoryCfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.LoadDictionary(ctx, cfg.DictionaryDir); err != nil {
		logger.Warn("could not load dictionary", slog.String("error", err.Error()))
	}
	app.WarmContent(ctx)

	server := api.NewServer(app.Router(), cfg.Server(), logger)
	server.OnShutdown(app.Spectators.Close)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		// The signal context is already done; give Shutdown a fresh one
		return server.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("server stopped")
	return nil
}
