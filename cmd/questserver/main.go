package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nvetoshkin/questline/internal/config"
	"github.com/nvetoshkin/questline/internal/db"
	"github.com/nvetoshkin/questline/internal/dispatch"
	"github.com/nvetoshkin/questline/internal/facts"
	"github.com/nvetoshkin/questline/internal/loader"
	"github.com/nvetoshkin/questline/internal/quest"
)

const DefaultConfigPath = "config/questserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := flag.String("config", DefaultConfigPath, "path to server config")
	flag.Parse()
	if p := os.Getenv("QUESTLINE_CONFIG"); p != "" {
		*cfgPath = p
	}

	cfg, err := config.LoadServer(*cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("questline server starting", "log_level", cfg.LogLevel)

	// Connect to database
	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	// Run migrations
	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// Load quest catalog
	registry, err := loader.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading quest catalog: %w", err)
	}

	// Wire the engine: dispatcher first (it is the engine's emitter), then
	// the engine, then bind the engine as the dispatcher's inbound sink.
	dispatcher := dispatch.New(dispatch.Config{
		PlayerQueueSize:     cfg.PlayerQueueSize,
		SubscriberQueueSize: cfg.SubscriberQueueSize,
	})
	factProvider := facts.NewProvider()
	engine := quest.NewEngine(registry, quest.NewEvaluator(), factProvider, dispatcher, quest.EngineConfig{
		MaxActiveQuests: cfg.MaxActiveQuests,
	})
	dispatcher.Bind(engine)
	defer engine.Shutdown()

	// Persist instance changes asynchronously
	repo := db.NewInstanceRepository(database.Pool())
	dispatcher.Subscribe("persistence", db.NewPersistenceSubscriber(repo, engine))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := dispatcher.Start(gctx); err != nil {
			return fmt.Errorf("dispatcher: %w", err)
		}
		return nil
	})

	slog.Info("questline server started", "quests", registry.Count())
	return g.Wait()
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
