package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"hubmirror/internal/config"
	"hubmirror/internal/hubspot"
	"hubmirror/internal/media"
	"hubmirror/internal/publisher"
	"hubmirror/internal/scheduler"
	"hubmirror/internal/server"
	"hubmirror/internal/service"
	"hubmirror/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	purge := flag.Bool("purge", false, "delete all mirrored posts, logs and options, then exit")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize stores
	postStore := postgres.NewPostStore(db)
	optionStore := postgres.NewOptionStore(db)
	runLogStore := postgres.NewRunLogStore(db)
	txManager := postgres.NewTransactionManager(db)

	if *purge {
		runPurge(postStore, optionStore, runLogStore, logger)
		return
	}

	// Optional post-event publisher
	var pub service.Publisher
	if cfg.RabbitMQ.URL != "" {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	hubspotClient := hubspot.New(hubspot.Config{
		BaseURL:      cfg.HubSpot.BaseURL,
		PageSize:     cfg.HubSpot.PageSize,
		MaxPosts:     cfg.HubSpot.MaxPosts,
		FetchTimeout: cfg.HubSpot.FetchTimeout,
		ProbeTimeout: cfg.HubSpot.ProbeTimeout,
	}, logger)

	mediaImporter := media.NewImporter(cfg.Media.Dir, cfg.Media.DownloadTimeout, logger)
	settingsService := service.NewSettingsService(optionStore, cfg.Settings())
	resolver := service.NewCachedResolver(postStore)

	syncer := service.NewSyncer(
		hubspotClient,
		postStore,
		optionStore,
		runLogStore,
		resolver,
		mediaImporter,
		pub,
		settingsService,
		txManager,
		logger,
	)

	sched := scheduler.NewScheduler(
		syncer,
		cfg.Sync.Enabled,
		cfg.Settings().Interval.Duration(),
		cfg.Sync.RunTimeout,
		logger,
	)

	srv := server.New(
		cfg.HTTP.Addr,
		cfg.HTTP.AdminToken,
		syncer,
		hubspotClient,
		settingsService,
		sched,
		runLogStore,
		optionStore,
		postStore,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("starting hubmirror",
		"sync_enabled", cfg.Sync.Enabled,
		"interval", cfg.Sync.Interval,
		"post_type", cfg.Importer.PostType,
	)

	go func() {
		if err := sched.Start(ctx); err != nil && err != context.Canceled {
			logger.Error("scheduler error", "error", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("http server error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
}

// runPurge deletes everything the service ever persisted: mirrored posts
// with their meta, the run log, and all option keys.
func runPurge(posts *postgres.PostStore, options *postgres.OptionStore, runlog *postgres.RunLogStore, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := posts.PurgeImported(ctx); err != nil {
		logger.Error("failed to purge posts", "error", err)
		os.Exit(1)
	}
	if err := runlog.ClearAll(ctx); err != nil {
		logger.Error("failed to clear run log", "error", err)
		os.Exit(1)
	}
	for _, key := range []string{
		service.OptionAPIToken,
		service.OptionPostType,
		service.OptionPostStatus,
		service.OptionSyncEnabled,
		service.OptionSyncInterval,
		service.OptionLastManual,
		service.OptionLastScheduled,
	} {
		if err := options.Delete(ctx, key); err != nil {
			logger.Error("failed to delete option", "key", key, "error", err)
			os.Exit(1)
		}
	}
	logger.Info("purge complete")
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
