package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"content_harvester/internal/config"
	"content_harvester/internal/filter"
	"content_harvester/internal/llm"
	"content_harvester/internal/notifier"
	"content_harvester/internal/scheduler"
	"content_harvester/internal/service"
	"content_harvester/internal/source/board"
	"content_harvester/internal/source/devpress"
	"content_harvester/internal/source/jobwire"
	"content_harvester/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
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

	rabbitMQ, err := notifier.NewRabbitMQ(notifier.Config{
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

	sourceStore := postgres.NewSourceStore(db)
	contentStore := postgres.NewContentStore(db)
	historyStore := postgres.NewHistoryStore(db)
	digestStore := postgres.NewDigestStore(db)
	txManager := postgres.NewTransactionManager(db)

	llmClient := llm.New(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})

	clients := []service.SourceClient{
		board.New(board.Config{
			BaseURL:      cfg.Sources.Board.BaseURL,
			TokenURL:     cfg.Sources.Board.TokenURL,
			ClientID:     cfg.Sources.Board.ClientID,
			ClientSecret: cfg.Sources.Board.ClientSecret,
			Timeout:      cfg.Sources.Board.Timeout,
		}, logger),
		devpress.New(devpress.Config{
			BaseURL: cfg.Sources.Devpress.BaseURL,
			Timeout: cfg.Sources.Devpress.Timeout,
		}, logger),
		jobwire.New(jobwire.Config{
			FeedURL: cfg.Sources.Jobwire.FeedURL,
			Timeout: cfg.Sources.Jobwire.Timeout,
		}, logger),
	}

	ingestService := service.NewIngestService(contentStore, sourceStore, txManager, logger)

	crawlService := service.NewCrawlService(
		clients,
		sourceStore,
		historyStore,
		ingestService,
		logger,
		cfg.Crawl,
		filter.Config{
			AllowOrigins:    cfg.Filter.AllowOrigins,
			KeywordsEnglish: cfg.Filter.KeywordsEnglish,
			KeywordsKorean:  cfg.Filter.KeywordsKorean,
		},
	)

	enrichService := service.NewEnrichmentService(
		contentStore,
		llmClient,
		txManager,
		logger,
		cfg.Enrichment,
		cfg.LLM,
	)

	digestService := service.NewDigestService(
		contentStore,
		digestStore,
		llmClient,
		rabbitMQ,
		txManager,
		logger,
		cfg.Digest,
		cfg.LLM,
	)

	sched := scheduler.New(
		crawlService,
		enrichService,
		digestService,
		cfg.Crawl,
		cfg.Enrichment,
		cfg.Digest,
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

	logger.Info("starting content harvester",
		"sources", len(clients),
		"crawl_interval", cfg.Crawl.Interval,
		"digest_hour", cfg.Digest.Hour,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
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
