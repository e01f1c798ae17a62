package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pranhealth/drai/internal/app/bootstrap"
	"github.com/pranhealth/drai/internal/assistant"
	appconfig "github.com/pranhealth/drai/internal/config"
	"github.com/pranhealth/drai/internal/directory"
	"github.com/pranhealth/drai/internal/history"
	"github.com/pranhealth/drai/internal/httpapi"
	"github.com/pranhealth/drai/internal/idempotency"
	"github.com/pranhealth/drai/internal/observability/metrics"
	"github.com/pranhealth/drai/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting drai actions server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	var source directory.Source
	var turns history.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		if err := db.PingContext(ctx); err != nil {
			logger.Error("database not reachable", "error", err)
			os.Exit(1)
		}
		source = directory.NewPostgresSource(db, logger)
		turns = history.NewPostgresStore(db, nil)
		logger.Info("postgres directory and history enabled")
	} else {
		source = directory.NewSampleSource()
		logger.Warn("no DATABASE_URL; serving sample directory data without history")
	}

	llm, err := bootstrap.BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build llm client", "error", err)
		os.Exit(1)
	}

	guard := idempotency.NewGuard(bootstrap.BuildIdempotencyStore(ctx, cfg, logger), logger)

	classifier := assistant.NewClassifier(llm, cfg.BedrockModelID, logger)
	retriever := assistant.NewRetriever(source, logger, pipelineMetrics)
	agent := assistant.NewQueryAgent(llm, cfg.BedrockModelID, source, logger, pipelineMetrics)
	generator := assistant.NewGenerator(llm, cfg.BedrockModelID, agent, logger, pipelineMetrics)
	pipeline := assistant.NewPipeline(guard, classifier, retriever, generator, turns, logger, pipelineMetrics)

	router := httpapi.New(&httpapi.Config{
		Logger:         logger,
		Handler:        httpapi.NewHandler(pipeline, logger),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
