// Command analytics starts the standalone question analytics service.
//
// It consumes question events from Kafka, aggregates them in memory (volume,
// unanswered questions, latency percentiles, cache hit rate, top questions and
// documents), snapshots the aggregate to PostgreSQL when it is reachable, and
// exposes GET /api/v1/analytics for dashboards.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 8082, "HTTP port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", *port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()
	checker := health.NewChecker()

	var snapshots *store.Store
	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, snapshots disabled", "error", err)
		checker.Register("postgres", health.Disabled("unavailable at startup"))
	} else {
		defer db.Close()
		snapshots = store.NewStore(db)
		if err := snapshots.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare snapshot schema", "error", err)
			os.Exit(1)
		}
		latest, err := snapshots.LatestSnapshot(ctx)
		switch {
		case err != nil:
			slog.Warn("could not restore snapshot", "error", err)
		case latest != nil:
			aggregator.Restore(*latest)
			slog.Info("restored analytics snapshot", "total_questions", latest.TotalQuestions)
		}
		checker.Register("postgres", health.Ping(db.Ping, health.StatusDegraded))
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.QuestionEvents, analytics.HandleEvent(aggregator))
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Start(ctx); err != nil {
			slog.Error("consumer error", "error", err)
		}
	}()
	slog.Info("analytics consumer started", "topic", cfg.Kafka.Topics.QuestionEvents)

	var saved <-chan struct{}
	if snapshots != nil && cfg.Analytics.SnapshotInterval > 0 {
		saved = snapshots.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
	}

	var lister analytics.SnapshotLister
	if snapshots != nil {
		lister = snapshots
	}
	analyticsHandler := analytics.NewHandler(aggregator, lister)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", analyticsHandler.Snapshots)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	<-consumerDone
	if saved != nil {
		<-saved
	}
	slog.Info("analytics service stopped")
}
