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
	"time"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/cache"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/handler"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/setup"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting answer service", "port", cfg.Server.Port, "corpus", cfg.Corpus.Dir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	eng, err := setup.Engine(ctx, cfg)
	if err != nil {
		slog.Error("failed to build engine", "error", err)
		os.Exit(1)
	}
	stats := eng.Stats()
	m.CorpusDocuments.Set(float64(stats.Documents))
	m.CorpusVocabulary.Set(float64(stats.Vocabulary))

	checker := health.NewChecker()
	checker.Register("corpus", health.Ping(func(context.Context) error {
		if eng.Stats().Documents == 0 {
			return fmt.Errorf("no documents loaded")
		}
		return nil
	}, health.StatusDown))

	var answerCache *cache.AnswerCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, answer caching disabled", "error", err)
			checker.Register("redis", health.Disabled("unavailable at startup"))
		} else {
			defer redisClient.Close()
			breaker := resilience.NewCircuitBreaker("answer-cache", resilience.CircuitBreakerConfig{
				FailureThreshold: 5,
				OnStateChange: func(name string, from, to resilience.State) {
					m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				},
			})
			m.CircuitBreakerState.WithLabelValues(breaker.Name()).Set(float64(resilience.StateClosed))
			answerCache = cache.New(redisClient, cfg.Redis.CacheTTL, eng.Fingerprint(), breaker)
			checker.Register("redis", health.Ping(redisClient.Ping, health.StatusDegraded))
			slog.Info("answer cache enabled",
				"addr", cfg.Redis.Addr,
				"ttl", cfg.Redis.CacheTTL,
			)
		}
	} else {
		checker.Register("redis", health.Disabled("disabled by configuration"))
	}

	var tracker handler.Tracker
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QuestionEvents)
		collector := analytics.NewCollector(producer, cfg.Analytics.BufferSize)
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector
		slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.QuestionEvents)
	}

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			if err := shutdownMetrics(context.Background()); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	h := handler.New(eng, answerCache, tracker, m, handler.Options{
		FileMatches:     cfg.Retrieval.FileMatches,
		SentenceMatches: cfg.Retrieval.SentenceMatches,
		MaxMatches:      cfg.Server.MaxMatches,
		LogSpans:        cfg.Tracing.Enabled,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/answer", h.Answer)
	mux.HandleFunc("GET /api/v1/corpus", h.Corpus)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		limiter := ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateWindow)
		limiter.StartPruning(ctx, 5*time.Minute)
		chain = middleware.RateLimit(limiter, cfg.Server.RateWindow)(chain)
		slog.Info("rate limiting enabled", "limit", cfg.Server.RateLimit, "window", cfg.Server.RateWindow)
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins))(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
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

	slog.Info("answer service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("answer service stopped")
}
