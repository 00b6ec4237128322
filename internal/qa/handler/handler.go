package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/cache"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/engine"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/tracing"
)

type Answerer interface {
	AnswerN(ctx context.Context, question string, fileMatches, sentenceMatches int) (*engine.Answer, error)
	Query(question string) ranker.Query
	Stats() engine.Stats
}

type Tracker interface {
	Track(event analytics.QuestionEvent)
}

type Options struct {
	FileMatches     int
	SentenceMatches int
	MaxMatches      int
	LogSpans        bool
}

type Handler struct {
	engine    Answerer
	cache     *cache.AnswerCache
	collector Tracker
	metrics   *metrics.Metrics
	opts      Options
	logger    *slog.Logger
}

// New builds the HTTP handler. answerCache, collector and m may be nil.
func New(e Answerer, answerCache *cache.AnswerCache, collector Tracker, m *metrics.Metrics, opts Options) *Handler {
	if opts.MaxMatches <= 0 {
		opts.MaxMatches = 25
	}
	return &Handler{
		engine:    e,
		cache:     answerCache,
		collector: collector,
		metrics:   m,
		opts:      opts,
		logger:    slog.Default().With("component", "answer-handler"),
	}
}

type answerResponse struct {
	*engine.Answer
	CacheHit  bool  `json:"cache_hit"`
	LatencyMs int64 `json:"latency_ms"`
}

// Answer serves GET /api/v1/answer?q=...&files=n&sentences=n.
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	question := r.URL.Query().Get("q")
	if question == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	files, err := h.matchParam(r, "files", h.opts.FileMatches)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sentences, err := h.matchParam(r, "sentences", h.opts.SentenceMatches)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	requestID := middleware.GetRequestID(ctx)
	ctx, span := tracing.StartSpan(ctx, "answer", requestID)
	compute := func(ctx context.Context) (*engine.Answer, error) {
		return h.engine.AnswerN(ctx, question, files, sentences)
	}

	var (
		answer   *engine.Answer
		cacheHit bool
	)
	terms := h.engine.Query(question).Terms()
	if h.cache != nil && len(terms) > 0 {
		answer, cacheHit, err = h.cache.GetOrCompute(ctx, cache.Request{
			Terms:           terms,
			FileMatches:     files,
			SentenceMatches: sentences,
		}, compute)
	} else {
		answer, err = compute(ctx)
	}
	span.SetAttr("cache_hit", cacheHit)
	span.End()

	if err != nil {
		h.observeQuestion("error", cacheHit, time.Since(start))
		log.Error("answering failed", "question", question, "error", err)
		status := apperrors.HTTPStatusCode(err)
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		h.writeError(w, status, "answering failed")
		return
	}
	// Cached and shared answers may carry another wording of the question.
	copied := *answer
	copied.Question = question
	answer = &copied

	latency := time.Since(start)
	result := "answered"
	if !answer.Answered() {
		result = "unanswered"
	}
	h.observeQuestion(result, cacheHit, latency)
	h.observeStages(span, len(answer.Sentences))
	if h.opts.LogSpans {
		span.Log(log)
	}

	log.Info("question answered",
		"question", question,
		"terms", len(answer.Terms),
		"files", len(answer.Files),
		"sentences", len(answer.Sentences),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	if h.collector != nil {
		h.collector.Track(analytics.QuestionEvent{
			Type:      analytics.EventQuestion,
			Question:  question,
			Terms:     answer.Terms,
			Files:     answer.FileIDs(),
			Sentences: len(answer.Sentences),
			Answered:  answer.Answered(),
			LatencyMs: latency.Milliseconds(),
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: requestID,
		})
	}

	h.writeJSON(w, http.StatusOK, answerResponse{
		Answer:    answer,
		CacheHit:  cacheHit,
		LatencyMs: latency.Milliseconds(),
	})
}

// Corpus serves GET /api/v1/corpus.
func (h *Handler) Corpus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) matchParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	if n > h.opts.MaxMatches {
		return 0, fmt.Errorf("%s must not exceed %d", name, h.opts.MaxMatches)
	}
	return n, nil
}

func (h *Handler) observeQuestion(result string, cacheHit bool, latency time.Duration) {
	if h.metrics == nil {
		return
	}
	h.metrics.QuestionsTotal.WithLabelValues(result).Inc()
	status := "miss"
	if cacheHit {
		status = "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else if h.cache != nil {
		h.metrics.CacheMissesTotal.Inc()
	}
	h.metrics.AnswerLatency.WithLabelValues(status).Observe(latency.Seconds())
}

func (h *Handler) observeStages(span *tracing.Span, sentences int) {
	if h.metrics == nil {
		return
	}
	h.metrics.SentencesReturned.Observe(float64(sentences))
	span.Walk(func(s *tracing.Span, depth int) {
		if depth == 1 {
			h.metrics.StageDuration.WithLabelValues(s.Name).Observe(s.Duration.Seconds())
		}
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
