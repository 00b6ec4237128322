package analytics

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/kafka"
)

const (
	maxLatencySamples = 10000
	topListSize       = 10
)

type AggregatedStats struct {
	TotalQuestions      int64       `json:"total_questions"`
	Unanswered          int64       `json:"unanswered"`
	CacheHits           int64       `json:"cache_hits"`
	CacheMisses         int64       `json:"cache_misses"`
	AvgLatencyMs        float64     `json:"avg_latency_ms"`
	P50LatencyMs        int64       `json:"p50_latency_ms"`
	P95LatencyMs        int64       `json:"p95_latency_ms"`
	P99LatencyMs        int64       `json:"p99_latency_ms"`
	TopQuestions        []TextCount `json:"top_questions"`
	UnansweredQuestions []TextCount `json:"unanswered_questions"`
	TopFiles            []TextCount `json:"top_files"`
	QuestionsPerMinute  float64     `json:"questions_per_minute"`
}

type TextCount struct {
	Text  string `json:"text"`
	Count int64  `json:"count"`
}

// Aggregator folds question events into running totals. Latency percentiles
// cover the most recent samples only.
type Aggregator struct {
	mu                  sync.RWMutex
	totalQuestions      int64
	unanswered          int64
	cacheHits           int64
	cacheMisses         int64
	latencies           []int64
	next                int
	questionCounts      map[string]int64
	unansweredQuestions map[string]int64
	fileCounts          map[string]int64
	startTime           time.Time
	logger              *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:           make([]int64, 0, 1024),
		questionCounts:      make(map[string]int64),
		unansweredQuestions: make(map[string]int64),
		fileCounts:          make(map[string]int64),
		startTime:           time.Now(),
		logger:              slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent returns a Kafka handler feeding agg. Undecodable messages are
// logged and acknowledged so they do not block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[QuestionEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode question event", "key", string(key), "error", err)
			return nil
		}
		if event.Type != "" && event.Type != EventQuestion {
			agg.logger.Debug("ignoring event", "type", event.Type)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

func (a *Aggregator) Record(event QuestionEvent) {
	question := normalizeQuestion(event.Question)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalQuestions++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
	a.questionCounts[question]++
	if !event.Answered {
		a.unanswered++
		a.unansweredQuestions[question]++
	}
	for _, f := range event.Files {
		a.fileCounts[f]++
	}
}

// Restore seeds the counters from a persisted snapshot so totals survive a
// restart. Top lists are restored as far as the snapshot kept them.
func (a *Aggregator) Restore(snapshot AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalQuestions += snapshot.TotalQuestions
	a.unanswered += snapshot.Unanswered
	a.cacheHits += snapshot.CacheHits
	a.cacheMisses += snapshot.CacheMisses
	for _, tc := range snapshot.TopQuestions {
		a.questionCounts[tc.Text] += tc.Count
	}
	for _, tc := range snapshot.UnansweredQuestions {
		a.unansweredQuestions[tc.Text] += tc.Count
	}
	for _, tc := range snapshot.TopFiles {
		a.fileCounts[tc.Text] += tc.Count
	}
	a.logger.Info("aggregator restored from snapshot", "total_questions", snapshot.TotalQuestions)
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalQuestions: a.totalQuestions,
		Unanswered:     a.unanswered,
		CacheHits:      a.cacheHits,
		CacheMisses:    a.cacheMisses,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQuestions = topN(a.questionCounts, topListSize)
	stats.UnansweredQuestions = topN(a.unansweredQuestions, topListSize)
	stats.TopFiles = topN(a.fileCounts, topListSize)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QuestionsPerMinute = float64(stats.TotalQuestions) / elapsed
	}
	return stats
}

func normalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []TextCount {
	result := make([]TextCount, 0, len(counts))
	for text, count := range counts {
		result = append(result, TextCount{Text: text, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Text < result[j].Text
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
