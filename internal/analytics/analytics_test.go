package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/kafka"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	calls  int
}

func (p *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.events = append(p.events, events...)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestCollectorPublishesOnClose(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 10)
	c.flushInterval = time.Hour
	c.Start(context.Background())
	for i := 0; i < 3; i++ {
		c.Track(QuestionEvent{Question: "who created python?", Answered: true})
	}
	c.Close()
	if pub.count() != 3 {
		t.Fatalf("published %d events, want 3", pub.count())
	}
	ev, ok := pub.events[0].Value.(QuestionEvent)
	if !ok || ev.Type != EventQuestion {
		t.Errorf("event = %#v", pub.events[0].Value)
	}
}

func TestCollectorFlushesFullBatch(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 100)
	c.batchSize = 2
	c.flushInterval = time.Hour
	c.Start(context.Background())
	c.Track(QuestionEvent{Question: "a"})
	c.Track(QuestionEvent{Question: "b"})
	deadline := time.Now().Add(2 * time.Second)
	for pub.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if pub.count() != 2 {
		t.Fatalf("published %d events before close, want 2", pub.count())
	}
	c.Close()
}

func TestCollectorDropsWhenFull(t *testing.T) {
	c := NewCollector(&fakePublisher{}, 1)
	c.Track(QuestionEvent{Question: "a"})
	c.Track(QuestionEvent{Question: "b"})
	if c.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", c.Dropped())
	}
}

func TestAggregator(t *testing.T) {
	agg := NewAggregator()
	events := []QuestionEvent{
		{Question: "Who created Python?", Answered: true, LatencyMs: 10, Files: []string{"python.txt"}},
		{Question: "who  created python?", Answered: true, LatencyMs: 20, CacheHit: true, Files: []string{"python.txt"}},
		{Question: "What is a zebra?", Answered: false, LatencyMs: 30},
		{Question: "What is AI?", Answered: true, LatencyMs: 40, Files: []string{"ai.txt"}},
	}
	for _, e := range events {
		agg.Record(e)
	}
	st := agg.Stats()
	if st.TotalQuestions != 4 || st.Unanswered != 1 || st.CacheHits != 1 || st.CacheMisses != 3 {
		t.Errorf("counters = %+v", st)
	}
	if st.AvgLatencyMs != 25 || st.P50LatencyMs != 30 || st.P99LatencyMs != 40 {
		t.Errorf("latency avg=%v p50=%d p99=%d", st.AvgLatencyMs, st.P50LatencyMs, st.P99LatencyMs)
	}
	if st.TopQuestions[0] != (TextCount{Text: "who created python?", Count: 2}) {
		t.Errorf("top question = %+v", st.TopQuestions[0])
	}
	if len(st.UnansweredQuestions) != 1 || st.UnansweredQuestions[0].Text != "what is a zebra?" {
		t.Errorf("unanswered = %+v", st.UnansweredQuestions)
	}
	if st.TopFiles[0] != (TextCount{Text: "python.txt", Count: 2}) {
		t.Errorf("top files = %+v", st.TopFiles)
	}
}

func TestAggregatorRestore(t *testing.T) {
	agg := NewAggregator()
	agg.Restore(AggregatedStats{
		TotalQuestions: 10,
		Unanswered:     2,
		TopFiles:       []TextCount{{Text: "ai.txt", Count: 5}},
	})
	agg.Record(QuestionEvent{Question: "x", Answered: true, Files: []string{"ai.txt"}})
	st := agg.Stats()
	if st.TotalQuestions != 11 || st.Unanswered != 2 {
		t.Errorf("counters = %+v", st)
	}
	if st.TopFiles[0].Count != 6 {
		t.Errorf("top files = %+v", st.TopFiles)
	}
}

func TestHandleEvent(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)
	good, _ := json.Marshal(QuestionEvent{Type: EventQuestion, Question: "q", Answered: true})
	other := []byte(`{"type":"something_else","question":"q"}`)
	for _, v := range [][]byte{good, other, []byte("garbage")} {
		if err := handle(context.Background(), nil, v); err != nil {
			t.Fatalf("handler returned %v", err)
		}
	}
	if agg.Stats().TotalQuestions != 1 {
		t.Errorf("total = %d, want 1", agg.Stats().TotalQuestions)
	}
}

func TestStatsHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Record(QuestionEvent{Question: "q", Answered: true, LatencyMs: 3})
	rec := httptest.NewRecorder()
	NewHandler(agg, nil).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var st AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.TotalQuestions != 1 {
		t.Errorf("stats = %+v", st)
	}
}

type fakeLister struct {
	snapshots []AggregatedStats
	err       error
	limit     int
}

func (f *fakeLister) ListSnapshots(ctx context.Context, limit int) ([]AggregatedStats, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.snapshots) {
		return f.snapshots[:limit], nil
	}
	return f.snapshots, nil
}

func TestSnapshotsHandler(t *testing.T) {
	lister := &fakeLister{snapshots: []AggregatedStats{{TotalQuestions: 9}, {TotalQuestions: 4}}}
	h := NewHandler(NewAggregator(), lister)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantLimit int
		wantLen   int
	}{
		{"default limit", "", http.StatusOK, 10, 2},
		{"explicit limit", "?limit=1", http.StatusOK, 1, 1},
		{"zero limit", "?limit=0", http.StatusBadRequest, 0, 0},
		{"too large", "?limit=101", http.StatusBadRequest, 0, 0},
		{"not a number", "?limit=abc", http.StatusBadRequest, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister.limit = 0
			rec := httptest.NewRecorder()
			h.Snapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots"+tt.query, nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if lister.limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", lister.limit, tt.wantLimit)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var got []AggregatedStats
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got) != tt.wantLen || got[0].TotalQuestions != 9 {
				t.Errorf("snapshots = %+v", got)
			}
		})
	}
}

func TestSnapshotsHandlerUnavailable(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(NewAggregator(), nil).Snapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewHandler(NewAggregator(), &fakeLister{err: errors.New("db down")}).Snapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", rec.Code)
	}
}
