package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/engine"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/ranker"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/resilience"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return nil
}

func (m *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func sampleAnswer() *engine.Answer {
	return &engine.Answer{
		Question:  "Who created Python?",
		Terms:     []string{"created", "python"},
		Files:     []ranker.ScoredFile{{ID: "python.txt", Score: 4.39}},
		Sentences: []ranker.ScoredSentence{{Text: "Guido van Rossum created Python in 1991.", IDFSum: 1.09, Density: 0.4}},
	}
}

func TestGetOrCompute(t *testing.T) {
	c := New(newMemStore(), time.Minute, "fingerprint-a", nil)
	req := Request{Terms: []string{"python", "created"}, FileMatches: 1, SentenceMatches: 1}
	var computed int
	compute := func(context.Context) (*engine.Answer, error) {
		computed++
		return sampleAnswer(), nil
	}

	got, hit, err := c.GetOrCompute(context.Background(), req, compute)
	if err != nil || hit {
		t.Fatalf("first call hit=%v err=%v", hit, err)
	}
	if got.Sentences[0].Text != "Guido van Rossum created Python in 1991." {
		t.Errorf("answer = %+v", got)
	}

	reordered := Request{Terms: []string{"created", "python", "python"}, FileMatches: 1, SentenceMatches: 1}
	got, hit, err = c.GetOrCompute(context.Background(), reordered, compute)
	if err != nil || !hit {
		t.Fatalf("second call hit=%v err=%v", hit, err)
	}
	if computed != 1 {
		t.Errorf("computed %d times, want 1", computed)
	}
	if got.Files[0].ID != "python.txt" {
		t.Errorf("cached answer = %+v", got)
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("stats = %d/%d, want 1/1", hits, misses)
	}
}

func TestKeyDependsOnCountsAndCorpus(t *testing.T) {
	a := New(newMemStore(), time.Minute, "fingerprint-a", nil)
	b := New(newMemStore(), time.Minute, "fingerprint-b", nil)
	req := Request{Terms: []string{"python"}, FileMatches: 1, SentenceMatches: 1}
	if a.buildKey(req) == b.buildKey(req) {
		t.Error("different corpora share a key")
	}
	other := req
	other.SentenceMatches = 2
	if a.buildKey(req) == a.buildKey(other) {
		t.Error("different match counts share a key")
	}
	if !strings.HasPrefix(a.buildKey(req), keyPrefix) {
		t.Errorf("key %q lacks prefix", a.buildKey(req))
	}
}

func TestComputeErrorNotCached(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, "fp", nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), Request{Terms: []string{"x"}}, func(context.Context) (*engine.Answer, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if len(store.data) != 0 {
		t.Errorf("store = %v, want empty", store.data)
	}
}

func TestSingleflightCollapsesConcurrentMisses(t *testing.T) {
	c := New(newMemStore(), time.Minute, "fp", nil)
	var computed atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), Request{Terms: []string{"x"}}, func(context.Context) (*engine.Answer, error) {
				computed.Add(1)
				<-release
				return sampleAnswer(), nil
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	if n := computed.Load(); n < 1 || n > 8 {
		t.Fatalf("computed %d times", n)
	}
}

func TestBreakerBypassesFailingStore(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	breaker := resilience.NewCircuitBreaker("answer-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
	})
	c := New(store, time.Minute, "fp", breaker)
	compute := func(context.Context) (*engine.Answer, error) { return sampleAnswer(), nil }

	for i := 0; i < 3; i++ {
		ans, hit, err := c.GetOrCompute(context.Background(), Request{Terms: []string{"x"}}, compute)
		if err != nil || hit || ans == nil {
			t.Fatalf("call %d: hit=%v err=%v", i, hit, err)
		}
	}
	if c.BreakerState() != resilience.StateOpen {
		t.Errorf("breaker state = %v, want open", c.BreakerState())
	}
}

func TestMissesDoNotTripBreaker(t *testing.T) {
	breaker := resilience.NewCircuitBreaker("answer-cache", resilience.CircuitBreakerConfig{FailureThreshold: 1})
	c := New(newMemStore(), time.Minute, "fp", breaker)
	for i := 0; i < 5; i++ {
		if _, ok := c.Get(context.Background(), Request{Terms: []string{"missing"}}); ok {
			t.Fatal("unexpected hit")
		}
	}
	if c.BreakerState() != resilience.StateClosed {
		t.Errorf("breaker state = %v, want closed", c.BreakerState())
	}
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	store.data["unrelated"] = "keep"
	c := New(store, time.Minute, "fp", nil)
	c.Set(context.Background(), Request{Terms: []string{"a"}}, sampleAnswer())
	c.Set(context.Background(), Request{Terms: []string{"b"}}, sampleAnswer())
	n, err := c.Invalidate(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("Invalidate = %d, %v", n, err)
	}
	if _, ok := store.data["unrelated"]; !ok || len(store.data) != 1 {
		t.Errorf("store = %v", store.data)
	}
}

func TestGetOrComputeSurvivesFirstCallerTimeout(t *testing.T) {
	c := New(newMemStore(), time.Minute, "fp", nil)
	req := Request{Terms: []string{"x"}}
	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(ctx context.Context) (*engine.Answer, error) {
		close(started)
		select {
		case <-release:
			return sampleAnswer(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	firstCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrCompute(firstCtx, req, compute)
		firstErr <- err
	}()
	<-started

	second := make(chan error, 1)
	go func() {
		ans, _, err := c.GetOrCompute(context.Background(), req, func(context.Context) (*engine.Answer, error) {
			return nil, errors.New("second caller should share the first computation")
		})
		if err == nil && ans.Files[0].ID != "python.txt" {
			err = fmt.Errorf("answer = %+v", ans)
		}
		second <- err
	}()

	if err := <-firstErr; !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("first caller err = %v, want deadline exceeded", err)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	if err := <-second; err != nil {
		t.Fatalf("second caller: %v", err)
	}
	if _, ok := c.Get(context.Background(), req); !ok {
		t.Error("shared answer was not cached")
	}
}
