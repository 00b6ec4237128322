// Package cache keeps computed answers in Redis, keyed by corpus fingerprint,
// normalized query terms and match counts. Concurrent misses for the same key
// are collapsed into one computation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/engine"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/resilience"
)

const keyPrefix = "qa:"

// defaultComputeTimeout bounds a shared computation once it no longer follows
// any single caller's context.
const defaultComputeTimeout = 30 * time.Second

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Request identifies one cacheable answer.
type Request struct {
	Terms           []string
	FileMatches     int
	SentenceMatches int
}

type AnswerCache struct {
	store       Store
	ttl         time.Duration
	fingerprint string
	breaker     *resilience.CircuitBreaker
	isMiss      func(error) bool
	group       singleflight.Group
	timeout     time.Duration
	logger      *slog.Logger
	hits        atomic.Int64
	misses      atomic.Int64
}

// New returns a cache for answers computed over the corpus identified by
// fingerprint. Store errors count against breaker; while it is open the cache
// is bypassed.
func New(store Store, ttl time.Duration, fingerprint string, breaker *resilience.CircuitBreaker) *AnswerCache {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("answer-cache", resilience.CircuitBreakerConfig{})
	}
	return &AnswerCache{
		store:       store,
		ttl:         ttl,
		fingerprint: fingerprint,
		breaker:     breaker,
		isMiss:      pkgredis.IsNilError,
		timeout:     defaultComputeTimeout,
		logger:      slog.Default().With("component", "answer-cache"),
	}
}

func (c *AnswerCache) Get(ctx context.Context, req Request) (*engine.Answer, bool) {
	key := c.buildKey(req)
	var data string
	err := c.breaker.ExecuteIgnoring(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		return err
	}, c.isMiss)
	if err != nil {
		switch {
		case c.isMiss(err):
		case errors.Is(err, resilience.ErrCircuitOpen):
			c.logger.Debug("cache bypassed", "key", key, "error", err)
		default:
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var answer engine.Answer
	if err := json.Unmarshal([]byte(data), &answer); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key)
	return &answer, true
}

func (c *AnswerCache) Set(ctx context.Context, req Request, answer *engine.Answer) {
	key := c.buildKey(req)
	data, err := json.Marshal(answer)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns a cached answer or computes, stores and returns a new
// one. The boolean reports a cache hit. Concurrent misses share one call to
// computeFn, which runs detached from any one caller's cancellation; each
// caller stops waiting when its own ctx is done.
func (c *AnswerCache) GetOrCompute(
	ctx context.Context,
	req Request,
	computeFn func(ctx context.Context) (*engine.Answer, error),
) (*engine.Answer, bool, error) {
	if answer, ok := c.Get(ctx, req); ok {
		return answer, true, nil
	}
	key := c.buildKey(req)
	ch := c.group.DoChan(key, func() (any, error) {
		computeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		answer, err := computeFn(computeCtx)
		if err != nil {
			return nil, err
		}
		c.Set(computeCtx, req, answer)
		return answer, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*engine.Answer), false, nil
	case <-ctx.Done():
		return nil, false, fmt.Errorf("waiting for answer: %w", ctx.Err())
	}
}

// Invalidate removes every cached answer, across all corpora.
func (c *AnswerCache) Invalidate(ctx context.Context) (int64, error) {
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.store.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return deleted, nil
}

func (c *AnswerCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports whether the cache is currently being consulted.
func (c *AnswerCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

func (c *AnswerCache) buildKey(req Request) string {
	raw := fmt.Sprintf("%s|files=%d|sentences=%d", normalizeTerms(req.Terms), req.FileMatches, req.SentenceMatches)
	hash := sha256.Sum256([]byte(raw))
	fp := c.fingerprint
	if len(fp) > 16 {
		fp = fp[:16]
	}
	return fmt.Sprintf("%s%s:%x", keyPrefix, fp, hash[:16])
}

// normalizeTerms sorts and deduplicates terms so that questions reducing to
// the same query set share a key.
func normalizeTerms(terms []string) string {
	sorted := append([]string(nil), terms...)
	sort.Strings(sorted)
	out := sorted[:0]
	for i, t := range sorted {
		if i > 0 && t == sorted[i-1] {
			continue
		}
		out = append(out, t)
	}
	return strings.Join(out, ",")
}
