package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryConfig controls exponential backoff between attempts. Retryable, when
// set, stops retrying as soon as it reports an error as permanent.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	JitterPercent uint64
	Retryable     func(error) bool
}

// ErrPermanent marks an error that Retry gave up on without exhausting its
// attempts.
var ErrPermanent = errors.New("permanent failure")

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.JitterPercent == 0 {
		cfg.JitterPercent = 10
	}
	return cfg
}

func (cfg RetryConfig) backoff() retry.Backoff {
	b := retry.NewExponential(cfg.InitialDelay)
	b = retry.WithJitterPercent(cfg.JitterPercent, b)
	b = retry.WithCappedDuration(cfg.MaxDelay, b)
	return retry.WithMaxRetries(uint64(cfg.MaxAttempts-1), b)
}

// Retry calls fn until it succeeds, the attempts run out, fn fails with an
// error Retryable rejects, or ctx is done.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()
	logger := slog.Default().With("component", "retry", "operation", name)

	attempt := 0
	permanent := false
	err := retry.Do(ctx, cfg.backoff(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		switch {
		case err == nil:
			if attempt > 1 {
				logger.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		case cfg.Retryable != nil && !cfg.Retryable(err):
			permanent = true
			return err
		}
		if attempt < cfg.MaxAttempts {
			logger.Warn("operation failed, retrying", "attempt", attempt, "max_attempts", cfg.MaxAttempts, "error", err)
		}
		return retry.RetryableError(err)
	})
	switch {
	case err == nil:
		return nil
	case permanent:
		return fmt.Errorf("%s: %w: %w", name, ErrPermanent, err)
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return fmt.Errorf("%s: retry aborted: %w", name, err)
	}
	return fmt.Errorf("all %d attempts failed for %s: %w", attempt, name, err)
}
