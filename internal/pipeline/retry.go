package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/logman117/ai-manufacturing-vision/internal/common"
)

// RetryPolicy is the bounded exponential-backoff policy for transient
// inference-service failures. Auth errors and schema violations are never
// retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy matches the batch defaults: 3 attempts, 2s base, x2.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second, Multiplier: 2.0}
}

// Delay returns the backoff delay after the given attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

// Do runs op up to MaxAttempts times, waiting between attempts on retryable
// errors. A rate-limit Retry-After larger than the policy delay wins. The
// wait is a timer-driven suspension, interruptible by ctx.
func (p RetryPolicy) Do(ctx context.Context, logger *slog.Logger, op func() error) error {
	if logger == nil {
		logger = slog.Default()
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !common.IsRetryable(err) || attempt >= maxAttempts {
			return err
		}

		delay := p.Delay(attempt)
		var rl *common.ServiceRateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > delay {
			delay = rl.RetryAfter
		}

		logger.Warn("pipeline.retry.wait",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
