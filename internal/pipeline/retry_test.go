package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logman117/ai-manufacturing-vision/internal/common"
)

func TestRetryDelayGrowsExponentially(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 2 * time.Second, Multiplier: 2.0}
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(3))
}

func TestRetryDoRetriesTransientThenSucceeds(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 1.0}
	calls := 0
	err := p.Do(context.Background(), nil, func() error {
		calls++
		if calls < 3 {
			return &common.ServiceTransientError{Status: 503, Err: errors.New("upstream")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryDoDoesNotRetryNonRetryable(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 1.0}

	tests := []struct {
		name string
		err  error
	}{
		{"auth", &common.ServiceAuthError{Status: 401, Err: errors.New("bad key")}},
		{"schema", &common.SchemaViolation{Reason: "not json"}},
		{"plain", errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := p.Do(context.Background(), nil, func() error {
				calls++
				return tt.err
			})
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestRetryDoExhaustsAttempts(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 1.0}
	calls := 0
	want := &common.ServiceTransientError{Status: 500, Err: errors.New("still down")}
	err := p.Do(context.Background(), nil, func() error {
		calls++
		return want
	})
	assert.ErrorIs(t, err, want)
	assert.Equal(t, 3, calls)
}

func TestRetryDoHonorsLargerRetryAfter(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, Multiplier: 1.0}
	rl := &common.ServiceRateLimitError{RetryAfter: 50 * time.Millisecond, Err: errors.New("429")}

	start := time.Now()
	calls := 0
	err := p.Do(context.Background(), nil, func() error {
		calls++
		if calls == 1 {
			return rl
		}
		return nil
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestRetryDoStopsOnContextCancel(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Minute, Multiplier: 1.0}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, nil, func() error {
			return &common.ServiceTransientError{Err: errors.New("slow")}
		})
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("retry wait did not honor context cancellation")
	}
}
