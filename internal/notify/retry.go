package notify

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// RetryPolicy defines exponential backoff for connecting to the broker.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy covers a broker that starts a few seconds after the bot.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 5, InitialDelay: time.Second, MaxDelay: 15 * time.Second, BackoffFactor: 2}

// NextDelay returns delay for a given attempt (1-based) with clamping.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	d := time.Duration(delay)
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// DialWithRetry calls Dial until it succeeds, the attempts run out or ctx is done.
func DialWithRetry(ctx context.Context, url, queue string, policy RetryPolicy, logger *zerolog.Logger) (*Publisher, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	attempts := policy.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		p, err := Dial(url, queue, logger)
		if err == nil {
			return p, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		delay := policy.NextDelay(attempt)
		logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("rabbitmq dial failed")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
