package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	sendgridRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sendgrid_retries_total",
		Help: "Total number of retry attempts by endpoint",
	}, []string{"endpoint"})

	sendgridRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sendgrid_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by endpoint",
	}, []string{"endpoint"})
)

// RetryPolicy controls how a call is re-attempted after a failure.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts (including the first one).
	MaxAttempts int

	// Delay is the fixed pause between attempts.
	Delay time.Duration

	// Retryable decides whether an attempt error is worth another try.
	// Nil means RetryTransport.
	Retryable func(error) bool
}

// DefaultRetryPolicy returns five attempts thirty seconds apart, retrying
// transport failures only.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Delay:       30 * time.Second,
		Retryable:   RetryTransport,
	}
}

// RetryTransport retries network failures, 5xx responses and unparsable bodies.
func RetryTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// RetryAlways retries every failure except configuration errors and
// context cancellation.
func RetryAlways(err error) bool {
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return false
	}
	return !errors.Is(err, ErrContextCancelled) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func (p RetryPolicy) retryable(err error) bool {
	if p.Retryable == nil {
		return RetryTransport(err)
	}
	return p.Retryable(err)
}

// retryFixed runs fn until it succeeds, returns a non-retryable error, or the
// policy's attempts are used up. fn receives the 1-based attempt number.
func retryFixed(ctx context.Context, policy RetryPolicy, endpoint string, logger zerolog.Logger, fn func(attempt int) error) error {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Str("endpoint", endpoint).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if !policy.retryable(err) {
			return err
		}

		if attempt >= maxAttempts {
			break
		}

		sendgridRetriesTotal.WithLabelValues(endpoint).Inc()
		logger.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Int("attempt", attempt).
			Dur("delay", policy.Delay).
			Msg("Retrying request after delay")

		timer := time.NewTimer(policy.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	sendgridRetryExhaustedTotal.WithLabelValues(endpoint).Inc()
	logger.Error().
		Err(lastErr).
		Str("endpoint", endpoint).
		Int("max_attempts", maxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, maxAttempts, lastErr)
}
