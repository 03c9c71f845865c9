// Package ratelimit paces outgoing SendGrid API calls with a client-side
// token bucket. The legacy newsletter API rejects bursts from a single
// account, so the client waits for a token before every call attempt.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for client-side rate limiting.
var (
	sendgridRateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sendgrid_rate_limit_waits_total",
		Help: "Total number of calls delayed by the client-side rate limiter",
	})

	sendgridRateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sendgrid_rate_limit_wait_seconds",
		Help:    "Time spent waiting for a rate limit token",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// waitLogThreshold is the wait above which a throttle is logged.
const waitLogThreshold = 100 * time.Millisecond

// Limiter gates calls at a fixed rate with a burst allowance.
// A nil *Limiter allows every call immediately.
type Limiter struct {
	lim    *rate.Limiter
	logger zerolog.Logger
}

// New creates a limiter allowing rps calls per second with the given burst.
// rps <= 0 disables limiting and returns nil.
func New(rps float64, burst int, logger zerolog.Logger) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		lim:    rate.NewLimiter(rate.Limit(rps), burst),
		logger: logger,
	}
}

// Wait blocks until a call is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	start := time.Now()
	if err := l.lim.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	waited := time.Since(start)
	if waited > waitLogThreshold {
		sendgridRateLimitWaitsTotal.Inc()
		sendgridRateLimitWaitSeconds.Observe(waited.Seconds())
		l.logger.Debug().
			Dur("waited", waited).
			Msg("Call delayed by rate limiter")
	}
	return nil
}

// RPS returns the configured rate, or 0 when limiting is disabled.
func (l *Limiter) RPS() float64 {
	if l == nil {
		return 0
	}
	return float64(l.lim.Limit())
}

// Burst returns the configured burst, or 0 when limiting is disabled.
func (l *Limiter) Burst() int {
	if l == nil {
		return 0
	}
	return l.lim.Burst()
}
