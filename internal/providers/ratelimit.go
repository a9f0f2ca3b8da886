package providers

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerMinute is used when a provider has no configured limit.
const DefaultRequestsPerMinute = 60

// RateLimiter is a token bucket limiter shared by all calls to one provider.
// The bucket holds one minute of requests. A 429 with a retry-after hint
// pauses every caller until the hint expires.
type RateLimiter struct {
	limiter           *rate.Limiter
	requestsPerMinute int

	mu            sync.Mutex
	pausedUntil   time.Time
	totalConsumed int64
	totalWaited   time.Duration
	last429Time   time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	TokensAvailable int           `json:"tokens_available"`
	TokensLimit     int           `json:"tokens_limit"`
	Utilization     float64       `json:"utilization"`
	TimeUntilToken  time.Duration `json:"time_until_token"`
	TotalConsumed   int64         `json:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitempty"`
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	return &RateLimiter{
		limiter:           rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute),
		requestsPerMinute: requestsPerMinute,
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	r.mu.Lock()
	pause := time.Until(r.pausedUntil)
	r.mu.Unlock()
	if pause > 0 {
		t := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	r.mu.Lock()
	r.totalConsumed++
	r.totalWaited += time.Since(start)
	r.mu.Unlock()
	return nil
}

// TryConsume attempts to consume a token without blocking.
func (r *RateLimiter) TryConsume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if time.Now().Before(r.pausedUntil) {
		return false
	}
	if !r.limiter.Allow() {
		return false
	}
	r.totalConsumed++
	return true
}

// Record429 should be called when a 429 error is received.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.last429Time = now
	if retryAfter > 0 {
		if until := now.Add(retryAfter); until.After(r.pausedUntil) {
			r.pausedUntil = until
		}
	}
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokens := r.limiter.Tokens()
	if tokens < 0 {
		tokens = 0
	}
	utilization := 1.0 - tokens/float64(r.requestsPerMinute)
	if utilization < 0 {
		utilization = 0
	}

	var timeUntilToken time.Duration
	if tokens < 1.0 {
		perSecond := float64(r.requestsPerMinute) / 60.0
		timeUntilToken = time.Duration((1.0 - tokens) / perSecond * float64(time.Second))
	}
	if pause := time.Until(r.pausedUntil); pause > timeUntilToken {
		timeUntilToken = pause
	}

	return RateLimiterStatus{
		TokensAvailable: int(tokens),
		TokensLimit:     r.requestsPerMinute,
		Utilization:     utilization,
		TimeUntilToken:  timeUntilToken,
		TotalConsumed:   r.totalConsumed,
		TotalWaited:     r.totalWaited,
		Last429Time:     r.last429Time,
	}
}
