package providers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

// Retry defaults.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// CallRecorder receives every completed logical call, successful or not.
type CallRecorder interface {
	RecordCall(ctx context.Context, req *ChatRequest, result *ChatResult, err error)
}

// CallerConfig configures retry and rate limiting around a client.
type CallerConfig struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	RequestsPerMinute int
	// Limiter, when set, is shared with other callers of the same provider.
	Limiter  *RateLimiter
	Recorder CallRecorder
	Logger   *slog.Logger
}

// Caller wraps an LLMClient with rate limiting, retries with exponential
// backoff, retry-after handling and structured output validation.
type Caller struct {
	client   LLMClient
	limiter  *RateLimiter
	attempts uint
	base     time.Duration
	max      time.Duration
	recorder CallRecorder
	logger   *slog.Logger
}

// NewCaller creates a caller for client.
func NewCaller(client LLMClient, cfg CallerConfig) *Caller {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(cfg.RequestsPerMinute)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Caller{
		client:   client,
		limiter:  cfg.Limiter,
		attempts: uint(cfg.MaxAttempts),
		base:     cfg.BaseDelay,
		max:      cfg.MaxDelay,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
	}
}

// Name returns the wrapped client's name.
func (c *Caller) Name() string {
	return c.client.Name()
}

// Limiter returns the caller's rate limiter.
func (c *Caller) Limiter() *RateLimiter {
	return c.limiter
}

// Chat performs req with retries. Auth and request errors are returned
// immediately; rate limits, transient failures and malformed responses are
// retried up to the configured attempt count. When req asks for structured
// output, the response is validated and, on failure, the model is asked to
// repair it.
func (c *Caller) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	var (
		result   *ChatResult
		attempts int
		repairs  int
		queued   time.Duration
		current  = req
	)

	err := retry.Do(
		func() error {
			attempts++

			waitStart := time.Now()
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
			queued += time.Since(waitStart)

			res, err := c.client.Chat(ctx, current)
			result = res
			if err != nil {
				if rl, ok := asRateLimit(err); ok {
					c.limiter.Record429(rl.RetryAfter)
				}
				return err
			}

			if req.ResponseFormat != nil {
				parsed, perr := ParseStructured(req.ResponseFormat, res.Content)
				if perr != nil {
					if repairs < maxStructuredRepairAttempts {
						repairs++
						current = withRepairPrompt(req, res.Content, perr)
					}
					res.Success = false
					res.ErrorType = ErrorType(perr)
					res.ErrorMessage = perr.Error()
					return perr
				}
				res.ParsedJSON = parsed
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.base),
		retry.MaxDelay(c.max),
		retry.DelayType(retryAfterDelay),
		retry.RetryIf(IsRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying LLM call",
				"provider", c.client.Name(), "attempt", n+2, "error_type", ErrorType(err), "error", err)
		}),
	)
	if err != nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	if result == nil {
		result = &ChatResult{Provider: c.client.Name(), ModelUsed: req.Model, RequestID: req.RequestID}
	}
	result.Attempts = attempts
	result.QueueTime = queued
	result.TotalTime = time.Since(start)
	if err != nil {
		result.Success = false
		result.ErrorType = ErrorType(err)
		result.ErrorMessage = err.Error()
		err = fmt.Errorf("%s call failed after %d attempt(s): %w", c.client.Name(), attempts, err)
	}

	if c.recorder != nil {
		c.recorder.RecordCall(ctx, req, result, err)
	}
	return result, err
}

// retryAfterDelay honours a provider's retry-after hint and otherwise backs
// off exponentially.
func retryAfterDelay(n uint, err error, config *retry.Config) time.Duration {
	if rl, ok := asRateLimit(err); ok && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	return retry.BackOffDelay(n, err, config)
}

func withRepairPrompt(req *ChatRequest, lastOutput string, issue error) *ChatRequest {
	repaired := *req
	repaired.Messages = append(append([]Message(nil), req.Messages...),
		Message{Role: RoleAssistant, Content: lastOutput},
		Message{Role: RoleUser, Content: structuredRepairPrompt(req.ResponseFormat.JSONSchema, lastOutput, issue)},
	)
	return &repaired
}
