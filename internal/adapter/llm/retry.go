package llm

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"readyscriptpro/internal/domain"
)

// Retry timing bounds.
const (
	defaultMaxAttempts = 3
	baseRetryDelay     = 1 * time.Second
	maxRetryDelay      = 30 * time.Second
)

// RetryProvider wraps an LLMProvider with bounded retries. Only transient
// errors (rate limit, server error, network failure) are retried; auth,
// credit, and protocol errors surface immediately.
type RetryProvider struct {
	inner       domain.LLMProvider
	maxAttempts int
	logger      *slog.Logger
}

// NewRetryProvider wraps inner with a retry loop. maxAttempts <= 0 selects
// the default of 3.
func NewRetryProvider(inner domain.LLMProvider, maxAttempts int, logger *slog.Logger) *RetryProvider {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &RetryProvider{
		inner:       inner,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Chat implements domain.LLMProvider.
func (p *RetryProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	var lastErr error

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		resp, err := p.inner.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !domain.IsRetryableError(err) {
			return nil, err
		}

		if attempt < p.maxAttempts-1 {
			delay := retryBackoff(attempt)
			p.logger.Info("retrying upstream call after error",
				"provider", p.inner.Name(),
				"attempt", attempt+1,
				"delay", delay,
				"error", err,
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, lastErr
}

// Name implements domain.LLMProvider.
func (p *RetryProvider) Name() string { return p.inner.Name() }

// retryBackoff computes exponential backoff with jitter.
func retryBackoff(attempt int) time.Duration {
	delay := baseRetryDelay * time.Duration(1<<uint(attempt))
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	// Add 0-25% jitter.
	jitter := time.Duration(rand.Int63n(int64(delay/4) + 1))
	return delay + jitter
}

// Compile-time interface check.
var _ domain.LLMProvider = (*RetryProvider)(nil)
