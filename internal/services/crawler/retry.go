package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"
)

// RetryPolicy defines retry behavior for catalog source fetches.
// Rate limits (429) retry with incremental delay; a processing signal (202)
// retries the same request after a fixed wait. Anything else, or exhausted
// attempts, abandons the batch.
type RetryPolicy struct {
	MaxAttempts    int
	RetryDelay     time.Duration // incremental: attempt n waits n * RetryDelay
	ProcessingWait time.Duration // fixed wait on a processing signal
}

// NewRetryPolicy creates a default retry policy
func NewRetryPolicy(maxAttempts int, retryDelay, processingWait time.Duration) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &RetryPolicy{
		MaxAttempts:    maxAttempts,
		RetryDelay:     retryDelay,
		ProcessingWait: processingWait,
	}
}

// Execute runs fn with the retry policy applied. The returned error is the
// last attempt's error when all attempts are exhausted.
func (p *RetryPolicy) Execute(ctx context.Context, logger arbor.ILogger, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var wait time.Duration
		switch {
		case errors.Is(lastErr, ErrProcessing):
			wait = p.ProcessingWait
		case errors.Is(lastErr, ErrTooManyRequests):
			wait = time.Duration(attempt) * p.RetryDelay
		default:
			// Non-retryable: abandon immediately
			logger.Debug().
				Int("attempt", attempt).
				Err(lastErr).
				Msg("Non-retryable fetch error")
			return lastErr
		}

		if attempt == p.MaxAttempts {
			break
		}

		logger.Debug().
			Int("attempt", attempt).
			Dur("wait", wait).
			Err(lastErr).
			Msg("Retrying fetch after backoff")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	logger.Warn().
		Int("max_attempts", p.MaxAttempts).
		Err(lastErr).
		Msg("All retry attempts exhausted")

	return lastErr
}
