package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/m4xw311/meowcli/errors"
)

// retryPolicy bounds provider-level retries. Rate limits back off
// exponentially up to maxRateLimitAttempts sends; transport failures get a
// single retry. Everything else fails fast.
type retryPolicy struct {
	maxRateLimitAttempts int
	baseDelay            time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{maxRateLimitAttempts: 3, baseDelay: time.Second}
}

// completeWithRetry calls send until it succeeds or the policy gives up.
// Errors are classified by the caller; only rate-limit and transport kinds
// are retried and a cancelled context stops everything. Unclassified
// errors surface immediately.
func completeWithRetry(ctx context.Context, pol retryPolicy, log zerolog.Logger, send func(context.Context) (string, error)) (string, error) {
	rateLimitAttempts := 0
	transportRetried := false

	for {
		out, err := send(ctx)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		var delay time.Duration
		switch errors.KindOf(err) {
		case errors.KindRateLimit:
			rateLimitAttempts++
			if rateLimitAttempts >= pol.maxRateLimitAttempts {
				return "", err
			}
			// Exponential backoff: 1s, 2s
			delay = pol.baseDelay * time.Duration(1<<(rateLimitAttempts-1))
		case errors.KindTransport:
			if transportRetried {
				return "", err
			}
			transportRetried = true
			delay = pol.baseDelay
		default:
			return "", err
		}

		log.Warn().
			Err(err).
			Dur("delay", delay).
			Msg("retrying provider request")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
}
