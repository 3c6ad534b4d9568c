package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	svcErr "github.com/oggyb/muzz-match/internal/errors"
)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Default retries transient failures three times in total.
var Default = Policy{Attempts: 3, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second}

// Do runs fn until it succeeds, fails with a non-retryable error, the attempts
// are exhausted or ctx is done. The last error of fn is returned as is.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	var last error
	operation := func() error {
		last = fn(ctx)
		if last != nil && !svcErr.Retryable(last) {
			return backoff.Permanent(last)
		}
		return last
	}

	err := backoff.Retry(operation, backoff.WithContext(p.backOff(), ctx))
	if err != nil && last != nil {
		// backoff reports ctx.Err() when it gives up on a done context
		return last
	}
	return err
}

// backOff is exponential with 50% jitter, capped at MaxDelay.
func (p Policy) backOff() backoff.BackOff {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	return backoff.WithMaxRetries(b, uint64(attempts-1))
}
