package matchmaker

import (
	"context"
	"time"

	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/metrics"
	"github.com/oggyb/muzz-match/internal/utils/retry"
)

// executor runs one store operation with a per-attempt timeout, classifies
// its error and retries transient failures.
type executor struct {
	timeout time.Duration
	policy  retry.Policy
	metrics *metrics.Metrics
}

func (e executor) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	return retry.Do(ctx, e.policy, func(ctx context.Context) error {
		if attempt > 0 {
			e.metrics.Retried(op)
		}
		attempt++

		opCtx, cancel := e.withTimeout(ctx)
		defer cancel()
		return svcErr.FromStore(fn(opCtx))
	})
}

func (e executor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

// call is run for operations that return a value.
func call[T any](ctx context.Context, e executor, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := e.run(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
