package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/utils/retry"
)

var fast = retry.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestDo_RetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fast, func(context.Context) error {
		calls++
		if calls < 3 {
			return svcErr.Unavailable(errors.New("flaky"))
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsAfterAttempts(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fast, func(context.Context) error {
		calls++
		return svcErr.Conflict("lost race")
	})
	assert.ErrorIs(t, err, svcErr.ErrConflict)
	assert.Equal(t, 3, calls)
}

func TestDo_DoesNotRetryValidation(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fast, func(context.Context) error {
		calls++
		return svcErr.Validation("self like")
	})
	assert.ErrorIs(t, err, svcErr.ErrValidation)
	assert.Equal(t, 1, calls)
}

func TestDo_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	slow := retry.Policy{Attempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

	err := retry.Do(ctx, slow, func(context.Context) error {
		calls++
		cancel()
		return svcErr.Unavailable(errors.New("down"))
	})
	assert.ErrorIs(t, err, svcErr.ErrStoreUnavailable)
	assert.Equal(t, 1, calls)
}
