package db

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/dberrors"
	"github.com/yigit/coursehub/internal/pkg/logger"
)

// RetryPolicy bounds retries of transient store failures.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	// attempts are bounded by MaxAttempts, not wall time
	exp.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// Retry calls fn until it succeeds, fails with a non-transient error, or the
// policy runs out of attempts. Transient failures that outlive the policy are
// returned as apperrors.ErrStoreUnavailable.
func Retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !dberrors.IsTransient(err) {
			return backoff.Permanent(err)
		}
		logger.FromContext(ctx).Warn().Err(err).Int("attempt", attempt).Msg("Transient store failure")
		return err
	}, p.backOff(ctx))

	if err != nil && dberrors.IsTransient(err) {
		return apperrors.NewStoreUnavailableError(err)
	}
	return err
}
