package application

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// StepPolicy bounds one pipeline step: at most MaxAttempts tries, a constant
// RetryDelay between them, and a per-attempt Timeout applied to the step
// context. Zero values mean one attempt, no delay, no timeout.
type StepPolicy struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

// runStep executes fn under the step's policy. An attempt that exceeds the
// timeout counts as a failed attempt. A step that exhausts its attempts
// returns the last error; the caller halts the run on it.
func runStep(ctx context.Context, log *zap.Logger, name string, p StepPolicy, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	attempt := 0
	op := func() error {
		attempt++
		attemptCtx := ctx
		cancel := func() {}
		if p.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNoData) {
			// Empty extraction is fatal, not transient.
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		log.Warn("step_retry",
			zap.String("step", name),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.RetryDelay), uint64(attempts-1)),
		ctx,
	)
	start := time.Now()
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		log.Error("step_failed",
			zap.String("step", name),
			zap.Int("attempts", attempt),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return err
	}
	log.Info("step_done",
		zap.String("step", name),
		zap.Int("attempts", attempt),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
