// Package retry provides the single executor every store operation runs
// under: bounded exponential backoff with failure classification. Errors
// marked Permanent (not-found, caller mistakes) fail immediately; anything
// else is treated as transient and retried until the attempt budget is
// spent, after which the last error is surfaced unchanged.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultMaxAttempts         = 5
	defaultDestructiveAttempts = 3
	defaultBaseDelay           = 500 * time.Millisecond
	defaultMaxDelay            = 10 * time.Second
)

// Config holds the executor's budgets. Zero values take the defaults.
type Config struct {
	MaxAttempts         int           // total attempts for regular operations (default 5)
	DestructiveAttempts int           // total attempts for destructive operations (default 3)
	BaseDelay           time.Duration // first backoff delay (default 500ms, doubling)
	MaxDelay            time.Duration // backoff cap (default 10s)
}

// Executor runs store operations with retry and backoff.
type Executor struct {
	maxAttempts         int
	destructiveAttempts int
	baseDelay           time.Duration
	maxDelay            time.Duration
}

// New creates an executor from cfg, filling in defaults.
func New(cfg Config) *Executor {
	e := &Executor{
		maxAttempts:         cfg.MaxAttempts,
		destructiveAttempts: cfg.DestructiveAttempts,
		baseDelay:           cfg.BaseDelay,
		maxDelay:            cfg.MaxDelay,
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = defaultMaxAttempts
	}
	if e.destructiveAttempts <= 0 {
		e.destructiveAttempts = defaultDestructiveAttempts
	}
	if e.baseDelay <= 0 {
		e.baseDelay = defaultBaseDelay
	}
	if e.maxDelay <= 0 {
		e.maxDelay = defaultMaxDelay
	}
	return e
}

// Permanent marks err as non-retryable. The executor returns it to the
// caller unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do runs fn under the regular attempt budget.
func (e *Executor) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return e.run(ctx, op, e.maxAttempts, fn)
}

// DoDestructive runs fn under the reduced budget used for deletes and other
// operations that should not be hammered on failure.
func (e *Executor) DoDestructive(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return e.run(ctx, op, e.destructiveAttempts, fn)
}

func (e *Executor) run(ctx context.Context, op string, attempts int, fn func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.baseDelay
	b.MaxInterval = e.maxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	attempt := 0
	operation := func() error {
		attempt++
		return fn(ctx)
	}
	notify := func(err error, next time.Duration) {
		slog.Warn("store operation failed, retrying",
			"op", op,
			"attempt", attempt,
			"next_delay", next,
			"error", err,
		)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
	return backoff.RetryNotify(operation, policy, notify)
}
