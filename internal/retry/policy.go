// Package retry resolves a key into a result, retrying transient lookup
// failures with a growing pause.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/model"
	"go.uber.org/zap"
)

// Config controls how many times and how long a retryable failure is retried.
type Config struct {
	MaxRetries  int
	BackoffBase float64
	MaxBackoff  time.Duration
}

// Option customizes a Policy.
type Option func(*Policy)

// WithTimer replaces the timer used to wait between attempts.
func WithTimer(newTimer func() backoff.Timer) Option {
	return func(p *Policy) {
		p.newTimer = newTimer
	}
}

// Policy folds the outcome of one or more lookup attempts into a model.Result.
type Policy struct {
	fetcher  Fetcher
	cfg      Config
	logger   *zap.Logger
	newTimer func() backoff.Timer
}

// NewPolicy constructs a Policy over fetcher.
func NewPolicy(fetcher Fetcher, cfg Config, logger *zap.Logger, opts ...Option) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Policy{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger.Named("retry"),
		newTimer: func() backoff.Timer {
			return nil
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resolve looks key up until it succeeds, fails terminally or runs out of
// retries. Lookup failures are reported in Result.Error; the returned error
// is non-nil only when ctx is done, in which case the result must be discarded.
func (p *Policy) Resolve(ctx context.Context, key model.WorkKey) (model.Result, error) {
	source := p.fetcher.Backend()

	var (
		status  model.TxStatus
		attempt int
	)
	operation := func() error {
		var err error
		status, err = p.fetcher.Fetch(ctx, key)
		if err == nil {
			return nil
		}
		failure := asFailure(err)
		if !failure.Retryable() {
			return backoff.Permanent(failure)
		}
		return failure
	}
	notify := func(err error, delay time.Duration) {
		attempt++
		p.logger.Warn("lookup failed, retrying",
			zap.String("txid", string(key)),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", p.cfg.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotifyWithTimer(operation, backoff.WithContext(p.backOff(), ctx), notify, p.newTimer())
	if ctxErr := ctx.Err(); ctxErr != nil {
		return model.Result{}, ctxErr
	}
	if err == nil {
		return model.Resolved(key, source, status), nil
	}

	failure := asFailure(err)
	if failure.Retryable() {
		return model.Failed(key, source, p.exhausted(failure)), nil
	}
	return model.Failed(key, source, failure.Error()), nil
}

func (p *Policy) backOff() backoff.BackOff {
	if p.cfg.MaxRetries <= 0 {
		// WithMaxRetries treats zero as unlimited.
		return &backoff.StopBackOff{}
	}
	return backoff.WithMaxRetries(NewSchedule(p.cfg.BackoffBase, p.cfg.MaxBackoff), uint64(p.cfg.MaxRetries))
}

func (p *Policy) exhausted(failure *model.Failure) string {
	retries := max(p.cfg.MaxRetries, 0)
	if failure.Kind == model.Transient {
		return fmt.Sprintf("Network/Timeout after %d retries", retries)
	}
	return fmt.Sprintf("HTTP error after %d retries", retries)
}

func asFailure(err error) *model.Failure {
	var failure *model.Failure
	if errors.As(err, &failure) {
		return failure
	}
	return model.UnexpectedFailure(err)
}
