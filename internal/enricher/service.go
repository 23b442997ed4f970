// Package enricher runs the resumable lookup of a key list against a backend.
package enricher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-txlookup/pkg/batcher"
	"go.uber.org/zap"
)

type Service struct {
	logger   *zap.Logger
	cfg      Config
	limiter  Limiter
	resolver Resolver
	store    ProgressStore
	metrics  Metrics
}

func NewService(
	cfg Config,
	limiter Limiter,
	resolver Resolver,
	store ProgressStore,
	metrics Metrics,
	logger *zap.Logger,
) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if limiter == nil || resolver == nil || store == nil {
		return nil, errors.New("limiter, resolver and store are required")
	}
	if metrics == nil {
		return nil, errors.New("enricher metrics is required")
	}

	return &Service{
		logger:   logger.With(zap.String("source", string(cfg.Backend))),
		cfg:      cfg,
		limiter:  limiter,
		resolver: resolver,
		store:    store,
		metrics:  metrics,
	}, nil
}

// Run resolves every key missing from the progress store and returns the
// store content afterwards. Results are checkpointed every CheckpointEvery
// keys and once more on exit, including cancellation and panics. A canceled
// ctx returns its error after that final checkpoint.
func (s *Service) Run(ctx context.Context, rawKeys []string) (*model.Snapshot, error) {
	keys := model.UniqueKeys(rawKeys)

	// Stores absorb unreadable content themselves. Any other load error
	// leaves the stored rows unknown, so the run stops before resolving.
	done, err := s.store.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("load progress: %w", err)
	}

	remaining := make([]model.WorkKey, 0, len(keys))
	for _, key := range keys {
		if !done.Has(key) {
			remaining = append(remaining, key)
		}
	}
	skipped := len(keys) - len(remaining)
	s.metrics.ObserveSkipped(skipped)
	s.logger.Info("starting lookup",
		zap.Int("unique_keys", len(keys)),
		zap.Int("already_done", skipped),
		zap.Int("remaining", len(remaining)),
	)

	saved := 0
	checkpoint := batcher.New(s.logger.Named("checkpoint"), func(ctx context.Context, rows []model.Result) error {
		err := s.store.Append(ctx, rows)
		s.metrics.ObserveCheckpoint(err, len(rows))
		if err != nil {
			return err
		}
		saved += len(rows)
		s.logger.Info("checkpoint saved",
			zap.Int("rows", len(rows)),
			zap.Int("done", skipped+saved),
			zap.Int("total", len(keys)),
		)
		return nil
	}, s.cfg.CheckpointEvery)

	if err := s.process(ctx, remaining, checkpoint); err != nil {
		if ctx.Err() != nil {
			s.logger.Warn("lookup interrupted", zap.Int("rows_saved", saved), zap.Int("pending", checkpoint.Pending()))
		}
		return nil, err
	}

	snapshot, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload progress: %w", err)
	}
	s.logger.Info("lookup finished",
		zap.Int("rows_saved", saved),
		zap.Int("stored_keys", snapshot.Keys()),
	)
	return snapshot, nil
}

func (s *Service) process(ctx context.Context, keys []model.WorkKey, checkpoint *batcher.Batcher[model.Result]) (err error) {
	defer func() {
		if flushErr := checkpoint.Flush(context.WithoutCancel(ctx)); flushErr != nil {
			err = errors.Join(err, fmt.Errorf("final checkpoint: %w", flushErr))
		}
	}()

	for i, key := range keys {
		if _, err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		started := time.Now()
		result, err := s.resolver.Resolve(ctx, key)
		if err != nil {
			return err
		}
		s.metrics.ObserveResolve(result, started)
		s.logger.Debug("key resolved",
			zap.String("txid", string(key)),
			zap.Int("position", i+1),
			zap.Int("remaining", len(keys)-i-1),
			zap.String("error", result.Error),
		)

		// Failed checkpoints are logged by the batcher and retried with the next one.
		_ = checkpoint.Add(ctx, result)
	}
	return nil
}
