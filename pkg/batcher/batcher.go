// Package batcher provides a generic buffer that hands items to a callback in
// checkpoints of a fixed size.
package batcher

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Batcher buffers items and flushes them every flushSize additions. Items of a
// failed flush stay buffered and are retried with the next flush.
type Batcher[T any] struct {
	flushCallback func(context.Context, []T) error
	flushSize     int
	logger        *zap.Logger

	mu    sync.Mutex
	buf   []T
	added int
}

// New constructs a Batcher. A flushSize below one flushes on every Add.
func New[T any](logger *zap.Logger, flushCallback func(context.Context, []T) error, flushSize int) *Batcher[T] {
	if flushSize < 1 {
		flushSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batcher[T]{
		logger:        logger,
		flushCallback: flushCallback,
		flushSize:     flushSize,
		buf:           make([]T, 0, flushSize),
	}
}

// Add buffers item and flushes once flushSize items were added since the last
// flush attempt. The returned error is the flush error, if one was attempted.
func (b *Batcher[T]) Add(ctx context.Context, item T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, item)
	b.added++
	if b.added < b.flushSize {
		return nil
	}
	return b.flush(ctx)
}

// Flush hands every buffered item to the callback.
func (b *Batcher[T]) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.flush(ctx)
}

// Pending returns the number of buffered items.
func (b *Batcher[T]) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.buf)
}

func (b *Batcher[T]) flush(ctx context.Context) error {
	b.added = 0
	if len(b.buf) == 0 {
		return nil
	}

	if err := b.flushCallback(ctx, b.buf); err != nil {
		b.logger.Error("batch not flushed", zap.Int("pending", len(b.buf)), zap.Error(err))
		return err
	}
	b.logger.Debug("batch flushed", zap.Int("size", len(b.buf)))
	b.buf = make([]T, 0, b.flushSize)
	return nil
}
