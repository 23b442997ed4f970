package enricher

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/retry"
)

// Config holds the per-run settings of the batch engine.
type Config struct {
	Backend           model.Backend
	RequestsPerSecond float64
	CheckpointEvery   int
	MaxRetries        int
	BackoffBase       float64
	MaxBackoff        time.Duration
	Timeout           time.Duration
}

// DefaultConfig returns the defaults for backend.
func DefaultConfig(backend model.Backend) Config {
	return Config{
		Backend:           backend,
		RequestsPerSecond: defaultRequestsPerSecond,
		CheckpointEvery:   defaultCheckpointEvery,
		MaxRetries:        defaultMaxRetries,
		BackoffBase:       defaultBackoffBase,
		MaxBackoff:        defaultMaxBackoff,
		Timeout:           defaultTimeout,
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if _, err := model.ParseBackend(string(c.Backend)); err != nil {
		errs = append(errs, err)
	}
	if math.IsNaN(c.RequestsPerSecond) || c.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("rate limit must be >= 0, got %v", c.RequestsPerSecond))
	}
	if c.CheckpointEvery < 1 {
		errs = append(errs, fmt.Errorf("checkpoint interval must be >= 1, got %d", c.CheckpointEvery))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries must be >= 0, got %d", c.MaxRetries))
	}
	if math.IsNaN(c.BackoffBase) || c.BackoffBase <= 0 {
		errs = append(errs, fmt.Errorf("backoff base must be > 0, got %v", c.BackoffBase))
	}
	if c.MaxBackoff < 0 {
		errs = append(errs, fmt.Errorf("max backoff must be >= 0, got %s", c.MaxBackoff))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("http timeout must be > 0, got %s", c.Timeout))
	}
	return errors.Join(errs...)
}

// RetryConfig returns the retry settings.
func (c Config) RetryConfig() retry.Config {
	return retry.Config{
		MaxRetries:  c.MaxRetries,
		BackoffBase: c.BackoffBase,
		MaxBackoff:  c.MaxBackoff,
	}
}
