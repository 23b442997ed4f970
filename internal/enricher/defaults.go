package enricher

import "time"

const (
	defaultRequestsPerSecond = 4.0
	defaultCheckpointEvery   = 100
	defaultMaxRetries        = 5
	defaultBackoffBase       = 0.8
	defaultMaxBackoff        = 30 * time.Second
	defaultTimeout           = 15 * time.Second
)
