// Package throttle spaces outbound calls to respect a requests-per-second ceiling.
package throttle

import (
	"context"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/clock"
	"go.uber.org/ratelimit"
)

// Limiter enforces a minimum interval between consecutive calls.
type Limiter struct {
	rl       ratelimit.Limiter
	interval time.Duration
}

// New constructs a Limiter allowing at most rps calls per second. A
// non-positive rps, or one so high that the interval rounds to zero,
// never blocks.
func New(rps float64) *Limiter {
	return NewWithClock(rps, clock.Real{})
}

// NewWithClock is New with an explicit clock.
func NewWithClock(rps float64, c clock.Clock) *Limiter {
	interval := Interval(rps)
	if interval <= 0 {
		return &Limiter{rl: ratelimit.NewUnlimited()}
	}
	return &Limiter{
		rl:       ratelimit.New(1, ratelimit.Per(interval), ratelimit.WithoutSlack, ratelimit.WithClock(c)),
		interval: interval,
	}
}

// Interval returns the minimum spacing for rps; zero means unbounded.
func Interval(rps float64) time.Duration {
	if rps <= 0 {
		return 0
	}
	seconds := 1 / rps
	if seconds > float64(time.Duration(1<<63-1))/float64(time.Second) {
		return time.Duration(1<<63 - 1)
	}
	return time.Duration(seconds * float64(time.Second))
}

// Wait blocks until the next call is allowed and returns its start time.
// The wait itself is at most one interval and is not interrupted by ctx.
func (l *Limiter) Wait(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	return l.rl.Take(), nil
}

// MinInterval returns the configured spacing between calls.
func (l *Limiter) MinInterval() time.Duration {
	return l.interval
}
