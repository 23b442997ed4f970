package retry

import (
	"math"
	"time"
)

// Delay returns the pause before retry number attempt (1-based):
// base^attempt seconds scaled by a factor cycling through 1.5, 1.7 and 1.9.
func Delay(base float64, attempt int) time.Duration {
	if attempt <= 0 || base <= 0 {
		return 0
	}
	factor := 1.5 + float64(attempt%3)*0.2
	seconds := math.Pow(base, float64(attempt)) * factor
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	if seconds >= float64(math.MaxInt64)/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds * float64(time.Second))
}

// Schedule is a backoff.BackOff producing Delay values that never decrease
// between attempts and never exceed Max (when Max > 0).
type Schedule struct {
	Base float64
	Max  time.Duration

	attempt int
	last    time.Duration
}

// NewSchedule returns a schedule starting at attempt one.
func NewSchedule(base float64, maxDelay time.Duration) *Schedule {
	return &Schedule{Base: base, Max: maxDelay}
}

// NextBackOff implements backoff.BackOff.
func (s *Schedule) NextBackOff() time.Duration {
	s.attempt++
	d := Delay(s.Base, s.attempt)
	if d < s.last {
		d = s.last
	}
	if s.Max > 0 && d > s.Max {
		d = s.Max
	}
	s.last = d
	return d
}

// Reset implements backoff.BackOff.
func (s *Schedule) Reset() {
	s.attempt = 0
	s.last = 0
}
