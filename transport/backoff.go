package transport

import (
	"math/rand"
	"time"
)

// ExponentialBackoff paces retry loops. The first call to Next returns the
// initial delay, every later call multiplies the previous delay and caps it
// at max. The running total lets callers bound an entire retry loop with a
// single timeout.
type ExponentialBackoff struct {
	initial    time.Duration
	multiplier float64
	max        time.Duration

	current time.Duration
	total   time.Duration
}

// NewExponentialBackoff creates a backoff starting at initial, growing by
// multiplier per step and capped at max
func NewExponentialBackoff(initial time.Duration, multiplier float64, max time.Duration) *ExponentialBackoff {
	return &ExponentialBackoff{
		initial:    initial,
		multiplier: multiplier,
		max:        max,
	}
}

// Next advances the backoff and returns the delay to sleep, with a small
// random jitter (±10%) to avoid thundering herds
func (b *ExponentialBackoff) Next() time.Duration {
	if b.current == 0 {
		b.current = b.initial
	} else {
		next := time.Duration(float64(b.current) * b.multiplier)
		if next > b.max {
			next = b.max
		}
		b.current = next
	}
	b.total += b.current

	jitter := float64(b.current) * (0.9 + 0.2*rand.Float64())
	return time.Duration(jitter)
}

// Total returns the sum of all delays handed out so far (without jitter)
func (b *ExponentialBackoff) Total() time.Duration {
	return b.total
}

// Reset restarts the backoff from its initial delay
func (b *ExponentialBackoff) Reset() {
	b.current = 0
	b.total = 0
}
