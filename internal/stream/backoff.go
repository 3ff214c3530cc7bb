// SPDX-License-Identifier: MIT

package stream

import "time"

// backoff computes exponential reconnect delays: min(base * 2^(k-1), cap)
// for the k-th consecutive failure.
type backoff struct {
	base     time.Duration
	cap      time.Duration
	failures int
}

func newBackoff(base, cap time.Duration) *backoff {
	if base <= 0 {
		base = time.Second
	}
	if cap < base {
		cap = base
	}
	return &backoff{base: base, cap: cap}
}

// Next registers a failure and returns the delay before the next attempt.
func (b *backoff) Next() time.Duration {
	b.failures++
	// Shifting past 30 doublings cannot be below any sane cap.
	if b.failures > 30 {
		return b.cap
	}
	d := b.base << (b.failures - 1)
	if d <= 0 || d > b.cap {
		return b.cap
	}
	return d
}

// Reset returns the backoff to its floor after a stable connection.
func (b *backoff) Reset() {
	b.failures = 0
}

// Failures returns the consecutive failure count.
func (b *backoff) Failures() int {
	return b.failures
}
