package poller

import "time"

// maxBackoffExponent caps the doubling so that base * 2^n cannot overflow
// before the ceiling is applied.
const maxBackoffExponent = 6

// EffectiveInterval returns the delay before the next poll after failures
// consecutive failed attempts:
//
//	min(base * 2^min(failures, 6), max)
//
// A non-positive max disables the ceiling. The result is non-decreasing in
// failures and equals base when failures is zero.
func EffectiveInterval(base time.Duration, failures int, max time.Duration) time.Duration {
	if failures < 0 {
		failures = 0
	}
	if failures > maxBackoffExponent {
		failures = maxBackoffExponent
	}
	d := base << uint(failures)
	if max > 0 && d > max {
		return max
	}
	return d
}
