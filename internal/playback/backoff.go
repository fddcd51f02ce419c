package playback

import "time"

// Delay returns the backoff delay before the next reconnect attempt after
// `failures` consecutive failures. Pure function of its inputs so retry
// policy is testable without real network timing.
//
// Schedule: base * 2^(failures-1), capped at max. With the defaults
// (base 1s, cap 30s): 1s, 2s, 4s, 8s, 16s, 30s, 30s, ...
func Delay(failures int, base, max time.Duration) time.Duration {
	if failures <= 0 {
		return 0
	}
	// 2^62 already overflows any practical cap; shortcut huge counters.
	if failures > 32 {
		return max
	}
	d := base << uint(failures-1)
	if d <= 0 || d > max {
		return max
	}
	return d
}
