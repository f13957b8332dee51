package messaging

import (
	"math/rand/v2"
	"time"
)

// Backoff returns the delay before retry number attempt (0-based):
// base doubled per attempt, capped at maxDelay, with equal jitter so the
// result lies in [d/2, d].
func Backoff(attempt int, base, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	if maxDelay < base {
		maxDelay = base
	}

	d := base
	for i := 0; i < attempt && d < maxDelay; i++ {
		d *= 2
	}
	if d > maxDelay {
		d = maxDelay
	}

	half := d / 2
	return half + time.Duration(rand.Int64N(int64(d-half)+1))
}
