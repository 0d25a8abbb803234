package queue

import "time"

const (
	backoffBase = 5 * time.Second
	backoffCap  = 5 * time.Minute
)

// backoff returns the delay before the next attempt: base doubled per
// completed retry, capped.
func backoff(retryCount int) time.Duration {
	// Past 10 doublings the shift is already beyond the cap (and would
	// eventually overflow).
	if retryCount > 10 {
		return backoffCap
	}
	return min(backoffBase<<retryCount, backoffCap)
}
