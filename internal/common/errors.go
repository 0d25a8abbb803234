// Package common defines shared constants and sentinel errors used across
// the flitsync layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Remote call failures that may succeed on a later attempt.
	ErrTransientNetwork      = errors.New("network unreachable")
	ErrServerUnavailable     = errors.New("server unavailable")
	ErrRateLimited           = errors.New("rate limited")
	ErrClassificationTimeout = errors.New("classification timeout")

	// Terminal remote call failures. The queue never retries these.
	ErrInvalidRequest       = errors.New("invalid request")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrSubscriptionRequired = errors.New("subscription required")

	// Calendar conflict resolution errors.
	ErrUnsupportedResolution = errors.New("unsupported conflict resolution")

	// Sync queue errors.
	ErrUnknownAction = errors.New("unknown queue action")
)

// IsRetryable reports whether a remote-call failure should be scheduled for
// another attempt. Unknown errors count as retryable so that store hiccups
// and unclassified transport failures go through backoff instead of
// terminating the item.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrSubscriptionRequired),
		errors.Is(err, ErrUnknownAction):
		return false
	}
	return true
}
